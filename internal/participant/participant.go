package participant

import "time"

// New returns a participant at first contact.
func New(key Key, displayName string, now time.Time) *Participant {
	return &Participant{
		Key:         key,
		DisplayName: displayName,
		State:       StateInactive,
		Mode:        ModeUnknown,
		Topics:      []Topic{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// OptIn moves an inactive participant to active.
func (p *Participant) OptIn() bool {
	if p.State != StateInactive {
		return false
	}
	p.State = StateActive
	return true
}

// OptOut deactivates the participant from any other state and forgets the mode.
// The caller is responsible for closing an in-progress meeting first.
func (p *Participant) OptOut() bool {
	if p.State == StateInactive {
		return false
	}
	p.State = StateInactive
	p.Mode = ModeUnknown
	p.CurrentMeetingID = ""
	return true
}

func (p *Participant) SetOnline() bool {
	return p.setMode(ModeOnline)
}

func (p *Participant) SetOffline() bool {
	return p.setMode(ModeOffline)
}

// SetMode dispatches to SetOnline or SetOffline.
func (p *Participant) SetMode(mode Mode) bool {
	switch mode {
	case ModeOnline:
		return p.SetOnline()
	case ModeOffline:
		return p.SetOffline()
	}
	return false
}

func (p *Participant) setMode(mode Mode) bool {
	if p.State != StateActive && p.State != StateReady {
		return false
	}
	p.Mode = mode
	return true
}

// MarkReadyToParticipate moves an active participant into the matching pool.
func (p *Participant) MarkReadyToParticipate() bool {
	if p.State != StateActive {
		return false
	}
	p.State = StateReady
	return true
}

// RecordTopics replaces the whole topic set.
func (p *Participant) RecordTopics(topics []Topic) {
	p.Topics = append(make([]Topic, 0, len(topics)), topics...)
}

// EnterMeeting pairs a ready participant with meetingID.
func (p *Participant) EnterMeeting(meetingID string) bool {
	if p.State != StateReady || p.CurrentMeetingID != "" || meetingID == "" {
		return false
	}
	p.State = StateInMeeting
	p.CurrentMeetingID = meetingID
	return true
}

// ExitMeeting returns the participant to active once meetingID has ended.
// It refuses when the participant is attached to a different meeting.
func (p *Participant) ExitMeeting(meetingID string) bool {
	if p.State != StateInMeeting || p.CurrentMeetingID != meetingID {
		return false
	}
	p.State = StateActive
	p.CurrentMeetingID = ""
	return true
}

// TryGetSearchProjection returns a snapshot for the matchmaker if the participant is ready.
func (p *Participant) TryGetSearchProjection() (SearchProjection, bool) {
	if p.State != StateReady {
		return SearchProjection{}, false
	}
	return SearchProjection{
		ID:          p.ID,
		Key:         p.Key,
		DisplayName: p.DisplayName,
		Topics:      append([]Topic(nil), p.Topics...),
		Mode:        p.Mode,
	}, true
}

// Clone returns a deep copy.
func (p *Participant) Clone() *Participant {
	c := *p
	c.Topics = append([]Topic(nil), p.Topics...)
	return &c
}
