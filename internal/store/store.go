package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-sqlite3"
	"github.com/mauv0809/pairup/internal/meeting"
	"github.com/mauv0809/pairup/internal/participant"
)

// store is the SQL backed Store. Transactions are serialized in process so a
// candidate check and the meeting insert can never interleave with another writer.
type store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// New creates a Store on top of an initialized database.
func New(db *sql.DB) Store {
	return &store{
		db:  db,
		now: time.Now,
	}
}

func (s *store) InTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer sqlTx.Rollback()

	if err := fn(&txn{tx: sqlTx, now: s.now}); err != nil {
		return classify(err)
	}
	if err := sqlTx.Commit(); err != nil {
		return classify(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// classify marks database lock failures as conflicts so Retry runs the
// transaction again. Another process holding the write lock looks like this.
func classify(err error) error {
	if isLockError(err) && !errors.Is(err, ErrConflict) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}

func isLockError(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
}

func (s *store) WithParticipant(ctx context.Context, key participant.Key, displayName string, fn func(tx Tx, p *participant.Participant) error) error {
	return withParticipant(ctx, s.InTx, key, displayName, fn)
}

func (s *store) WithParticipantByContext(ctx context.Context, contextID string, fn func(tx Tx, p *participant.Participant) error) error {
	return withParticipantByContext(ctx, s.InTx, contextID, fn)
}

func (s *store) WithMeetingForParticipant(ctx context.Context, key participant.Key, fn func(tx Tx, r *meeting.Route) error) error {
	return withMeetingForParticipant(ctx, s.InTx, key, fn)
}

func (s *store) Save(ctx context.Context, p *participant.Participant) error {
	return save(ctx, s.InTx, p)
}

// ReadyParticipants lists every participant waiting for a partner, oldest update first.
func (s *store) ReadyParticipants(ctx context.Context) ([]participant.SearchProjection, error) {
	var projections []participant.SearchProjection
	err := s.InTx(ctx, func(t Tx) error {
		tx := t.(*txn)
		participants, err := tx.queryParticipants(ctx,
			`SELECT `+participantColumns+` FROM participants
			WHERE state = ? AND current_meeting_id IS NULL
			ORDER BY updated_at, id`, string(participant.StateReady))
		if err != nil {
			return fmt.Errorf("failed to list ready participants: %w", err)
		}
		for _, p := range participants {
			if err := tx.loadTopics(ctx, p); err != nil {
				return err
			}
			if proj, ok := p.TryGetSearchProjection(); ok {
				projections = append(projections, proj)
			}
		}
		return nil
	})
	return projections, err
}

func (s *store) Topics(ctx context.Context) ([]participant.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM topics ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer rows.Close()

	topics := []participant.Topic{}
	for rows.Next() {
		var t participant.Topic
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// Clear removes every participant, meeting, feedback entry and stored metric.
func (s *store) Clear(ctx context.Context) error {
	return s.InTx(ctx, func(t Tx) error {
		tx := t.(*txn)
		for _, table := range []string{"feedback", "meeting_participants", "participant_topics", "participants", "meetings", "metrics"} {
			if _, err := tx.tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		log.Info("Store cleared")
		return nil
	})
}

const participantColumns = `id, context_id, person_id, display_name, state, participation_mode,
	current_meeting_id, version, created_at, updated_at`

type txn struct {
	tx  *sql.Tx
	now func() time.Time
}

func scanParticipant(scanner interface{ Scan(...any) error }) (*participant.Participant, error) {
	var (
		p                    participant.Participant
		state, mode          string
		meetingID            sql.NullString
		createdAt, updatedAt int64
	)
	err := scanner.Scan(&p.ID, &p.Key.ContextID, &p.Key.PersonID, &p.DisplayName, &state, &mode,
		&meetingID, &p.Version, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.State = participant.State(state)
	p.Mode = participant.Mode(mode)
	p.CurrentMeetingID = meetingID.String
	p.CreatedAt = time.Unix(0, createdAt).UTC()
	p.UpdatedAt = time.Unix(0, updatedAt).UTC()
	p.Topics = []participant.Topic{}
	return &p, nil
}

func (t *txn) queryParticipants(ctx context.Context, query string, args ...any) ([]*participant.Participant, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []*participant.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (t *txn) getParticipant(ctx context.Context, entityID any, query string, args ...any) (*participant.Participant, error) {
	p, err := scanParticipant(t.tx.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("participant", entityID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	if err := t.loadTopics(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (t *txn) GetParticipant(ctx context.Context, key participant.Key) (*participant.Participant, error) {
	return t.getParticipant(ctx, key.String(),
		`SELECT `+participantColumns+` FROM participants WHERE context_id = ? AND person_id = ?`,
		key.ContextID, key.PersonID)
}

func (t *txn) GetParticipantByID(ctx context.Context, id int64) (*participant.Participant, error) {
	return t.getParticipant(ctx, id,
		`SELECT `+participantColumns+` FROM participants WHERE id = ?`, id)
}

func (t *txn) GetParticipantByContext(ctx context.Context, contextID string) (*participant.Participant, error) {
	return t.getParticipant(ctx, "in context "+contextID,
		`SELECT `+participantColumns+` FROM participants WHERE context_id = ? ORDER BY id LIMIT 1`, contextID)
}

func (t *txn) loadTopics(ctx context.Context, p *participant.Participant) error {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT t.id, t.name FROM participant_topics pt
		JOIN topics t ON t.id = pt.topic_id
		WHERE pt.participant_id = ?
		ORDER BY t.id`, p.ID)
	if err != nil {
		return fmt.Errorf("failed to load topics: %w", err)
	}
	defer rows.Close()

	p.Topics = []participant.Topic{}
	for rows.Next() {
		var topic participant.Topic
		if err := rows.Scan(&topic.ID, &topic.Name); err != nil {
			return fmt.Errorf("failed to scan topic: %w", err)
		}
		p.Topics = append(p.Topics, topic)
	}
	return rows.Err()
}

func (t *txn) CreateParticipant(ctx context.Context, key participant.Key, displayName string) (*participant.Participant, error) {
	p := participant.New(key, displayName, t.now().UTC())
	p.Version = 1
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO participants (context_id, person_id, display_name, state, participation_mode, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		key.ContextID, key.PersonID, displayName, string(p.State), string(p.Mode), p.Version, p.CreatedAt.UnixNano(), p.UpdatedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to create participant: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("failed to read participant id: %w", err)
	}
	log.Info("Created participant", "id", p.ID, "key", key.String())
	return p, nil
}

func (t *txn) SaveParticipant(ctx context.Context, p *participant.Participant) error {
	now := t.now().UTC()
	res, err := t.tx.ExecContext(ctx, `
		UPDATE participants
		SET display_name = ?, state = ?, participation_mode = ?, current_meeting_id = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		p.DisplayName, string(p.State), string(p.Mode), sql.NullString{String: p.CurrentMeetingID, Valid: p.CurrentMeetingID != ""},
		now.UnixNano(), p.ID, p.Version)
	if err != nil {
		return fmt.Errorf("failed to save participant %d: %w", p.ID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to save participant %d: %w", p.ID, err)
	} else if n == 0 {
		return fmt.Errorf("failed to save participant %d at version %d: %w", p.ID, p.Version, ErrConflict)
	}

	if _, err := t.tx.ExecContext(ctx, "DELETE FROM participant_topics WHERE participant_id = ?", p.ID); err != nil {
		return fmt.Errorf("failed to reset topics: %w", err)
	}
	for _, topic := range p.Topics {
		if _, err := t.tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO participant_topics (participant_id, topic_id) VALUES (?, ?)", p.ID, topic.ID); err != nil {
			return fmt.Errorf("failed to record topic %d: %w", topic.ID, err)
		}
	}

	p.Version++
	p.UpdatedAt = now
	return nil
}

func (t *txn) ResolveTopics(ctx context.Context, ids []int64) ([]participant.Topic, error) {
	topics := []participant.Topic{}
	if len(ids) == 0 {
		return topics, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	rows, err := t.tx.QueryContext(ctx, "SELECT id, name FROM topics WHERE id IN ("+placeholders+") ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve topics: %w", err)
	}
	defer rows.Close()

	found := map[int64]bool{}
	for rows.Next() {
		var topic participant.Topic
		if err := rows.Scan(&topic.ID, &topic.Name); err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		found[topic.ID] = true
		topics = append(topics, topic)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if !found[id] {
			return nil, notFound("topic", id)
		}
	}
	return topics, nil
}

func (t *txn) FindCandidates(ctx context.Context, q CandidateQuery) ([]Candidate, error) {
	mode := ""
	if q.Mode == participant.ModeOnline || q.Mode == participant.ModeOffline {
		mode = string(q.Mode)
	}
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+prefixed("p.", participantColumns)+`,
			(SELECT COUNT(*) FROM meeting_participants mine
				JOIN meeting_participants theirs ON theirs.meeting_id = mine.meeting_id
				WHERE mine.participant_id = ? AND theirs.participant_id = p.id) AS prior_meetings
		FROM participants p
		WHERE p.id <> ?
			AND p.state = ?
			AND p.current_meeting_id IS NULL
			AND NOT EXISTS (
				SELECT 1 FROM meeting_participants mp
				JOIN meetings m ON m.id = mp.meeting_id
				WHERE mp.participant_id = p.id AND m.status = ?)
			AND (? = '' OR p.participation_mode = ?)
		ORDER BY prior_meetings ASC, p.id ASC`,
		q.RequesterID, q.RequesterID, string(participant.StateReady), string(meeting.StatusInProgress), mode, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var prior int
		p, err := scanParticipant(scanFunc(func(dest ...any) error {
			return rows.Scan(append(dest, &prior)...)
		}))
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, Candidate{Participant: p, PriorMeetings: prior})
	}
	return candidates, rows.Err()
}

type scanFunc func(dest ...any) error

func (f scanFunc) Scan(dest ...any) error { return f(dest...) }

func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = prefix + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

func (t *txn) HasInProgressMeeting(ctx context.Context, participantID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM meeting_participants mp
			JOIN meetings m ON m.id = mp.meeting_id
			WHERE mp.participant_id = ? AND m.status = ?)`,
		participantID, string(meeting.StatusInProgress)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check meetings of participant %d: %w", participantID, err)
	}
	return exists, nil
}

func (t *txn) CreateMeeting(ctx context.Context, m *meeting.Meeting) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO meetings (id, status, created_at, updated_at) VALUES (?, ?, ?, ?)",
		m.ID, string(m.Status), m.CreatedAt.UnixNano(), m.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to create meeting: %w", err)
	}
	for slot, member := range m.Members {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO meeting_participants (meeting_id, participant_id, slot, feedback_available)
			VALUES (?, ?, ?, ?)`, m.ID, member.ParticipantID, slot, member.FeedbackAvailable)
		if err != nil {
			return fmt.Errorf("failed to add participant %d to meeting: %w", member.ParticipantID, err)
		}
	}
	log.Info("Created meeting", "id", m.ID, "a", m.Members[0].ParticipantID, "b", m.Members[1].ParticipantID)
	return nil
}

func (t *txn) GetMeeting(ctx context.Context, id string) (*meeting.Meeting, error) {
	var (
		m                    meeting.Meeting
		status               string
		createdAt, updatedAt int64
	)
	err := t.tx.QueryRowContext(ctx,
		"SELECT id, status, created_at, updated_at FROM meetings WHERE id = ?", id).
		Scan(&m.ID, &status, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("meeting", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	m.Status = meeting.Status(status)
	m.CreatedAt = time.Unix(0, createdAt).UTC()
	m.UpdatedAt = time.Unix(0, updatedAt).UTC()

	rows, err := t.tx.QueryContext(ctx, `
		SELECT mp.participant_id, p.context_id, p.person_id, p.display_name, mp.feedback_available
		FROM meeting_participants mp
		JOIN participants p ON p.id = mp.participant_id
		WHERE mp.meeting_id = ?
		ORDER BY mp.slot`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load meeting members: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		if n == len(m.Members) {
			return nil, fmt.Errorf("meeting %s has more than %d members", id, len(m.Members))
		}
		member := &m.Members[n]
		if err := rows.Scan(&member.ParticipantID, &member.Key.ContextID, &member.Key.PersonID,
			&member.DisplayName, &member.FeedbackAvailable); err != nil {
			return nil, fmt.Errorf("failed to scan meeting member: %w", err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if n != len(m.Members) {
		return nil, fmt.Errorf("meeting %s has %d members", id, n)
	}
	return &m, nil
}

func (t *txn) LatestMeetingFor(ctx context.Context, participantID int64) (*meeting.Meeting, error) {
	var id string
	err := t.tx.QueryRowContext(ctx, `
		SELECT m.id FROM meetings m
		JOIN meeting_participants mp ON mp.meeting_id = m.id
		WHERE mp.participant_id = ?
		ORDER BY m.created_at DESC, m.rowid DESC
		LIMIT 1`, participantID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("meeting", fmt.Sprintf("for participant %d", participantID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest meeting: %w", err)
	}
	return t.GetMeeting(ctx, id)
}

func (t *txn) UpdateMeetingStatus(ctx context.Context, id string, from, to meeting.Status) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE meetings SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		string(to), t.now().UTC().UnixNano(), id, string(from))
	if err != nil {
		return fmt.Errorf("failed to update meeting %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update meeting %s: %w", id, err)
	}
	if n == 1 {
		return nil
	}
	var exists bool
	if err := t.tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM meetings WHERE id = ?)", id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check meeting %s: %w", id, err)
	}
	if !exists {
		return notFound("meeting", id)
	}
	return fmt.Errorf("failed to move meeting %s out of %s: %w", id, from, ErrConflict)
}

func (t *txn) SetFeedbackAvailable(ctx context.Context, meetingID string, participantID int64, available bool) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE meeting_participants SET feedback_available = ? WHERE meeting_id = ? AND participant_id = ?",
		available, meetingID, participantID)
	if err != nil {
		return fmt.Errorf("failed to set feedback flag: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to set feedback flag: %w", err)
	} else if n == 0 {
		return notFound("meeting member", fmt.Sprintf("%s/%d", meetingID, participantID))
	}
	return nil
}

func (t *txn) ClearFeedbackFlags(ctx context.Context, participantID int64) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE meeting_participants SET feedback_available = 0 WHERE participant_id = ?", participantID)
	if err != nil {
		return fmt.Errorf("failed to clear feedback flags: %w", err)
	}
	return nil
}

func (t *txn) InsertFeedback(ctx context.Context, f meeting.Feedback) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO feedback (id, meeting_id, participant_id, text, created_at) VALUES (?, ?, ?, ?, ?)",
		f.ID, f.MeetingID, f.ParticipantID, f.Text, f.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}
