package pubsub

import "cloud.google.com/go/pubsub"

type client struct {
	client   *pubsub.Client
	teardown func()
}

// EventType represents the type of event/message sent via pubsub.
// It doubles as the topic name.
type EventType string

const (
	EventMatchFound           EventType = "match-found"
	EventMeetingStatusChanged EventType = "meeting-status-changed"
	EventMessageRelayed       EventType = "message-relayed"
)

// PushMessage is the body Pub/Sub POSTs to push subscriptions.
type PushMessage struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}
