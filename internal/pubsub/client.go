package pubsub

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// New connects to Pub/Sub in projectID. The returned teardown closes the client.
func New(ctx context.Context, projectID string) (PubSubClient, func(), error) {
	pubSubC, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	teardown := func() {
		if err := pubSubC.Close(); err != nil {
			log.Error("Failed to close pubsub client", "error", err)
		}
	}

	c := &client{
		client:   pubSubC,
		teardown: teardown,
	}
	return c, teardown, nil
}

func (c *client) SendMessage(ctx context.Context, topic EventType, data any) error {
	msgpackData, err := msgpack.Marshal(data)
	if err != nil {
		log.Error("MessagePack marshal error", "error", err)
		return err
	}
	message := &pubsub.Message{
		Data: msgpackData,
	}
	result := c.client.Topic(string(topic)).Publish(ctx, message)
	serverID, err := result.Get(ctx)
	if err != nil {
		log.Error("Failed to publish message", "error", err, "topic", topic)
		return err
	}
	log.Info("SendMessage", "serverID", serverID, "topic", topic)
	return nil
}

func (c *client) ProcessMessage(data []byte, returnValue any) error {
	return Decode(data, returnValue)
}

// Decode unmarshals a MessagePack payload into the provided pointer.
func Decode(data []byte, returnValue any) error {
	if err := msgpack.Unmarshal(data, returnValue); err != nil {
		log.Error("MessagePack unmarshal error", "error", err)
		return err
	}
	return nil
}
