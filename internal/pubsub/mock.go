package pubsub

import (
	"context"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// MockPubSubClient stands in for Pub/Sub in tests. SendMessage encodes the payload
// the same way the real client does, so recorded payloads can be fed back into
// push handlers. It is safe for concurrent use.
type MockPubSubClient struct {
	mu sync.Mutex

	SendMessageFunc    func(topic EventType, data any) error
	ProcessMessageFunc func(data []byte, returnValue any) error

	SendMessageCalls    []SendMessageCall
	ProcessMessageCalls [][]byte
}

var _ PubSubClient = (*MockPubSubClient)(nil)

// SendMessageCall is one published message.
type SendMessageCall struct {
	Topic   EventType
	Data    any
	Payload []byte
}

func NewMock() *MockPubSubClient {
	return &MockPubSubClient{}
}

func (m *MockPubSubClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendMessageCalls = nil
	m.ProcessMessageCalls = nil
}

func (m *MockPubSubClient) SendMessage(ctx context.Context, topic EventType, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendMessageFunc != nil {
		if err := m.SendMessageFunc(topic, data); err != nil {
			return err
		}
	}
	payload, err := msgpack.Marshal(data)
	if err != nil {
		return err
	}
	m.SendMessageCalls = append(m.SendMessageCalls, SendMessageCall{Topic: topic, Data: data, Payload: payload})
	return nil
}

// Payloads returns the encoded messages published to topic, oldest first.
func (m *MockPubSubClient) Payloads(topic EventType) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out [][]byte
	for _, c := range m.SendMessageCalls {
		if c.Topic == topic {
			out = append(out, c.Payload)
		}
	}
	return out
}

func (m *MockPubSubClient) ProcessMessage(data []byte, returnValue any) error {
	m.mu.Lock()
	m.ProcessMessageCalls = append(m.ProcessMessageCalls, data)
	fn := m.ProcessMessageFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(data, returnValue)
	}
	return Decode(data, returnValue)
}
