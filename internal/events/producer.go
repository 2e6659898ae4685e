package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event types published to the location topic. Consumers fan these out to
// mobile push channels.
const (
	TypeLocationRequest      = "location_request"
	TypeLocationNotification = "location_notification"
)

type Event struct {
	Type              string    `json:"type"`
	SenderUsername    string    `json:"sender_username"`
	RecipientUsername string    `json:"recipient_username,omitempty"`
	RecipientEmail    string    `json:"recipient_email,omitempty"`
	SessionKey        string    `json:"session,omitempty"`
	CreatedDate       time.Time `json:"created_date"`
}

// Publisher is what the orchestration engine needs from the event bus.
type Publisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// Producer publishes events to a single kafka topic.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(address, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(address),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
			WriteTimeout:           5 * time.Second,
		},
	}
}

func (p *Producer) Publish(ctx context.Context, key string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
