// Package events publishes enrollment workflow notifications over watermill.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sirupsen/logrus"
)

const (
	TopicEnrollmentRequested = "enrollment.requested"
	TopicPaymentSubmitted    = "payment.submitted"
	TopicEnrollmentGranted   = "enrollment.granted"
	TopicRequestRejected     = "enrollment.rejected"
	TopicSessionChanged      = "session.changed"
)

// Topics lists every topic the service publishes.
var Topics = []string{
	TopicEnrollmentRequested,
	TopicPaymentSubmitted,
	TopicEnrollmentGranted,
	TopicRequestRejected,
	TopicSessionChanged,
}

type Event struct {
	ID         string            `json:"id"`
	Topic      string            `json:"topic"`
	UserID     string            `json:"userId"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// Publisher is implemented by Bus and by test recorders.
type Publisher interface {
	Publish(ctx context.Context, topic string, userID string, attrs map[string]string) error
}

type Bus struct {
	pub message.Publisher
}

func NewBus(pub message.Publisher) *Bus {
	return &Bus{pub: pub}
}

func (b *Bus) Publish(ctx context.Context, topic string, userID string, attrs map[string]string) error {
	evt := Event{
		ID:         watermill.NewUUID(),
		Topic:      topic,
		UserID:     userID,
		Attributes: attrs,
		OccurredAt: time.Now().UTC(),
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(evt.ID, data)
	msg.SetContext(ctx)
	if err := b.pub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Decode reads the Event carried by msg.
func Decode(msg *message.Message) (Event, error) {
	var evt Event
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		return Event{}, fmt.Errorf("decode event %s: %w", msg.UUID, err)
	}
	return evt, nil
}

// Listen consumes topic until ctx is done, handing each decoded event to fn.
// Messages are acked after fn returns, including malformed ones, which are
// logged and dropped.
func Listen(ctx context.Context, sub message.Subscriber, topic string, log logrus.FieldLogger, fn func(Event)) error {
	msgs, err := sub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	go func() {
		for msg := range msgs {
			evt, err := Decode(msg)
			if err != nil {
				log.WithError(err).WithField("topic", topic).Error("dropping event")
				msg.Ack()
				continue
			}
			fn(evt)
			msg.Ack()
		}
	}()

	return nil
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, string, string, map[string]string) error { return nil }
