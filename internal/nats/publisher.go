package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
)

// publishAttempts bounds how often one event is sent. Every attempt carries
// the same Nats-Msg-Id, so a resend after a lost ack is dropped by the
// stream's duplicate window.
const publishAttempts = 2

// Publisher provides typed methods for publishing events to NATS JetStream.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a new Publisher.
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishChatEvent publishes a chat outcome, assigning an ID if it has none.
func (p *Publisher) PublishChatEvent(ctx context.Context, event ChatEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return p.publish(ctx, event.Subject(), event.ID.String(), event)
}

func (p *Publisher) publish(ctx context.Context, subject, msgID string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	for attempt := 1; ; attempt++ {
		_, err = p.js.Publish(ctx, subject, payload, jetstream.WithMsgID(msgID))
		if err == nil {
			return nil
		}
		if attempt == publishAttempts || ctx.Err() != nil {
			return fmt.Errorf("publishing to %s: %w", subject, err)
		}
	}
}
