package bus

import (
	"context"
	"encoding/json"
	"log"
)

// Envelope is what a subscribed handler receives: the topic the message
// arrived on and its raw JSON payload. There is no delivery id.
type Envelope struct {
	Topic   string
	Payload json.RawMessage
}

// Handler processes one message. A returned error is handed to the bus's
// FailurePolicy; the message is not redelivered.
type Handler func(ctx context.Context, env Envelope) error

// Bus is a topic-based publish/subscribe channel with at-least-once delivery
// and consumer-group semantics: each group receives each message once, with
// no ordering guarantee across partitions.
type Bus interface {
	// Publish is fire-and-forget: it returns once the broker has accepted
	// the message, with no confirmation from downstream consumers.
	Publish(ctx context.Context, topic string, payload any) error
	// Subscribe registers a handler invoked once per message for the given
	// consumer group.
	Subscribe(topic, group string, h Handler) error
}

// FailurePolicy decides what happens to a message whose handler returned an
// error. The default policy logs and drops; there is no retry and no
// dead-letter queue, which is why it is an explicit interface rather than an
// implicit behavior.
type FailurePolicy interface {
	HandleFailure(topic, group string, env Envelope, err error)
}

// LogAndDrop logs the failure and discards the message.
type LogAndDrop struct{}

func (LogAndDrop) HandleFailure(topic, group string, _ Envelope, err error) {
	log.Printf("dropping message on topic %s (group %s): handler failed: %v", topic, group, err)
}
