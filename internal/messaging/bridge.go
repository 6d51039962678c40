package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/household-ledger/internal/core/events"
)

type Publisher interface {
	Publish(ctx context.Context, msg *ChangeMessage) error
}

// Bridge forwards local change events to the broker and replays change
// messages from other instances onto the local bus, so live subscriptions
// see writes made through any instance.
type Bridge struct {
	publisher Publisher
	bus       *events.EventBus
	origin    string
	logger    *slog.Logger
}

func NewBridge(publisher Publisher, bus *events.EventBus, origin string, logger *slog.Logger) *Bridge {
	return &Bridge{
		publisher: publisher,
		bus:       bus,
		origin:    origin,
		logger:    logger,
	}
}

// Start subscribes to every change topic and returns a function that detaches.
func (b *Bridge) Start() (stop func()) {
	unsubscribes := make([]func(), 0, len(events.ChangeTopics))
	for _, topic := range events.ChangeTopics {
		unsubscribes = append(unsubscribes, b.bus.Subscribe(topic, b.forward))
	}
	return func() {
		for _, unsubscribe := range unsubscribes {
			unsubscribe()
		}
	}
}

func (b *Bridge) forward(ctx context.Context, event events.Event) error {
	change, ok := event.(*events.ChangeEvent)
	if !ok || change.Remote {
		return nil
	}
	msg := &ChangeMessage{
		ID:        change.EventID(),
		Type:      change.EventType(),
		UserID:    change.UserID,
		Origin:    b.origin,
		Timestamp: change.OccurredAt(),
	}
	if err := b.publisher.Publish(ctx, msg); err != nil {
		return fmt.Errorf("forward %s: %w", msg.Type, err)
	}
	return nil
}

// Receive replays a broker message locally. Messages this instance sent are dropped.
func (b *Bridge) Receive(ctx context.Context, msg *ChangeMessage) error {
	if msg.Origin == b.origin {
		return nil
	}
	if msg.UserID == "" || msg.Type == "" {
		return fmt.Errorf("change message %s is missing type or user", msg.ID)
	}

	event := events.NewChangeEvent(msg.Type, msg.UserID)
	if msg.ID != "" {
		event.ID = msg.ID
	}
	if !msg.Timestamp.IsZero() {
		event.Timestamp = msg.Timestamp
	}
	event.Origin = msg.Origin
	event.Remote = true

	b.logger.Debug("replaying remote change", "type", msg.Type, "user_id", msg.UserID, "origin", msg.Origin)
	return b.bus.Publish(ctx, event)
}

// Run consumes from the broker until ctx ends.
func (b *Bridge) Run(ctx context.Context, client *Client) error {
	return client.Consume(ctx, func(msg *ChangeMessage) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return b.Receive(ctx, msg)
	})
}
