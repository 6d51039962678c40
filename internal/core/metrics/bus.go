package metrics

import (
	"context"

	"github.com/frahmantamala/household-ledger/internal/core/events"
)

// ObserveBus counts every domain event and the expenses created by templates.
// The returned function detaches the observers.
func (m *Metrics) ObserveBus(bus *events.EventBus) func() {
	topics := append([]string{events.EventTypeTemplateApplied, events.EventTypeOrphansCleaned}, events.ChangeTopics...)
	unsubscribes := make([]func(), 0, len(topics))
	for _, topic := range topics {
		unsubscribes = append(unsubscribes, bus.Subscribe(topic, func(ctx context.Context, e events.Event) error {
			m.EventPublished(e.EventType())
			if applied, ok := e.(*events.TemplateAppliedEvent); ok {
				m.TemplateCopied(applied.Copied)
			}
			return nil
		}))
	}
	return func() {
		for _, unsubscribe := range unsubscribes {
			unsubscribe()
		}
	}
}
