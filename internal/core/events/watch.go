package events

import (
	"context"
	"sync"
)

// Subscription is a live query. Every change event for the watched user
// triggers a full re-read that is handed to the subscriber in order.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Unsubscribe stops delivery. It does not wait for an in-flight callback, so it
// is safe to call from inside one; use Done to wait.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// Done is closed once the delivery goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Watch delivers load's result immediately and again after every eventType
// event for userID, until ctx ends or Unsubscribe is called. Notifications that
// arrive while a load is running collapse into one re-read. A nil bus gets the
// initial delivery only.
func Watch[T any](
	ctx context.Context,
	bus *EventBus,
	eventType string,
	userID string,
	load func(ctx context.Context) (T, error),
	onChange func(T),
	onError func(error),
) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	notify := make(chan struct{}, 1)
	notify <- struct{}{}

	unsubscribe := func() {}
	if bus != nil {
		unsubscribe = bus.Subscribe(eventType, func(_ context.Context, event Event) error {
			if ce, ok := event.(*ChangeEvent); ok && ce.UserID != userID {
				return nil
			}
			select {
			case notify <- struct{}{}:
			default:
			}
			return nil
		})
	}

	go func() {
		defer close(sub.done)
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case <-notify:
				result, err := load(ctx)
				if ctx.Err() != nil {
					return
				}
				if err != nil {
					if onError != nil {
						onError(err)
					}
					continue
				}
				onChange(result)
			}
		}
	}()

	return sub
}
