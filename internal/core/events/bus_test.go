package events_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/frahmantamala/household-ledger/internal/core/events"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("EventBus", func() {
	var bus *events.EventBus

	BeforeEach(func() {
		bus = events.NewEventBus(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))
	})

	It("delivers published events to subscribers", func() {
		var calls atomic.Int32
		bus.Subscribe(events.EventTypeExpensesChanged, func(ctx context.Context, event events.Event) error {
			calls.Add(1)
			return nil
		})

		Expect(bus.Publish(context.Background(), events.NewChangeEvent(events.EventTypeExpensesChanged, "u1"))).To(Succeed())
		Eventually(calls.Load).Should(Equal(int32(1)))
	})

	It("waits for handlers started by Publish", func() {
		release := make(chan struct{})
		var calls atomic.Int32
		bus.Subscribe(events.EventTypeExpensesChanged, func(ctx context.Context, event events.Event) error {
			<-release
			calls.Add(1)
			return nil
		})
		Expect(bus.Publish(context.Background(), events.NewChangeEvent(events.EventTypeExpensesChanged, "u1"))).To(Succeed())

		short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		Expect(bus.Wait(short)).To(MatchError(context.DeadlineExceeded))

		close(release)
		Expect(bus.Wait(context.Background())).To(Succeed())
		Expect(calls.Load()).To(Equal(int32(1)))
	})

	It("stops delivering after unsubscribe", func() {
		var calls atomic.Int32
		unsubscribe := bus.Subscribe(events.EventTypeExpensesChanged, func(ctx context.Context, event events.Event) error {
			calls.Add(1)
			return nil
		})
		unsubscribe()
		unsubscribe()

		Expect(bus.HandlerCount(events.EventTypeExpensesChanged)).To(Equal(0))
		Expect(bus.PublishSync(context.Background(), events.NewChangeEvent(events.EventTypeExpensesChanged, "u1"))).To(Succeed())
		Consistently(calls.Load).Should(Equal(int32(0)))
	})

	It("keeps other handlers when one unsubscribes", func() {
		first := bus.Subscribe(events.EventTypeCategoriesChanged, func(ctx context.Context, event events.Event) error { return nil })
		bus.Subscribe(events.EventTypeCategoriesChanged, func(ctx context.Context, event events.Event) error { return nil })

		first()
		Expect(bus.HandlerCount(events.EventTypeCategoriesChanged)).To(Equal(1))
	})

	It("returns handler errors from PublishSync", func() {
		bus.Subscribe(events.EventTypeSettingsChanged, func(ctx context.Context, event events.Event) error {
			return errors.New("boom")
		})

		err := bus.PublishSync(context.Background(), events.NewChangeEvent(events.EventTypeSettingsChanged, "u1"))
		Expect(err).To(MatchError(ContainSubstring("boom")))
	})
})
