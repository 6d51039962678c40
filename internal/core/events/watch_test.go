package events_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/frahmantamala/household-ledger/internal/core/events"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Watch", func() {
	var (
		bus   *events.EventBus
		loads atomic.Int32
		mu    sync.Mutex
		got   []int32
	)

	record := func(v int32) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, v)
	}
	delivered := func() []int32 {
		mu.Lock()
		defer mu.Unlock()
		return append([]int32(nil), got...)
	}
	load := func(ctx context.Context) (int32, error) {
		return loads.Add(1), nil
	}

	BeforeEach(func() {
		bus = events.NewEventBus(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))
		loads.Store(0)
		got = nil
	})

	It("delivers the current result set immediately", func() {
		sub := events.Watch(context.Background(), bus, events.EventTypeExpensesChanged, "u1", load, record, nil)
		defer sub.Unsubscribe()

		Eventually(delivered).Should(Equal([]int32{1}))
	})

	It("delivers once when there is no bus", func() {
		sub := events.Watch(context.Background(), nil, events.EventTypeExpensesChanged, "u1", load, record, nil)

		Eventually(delivered).Should(Equal([]int32{1}))
		sub.Unsubscribe()
		Eventually(sub.Done()).Should(BeClosed())
	})

	It("redelivers on a change for the same user only", func() {
		sub := events.Watch(context.Background(), bus, events.EventTypeExpensesChanged, "u1", load, record, nil)
		defer sub.Unsubscribe()
		Eventually(delivered).Should(HaveLen(1))

		Expect(bus.Publish(context.Background(), events.NewChangeEvent(events.EventTypeExpensesChanged, "someone-else"))).To(Succeed())
		Consistently(delivered).Should(HaveLen(1))

		Expect(bus.Publish(context.Background(), events.NewChangeEvent(events.EventTypeExpensesChanged, "u1"))).To(Succeed())
		Eventually(delivered).Should(Equal([]int32{1, 2}))
	})

	It("stops and releases its bus handler after Unsubscribe", func() {
		sub := events.Watch(context.Background(), bus, events.EventTypeExpensesChanged, "u1", load, record, nil)
		Eventually(delivered).Should(HaveLen(1))

		sub.Unsubscribe()
		Eventually(sub.Done()).Should(BeClosed())
		Expect(bus.HandlerCount(events.EventTypeExpensesChanged)).To(Equal(0))

		Expect(bus.Publish(context.Background(), events.NewChangeEvent(events.EventTypeExpensesChanged, "u1"))).To(Succeed())
		Consistently(delivered).Should(HaveLen(1))
	})

	It("stops when the parent context ends", func() {
		ctx, cancel := context.WithCancel(context.Background())
		sub := events.Watch(ctx, bus, events.EventTypeExpensesChanged, "u1", load, record, nil)
		cancel()
		Eventually(sub.Done()).Should(BeClosed())
	})

	It("reports load failures and keeps watching", func() {
		var failures atomic.Int32
		failing := func(ctx context.Context) (int32, error) {
			if loads.Add(1) == 1 {
				return 0, errors.New("store down")
			}
			return 7, nil
		}

		sub := events.Watch(context.Background(), bus, events.EventTypeExpensesChanged, "u1", failing, record,
			func(err error) { failures.Add(1) })
		defer sub.Unsubscribe()

		Eventually(failures.Load).Should(Equal(int32(1)))
		Expect(bus.Publish(context.Background(), events.NewChangeEvent(events.EventTypeExpensesChanged, "u1"))).To(Succeed())
		Eventually(delivered).Should(Equal([]int32{7}))
	})
})
