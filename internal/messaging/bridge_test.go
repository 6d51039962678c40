package messaging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/household-ledger/internal/core/events"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*ChangeMessage
}

func (p *recordingPublisher) Publish(ctx context.Context, msg *ChangeMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPublisher) sent() []*ChangeMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*ChangeMessage(nil), p.msgs...)
}

var _ = Describe("Bridge", func() {
	var (
		bus       *events.EventBus
		publisher *recordingPublisher
		bridge    *Bridge
		stop      func()
	)

	BeforeEach(func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		bus = events.NewEventBus(lg)
		publisher = &recordingPublisher{}
		bridge = NewBridge(publisher, bus, "instance-a", lg)
		stop = bridge.Start()
	})

	AfterEach(func() {
		stop()
	})

	It("forwards local changes with its origin", func() {
		Expect(bus.Publish(context.Background(), events.NewChangeEvent(events.EventTypeExpensesChanged, "user-1"))).To(Succeed())

		Eventually(publisher.sent).Should(HaveLen(1))
		msg := publisher.sent()[0]
		Expect(msg.Type).To(Equal(events.EventTypeExpensesChanged))
		Expect(msg.UserID).To(Equal("user-1"))
		Expect(msg.Origin).To(Equal("instance-a"))
	})

	It("replays remote changes without echoing them back", func() {
		received := make(chan *events.ChangeEvent, 1)
		bus.Subscribe(events.EventTypeCategoriesChanged, func(ctx context.Context, e events.Event) error {
			if change, ok := e.(*events.ChangeEvent); ok {
				received <- change
			}
			return nil
		})

		err := bridge.Receive(context.Background(), &ChangeMessage{
			ID: "m1", Type: events.EventTypeCategoriesChanged, UserID: "user-1", Origin: "instance-b", Timestamp: time.Now(),
		})
		Expect(err).NotTo(HaveOccurred())

		var change *events.ChangeEvent
		Eventually(received).Should(Receive(&change))
		Expect(change.Remote).To(BeTrue())
		Expect(change.UserID).To(Equal("user-1"))
		Consistently(publisher.sent, 100*time.Millisecond).Should(BeEmpty())
	})

	It("drops its own messages", func() {
		err := bridge.Receive(context.Background(), &ChangeMessage{
			ID: "m1", Type: events.EventTypeExpensesChanged, UserID: "user-1", Origin: "instance-a",
		})
		Expect(err).NotTo(HaveOccurred())
		Consistently(publisher.sent, 100*time.Millisecond).Should(BeEmpty())
	})

	It("rejects incomplete messages", func() {
		err := bridge.Receive(context.Background(), &ChangeMessage{ID: "m1", Origin: "instance-b"})
		Expect(err).To(HaveOccurred())
	})

	It("stops forwarding once stopped", func() {
		stop()
		Expect(bus.HandlerCount(events.EventTypeExpensesChanged)).To(BeZero())
	})
})

var _ = Describe("Client helpers", func() {
	It("backs off exponentially up to a cap", func() {
		Expect(exponentialBackoff(0)).To(Equal(time.Second))
		Expect(exponentialBackoff(2)).To(Equal(4 * time.Second))
		Expect(exponentialBackoff(5)).To(Equal(30 * time.Second))
		Expect(exponentialBackoff(12)).To(Equal(30 * time.Second))
	})

	It("recognizes connection failures", func() {
		Expect(isConnectionError(nil)).To(BeFalse())
		Expect(isConnectionError(errors.New("connection refused"))).To(BeTrue())
		Expect(isConnectionError(errors.New("unexpected EOF"))).To(BeTrue())
		Expect(isConnectionError(errors.New("invalid input"))).To(BeFalse())
	})

	It("opens the circuit after repeated failures", func() {
		client := &Client{url: "amqp://localhost", exchangeName: "ledger.changes"}
		Expect(client.isCircuitOpen()).To(BeFalse())

		for i := 0; i < maxFailures; i++ {
			client.recordFailure()
		}
		Expect(client.isCircuitOpen()).To(BeTrue())

		err := client.Publish(context.Background(), &ChangeMessage{Type: "expenses.changed"})
		Expect(err).To(MatchError(ContainSubstring("circuit breaker is open")))

		client.recordSuccess()
		Expect(client.isCircuitOpen()).To(BeFalse())
	})

	It("half-opens after the timeout", func() {
		client := &Client{}
		client.state = StateOpen
		client.lastFailure = time.Now().Add(-openTimeout - time.Second)
		Expect(client.isCircuitOpen()).To(BeFalse())
		Expect(client.state).To(Equal(StateHalfOpen))
	})
})
