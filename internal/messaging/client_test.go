package messaging

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Client", func() {
	Describe("exponentialBackoff", func() {
		DescribeTable("doubles up to the cap",
			func(attempt int, expected time.Duration) {
				Expect(exponentialBackoff(attempt)).To(Equal(expected))
			},
			Entry("first retry", 0, time.Second),
			Entry("second retry", 1, 2*time.Second),
			Entry("fifth retry", 4, 16*time.Second),
			Entry("capped", 5, 30*time.Second),
			Entry("far out", 40, 30*time.Second),
		)
	})

	Describe("circuit breaker", func() {
		var client *Client

		BeforeEach(func() {
			client = &Client{url: "amqp://localhost", exchangeName: "changes"}
		})

		It("starts closed", func() {
			Expect(client.isCircuitOpen()).To(BeFalse())
		})

		It("opens after repeated failures", func() {
			for i := 0; i < maxFailures; i++ {
				client.recordFailure()
			}
			Expect(client.isCircuitOpen()).To(BeTrue())
			Expect(client.Healthy()).To(MatchError(ContainSubstring("circuit breaker")))
		})

		It("half-opens once the timeout passes", func() {
			atomic.StoreInt32(&client.state, StateOpen)
			client.lastFailure = time.Now().Add(-2 * openTimeout)

			Expect(client.isCircuitOpen()).To(BeFalse())
			Expect(atomic.LoadInt32(&client.state)).To(Equal(StateHalfOpen))
		})

		It("reopens on a failure while half-open", func() {
			atomic.StoreInt32(&client.state, StateHalfOpen)
			client.recordFailure()
			Expect(atomic.LoadInt32(&client.state)).To(Equal(StateOpen))
		})

		It("closes and resets on success", func() {
			atomic.StoreInt64(&client.failureCount, 3)
			client.recordSuccess()
			Expect(atomic.LoadInt64(&client.failureCount)).To(BeZero())
			Expect(atomic.LoadInt32(&client.state)).To(Equal(StateClosed))
		})

		It("skips publishing while open", func() {
			atomic.StoreInt32(&client.state, StateOpen)
			client.lastFailure = time.Now()

			err := client.Publish(context.Background(), &ChangeMessage{ID: "m1", Type: "expenses.changed", UserID: "u"})
			Expect(err).To(MatchError(ContainSubstring("circuit breaker is open")))
		})
	})

	It("reports a client without a connection as unhealthy", func() {
		client := &Client{}
		Expect(client.Healthy()).To(MatchError(ContainSubstring("closed")))
	})

	DescribeTable("isConnectionError",
		func(err error, expected bool) {
			Expect(isConnectionError(err)).To(Equal(expected))
		},
		Entry("nil", nil, false),
		Entry("eof", errors.New("unexpected EOF"), true),
		Entry("closed channel", errors.New("Exception (504) Reason: \"channel/connection is not open\""), true),
		Entry("other", errors.New("declare queue: access refused"), false),
	)
})
