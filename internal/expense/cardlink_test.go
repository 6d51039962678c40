package expense_test

import (
	"context"
	"errors"
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/household-ledger/internal"
	"github.com/frahmantamala/household-ledger/internal/core/events"
	"github.com/frahmantamala/household-ledger/internal/expense"
)

var _ = Describe("Card links", func() {
	var (
		repo    *mockExpenseRepository
		service *expense.Service
		ctx     context.Context
	)

	BeforeEach(func() {
		repo = newMockExpenseRepository()
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		service = expense.NewService(repo, events.NewEventBus(lg), lg)
		ctx = internal.ContextWithUserID(context.Background(), "user-1")

		repo.put(&expense.Expense{ID: "card", UserID: "user-1", Name: "Visa tc", Month: 1, Year: 2025,
			CardTotalARS: ptr(decimal.NewFromInt(1000)), CardTotalUSD: ptr(decimal.NewFromInt(20)), CardUSDRate: ptr(decimal.NewFromInt(1100))})
		repo.put(&expense.Expense{ID: "a", UserID: "user-1", Name: "Super", Currency: "ARS", Importe: decimal.NewFromInt(700), Month: 1, Year: 2025})
		repo.put(&expense.Expense{ID: "b", UserID: "user-1", Name: "Netflix", Currency: "USD", Importe: decimal.NewFromInt(20), Month: 1, Year: 2025})
		repo.put(&expense.Expense{ID: "luz", UserID: "user-1", Name: "Luz", Month: 1, Year: 2025})
		repo.put(&expense.Expense{ID: "foreign", UserID: "user-2", Name: "Ajeno", Month: 1, Year: 2025})
	})

	It("detects cards by name regardless of case", func() {
		Expect((&expense.Expense{Name: "Visa tc"}).IsCreditCard()).To(BeTrue())
		Expect((&expense.Expense{Name: "MASTER TC"}).IsCreditCard()).To(BeTrue())
		Expect((&expense.Expense{Name: "Luz"}).IsCreditCard()).To(BeFalse())
	})

	It("links and unlinks in batches", func() {
		Expect(service.LinkToCard(ctx, "card", []string{"a", "b"})).To(Succeed())
		Expect(*repo.stored("a").LinkedToCardID).To(Equal("card"))
		Expect(*repo.stored("b").LinkedToCardID).To(Equal("card"))

		Expect(service.UnlinkFromCard(ctx, []string{"a"})).To(Succeed())
		Expect(repo.stored("a").LinkedToCardID).To(BeNil())
		Expect(repo.stored("b").LinkedToCardID).NotTo(BeNil())
		Expect(repo.commits).To(Equal(2))
	})

	It("never links a card to itself", func() {
		err := service.LinkToCard(ctx, "card", []string{"a", "card"})
		Expect(errors.Is(err, expense.ErrSelfLink)).To(BeTrue())
		Expect(repo.stored("a").LinkedToCardID).To(BeNil())
	})

	It("only links to card expenses", func() {
		err := service.LinkToCard(ctx, "luz", []string{"a"})
		Expect(errors.Is(err, expense.ErrNotACard)).To(BeTrue())
	})

	It("does not link another user's expense", func() {
		err := service.LinkToCard(ctx, "card", []string{"foreign"})
		Expect(errors.Is(err, expense.ErrExpenseNotFound)).To(BeTrue())
	})

	It("reconciles stated totals against linked children", func() {
		Expect(service.LinkToCard(ctx, "card", []string{"a", "b"})).To(Succeed())

		rec, err := service.Reconcile(ctx, "card")
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Linked).To(HaveLen(2))
		Expect(rec.LinkedARS.Equal(decimal.NewFromInt(700))).To(BeTrue())
		Expect(rec.LinkedUSD.Equal(decimal.NewFromInt(20))).To(BeTrue())
		Expect(rec.DifferenceARS.Equal(decimal.NewFromInt(300))).To(BeTrue())
		Expect(rec.DifferenceUSD.IsZero()).To(BeTrue())
		Expect(rec.Balanced()).To(BeFalse())
		Expect(rec.TotalInARS.Equal(decimal.NewFromInt(23000))).To(BeTrue())
	})
})
