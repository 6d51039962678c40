package expense_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/household-ledger/internal"
	"github.com/frahmantamala/household-ledger/internal/core/events"
	"github.com/frahmantamala/household-ledger/internal/expense"
)

var _ = Describe("ApplyTemplate", func() {
	var (
		repo    *mockExpenseRepository
		service *expense.Service
		ctx     context.Context
		created time.Time
	)

	seed := func(e *expense.Expense) {
		e.UserID = "user-1"
		if e.Month == 0 {
			e.Month, e.Year = 12, 2024
		}
		if e.Currency == "" {
			e.Currency = expense.CurrencyARS
		}
		created = created.Add(time.Minute)
		e.CreatedAt = created
		repo.put(e)
	}

	byName := func(list []*expense.Expense) map[string]*expense.Expense {
		out := make(map[string]*expense.Expense, len(list))
		for _, e := range list {
			out[e.Name] = e
		}
		return out
	}

	BeforeEach(func() {
		repo = newMockExpenseRepository()
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		service = expense.NewService(repo, events.NewEventBus(lg), lg)
		ctx = internal.ContextWithUserID(context.Background(), "user-1")
		created = time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	})

	Context("December 2024 into January 2025", func() {
		BeforeEach(func() {
			seed(&expense.Expense{ID: "C", Name: "tarjeta TC", Status: expense.StatusPagado, Importe: decimal.NewFromInt(500),
				Vto: "10/12", CardTotalARS: ptr(decimal.NewFromInt(480)), CardUSDRate: ptr(decimal.NewFromInt(1000)), Category: "cat-1", Order: 3})
			seed(&expense.Expense{ID: "A", Name: "Supermercado", Status: expense.StatusPagado, Importe: decimal.NewFromInt(100),
				Vto: "05/12", FechaPago: "04/12", LinkedToCardID: ptr("C"), Category: "cat-1", Order: 1, Comment: ptr("ok")})
			seed(&expense.Expense{ID: "B", Name: "Seguro", Status: expense.StatusBonificado, Importe: decimal.Zero,
				Vto: "Bonificado", Category: "cat-2", Order: 2, Icon: ptr("Shield"), IconColor: ptr("#10b981")})
		})

		It("copies, resets and relinks to the new card", func() {
			result, err := service.ApplyTemplate(ctx, expense.TemplateRequest{
				SourceMonth: 12, SourceYear: 2024, TargetMonth: 1, TargetYear: 2025,
				KeepCardLinks: true, KeepRecurring: true, KeepPagoAnual: false, KeepBonificado: true,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(expense.TemplateResult{Copied: 3, Relinked: 1, Unlinked: 0}))

			target, err := repo.ListByMonth(ctx, "user-1", 1, 2025)
			Expect(err).NotTo(HaveOccurred())
			Expect(target).To(HaveLen(3))
			copies := byName(target)

			a, b, c := copies["Supermercado"], copies["Seguro"], copies["tarjeta TC"]
			Expect(a.Importe.IsZero()).To(BeTrue())
			Expect(a.Status).To(Equal(expense.StatusPendiente))
			Expect(a.Vto).To(BeEmpty())
			Expect(a.FechaPago).To(BeEmpty())
			Expect(a.Comment).To(BeNil())
			Expect(a.LinkedToCardID).NotTo(BeNil())
			Expect(*a.LinkedToCardID).To(Equal(c.ID))
			Expect(*a.LinkedToCardID).NotTo(Equal("C"))

			Expect(b.Status).To(Equal(expense.StatusBonificado))
			Expect(b.Vto).To(Equal("Bonificado"))
			Expect(b.Importe.IsZero()).To(BeTrue())
			Expect(*b.Icon).To(Equal("Shield"))
			Expect(*b.IconColor).To(Equal("#10b981"))

			Expect(c.Importe.IsZero()).To(BeTrue())
			Expect(c.Status).To(Equal(expense.StatusPendiente))
			Expect(c.CardTotalARS.Equal(decimal.NewFromInt(480))).To(BeTrue())
			Expect(c.CardUSDRate.Equal(decimal.NewFromInt(1000))).To(BeTrue())
			Expect(c.CardTotalUSD).To(BeNil())
			Expect(c.Order).To(Equal(3))
			Expect(c.Category).To(Equal("cat-1"))
		})

		It("leaves the source bucket untouched and commits once", func() {
			_, err := service.ApplyTemplate(ctx, expense.TemplateRequest{SourceMonth: 12, SourceYear: 2024, TargetMonth: 1, TargetYear: 2025})
			Expect(err).NotTo(HaveOccurred())

			source, err := repo.ListByMonth(ctx, "user-1", 12, 2024)
			Expect(err).NotTo(HaveOccurred())
			Expect(source).To(HaveLen(3))
			Expect(byName(source)["Supermercado"].Importe.Equal(decimal.NewFromInt(100))).To(BeTrue())
			Expect(repo.commits).To(Equal(1))
		})

		It("drops card totals when card links are not kept", func() {
			_, err := service.ApplyTemplate(ctx, expense.TemplateRequest{SourceMonth: 12, SourceYear: 2024, TargetMonth: 1, TargetYear: 2025})
			Expect(err).NotTo(HaveOccurred())

			target, _ := repo.ListByMonth(ctx, "user-1", 1, 2025)
			Expect(byName(target)["tarjeta TC"].CardTotalARS).To(BeNil())
		})

		It("resets retained statuses when the master toggle is off", func() {
			_, err := service.ApplyTemplate(ctx, expense.TemplateRequest{
				SourceMonth: 12, SourceYear: 2024, TargetMonth: 1, TargetYear: 2025,
				KeepRecurring: false, KeepBonificado: true,
			})
			Expect(err).NotTo(HaveOccurred())

			target, _ := repo.ListByMonth(ctx, "user-1", 1, 2025)
			Expect(byName(target)["Seguro"].Status).To(Equal(expense.StatusPendiente))
		})

		It("keeps the source display order", func() {
			_, err := service.ApplyTemplate(ctx, expense.TemplateRequest{SourceMonth: 12, SourceYear: 2024, TargetMonth: 1, TargetYear: 2025})
			Expect(err).NotTo(HaveOccurred())

			target, _ := repo.ListByMonth(ctx, "user-1", 1, 2025)
			names := []string{target[0].Name, target[1].Name, target[2].Name}
			Expect(names).To(Equal([]string{"Seguro", "Supermercado", "tarjeta TC"}))
		})

		It("duplicates on a second run", func() {
			req := expense.TemplateRequest{SourceMonth: 12, SourceYear: 2024, TargetMonth: 1, TargetYear: 2025}
			_, err := service.ApplyTemplate(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.ApplyTemplate(ctx, req)
			Expect(err).NotTo(HaveOccurred())

			target, _ := repo.ListByMonth(ctx, "user-1", 1, 2025)
			Expect(target).To(HaveLen(6))
		})

		It("writes nothing when the commit fails", func() {
			repo.commitErr = errors.New("store unavailable")

			_, err := service.ApplyTemplate(ctx, expense.TemplateRequest{SourceMonth: 12, SourceYear: 2024, TargetMonth: 1, TargetYear: 2025})
			Expect(err).To(MatchError("store unavailable"))
			Expect(repo.count()).To(Equal(3))
		})
	})

	It("keeps pago anual rows when that sub-toggle is on", func() {
		seed(&expense.Expense{ID: "P", Name: "Patente", Status: expense.StatusPagoAnual, Importe: decimal.NewFromInt(9000), Vto: "15/03", FechaPago: "01/03"})

		_, err := service.ApplyTemplate(ctx, expense.TemplateRequest{
			SourceMonth: 12, SourceYear: 2024, TargetMonth: 1, TargetYear: 2025,
			KeepRecurring: true, KeepPagoAnual: true,
		})
		Expect(err).NotTo(HaveOccurred())

		target, _ := repo.ListByMonth(ctx, "user-1", 1, 2025)
		Expect(target).To(HaveLen(1))
		Expect(target[0].Status).To(Equal(expense.StatusPagoAnual))
		Expect(target[0].Importe.Equal(decimal.NewFromInt(9000))).To(BeTrue())
		Expect(target[0].Vto).To(Equal("15/03"))
		Expect(target[0].FechaPago).To(Equal("01/03"))
	})

	It("leaves copies unlinked when their card lives in another month", func() {
		seed(&expense.Expense{ID: "NOVTC", Name: "Visa TC", Month: 11, Year: 2024})
		seed(&expense.Expense{ID: "X", Name: "Farmacia", LinkedToCardID: ptr("NOVTC")})

		result, err := service.ApplyTemplate(ctx, expense.TemplateRequest{
			SourceMonth: 12, SourceYear: 2024, TargetMonth: 1, TargetYear: 2025, KeepCardLinks: true,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result).To(Equal(expense.TemplateResult{Copied: 1, Relinked: 0, Unlinked: 1}))

		target, _ := repo.ListByMonth(ctx, "user-1", 1, 2025)
		Expect(target[0].LinkedToCardID).To(BeNil())
	})

	It("does nothing for an empty source month", func() {
		result, err := service.ApplyTemplate(ctx, expense.TemplateRequest{SourceMonth: 6, SourceYear: 2024, TargetMonth: 7, TargetYear: 2024})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Copied).To(Equal(0))
		Expect(repo.commits).To(Equal(0))
	})

	It("rejects copying a month onto itself", func() {
		_, err := service.ApplyTemplate(ctx, expense.TemplateRequest{SourceMonth: 6, SourceYear: 2024, TargetMonth: 6, TargetYear: 2024})
		Expect(errors.Is(err, expense.ErrSameBucket)).To(BeTrue())
	})

	It("propagates read failures", func() {
		repo.listError = errors.New("read failed")
		_, err := service.ApplyTemplate(ctx, expense.TemplateRequest{SourceMonth: 6, SourceYear: 2024, TargetMonth: 7, TargetYear: 2024})
		Expect(err).To(MatchError("read failed"))
	})
})
