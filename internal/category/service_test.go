package category_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/household-ledger/internal"
	"github.com/frahmantamala/household-ledger/internal/category"
	"github.com/frahmantamala/household-ledger/internal/core/events"
	"github.com/frahmantamala/household-ledger/internal/expense"
)

var _ = Describe("Service", func() {
	var (
		repo     *mockCategoryRepository
		expenses *mockExpenseStore
		service  *category.Service
		ctx      context.Context
	)

	addCategory := func(id, name string, order int) {
		Expect(repo.Create(context.Background(), &category.Category{
			ID: id, UserID: "user-1", Name: name, Order: order, IncludeInTotals: true,
		})).To(Succeed())
	}

	BeforeEach(func() {
		repo = newMockCategoryRepository()
		expenses = newMockExpenseStore(
			&expense.Expense{ID: "e1", UserID: "user-1", Category: "food"},
			&expense.Expense{ID: "e2", UserID: "user-1", Category: "food"},
			&expense.Expense{ID: "e3", UserID: "user-1", Category: "home"},
			&expense.Expense{ID: "e4", UserID: "user-1", Category: "deleted-cat"},
			&expense.Expense{ID: "e5", UserID: "user-2", Category: "food"},
		)
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		service = category.NewService(repo, expenses, events.NewEventBus(lg), lg).WithFanOut(2)
		ctx = internal.ContextWithUserID(context.Background(), "user-1")
	})

	Describe("EnsureDefaults", func() {
		It("creates three placeholders once", func() {
			first, err := service.EnsureDefaults(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(first).To(HaveLen(3))
			Expect(first[0].Name).To(Equal("Categoría 1"))
			Expect(first[2].Order).To(Equal(3))
			Expect(first[1].IncludeInTotals).To(BeTrue())

			second, err := service.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(HaveLen(3))
			Expect(repo.creates).To(Equal(1))
		})

		It("creates placeholders once under concurrent first reads", func() {
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := service.EnsureDefaults(ctx)
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()

			all, _ := repo.ListByUser(ctx, "user-1")
			Expect(all).To(HaveLen(3))
		})

		It("leaves existing categories alone", func() {
			addCategory("food", "Comida", 1)
			list, err := service.EnsureDefaults(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))
			Expect(repo.creates).To(Equal(1))
		})

		It("requires a signed-in user", func() {
			_, err := service.EnsureDefaults(context.Background())
			Expect(errors.Is(err, internal.ErrUnauthenticated)).To(BeTrue())
		})
	})

	Describe("Add", func() {
		It("uses the highest order plus one even after deletions", func() {
			addCategory("a", "A", 1)
			addCategory("c", "C", 3)

			c, err := service.Add(ctx, category.CreateCategoryDTO{Name: "Nueva"})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Order).To(Equal(4))
			Expect(c.IncludeInTotals).To(BeTrue())
		})

		It("requires a name", func() {
			_, err := service.Add(ctx, category.CreateCategoryDTO{Name: "  "})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Delete", func() {
		BeforeEach(func() {
			addCategory("food", "Comida", 1)
			addCategory("home", "Casa", 2)
		})

		It("refuses while expenses reference the category", func() {
			_, err := service.Delete(ctx, "food", false)
			Expect(errors.Is(err, category.ErrCategoryInUse)).To(BeTrue())

			appErr, _ := internal.IsAppError(err)
			Expect(appErr.Message).To(ContainSubstring("2 expenses"))
			Expect(appErr.Details).To(Equal(map[string]int{"expenses": 2}))

			_, getErr := repo.GetByID(ctx, "food")
			Expect(getErr).NotTo(HaveOccurred())
		})

		It("cascades to exactly the referencing expenses", func() {
			deleted, err := service.Delete(ctx, "food", true)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(Equal(2))
			Expect(expenses.ids()).To(Equal([]string{"e3", "e4", "e5"}))

			_, getErr := repo.GetByID(ctx, "food")
			Expect(errors.Is(getErr, category.ErrCategoryNotFound)).To(BeTrue())
		})

		It("keeps the category when an expense delete fails", func() {
			expenses.deleteErr = errors.New("store down")
			_, err := service.Delete(ctx, "food", true)
			Expect(err).To(MatchError("store down"))

			_, getErr := repo.GetByID(ctx, "food")
			Expect(getErr).NotTo(HaveOccurred())
		})

		It("deletes an empty category without cascade", func() {
			Expect(repo.Create(ctx, &category.Category{ID: "empty", UserID: "user-1", Name: "Vacía", Order: 3})).To(Succeed())
			deleted, err := service.Delete(ctx, "empty", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeZero())
		})

		It("refuses another user's category", func() {
			other := internal.ContextWithUserID(context.Background(), "user-2")
			_, err := service.Delete(other, "food", true)
			Expect(errors.Is(err, internal.ErrForeignRecord)).To(BeTrue())
			Expect(expenses.ids()).To(HaveLen(5))
		})
	})

	Describe("Orphans", func() {
		BeforeEach(func() {
			addCategory("food", "Comida", 1)
			addCategory("home", "Casa", 2)
		})

		It("finds exactly the expenses without a category", func() {
			orphans, err := service.FindOrphanedExpenses(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(orphans).To(HaveLen(1))
			Expect(orphans[0].ID).To(Equal("e4"))
		})

		It("removes the orphans and reports the count", func() {
			removed, err := service.CleanupOrphanedExpenses(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(1))
			Expect(expenses.ids()).To(Equal([]string{"e1", "e2", "e3", "e5"}))

			again, err := service.CleanupOrphanedExpenses(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(BeZero())
		})
	})

	Describe("field updates", func() {
		BeforeEach(func() {
			addCategory("food", "Comida", 1)
		})

		It("sets and clears colors", func() {
			c, err := service.UpdateColors(ctx, "food", &category.Colors{From: "#112233", To: "#445566"})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Colors.From).To(Equal("#112233"))

			c, err = service.UpdateColors(ctx, "food", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Colors).To(BeNil())
		})

		It("rejects malformed colors", func() {
			_, err := service.UpdateColors(ctx, "food", &category.Colors{From: "red", To: "#445566"})
			Expect(err).To(HaveOccurred())
		})

		It("sets and clears the icon", func() {
			c, err := service.UpdateIcon(ctx, "food", "Restaurant")
			Expect(err).NotTo(HaveOccurred())
			Expect(*c.Icon).To(Equal("Restaurant"))

			c, err = service.UpdateIcon(ctx, "food", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Icon).To(BeNil())
		})

		It("toggles includeInTotals", func() {
			c, err := service.ToggleIncludeInTotals(ctx, "food")
			Expect(err).NotTo(HaveOccurred())
			Expect(c.IncludeInTotals).To(BeFalse())

			stored, _ := repo.GetByID(ctx, "food")
			Expect(stored.IncludeInTotals).To(BeFalse())
		})

		It("renames", func() {
			c, err := service.Rename(ctx, "food", "Supermercado")
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Name).To(Equal("Supermercado"))
		})
	})

	Describe("Reorder", func() {
		It("stores positions", func() {
			addCategory("a", "A", 1)
			addCategory("b", "B", 2)
			Expect(service.Reorder(ctx, []string{"b", "a"})).To(Succeed())

			list, _ := repo.ListByUser(ctx, "user-1")
			Expect(list[0].ID).To(Equal("b"))
		})

		It("rejects unknown ids", func() {
			addCategory("a", "A", 1)
			err := service.Reorder(ctx, []string{"a", "zzz"})
			Expect(errors.Is(err, category.ErrCategoryNotFound)).To(BeTrue())
		})
	})

	Describe("Subscribe", func() {
		It("provisions defaults and redelivers on change", func() {
			var mu sync.Mutex
			var sizes []int
			seen := func() []int {
				mu.Lock()
				defer mu.Unlock()
				return append([]int(nil), sizes...)
			}

			sub, err := service.Subscribe(ctx, func(list []*category.Category) {
				mu.Lock()
				defer mu.Unlock()
				sizes = append(sizes, len(list))
			}, nil)
			Expect(err).NotTo(HaveOccurred())
			defer sub.Unsubscribe()

			Eventually(seen).Should(ContainElement(3))
			_, err = service.Add(ctx, category.CreateCategoryDTO{Name: "Extra"})
			Expect(err).NotTo(HaveOccurred())
			Eventually(seen).Should(ContainElement(4))
		})
	})
})
