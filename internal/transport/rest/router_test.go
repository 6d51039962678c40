package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/household-ledger/internal/auth"
	"github.com/frahmantamala/household-ledger/internal/category"
	categoryPostgres "github.com/frahmantamala/household-ledger/internal/category/postgres"
	categoryDatamodel "github.com/frahmantamala/household-ledger/internal/core/datamodel/category"
	expenseDatamodel "github.com/frahmantamala/household-ledger/internal/core/datamodel/expense"
	settingsDatamodel "github.com/frahmantamala/household-ledger/internal/core/datamodel/settings"
	"github.com/frahmantamala/household-ledger/internal/core/events"
	"github.com/frahmantamala/household-ledger/internal/core/metrics"
	"github.com/frahmantamala/household-ledger/internal/expense"
	expensePostgres "github.com/frahmantamala/household-ledger/internal/expense/postgres"
	"github.com/frahmantamala/household-ledger/internal/report"
	"github.com/frahmantamala/household-ledger/internal/settings"
	settingsPostgres "github.com/frahmantamala/household-ledger/internal/settings/postgres"
	"github.com/frahmantamala/household-ledger/internal/transport"
	"github.com/frahmantamala/household-ledger/internal/transport/rest"
)

const testSecret = "router-test-secret-with-32-characters!"

var _ = Describe("Router", func() {
	var (
		db      *gorm.DB
		server  *httptest.Server
		token   string
		healthy error
	)

	do := func(method, path, bearer string, body interface{}) (*http.Response, []byte) {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req, err := http.NewRequest(method, server.URL+path, &buf)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", "application/json")
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp, data
	}

	BeforeEach(func() {
		var err error
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&expenseDatamodel.Expense{}, &categoryDatamodel.Category{}, &settingsDatamodel.UserSettings{})).To(Succeed())

		bus := events.NewEventBus(lg)
		expenses := expensePostgres.NewExpenseRepository(db)
		categories := categoryPostgres.NewCategoryRepository(db)

		verifier := auth.NewJWTVerifier(testSecret, time.Hour)
		token, err = verifier.GenerateAccessToken("user-1", "ana@example.com")
		Expect(err).NotTo(HaveOccurred())

		m := metrics.New()
		base := transport.NewBaseHandler(lg)
		base.Streams = m

		handlers := rest.Handlers{
			Auth:     auth.NewHandler(base, verifier),
			Expense:  expense.NewHandler(base, expense.NewService(expenses, bus, lg)),
			Category: category.NewHandler(base, category.NewService(categories, expenses, bus, lg)),
			Settings: settings.NewHandler(base, settings.NewService(settingsPostgres.NewSettingsRepository(db), bus, lg)),
			Report:   report.NewHandler(base, report.NewService(expenses, categories, lg)),
		}

		healthy = nil
		router := chi.NewRouter()
		Expect(rest.RegisterAllRoutes(router, handlers, rest.Options{
			AllowedOrigins:  "*",
			ValidateRequest: true,
			Metrics:         m,
			HealthChecks: map[string]rest.Checker{
				"database": func(context.Context) error { return healthy },
			},
		}, lg)).To(Succeed())

		server = httptest.NewServer(router)
	})

	AfterEach(func() {
		server.Close()
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	It("answers ping without a token", func() {
		resp, _ := do(http.MethodGet, "/api/v1/ping", "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})

	It("reports unhealthy components", func() {
		resp, _ := do(http.MethodGet, "/api/v1/health", "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		healthy = fmt.Errorf("database is down")
		resp, body := do(http.MethodGet, "/api/v1/health", "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
		Expect(string(body)).To(ContainSubstring("database is down"))
	})

	It("rejects requests without a token", func() {
		resp, body := do(http.MethodGet, "/api/v1/expenses?month=1&year=2025", "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(string(body)).To(ContainSubstring("UNAUTHENTICATED"))
	})

	It("identifies the caller", func() {
		resp, body := do(http.MethodGet, "/api/v1/me", token, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(body)).To(ContainSubstring(`"userId":"user-1"`))
	})

	It("serves the API document", func() {
		resp, body := do(http.MethodGet, "/openapi.yml", "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(body)).To(ContainSubstring("openapi: 3.0.3"))
	})

	It("runs a month through categories, expenses and reports", func() {
		resp, body := do(http.MethodGet, "/api/v1/categories", token, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		var cats struct {
			Categories []category.Category `json:"categories"`
		}
		Expect(json.Unmarshal(body, &cats)).To(Succeed())
		Expect(cats.Categories).NotTo(BeEmpty())
		categoryID := cats.Categories[0].ID

		resp, _ = do(http.MethodPost, "/api/v1/expenses", token, map[string]interface{}{
			"name": "Luz", "importe": 1500, "category": categoryID, "month": 12, "year": 2024,
		})
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		resp, body = do(http.MethodPost, "/api/v1/templates/apply", token, map[string]interface{}{
			"sourceMonth": 12, "sourceYear": 2024, "targetMonth": 1, "targetYear": 2025,
		})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(body)).To(ContainSubstring(`"copied":1`))

		resp, body = do(http.MethodGet, "/api/v1/expenses?month=1&year=2025", token, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(body)).To(ContainSubstring(`"name":"Luz"`))

		resp, body = do(http.MethodGet, "/api/v1/reports/monthly?year=2024", token, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(body)).To(ContainSubstring(`"month":12`))

		resp, _ = do(http.MethodDelete, "/api/v1/months/2025/1", token, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

		resp, body = do(http.MethodDelete, "/api/v1/months/2025/1?confirm=true", token, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(body)).To(ContainSubstring(`"deleted":1`))
	})

	It("rejects malformed bodies", func() {
		resp, _ := do(http.MethodPost, "/api/v1/categories", token, map[string]interface{}{"icon": "home"})
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
	})

	It("exposes request metrics", func() {
		do(http.MethodGet, "/api/v1/ping", "", nil)

		resp, body := do(http.MethodGet, "/metrics", "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(body)).To(ContainSubstring("household_ledger_http_requests_total"))
	})
})
