package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

var _ = Describe("CORS", func() {
	It("echoes allowed origins", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://localhost:5173")

		CORS("http://localhost:5173, https://ledger.example.com")(okHandler).ServeHTTP(rec, req)

		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("http://localhost:5173"))
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("ignores other origins", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")

		CORS("http://localhost:5173")(okHandler).ServeHTTP(rec, req)

		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
	})

	It("answers preflight requests", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/expenses", nil)
		req.Header.Set("Origin", "http://any.example.com")
		req.Header.Set("Access-Control-Request-Method", "PATCH")

		CORS("*")(okHandler).ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(rec.Header().Get("Access-Control-Allow-Methods")).To(ContainSubstring("PATCH"))
	})
})

var _ = Describe("RecoveryMiddleware", func() {
	It("turns panics into a 500 body", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		lg := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

		RecoveryMiddleware(lg)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		})).ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).To(ContainSubstring("INTERNAL_ERROR"))
	})

	It("lets aborted handlers abort", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		lg := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

		handler := RecoveryMiddleware(lg)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic(http.ErrAbortHandler)
		}))

		Expect(func() { handler.ServeHTTP(rec, req) }).To(PanicWith(http.ErrAbortHandler))
	})
})

var _ = Describe("RequestID", func() {
	It("keeps the caller's trace id", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Trace-ID", "trace-1")

		RequestID(okHandler).ServeHTTP(rec, req)

		Expect(rec.Header().Get("X-Trace-ID")).To(Equal("trace-1"))
	})

	It("generates one when absent", func() {
		rec := httptest.NewRecorder()
		RequestID(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rec.Header().Get("X-Trace-ID")).NotTo(BeEmpty())
	})
})

var _ = Describe("LoggingMiddleware", func() {
	It("masks tokens in the query", func() {
		q := url.Values{"access_token": {"secret-value"}, "month": {"3"}}

		filtered := filterSensitiveQuery(q)

		Expect(filtered).NotTo(ContainSubstring("secret-value"))
		Expect(filtered).To(ContainSubstring("month=3"))
	})

	It("masks sensitive headers and body fields", func() {
		var out bytes.Buffer
		lg := slog.New(slog.NewTextHandler(&out, nil))
		req := httptest.NewRequest(http.MethodPost, "/api/v1/expenses", strings.NewReader(`{"name":"Luz","token":"abc123"}`))
		req.Header.Set("Authorization", "Bearer abc123")

		LoggingMiddleware(lg)(okHandler).ServeHTTP(httptest.NewRecorder(), req)

		Expect(out.String()).To(ContainSubstring("Luz"))
		Expect(out.String()).NotTo(ContainSubstring("abc123"))
	})

	It("does not buffer event streams", func() {
		lg := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
		rec := httptest.NewRecorder()
		var captured *responseWriter

		LoggingMiddleware(lg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = w.(*responseWriter)
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = w.Write([]byte("event: expenses\ndata: []\n\n"))
			w.(http.Flusher).Flush()
		})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream", nil))

		Expect(captured.body.Len()).To(BeZero())
		Expect(rec.Body.String()).To(ContainSubstring("event: expenses"))
		Expect(rec.Flushed).To(BeTrue())
	})
})

var _ = Describe("OpenAPIValidator", func() {
	const doc = `
openapi: 3.0.3
info: {title: t, version: "1"}
paths:
  /categories:
    post:
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [name]
              properties:
                name: {type: string}
      responses:
        "201": {description: created}
`
	var handler http.Handler

	BeforeEach(func() {
		lg := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
		validate, err := OpenAPIValidator([]byte(doc), lg)
		Expect(err).NotTo(HaveOccurred())
		handler = validate(okHandler)
	})

	post := func(path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		handler.ServeHTTP(rec, req)
		return rec
	}

	It("passes matching requests", func() {
		Expect(post("/categories", `{"name":"Casa"}`).Code).To(Equal(http.StatusOK))
	})

	It("rejects bodies that break the contract", func() {
		rec := post("/categories", `{"icon":"home"}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring("VALIDATION_FAILED"))
	})

	It("lets unknown paths through", func() {
		Expect(post("/unknown", `{}`).Code).To(Equal(http.StatusOK))
	})

	It("refuses an invalid document", func() {
		_, err := OpenAPIValidator([]byte("openapi: nope"), slog.Default())
		Expect(err).To(HaveOccurred())
	})
})
