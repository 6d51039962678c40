package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/household-ledger/internal"
	"github.com/frahmantamala/household-ledger/internal/auth"
	"github.com/frahmantamala/household-ledger/internal/category"
	"github.com/frahmantamala/household-ledger/internal/core/events"
	"github.com/frahmantamala/household-ledger/internal/core/metrics"
	"github.com/frahmantamala/household-ledger/internal/expense"
	"github.com/frahmantamala/household-ledger/internal/messaging"
	"github.com/frahmantamala/household-ledger/internal/report"
	"github.com/frahmantamala/household-ledger/internal/settings"
	"github.com/frahmantamala/household-ledger/internal/transport"
	"github.com/frahmantamala/household-ledger/internal/transport/rest"
	"github.com/frahmantamala/household-ledger/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

var serverPort int

func init() {
	httpServerCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "port to listen on, overrides http_server.port")
}

type Dependencies struct {
	Config   *internal.Config
	Logger   *slog.Logger
	Stores   *Stores
	Bus      *events.EventBus
	Metrics  *metrics.Metrics
	Verifier auth.Verifier
	Broker   *messaging.Client
	Router   *chi.Mux
}

func startHTTPServer() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := initializeDependencies(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.close()

	if err := setupRoutes(deps); err != nil {
		deps.Logger.Error("failed to register routes", "error", err)
		os.Exit(1)
	}

	stopBridge := startBridge(ctx, deps)
	defer stopBridge()

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "store", deps.Config.Store.Backend)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		deps.Logger.Info("Received signal, shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.close()
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if serverPort > 0 {
		config.Server.Port = serverPort
	}
	lg := logger.LoggerWrapper()

	stores, err := openStores(ctx, config)
	if err != nil {
		return nil, err
	}

	verifier, err := newVerifier(ctx, config, stores)
	if err != nil {
		_ = stores.Close()
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	deps := &Dependencies{
		Config:   config,
		Logger:   lg,
		Stores:   stores,
		Bus:      events.NewEventBus(lg),
		Verifier: verifier,
		Router:   chi.NewRouter(),
	}

	if config.Observability.Metrics.Enabled {
		deps.Metrics = metrics.New()
	}

	if config.Messaging.Enabled {
		client, err := messaging.NewClient(config.Messaging.AMQPURL, config.Messaging.Exchange)
		if err != nil {
			// The broker only carries change notifications between
			// instances; a single instance keeps working without it.
			lg.Warn("message broker unavailable, running without fan-out", "error", err)
		} else {
			deps.Broker = client
		}
	}

	return deps, nil
}

// newVerifier picks the token verifier for the configured auth provider.
func newVerifier(ctx context.Context, cfg *internal.Config, stores *Stores) (auth.Verifier, error) {
	switch cfg.Security.AuthProvider {
	case internal.AuthProviderFirebase:
		app, err := stores.firebase(ctx, cfg.Firebase)
		if err != nil {
			return nil, err
		}
		client, err := app.Auth(ctx)
		if err != nil {
			return nil, err
		}
		return auth.NewFirebaseVerifier(client), nil
	default:
		return auth.NewJWTVerifier(cfg.Security.JWTSecret, cfg.Security.AccessTokenDuration), nil
	}
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	lg := deps.Logger

	base := transport.NewBaseHandler(lg)
	if deps.Metrics != nil {
		base.Streams = deps.Metrics
	}

	svc := newServices(cfg, deps.Stores, deps.Bus, lg)

	handlers := rest.Handlers{
		Auth:     auth.NewHandler(base, deps.Verifier),
		Expense:  expense.NewHandler(base, svc.Expenses),
		Category: category.NewHandler(base, svc.Categories),
		Settings: settings.NewHandler(base, svc.Settings),
		Report:   report.NewHandler(base, svc.Reports),
	}

	opts := rest.Options{
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		ValidateRequest: cfg.Server.ValidateRequest,
		HealthChecks:    deps.Stores.HealthChecks(),
	}
	if deps.Metrics != nil {
		opts.Metrics = deps.Metrics
		opts.MetricsPath = cfg.Observability.Metrics.Path
		deps.Metrics.ObserveBus(deps.Bus)
	}
	if deps.Broker != nil {
		opts.HealthChecks["broker"] = func(context.Context) error { return deps.Broker.Healthy() }
	}

	return rest.RegisterAllRoutes(deps.Router, handlers, opts, lg)
}

// startBridge forwards local changes to the broker and replays changes from
// other instances until ctx ends.
func startBridge(ctx context.Context, deps *Dependencies) (stop func()) {
	if deps.Broker == nil {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	bridge := messaging.NewBridge(deps.Broker, deps.Bus, uuid.NewString(), deps.Logger)
	unsubscribe := bridge.Start()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := bridge.Run(ctx, deps.Broker); err != nil && ctx.Err() == nil {
			deps.Logger.Error("change consumer stopped", "error", err)
		}
	}()

	return func() {
		unsubscribe()
		cancel()
		<-done
	}
}

func (d *Dependencies) close() {
	if d.Broker != nil {
		if err := d.Broker.Close(); err != nil {
			d.Logger.Error("broker close error", "error", err)
		}
		d.Broker = nil
	}
	if d.Stores != nil {
		if err := d.Stores.Close(); err != nil {
			d.Logger.Error("store close error", "error", err)
		}
		d.Stores = nil
	}
}
