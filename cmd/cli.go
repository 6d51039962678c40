package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/household-ledger/internal"
	"github.com/frahmantamala/household-ledger/internal/core/events"
	"github.com/frahmantamala/household-ledger/internal/messaging"
	"github.com/frahmantamala/household-ledger/pkg/logger"
)

const flushTimeout = 10 * time.Second

// runAsUser opens the configured stores and runs fn with services acting for
// userID. The whole run is bounded by store.operation_timeout. With messaging
// enabled, the changes fn makes are sent to the broker before it returns so
// running servers refresh their live queries.
func runAsUser(parent context.Context, userID string, fn func(ctx context.Context, svc *Services) error) error {
	if userID == "" {
		return fmt.Errorf("--user is required")
	}
	if parent == nil {
		parent = context.Background()
	}

	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	lg := logger.LoggerWrapper().With("user_id", userID)

	stores, err := openStores(parent, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	bus := events.NewEventBus(lg)
	flush := func(context.Context) error { return nil }
	if cfg.Messaging.Enabled {
		client, err := messaging.NewClient(cfg.Messaging.AMQPURL, cfg.Messaging.Exchange)
		if err != nil {
			lg.Warn("message broker unavailable, running servers will not see these changes", "error", err)
		} else {
			defer client.Close()
			flush = forwardChanges(bus, client, lg)
		}
	}

	ctx, cancel := internal.WithTimeout(parent, cfg.Store.OperationTimeout)
	defer cancel()
	ctx = internal.ContextWithUserID(ctx, userID)
	ctx = logger.With(ctx, "user_id", userID)

	runErr := fn(ctx, newServices(cfg, stores, bus, lg))

	flushCtx, cancelFlush := context.WithTimeout(context.WithoutCancel(parent), flushTimeout)
	defer cancelFlush()
	if err := flush(flushCtx); err != nil {
		lg.Warn("change notifications still pending at exit", "error", err)
	}

	return runErr
}

// forwardChanges bridges bus to publisher. The returned flush waits for the
// forwards already started and detaches the bridge.
func forwardChanges(bus *events.EventBus, publisher messaging.Publisher, lg *slog.Logger) (flush func(ctx context.Context) error) {
	stop := messaging.NewBridge(publisher, bus, uuid.NewString(), lg).Start()
	return func(ctx context.Context) error {
		defer stop()
		return bus.Wait(ctx)
	}
}
