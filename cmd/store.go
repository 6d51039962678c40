package cmd

import (
	"context"
	"errors"
	"fmt"

	gfirestore "cloud.google.com/go/firestore"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"google.golang.org/api/iterator"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/household-ledger/internal"
	"github.com/frahmantamala/household-ledger/internal/category"
	categoryfirestore "github.com/frahmantamala/household-ledger/internal/category/firestore"
	categorypostgres "github.com/frahmantamala/household-ledger/internal/category/postgres"
	"github.com/frahmantamala/household-ledger/internal/core/firebaseapp"
	"github.com/frahmantamala/household-ledger/internal/expense"
	expensefirestore "github.com/frahmantamala/household-ledger/internal/expense/firestore"
	expensepostgres "github.com/frahmantamala/household-ledger/internal/expense/postgres"
	"github.com/frahmantamala/household-ledger/internal/settings"
	settingsfirestore "github.com/frahmantamala/household-ledger/internal/settings/firestore"
	settingspostgres "github.com/frahmantamala/household-ledger/internal/settings/postgres"
	"github.com/frahmantamala/household-ledger/internal/transport/rest"
)

// Stores holds the repositories of the configured backend together with the
// process-wide clients behind them.
type Stores struct {
	Expenses   expense.Repository
	Categories category.Repository
	Settings   settings.Repository

	db  *sqlx.DB
	fs  *gfirestore.Client
	app *firebaseapp.App
}

func openStores(ctx context.Context, cfg *internal.Config) (*Stores, error) {
	s := &Stores{}

	switch cfg.Store.Backend {
	case internal.StoreBackendFirestore:
		app, err := s.firebase(ctx, cfg.Firebase)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize firebase: %w", err)
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("failed to initialize firestore: %w", err)
		}
		s.fs = client
		s.Expenses = expensefirestore.NewExpenseRepository(client)
		s.Categories = categoryfirestore.NewCategoryRepository(client)
		s.Settings = settingsfirestore.NewSettingsRepository(client)
	default:
		db, gdb, err := initDB(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		s.db = db
		s.Expenses = expensepostgres.NewExpenseRepository(gdb)
		s.Categories = categorypostgres.NewCategoryRepository(gdb)
		s.Settings = settingspostgres.NewSettingsRepository(gdb)
	}

	return s, nil
}

// firebase returns the shared Firebase app, creating it on first use.
func (s *Stores) firebase(ctx context.Context, cfg internal.FirebaseConfig) (*firebaseapp.App, error) {
	if s.app != nil {
		return s.app, nil
	}
	app, err := firebaseapp.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.app = app
	return app, nil
}

func (s *Stores) HealthChecks() map[string]rest.Checker {
	checks := make(map[string]rest.Checker)
	if s.db != nil {
		checks["database"] = func(ctx context.Context) error { return s.db.PingContext(ctx) }
	}
	if s.fs != nil {
		checks["firestore"] = func(ctx context.Context) error {
			_, err := s.fs.Collection(expensefirestore.Collection).Limit(1).Documents(ctx).Next()
			if err == iterator.Done {
				return nil
			}
			return err
		}
	}
	return checks
}

func (s *Stores) Close() error {
	var errs []error
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	if s.app != nil {
		errs = append(errs, s.app.Close())
	}
	return errors.Join(errs...)
}

// initDB opens the SQL handle. Postgres goes through the pgx stdlib driver
// wrapped by sqlx, and gorm reuses that pool; SQLite is opened by gorm.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, *gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	if cfg.Driver == internal.DatabaseDriverSQLite {
		gdb, err := gorm.Open(sqlite.Open(cfg.Source), gormCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, nil, err
		}
		// SQLite serialises writers.
		sqlDB.SetMaxOpenConns(1)
		return sqlx.NewDb(sqlDB, "sqlite3"), gdb, nil
	}

	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: dbConn.DB}), gormCfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, nil, fmt.Errorf("failed to open gorm session: %w", err)
	}

	return dbConn, gdb, nil
}
