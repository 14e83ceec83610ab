package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/tender-checklist/internal/common"
)

type Config struct {
	Driver           string // "sqlite" | "postgres"
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// DB is an ent SQL driver over either a pgx pool or a sqlite handle.
type DB struct {
	drv    *entsql.Driver
	pool   *pgxpool.Pool // nil for sqlite
	logger *slog.Logger
}

// Open connects to the ledger database and creates the schema if needed.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		db  *DB
		err error
	)
	switch cfg.Driver {
	case "postgres", "pgx":
		db, err = openPostgres(ctx, cfg, logger)
	case "sqlite":
		db, err = openSQLite(cfg, logger)
	default:
		return nil, common.NewAppError("CONFIG_ERROR",
			fmt.Sprintf("unknown ledger driver %q", cfg.Driver), common.ErrInvalidConfiguration)
	}
	if err != nil {
		return nil, err
	}
	if err := db.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "driver", "postgres")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "tender-checklist"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}

	// Wrap pool as *sql.DB for the ent driver
	sqldb := stdlib.OpenDBFromPool(pool)
	drv := entsql.OpenDB(dialect.Postgres, sqldb)

	logger.Info("successfully connected to database")
	return &DB{drv: drv, pool: pool, logger: logger}, nil
}

func openSQLite(cfg Config, logger *slog.Logger) (*DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = "file:ledger.db?_pragma=busy_timeout(5000)"
	}
	logger.Info("opening database", "driver", "sqlite", "dsn", dsn)
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	// sqlite serializes writers
	sqldb.SetMaxOpenConns(1)
	return &DB{drv: entsql.OpenDB(dialect.SQLite, sqldb), logger: logger}, nil
}

func (db *DB) Dialect() string { return db.drv.Dialect() }

func (db *DB) migrate(ctx context.Context) error {
	q, args := entsql.Dialect(db.drv.Dialect()).
		CreateTable(jobRunsTable).
		IfNotExists().
		Columns(
			entsql.Column(colJobID).Type("TEXT").Attr("NOT NULL"),
			entsql.Column(colAttempt).Type("INTEGER").Attr("NOT NULL"),
			entsql.Column(colChecklistID).Type("TEXT").Attr("NOT NULL DEFAULT ''"),
			entsql.Column(colState).Type("TEXT").Attr("NOT NULL"),
			entsql.Column(colErrorMessage).Type("TEXT"),
			entsql.Column(colStartedAt).Type("BIGINT").Attr("NOT NULL"),
			entsql.Column(colUpdatedAt).Type("BIGINT").Attr("NOT NULL"),
			entsql.Column(colFinishedAt).Type("BIGINT"),
		).
		PrimaryKey(colJobID, colAttempt).
		Query()
	if err := db.drv.Exec(ctx, q, args, nil); err != nil {
		db.logger.Error("ledger migration failed", "error", err)
		return fmt.Errorf("%w: create %s: %v", common.ErrDatabase, jobRunsTable, err)
	}
	return nil
}

// Close closes the database connections gracefully
func (db *DB) Close() {
	if db == nil {
		return
	}
	db.logger.Info("closing database connections")
	if err := db.drv.Close(); err != nil {
		db.logger.Error("failed to close ent driver", "error", err)
	}
	if db.pool != nil {
		db.pool.Close()
	}
	db.logger.Info("database connections closed")
}

// HealthCheck pings the database to catch DSN issues early.
func (db *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	db.logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if db.pool != nil {
		return db.pool.Ping(ctx)
	}
	return db.drv.DB().PingContext(ctx)
}
