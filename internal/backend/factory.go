package backend

import (
	"context"
	"fmt"
	"log/slog"

	"expensed/internal/config"
	"expensed/internal/events"
	"expensed/internal/services"
	"expensed/internal/store"
	"expensed/internal/store/memory"
	"expensed/internal/store/postgres"
	"expensed/internal/store/sqlite"
)

// DefaultFactory implements the Factory interface.
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend builds the store named by the config, attaches the AMQP
// publisher when one is configured, and wraps both in the expense service.
// A publisher that fails to connect is logged and skipped: events are
// optional, the ledger is not.
func (f *DefaultFactory) CreateBackend(ctx context.Context, cfg *config.Config) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	backendType := Type(cfg.StoreBackend)
	if !backendType.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.StoreBackend)
	}

	var st store.ExpenseStore
	switch backendType {
	case MemoryBackend:
		st = memory.New()
		f.logger.Info("Initialized memory backend")
	case SQLiteBackend:
		st = sqlite.New(cfg.SQLiteDBPath)
		f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	case PostgresBackend:
		st = postgres.New(cfg.PostgresDSN)
		f.logger.Info("Initialized PostgreSQL backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", backendType)
	}

	var publisher *events.Publisher
	if cfg.AMQPURL != "" {
		var err error
		publisher, err = events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP publisher, continuing without events", "error", err)
		} else {
			f.logger.Info("Initialized AMQP publisher",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	svc := services.NewExpenseService(st, publisher)
	return &Result{
		Service: svc,
		Cleanup: svc.Close,
	}, nil
}
