// Package backend assembles the expense service from configuration:
// store backend selection plus the optional AMQP publisher.
package backend

import (
	"context"

	"expensed/internal/config"
	"expensed/internal/services"
)

// CleanupFunc releases the resources behind a built backend.
type CleanupFunc func() error

// Result contains the assembled service and its cleanup function.
type Result struct {
	Service *services.ExpenseService
	Cleanup CleanupFunc
}

// Factory creates expense services based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, cfg *config.Config) (*Result, error)
}

// Type identifies a store backend.
type Type string

const (
	MemoryBackend   Type = "memory"
	SQLiteBackend   Type = "sqlite"
	PostgresBackend Type = "postgres"
)

func (t Type) String() string { return string(t) }

// IsValid reports whether t names a known store backend.
func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
