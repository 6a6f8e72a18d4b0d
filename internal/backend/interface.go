package backend

import (
	"context"

	"fintrack/internal/ports"
	"fintrack/internal/services"
)

// Backend is a store that also tracks which transactions reached the ledger export.
type Backend interface {
	ports.Store
	ports.SyncQueue
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function.
// Publisher is nil when AMQP is not configured or unreachable at startup.
type BackendResult struct {
	Backend   Backend
	Publisher services.Publisher
	// Cleanup closes the store. The publisher is closed by its owning service.
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// AMQP publishing, optional for either backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
