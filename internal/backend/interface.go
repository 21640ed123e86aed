// Package backend assembles the data source, session store and event
// publisher the web server runs on.
package backend

import (
	"context"
	"time"

	"cashcount/internal/ports"
	"cashcount/internal/services"
	"cashcount/internal/session"
)

// Backend is everything the services need from the cash count data source.
type Backend interface {
	ports.Authenticator
	ports.RegistryReader
	ports.RegistryWriter
	ports.CashCountReader
	ports.CashCountWriter
}

// SessionStore is a session.Store that can also drop stale sessions.
type SessionStore interface {
	session.Store
	PurgeExpired(ctx context.Context) (int64, error)
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// HealthCheck reports whether a dependency is ready.
type HealthCheck func(ctx context.Context) error

// Result carries the assembled pieces. Publisher is nil when AMQP is off.
type Result struct {
	Backend   Backend
	Sessions  SessionStore
	Publisher services.Publisher
	Checks    map[string]HealthCheck
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Remote API
	APIBaseURL string
	APITimeout time.Duration

	// Memory backend
	MemoryUsers   string
	DataDirectory string

	// Sessions
	SessionStore SessionStoreType
	SQLiteDBPath string

	// Optional event publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	RemoteBackend BackendType = "remote"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case RemoteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// SessionStoreType selects where web sessions live.
type SessionStoreType string

const (
	MemorySessions SessionStoreType = "memory"
	SQLiteSessions SessionStoreType = "sqlite"
)

func (st SessionStoreType) IsValid() bool {
	return st == MemorySessions || st == SQLiteSessions
}
