package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cashcount/internal/amqp"
	"cashcount/internal/api"
	"cashcount/internal/remote/memory"
	"cashcount/internal/session"
	"cashcount/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend. On error every resource
// opened so far is released.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (res *Result, err error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	res = &Result{Checks: map[string]HealthCheck{}}
	var closers []func() error
	defer func() {
		if err != nil {
			runClosers(closers)
		}
	}()

	switch config.Type {
	case RemoteBackend:
		res.Backend, err = f.createRemoteBackend(config)
	case MemoryBackend:
		res.Backend, err = f.createMemoryBackend(config)
	default:
		err = fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	switch config.SessionStore {
	case SQLiteSessions:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize session database: %w", err)
		}
		closers = append(closers, repo.Close)
		res.Sessions = repo
		res.Checks["sqlite"] = repo.Ping
		f.logger.Info("Initialized SQLite session store", "db_path", config.SQLiteDBPath)
	default:
		res.Sessions = session.NewMemoryStore()
		f.logger.Info("Initialized memory session store")
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			// counts are still saved through the API without events
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			closers = append(closers, client.Close)
			res.Publisher = client
			res.Checks["amqp"] = func(context.Context) error {
				if !client.Healthy() {
					return errors.New("amqp connection down")
				}
				return nil
			}
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	res.Cleanup = func() error { return runClosers(closers) }
	return res, nil
}

func (f *DefaultFactory) createRemoteBackend(config Config) (Backend, error) {
	client, err := api.NewClient(config.APIBaseURL, nil, config.APITimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize API client: %w", err)
	}
	f.logger.Info("Initialized remote backend", "base_url", client.BaseURL())
	return client, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (Backend, error) {
	users, err := memory.ParseUsers(config.MemoryUsers)
	if err != nil {
		return nil, fmt.Errorf("invalid memory users: %w", err)
	}
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	store := memory.NewFromFiles(dataDir, users)
	f.logger.Info("Initialized memory backend", "data_directory", dataDir, "users", len(users))
	return store, nil
}

// runClosers closes in reverse order and joins the errors.
func runClosers(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
