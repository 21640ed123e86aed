package backend

import (
	"errors"
	"fmt"

	"cashcount/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	cfg := Config{
		Type:          BackendType(appConfig.DataBackend),
		APIBaseURL:    appConfig.APIBaseURL,
		APITimeout:    appConfig.APITimeout,
		MemoryUsers:   appConfig.MemoryUsers,
		DataDirectory: appConfig.DataDirectory,
		SessionStore:  SessionStoreType(appConfig.SessionStore),
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		AMQPURL:       appConfig.AMQPURL,
		AMQPExchange:  appConfig.AMQPExchange,
		AMQPQueue:     appConfig.AMQPQueue,
	}
	return cfg, cfg.Validate()
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %q (valid: %v)", c.Type, GetBackendTypes())
	}
	if !c.SessionStore.IsValid() {
		return fmt.Errorf("invalid session store: %q", c.SessionStore)
	}

	switch c.Type {
	case RemoteBackend:
		if c.APIBaseURL == "" {
			return errors.New("API base URL is required for remote backend")
		}
	case MemoryBackend:
		if c.MemoryUsers == "" {
			return errors.New("at least one user is required for memory backend")
		}
	}

	if c.SessionStore == SQLiteSessions && c.SQLiteDBPath == "" {
		return errors.New("SQLite database path is required for sqlite sessions")
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return errors.New("AMQP exchange and queue are required when AMQP is enabled")
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{RemoteBackend, MemoryBackend}
}
