package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"cashcount/internal/cache"
	"cashcount/internal/core"
	"cashcount/internal/ports"
)

// RegistryService lists and creates registries, caching lists per user.
type RegistryService struct {
	reader ports.RegistryReader
	writer ports.RegistryWriter
	cache  cache.Cache[[]core.Registry]
}

// NewRegistryService creates the service. A nil cache disables caching.
func NewRegistryService(reader ports.RegistryReader, writer ports.RegistryWriter, c cache.Cache[[]core.Registry]) *RegistryService {
	return &RegistryService{reader: reader, writer: writer, cache: c}
}

func (s *RegistryService) List(ctx context.Context, creds core.Credentials) ([]core.Registry, error) {
	key := cacheKey(creds)
	if s.cache != nil {
		if regs, ok := s.cache.Get(key); ok {
			slog.DebugContext(ctx, "Registry list served from cache", "user", creds.Username, "count", len(regs))
			return append([]core.Registry(nil), regs...), nil
		}
	}

	regs, err := s.reader.ListRegistries(ctx, creds)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(key, append([]core.Registry(nil), regs...))
	}
	return regs, nil
}

// Create validates the name, creates the registry and drops the user's
// cached list.
func (s *RegistryService) Create(ctx context.Context, creds core.Credentials, name string) (core.Registry, error) {
	reg := core.Registry{Name: strings.TrimSpace(name)}
	if err := reg.Validate(); err != nil {
		return core.Registry{}, err
	}

	created, err := s.writer.CreateRegistry(ctx, creds, reg.Name)
	if err != nil {
		return core.Registry{}, err
	}
	if s.cache != nil {
		s.cache.Delete(cacheKey(creds))
	}

	slog.InfoContext(ctx, "Registry created", "registry_id", created.ID, "name", created.Name, "user", creds.Username)
	return created, nil
}

// Names maps registry ids to names for display.
func (s *RegistryService) Names(ctx context.Context, creds core.Credentials) (map[int64]string, error) {
	regs, err := s.List(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("load registry names: %w", err)
	}
	names := make(map[int64]string, len(regs))
	for _, r := range regs {
		names[r.ID] = r.Name
	}
	return names, nil
}

// cacheKey covers the password too, so a changed password never reads a
// list fetched with the old one.
func cacheKey(creds core.Credentials) string {
	sum := sha256.Sum256([]byte(creds.Username + "\x00" + creds.Password))
	return "registries:" + hex.EncodeToString(sum[:])
}
