// Package memory is an in-process stand-in for the remote cash count API.
package memory

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"cashcount/internal/api"
	"cashcount/internal/core"
	"cashcount/internal/ports"
)

var (
	_ ports.Authenticator   = (*Store)(nil)
	_ ports.RegistryReader  = (*Store)(nil)
	_ ports.RegistryWriter  = (*Store)(nil)
	_ ports.CashCountReader = (*Store)(nil)
	_ ports.CashCountWriter = (*Store)(nil)
)

var errDuplicateRegistry = errors.New("registry already exists")

type Store struct {
	mu         sync.Mutex
	users      map[string]string
	registries []core.Registry
	counts     []core.CashCount
}

// New creates a store that accepts the given username/password pairs and
// starts with the named registries.
func New(users map[string]string, registries []string) *Store {
	s := &Store{users: make(map[string]string, len(users))}
	for u, p := range users {
		s.users[u] = p
	}
	for _, name := range dedupe(registries) {
		s.registries = append(s.registries, core.Registry{ID: int64(len(s.registries) + 1), Name: name})
	}
	return s
}

// NewFromFiles seeds registries from base/seed_registries.txt, one name per
// line. Blank lines and # comments are skipped.
func NewFromFiles(base string, users map[string]string) *Store {
	regs := readLines(filepath.Join(base, "seed_registries.txt"))
	if len(regs) == 0 {
		regs = []string{"Front Counter"}
	}
	return New(users, regs)
}

// ParseUsers reads "user:pass,user2:pass2".
func ParseUsers(spec string) (map[string]string, error) {
	users := map[string]string{}
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		u, p, ok := strings.Cut(pair, ":")
		if !ok || strings.TrimSpace(u) == "" || p == "" {
			return nil, fmt.Errorf("invalid user entry %q, want user:password", pair)
		}
		users[strings.TrimSpace(u)] = p
	}
	return users, nil
}

func (s *Store) Login(_ context.Context, creds core.Credentials) error {
	return s.authenticate(creds)
}

func (s *Store) ListRegistries(_ context.Context, creds core.Credentials) ([]core.Registry, error) {
	if err := s.authenticate(creds); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Registry(nil), s.registries...), nil
}

func (s *Store) CreateRegistry(_ context.Context, creds core.Credentials, name string) (core.Registry, error) {
	if err := s.authenticate(creds); err != nil {
		return core.Registry{}, err
	}
	reg := core.Registry{Name: strings.TrimSpace(name)}
	if err := reg.Validate(); err != nil {
		return core.Registry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.registries {
		if strings.EqualFold(r.Name, reg.Name) {
			return core.Registry{}, fmt.Errorf("%w: %s: %q", api.ErrRequestFailed, errDuplicateRegistry, reg.Name)
		}
	}
	reg.ID = int64(len(s.registries) + 1)
	s.registries = append(s.registries, reg)
	return reg, nil
}

// ListCashCounts returns counts newest first.
func (s *Store) ListCashCounts(_ context.Context, creds core.Credentials) ([]core.CashCount, error) {
	if err := s.authenticate(creds); err != nil {
		return nil, err
	}
	s.mu.Lock()
	out := make([]core.CashCount, len(s.counts))
	for i, cc := range s.counts {
		out[i] = cc
		out[i].ActualBreakdown = cc.ActualBreakdown.Clone()
		out[i].LeftoverBreakdown = cc.LeftoverBreakdown.Clone()
	}
	s.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].DateCounted.After(out[j].DateCounted) })
	return out, nil
}

func (s *Store) CreateCashCount(_ context.Context, creds core.Credentials, cc core.CashCount) (int64, error) {
	if err := s.authenticate(creds); err != nil {
		return 0, err
	}
	if err := cc.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasRegistry(cc.RegistryID) {
		return 0, fmt.Errorf("%w: unknown registry %d", api.ErrRequestFailed, cc.RegistryID)
	}
	cc.ID = int64(len(s.counts) + 1)
	cc.RegistryName = ""
	cc.ActualBreakdown = cc.ActualBreakdown.Clone()
	cc.LeftoverBreakdown = cc.LeftoverBreakdown.Clone()
	s.counts = append(s.counts, cc)
	return cc.ID, nil
}

func (s *Store) authenticate(creds core.Credentials) error {
	if creds.IsZero() {
		return api.ErrNotAuthenticated
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.users[creds.Username]; !ok || p != creds.Password {
		return api.ErrUnauthorized
	}
	return nil
}

// callers hold s.mu
func (s *Store) hasRegistry(id int64) bool {
	for _, r := range s.registries {
		if r.ID == id {
			return true
		}
	}
	return false
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe trims, drops blanks and keeps first occurrence order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
