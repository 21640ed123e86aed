package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashcount/internal/api"
	"cashcount/internal/cache"
	"cashcount/internal/core"
	"cashcount/internal/remote/memory"
	"cashcount/internal/session"
)

var alice = core.Credentials{Username: "alice", Password: "pw"}

func newBackend() *memory.Store {
	return memory.New(map[string]string{"alice": "pw"}, []string{"Front", "Bar"})
}

type countingReader struct {
	*memory.Store
	mu    sync.Mutex
	calls int
}

func (c *countingReader) ListRegistries(ctx context.Context, creds core.Credentials) ([]core.Registry, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.Store.ListRegistries(ctx, creds)
}

type recordingPublisher struct {
	got  []core.CashCount
	user string
	err  error
}

func (p *recordingPublisher) PublishCashCountCreated(_ context.Context, cc core.CashCount, user string) error {
	p.got = append(p.got, cc)
	p.user = user
	return p.err
}

func TestAuthServiceLoginResolveLogout(t *testing.T) {
	ctx := context.Background()
	auth := NewAuthService(newBackend(), session.NewMemoryStore(), time.Hour)

	sess, err := auth.Login(ctx, core.Credentials{Username: " alice ", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.Credentials.Username)

	got, err := auth.Resolve(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, alice, got.Credentials)

	require.NoError(t, auth.Logout(ctx, sess.ID))
	_, err = auth.Resolve(ctx, sess.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)

	assert.NoError(t, auth.Logout(ctx, "garbage"))
	_, err = auth.Resolve(ctx, "garbage")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestAuthServiceRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	auth := NewAuthService(newBackend(), store, time.Hour)

	_, err := auth.Login(ctx, core.Credentials{Username: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, api.ErrUnauthorized)

	_, err = auth.Login(ctx, core.Credentials{Username: "", Password: "pw"})
	assert.ErrorIs(t, err, core.ErrEmptyUsername)

	n, _ := store.PurgeExpired(ctx)
	assert.Zero(t, n)
}

func TestRegistryServiceCachesPerUser(t *testing.T) {
	ctx := context.Background()
	reader := &countingReader{Store: newBackend()}
	svc := NewRegistryService(reader, reader, cache.NewLRUCache[[]core.Registry](10, time.Minute))

	_, err := svc.List(ctx, alice)
	require.NoError(t, err)
	regs, err := svc.List(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, regs, 2)
	assert.Equal(t, 1, reader.calls)

	_, err = svc.Create(ctx, alice, "Drive-thru")
	require.NoError(t, err)
	regs, err = svc.List(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, regs, 3, "create invalidates the cached list")
	assert.Equal(t, 2, reader.calls)
}

func TestRegistryServiceValidatesName(t *testing.T) {
	svc := NewRegistryService(newBackend(), newBackend(), nil)
	_, err := svc.Create(context.Background(), alice, " x ")
	assert.ErrorIs(t, err, core.ErrRegistryNameShort)
}

func TestCashCountServiceCreateAndList(t *testing.T) {
	ctx := context.Background()
	backend := newBackend()
	pub := &recordingPublisher{}
	regs := NewRegistryService(backend, backend, nil)
	svc := NewCashCountService(regs, backend, backend, pub)

	cc, err := svc.Create(ctx, alice, CashCountInput{
		RegistryID:  1,
		DateCounted: time.Date(2025, 3, 1, 18, 30, 0, 0, time.UTC),
		Reported:    decimal.NewFromInt(200),
		Actual:      core.Breakdown{"100.00": 2, "0.25": 4},
		Note:        "close",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), cc.ID)
	assert.Equal(t, "Front", cc.RegistryName)
	assert.True(t, cc.OverShort.Equal(decimal.NewFromInt(1)))

	require.Len(t, pub.got, 1)
	assert.Equal(t, int64(1), pub.got[0].ID)
	assert.Equal(t, "alice", pub.user)

	counts, err := svc.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, "Front", counts[0].RegistryName)
}

func TestCashCountServicePublishFailureDoesNotFail(t *testing.T) {
	backend := newBackend()
	regs := NewRegistryService(backend, backend, nil)
	svc := NewCashCountService(regs, backend, backend, &recordingPublisher{err: errors.New("broker down")})

	cc, err := svc.Create(context.Background(), alice, CashCountInput{
		RegistryID:  2,
		DateCounted: time.Now(),
		Actual:      core.Breakdown{"5.00": 1},
	})
	require.NoError(t, err)
	assert.NotZero(t, cc.ID)
}

func TestCashCountServiceRejectsInvalidInput(t *testing.T) {
	backend := newBackend()
	pub := &recordingPublisher{}
	svc := NewCashCountService(NewRegistryService(backend, backend, nil), backend, backend, pub)

	_, err := svc.Create(context.Background(), alice, CashCountInput{RegistryID: 1, DateCounted: time.Now(), Actual: core.Breakdown{"abc": 1}})
	assert.ErrorIs(t, err, core.ErrInvalidDenomination)

	_, err = svc.Create(context.Background(), alice, CashCountInput{DateCounted: time.Now()})
	assert.ErrorIs(t, err, core.ErrMissingRegistry)
	assert.Empty(t, pub.got)
}

func TestCashCountServiceListPropagatesAuthErrors(t *testing.T) {
	backend := newBackend()
	svc := NewCashCountService(NewRegistryService(backend, backend, nil), backend, backend, nil)
	_, err := svc.List(context.Background(), core.Credentials{Username: "alice", Password: "bad"})
	assert.ErrorIs(t, err, api.ErrUnauthorized)
}

type zeroIDWriter struct{ *memory.Store }

func (zeroIDWriter) CreateCashCount(context.Context, core.Credentials, core.CashCount) (int64, error) {
	return 0, nil
}

func TestCashCountServiceRejectsMissingID(t *testing.T) {
	backend := newBackend()
	pub := &recordingPublisher{}
	svc := NewCashCountService(NewRegistryService(backend, backend, nil), backend, zeroIDWriter{backend}, pub)

	_, err := svc.Create(context.Background(), alice, CashCountInput{
		RegistryID:  1,
		DateCounted: time.Now(),
		Actual:      core.Breakdown{"5.00": 1},
	})
	assert.ErrorIs(t, err, api.ErrRequestFailed)
	assert.Empty(t, pub.got, "nothing is published without an id")
}

func TestRegistryCacheKeyedByCredentials(t *testing.T) {
	ctx := context.Background()
	reader := &countingReader{Store: memory.New(map[string]string{"alice": "pw"}, []string{"Front"})}
	svc := NewRegistryService(reader, reader, cache.NewLRUCache[[]core.Registry](10, time.Minute))

	_, err := svc.List(ctx, alice)
	require.NoError(t, err)

	_, err = svc.List(ctx, core.Credentials{Username: "alice", Password: "revoked"})
	assert.ErrorIs(t, err, api.ErrUnauthorized, "other credentials never hit the cached list")
	assert.Equal(t, 2, reader.calls)
}
