package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"cashcount/internal/api"
	"cashcount/internal/core"
	"cashcount/internal/ports"
)

// Publisher announces created cash counts. *amqp.Client implements it.
type Publisher interface {
	PublishCashCountCreated(ctx context.Context, cc core.CashCount, countedBy string) error
}

// CashCountInput is a submitted cash count form.
type CashCountInput struct {
	RegistryID  int64
	DateCounted time.Time
	Reported    decimal.Decimal
	Actual      core.Breakdown
	Leftover    core.Breakdown
	Note        string
}

// CashCountService orchestrates cash count operations across the API and AMQP.
type CashCountService struct {
	registries *RegistryService
	reader     ports.CashCountReader
	writer     ports.CashCountWriter
	publisher  Publisher
}

// NewCashCountService creates the service. publisher may be nil.
func NewCashCountService(registries *RegistryService, reader ports.CashCountReader, writer ports.CashCountWriter, publisher Publisher) *CashCountService {
	return &CashCountService{
		registries: registries,
		reader:     reader,
		writer:     writer,
		publisher:  publisher,
	}
}

// List loads counts and registry names concurrently and joins them.
func (s *CashCountService) List(ctx context.Context, creds core.Credentials) ([]core.CashCount, error) {
	var (
		counts []core.CashCount
		names  map[int64]string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = s.reader.ListCashCounts(gctx, creds)
		return err
	})
	g.Go(func() error {
		var err error
		names, err = s.registries.Names(gctx, creds)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range counts {
		if counts[i].RegistryName == "" {
			counts[i].RegistryName = names[counts[i].RegistryID]
		}
	}
	return counts, nil
}

// Create reconciles the input, stores it through the API and publishes an
// event. A failed publish is logged and never fails the request.
func (s *CashCountService) Create(ctx context.Context, creds core.Credentials, in CashCountInput) (core.CashCount, error) {
	cc, err := core.NewCashCount(in.RegistryID, in.DateCounted, in.Reported, in.Actual, in.Leftover, in.Note)
	if err != nil {
		return core.CashCount{}, err
	}

	id, err := s.writer.CreateCashCount(ctx, creds, cc)
	if err != nil {
		return core.CashCount{}, err
	}
	if id <= 0 {
		return core.CashCount{}, fmt.Errorf("%w: create cash count returned id %d", api.ErrRequestFailed, id)
	}
	cc.ID = id

	if names, err := s.registries.Names(ctx, creds); err == nil {
		cc.RegistryName = names[cc.RegistryID]
	}

	slog.InfoContext(ctx, "Cash count created",
		"cash_count_id", cc.ID,
		"registry_id", cc.RegistryID,
		"actual_total", core.FormatAmount(cc.ActualTotal),
		"over_short", core.FormatSigned(cc.OverShort),
		"user", creds.Username)

	s.publish(ctx, cc, creds.Username)
	return cc, nil
}

func (s *CashCountService) publish(ctx context.Context, cc core.CashCount, user string) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping cash count event")
		return
	}
	if err := s.publisher.PublishCashCountCreated(ctx, cc, user); err != nil {
		slog.ErrorContext(ctx, "Failed to publish cash count event",
			"cash_count_id", cc.ID,
			"error", fmt.Errorf("publish: %w", err))
	}
}
