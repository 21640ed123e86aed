package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"cashcount/internal/core"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestComponentPrefixedOnEveryLine(t *testing.T) {
	var buf bytes.Buffer
	logger := NewText(&buf, slog.LevelInfo, ComponentWorker)

	logger.Info("started")
	logger.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "component=worker")
	assert.Contains(t, out, "msg=started")
	assert.NotContains(t, out, "hidden")
}

func TestWithCashCountFields(t *testing.T) {
	cc := core.CashCount{
		ID:             3,
		RegistryID:     1,
		RegistryName:   "Front Counter",
		DateCounted:    time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		ReportedAmount: decimal.RequireFromString("200"),
		ActualTotal:    decimal.RequireFromString("201.5"),
		OverShort:      decimal.RequireFromString("1.5"),
	}

	f := NewFields().WithCashCount(cc).WithUser("alice")

	assert.Equal(t, int64(3), f[FieldCashCountID])
	assert.Equal(t, "Front Counter", f[FieldRegistryName])
	assert.Equal(t, "201.50", f[FieldActualTotal])
	assert.Equal(t, "+1.50", f[FieldOverShort])
	assert.Equal(t, "alice", f[FieldUser])
	assert.Len(t, f.ToSlice(), 2*len(f))
}

func TestLogLoginLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(NewText(&buf, slog.LevelInfo, ComponentHTTP))

	sl.LogLogin(context.Background(), "alice", nil)
	assert.Contains(t, buf.String(), "level=INFO")
	assert.Contains(t, buf.String(), "success=true")

	buf.Reset()
	sl.LogLogin(context.Background(), "alice", errors.New("rejected"))
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "rejected")
	assert.NotContains(t, buf.String(), "password")
}
