package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashcount/internal/amqp"
	"cashcount/internal/core"
)

type fakeExporter struct {
	got []core.CashCount
	err error
}

func (f *fakeExporter) Export(_ context.Context, cc core.CashCount) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.got = append(f.got, cc)
	return "Sheet!A2:I2", nil
}

type fakeLog struct {
	refs    map[int64]string
	markErr error
}

func (f *fakeLog) ExportRef(_ context.Context, id int64) (string, bool, error) {
	ref, ok := f.refs[id]
	return ref, ok, nil
}

func (f *fakeLog) MarkExported(_ context.Context, id int64, ref string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.refs[id] = ref
	return nil
}

func msg(id int64) *amqp.CashCountCreated {
	return &amqp.CashCountCreated{ID: id, RegistryID: 1, OverShort: decimal.NewFromInt(-2)}
}

func TestHandleExportsOnce(t *testing.T) {
	ex := &fakeExporter{}
	log := &fakeLog{refs: map[int64]string{}}
	w := NewExportWorker(ex, log)

	require.NoError(t, w.HandleCashCountCreated(context.Background(), msg(5)))
	require.NoError(t, w.HandleCashCountCreated(context.Background(), msg(5)))

	require.Len(t, ex.got, 1, "redelivery must not export twice")
	assert.Equal(t, int64(5), ex.got[0].ID)
	assert.True(t, ex.got[0].OverShort.Equal(decimal.NewFromInt(-2)))
	assert.Equal(t, "Sheet!A2:I2", log.refs[5])
}

func TestHandleExportErrorIsReturned(t *testing.T) {
	w := NewExportWorker(&fakeExporter{err: errors.New("quota")}, nil)
	err := w.HandleCashCountCreated(context.Background(), msg(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota")
}

func TestHandleMarkFailureDoesNotRequeue(t *testing.T) {
	ex := &fakeExporter{}
	w := NewExportWorker(ex, &fakeLog{refs: map[int64]string{}, markErr: errors.New("disk full")})
	assert.NoError(t, w.HandleCashCountCreated(context.Background(), msg(1)))
	assert.Len(t, ex.got, 1)
}

func TestHandleWithoutLog(t *testing.T) {
	ex := &fakeExporter{}
	w := NewExportWorker(ex, nil)
	require.NoError(t, w.HandleCashCountCreated(context.Background(), msg(1)))
	require.NoError(t, w.HandleCashCountCreated(context.Background(), msg(1)))
	assert.Len(t, ex.got, 2)
}
