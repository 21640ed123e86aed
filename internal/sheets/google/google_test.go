package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"cashcount/internal/core"
)

func sampleCount(t *testing.T) core.CashCount {
	t.Helper()
	cc, err := core.NewCashCount(2,
		time.Date(2025, 3, 1, 18, 30, 0, 0, time.UTC),
		decimal.NewFromInt(205),
		core.Breakdown{"100.00": 2, "0.25": 4},
		core.Breakdown{"20.00": 5},
		"end of day")
	require.NoError(t, err)
	cc.ID = 11
	cc.RegistryName = "Front"
	return cc
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)
	assert.Equal(t, "missing GOOGLE_SPREADSHEET_ID", err.Error())
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "abc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing Google credentials")
}

func TestNewRejectsMissingCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "abc", ServiceAccountFile: "/nonexistent/sa.json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read service account file")
}

func TestConfigFromEnvFallsBackToADCFile(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", " sheet ")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/etc/sa.json")

	cfg := ConfigFromEnv()
	assert.Equal(t, "sheet", cfg.SpreadsheetID)
	assert.Equal(t, "/etc/sa.json", cfg.ServiceAccountFile)
}

func TestRow(t *testing.T) {
	row := Row(sampleCount(t))
	assert.Equal(t, []any{"2025-03-01 18:30", "Front", "205.00", "201.00", "100.00", "200.00", "1.00", "-4.00", "end of day"}, row)
	assert.Len(t, row, len(Header))

	cc := sampleCount(t)
	cc.RegistryName = ""
	assert.Equal(t, "#2", Row(cc)[1])
}

func TestExportAppendsRow(t *testing.T) {
	var (
		mu   sync.Mutex
		path string
		got  gsheet.ValueRange
		qs   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		path = r.URL.Path
		qs = r.URL.RawQuery
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","updates":{"updatedRange":"'2025 Cash Counts'!A5:I5","updatedRows":1}}`))
	}))
	defer srv.Close()

	ex, err := New(context.Background(), Config{SpreadsheetID: "sheet-1"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	ref, err := ex.Export(context.Background(), sampleCount(t))
	require.NoError(t, err)
	assert.Equal(t, "'2025 Cash Counts'!A5:I5", ref)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, strings.HasPrefix(path, "/v4/spreadsheets/sheet-1/values/"), path)
	assert.True(t, strings.HasSuffix(path, ":append"), path)
	assert.Contains(t, qs, "valueInputOption=USER_ENTERED")
	require.Len(t, got.Values, 1)
	assert.Equal(t, "Front", got.Values[0][1])
	assert.Equal(t, "-4.00", got.Values[0][7])
}

func TestExportSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
	}))
	defer srv.Close()

	ex, err := New(context.Background(), Config{SpreadsheetID: "sheet-1", SheetName: "Ledger"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = ex.Export(context.Background(), sampleCount(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2025 Ledger")
}

func TestExportRejectsUnsavedCount(t *testing.T) {
	ex := &Exporter{}
	_, err := ex.Export(context.Background(), core.CashCount{ID: 1})
	assert.Error(t, err)

	ex = &Exporter{svc: &gsheet.Service{}}
	_, err = ex.Export(context.Background(), core.CashCount{})
	assert.Error(t, err)
}

func TestA1Range(t *testing.T) {
	assert.Equal(t, "Ledger!A:I", a1Range("Ledger", "A:I"))
	assert.Equal(t, "'2025 Cash Counts'!A:I", a1Range("2025 Cash Counts", "A:I"))
	assert.Equal(t, "'Bob''s'!A:I", a1Range("Bob's", "A:I"))
}

func TestYearPrefixedName(t *testing.T) {
	assert.Equal(t, "2025 Cash Counts", yearPrefixedName("Cash Counts", 2025))
	assert.Equal(t, "2024 Cash Counts", yearPrefixedName("2024 Cash Counts", 2025))
	assert.Equal(t, "", yearPrefixedName("  ", 2025))
}
