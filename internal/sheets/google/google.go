// Package google exports cash counts to a Google Sheets ledger.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"cashcount/internal/core"
	"cashcount/internal/ports"
)

const (
	defaultSheetName = "Cash Counts"
	dateLayout       = "2006-01-02 15:04"
)

// Header is the first row written to a fresh sheet.
var Header = []any{"Date", "Registry", "Reported", "Actual", "Leftover", "Bills", "Coins", "Over/Short", "Note"}

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	// base sheet name without year; rows go to "<year> <base>" by count date
	sheetBase string
}

var _ ports.CashCountExporter = (*Exporter)(nil)

type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string

	// OAuth user credentials, used when no service account is set.
	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenFile  string
}

// ConfigFromEnv reads GOOGLE_SPREADSHEET_ID, GOOGLE_SHEET_NAME, the
// service account from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS, and the GOOGLE_OAUTH_* user credentials.
func ConfigFromEnv() Config {
	cfg := Config{
		SpreadsheetID:      strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		SheetName:          strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME")),
		ServiceAccountJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		ServiceAccountFile: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
		OAuthClientJSON:    strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON")),
		OAuthClientFile:    strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE")),
		OAuthTokenFile:     strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")),
	}
	if cfg.ServiceAccountJSON == "" && cfg.ServiceAccountFile == "" {
		cfg.ServiceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return cfg
}

// New creates an exporter. Extra client options are appended after the
// credentials, which lets tests point the service at a local endpoint.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Exporter, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	base := cfg.SheetName
	if base == "" {
		base = defaultSheetName
	}

	svc, err := newSheetsService(ctx, cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Exporter{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheetBase: base}, nil
}

func newSheetsService(ctx context.Context, cfg Config, extra []goption.ClientOption) (*gsheet.Service, error) {
	var opts []goption.ClientOption
	ts, err := tokenSource(ctx, cfg)
	switch {
	case err != nil:
		return nil, err
	case ts != nil:
		// the pooled client carries the credentials itself
		opts = append(opts, goption.WithHTTPClient(newHTTPClientWithPooling(ts)))
	case len(extra) == 0:
		return nil, errors.New("missing Google credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_OAUTH_TOKEN_FILE)")
	}
	opts = append(opts, extra...)

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// tokenSource picks the service account first, then OAuth user credentials.
// It returns nil when cfg names no credentials.
func tokenSource(ctx context.Context, cfg Config) (oauth2.TokenSource, error) {
	switch {
	case cfg.ServiceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		return serviceAccountTokenSource(ctx, []byte(cfg.ServiceAccountJSON))
	case cfg.ServiceAccountFile != "":
		b, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Using service account file", "path", cfg.ServiceAccountFile)
		return serviceAccountTokenSource(ctx, b)
	case cfg.OAuthTokenFile != "":
		client, err := ReadOAuthClient(cfg.OAuthClientJSON, cfg.OAuthClientFile)
		if err != nil {
			return nil, err
		}
		conf, err := OAuthConfig(client, "")
		if err != nil {
			return nil, err
		}
		tok, err := LoadToken(cfg.OAuthTokenFile)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Using OAuth user token", "path", cfg.OAuthTokenFile)
		return conf.TokenSource(ctx, tok), nil
	}
	return nil, nil
}

func serviceAccountTokenSource(ctx context.Context, b []byte) (oauth2.TokenSource, error) {
	creds, err := googleauth.CredentialsFromJSON(ctx, b, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	return creds.TokenSource, nil
}

// newHTTPClientWithPooling keeps connections to the Sheets API warm between
// exports.
func newHTTPClientWithPooling(ts oauth2.TokenSource) *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Transport: &oauth2.Transport{Source: ts, Base: transport},
		Timeout:   60 * time.Second,
	}
}

// Export appends one row for cc and returns the updated A1 range.
func (e *Exporter) Export(ctx context.Context, cc core.CashCount) (string, error) {
	if e.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if cc.ID <= 0 {
		return "", errors.New("cash count has no id")
	}

	sheet := yearPrefixedName(e.sheetBase, cc.DateCounted.Year())
	rng := a1Range(sheet, "A:I")
	vr := &gsheet.ValueRange{Values: [][]any{Row(cc)}}

	resp, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", sheet, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	slog.InfoContext(ctx, "Exported cash count",
		"cash_count_id", cc.ID,
		"sheet", sheet,
		"range", ref)
	return ref, nil
}

// Row renders cc in Header column order. Amounts are fixed two-decimal
// strings that Sheets parses as numbers.
func Row(cc core.CashCount) []any {
	registry := cc.RegistryName
	if registry == "" {
		registry = "#" + strconv.FormatInt(cc.RegistryID, 10)
	}
	return []any{
		cc.DateCounted.UTC().Format(dateLayout),
		registry,
		core.FormatAmount(cc.ReportedAmount),
		core.FormatAmount(cc.ActualTotal),
		core.FormatAmount(cc.LeftoverTotal),
		core.FormatAmount(cc.BillsTotal),
		core.FormatAmount(cc.CoinsTotal),
		core.FormatAmount(cc.OverShort),
		cc.Note,
	}
}

// a1Range quotes sheet names that need it.
func a1Range(sheet, cells string) string {
	if strings.ContainsAny(sheet, " '!") {
		sheet = "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	}
	return sheet + "!" + cells
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
