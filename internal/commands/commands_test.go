package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashcount/internal/core"
)

// fakeAPI serves the handful of endpoints cashctl calls for user alice/pw.
type fakeAPI struct {
	mu         sync.Mutex
	registries []map[string]any
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if u, p, ok := r.BasicAuth(); !ok || u != "alice" || p != "pw" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method + " " + r.URL.Path {
	case "GET /api/login":
		w.WriteHeader(http.StatusOK)
	case "GET /api/registries":
		_ = json.NewEncoder(w).Encode(f.registries)
	case "POST /api/registries":
		var body struct {
			Name string `json:"name"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		reg := map[string]any{"id": len(f.registries) + 1, "name": body.Name}
		f.registries = append(f.registries, reg)
		_ = json.NewEncoder(w).Encode(reg)
	case "GET /api/cash_counts":
		_, _ = w.Write([]byte(`[{"id":7,"registry_id":1,"date_counted":"2025-03-01T18:30:00Z",
			"reported_amount":200,"actual_breakdown":{"100.00":2,"0.25":4},"actual_total":201,
			"leftover_breakdown":{},"leftover_total":0,"over_short":1,"note":"close",
			"billsTotal":200,"coinsTotal":1,"leftoverBillsTotal":0,"leftoverCoinsTotal":0}]`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type harness struct {
	apiURL    string
	configDir string
}

func newHarness(t *testing.T) harness {
	t.Helper()
	api := &fakeAPI{registries: []map[string]any{{"id": 1, "name": "Front"}}}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return harness{apiURL: srv.URL, configDir: t.TempDir()}
}

func (h harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--api", h.apiURL, "--config-dir", h.configDir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestLoginSavesCredentials(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "pw\n", "login", "-u", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as alice")

	info, err := os.Stat(filepath.Join(h.configDir, "credentials.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = h.run(t, "", "logout")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(h.configDir, "credentials.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestLoginRejected(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "", "login", "-u", "alice", "-p", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login failed")

	_, err = os.Stat(filepath.Join(h.configDir, "credentials.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestCommandsRequireLogin(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "", "registries", "list")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestRegistries(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "", "login", "-u", "alice", "-p", "pw")
	require.NoError(t, err)

	out, err := h.run(t, "", "registries", "create", "Drive", "thru")
	require.NoError(t, err)
	assert.Contains(t, out, "Created registry 2: Drive thru")

	out, err = h.run(t, "", "registries", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Front")
	assert.Contains(t, out, "Drive thru")

	_, err = h.run(t, "", "registries", "create", "x")
	assert.Error(t, err)
}

func TestCountsList(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "", "login", "-u", "alice", "-p", "pw")
	require.NoError(t, err)

	out, err := h.run(t, "", "counts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Front")
	assert.Contains(t, out, "201.00")
	assert.Contains(t, out, "+1.00")
	assert.Contains(t, out, "close")
}

func TestReconcile(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "reconcile",
		"--actual", "100=2", "--actual", "0.25=4",
		"--leftover", "1=5",
		"--reported", "200")
	require.NoError(t, err)
	assert.Contains(t, out, "Actual total:    201.00")
	assert.Contains(t, out, "Leftover total:  5.00")
	assert.Contains(t, out, "Over/short:      +1.00 (over)")

	_, err = h.run(t, "", "reconcile", "--actual", "100")
	assert.Error(t, err)
	_, err = h.run(t, "", "reconcile", "--actual", "100=-1")
	assert.Error(t, err)
}

func TestParseQuantitiesLastWins(t *testing.T) {
	b, err := parseQuantities([]string{"20=1", "20.00=3"})
	require.NoError(t, err)
	assert.Equal(t, 3, b["20.00"])

	_, err = parseQuantities([]string{"0.005=1"})
	assert.ErrorIs(t, err, core.ErrInvalidDenomination)
}
