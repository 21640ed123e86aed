// Command cashcount-sheets-auth runs the OAuth consent flow once and saves
// the user token the export worker reads from GOOGLE_OAUTH_TOKEN_FILE.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"cashcount/internal/cli"
	"cashcount/internal/config"
	gsheet "cashcount/internal/sheets/google"
)

const (
	authTimeout      = 5 * time.Minute
	defaultTokenFile = "token.json"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("sheets-auth")
	cfg := cli.LoadAndValidateConfig(logger, func(c *config.Config) error {
		if c.GoogleOAuthClientJSON == "" && c.GoogleOAuthClientFile == "" {
			return gsheet.ErrNoOAuthClient
		}
		return nil
	})

	client, err := gsheet.ReadOAuthClient(cfg.GoogleOAuthClientJSON, cfg.GoogleOAuthClientFile)
	if err != nil {
		cli.Fatal(logger, "Failed to read OAuth client", err)
	}
	// the redirect URI must be registered on the OAuth client
	redirectURL := "http://localhost:" + cfg.OAuthRedirectPort + "/callback"
	conf, err := gsheet.OAuthConfig(client, redirectURL)
	if err != nil {
		cli.Fatal(logger, "Failed to build OAuth config", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	ln, err := net.Listen("tcp", "localhost:"+cfg.OAuthRedirectPort)
	if err != nil {
		cli.Fatal(logger, "Failed to listen for the OAuth callback", err, "port", cfg.OAuthRedirectPort)
	}

	state := uuid.NewString()
	fmt.Printf("Open this URL to authorize:\n%s\n", gsheet.AuthCodeURL(conf, state))

	tok, err := authorize(ctx, ln, conf, state)
	if err != nil {
		cli.Fatal(logger, "Authorization failed", err)
	}

	out := cfg.GoogleOAuthTokenFile
	if out == "" {
		out = defaultTokenFile
	}
	if err := gsheet.SaveToken(out, tok); err != nil {
		cli.Fatal(logger, "Failed to save token", err, "path", out)
	}
	logger.Info("Saved OAuth token", "path", out)
}

type callbackResult struct {
	code string
	err  error
}

// authorize serves the redirect on ln until one callback arrives, then
// exchanges its code.
func authorize(ctx context.Context, ln net.Listener, conf *oauth2.Config, state string) (*oauth2.Token, error) {
	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.Handle("GET /callback", callbackHandler(state, results))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.New("authorization timed out")
		}
		return nil, ctx.Err()
	case res := <-results:
		if res.err != nil {
			return nil, res.err
		}
		tok, err := conf.Exchange(ctx, res.code)
		if err != nil {
			return nil, fmt.Errorf("token exchange: %w", err)
		}
		return tok, nil
	}
}

// callbackHandler reports the first callback on results. Later callbacks
// get 409.
func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res callbackResult
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("OAuth error: %s", q.Get("error"))
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		case q.Get("code") == "":
			res.err = errors.New("callback carried no code")
		default:
			res.code = q.Get("code")
		}

		select {
		case results <- res:
		default:
			http.Error(w, "authorization already handled", http.StatusConflict)
			return
		}
		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
	})
}
