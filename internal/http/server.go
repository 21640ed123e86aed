// Package http serves the cash count web front end: server-rendered pages,
// htmx partials and the ops endpoints.
package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	applog "cashcount/internal/log"
	"cashcount/internal/middleware/ratelimit"
	"cashcount/internal/middleware/security"
	"cashcount/internal/middleware/trace"
	"cashcount/internal/services"
	appweb "cashcount/web"
)

// HealthCheck reports whether a dependency is ready.
type HealthCheck func(ctx context.Context) error

// Services bundles what the handlers call into.
type Services struct {
	Auth       *services.AuthService
	Registries *services.RegistryService
	CashCounts *services.CashCountService
}

// Options tunes the server. The zero value is usable.
type Options struct {
	CookieSecure       bool
	RateLimitPerMinute int
	// Location renders and parses form dates; defaults to time.Local.
	Location *time.Location
	Checks   map[string]HealthCheck
	// CacheEntries reports the registry cache size for /metrics.
	CacheEntries func() int
	Logger       *applog.Logger
}

type Server struct {
	http.Server
	pages    map[string]*template.Template
	partials *template.Template

	auth       *services.AuthService
	registries *services.RegistryService
	counts     *services.CashCountService

	logger       *applog.Logger
	sl           *applog.StructuredLogger
	cookieSecure bool
	loc          *time.Location
	checks       map[string]HealthCheck
	cacheEntries func() int
	now          func() time.Time

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime            time.Time
	cashCountsCreated atomic.Int64
	registriesCreated atomic.Int64
	loginFailures     atomic.Int64
}

var pageTemplates = []string{
	"home.html",
	"login.html",
	"registries.html",
	"cash_counts.html",
	"cash_count_new.html",
}

// NewServer parses templates and wires routes and middleware.
func NewServer(addr string, svc Services, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	pages, partials, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	detector := security.NewDetector()
	s := &Server{
		pages:            pages,
		partials:         partials,
		auth:             svc.Auth,
		registries:       svc.Registries,
		counts:           svc.CashCounts,
		logger:           logger,
		sl:               applog.NewStructuredLogger(logger),
		cookieSecure:     opts.CookieSecure,
		loc:              loc,
		checks:           opts.Checks,
		cacheEntries:     opts.CacheEntries,
		now:              time.Now,
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
	}
	s.appMetrics.uptime = time.Now()

	mux := http.NewServeMux()
	s.routes(mux)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.traceMiddleware.Middleware(detector.Middleware(headers.Middleware(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	limit := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimited)
	limited := func(h http.HandlerFunc) http.Handler { return limit(h) }

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.Handle("GET /{$}", security.NoStore(s.withSession(s.handleIndex)))
	mux.Handle("GET /login", security.NoStore(s.withSession(s.handleLoginPage)))
	mux.Handle("POST /login", limited(s.handleLogin))
	mux.Handle("POST /logout", http.HandlerFunc(s.handleLogout))

	mux.Handle("GET /registries", security.NoStore(s.requireSession(s.handleRegistries)))
	mux.Handle("POST /registries", limited(s.requireSession(s.handleCreateRegistry)))

	mux.Handle("GET /cash_counts", security.NoStore(s.requireSession(s.handleCashCounts)))
	mux.Handle("GET /cash_counts/new", security.NoStore(s.requireSession(s.handleNewCashCount)))
	mux.Handle("POST /cash_counts", limited(s.requireSession(s.handleCreateCashCount)))

	// totals partial, posted on every keystroke; no session or rate limit
	mux.HandleFunc("POST /ui/reconcile", s.handleReconcile)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
}

func loadTemplates() (map[string]*template.Template, *template.Template, error) {
	pages := make(map[string]*template.Template, len(pageTemplates))
	for _, page := range pageTemplates {
		t, err := template.New(page).Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS,
			"templates/layout.html",
			"templates/partials/*.html",
			"templates/"+page)
		if err != nil {
			return nil, nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		pages[page] = t
	}
	partials, err := template.New("partials").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/partials/*.html")
	if err != nil {
		return nil, nil, fmt.Errorf("parse partials: %w", err)
	}
	return pages, partials, nil
}

// render executes a full page into a buffer first so template errors never
// leave a half-written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	if sess, ok := sessionFrom(r.Context()); ok {
		data.User = sess.Credentials.Username
	}
	t, ok := s.pages[page]
	if !ok {
		s.logger.ErrorContext(r.Context(), "Unknown page template", "template", page)
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			"error", err,
			"template", page,
			applog.FieldComponent, applog.ComponentTemplate)
		http.Error(w, "error rendering page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderPartial writes one named partial through b, which carries status
// and HX-Trigger events.
func (s *Server) renderPartial(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	var buf bytes.Buffer
	if err := s.partials.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Partial execution failed",
			"error", err,
			"template", name,
			applog.FieldComponent, applog.ComponentTemplate)
		InternalServerError("Error rendering response").Write(w)
		return
	}
	b.BodyHTML(buf.String()).Write(w)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please wait a moment and try again.").Write(w)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
