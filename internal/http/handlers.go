package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cashcount/internal/api"
	applog "cashcount/internal/log"
	"cashcount/internal/session"
)

const (
	sessionCookie = "cashcount_session"

	msgAPIUnavailable = "Could not reach the cash count service. Please try again."
)

type sessionKey struct{}

// sessionFrom returns the session attached by withSession or requireSession.
func sessionFrom(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(session.Session)
	return sess, ok
}

func (s *Server) loadSession(r *http.Request) (session.Session, error) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return session.Session{}, session.ErrNotFound
	}
	return s.auth.Resolve(r.Context(), c.Value)
}

// withSession attaches the session when there is one and never redirects.
func (s *Server) withSession(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sess, err := s.loadSession(r); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess))
		}
		h(w, r)
	}
}

// requireSession sends anonymous users to the login page, remembering
// where they were going.
func (s *Server) requireSession(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.loadSession(r)
		if err != nil {
			if errors.Is(err, session.ErrExpired) {
				s.clearCookie(w)
			} else if !errors.Is(err, session.ErrNotFound) {
				s.logger.ErrorContext(r.Context(), "Session lookup failed",
					"error", err,
					applog.FieldComponent, applog.ComponentAuth)
			}
			s.redirectToLogin(w, r)
			return
		}
		h(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	}
}

func (s *Server) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := "/login"
	next := r.URL.Path
	if r.Method != http.MethodGet {
		next = r.Header.Get("HX-Current-URL")
		if u, err := url.Parse(next); err == nil {
			next = u.Path
		}
	}
	if safeNext(next) != "/" {
		target += "?next=" + url.QueryEscape(next)
	}
	s.redirect(w, r, target)
}

// redirect uses HX-Redirect for htmx requests so the whole page navigates.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, target string) {
	if isHTMX(r) {
		NewHTMXResponse().Redirect(target).Write(w)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) setCookie(w http.ResponseWriter, sess session.Session) {
	c := &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if !sess.ExpiresAt.IsZero() {
		c.Expires = sess.ExpiresAt
	}
	http.SetCookie(w, c)
}

func (s *Server) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionRejected handles API errors that mean the stored credentials no
// longer work: the session is dropped and the user sent back to login.
// It reports whether a response was written.
func (s *Server) sessionRejected(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, api.ErrUnauthorized) && !errors.Is(err, api.ErrNotAuthenticated) {
		return false
	}
	if sess, ok := sessionFrom(r.Context()); ok {
		if lerr := s.auth.Logout(r.Context(), sess.ID); lerr != nil {
			s.logger.WarnContext(r.Context(), "Failed to drop rejected session", "error", lerr)
		}
	}
	s.logger.WarnContext(r.Context(), "API rejected stored credentials",
		"error", err,
		applog.FieldComponent, applog.ComponentAuth)
	s.clearCookie(w)
	s.redirectToLogin(w, r)
	return true
}

func (s *Server) logAPIError(r *http.Request, msg, op string, err error) {
	fields := applog.NewFields()
	if sess, ok := sessionFrom(r.Context()); ok {
		fields.WithUser(sess.Credentials.Username)
	}
	s.sl.LogError(r.Context(), msg, err, applog.ComponentAPI, op, fields)
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	if strings.HasPrefix(next, "/login") || strings.HasPrefix(next, "/logout") {
		return "/"
	}
	return next
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "home.html", pageData{Title: "Home", Active: "home"})
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady runs every registered dependency check with a shared deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any, len(s.checks)+2)

	if len(s.pages) == 0 || s.partials == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			checks[name] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	cacheEntries := 0
	if s.cacheEntries != nil {
		cacheEntries = s.cacheEntries()
	}

	w.WriteHeader(http.StatusOK)
	writeMetric(w, "http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	writeMetric(w, "http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	writeMetric(w, "http_requests_in_flight", "gauge", "Requests currently being served", traceMetrics.InFlight)
	writeMetric(w, "http_response_time_avg_microseconds", "gauge", "Average response time", traceMetrics.AverageResponseTime)
	writeMetric(w, "cash_counts_created_total", "counter", "Cash counts accepted by the API", s.appMetrics.cashCountsCreated.Load())
	writeMetric(w, "registries_created_total", "counter", "Registries accepted by the API", s.appMetrics.registriesCreated.Load())
	writeMetric(w, "login_failures_total", "counter", "Rejected login attempts", s.appMetrics.loginFailures.Load())
	writeMetric(w, "registry_cache_entries", "gauge", "Cached registry lists", int64(cacheEntries))
	writeMetric(w, "rate_limit_rejected_total", "counter", "Requests rejected by the rate limiter", rateLimitMetrics.Rejected)
	writeMetric(w, "active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", int64(rateLimitMetrics.ClientCount))
	writeMetric(w, "suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	writeMetric(w, "blocked_requests_total", "counter", "Requests blocked by method filtering", securityMetrics.BlockedRequests)
	writeMetric(w, "uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.appMetrics.uptime).Seconds()))
}

func writeMetric(w http.ResponseWriter, name, kind, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %d\n\n", name, help, name, kind, name, value)
}
