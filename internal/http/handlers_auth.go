package http

import (
	"errors"
	"net/http"
	"strings"

	"cashcount/internal/api"
	"cashcount/internal/core"
)

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))
	if _, ok := sessionFrom(r.Context()); ok {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", pageData{
		Title:   "Login",
		Active:  "login",
		Content: loginView{Next: next},
	})
}

// handleLogin verifies the credentials with the API and stores them in a
// new session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if errResp := ParseFormOrFail(r); errResp != nil {
		errResp.Write(w)
		return
	}
	creds := core.Credentials{
		Username: strings.TrimSpace(r.PostForm.Get("username")),
		Password: r.PostForm.Get("password"),
	}
	next := safeNext(r.PostForm.Get("next"))

	sess, err := s.auth.Login(r.Context(), creds)
	s.sl.LogLogin(r.Context(), creds.Username, err)
	if err != nil {
		status, msg := loginFailure(err)
		if status == http.StatusUnauthorized {
			s.appMetrics.loginFailures.Add(1)
		}
		s.render(w, r, status, "login.html", pageData{
			Title:   "Login",
			Active:  "login",
			Content: loginView{Username: creds.Username, Next: next, Error: msg},
		})
		return
	}

	s.setCookie(w, sess)
	s.redirect(w, r, next)
}

func loginFailure(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrEmptyUsername), errors.Is(err, core.ErrEmptyPassword):
		return http.StatusUnprocessableEntity, "Username and password are required."
	case errors.Is(err, api.ErrUnauthorized):
		return http.StatusUnauthorized, "Invalid username or password."
	case errors.Is(err, api.ErrRequestFailed):
		return http.StatusBadGateway, msgAPIUnavailable
	default:
		return http.StatusInternalServerError, "Login failed. Please try again."
	}
}

// handleLogout clears the credential record and the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if err := s.auth.Logout(r.Context(), c.Value); err != nil {
			s.logger.ErrorContext(r.Context(), "Logout failed", "error", err)
		}
	}
	s.clearCookie(w)
	s.redirect(w, r, "/login")
}
