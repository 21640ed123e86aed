package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cashcount/internal/core"
	applog "cashcount/internal/log"
)

func (s *Server) handleRegistries(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	regs, err := s.registries.List(r.Context(), sess.Credentials)
	if err != nil {
		if s.sessionRejected(w, r, err) {
			return
		}
		s.logAPIError(r, "Failed to list registries", applog.OpList, err)
		s.render(w, r, http.StatusBadGateway, "registries.html", registriesPage(registriesView{}, msgAPIUnavailable))
		return
	}
	s.render(w, r, http.StatusOK, "registries.html", registriesPage(registriesView{Registries: regs}, ""))
}

// handleCreateRegistry creates a registry. htmx requests get the refreshed
// list partial; plain posts are redirected back to the page.
func (s *Server) handleCreateRegistry(w http.ResponseWriter, r *http.Request) {
	if errResp := ParseFormOrFail(r); errResp != nil {
		errResp.Write(w)
		return
	}
	sess, _ := sessionFrom(r.Context())
	name := sanitizeInput(r.PostForm.Get(fieldName))

	reg, err := s.registries.Create(r.Context(), sess.Credentials, name)
	if err != nil {
		if s.sessionRejected(w, r, err) {
			return
		}
		status, msg := http.StatusUnprocessableEntity, registryNameMessage(err)
		if msg == "" {
			s.logAPIError(r, "Failed to create registry", applog.OpCreate, err)
			status, msg = http.StatusBadGateway, msgAPIUnavailable
		}
		s.respondRegistries(w, r, status, registriesView{Name: name, Error: msg}, nil)
		return
	}

	s.appMetrics.registriesCreated.Add(1)
	s.logger.InfoContext(r.Context(), "Registry created",
		applog.FieldRegistryID, reg.ID,
		applog.FieldRegistryName, reg.Name,
		applog.FieldUser, sess.Credentials.Username)
	s.respondRegistries(w, r, http.StatusOK, registriesView{}, &reg)
}

// respondRegistries reloads the list and renders it with view's form state.
func (s *Server) respondRegistries(w http.ResponseWriter, r *http.Request, status int, view registriesView, created *core.Registry) {
	sess, _ := sessionFrom(r.Context())
	if !isHTMX(r) && created != nil {
		http.Redirect(w, r, "/registries", http.StatusSeeOther)
		return
	}
	regs, err := s.registries.List(r.Context(), sess.Credentials)
	if err != nil {
		if s.sessionRejected(w, r, err) {
			return
		}
		s.logAPIError(r, "Failed to list registries", applog.OpList, err)
		if view.Error == "" {
			view.Error = msgAPIUnavailable
		}
	}
	view.Registries = regs

	if !isHTMX(r) {
		s.render(w, r, status, "registries.html", registriesPage(view, ""))
		return
	}
	b := NewHTMXResponse().Status(status)
	if created != nil {
		b.TriggerRegistryCreated(created.ID, created.Name).
			TriggerSuccessNotification(fmt.Sprintf("Registry %q created.", created.Name))
	}
	s.renderPartial(w, r, b, "registry_panel", view)
}

func registriesPage(view registriesView, errMsg string) pageData {
	return pageData{Title: "Registries", Active: "registries", Error: errMsg, Content: view}
}

func registryNameMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrRegistryNameShort):
		return "Registry name must be at least 2 characters."
	case errors.Is(err, core.ErrRegistryNameLong):
		return "Registry name is too long."
	case strings.Contains(err.Error(), "already exists"):
		return "A registry with that name already exists."
	default:
		return ""
	}
}
