package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"cashcount/internal/core"
	applog "cashcount/internal/log"
)

func (s *Server) handleCashCounts(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	counts, err := s.counts.List(r.Context(), sess.Credentials)
	if err != nil {
		if s.sessionRejected(w, r, err) {
			return
		}
		s.logAPIError(r, "Failed to list cash counts", applog.OpList, err)
		s.render(w, r, http.StatusBadGateway, "cash_counts.html", pageData{
			Title:   "All Cash Counts",
			Active:  "cash_counts",
			Error:   msgAPIUnavailable,
			Content: cashCountsView{},
		})
		return
	}

	now := s.now()
	view := cashCountsView{Rows: make([]cashCountRow, 0, len(counts))}
	for _, cc := range counts {
		view.Rows = append(view.Rows, newCashCountRow(cc, now, s.loc))
	}
	s.render(w, r, http.StatusOK, "cash_counts.html", pageData{
		Title:   "All Cash Counts",
		Active:  "cash_counts",
		Content: view,
	})
}

func (s *Server) handleNewCashCount(w http.ResponseWriter, r *http.Request) {
	regs, ok := s.formRegistries(w, r)
	if !ok {
		return
	}
	view := newCashCountFormView(cashCountForm{}, regs, s.now(), s.loc)
	if id, err := strconv.ParseInt(r.URL.Query().Get("created"), 10, 64); err == nil && id > 0 {
		view.Created = id
	}
	s.render(w, r, http.StatusOK, "cash_count_new.html", newCashCountPage(view))
}

// handleCreateCashCount validates and submits a count. On success htmx gets
// a fresh form and a cash-count:created event; plain posts are redirected.
func (s *Server) handleCreateCashCount(w http.ResponseWriter, r *http.Request) {
	if errResp := ParseFormOrFail(r); errResp != nil {
		errResp.Write(w)
		return
	}
	sess, _ := sessionFrom(r.Context())
	f := parseCashCountForm(r.PostForm, s.now(), s.loc)

	if !f.Valid() {
		s.respondCashCountForm(w, r, http.StatusUnprocessableEntity, f, "Please fix the highlighted fields.", 0)
		return
	}

	cc, err := s.counts.Create(r.Context(), sess.Credentials, f.Input())
	if err != nil {
		if s.sessionRejected(w, r, err) {
			return
		}
		if msg := cashCountMessage(err); msg != "" {
			s.respondCashCountForm(w, r, http.StatusUnprocessableEntity, f, msg, 0)
			return
		}
		s.logAPIError(r, "Failed to create cash count", applog.OpCreate, err)
		s.respondCashCountForm(w, r, http.StatusBadGateway, f, msgAPIUnavailable, 0)
		return
	}

	s.appMetrics.cashCountsCreated.Add(1)
	s.sl.LogCashCountCreated(r.Context(), sess.Credentials.Username, cc)

	if !isHTMX(r) {
		http.Redirect(w, r, "/cash_counts/new?created="+strconv.FormatInt(cc.ID, 10), http.StatusSeeOther)
		return
	}
	s.respondCashCountForm(w, r, http.StatusOK, cashCountForm{}, "", cc.ID)
}

// respondCashCountForm renders the form partial for htmx or the full page
// otherwise. A zero f with created set is the reset form after a success.
func (s *Server) respondCashCountForm(w http.ResponseWriter, r *http.Request, status int, f cashCountForm, errMsg string, created int64) {
	regs, ok := s.formRegistries(w, r)
	if !ok {
		return
	}
	view := newCashCountFormView(f, regs, s.now(), s.loc)
	view.Error = errMsg
	view.Created = created

	if !isHTMX(r) {
		s.render(w, r, status, "cash_count_new.html", newCashCountPage(view))
		return
	}
	b := NewHTMXResponse().Status(status)
	if created > 0 {
		b.TriggerCashCountCreated(created).
			TriggerFormReset().
			TriggerSuccessNotification(fmt.Sprintf("Created cash count with ID: %d", created))
	}
	s.renderPartial(w, r, b, "cash_count_form", view)
}

// formRegistries loads the registry options. A failed load still renders
// the form, with an empty selector, unless the session was rejected.
func (s *Server) formRegistries(w http.ResponseWriter, r *http.Request) ([]core.Registry, bool) {
	sess, _ := sessionFrom(r.Context())
	regs, err := s.registries.List(r.Context(), sess.Credentials)
	if err != nil {
		if s.sessionRejected(w, r, err) {
			return nil, false
		}
		s.logAPIError(r, "Failed to load registries for form", applog.OpList, err)
		return nil, true
	}
	return regs, true
}

// handleReconcile re-renders the totals panel from the current inputs.
// Parse errors are shown inside the panel, so the status is always 200.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if errResp := ParseFormOrFail(r); errResp != nil {
		errResp.Write(w)
		return
	}
	totals := newTotalsView(parseReconcileForm(r.PostForm))
	s.renderPartial(w, r, NewHTMXResponse(), "totals", totals)
}

func newCashCountPage(view cashCountFormView) pageData {
	return pageData{Title: "Create New Cash Count", Active: "new_cash_count", Content: view}
}

func cashCountMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrMissingRegistry):
		return "Select a registry."
	case errors.Is(err, core.ErrMissingDate):
		return "Enter the date counted."
	case errors.Is(err, core.ErrNoteTooLong):
		return "Note is too long."
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidQuantity),
		errors.Is(err, core.ErrInvalidDenomination):
		return "Check the amounts entered: " + err.Error()
	default:
		return ""
	}
}
