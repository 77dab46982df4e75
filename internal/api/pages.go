package api

import (
	"bytes"
	"net/http"

	"github.com/google/uuid"

	"github.com/nyashahama/valentine-card/internal/card"
	"github.com/nyashahama/valentine-card/internal/share"
	"github.com/nyashahama/valentine-card/internal/web"
)

type indexPage struct {
	Form   share.Form
	Errors share.FieldErrors
	Styles []share.Style
}

type cardPage struct {
	WidgetID uuid.UUID
	View     card.View
}

// ─── GET / ────────────────────────────────────────────────────────────────────

// handleIndex renders the sender's form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, web.PageIndex, indexPage{
		Form:   share.Form{Style: share.DefaultStyle},
		Styles: share.Styles,
	})
}

// ─── POST /cards ──────────────────────────────────────────────────────────────

// handleCreateCard validates the form and redirects to the card link. On
// validation failure the form is re-rendered with the entered values.
func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 16<<10)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	form := share.Form{
		RequestorName: r.PostForm.Get("requestorName"),
		RecipientName: r.PostForm.Get("recipientName"),
		PhoneNumber:   r.PostForm.Get("phoneNumber"),
		Style:         r.PostForm.Get("style"),
	}

	link, err := share.Link(s.cfg.BaseURL, form)
	if err != nil {
		if fe, ok := share.AsFieldErrors(err); ok {
			s.render(w, r, http.StatusBadRequest, web.PageIndex, indexPage{
				Form:   form.Normalize(),
				Errors: fe,
				Styles: share.Styles,
			})
			return
		}
		s.logger.Error("build card link", "error", err, logField(r))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	s.logger.Info("card link created", "style", form.Normalize().Style, logField(r))
	http.Redirect(w, r, link, http.StatusSeeOther)
}

// ─── GET /card ────────────────────────────────────────────────────────────────

// handleCard opens a fresh widget session for the link's parameters and
// renders the card page bound to it.
func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	params := share.ParseParams(r.URL.Query())
	id, widget := s.newWidget(params.Session)

	w.Header().Set("Cache-Control", "no-store")
	s.render(w, r, http.StatusOK, web.PageCard, cardPage{
		WidgetID: id,
		View:     widget.View(),
	})
}

// render buffers the page so a template error still produces a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	var buf bytes.Buffer
	if err := s.pages.Render(&buf, page, data); err != nil {
		s.logger.Error("render page", "page", page, "error", err, logField(r))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
