package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nyashahama/valentine-card/internal/card"
)

// ─── POST /api/widgets ────────────────────────────────────────────────────────

type createWidgetResponse struct {
	WidgetID uuid.UUID `json:"widgetId"`
	View     card.View `json:"view"`
}

// handleCreateWidget opens a widget session. The body is optional; every
// session field may be empty.
func (s *Server) handleCreateWidget(w http.ResponseWriter, r *http.Request) {
	var session card.Session
	if !decode(w, r, &session) {
		return
	}
	session = card.Session{
		RecipientName: strings.TrimSpace(session.RecipientName),
		RequestorName: strings.TrimSpace(session.RequestorName),
		Destination:   strings.TrimSpace(session.Destination),
	}

	id, widget := s.newWidget(session)
	respond(w, http.StatusCreated, createWidgetResponse{
		WidgetID: id,
		View:     widget.View(),
	})
}

// ─── GET /api/widgets/{widgetID} ─────────────────────────────────────────────

func (s *Server) handleGetWidget(w http.ResponseWriter, r *http.Request) {
	widget, ok := s.lookupWidget(w, r)
	if !ok {
		return
	}
	respond(w, http.StatusOK, widget.View())
}

// ─── POST /api/widgets/{widgetID}/engage ─────────────────────────────────────

// handleEngage records one attempt at the evading control and returns the
// new view. The body carries the client's viewport and control size.
func (s *Server) handleEngage(w http.ResponseWriter, r *http.Request) {
	widget, ok := s.lookupWidget(w, r)
	if !ok {
		return
	}

	var g card.Geometry
	if !decode(w, r, &g) {
		return
	}
	if g.ViewportWidth < 0 || g.ViewportHeight < 0 || g.ControlWidth < 0 || g.ControlHeight < 0 {
		respondErr(w, http.StatusBadRequest, "geometry must not be negative")
		return
	}

	respond(w, http.StatusOK, widget.Engage(g))
}

// ─── POST /api/widgets/{widgetID}/accept ─────────────────────────────────────

type acceptResponse struct {
	AlreadyAccepted bool      `json:"alreadyAccepted"`
	Dispatching     bool      `json:"dispatching"`
	View            card.View `json:"view"`
}

// handleAccept accepts the card. The first call starts the notification in
// the background and returns without waiting for it; later calls report
// alreadyAccepted.
func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	widget, ok := s.lookupWidget(w, r)
	if !ok {
		return
	}

	view, res := widget.Accept(r.Context())
	if res.Dispatching {
		s.logger.Info("card accepted, notifying sender", logField(r))
	}
	respond(w, http.StatusOK, acceptResponse{
		AlreadyAccepted: res.AlreadyAccepted,
		Dispatching:     res.Dispatching,
		View:            view,
	})
}

// ─── HELPERS ──────────────────────────────────────────────────────────────────

func (s *Server) newWidget(session card.Session) (uuid.UUID, *card.Widget) {
	widget := card.New(session, s.dispatcher,
		card.WithPadding(s.cfg.PlacementPadding),
		card.WithLogger(s.logger),
	)
	return s.widgets.Add(widget), widget
}

// lookupWidget resolves {widgetID}. Writes 400 or 404 and returns false when
// the widget cannot be used.
func (s *Server) lookupWidget(w http.ResponseWriter, r *http.Request) (*card.Widget, bool) {
	id, ok := widgetIDParam(w, r)
	if !ok {
		return nil, false
	}
	widget, err := s.widgets.Get(id)
	if errors.Is(err, card.ErrWidgetNotFound) {
		respondErr(w, http.StatusNotFound, "widget not found")
		return nil, false
	}
	if err != nil {
		s.respondInternalErr(w, r, err)
		return nil, false
	}
	return widget, true
}
