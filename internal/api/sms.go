package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/nyashahama/valentine-card/internal/card"
	"github.com/nyashahama/valentine-card/internal/notify"
	"github.com/nyashahama/valentine-card/internal/sms"
)

// ─── POST /api/send-sms ───────────────────────────────────────────────────────

// handleSendSMS sends the acceptance SMS to the sender's phone and waits for
// the delivery result. Cards rendered outside this service (the terminal
// card) notify through here.
func (s *Server) handleSendSMS(w http.ResponseWriter, r *http.Request) {
	var req notify.Request
	if !decode(w, r, &req) {
		return
	}

	n := card.Notification{
		Destination:   strings.TrimSpace(req.PhoneNumber),
		SenderName:    strings.TrimSpace(req.RequestorName),
		RecipientName: strings.TrimSpace(req.RecipientName),
	}
	if n.Destination == "" {
		respond(w, http.StatusBadRequest, notify.Response{Error: card.ErrDestinationRequired.Error()})
		return
	}

	id, err := s.dispatcher.Dispatch(r.Context(), n)
	switch {
	case err != nil && r.Context().Err() != nil:
		// The route deadline fired or the client went away. The Timeout
		// middleware answers 504 for a deadline; nothing is written here.
		s.logger.Warn("send sms: request ended before delivery finished", "error", err, logField(r))

	case err == nil:
		s.logger.Info("sms sent", "delivery_id", id, logField(r))
		respond(w, http.StatusOK, notify.Response{Success: true, DeliveryID: id})

	case errors.Is(err, sms.ErrNotConfigured):
		s.logger.Error("sms requested but service not configured", logField(r))
		respond(w, http.StatusInternalServerError, notify.Response{Error: "SMS service not configured"})

	case errors.Is(err, card.ErrDestinationRequired):
		respond(w, http.StatusBadRequest, notify.Response{Error: err.Error()})

	default:
		s.logger.Error("send sms", "error", err, logField(r))
		respond(w, http.StatusBadGateway, notify.Response{Error: "failed to send SMS"})
	}
}
