package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// widgetIDParam parses the {widgetID} route parameter. Returns false and
// writes 400 if it is not a UUID.
func widgetIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "widgetID"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid widget id")
		return uuid.Nil, false
	}
	return id, true
}
