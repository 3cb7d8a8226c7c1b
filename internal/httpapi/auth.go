package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/siddharthsadhu/BookMyLook-sub003/internal/models"
	"github.com/siddharthsadhu/BookMyLook-sub003/internal/store"
)

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (models.Session, bool) {
	sessionID := bearerToken(r.Header.Get("Authorization"))
	if sessionID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session token")
		return models.Session{}, false
	}
	session, err := h.store.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid session")
			return models.Session{}, false
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return models.Session{}, false
	}
	return session, true
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}
