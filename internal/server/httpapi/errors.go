package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"tokengate/internal/i18n"
	"tokengate/internal/identity/service"
)

const maxBodySize = 1 << 16

// MessageResponse is the body of every error response.
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (a *API) writeMessage(w http.ResponseWriter, r *http.Request, status int, key string) {
	msg := key
	if a.translator != nil {
		msg = a.translator.T(r.Header.Get("Accept-Language"), key)
	}
	writeJSON(w, status, MessageResponse{Message: msg})
}

func decodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		return v, false
	}
	return v, true
}

// mapIdentityError writes the response for a Register or Login failure.
func (a *API) mapIdentityError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case service.IsValidationError(err):
		writeJSON(w, http.StatusBadRequest, MessageResponse{Message: err.Error()})
	case errors.Is(err, service.ErrEmailAlreadyRegistered):
		a.writeMessage(w, r, http.StatusBadRequest, i18n.KeyUserExists)
	case errors.Is(err, service.ErrUserNotFound):
		a.writeMessage(w, r, http.StatusBadRequest, i18n.KeyNotFoundUser)
	case errors.Is(err, service.ErrWrongPassword):
		a.writeMessage(w, r, http.StatusBadRequest, i18n.KeyWrongPass)
	default:
		log.Printf("httpapi: %s %s: %v", r.Method, r.URL.Path, err)
		a.writeMessage(w, r, http.StatusInternalServerError, i18n.KeyServer)
	}
}
