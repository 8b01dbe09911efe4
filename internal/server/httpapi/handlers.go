package httpapi

import (
	"log"
	"net/http"

	"tokengate/internal/auth"
	"tokengate/internal/i18n"
	"tokengate/internal/identity/service"
	userdomain "tokengate/internal/user/domain"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User  *userdomain.User `json:"user"`
	Token string           `json:"token"`
}

// Register handles POST /auth/register.
func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[service.RegisterInput](w, r)
	if !ok {
		a.writeMessage(w, r, http.StatusBadRequest, i18n.KeyBadRequest)
		return
	}
	u, token, err := a.identity.Register(r.Context(), req)
	if err != nil {
		a.mapIdentityError(w, r, err)
		return
	}
	a.writeCookie(w, token)
	writeJSON(w, http.StatusCreated, AuthResponse{User: u, Token: token})
}

// Login handles POST /auth/login.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[LoginRequest](w, r)
	if !ok {
		a.writeMessage(w, r, http.StatusBadRequest, i18n.KeyBadRequest)
		return
	}
	u, token, err := a.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.mapIdentityError(w, r, err)
		return
	}
	a.writeCookie(w, token)
	writeJSON(w, http.StatusOK, AuthResponse{User: u, Token: token})
}

// User handles GET /auth/user.
func (a *API) User(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())
	u, err := a.identity.CurrentUser(id)
	if err != nil {
		a.writeMessage(w, r, http.StatusUnauthorized, i18n.KeyUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Logout handles POST /auth/logout. The session is revoked and the cookie cleared.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())
	if err := a.identity.Logout(r.Context(), id); err != nil {
		log.Printf("httpapi: logout: %v", err)
		a.writeMessage(w, r, http.StatusInternalServerError, i18n.KeyServer)
		return
	}
	a.clearCookie(w)
	writeJSON(w, http.StatusOK, struct{}{})
}

// Healthz handles GET /healthz.
func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	if a.health != nil {
		if err := a.health.Check(r.Context()); err != nil {
			log.Printf("httpapi: health: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
