package httpapi

import (
	"log"
	"net/http"
	"time"

	"tokengate/internal/auth"
	"tokengate/internal/i18n"
)

// DefaultCookieName is the token cookie used when none is configured.
const DefaultCookieName = "jwt"

// RequireAuth validates the request credential against scopes. On accept the identity is
// attached to the request context; on reject the cookie is cleared when the outcome says so.
func (a *API) RequireAuth(scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := a.validator.ValidateCredential(r.Context(), a.credential(r), scopes)
			if err != nil {
				log.Printf("httpapi: validate credential: %v", err)
				a.writeMessage(w, r, http.StatusInternalServerError, i18n.KeyServer)
				return
			}
			if res.ClearCredential {
				a.clearCookie(w)
			}
			if !res.Accepted() {
				status := http.StatusForbidden
				if res.Reject.Unauthenticated() {
					status = http.StatusUnauthorized
				}
				a.writeMessage(w, r, status, res.Reject.MessageKey())
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), res.Identity)))
		})
	}
}

// credential collects the token cookie and every Authorization header value.
func (a *API) credential(r *http.Request) auth.Credential {
	var cred auth.Credential
	if c, err := r.Cookie(a.cookie.Name); err == nil {
		cred.Cookie = c.Value
	}
	cred.Header = r.Header.Values("Authorization")
	return cred
}

func (a *API) writeCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cookie.Name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (a *API) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cookie.Name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   a.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}
