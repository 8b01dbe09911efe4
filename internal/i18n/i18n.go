// Package i18n translates user-facing error messages. Supported languages are English and
// Spanish; the language for a request is matched from its Accept-Language header.
package i18n

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys.
const (
	KeyUnauthorized = "errors.unauthorized"
	KeyForbidden    = "errors.forbidden"
	KeyServer       = "errors.server"
	KeyUserExists   = "auth.userExists"
	KeyNotFoundUser = "auth.notFoundUser"
	KeyWrongPass    = "auth.wrongPassword"
	KeyBadRequest   = "errors.badRequest"
)

var messages = map[string]map[string]string{
	"en": {
		KeyUnauthorized: "Unauthorized",
		KeyForbidden:    "Forbidden",
		KeyServer:       "Internal server error",
		KeyUserExists:   "User already exists",
		KeyNotFoundUser: "User not found",
		KeyWrongPass:    "Wrong password",
		KeyBadRequest:   "Invalid request",
	},
	"es": {
		KeyUnauthorized: "No autorizado",
		KeyForbidden:    "Acceso denegado",
		KeyServer:       "Error interno del servidor",
		KeyUserExists:   "El usuario ya existe",
		KeyNotFoundUser: "Usuario no encontrado",
		KeyWrongPass:    "Contraseña incorrecta",
		KeyBadRequest:   "Solicitud inválida",
	},
}

// Translator resolves message keys for a negotiated language.
type Translator struct {
	supported []language.Tag
	matcher   language.Matcher
	catalog   catalog.Catalog
}

// New builds a Translator whose fallback language is defaultLang ("en" when empty).
func New(defaultLang string) (*Translator, error) {
	if defaultLang == "" {
		defaultLang = "en"
	}
	def, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("i18n: default language: %w", err)
	}
	base, _ := def.Base()
	if _, ok := messages[base.String()]; !ok {
		return nil, fmt.Errorf("i18n: unsupported default language %q", defaultLang)
	}
	def = language.Make(base.String())

	b := catalog.NewBuilder(catalog.Fallback(def))
	// The matcher returns the first supported tag when nothing matches.
	supported := []language.Tag{def}
	for code, msgs := range messages {
		tag := language.Make(code)
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("i18n: %s %s: %w", code, key, err)
			}
		}
		if code != base.String() {
			supported = append(supported, tag)
		}
	}
	return &Translator{supported: supported, matcher: language.NewMatcher(supported), catalog: b}, nil
}

// Match picks the supported language for an Accept-Language header value.
func (t *Translator) Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return t.supported[0]
	}
	_, idx, _ := t.matcher.Match(tags...)
	return t.supported[idx]
}

// Translate returns the message for key in lang. Unknown keys are returned unchanged.
func (t *Translator) Translate(lang language.Tag, key string) string {
	return message.NewPrinter(lang, message.Catalog(t.catalog)).Sprintf(key)
}

// T is Translate with the language matched from acceptLanguage.
func (t *Translator) T(acceptLanguage, key string) string {
	return t.Translate(t.Match(acceptLanguage), key)
}
