// Package security builds the security context passed through to handlers.
// Nothing here enforces anything: the mock server surfaces the operation's
// declared requirements and a best-effort decode of any bearer token so
// custom handlers can branch on identity during development.
package security

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Requirement is one named security scheme with its required scopes, taken
// from the OpenAPI operation (or document default).
type Requirement struct {
	Scheme string   `json:"scheme"`
	Scopes []string `json:"scopes,omitempty"`
}

// Context is the security information exposed on the handler context.
type Context struct {
	// Requirements are the operation's declared security requirements.
	Requirements []Requirement `json:"requirements,omitempty"`

	// BearerToken is the raw token from the Authorization header, if any.
	BearerToken string `json:"-"`

	// Claims holds the decoded JWT claims when the bearer token parses as
	// a JWT. The signature is NOT verified — this is development
	// convenience, not authentication.
	Claims map[string]any `json:"claims,omitempty"`
}

// FromAuthorization builds a Context from an Authorization header value and
// the operation's requirements. Non-bearer or non-JWT tokens simply leave
// Claims empty.
func FromAuthorization(authorization string, requirements []Requirement) *Context {
	sc := &Context{Requirements: requirements}

	const prefix = "bearer "
	if len(authorization) <= len(prefix) || !strings.EqualFold(authorization[:len(prefix)], prefix) {
		return sc
	}
	sc.BearerToken = strings.TrimSpace(authorization[len(prefix):])

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(sc.BearerToken, claims); err != nil {
		return sc
	}
	sc.Claims = map[string]any(claims)
	return sc
}
