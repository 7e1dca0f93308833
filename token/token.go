// Package token provides read-only helpers around the session's access
// token: claim inspection for diagnostics and an oauth2.TokenSource
// adapter for interop with other API clients.
//
// The access token is treated as opaque by all session control flow; the
// helpers here are best-effort and tolerate non-JWT tokens.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-auth-client/session"
)

// ExpiryOf extracts the exp claim from a JWT access token without
// verifying its signature (the client holds no keys). Returns false for
// opaque tokens or tokens without an exp claim.
func ExpiryOf(raw string) (time.Time, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// SubjectOf extracts the sub claim from a JWT access token without
// verifying its signature. Returns "" for opaque tokens.
func SubjectOf(raw string) string {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return ""
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}

type sessionSource struct {
	store *session.Store
}

// Source adapts the session store to an oauth2.TokenSource so libraries
// built on golang.org/x/oauth2 can consume the session's credential. The
// store is re-read on every Token call; renewal stays the coordinator's
// job.
func Source(store *session.Store) oauth2.TokenSource {
	return sessionSource{store: store}
}

// Token implements oauth2.TokenSource.
func (s sessionSource) Token() (*oauth2.Token, error) {
	raw := s.store.AccessToken()
	if raw == "" {
		return nil, errors.New("[sessionSource.Token] no access token in session")
	}

	tok := &oauth2.Token{
		AccessToken: raw,
		TokenType:   "Bearer",
	}
	if exp, ok := ExpiryOf(raw); ok {
		tok.Expiry = exp
	}
	return tok, nil
}
