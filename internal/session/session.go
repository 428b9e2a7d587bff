// Package session holds the authenticated user session and the
// password-gated store initialization state machine.
package session

import (
	"fmt"
	"time"

	"github.com/gabrielpoca/journal/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Session identifies an authenticated user against the remote endpoint.
// Token is forwarded verbatim as the proxy-auth token; when it is a JWT its
// claims can additionally be inspected client-side.
type Session struct {
	Name  string
	Token string
}

// Key identifies the session for sync idempotence tracking.
func (s Session) Key() string {
	return s.Name
}

// TokenExpiry returns the token's expiry when the token is a JWT carrying
// one. The signature is deliberately not verified here: the client only uses
// the claim to warn about sessions about to lapse; the remote stays the
// authority on token validity.
func (s Session) TokenExpiry() (time.Time, error) {
	parser := jwt.NewParser()

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(s.Token, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, common.ErrInvalidToken
	}
	return exp.Time, nil
}
