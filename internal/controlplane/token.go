package controlplane

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// expirySkew treats tokens about to expire as already expired.
const expirySkew = 30 * time.Second

// TokenExpired reports whether a stored session token should be replaced by
// a fresh login.
//
// The signature is not verified: the agent only needs the exp claim, and
// the control plane remains the authority on validity. Tokens that are not
// JWTs, or JWTs without exp, are assumed to be valid.
func TokenExpired(token string, now time.Time) bool {
	if token == "" {
		return true
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Add(expirySkew).Before(claims.ExpiresAt.Time)
}
