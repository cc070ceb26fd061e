package talim

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpiry reads the exp claim of a bearer token without verifying its
// signature. The backend remains the authority on token validity; the peek
// only lets the bootstrapper skip a doomed identity fetch for a token that
// is unambiguously past its expiry.
func tokenExpiry(token string) (time.Time, bool) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// tokenExpired reports whether the token carries an exp claim in the past.
// Malformed tokens and tokens without exp report false; they go to the
// backend for the authoritative answer.
func tokenExpired(token string, now time.Time) bool {
	exp, ok := tokenExpiry(token)
	if !ok {
		return false
	}
	return exp.Before(now)
}
