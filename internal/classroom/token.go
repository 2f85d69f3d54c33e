package classroom

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// signAttendanceToken issues an HS256 token whose only claim is its expiration.
// The token proves "issued by someone holding the current session secret"; the
// scanning student's identity comes from their own authenticated session.
func signAttendanceToken(secret []byte, now time.Time, window time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(window)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// verifyAttendanceToken checks signature and expiration against the session
// secret. The secret does not rotate within a session, so validity is bounded
// solely by the token's own exp claim.
func verifyAttendanceToken(secret []byte, tokenString string) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
