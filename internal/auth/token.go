package auth

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token verification failures. Callers that don't care which one occurred
// can treat any of them as an invalid token.
var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenSignature = errors.New("token signature invalid")
	ErrTokenExpired   = errors.New("token expired")
)

// TokenCodec issues and verifies compact HS512-signed tokens whose subject
// is a user id. The signing key is fixed for the codec's lifetime and may be
// shared across goroutines.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenCodec(secret []byte, ttl time.Duration) *TokenCodec {
	return &TokenCodec{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs claims {sub: userID, iat: now, exp: now + ttl} and returns the
// compact URL-safe encoding.
func (c *TokenCodec) Issue(userID int) (string, error) {
	now := c.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return token.SignedString(c.secret)
}

// Verify recomputes the signature, checks expiry, and returns the user id
// from the subject claim. A token is valid only strictly before its expiry.
func (c *TokenCodec) Verify(tokenString string) (int, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		&claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return 0, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return 0, ErrTokenSignature
	default:
		return 0, ErrTokenMalformed
	}
	if !token.Valid {
		return 0, ErrTokenSignature
	}

	userID, err := strconv.Atoi(strings.TrimSpace(claims.Subject))
	if err != nil || userID < 1 {
		return 0, ErrTokenMalformed
	}
	return userID, nil
}
