package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultTokenTTL = 60 * time.Minute

// SessionClaims identify a user and nothing else. The role is never
// carried in the token; it is read from the store on every request.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// SessionIssuer mints and checks session tokens.
type SessionIssuer interface {
	Issue(userID string) (token string, claims *SessionClaims, err error)
	Parse(token string) (*SessionClaims, error)
}

// JWTIssuer signs HS256 tokens.
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewJWTIssuer returns an issuer. A non-positive ttl falls back to one hour.
func NewJWTIssuer(secret string, ttl time.Duration, issuer string) *JWTIssuer {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &JWTIssuer{secret: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}
}

// Issue creates a signed token for userID with a fresh token id.
func (j *JWTIssuer) Issue(userID string) (string, *SessionClaims, error) {
	if userID == "" {
		return "", nil, errors.New("issuing token: empty user id")
	}

	now := j.now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    j.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", nil, fmt.Errorf("signing access token: %w", err)
	}
	return signed, claims, nil
}

// Parse validates signature, expiry and issuer. Every failure wraps
// ErrTokenInvalid.
func (j *JWTIssuer) Parse(tokenString string) (*SessionClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.now),
		jwt.WithExpirationRequired(),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(_ *jwt.Token) (any, error) {
		return j.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing token id", ErrTokenInvalid)
	}
	return claims, nil
}
