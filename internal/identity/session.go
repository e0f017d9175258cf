package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the authenticated user of the current request.
type Session struct {
	UserID   string
	FamilyID string
}

type sessionKey struct{}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session attached to ctx.
func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// Claims are the bearer token claims: sub is the user id, fam the family.
type Claims struct {
	FamilyID string `json:"fam,omitempty"`
	jwt.RegisteredClaims
}

// ErrInvalidToken reports a bearer token that failed verification.
var ErrInvalidToken = errors.New("invalid session token")

// ParseToken verifies an HS256 token and returns its session.
func ParseToken(secret []byte, token string) (Session, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return Session{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if claims.FamilyID == "" {
		return Session{}, fmt.Errorf("%w: missing family", ErrInvalidToken)
	}
	return Session{UserID: claims.Subject, FamilyID: claims.FamilyID}, nil
}

// SignToken issues an HS256 token for s.
func SignToken(secret []byte, s Session, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = s.UserID
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{FamilyID: s.FamilyID, RegisteredClaims: claims})
	return t.SignedString(secret)
}
