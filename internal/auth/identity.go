package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sankofa-trivia/backend/internal/models"
)

type contextKey string

const identityKey contextKey = "identity"

var ErrInvalidToken = errors.New("invalid token")

// Claims carried by session tokens minted by the identity provider.
type Claims struct {
	JoinedAt int64 `json:"joined_at"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 session tokens. It never issues them.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) Parse(tokenStr string) (models.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return models.Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return models.Identity{}, ErrInvalidToken
	}

	ident := models.Identity{ID: claims.Subject}
	if claims.JoinedAt > 0 {
		ident.JoinedAt = time.Unix(claims.JoinedAt, 0).UTC()
	}
	return ident, nil
}

func WithIdentity(ctx context.Context, ident models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

func FromContext(ctx context.Context) (models.Identity, bool) {
	ident, ok := ctx.Value(identityKey).(models.Identity)
	return ident, ok && ident.ID != ""
}
