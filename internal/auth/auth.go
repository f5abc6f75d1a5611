// Package auth verifies externally-issued bearer tokens. Token issuance
// belongs to the account service; this side only checks signatures and
// resolves the subject against the user directory.
package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/minhtq/quizchat/internal/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrUnknownUser  = errors.New("unknown user")
)

// Claims mirrors the token payload produced by the account service.
type Claims struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Directory resolves user ids to live account records.
type Directory interface {
	GetUser(ctx context.Context, id domain.UserID) (*domain.User, error)
}

type Verifier struct {
	secret []byte
	issuer string
	dir    Directory
}

func NewVerifier(secret, issuer string, dir Directory) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, dir: dir}
}

// Authenticate validates the token and returns the directory record for its
// subject. The directory is authoritative for name and role, so a stale token
// cannot keep a renamed or demoted account alive.
func (v *Verifier) Authenticate(ctx context.Context, tokenString string) (*domain.User, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	user, err := v.dir.GetUser(ctx, domain.UserID(claims.Subject))
	if err != nil {
		return nil, ErrUnknownUser
	}
	return user, nil
}
