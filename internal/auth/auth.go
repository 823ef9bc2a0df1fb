// Package auth issues and validates the HS256 identity tokens carried by
// requesters and responders.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"floodrescue/backend/internal/apperr"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuerName = "floodrescue-service"

// Role is what a token holder may do.
type Role string

const (
	RoleRequester Role = "requester"
	RoleResponder Role = "responder"
)

func (r Role) Valid() bool {
	return r == RoleRequester || r == RoleResponder
}

// Claims are the token claims. Subject is the anon id of a requester or the
// account id of a responder.
type Claims struct {
	Role  Role   `json:"role"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for subject.
func (i *Issuer) Issue(subject string, role Role, name, phone string) (string, error) {
	if subject == "" || !role.Valid() {
		return "", apperr.Validation("auth.Issue", "subject and a known role are required")
	}
	now := i.now()
	claims := Claims{
		Role:  role,
		Name:  name,
		Phone: phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuerName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// NewAnonID creates a fresh requester identity and its token.
func (i *Issuer) NewAnonID() (anonID, token string, err error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", "", fmt.Errorf("generate anon id: %w", err)
	}
	token, err = i.Issue(id.String(), RoleRequester, "", "")
	if err != nil {
		return "", "", err
	}
	return id.String(), token, nil
}

// Validate parses a signed token. Every failure is Unauthorized.
func (i *Issuer) Validate(tokenString string) (*Claims, error) {
	const op = "auth.Validate"
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, op, err)
	}
	if claims.Subject == "" {
		return nil, apperr.Wrap(apperr.KindUnauthorized, op, errors.New("token has no subject"))
	}
	if !claims.Role.Valid() {
		return nil, apperr.Unauthorized(op, "unknown role %q", claims.Role)
	}
	return claims, nil
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
