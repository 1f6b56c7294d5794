// Package session signs the identity access tokens and session cookies of
// the development server.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type TokenUse string

const (
	UseAccess  TokenUse = "access"
	UseSession TokenUse = "session"
)

var ErrWrongTokenUse = errors.New("token used for the wrong purpose")

type Claims struct {
	Email string   `json:"email,omitempty"`
	Name  string   `json:"name,omitempty"`
	Use   TokenUse `json:"token_use"`
	jwt.RegisteredClaims
}

// Identity is what the identity provider asserts about a user.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

type Issuer struct {
	secret    []byte
	accessTTL time.Duration
	cookieTTL time.Duration
	now       func() time.Time
}

func NewIssuer(secret string, accessTTL, sessionTTL time.Duration) *Issuer {
	return &Issuer{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		cookieTTL: sessionTTL,
		now:       time.Now,
	}
}

func (i *Issuer) AccessTTL() time.Duration  { return i.accessTTL }
func (i *Issuer) SessionTTL() time.Duration { return i.cookieTTL }

func (i *Issuer) IssueAccessToken(id Identity) (string, error) {
	return i.issue(id, UseAccess, i.accessTTL)
}

func (i *Issuer) IssueSessionToken(id Identity) (string, error) {
	return i.issue(id, UseSession, i.cookieTTL)
}

func (i *Issuer) ValidateAccessToken(token string) (*Claims, error) {
	return i.validate(token, UseAccess)
}

func (i *Issuer) ValidateSessionToken(token string) (*Claims, error) {
	return i.validate(token, UseSession)
}

func (i *Issuer) issue(id Identity, use TokenUse, ttl time.Duration) (string, error) {
	if id.Subject == "" {
		return "", errors.New("identity subject is required")
	}
	now := i.now()
	claims := Claims{
		Email: id.Email,
		Name:  id.Name,
		Use:   use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

func (i *Issuer) validate(tokenString string, use TokenUse) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Use != use {
		return nil, ErrWrongTokenUse
	}
	return claims, nil
}

// Identity returns the identity the claims were issued for.
func (c *Claims) Identity() Identity {
	return Identity{Subject: c.Subject, Email: c.Email, Name: c.Name}
}
