// Package preview issues signed, expiring links to draft questions.
package preview

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid preview token")

const (
	issuer     = "mindengage-curriculum"
	DefaultTTL = 24 * time.Hour
)

type Signer struct {
	hmac []byte
	now  func() time.Time
}

func NewSigner(secret string) (*Signer, error) {
	if len(secret) < 16 {
		return nil, errors.New("preview secret must be at least 16 bytes")
	}
	return &Signer{hmac: []byte(secret), now: time.Now}, nil
}

type Claims struct {
	Question string `json:"qid"`
	jwt.RegisteredClaims
}

// Issue returns a token that unlocks questionID until ttl elapses.
func (s *Signer) Issue(questionID string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := s.now()
	exp := now.Add(ttl)
	claims := &Claims{
		Question: questionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   questionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.hmac)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, exp, nil
}

// Verify returns the question ID a valid token unlocks.
func (s *Signer) Verify(token string) (string, error) {
	c := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (any, error) {
		return s.hmac, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Question == "" || c.Question != c.Subject {
		return "", fmt.Errorf("%w: missing question", ErrInvalidToken)
	}
	return c.Question, nil
}
