package util

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid or expired access token")
	ErrMissingSecret = errors.New("jwt secret is not configured")
)

// AccessClaims identifies the user behind an authenticated request.
type AccessClaims struct {
	jwt.RegisteredClaims
}

// UserID parses the numeric user id carried in the subject claim.
func (c *AccessClaims) UserID() (uint64, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// AccessTokenSigner issues and verifies HS256 access tokens so handlers stay small.
type AccessTokenSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAccessTokenSigner returns a signer for tokens valid for ttl.
func NewAccessTokenSigner(secret []byte, ttl time.Duration) *AccessTokenSigner {
	return &AccessTokenSigner{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue mints an access token for userID.
func (s *AccessTokenSigner) Issue(userID uint64) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrMissingSecret
	}

	now := s.now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks signature and validity window and returns the requester id.
func (s *AccessTokenSigner) Verify(raw string) (uint64, error) {
	if len(s.secret) == 0 {
		return 0, ErrMissingSecret
	}

	token, err := jwt.ParseWithClaims(raw, &AccessClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return 0, ErrInvalidToken
	}
	return claims.UserID()
}
