package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken はトークンが不正または期限切れの場合に返却されます。
var ErrInvalidToken = errors.New("auth: invalid token")

// Claims は管理者トークンのクレームです。
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Signer は HS256 でトークンを署名・検証します。
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner は Signer を生成します。
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// Sign は subject と role を含むトークンを発行します。
func (s *Signer) Sign(subject, role string, ttl time.Duration) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("auth: signing secret is empty")
	}
	now := s.now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse はトークンを検証してクレームを返します。
func (s *Signer) Parse(raw string) (*Claims, error) {
	if len(s.secret) == 0 || raw == "" {
		return nil, ErrInvalidToken
	}
	t, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, ErrInvalidToken
	}
	return c, nil
}

// Verify はトークンを検証して subject と role を返します。
func (s *Signer) Verify(raw string) (string, string, error) {
	c, err := s.Parse(raw)
	if err != nil {
		return "", "", err
	}
	return c.Subject, c.Role, nil
}
