package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials はパスワードが一致しない場合に返却されます。
	ErrInvalidCredentials = errors.New("admin: invalid credentials")
	// ErrUnauthorized はトークンが無い、または無効な場合に返却されます。
	ErrUnauthorized = errors.New("admin: unauthorized")
	// ErrDisabled は管理者ログインが設定されていない場合に返却されます。
	ErrDisabled = errors.New("admin: login disabled")
)

const (
	subject = "admin"
	role    = "admin"
)

// DefaultTokenTTL は管理者トークンの既定の有効期間です。
const DefaultTokenTTL = 12 * time.Hour

// TokenIssuer はトークンの発行と検証を行います。
type TokenIssuer interface {
	Sign(subject, role string, ttl time.Duration) (string, time.Time, error)
	Verify(raw string) (subject, role string, err error)
}

// Token は発行済みのトークンです。
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// UseCase は管理者認証のユースケースです。
type UseCase interface {
	Login(ctx context.Context, password string) (*Token, error)
	Authorize(ctx context.Context, token string) error
}

// Service は bcrypt ハッシュと署名付きトークンによる管理者認証です。
type Service struct {
	passwordHash []byte
	issuer       TokenIssuer
	ttl          time.Duration
}

// NewService は Service を生成します。passwordHash が空の場合はログインを受け付けません。
func NewService(passwordHash string, issuer TokenIssuer, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Service{passwordHash: []byte(strings.TrimSpace(passwordHash)), issuer: issuer, ttl: ttl}
}

// Login はパスワードを検証しトークンを発行します。
func (s *Service) Login(_ context.Context, password string) (*Token, error) {
	if len(s.passwordHash) == 0 || s.issuer == nil {
		return nil, ErrDisabled
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	value, exp, err := s.issuer.Sign(subject, role, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("admin: issue token: %w", err)
	}
	return &Token{Value: value, ExpiresAt: exp}, nil
}

// Authorize はトークンが管理者のものであることを確認します。
func (s *Service) Authorize(_ context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" || s.issuer == nil {
		return ErrUnauthorized
	}
	sub, r, err := s.issuer.Verify(token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if sub != subject || r != role {
		return ErrUnauthorized
	}
	return nil
}
