// Package auth resolves API keys presented as bearer credentials and
// manages their lifecycle.
package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/auth/entity"
	keyrepo "github.com/ovaphlow/pitchfork/service-health-ingest/internal/auth/repo"
	userentity "github.com/ovaphlow/pitchfork/service-health-ingest/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-health-ingest/internal/user/repo"
)

const (
	keyPrefix  = "hk_"
	displayLen = 11
)

var (
	ErrMissingKey   = errors.New("missing api key")
	ErrInvalidKey   = errors.New("invalid api key")
	ErrExpiredKey   = errors.New("api key expired")
	ErrInactiveUser = errors.New("user inactive")
	ErrKeyNotFound  = errors.New("api key not found")
)

// KeyStore is the api_keys persistence; *keyrepo.KeyRepo satisfies it.
type KeyStore interface {
	Create(ctx context.Context, k *entity.APIKey) error
	GetByHash(ctx context.Context, hash string) (*entity.APIKey, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.APIKey, error)
	Revoke(ctx context.Context, id uuid.UUID) (bool, error)
	TouchLastUsed(ctx context.Context, id uuid.UUID) error
}

// UserLookup loads key owners; *userrepo.UserRepo satisfies it.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*userentity.User, error)
}

// Service issues and authenticates API keys.
type Service struct {
	keys   KeyStore
	users  UserLookup
	hasher KeyHasher
	log    *zap.SugaredLogger
	now    func() time.Time
}

func NewService(keys KeyStore, users UserLookup, hasher KeyHasher, log *zap.SugaredLogger) *Service {
	return &Service{keys: keys, users: users, hasher: hasher, log: log, now: time.Now}
}

// NewServiceDB wires the sqlx repositories.
func NewServiceDB(db *sqlx.DB, pepper string, log *zap.SugaredLogger) *Service {
	return NewService(keyrepo.NewKeyRepo(db), userrepo.NewUserRepo(db), NewArgon2Hasher(pepper), log)
}

// KeyOptions are the optional attributes of a new key.
type KeyOptions struct {
	ExpiresAt        *time.Time
	RateLimitPerHour *int
	Permissions      json.RawMessage
}

// CreateKey issues a key for an active user. The returned secret is shown once.
func (s *Service) CreateKey(ctx context.Context, userID uuid.UUID, name string, opts KeyOptions) (string, *entity.APIKey, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, fmt.Errorf("user %s: %w", userID, sql.ErrNoRows)
		}
		return "", nil, err
	}
	if !u.IsActive {
		return "", nil, ErrInactiveUser
	}
	if opts.RateLimitPerHour != nil && *opts.RateLimitPerHour <= 0 {
		return "", nil, errors.New("rate limit override must be > 0")
	}
	secret, err := newSecret()
	if err != nil {
		return "", nil, err
	}
	k := &entity.APIKey{
		ID:               uuid.New(),
		UserID:           userID,
		Name:             strings.TrimSpace(name),
		KeyHash:          s.hasher.Hash(secret),
		KeyPrefix:        secret[:displayLen],
		IsActive:         true,
		Permissions:      opts.Permissions,
		RateLimitPerHour: opts.RateLimitPerHour,
		ExpiresAt:        opts.ExpiresAt,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.keys.Create(ctx, k); err != nil {
		return "", nil, fmt.Errorf("create key: %w", err)
	}
	return secret, k, nil
}

func (s *Service) RevokeKey(ctx context.Context, id uuid.UUID) error {
	ok, err := s.keys.Revoke(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrKeyNotFound
	}
	return nil
}

func (s *Service) ListKeys(ctx context.Context, userID uuid.UUID) ([]entity.KeyView, error) {
	keys, err := s.keys.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]entity.KeyView, 0, len(keys))
	for i := range keys {
		out = append(out, keys[i].View())
	}
	return out, nil
}

// Authenticate resolves an Authorization header value to a user and key.
func (s *Service) Authenticate(ctx context.Context, header string) (*AuthContext, error) {
	secret, err := bearer(header)
	if err != nil {
		return nil, err
	}
	k, err := s.keys.GetByHash(ctx, s.hasher.Hash(secret))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidKey
		}
		return nil, fmt.Errorf("lookup key: %w", err)
	}
	if !k.IsActive {
		return nil, ErrInvalidKey
	}
	if k.Expired(s.now()) {
		return nil, ErrExpiredKey
	}
	u, err := s.users.GetByID(ctx, k.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidKey
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !u.IsActive {
		return nil, ErrInactiveUser
	}
	if err := s.keys.TouchLastUsed(ctx, k.ID); err != nil {
		s.log.Warnw("touch last_used_at failed", "key_id", k.ID, "err", err)
	}
	return &AuthContext{User: u, Key: k}, nil
}

// IsAuthError reports whether err should be answered with 401.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrMissingKey) || errors.Is(err, ErrInvalidKey) ||
		errors.Is(err, ErrExpiredKey) || errors.Is(err, ErrInactiveUser)
}

func bearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingKey
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrInvalidKey
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingKey
	}
	return token, nil
}

func newSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return keyPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}
