package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-health-ingest/internal/user/repo"
)

// Store is the persistence the service needs; *userrepo.UserRepo satisfies it.
type Store interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error)
}

var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidEmail = errors.New("invalid email")
	ErrEmailTaken   = errors.New("email already registered")
)

// UserService manages the user lifecycle.
type UserService struct {
	repo Store
}

func NewUserService(db *sqlx.DB, r Store) *UserService {
	if r == nil {
		r = userrepo.NewUserRepo(db)
	}
	return &UserService{repo: r}
}

// Create provisions an active user with a normalized email.
func (s *UserService) Create(ctx context.Context, email string) (*entity.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return nil, ErrInvalidEmail
	}
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	u := &entity.User{Email: email, IsActive: true}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// Deactivate disables a user; their keys stop authenticating immediately.
func (s *UserService) Deactivate(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.SetActive(ctx, id, false)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}
