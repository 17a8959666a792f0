package user

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/user/entity"
)

type fakeStore struct {
	users map[uuid.UUID]*entity.User
	err   error
}

func newFakeStore() *fakeStore { return &fakeStore{users: map[uuid.UUID]*entity.User{}} }

func (f *fakeStore) Create(_ context.Context, u *entity.User) error {
	if f.err != nil {
		return f.err
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) SetActive(_ context.Context, id uuid.UUID, active bool) (bool, error) {
	u, ok := f.users[id]
	if !ok {
		return false, nil
	}
	u.IsActive = active
	return true, nil
}

func TestCreate_NormalizesEmail(t *testing.T) {
	svc := NewUserService(nil, newFakeStore())
	u, err := svc.Create(context.Background(), "  Runner@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "runner@example.com", u.Email)
	assert.True(t, u.IsActive)
	assert.NotEqual(t, uuid.Nil, u.ID)
}

func TestCreate_RejectsBadEmail(t *testing.T) {
	svc := NewUserService(nil, newFakeStore())
	for _, in := range []string{"", "nobody", "Name <x@example.com>"} {
		_, err := svc.Create(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidEmail, in)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	svc := NewUserService(nil, newFakeStore())
	_, err := svc.Create(context.Background(), "a@example.com")
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), "A@example.com")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestCreate_StoreError(t *testing.T) {
	st := newFakeStore()
	st.err = errors.New("boom")
	_, err := NewUserService(nil, st).Create(context.Background(), "a@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create user")
}

func TestGetAndDeactivate(t *testing.T) {
	svc := NewUserService(nil, newFakeStore())
	ctx := context.Background()

	_, err := svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, svc.Deactivate(ctx, uuid.New()), ErrUserNotFound)

	u, err := svc.Create(ctx, "a@example.com")
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, u.ID))

	got, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}
