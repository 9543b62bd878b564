package accounts

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStore() *MemoryStore { return NewMemoryStore(zap.NewNop().Sugar()) }

func TestCustomerNameIsCaseInsensitivePerTenant(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	acme, err := s.CreateCustomer(ctx, Customer{Name: "ACME", TenantID: "t1"})
	require.NoError(t, err)
	require.NotEmpty(t, acme.ID)

	_, err = s.CreateCustomer(ctx, Customer{Name: "acme ", TenantID: "t1"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.CreateCustomer(ctx, Customer{Name: "Acme", TenantID: "t2"})
	assert.NoError(t, err, "same name in another tenant is a different customer")

	got, err := s.CustomerByName(ctx, "t1", "aCmE")
	require.NoError(t, err)
	assert.Equal(t, acme.ID, got.ID)

	_, err = s.CustomerByName(ctx, "t3", "acme")
	assert.ErrorIs(t, err, ErrNotFound)

	byID, err := s.CustomerByID(ctx, acme.ID)
	require.NoError(t, err)
	assert.Equal(t, "ACME", byID.Name)
}

func TestUserCompoundKey(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	u1, err := s.CreateUser(ctx, User{Email: "jane@x.com", TenantID: "t1", Role: "USER"})
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, User{Email: "Jane@X.com", TenantID: "t1", Role: "USER"})
	assert.ErrorIs(t, err, ErrConflict)

	u2, err := s.CreateUser(ctx, User{Email: "jane@x.com", TenantID: "t2", Role: "USER"})
	require.NoError(t, err)
	assert.NotEqual(t, u1.ID, u2.ID)

	got, err := s.UserByEmail(ctx, "t2", "JANE@x.com")
	require.NoError(t, err)
	assert.Equal(t, u2.ID, got.ID)

	_, users := s.Counts()
	assert.Equal(t, 2, users)
}

func TestUpdateUserOnlyTouchesGivenFields(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	u, err := s.CreateUser(ctx, User{Email: "a@b.c", Name: "A", Avatar: "pic", Role: "USER", TenantID: "t"})
	require.NoError(t, err)

	name, role := "Alice", "ADMIN"
	out, err := s.UpdateUser(ctx, u.ID, UserChanges{Name: &name, Role: &role})
	require.NoError(t, err)
	assert.Equal(t, "Alice", out.Name)
	assert.Equal(t, "ADMIN", out.Role)
	assert.Equal(t, "pic", out.Avatar)

	_, err = s.UpdateUser(ctx, "missing", UserChanges{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMapErr(t *testing.T) {
	assert.ErrorIs(t, mapErr(pgx.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, mapErr(&pgconn.PgError{Code: "23505"}), ErrConflict)
	other := errors.New("boom")
	assert.Equal(t, other, mapErr(other))
	assert.True(t, UserChanges{}.Empty())
}
