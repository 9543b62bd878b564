package accounts

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// startPostgres runs a throwaway postgres container and returns a migrated store.
// The test is skipped when Docker is not available.
func startPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests skipped in -short mode")
	}
	ctx := context.Background()

	var (
		container testcontainers.Container
		err       error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("docker setup panicked: %v", r)
			}
		}()
		container, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "postgres:16-alpine",
				ExposedPorts: []string{"5432/tcp"},
				Env: map[string]string{
					"POSTGRES_PASSWORD": "secret",
					"POSTGRES_DB":       "accounts",
				},
				WaitingFor: wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60 * time.Second),
			},
			Started: true,
		})
	}()
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://postgres:secret@%s:%s/accounts?sslmode=disable", host, port.Port())
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, EnsureSchema(ctx, pool))
	require.NoError(t, EnsureSchema(ctx, pool), "schema must be re-runnable")
	return NewPostgresStore(pool, zap.NewNop().Sugar())
}

func TestPostgresCustomers(t *testing.T) {
	store := startPostgres(t)
	ctx := context.Background()

	acme, err := store.CreateCustomer(ctx, Customer{Name: "ACME", TenantID: "acme"})
	require.NoError(t, err)
	assert.NotEmpty(t, acme.ID)

	found, err := store.CustomerByName(ctx, "acme", " acme ")
	require.NoError(t, err)
	assert.Equal(t, acme.ID, found.ID)
	assert.Equal(t, "ACME", found.Name)

	_, err = store.CreateCustomer(ctx, Customer{Name: "Acme", TenantID: "acme"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = store.CreateCustomer(ctx, Customer{Name: "ACME", TenantID: "other"})
	require.NoError(t, err)

	byID, err := store.CustomerByID(ctx, acme.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme", byID.TenantID)

	_, err = store.CustomerByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.CustomerByName(ctx, "acme", "globex")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresUsers(t *testing.T) {
	store := startPostgres(t)
	ctx := context.Background()

	cust, err := store.CreateCustomer(ctx, Customer{Name: "ACME", TenantID: "t1"})
	require.NoError(t, err)

	u, err := store.CreateUser(ctx, User{Email: "Jane@ACME.de", Name: "Jane", Avatar: "http://a", Role: "USER", TenantID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, "jane@acme.de", u.Email)
	assert.Empty(t, u.CustomerID)

	_, err = store.CreateUser(ctx, User{Email: "jane@acme.de", Role: "USER", TenantID: "t1"})
	assert.ErrorIs(t, err, ErrConflict)

	other, err := store.CreateUser(ctx, User{Email: "jane@acme.de", Role: "USER", TenantID: "t2"})
	require.NoError(t, err)
	assert.NotEqual(t, u.ID, other.ID)

	name, custID := "Jane Doe", cust.ID
	updated, err := store.UpdateUser(ctx, u.ID, UserChanges{Name: &name, CustomerID: &custID})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", updated.Name)
	assert.Equal(t, "http://a", updated.Avatar)
	assert.Equal(t, "USER", updated.Role)
	assert.Equal(t, cust.ID, updated.CustomerID)

	role := "ADMIN"
	updated, err = store.UpdateUser(ctx, u.ID, UserChanges{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", updated.Role)
	assert.Equal(t, cust.ID, updated.CustomerID)

	got, err := store.UserByEmail(ctx, "t1", "JANE@acme.de")
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	_, err = store.UserByEmail(ctx, "t3", "jane@acme.de")
	assert.ErrorIs(t, err, ErrNotFound)
}
