// pkg/accounts/postgres.go
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"docklytask/pkg/db"
)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	dbPool *pgxpool.Pool      // Connection pool to PostgreSQL
	log    *zap.SugaredLogger // Logger for diagnostic output
}

// NewPostgresStore constructs a PostgreSQL-backed account store.
func NewPostgresStore(dbPool *pgxpool.Pool, log *zap.SugaredLogger) *PostgresStore {
	return &PostgresStore{dbPool: dbPool, log: log}
}

// EnsureSchema creates the customers/users tables and their compound unique indexes.
// Safe to call repeatedly (idempotent).
func EnsureSchema(ctx context.Context, dbPool *pgxpool.Pool) error {
	_, err := dbPool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS customers (
  id uuid PRIMARY KEY,
  name text NOT NULL,
  tenant_id text NOT NULL,
  created_at timestamptz NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS users (
  id uuid PRIMARY KEY,
  email text NOT NULL,
  name text NOT NULL DEFAULT '',
  avatar text NOT NULL DEFAULT '',
  role text NOT NULL,
  tenant_id text NOT NULL,
  customer_id uuid REFERENCES customers(id) ON DELETE SET NULL,
  created_at timestamptz NOT NULL DEFAULT NOW(),
  updated_at timestamptz NOT NULL DEFAULT NOW()
);
-- Compound natural keys; the repository relies on these to detect racing creates
CREATE UNIQUE INDEX IF NOT EXISTS customers_tenant_lower_name_idx ON customers(tenant_id, lower(name));
CREATE UNIQUE INDEX IF NOT EXISTS users_tenant_lower_email_idx ON users(tenant_id, lower(email));
`)
	return err
}

const customerCols = `id::text, name, tenant_id, created_at`
const userCols = `id::text, email, name, avatar, role, tenant_id, COALESCE(customer_id::text,''), created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	if err := row.Scan(&c.ID, &c.Name, &c.TenantID, &c.CreatedAt); err != nil {
		return Customer{}, mapErr(err)
	}
	return c, nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Avatar, &u.Role, &u.TenantID, &u.CustomerID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return User{}, mapErr(err)
	}
	return u, nil
}

// CustomerByID ignores ids that are not uuids instead of letting postgres reject them.
func (p *PostgresStore) CustomerByID(ctx context.Context, id string) (Customer, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Customer{}, ErrNotFound
	}
	return scanCustomer(p.dbPool.QueryRow(ctx, `SELECT `+customerCols+` FROM customers WHERE id=$1`, id))
}

func (p *PostgresStore) CustomerByName(ctx context.Context, tenantID, name string) (Customer, error) {
	return scanCustomer(p.dbPool.QueryRow(ctx,
		`SELECT `+customerCols+` FROM customers WHERE tenant_id=$1 AND lower(name)=lower($2)`,
		tenantID, strings.TrimSpace(name)))
}

func (p *PostgresStore) CreateCustomer(ctx context.Context, c Customer) (Customer, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	tx, err := db.BeginTxWithTenant(ctx, p.dbPool, c.TenantID)
	if err != nil {
		return Customer{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)
	out, err := scanCustomer(tx.QueryRow(ctx,
		`INSERT INTO customers(id,name,tenant_id) VALUES ($1,$2,$3) RETURNING `+customerCols,
		c.ID, strings.TrimSpace(c.Name), c.TenantID))
	if err != nil {
		return Customer{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Customer{}, mapErr(err)
	}
	return out, nil
}

func (p *PostgresStore) UserByEmail(ctx context.Context, tenantID, email string) (User, error) {
	return scanUser(p.dbPool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE tenant_id=$1 AND lower(email)=lower($2)`,
		tenantID, strings.TrimSpace(email)))
}

func (p *PostgresStore) CreateUser(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	tx, err := db.BeginTxWithTenant(ctx, p.dbPool, u.TenantID)
	if err != nil {
		return User{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)
	out, err := scanUser(tx.QueryRow(ctx,
		`INSERT INTO users(id,email,name,avatar,role,tenant_id,customer_id)
		 VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,'')::uuid) RETURNING `+userCols,
		u.ID, strings.ToLower(strings.TrimSpace(u.Email)), u.Name, u.Avatar, u.Role, u.TenantID, u.CustomerID))
	if err != nil {
		return User{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return User{}, mapErr(err)
	}
	return out, nil
}

// UpdateUser addresses the row by primary key, so it runs outside a tenant transaction.
func (p *PostgresStore) UpdateUser(ctx context.Context, id string, ch UserChanges) (User, error) {
	return scanUser(p.dbPool.QueryRow(ctx, `UPDATE users SET
		name=COALESCE($2,name),
		avatar=COALESCE($3,avatar),
		role=COALESCE($4,role),
		customer_id=COALESCE(NULLIF($5,'')::uuid,customer_id),
		updated_at=NOW()
		WHERE id=$1 RETURNING `+userCols, id, ch.Name, ch.Avatar, ch.Role, ch.CustomerID))
}

func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
