package accounts

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("accounts: not found")
	// ErrConflict is returned by Create* when a uniqueness constraint rejects the row.
	ErrConflict = errors.New("accounts: unique constraint violated")
)

// Store persists customers and users. Lookups return ErrNotFound when nothing matches.
type Store interface {
	CustomerByID(ctx context.Context, id string) (Customer, error)
	// CustomerByName matches name case-insensitively within the tenant.
	CustomerByName(ctx context.Context, tenantID, name string) (Customer, error)
	CreateCustomer(ctx context.Context, c Customer) (Customer, error)

	UserByEmail(ctx context.Context, tenantID, email string) (User, error)
	CreateUser(ctx context.Context, u User) (User, error)
	UpdateUser(ctx context.Context, id string, ch UserChanges) (User, error)
}
