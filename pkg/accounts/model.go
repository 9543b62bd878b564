package accounts

import "time"

// Customer is a named organisation inside a tenant. (TenantID, lower(Name)) is unique.
type Customer struct {
	ID        string
	Name      string
	TenantID  string
	CreatedAt time.Time
}

// User is keyed by (TenantID, Email); the same email may exist once per tenant.
type User struct {
	ID         string
	Email      string
	Name       string
	Avatar     string
	Role       string
	TenantID   string
	CustomerID string // empty when not linked
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// UserChanges lists the mutable user fields; nil means "leave as is".
type UserChanges struct {
	Name       *string
	Avatar     *string
	Role       *string
	CustomerID *string
}

func (c UserChanges) Empty() bool {
	return c.Name == nil && c.Avatar == nil && c.Role == nil && c.CustomerID == nil
}
