package identity

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"docklytask/pkg/accounts"
)

// Link is what a persisted identity contributes to the session.
type Link struct {
	UserID       string
	CustomerID   string
	CustomerName string
	Role         string
}

// Repository maps a ResolvedIdentity onto customer and user rows with find-or-create.
// A unique violation on create means a concurrent sign-in won; the row is re-read and
// the update path taken instead.
type Repository struct {
	store       accounts.Store
	defaultRole string
	log         *zap.SugaredLogger
}

func NewRepository(store accounts.Store, defaultRole string, log *zap.SugaredLogger) *Repository {
	if defaultRole == "" {
		defaultRole = "USER"
	}
	return &Repository{store: store, defaultRole: defaultRole, log: log}
}

// Persist links the identity to stored rows. Errors are unrecoverable store failures.
func (r *Repository) Persist(ctx context.Context, id ResolvedIdentity) (Link, error) {
	ctx, span := tracer.Start(ctx, "identity.persist")
	defer span.End()

	if id.Email == "" {
		return Link{}, ErrMissingEmail
	}
	cust, err := r.customer(ctx, id)
	if err != nil {
		return Link{}, err
	}
	user, err := r.user(ctx, id, cust.ID)
	if err != nil {
		return Link{}, err
	}
	name := cust.Name
	if name == "" {
		name = id.CustomerName
	}
	return Link{UserID: user.ID, CustomerID: user.CustomerID, CustomerName: name, Role: user.Role}, nil
}

func (r *Repository) customer(ctx context.Context, id ResolvedIdentity) (accounts.Customer, error) {
	if id.CustomerID != "" {
		c, err := r.store.CustomerByID(ctx, id.CustomerID)
		switch {
		case err == nil && c.TenantID == id.TenantID:
			return c, nil
		case err == nil:
			r.log.Warnw("pinned customer belongs to another tenant, ignored",
				"customer_id", id.CustomerID, "tenant", id.TenantID, "customer_tenant", c.TenantID)
		case !errors.Is(err, accounts.ErrNotFound):
			r.log.Debugw("pinned customer lookup failed, falling back to name", "customer_id", id.CustomerID, "err", err)
		}
	}
	if id.CustomerName == "" {
		return accounts.Customer{}, nil
	}
	c, err := r.store.CustomerByName(ctx, id.TenantID, id.CustomerName)
	switch {
	case err == nil:
		return c, nil
	case !errors.Is(err, accounts.ErrNotFound):
		return accounts.Customer{}, fmt.Errorf("find customer: %w", err)
	}
	c, err = r.store.CreateCustomer(ctx, accounts.Customer{Name: id.CustomerName, TenantID: id.TenantID})
	if err == nil {
		r.log.Infow("customer created", "tenant", id.TenantID, "customer_id", c.ID, "name", c.Name)
		return c, nil
	}
	if !errors.Is(err, accounts.ErrConflict) {
		return accounts.Customer{}, fmt.Errorf("create customer: %w", err)
	}
	r.log.Debugw("customer created concurrently, re-reading", "tenant", id.TenantID, "name", id.CustomerName)
	c, err = r.store.CustomerByName(ctx, id.TenantID, id.CustomerName)
	if err != nil {
		return accounts.Customer{}, fmt.Errorf("re-read customer after conflict: %w", err)
	}
	return c, nil
}

func (r *Repository) user(ctx context.Context, id ResolvedIdentity, customerID string) (accounts.User, error) {
	u, err := r.store.UserByEmail(ctx, id.TenantID, id.Email)
	switch {
	case err == nil:
		return r.update(ctx, u, id, customerID)
	case !errors.Is(err, accounts.ErrNotFound):
		return accounts.User{}, fmt.Errorf("find user: %w", err)
	}

	role := id.Role
	if role == "" {
		role = r.defaultRole
	}
	created, err := r.store.CreateUser(ctx, accounts.User{
		Email:      id.Email,
		Name:       id.DisplayName,
		Avatar:     id.AvatarURL,
		Role:       role,
		TenantID:   id.TenantID,
		CustomerID: customerID,
	})
	if err == nil {
		r.log.Infow("user created", "tenant", id.TenantID, "user_id", created.ID, "role", role)
		return created, nil
	}
	if !errors.Is(err, accounts.ErrConflict) {
		return accounts.User{}, fmt.Errorf("create user: %w", err)
	}
	r.log.Debugw("user created concurrently, updating instead", "tenant", id.TenantID)
	u, err = r.store.UserByEmail(ctx, id.TenantID, id.Email)
	if err != nil {
		return accounts.User{}, fmt.Errorf("re-read user after conflict: %w", err)
	}
	return r.update(ctx, u, id, customerID)
}

// update writes name and avatar when they changed, the customer link when one was
// determined, and the role only when promoting to ADMIN.
func (r *Repository) update(ctx context.Context, u accounts.User, id ResolvedIdentity, customerID string) (accounts.User, error) {
	var ch accounts.UserChanges
	if id.DisplayName != "" && id.DisplayName != u.Name {
		ch.Name = &id.DisplayName
	}
	if id.AvatarURL != "" && id.AvatarURL != u.Avatar {
		ch.Avatar = &id.AvatarURL
	}
	if id.Role == RoleAdmin && u.Role != RoleAdmin {
		role := RoleAdmin
		ch.Role = &role
	}
	if customerID != "" && customerID != u.CustomerID {
		ch.CustomerID = &customerID
	}
	if ch.Empty() {
		return u, nil
	}
	updated, err := r.store.UpdateUser(ctx, u.ID, ch)
	if err != nil {
		return accounts.User{}, fmt.Errorf("update user: %w", err)
	}
	return updated, nil
}
