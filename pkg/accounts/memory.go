// pkg/accounts/memory.go
package accounts

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MemoryStore is the dev/test Store. It enforces the same uniqueness rules as the SQL schema.
type MemoryStore struct {
	log *zap.SugaredLogger

	mu        sync.RWMutex
	customers map[string]Customer // id -> row
	users     map[string]User     // id -> row
}

func NewMemoryStore(log *zap.SugaredLogger) *MemoryStore {
	return &MemoryStore{log: log, customers: map[string]Customer{}, users: map[string]User{}}
}

func customerKey(tenantID, name string) string {
	return tenantID + "\x00" + strings.ToLower(strings.TrimSpace(name))
}

func userKey(tenantID, email string) string {
	return tenantID + "\x00" + strings.ToLower(strings.TrimSpace(email))
}

func (m *MemoryStore) CustomerByID(ctx context.Context, id string) (Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.customers[id]; ok {
		return c, nil
	}
	return Customer{}, ErrNotFound
}

func (m *MemoryStore) CustomerByName(ctx context.Context, tenantID, name string) (Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k := customerKey(tenantID, name)
	for _, c := range m.customers {
		if customerKey(c.TenantID, c.Name) == k {
			return c, nil
		}
	}
	return Customer{}, ErrNotFound
}

func (m *MemoryStore) CreateCustomer(ctx context.Context, c Customer) (Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := customerKey(c.TenantID, c.Name)
	for _, existing := range m.customers {
		if customerKey(existing.TenantID, existing.Name) == k {
			return Customer{}, ErrConflict
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, taken := m.customers[c.ID]; taken {
		return Customer{}, ErrConflict
	}
	c.CreatedAt = time.Now().UTC()
	m.customers[c.ID] = c
	return c, nil
}

func (m *MemoryStore) UserByEmail(ctx context.Context, tenantID, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k := userKey(tenantID, email)
	for _, u := range m.users {
		if userKey(u.TenantID, u.Email) == k {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *MemoryStore) CreateUser(ctx context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := userKey(u.TenantID, u.Email)
	for _, existing := range m.users {
		if userKey(existing.TenantID, existing.Email) == k {
			return User{}, ErrConflict
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	m.users[u.ID] = u
	return u, nil
}

func (m *MemoryStore) UpdateUser(ctx context.Context, id string, ch UserChanges) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	if ch.Name != nil {
		u.Name = *ch.Name
	}
	if ch.Avatar != nil {
		u.Avatar = *ch.Avatar
	}
	if ch.Role != nil {
		u.Role = *ch.Role
	}
	if ch.CustomerID != nil {
		u.CustomerID = *ch.CustomerID
	}
	u.UpdatedAt = time.Now().UTC()
	m.users[id] = u
	return u, nil
}

// Counts reports the number of stored customers and users.
func (m *MemoryStore) Counts() (customers, users int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.customers), len(m.users)
}
