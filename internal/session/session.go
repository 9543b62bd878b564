// Package session projects a resolved identity onto the long-lived session object
// the rest of the application reads.
package session

import (
	"docklytask/internal/claims"
	"docklytask/internal/identity"
)

// Session is handed to downstream handlers and the UI.
type Session struct {
	AccessToken string `json:"accessToken,omitempty"`
	Claims      Claims `json:"claims"`
	User        User   `json:"user"`
}

// Claims are the raw claim values downstream code is allowed to see.
type Claims struct {
	RealmAccess    map[string]any `json:"realm_access,omitempty"`
	ResourceAccess map[string]any `json:"resource_access,omitempty"`
	Tenants        []string       `json:"tenants,omitempty"`
	Groups         []string       `json:"groups,omitempty"`
	Extra          map[string]any `json:"extra,omitempty"`
	Attributes     map[string]any `json:"attributes,omitempty"`
}

type User struct {
	ID           string `json:"id,omitempty"` // empty when no stored user is linked
	Email        string `json:"email,omitempty"`
	Name         string `json:"name,omitempty"`
	Image        string `json:"image,omitempty"`
	Role         string `json:"role,omitempty"`
	TenantID     string `json:"tenantId"`
	CustomerID   string `json:"customerId,omitempty"`
	CustomerName string `json:"customerName,omitempty"`
}

// Project copies res and link into a Session. link is the zero Link when nothing was persisted.
func Project(res identity.Resolution, link identity.Link, accessToken string) Session {
	id, bag := res.Identity, res.Claims
	s := Session{
		AccessToken: accessToken,
		Claims: Claims{
			RealmAccess:    bag.Map(claims.Path("realm_access")),
			ResourceAccess: bag.Map(claims.Path("resource_access")),
			Tenants:        id.Tenants,
			Groups:         id.Groups,
			Extra:          bag.Map(claims.Path(claims.Extra)),
			Attributes:     bag.Map(claims.Path(claims.Attributes)),
		},
		User: User{
			ID:           link.UserID,
			Email:        id.Email,
			Name:         id.DisplayName,
			Image:        id.AvatarURL,
			Role:         id.Role,
			TenantID:     id.TenantID,
			CustomerID:   id.CustomerID,
			CustomerName: id.CustomerName,
		},
	}
	if link.Role != "" {
		s.User.Role = link.Role
	}
	if link.CustomerID != "" {
		s.User.CustomerID = link.CustomerID
	}
	if link.CustomerName != "" {
		s.User.CustomerName = link.CustomerName
	}
	return s
}
