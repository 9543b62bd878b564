package claims

import "strings"

// Role claim locations. resource_access holds one roles list per client.
var (
	realmRolesPath    = Path("realm_access", "roles")
	resourceRolesPath = `"resource_access".*."roles"[]`
)

// Subject returns the provider's user id.
func (b ClaimBag) Subject() string { return b.String(Path("sub")) }

// Email returns the lowercased account email. preferred_username counts only when it
// looks like an address.
func (b ClaimBag) Email() string {
	if e := b.String(Variants("email")...); e != "" {
		return strings.ToLower(e)
	}
	if u := b.String(Path("preferred_username")); strings.Contains(u, "@") {
		return strings.ToLower(u)
	}
	return ""
}

// Username returns preferred_username, falling back to username.
func (b ClaimBag) Username() string {
	return b.String(Path("preferred_username"), Path("username"))
}

func (b ClaimBag) DisplayName() string {
	if n := b.String(Path("name")); n != "" {
		return n
	}
	full := strings.TrimSpace(b.String(Path("given_name")) + " " + b.String(Path("family_name")))
	if full != "" {
		return full
	}
	return b.Username()
}

func (b ClaimBag) AvatarURL() string {
	return b.String(Path("picture"), Path("avatar_url"), Path("image"))
}

// RealmRoles returns realm_access.roles.
func (b ClaimBag) RealmRoles() []string { return b.Strings(realmRolesPath) }

// ResourceRoles returns the roles of every client in resource_access, flattened.
func (b ClaimBag) ResourceRoles() []string { return b.Strings(resourceRolesPath) }

// Groups returns the groups claim.
func (b ClaimBag) Groups() []string { return b.Strings(Path("groups")) }
