package session

import "time"

// Permission is a single named capability grouped under a category.
type Permission struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// RolePermission links a role to a permission. The nested Permission is
// populated when the server expands the relation.
type RolePermission struct {
	RoleID       string      `json:"roleId"`
	PermissionID string      `json:"permissionId"`
	Permission   *Permission `json:"permission,omitempty"`
}

// Role is the user's role with its permission grants.
type Role struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Permissions []RolePermission `json:"permissions"`
}

// Principal is an immutable snapshot of the authenticated identity. It is
// replaced wholesale on every successful (re)authentication, never
// field-patched. Field names follow the API's JSON contract.
type Principal struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
	RoleID      string     `json:"roleId"`
	Role        Role       `json:"role"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// FullName returns the principal's display name.
func (p *Principal) FullName() string {
	return p.FirstName + " " + p.LastName
}

// HasPermission reports whether the principal's role grants the named
// permission.
func (p *Principal) HasPermission(name string) bool {
	for _, rp := range p.Role.Permissions {
		if rp.Permission != nil && rp.Permission.Name == name {
			return true
		}
	}
	return false
}
