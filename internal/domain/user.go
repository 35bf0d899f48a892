package domain

import "time"

// Role is the fixed access level carried by every user.
type Role string

const (
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// User is an identity registered with the service.
type User struct {
	ID        string
	Email     string
	Role      Role
	CreatedAt time.Time
}
