package entity

import "fmt"

// Role is the closed set of access levels. RoleAnonymous describes a caller
// without a token and is never stored.
type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// ParseRole accepts only the roles a stored user may hold.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleModerator, RoleAdmin:
		return Role(s), nil
	case RoleAnonymous:
		return "", fmt.Errorf("role %q cannot be assigned", s)
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

type User struct {
	Base
	Username     string `db:"username"`
	Email        string `db:"email"`
	FirstName    string `db:"first_name"`
	LastName     string `db:"last_name"`
	Bio          string `db:"bio"`
	Role         Role   `db:"role"`
	TokenVersion int    `db:"token_version"`
}
