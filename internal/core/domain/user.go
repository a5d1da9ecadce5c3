package domain

import "strings"

// Role is the closed set of roles the storefront distinguishes.
type Role int

const (
	RoleGuest Role = iota
	RoleUser
	RoleManager
	RoleAdmin
)

// roleNames is the single translation table between backend role names and Role.
// "Customer" is an older backend spelling of "User".
var roleNames = map[string]Role{
	"admin":    RoleAdmin,
	"manager":  RoleManager,
	"user":     RoleUser,
	"customer": RoleUser,
}

// ParseRole maps a backend role name to a Role. Empty names are guests and
// unknown names are treated as ordinary users.
func ParseRole(name string) Role {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return RoleGuest
	}
	if r, ok := roleNames[name]; ok {
		return r
	}
	return RoleUser
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleManager:
		return "Manager"
	case RoleUser:
		return "User"
	default:
		return "Guest"
	}
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	*r = ParseRole(string(b))
	return nil
}

// Profile is the signed-in user's record as returned by /login and /register.
type Profile struct {
	ID       int    `json:"id,omitempty"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Avatar   string `json:"avatar,omitempty"`
}

// AuthResult is the payload of a successful login or registration.
type AuthResult struct {
	Token string   `json:"token"`
	User  *Profile `json:"user"`
}

// AccountStatus is the enabled flag of an admin-managed account.
type AccountStatus int

const (
	AccountDisabled AccountStatus = 0
	AccountEnabled  AccountStatus = 1
)

// Toggle returns the opposite status.
func (s AccountStatus) Toggle() AccountStatus {
	if s == AccountEnabled {
		return AccountDisabled
	}
	return AccountEnabled
}

// Account is a user record as seen from the admin console.
type Account struct {
	ID       int           `json:"id"`
	FullName string        `json:"fullName"`
	Email    string        `json:"email"`
	Phone    string        `json:"phone,omitempty"`
	Address  string        `json:"address,omitempty"`
	Avatar   string        `json:"avatar,omitempty"`
	Role     Role          `json:"role"`
	Status   AccountStatus `json:"status"`
}
