// Package guard decides whether a view may be shown for a session snapshot.
// Decisions are pure: the same snapshot always yields the same decision.
package guard

import "github.com/marketplace/storefront/internal/core/domain"

// Kind selects a guard variant.
type Kind int

const (
	// Authenticated admits any signed-in visitor.
	Authenticated Kind = iota
	// AdminOnly admits signed-in admins.
	AdminOnly
	// PublicOnly admits visitors who are not signed in (login, register).
	PublicOnly
)

// Redirect targets.
const (
	LoginPath     = "/login"
	HomePath      = "/"
	AdminHomePath = "/admin"
)

// Snapshot is the part of a session a guard looks at.
type Snapshot struct {
	Authenticated bool
	Role          domain.Role
}

// Decision is either Allow or a redirect target.
type Decision struct {
	Allow    bool
	Redirect string
}

var allow = Decision{Allow: true}

// Evaluate applies the guard of kind k to s.
func Evaluate(k Kind, s Snapshot) Decision {
	switch k {
	case Authenticated:
		if !s.Authenticated {
			return Decision{Redirect: LoginPath}
		}
		return allow
	case AdminOnly:
		if !s.Authenticated {
			return Decision{Redirect: LoginPath}
		}
		if s.Role != domain.RoleAdmin {
			return Decision{Redirect: HomePath}
		}
		return allow
	case PublicOnly:
		if !s.Authenticated {
			return allow
		}
		if s.Role == domain.RoleAdmin {
			return Decision{Redirect: AdminHomePath}
		}
		return Decision{Redirect: HomePath}
	default:
		return Decision{Redirect: LoginPath}
	}
}
