package guard

import (
	"testing"

	"github.com/marketplace/storefront/internal/core/domain"
)

func TestEvaluate(t *testing.T) {
	guest := Snapshot{}
	customer := Snapshot{Authenticated: true, Role: domain.RoleUser}
	manager := Snapshot{Authenticated: true, Role: domain.RoleManager}
	admin := Snapshot{Authenticated: true, Role: domain.RoleAdmin}

	cases := []struct {
		name string
		kind Kind
		snap Snapshot
		want Decision
	}{
		{"auth/guest", Authenticated, guest, Decision{Redirect: LoginPath}},
		{"auth/customer", Authenticated, customer, Decision{Allow: true}},
		{"auth/admin", Authenticated, admin, Decision{Allow: true}},
		{"admin/guest", AdminOnly, guest, Decision{Redirect: LoginPath}},
		{"admin/customer", AdminOnly, customer, Decision{Redirect: HomePath}},
		{"admin/manager", AdminOnly, manager, Decision{Redirect: HomePath}},
		{"admin/admin", AdminOnly, admin, Decision{Allow: true}},
		{"public/guest", PublicOnly, guest, Decision{Allow: true}},
		{"public/customer", PublicOnly, customer, Decision{Redirect: HomePath}},
		{"public/admin", PublicOnly, admin, Decision{Redirect: AdminHomePath}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(tc.kind, tc.snap)
			if got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
			if got.Allow && got.Redirect != "" {
				t.Fatalf("decision both allows and redirects: %+v", got)
			}
			if again := Evaluate(tc.kind, tc.snap); again != got {
				t.Fatalf("non-deterministic decision: %+v then %+v", got, again)
			}
		})
	}
}

func TestEvaluate_AdminOnlyNeverRedirectsBothWays(t *testing.T) {
	for _, role := range []domain.Role{domain.RoleGuest, domain.RoleUser, domain.RoleManager} {
		for _, authed := range []bool{false, true} {
			d := Evaluate(AdminOnly, Snapshot{Authenticated: authed, Role: role})
			if d.Allow {
				t.Fatalf("non-admin admitted: authed=%v role=%s", authed, role)
			}
			want := HomePath
			if !authed {
				want = LoginPath
			}
			if d.Redirect != want {
				t.Fatalf("authed=%v role=%s: expected %s, got %s", authed, role, want, d.Redirect)
			}
		}
	}
}
