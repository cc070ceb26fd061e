package guard

import (
	"testing"

	"github.com/uzbek-talim/talim/session"
)

func loadingSnap() session.Snapshot {
	return session.Snapshot{IsLoading: true}
}

func anonymousSnap() session.Snapshot {
	return session.Snapshot{}
}

func authedSnap(role session.Role) session.Snapshot {
	return session.Snapshot{
		Identity:        &session.Identity{ID: "u-1", Phone: "+998900000000", Role: role},
		AccessToken:     "tok",
		IsAuthenticated: true,
	}
}

func TestPublicAlwaysRenders(t *testing.T) {
	e := NewEvaluator()
	for _, snap := range []session.Snapshot{loadingSnap(), anonymousSnap(), authedSnap(session.RoleStudent)} {
		if d := e.Public(snap); d.Action != Render {
			t.Fatalf("public route must render, got %v", d.Action)
		}
	}
}

func TestProtectedWaitsWhileLoading(t *testing.T) {
	e := NewEvaluator()
	if d := e.Protected(loadingSnap(), "/courses/5"); d.Action != Wait {
		t.Fatalf("unresolved session must wait, got %v", d.Action)
	}
}

func TestProtectedRedirectsAnonymousWithFrom(t *testing.T) {
	e := NewEvaluator()
	d := e.Protected(anonymousSnap(), "/courses/5")
	if d.Action != Redirect || d.Target != "/login" {
		t.Fatalf("expected redirect to /login, got %+v", d)
	}
	if d.From != "/courses/5" {
		t.Fatalf("attempted path not threaded: %+v", d)
	}
}

func TestProtectedRendersAuthenticated(t *testing.T) {
	e := NewEvaluator()
	if d := e.Protected(authedSnap(session.RoleStudent), "/courses/5"); d.Action != Render {
		t.Fatalf("authenticated session must render, got %+v", d)
	}
}

func TestGuestRedirectRoundTrip(t *testing.T) {
	e := NewEvaluator()

	// Anonymous user hits a protected page, lands on login.
	bounce := e.Protected(anonymousSnap(), "/courses/5")
	if bounce.Action != Redirect {
		t.Fatalf("expected redirect, got %+v", bounce)
	}

	// After signing in, the guest guard on the login page sends them back to
	// exactly the page they first attempted.
	back := e.Guest(authedSnap(session.RoleStudent), bounce.From)
	if back.Action != Redirect || back.Target != "/courses/5" {
		t.Fatalf("round trip broken: %+v", back)
	}
}

func TestGuestDefaultsToLanding(t *testing.T) {
	e := NewEvaluator()
	d := e.Guest(authedSnap(session.RoleStudent), "")
	if d.Action != Redirect || d.Target != "/dashboard" {
		t.Fatalf("expected landing redirect, got %+v", d)
	}
}

func TestGuestRendersAnonymous(t *testing.T) {
	e := NewEvaluator()
	if d := e.Guest(anonymousSnap(), ""); d.Action != Render {
		t.Fatalf("anonymous guest must render, got %+v", d)
	}
	if d := e.Guest(loadingSnap(), ""); d.Action != Wait {
		t.Fatalf("loading guest must wait, got %+v", d)
	}
}

func TestAdminGuard(t *testing.T) {
	e := NewEvaluator()

	if d := e.Admin(anonymousSnap(), "/admin/users"); d.Action != Redirect || d.Target != "/login" || d.From != "/admin/users" {
		t.Fatalf("anonymous admin navigation: %+v", d)
	}
	if d := e.Admin(authedSnap(session.RoleStudent), "/admin/users"); d.Action != Redirect || d.Target != "/dashboard" {
		t.Fatalf("student must be denied to landing: %+v", d)
	}
	if d := e.Admin(authedSnap(session.RoleStudent), "/admin/users"); d.From != "" {
		t.Fatalf("denial redirect must not thread a return path: %+v", d)
	}
	if d := e.Admin(authedSnap(session.RoleAdmin), "/admin/users"); d.Action != Render {
		t.Fatalf("admin must render: %+v", d)
	}
	if d := e.Admin(authedSnap(session.RoleSuperAdmin), "/admin/users"); d.Action != Render {
		t.Fatalf("super admin must render: %+v", d)
	}
}
