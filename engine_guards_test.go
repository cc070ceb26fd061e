package talim

import (
	"context"
	"net/http"
	"testing"

	"github.com/uzbek-talim/talim/guard"
	"github.com/uzbek-talim/talim/session"
	"github.com/uzbek-talim/talim/storage"
)

func TestGuardFacadesTrackSession(t *testing.T) {
	backend := storage.NewMemory()
	seedSession(t, backend, session.Snapshot{
		Identity:        &session.Identity{ID: "u-1", Role: session.RoleStudent},
		AccessToken:     "T",
		IsAuthenticated: true,
	})

	client := newTestClient(t, http.NewServeMux(), backend, nil)
	if err := client.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	if d := client.GuardProtected("/courses/5"); d.Action != guard.Render {
		t.Fatalf("authenticated protected visit: %+v", d)
	}
	if d := client.GuardGuest(""); d.Action != guard.Redirect || d.Target != "/dashboard" {
		t.Fatalf("authenticated guest visit: %+v", d)
	}
	// A student is not an admin.
	if d := client.GuardAdmin("/admin/users"); d.Action != guard.Redirect || d.Target != "/dashboard" {
		t.Fatalf("student admin visit: %+v", d)
	}
}

func TestGuardFacadesCountRedirects(t *testing.T) {
	client := newTestClient(t, http.NewServeMux(), storage.NewMemory(), nil)
	if err := client.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	// Before the session settles every guard waits.
	loading := newTestClient(t, http.NewServeMux(), storage.NewMemory(), nil)
	if d := loading.GuardProtected("/courses/5"); d.Action != guard.Wait {
		t.Fatalf("unsettled session must wait: %+v", d)
	}

	d := client.GuardProtected("/courses/5")
	if d.Action != guard.Redirect || d.Target != "/login" || d.From != "/courses/5" {
		t.Fatalf("anonymous protected visit: %+v", d)
	}
	client.GuardProtected("/tests/7")

	if got := client.MetricsSnapshot().Counters[MetricGuardRedirect]; got != 2 {
		t.Fatalf("redirects counted = %d, want 2", got)
	}
}
