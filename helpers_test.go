package talim

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/uzbek-talim/talim/session"
	"github.com/uzbek-talim/talim/storage"
)

type navRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (n *navRecorder) Go(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *navRecorder) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.paths))
	copy(out, n.paths)
	return out
}

func newTestClient(t *testing.T, handler http.Handler, backend storage.Backend, nav *navRecorder) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	builder := New().
		WithBaseURL(server.URL).
		WithStorage(backend).
		WithMetricsEnabled(true)
	if nav != nil {
		builder = builder.WithNavigator(nav.Go)
	}

	client, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func seedSession(t *testing.T, backend storage.Backend, snap session.Snapshot) {
	t.Helper()
	data, err := session.Encode(snap)
	if err != nil {
		t.Fatalf("encode session: %v", err)
	}
	if err := backend.Set(context.Background(), session.DefaultStorageKey, data); err != nil {
		t.Fatalf("seed session: %v", err)
	}
}

func studentIdentityJSON() string {
	return `{"id":"u-1","phone":"+998901234567","first_name":"Aziza","last_name":"Karimova","role":"student"}`
}
