package talim

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBuildWithStorageDirPersistsSession(t *testing.T) {
	dir := t.TempDir()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"A","refresh_token":"R","token_type":"bearer"}`))
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(studentIdentityJSON()))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	ctx := context.Background()

	first, err := New().
		WithBaseURL(server.URL).
		WithStorageDir(dir).
		Build()
	if err != nil {
		t.Fatalf("Build with storage dir failed: %v", err)
	}
	if _, err := first.Login(ctx, "+998901234567", "secret-pass"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	first.Close()

	second, err := New().
		WithBaseURL(server.URL).
		WithStorageDir(dir).
		Build()
	if err != nil {
		t.Fatalf("rebuild over the same dir failed: %v", err)
	}
	t.Cleanup(second.Close)

	if err := second.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	snap := second.Session().Snapshot()
	if !snap.IsAuthenticated || snap.Identity == nil || snap.AccessToken != "A" {
		t.Fatalf("session did not survive the file backend round trip: %+v", snap)
	}
}

func TestBuildRejectsSecondUse(t *testing.T) {
	b := New().WithBaseURL("http://localhost:1")
	if _, err := b.Build(); err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("second Build on the same builder must fail")
	}
}
