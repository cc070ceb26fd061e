//go:build integration
// +build integration

package test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	talim "github.com/uzbek-talim/talim"
)

func newRedisBackend(t *testing.T) redis.UniversalClient {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func newRedisClient(t *testing.T, baseURL string, rdb redis.UniversalClient) *talim.Client {
	t.Helper()

	client, err := talim.New().
		WithBaseURL(baseURL).
		WithRedis(rdb).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

// stubBackend serves login, identity, and one timed test.
func stubBackend(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostFormValue("password") != "correct-horse" {
			http.Error(w, `{"detail": "Incorrect phone or password"}`, http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]string{"access_token": "acc-1", "refresh_token": "ref-1"})
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer acc-1" {
			http.Error(w, `{"detail": "Could not validate credentials"}`, http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]any{
			"id": "u-1", "phone": "+998901234567",
			"first_name": "Aziza", "last_name": "Karimova", "role": "student",
		})
	})
	mux.HandleFunc("POST /tests/7/start", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"started": true})
	})
	mux.HandleFunc("POST /tests/7/submit", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"submitted": true})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
