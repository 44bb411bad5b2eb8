package ghost

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"trip-planner/internal/config"
)

func TestCreatePost(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Mock Ghost Admin API server
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Ghost ") {
				t.Errorf("Expected Ghost token auth, got %q", auth)
			}
			if !strings.Contains(r.URL.Path, "/ghost/api/v3/admin/posts/") {
				t.Errorf("Unexpected path %q", r.URL.Path)
			}

			w.WriteHeader(http.StatusCreated)
			fmt.Fprintln(w, `{
				"posts": [
					{"id": "1", "title": "Bali, 2 Mar - 6 Mar, 2026", "url": "https://blog.example/bali"}
				]
			}`)
		}))
		defer server.Close()

		cfg := &config.Config{
			GhostURL: server.URL,
			// id:secret, secret hex-encoded
			GhostAdminKey: "abc123:00112233445566778899aabbccddeeff",
		}
		client := NewClient(cfg)

		post, err := client.CreatePost("Bali, 2 Mar - 6 Mar, 2026", "<h1>Bali</h1>", true)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if post.ID != "1" || post.URL != "https://blog.example/bali" {
			t.Errorf("Unexpected post: %+v", post)
		}
	})

	t.Run("ServerError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		cfg := &config.Config{
			GhostURL:      server.URL,
			GhostAdminKey: "abc123:00112233445566778899aabbccddeeff",
		}
		client := NewClient(cfg)

		if _, err := client.CreatePost("Title", "<p>body</p>", false); err == nil {
			t.Fatal("Expected an error for non-2xx status code, got nil")
		}
	})

	t.Run("BadAdminKey", func(t *testing.T) {
		cfg := &config.Config{
			GhostURL:      "https://blog.example",
			GhostAdminKey: "not-an-id-secret-pair",
		}
		client := NewClient(cfg)

		if _, err := client.CreatePost("Title", "<p>body</p>", false); err == nil {
			t.Fatal("Expected an error for a malformed admin key, got nil")
		}
	})
}
