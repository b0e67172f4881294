package roblox_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NicolasHaas/nforce/pkg/roblox"
)

func TestUsernameResolved(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":42,"name":"builderman","displayName":"Builderman"}]}`))
	}))
	defer srv.Close()

	r := roblox.NewResolver(roblox.WithEndpoint(srv.URL))
	if got := r.Username(context.Background(), "42"); got != "builderman" {
		t.Errorf("Username = %q, want %q", got, "builderman")
	}
}

func TestUsernameFallbacks(t *testing.T) {
	t.Parallel()

	type tcase struct {
		playerID string
		handler  http.HandlerFunc
	}

	tcases := map[string]tcase{
		"server_error": {
			playerID: "999",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		"malformed_body": {
			playerID: "999",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{not json`))
			},
		},
		"unknown_user": {
			playerID: "999",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"data":[]}`))
			},
		},
		"non_numeric_id": {
			// Lookup bails before the request; the handler is never reached.
			playerID: "abc",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"data":[{"id":1,"name":"x"}]}`))
			},
		},
	}

	for name, tc := range tcases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			fallbacks := 0
			r := roblox.NewResolver(roblox.WithEndpoint(srv.URL))
			r.OnFallback = func() { fallbacks++ }

			got := r.Username(context.Background(), tc.playerID)
			want := roblox.Placeholder(tc.playerID)
			if got != want {
				t.Errorf("Username = %q, want placeholder %q", got, want)
			}
			if fallbacks != 1 {
				t.Errorf("OnFallback called %d times, want 1", fallbacks)
			}
		})
	}
}

func TestUsernameServiceUnreachable(t *testing.T) {
	t.Parallel()

	// Point at a closed server: the dial fails, the ban must still be possible.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close()

	r := roblox.NewResolver(roblox.WithEndpoint(srv.URL))
	if got := r.Username(context.Background(), "999"); got != "User_999" {
		t.Errorf("Username with service down = %q, want %q", got, "User_999")
	}
}

func TestPlaceholder(t *testing.T) {
	if got := roblox.Placeholder("123"); got != "User_123" {
		t.Errorf("Placeholder = %q, want %q", got, "User_123")
	}
}
