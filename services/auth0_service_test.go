package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/stretchr/testify/assert"
)

func TestAuth0DirectoryDisplayName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/userinfo" {
			http.NotFound(w, r)
			return
		}
		switch r.Header.Get("Authorization") {
		case "Bearer good-token":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"sub":"auth0|admin","email":"admin@stickerstudio.app","name":"Admin"}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_token"}`))
		}
	}))
	defer server.Close()

	dir := NewAuth0Directory(server.URL, logger.NewNop())
	ctx := context.Background()

	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"resolves email", "good-token", "admin@stickerstudio.app"},
		{"falls back to subject on rejection", "bad-token", "auth0|admin"},
		{"falls back to subject without token", "", "auth0|admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dir.DisplayName(ctx, tt.token, "auth0|admin"))
		})
	}

	unconfigured := NewAuth0Directory("", logger.NewNop())
	assert.Equal(t, "auth0|admin", unconfigured.DisplayName(ctx, "good-token", "auth0|admin"))
}
