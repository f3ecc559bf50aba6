package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "missing database url",
			cfg:     Config{GoEnv: "test"},
			wantErr: "DATABASE_URL is required",
		},
		{
			name: "production requires stripe secret",
			cfg:  Config{GoEnv: "production", DatabaseURL: "postgres://x"},
			wantErr: "STRIPE_SECRET_KEY is required in production",
		},
		{
			name: "production requires webhook secret",
			cfg: Config{
				GoEnv:           "production",
				DatabaseURL:     "postgres://x",
				StripeSecretKey: "sk_live_x",
			},
			wantErr: "STRIPE_WEBHOOK_SECRET is required in production",
		},
		{
			name: "negative rate limit",
			cfg:  Config{GoEnv: "test", DatabaseURL: "postgres://x", AIRateLimit: -1},
			wantErr: "AI_RATE_LIMIT must not be negative",
		},
		{
			name: "valid test config",
			cfg:  Config{GoEnv: "test", DatabaseURL: "postgres://x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgresql://localhost/stickers_test")
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("SITE_URL", "https://stickers.example/")
	t.Setenv("AI_RATE_LIMIT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "https://stickers.example", cfg.SiteURL)
	assert.Equal(t, 10, cfg.AIRateLimit, "invalid integers fall back to the default")
	assert.Equal(t, "usd", cfg.Currency)
	assert.True(t, cfg.IsTest())
	assert.Same(t, cfg, GetConfig())
}
