package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
auth:
  issuer: https://clerk.example.test
payment:
  razorpay:
    key_id: rzp_test
    key_secret: yaml-secret
webhook:
  secret: whsec_dGVzdA==
database:
  url: postgres://u:p@localhost:5432/db
redis:
  url: localhost:6379
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML), false)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, ":9090", cfg.Admin.Addr)
	assert.Equal(t, 60*time.Second, cfg.Auth.ClockSkew)
	assert.Equal(t, time.Hour, cfg.Auth.KeyTTL)
	assert.Equal(t, "https://clerk.example.test/.well-known/jwks.json", cfg.Auth.JWKSURL)
	assert.Equal(t, []string{"/webhooks", "/public", "/download"}, cfg.Auth.PublicPaths)
	assert.Equal(t, "https://api.razorpay.com", cfg.Payment.Razorpay.BaseURL)
	assert.Equal(t, 5*time.Minute, cfg.Webhook.Tolerance)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Runtime.Dev)
}

func TestParse_EnvOverridesSecrets(t *testing.T) {
	t.Setenv("RAZORPAY_KEY_SECRET", "env-secret")
	t.Setenv("CLERK_ISSUER", "https://other.example.test")

	cfg, err := Parse([]byte(minimalYAML), false)
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.Payment.Razorpay.KeySecret)
	assert.Equal(t, "https://other.example.test", cfg.Auth.Issuer)
	assert.Equal(t, "rzp_test", cfg.Payment.Razorpay.KeyID)
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		dev     bool
		wantErr string
	}{
		{
			name:    "missing issuer",
			yaml:    "payment: {razorpay: {key_secret: s}}\nwebhook: {secret: w}\n",
			wantErr: "auth.issuer is required",
		},
		{
			name:    "missing database outside dev",
			yaml:    "auth: {issuer: i}\npayment: {razorpay: {key_id: k, key_secret: s}}\nwebhook: {secret: w}\nredis: {url: r}\n",
			wantErr: "database.url is required",
		},
		{
			name: "dev mode needs no storage",
			yaml: "auth: {issuer: i}\npayment: {razorpay: {key_secret: s}}\nwebhook: {secret: w}\n",
			dev:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml), tt.dev)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, cfg.Runtime.Dev)
		})
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o600))

	cfg, err := LoadConfig(path, false)
	require.NoError(t, err)
	assert.Equal(t, "https://clerk.example.test", cfg.Auth.Issuer)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), false)
	assert.Error(t, err)
}
