package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "FRONTEND_ORIGIN", "DATABASE_URL", "VIDEO_SOURCE_URL", "VIDEO_SOURCE_REFERER",
		"FRONTEND_DIST", "REDIS_ADDR", "AWS_REGION", "ADMIN_PASSWORD_HASH", "JWT_SECRET",
		"WRITE_TIMEOUT_SEC", "READ_TIMEOUT_SEC",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3001", cfg.Server.Port)
	assert.Equal(t, 0, cfg.Server.WriteTimeout)
	assert.Equal(t, "http://localhost:5173", cfg.Server.FrontendOrigin)
	assert.Equal(t, "http://localhost:5173", cfg.Video.Referer)
	assert.False(t, cfg.Video.Configured())
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Admin.Enabled())
}

func TestLoadRefererOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("FRONTEND_ORIGIN", "*,https://app.example.com")
	t.Setenv("VIDEO_SOURCE_URL", "https://cdn.example.com/clip.mp4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com", cfg.Video.Referer)
	assert.Equal(t, []string{"*", "https://app.example.com"}, cfg.Server.SplitOrigins())

	t.Setenv("VIDEO_SOURCE_REFERER", "https://referer.example.com")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "https://referer.example.com", cfg.Video.Referer)
}

func TestLoadRejectsBadVideoSource(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		extra map[string]string
	}{
		{name: "ftp scheme", url: "ftp://example.com/clip.mp4"},
		{name: "no host", url: "https:///clip.mp4"},
		{name: "s3 without key", url: "s3://bucket", extra: map[string]string{"AWS_REGION": "us-east-1"}},
		{name: "s3 without region", url: "s3://bucket/clip.mp4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("VIDEO_SOURCE_URL", tt.url)
			for k, v := range tt.extra {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadResolvesDriveShareLink(t *testing.T) {
	clearEnv(t)
	t.Setenv("VIDEO_SOURCE_URL", " https://drive.google.com/file/d/AbC_12-x/view?usp=sharing ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Video.Configured())
	assert.Equal(t, "https://drive.google.com/uc?export=view&id=AbC_12-x", cfg.Video.SourceURL)
}

func TestLoadRejectsPlainAdminPassword(t *testing.T) {
	clearEnv(t)
	t.Setenv("ADMIN_PASSWORD_HASH", "hunter2")
	t.Setenv("JWT_SECRET", "s3cret")

	_, err := Load()
	assert.ErrorContains(t, err, "ADMIN_PASSWORD_HASH")
}

func TestLoadAdminRequiresSecret(t *testing.T) {
	clearEnv(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	t.Setenv("ADMIN_PASSWORD_HASH", string(hash))

	_, err = Load()
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "s3cret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Admin.Enabled())
}
