package internal

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/taskforce")
	for _, key := range []string{
		"ENV", "PORT", "STORAGE_PROVIDER", "VOTER_AUDIT_PROVIDER", "MAX_IMAGE_MB",
		"MAX_VIDEO_MB", "ALLOWED_ORIGINS", "TIMEZONE", "SESSION_TTL", "S3_PUBLIC_URL",
		"S3_ENDPOINT", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY",
		"VOTER_AUDIT_API_URL", "CLOUDINARY_CLOUD_NAME", "CLOUDINARY_UPLOAD_PRESET",
	} {
		t.Setenv(key, "")
	}
}

func TestNewConfig_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "local", cfg.StorageProvider)
	assert.Equal(t, "mock", cfg.VoterAuditProvider)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxImageBytes())
	assert.Equal(t, int64(50*1024*1024), cfg.MaxVideoBytes())
	assert.Equal(t, "complaints-photos", cfg.S3PhotosBucket)
	assert.Equal(t, "complaints-videos", cfg.S3VideosBucket)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "Asia/Kolkata", cfg.Timezone)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestNewConfig_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("MAX_IMAGE_MB", "5")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("STORAGE_PROVIDER", "s3")
	t.Setenv("S3_ENDPOINT", "https://project.supabase.co/storage/v1/s3")
	t.Setenv("S3_ACCESS_KEY_ID", "key")
	t.Setenv("S3_SECRET_ACCESS_KEY", "secret")
	t.Setenv("S3_PUBLIC_URL", "https://project.supabase.co/storage/v1/object/public/")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, int64(5*1024*1024), cfg.MaxImageBytes())
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t,
		"https://project.supabase.co/storage/v1/object/public/complaints-photos",
		cfg.BucketPublicURL(cfg.S3PhotosBucket),
	)
}

func TestNewConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "missing database url",
			env:  map[string]string{"DATABASE_URL": ""},
			want: "DATABASE_URL",
		},
		{
			name: "unknown storage provider",
			env:  map[string]string{"STORAGE_PROVIDER": "r2"},
			want: "STORAGE_PROVIDER",
		},
		{
			name: "s3 without endpoint",
			env:  map[string]string{"STORAGE_PROVIDER": "s3", "S3_ACCESS_KEY_ID": "k", "S3_SECRET_ACCESS_KEY": "s"},
			want: "S3_ENDPOINT",
		},
		{
			name: "s3 without secret",
			env:  map[string]string{"STORAGE_PROVIDER": "s3", "S3_ENDPOINT": "https://s3", "S3_ACCESS_KEY_ID": "k"},
			want: "S3_SECRET_ACCESS_KEY",
		},
		{
			name: "unknown voter audit provider",
			env:  map[string]string{"VOTER_AUDIT_PROVIDER": "grpc"},
			want: "VOTER_AUDIT_PROVIDER",
		},
		{
			name: "http provider without url",
			env:  map[string]string{"VOTER_AUDIT_PROVIDER": "http"},
			want: "VOTER_AUDIT_API_URL",
		},
		{
			name: "http provider without cloudinary",
			env:  map[string]string{"VOTER_AUDIT_PROVIDER": "http", "VOTER_AUDIT_API_URL": "https://api.example/"},
			want: "CLOUDINARY_CLOUD_NAME",
		},
		{
			name: "zero image ceiling",
			env:  map[string]string{"MAX_IMAGE_MB": "0"},
			want: "MAX_IMAGE_MB",
		},
		{
			name: "bad timezone",
			env:  map[string]string{"TIMEZONE": "Mars/Olympus"},
			want: "TIMEZONE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := NewConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("production writes json", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf, "production", "info")

		logger.Debug("hidden")
		logger.Info("submission stored", "form", "complaint")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
		assert.Equal(t, "submission stored", entry["msg"])
		assert.Equal(t, "complaint", entry["form"])
	})

	t.Run("development writes text", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf, "development", "debug")

		logger.Debug("submission stage", "stage", "uploading_photo")

		assert.Contains(t, buf.String(), "submission stage")
		assert.Contains(t, buf.String(), "uploading_photo")
		assert.False(t, json.Valid(buf.Bytes()))
	})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}
