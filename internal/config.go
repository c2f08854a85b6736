package internal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shaktiabhiyan/taskforce/internal/domain"
	"github.com/shaktiabhiyan/taskforce/internal/storage"
)

// Voter-audit providers.
const (
	VoterAuditHTTP = "http"
	VoterAuditMock = "mock"
)

type Config struct {
	Env         string
	Port        int
	LogLevel    string
	DatabaseUrl string

	// Public base URL of this service
	BaseURL string

	// Upload ceilings in megabytes
	MaxImageMB int
	MaxVideoMB int

	// Storage Configuration
	StorageProvider string // "local" or "s3"

	// Local Storage (development)
	LocalStoragePath string // Base directory; each bucket is a subdirectory
	LocalStorageURL  string // Base URL for accessing local files

	// S3-compatible storage (production)
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PhotosBucket    string
	S3VideosBucket    string
	S3PublicURL       string // Bucket name is appended; empty means presigned URLs

	// Cloudinary (chatbot evidence)
	CloudinaryCloudName    string
	CloudinaryUploadPreset string

	// Voter-audit API
	VoterAuditProvider       string // "http" or "mock"
	VoterAuditAPIURL         string
	VoterAuditMaxRetries     int
	VoterAuditRetryBaseDelay time.Duration
	VoterAuditRequestTimeout time.Duration

	// Sessions
	SessionTTL time.Duration

	// Origins allowed to call the JSON API from a browser. Empty disables CORS.
	AllowedOrigins []string

	// Metrics endpoint authentication
	// If both are empty, /metrics is open in development and hidden otherwise.
	MetricsUsername string
	MetricsPassword string

	// Timezone for dates shown to participants
	Timezone string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		BaseURL: getEnv("BASE_URL", "http://localhost:8080"),

		MaxImageMB: getEnvInt("MAX_IMAGE_MB", domain.DefaultMaxImageMB),
		MaxVideoMB: getEnvInt("MAX_VIDEO_MB", domain.DefaultMaxVideoMB),

		// Storage defaults to local filesystem for development
		StorageProvider:  getEnv("STORAGE_PROVIDER", storage.ProviderLocal),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./storage"),
		LocalStorageURL:  getEnv("LOCAL_STORAGE_URL", "http://localhost:8080/files"),

		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3Region:          getEnv("S3_REGION", "auto"),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3PhotosBucket:    getEnv("S3_PHOTOS_BUCKET", storage.BucketPhotos),
		S3VideosBucket:    getEnv("S3_VIDEOS_BUCKET", storage.BucketVideos),
		S3PublicURL:       getEnv("S3_PUBLIC_URL", ""),

		CloudinaryCloudName:    getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryUploadPreset: getEnv("CLOUDINARY_UPLOAD_PRESET", ""),

		VoterAuditProvider:       getEnv("VOTER_AUDIT_PROVIDER", VoterAuditMock),
		VoterAuditAPIURL:         getEnv("VOTER_AUDIT_API_URL", ""),
		VoterAuditMaxRetries:     getEnvInt("VOTER_AUDIT_MAX_RETRIES", 3),
		VoterAuditRetryBaseDelay: getEnvDuration("VOTER_AUDIT_RETRY_BASE_DELAY", 500*time.Millisecond),
		VoterAuditRequestTimeout: getEnvDuration("VOTER_AUDIT_REQUEST_TIMEOUT", 30*time.Second),

		SessionTTL: getEnvDuration("SESSION_TTL", 2*time.Hour),

		AllowedOrigins: getEnvList("ALLOWED_ORIGINS"),

		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),

		Timezone: getEnv("TIMEZONE", "Asia/Kolkata"),
	}

	// Required
	cfg.DatabaseUrl = os.Getenv("DATABASE_URL")
	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.MaxImageMB <= 0 {
		return nil, fmt.Errorf("MAX_IMAGE_MB must be positive, got: %d", cfg.MaxImageMB)
	}
	if cfg.MaxVideoMB <= 0 {
		return nil, fmt.Errorf("MAX_VIDEO_MB must be positive, got: %d", cfg.MaxVideoMB)
	}

	// Validate storage configuration
	switch cfg.StorageProvider {
	case storage.ProviderLocal:
	case storage.ProviderS3:
		if cfg.S3Endpoint == "" {
			return nil, fmt.Errorf("S3_ENDPOINT is required when STORAGE_PROVIDER is 's3'")
		}
		if cfg.S3AccessKeyID == "" {
			return nil, fmt.Errorf("S3_ACCESS_KEY_ID is required when STORAGE_PROVIDER is 's3'")
		}
		if cfg.S3SecretAccessKey == "" {
			return nil, fmt.Errorf("S3_SECRET_ACCESS_KEY is required when STORAGE_PROVIDER is 's3'")
		}
	default:
		return nil, fmt.Errorf("STORAGE_PROVIDER must be either 'local' or 's3', got: %s", cfg.StorageProvider)
	}

	// Validate voter-audit configuration
	switch cfg.VoterAuditProvider {
	case VoterAuditMock:
	case VoterAuditHTTP:
		if cfg.VoterAuditAPIURL == "" {
			return nil, fmt.Errorf("VOTER_AUDIT_API_URL is required when VOTER_AUDIT_PROVIDER is 'http'")
		}
		if cfg.CloudinaryCloudName == "" || cfg.CloudinaryUploadPreset == "" {
			return nil, fmt.Errorf("CLOUDINARY_CLOUD_NAME and CLOUDINARY_UPLOAD_PRESET are required when VOTER_AUDIT_PROVIDER is 'http'")
		}
	default:
		return nil, fmt.Errorf("VOTER_AUDIT_PROVIDER must be either 'http' or 'mock', got: %s", cfg.VoterAuditProvider)
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("TIMEZONE is invalid: %w", err)
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// MaxImageBytes returns the photo ceiling in bytes.
func (c *Config) MaxImageBytes() int64 {
	return domain.MBToBytes(c.MaxImageMB)
}

// MaxVideoBytes returns the video ceiling in bytes.
func (c *Config) MaxVideoBytes() int64 {
	return domain.MBToBytes(c.MaxVideoMB)
}

// BucketPublicURL returns the public URL prefix for one bucket, or "" when
// S3_PUBLIC_URL is unset.
func (c *Config) BucketPublicURL(bucket string) string {
	if c.S3PublicURL == "" {
		return ""
	}
	return strings.TrimSuffix(c.S3PublicURL, "/") + "/" + bucket
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma-separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
