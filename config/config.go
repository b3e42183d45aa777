package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/cliptag/backend/internal/video"
	"github.com/cliptag/backend/pkg/utils"
)

const defaultJWTSecret = "change-me-in-production"

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Video    VideoConfig
	Redis    RedisConfig
	AWS      AWSConfig
	Admin    AdminConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string
	ReadTimeout    int
	WriteTimeout   int    // 0 disables the write deadline so long video streams are not cut off
	FrontendOrigin string // comma-separated, or "*" for all
	FrontendDist   string // optional path to a prebuilt frontend bundle
}

// DatabaseConfig selects the event store backend.
type DatabaseConfig struct {
	URL string // postgres://..., mysql://... or a SQLite file path
}

// VideoConfig describes the upstream video the relay serves.
type VideoConfig struct {
	SourceURL string // resolved http(s) URL or s3://bucket/key; empty disables the relay
	Referer   string
}

// Configured reports whether an upstream video source is set.
func (v VideoConfig) Configured() bool { return v.SourceURL != "" }

// RedisConfig holds Redis connection settings. Empty Addr disables async exports.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether Redis is configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// AWSConfig holds AWS credentials and the exports bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	ExportsBucket        string
	PresignExpireMinutes int
}

// Enabled reports whether an S3 client can be built.
func (a AWSConfig) Enabled() bool { return a.Region != "" }

// AdminConfig guards the administrative routes.
type AdminConfig struct {
	PasswordHash   string // bcrypt; empty leaves admin routes open
	JWTSecret      string
	JWTExpireHours int
}

// Enabled reports whether admin routes require a token.
func (a AdminConfig) Enabled() bool { return a.PasswordHash != "" }

// LogConfig holds logger settings.
type LogConfig struct {
	Level string
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	origin := getEnv("FRONTEND_ORIGIN", "http://localhost:5173")
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "3001"),
			ReadTimeout:    getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:   getEnvInt("WRITE_TIMEOUT_SEC", 0),
			FrontendOrigin: origin,
			FrontendDist:   strings.TrimSpace(os.Getenv("FRONTEND_DIST")),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", "postgres://localhost:5432/cliptag?sslmode=disable"),
		},
		Video: VideoConfig{
			SourceURL: video.ResolveSourceURL(os.Getenv("VIDEO_SOURCE_URL")),
			Referer:   getEnv("VIDEO_SOURCE_REFERER", firstOrigin(origin)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		AWS: AWSConfig{
			Region:               os.Getenv("AWS_REGION"),
			AccessKeyID:          os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey:      os.Getenv("AWS_SECRET_ACCESS_KEY"),
			ExportsBucket:        getEnv("AWS_S3_EXPORTS_BUCKET", "cliptag-exports"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Admin: AdminConfig{
			PasswordHash:   os.Getenv("ADMIN_PASSWORD_HASH"),
			JWTSecret:      getEnv("JWT_SECRET", defaultJWTSecret),
			JWTExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 12),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fails fast on settings that would otherwise only break at request time.
func (c *Config) Validate() error {
	if c.Video.SourceURL != "" {
		u, err := url.Parse(c.Video.SourceURL)
		if err != nil {
			return fmt.Errorf("VIDEO_SOURCE_URL: %w", err)
		}
		switch u.Scheme {
		case "http", "https":
			if u.Host == "" {
				return errors.New("VIDEO_SOURCE_URL: missing host")
			}
		case "s3":
			if u.Host == "" || strings.Trim(u.Path, "/") == "" {
				return errors.New("VIDEO_SOURCE_URL: s3 source must look like s3://bucket/key")
			}
			if !c.AWS.Enabled() {
				return errors.New("VIDEO_SOURCE_URL: s3 source requires AWS_REGION")
			}
		default:
			return fmt.Errorf("VIDEO_SOURCE_URL: unsupported scheme %q", u.Scheme)
		}
	}
	if c.Admin.Enabled() && !utils.IsPasswordHash(c.Admin.PasswordHash) {
		return errors.New("ADMIN_PASSWORD_HASH is not a bcrypt hash; generate one with `cliptag hash-password`")
	}
	if c.Admin.Enabled() && c.Admin.JWTSecret == defaultJWTSecret {
		return errors.New("JWT_SECRET must be set when ADMIN_PASSWORD_HASH is configured")
	}
	if c.Server.Port == "" {
		return errors.New("PORT must not be empty")
	}
	return nil
}

func firstOrigin(origins string) string {
	for _, o := range splitTrim(origins, ",") {
		if o != "*" {
			return o
		}
	}
	return ""
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// SplitOrigins returns the configured CORS origins as a slice.
func (s ServerConfig) SplitOrigins() []string {
	return splitTrim(s.FrontendOrigin, ",")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
