package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DB       DBConfig
	Storage  StorageConfig
	MinIO    MinIOConfig
	Session  SessionConfig
	Identity IdentityConfig
	Server   ServerConfig
	Limits   LimitsConfig
}

type DBConfig struct {
	Driver   string // "sqlite" or "postgres"
	Path     string // sqlite file, ":memory:" for an ephemeral database
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type StorageConfig struct {
	Backend string // "database" or "minio"
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type SessionConfig struct {
	Secret          string
	ExpirationHours int
	SecureCookie    bool
}

type IdentityConfig struct {
	AutoApprove     bool
	DevEmail        string
	DevName         string
	VerificationURL string
	PollInterval    int
}

type ServerConfig struct {
	Port           string
	AllowedOrigins string
	BodyLimitMB    int
}

// LimitsConfig seeds the quota of newly created users. Zero means unlimited.
type LimitsConfig struct {
	MaxStorage int64
	MaxFiles   int64
}

func Load() *Config {
	port := getEnv("SERVER_PORT", "8080")
	return &Config{
		DB: DBConfig{
			Driver:   strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			Path:     getEnv("DB_PATH", "filez-dev.db"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "filez"),
			Password: getEnv("DB_PASSWORD", "filez_secret"),
			Name:     getEnv("DB_NAME", "filez"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(getEnv("STORAGE_BACKEND", "database")),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "filez"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "filez_secret"),
			Bucket:    getEnv("MINIO_BUCKET", "filez"),
			UseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
		},
		Session: SessionConfig{
			Secret:          getEnv("SESSION_SECRET", "change-me-in-production"),
			ExpirationHours: getEnvAsInt("SESSION_EXPIRATION_HOURS", 24),
			SecureCookie:    getEnvAsBool("SESSION_SECURE_COOKIE", false),
		},
		Identity: IdentityConfig{
			AutoApprove:     getEnvAsBool("IDENTITY_AUTO_APPROVE", true),
			DevEmail:        getEnv("IDENTITY_DEV_EMAIL", "dev@filez.local"),
			DevName:         getEnv("IDENTITY_DEV_NAME", "Filez Developer"),
			VerificationURL: getEnv("IDENTITY_VERIFICATION_URL", "http://localhost:"+port+"/oauth/device"),
			PollInterval:    getEnvAsInt("IDENTITY_POLL_INTERVAL", 5),
		},
		Server: ServerConfig{
			Port:           port,
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000"),
			BodyLimitMB:    getEnvAsInt("BODY_LIMIT_MB", 100),
		},
		Limits: LimitsConfig{
			MaxStorage: getEnvAsInt64("USER_MAX_STORAGE", 0),
			MaxFiles:   getEnvAsInt64("USER_MAX_FILES", 0),
		},
	}
}

// SessionTTL is the lifetime of a session cookie.
func (c SessionConfig) SessionTTL() time.Duration {
	return time.Duration(c.ExpirationHours) * time.Hour
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
