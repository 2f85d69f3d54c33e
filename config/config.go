package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Storage    StorageConfig
	Attendance AttendanceConfig
	Bootstrap  BootstrapConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings. The classroom session store,
// the realtime pub/sub bridge and the job queue all share this instance.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds access-token signing settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// StorageConfig holds object storage settings for the cloud drive.
type StorageConfig struct {
	Region          string
	Endpoint        string // optional, for MinIO-compatible deployments
	AccessKeyID     string
	SecretAccessKey string
	CloudBucket     string
	PublicBucket    string
}

// AttendanceConfig holds live-classroom attendance defaults.
type AttendanceConfig struct {
	// WindowSeconds is the default attendance window when a teacher opens a
	// classroom without specifying one.
	WindowSeconds int
	// TokenWindowSeconds is how long each issued QR token stays valid.
	TokenWindowSeconds int
}

// BootstrapConfig seeds the first admin account on startup.
type BootstrapConfig struct {
	AdminID       string
	AdminPassword string
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "campus"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 192),
		},
		Storage: StorageConfig{
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			CloudBucket:     getEnv("S3_CLOUD_BUCKET", "cloud"),
			PublicBucket:    getEnv("S3_PUBLIC_BUCKET", "public"),
		},
		Attendance: AttendanceConfig{
			WindowSeconds:      getEnvInt("ATTENDANCE_WINDOW_SEC", 300),
			TokenWindowSeconds: getEnvInt("ATTENDANCE_TOKEN_WINDOW_SEC", 20),
		},
		Bootstrap: BootstrapConfig{
			AdminID:       getEnv("FIRST_ADMIN_ID", "admin"),
			AdminPassword: getEnv("FIRST_ADMIN_PASSWORD", ""),
		},
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
