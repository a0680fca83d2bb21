package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultDBHost = "127.0.0.1"
	defaultDBUser = "ai_grader_user"
	defaultDBName = "ai_grader"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	TimeoutSec         int
}

// Timeout returns the per-operation database deadline.
func (c DatabaseConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// EncoderConfig selects and configures the sentence encoder used for scoring.
// Provider "openai" talks to any OpenAI-compatible /embeddings endpoint
// (e.g. a text-embeddings-inference server hosting all-MiniLM-L6-v2);
// provider "hashing" is a deterministic offline encoder for development.
type EncoderConfig struct {
	Provider   string
	Endpoint   string
	APIKey     string
	Model      string
	Dimensions int
	TimeoutSec int
}

// Timeout returns the deadline applied to one encode call.
func (c EncoderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Env         string
	Port        string
	Timezone    string
	LogLevel    string
	CORSOrigins string
	MaxUploadMB int
	Database    DatabaseConfig
	MinIO       MinIOConfig
	Encoder     EncoderConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// Database defaults are for local development only; see Validate.
func Load() *AppConfig {
	return &AppConfig{
		Env:         getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		Timezone:    getEnv("APP_TIMEZONE", "UTC"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
		MaxUploadMB: getEnvInt("MAX_UPLOAD_MB", 20),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", defaultDBHost),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", defaultDBUser),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", defaultDBName),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			TimeoutSec:         getEnvInt("DB_TIMEOUT_SEC", 5),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "uploads"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Encoder: EncoderConfig{
			Provider:   strings.ToLower(getEnv("ENCODER_PROVIDER", "openai")),
			Endpoint:   getEnv("ENCODER_ENDPOINT", "http://localhost:8081/v1"),
			APIKey:     getEnv("ENCODER_API_KEY", ""),
			Model:      getEnv("ENCODER_MODEL", "all-MiniLM-L6-v2"),
			Dimensions: getEnvInt("ENCODER_DIMENSIONS", 384),
			TimeoutSec: getEnvInt("ENCODER_TIMEOUT_SEC", 30),
		},
	}
}

// IsProduction reports whether APP_ENV selects a production deployment.
func (c *AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// multipartHeadroom covers form boundaries, part headers and extra fields.
const multipartHeadroom = 1 << 20

// MaxUploadBytes is the per-file upload limit derived from MAX_UPLOAD_MB.
func (c *AppConfig) MaxUploadBytes() int {
	return c.MaxUploadMB * 1024 * 1024
}

// BodyLimitBytes is the HTTP request body limit. It sits above MaxUploadBytes
// so that an oversized file is rejected by the upload handler, not the server.
func (c *AppConfig) BodyLimitBytes() int {
	return c.MaxUploadBytes() + multipartHeadroom
}

// Validate rejects production deployments that still run on development defaults.
func (c *AppConfig) Validate() error {
	if !c.IsProduction() {
		return nil
	}
	var errs []error
	if c.Database.Password == "" {
		errs = append(errs, errors.New("DB_PASSWORD must be set in production"))
	}
	if c.Database.Host == defaultDBHost || c.Database.User == defaultDBUser {
		errs = append(errs, errors.New("DB_HOST and DB_USER must be set explicitly in production"))
	}
	if c.CORSOrigins == "*" {
		errs = append(errs, errors.New("CORS_ALLOW_ORIGINS must not be a wildcard in production"))
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
