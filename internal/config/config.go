package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
	}

	Server struct {
		Port            string
		GinMode         string
		Environment     string
		ShutdownTimeout time.Duration
	}

	Storage struct {
		Type                   string
		MaxTransactionAttempts int
	}

	Auth struct {
		JWTSecret      string
		Issuer         string
		AllowedDomains []string
		AdminEmails    []string
	}

	Photos struct {
		Endpoint      string
		AccessKey     string
		SecretKey     string
		Bucket        string
		UseSSL        bool
		PublicBaseURL string
		MaxFileSize   int64
	}

	Events struct {
		Enabled  bool
		Brokers  []string
		Topic    string
		ClientID string
	}

	CORS struct {
		AllowOrigins string
		AllowMethods string
		AllowHeaders string
	}

	Log struct {
		Level string
	}
}

// Load loads configuration from environment variables
func Load() *Config {
	_ = godotenv.Load()

	config := &Config{}

	config.DB.Host = getEnv("DB_HOST", "localhost")
	config.DB.Port = getEnv("DB_PORT", "5432")
	config.DB.User = getEnv("DB_USER", "awards")
	config.DB.Password = getEnv("DB_PASSWORD", "awards_password")
	config.DB.Name = getEnv("DB_NAME", "awards_db")
	config.DB.SSLMode = getEnv("DB_SSLMODE", "disable")

	config.Server.Port = getEnv("PORT", "8080")
	config.Server.GinMode = getEnv("GIN_MODE", "debug")
	config.Server.Environment = getEnv("APP_ENV", "development")
	config.Server.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second)

	config.Storage.Type = getEnv("STORAGE_TYPE", "postgres")
	config.Storage.MaxTransactionAttempts = int(getEnvAsInt64("STORAGE_MAX_TX_ATTEMPTS", 5))

	config.Auth.JWTSecret = getEnv("AUTH_JWT_SECRET", "")
	config.Auth.Issuer = getEnv("AUTH_ISSUER", "")
	config.Auth.AllowedDomains = getEnvAsList("AUTH_ALLOWED_DOMAINS", "karunya.edu,karunya.edu.in")
	config.Auth.AdminEmails = getEnvAsList("AUTH_ADMIN_EMAILS", "")

	config.Photos.Endpoint = getEnv("MINIO_ENDPOINT", "")
	config.Photos.AccessKey = getEnv("MINIO_ACCESS_KEY", "")
	config.Photos.SecretKey = getEnv("MINIO_SECRET_KEY", "")
	config.Photos.Bucket = getEnv("MINIO_BUCKET", "candidate-photos")
	config.Photos.UseSSL = getEnvAsBool("MINIO_USE_SSL", false)
	config.Photos.PublicBaseURL = getEnv("MINIO_PUBLIC_BASE_URL", "")
	config.Photos.MaxFileSize = getEnvAsInt64("MAX_PHOTO_SIZE", 5242880)

	config.Events.Enabled = getEnvAsBool("EVENTS_ENABLED", false)
	config.Events.Brokers = getEnvAsList("KAFKA_BROKERS", "localhost:9092")
	config.Events.Topic = getEnv("KAFKA_VOTES_TOPIC", "awards.votes")
	config.Events.ClientID = getEnv("KAFKA_CLIENT_ID", "campus-awards-api")

	config.CORS.AllowOrigins = getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")
	config.CORS.AllowMethods = getEnv("CORS_ALLOW_METHODS", "GET,POST,PUT,PATCH,DELETE,HEAD,OPTIONS")
	config.CORS.AllowHeaders = getEnv("CORS_ALLOW_HEADERS", "Origin,Content-Length,Content-Type,Authorization")

	config.Log.Level = getEnv("LOG_LEVEL", "info")

	return config
}

// Validate checks the settings the server cannot start without
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}
	if len(c.Auth.AllowedDomains) == 0 {
		errs = append(errs, errors.New("AUTH_ALLOWED_DOMAINS must list at least one domain"))
	}
	if c.Storage.MaxTransactionAttempts < 1 {
		errs = append(errs, fmt.Errorf("STORAGE_MAX_TX_ATTEMPTS must be positive, got %d", c.Storage.MaxTransactionAttempts))
	}
	if c.Events.Enabled && len(c.Events.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when events are enabled"))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether the server runs with production settings
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// PhotosEnabled reports whether an object store is configured for candidate photos
func (c *Config) PhotosEnabled() bool {
	return c.Photos.Endpoint != ""
}

// GetDatabaseURL returns the database connection URL
func (c *Config) GetDatabaseURL() string {
	return "postgres://" + c.DB.User + ":" + c.DB.Password + "@" + c.DB.Host + ":" + c.DB.Port + "/" + c.DB.Name + "?sslmode=" + c.DB.SSLMode
}

// SplitList splits a comma separated setting, dropping blanks
func SplitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt64 gets an environment variable as int64 or returns a default value
func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key, defaultValue string) []string {
	return SplitList(getEnv(key, defaultValue))
}
