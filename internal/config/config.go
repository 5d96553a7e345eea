package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is built once at process start and handed to each component
// constructor. Nothing reads environment variables after Load returns.
type Config struct {
	Server   ServerConfig
	OAuth    OAuthConfig
	SMTP     SMTPConfig
	MySQL    MySQLConfig
	Secrets  SecretsConfig
	Redis    RedisConfig
	Provider ProviderConfig
}

type ServerConfig struct {
	Host   string
	Port   int
	APIKey string
}

// OAuthConfig holds the Gmail OAuth application credentials and endpoints.
// AuthURL/TokenURL/APIBaseURL default to Google's endpoints and are only
// overridden in tests.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	AuthURL      string
	TokenURL     string
	APIBaseURL   string

	// RefreshToken is the shared single-tenant credential. Multi-tenant
	// sends use per-user tokens from the credential store instead.
	RefreshToken string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Addr returns the host:port dial address for the SMTP backend.
func (s *SMTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type MySQLConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// GetDSN returns the MySQL Data Source Name for database connections
func (m *MySQLConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		m.User, m.Password, m.Host, m.Port, m.Database)
}

// SecretsConfig selects the credential store backend explicitly. Valid
// backends: gcp, aws, mysql, memory.
type SecretsConfig struct {
	Backend      string
	GCPProjectID string
	AWSRegion    string
	AWSPrefix    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TokenTTL time.Duration
}

type ProviderConfig struct {
	Preferred string
}

// Priority returns the provider resolution order for "auto" requests.
func (p *ProviderConfig) Priority() []string {
	if p.Preferred == "smtp" {
		return []string{"smtp", "gmail_api"}
	}
	return []string{"gmail_api", "smtp"}
}

func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:   getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:   getEnvInt("SERVER_PORT", 8001),
			APIKey: getEnvString("API_KEY", "dev-api-key"),
		},
		OAuth: OAuthConfig{
			ClientID:     getEnvString("GMAIL_CLIENT_ID", ""),
			ClientSecret: getEnvString("GMAIL_CLIENT_SECRET", ""),
			RedirectURI:  getEnvString("OAUTH_REDIRECT_URI", "postmessage"),
			Scopes: getEnvStringArray("GMAIL_OAUTH_SCOPES", []string{
				"https://www.googleapis.com/auth/gmail.send",
				"https://www.googleapis.com/auth/gmail.readonly",
			}),
			AuthURL:      getEnvString("OAUTH_AUTH_URL", "https://accounts.google.com/o/oauth2/v2/auth"),
			TokenURL:     getEnvString("OAUTH_TOKEN_URL", "https://oauth2.googleapis.com/token"),
			APIBaseURL:   getEnvString("GMAIL_API_BASE_URL", ""),
			RefreshToken: getEnvString("GMAIL_REFRESH_TOKEN", ""),
		},
		SMTP: SMTPConfig{
			Host:     getEnvString("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnvString("SMTP_USERNAME", ""),
			Password: getEnvString("SMTP_PASSWORD", ""),
		},
		MySQL: MySQLConfig{
			Host:     getEnvString("MYSQL_HOST", "localhost"),
			Port:     getEnvInt("MYSQL_PORT", 3306),
			User:     getEnvString("MYSQL_USER", "root"),
			Password: getEnvString("MYSQL_PASSWORD", ""),
			Database: getEnvString("MYSQL_DATABASE", "mailgate"),
		},
		Secrets: SecretsConfig{
			Backend:      strings.ToLower(getEnvString("SECRETS_BACKEND", "memory")),
			GCPProjectID: getEnvString("GCP_PROJECT_ID", ""),
			AWSRegion:    getEnvString("AWS_REGION", "us-east-1"),
			AWSPrefix:    getEnvString("AWS_SECRETS_PREFIX", "mailgate"),
		},
		Redis: RedisConfig{
			Addr:     getEnvString("REDIS_ADDR", ""),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TokenTTL: getEnvDuration("REDIS_TOKEN_TTL", 50*time.Minute),
		},
		Provider: ProviderConfig{
			Preferred: getEnvString("PREFERRED_EMAIL_PROVIDER", "gmail_api"),
		},
	}

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if err := json.Unmarshal([]byte(value), &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvStringArray(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result []string
	if err := json.Unmarshal([]byte(value), &result); err != nil {
		// Fall back to space-separated scopes
		return strings.Fields(value)
	}

	return result
}
