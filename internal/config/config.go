package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// DefaultAPIKey is only meant for local development; startup logs a warning when it is in use.
const DefaultAPIKey = "dev_secret_key_123"

// DatabaseConfig holds PostgreSQL database connection settings.
// URL, when set, takes precedence over the individual components.
type DatabaseConfig struct {
	URL                string
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int `validate:"gte=0"`
	MaxIdleConns       int `validate:"gte=0"`
	ConnMaxLifetimeSec int `validate:"gte=0"`
}

// MinIOConfig holds object storage settings for MinIO.
// An empty Endpoint disables archiving.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// UploadRetentionDays expires archived bulk uploads; 0 keeps them forever.
	UploadRetentionDays int
}

// Enabled reports whether an object store endpoint was configured.
func (c MinIOConfig) Enabled() bool {
	return c.Endpoint != ""
}

// LLMConfig holds settings for the OpenAI-compatible chat completion backend.
type LLMConfig struct {
	APIKey            string
	BaseURL           string `validate:"omitempty,url"`
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int `validate:"gte=0"`
	MaxRetries        int `validate:"gte=0"`
}

// Enabled reports whether an API key is available for the LLM backend.
func (c LLMConfig) Enabled() bool {
	return c.APIKey != ""
}

// AppConfig is the centralized configuration struct for the API service and the CLI.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Env            string
	Timezone       string `validate:"required"`
	Port           string `validate:"required,numeric"`
	APIKey         string `validate:"required"`
	LogLevel       string `validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	FuzzyThreshold int    `validate:"gte=0,lte=100"`
	Database       DatabaseConfig
	MinIO          MinIOConfig
	LLM            LLMConfig
}

// UsingDefaultAPIKey reports whether the development key is still configured.
func (c *AppConfig) UsingDefaultAPIKey() bool {
	return c.APIKey == DefaultAPIKey
}

// Location resolves Timezone, falling back to UTC when it cannot be loaded.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks field constraints and returns a readable error for the first violations.
func (c *AppConfig) Validate() error {
	return validateStruct(c)
}

// UIConfig is the configuration of the web UI process.
type UIConfig struct {
	Env            string
	Port           string `validate:"required,numeric"`
	APIBaseURL     string `validate:"required,url"`
	APIKey         string `validate:"required"`
	LogLevel       string
	TemplateDir    string `validate:"required"`
	TemplateReload bool
	MasterDataTTL  time.Duration
	SummaryTTL     time.Duration
	RequestTimeout time.Duration
}

// Validate checks field constraints of the UI configuration.
func (c *UIConfig) Validate() error {
	return validateStruct(c)
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	k := loadEnv()
	return &AppConfig{
		Env:            getEnv(k, "APP_ENV", "production"),
		Timezone:       getEnv(k, "APP_TIMEZONE", "UTC"),
		Port:           getEnv(k, "PORT", "8000"),
		APIKey:         getEnv(k, "API_KEY", DefaultAPIKey),
		LogLevel:       getEnv(k, "LOG_LEVEL", "info"),
		FuzzyThreshold: getEnvInt(k, "FUZZY_MATCH_THRESHOLD", 80),
		Database: DatabaseConfig{
			URL:                getEnv(k, "DB_CONNECTION_STRING", ""),
			Host:               getEnv(k, "DB_HOST", ""),
			Port:               getEnv(k, "DB_PORT", "5432"),
			User:               getEnv(k, "DB_USER", ""),
			Password:           getEnv(k, "DB_PASSWORD", ""),
			Name:               getEnv(k, "DB_NAME", ""),
			SSLMode:            getEnv(k, "DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt(k, "DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt(k, "DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt(k, "DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv(k, "MINIO_ENDPOINT", ""),
			AccessKey: getEnv(k, "MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv(k, "MINIO_SECRET_KEY", ""),
			Bucket:    getEnv(k, "MINIO_BUCKET", "pod-tracker"),
			UseSSL:    getEnvBool(k, "MINIO_USE_SSL", false),

			UploadRetentionDays: getEnvInt(k, "MINIO_UPLOAD_RETENTION_DAYS", 30),
		},
		LLM: LLMConfig{
			APIKey:            getEnv(k, "OPENAI_API_KEY", ""),
			BaseURL:           getEnv(k, "OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:             getEnv(k, "OPENAI_MODEL", "gpt-4o"),
			Timeout:           time.Duration(getEnvInt(k, "OPENAI_TIMEOUT_SEC", 60)) * time.Second,
			RequestsPerMinute: getEnvInt(k, "LLM_REQUESTS_PER_MINUTE", 30),
			MaxRetries:        getEnvInt(k, "OPENAI_MAX_RETRIES", 2),
		},
	}
}

// LoadUI reads the UI process configuration. The API address is read from
// api_base_url; keys are matched case-insensitively.
func LoadUI() *UIConfig {
	k := loadEnv()
	return &UIConfig{
		Env:            getEnv(k, "APP_ENV", "production"),
		Port:           getEnv(k, "UI_PORT", "8501"),
		APIBaseURL:     strings.TrimRight(getEnv(k, "API_BASE_URL", "http://127.0.0.1:8000"), "/"),
		APIKey:         getEnv(k, "API_KEY", ""),
		LogLevel:       getEnv(k, "LOG_LEVEL", "info"),
		TemplateDir:    getEnv(k, "UI_TEMPLATE_DIR", "web/templates"),
		TemplateReload: getEnvBool(k, "UI_TEMPLATE_RELOAD", false),
		MasterDataTTL:  time.Duration(getEnvInt(k, "UI_MASTER_DATA_TTL_SEC", 3600)) * time.Second,
		SummaryTTL:     time.Duration(getEnvInt(k, "UI_SUMMARY_TTL_SEC", 60)) * time.Second,
		RequestTimeout: time.Duration(getEnvInt(k, "UI_REQUEST_TIMEOUT_SEC", 120)) * time.Second,
	}
}

// loadEnv snapshots the process environment into koanf with lower-cased keys,
// so API_BASE_URL and api_base_url resolve to the same entry.
func loadEnv() *koanf.Koanf {
	k := koanf.New(".")
	// The env provider never fails for a plain environment snapshot.
	_ = k.Load(env.Provider("", ".", strings.ToLower), nil)
	return k
}

func getEnv(k *koanf.Koanf, key, def string) string {
	if v := k.String(strings.ToLower(key)); v != "" {
		return v
	}
	return def
}

func getEnvBool(k *koanf.Koanf, key string, def bool) bool {
	if v := k.String(strings.ToLower(key)); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(k *koanf.Koanf, key string, def int) int {
	if v := k.String(strings.ToLower(key)); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

var validate = validator.New()

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
