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

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port      string
	Env       string
	JWTSecret string

	DB         DatabaseConfig
	Redis      RedisConfig
	VTEX       VTEXConfig
	Meta       MetaConfig
	Classifier ClassifierConfig
	Sync       SyncConfig
	Upload     UploadConfig
	RateLimit  RateLimitConfig
	Notify     NotifyConfig
	Admin      AdminConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MigrationsPath string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// VTEXConfig contains credentials for the source inventory API.
type VTEXConfig struct {
	AppKey   string
	AppToken string
	Scheme   string
}

// MetaConfig contains the destination catalog API settings.
type MetaConfig struct {
	BaseURL      string
	DefaultToken string
}

// ClassifierConfig contains settings for the AI policy classifier.
type ClassifierConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	InputLimit int
}

// SyncConfig contains the extraction pipeline parameters.
type SyncConfig struct {
	Workers        int
	Mode           string
	BatchSize      int
	DefaultRules   []string
	ValidationTTL  time.Duration
	QueueTTL       time.Duration
	LockTTL        time.Duration
	LockRenewEvery time.Duration
	Interval       time.Duration
	SkipClassifier bool
	CacheBackend   string
}

// UploadConfig contains the upload pipeline parameters.
type UploadConfig struct {
	BatchSize         int
	Interval          time.Duration
	CleanupInterval   time.Duration
	ProcessingTimeout time.Duration
}

// RateLimitConfig contains outbound throttling and retry parameters.
type RateLimitConfig struct {
	CallsPerSecond int
	CallsPerMinute int
	SecondSleep    time.Duration
	MinuteSleep    time.Duration
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	MinAttempts    int
}

// NotifyConfig contains operator notification targets. Empty values disable a backend.
type NotifyConfig struct {
	WebhookURL    string
	WebhookSecret string
	SNSTopicARN   string
	SNSRegion     string
}

// AdminConfig contains the admin token lifetime and optional bootstrap operator.
type AdminConfig struct {
	Email    string
	Password string
	TokenTTL time.Duration
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first.
func Load() (*Config, error) {
	// Production relies on real environment variables; the file is optional.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")

	// Database
	cfg.DB = DatabaseConfig{
		Host:           getEnv("DB_HOST", ""),
		Port:           getEnv("DB_PORT", "5432"),
		User:           getEnv("DB_USER", ""),
		Password:       getEnv("DB_PASSWORD", ""),
		Name:           getEnv("DB_NAME", ""),
		SSLMode:        getEnv("DB_SSLMODE", "disable"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "file://migrations"),
		MaxOpenConns:   getEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:   getEnvInt("DB_MAX_IDLE_CONNS", 5),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	cfg.VTEX = VTEXConfig{
		AppKey:   getEnv("VTEX_APP_KEY", ""),
		AppToken: getEnv("VTEX_APP_TOKEN", ""),
		Scheme:   getEnv("VTEX_SCHEME", "https"),
	}

	cfg.Meta = MetaConfig{
		BaseURL:      getEnv("META_BASE_URL", "https://graph.facebook.com/v19.0"),
		DefaultToken: getEnv("META_ACCESS_TOKEN", ""),
	}

	// Classifier (Groq or any OpenAI-compatible endpoint)
	cfg.Classifier = ClassifierConfig{
		BaseURL:    getEnv("CLASSIFIER_BASE_URL", "https://api.groq.com/openai/v1"),
		APIKey:     getEnv("GROQ_API_KEY", ""),
		Model:      getEnv("GROQ_MODEL", "llama-3.1-8b-instant"),
		InputLimit: getEnvInt("CLASSIFIER_INPUT_LIMIT", 1000),
	}

	cfg.Sync = SyncConfig{
		Workers:        getEnvInt("SYNC_WORKERS", 4),
		Mode:           getEnv("SYNC_MODE", "single"),
		BatchSize:      getEnvInt("SYNC_BATCH_SIZE", 100),
		DefaultRules:   getEnvList("SYNC_DEFAULT_RULES"),
		SkipClassifier: getEnvBool("SYNC_SKIP_CLASSIFIER", false),
		CacheBackend:   getEnv("VALIDATION_CACHE_BACKEND", "redis"),
	}

	cfg.Upload = UploadConfig{
		BatchSize: getEnvInt("UPLOAD_BATCH_SIZE", 500),
	}

	cfg.RateLimit = RateLimitConfig{
		CallsPerSecond: getEnvInt("RATE_LIMIT_PER_SECOND", 10),
		CallsPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 300),
		MaxAttempts:    getEnvInt("RETRY_MAX_ATTEMPTS", 5),
		MinAttempts:    getEnvInt("RATE_LIMIT_MIN_ATTEMPTS", 1),
	}

	cfg.Notify = NotifyConfig{
		WebhookURL:    getEnv("NOTIFY_WEBHOOK_URL", ""),
		WebhookSecret: getEnv("NOTIFY_WEBHOOK_SECRET", ""),
		SNSTopicARN:   getEnv("NOTIFY_SNS_TOPIC_ARN", ""),
		SNSRegion:     getEnv("NOTIFY_SNS_REGION", "us-east-1"),
	}

	cfg.Admin = AdminConfig{
		Email:    getEnv("ADMIN_EMAIL", ""),
		Password: getEnv("ADMIN_PASSWORD", ""),
	}

	// Durations
	var err error
	durations := []struct {
		dst *time.Duration
		key string
		def string
	}{
		{&cfg.Sync.ValidationTTL, "VALIDATION_TTL", "168h"},
		{&cfg.Sync.QueueTTL, "QUEUE_TTL", "24h"},
		{&cfg.Sync.LockTTL, "LOCK_TTL", "30m"},
		{&cfg.Sync.LockRenewEvery, "LOCK_RENEW_INTERVAL", "5m"},
		{&cfg.Sync.Interval, "SYNC_INTERVAL", "6h"},
		{&cfg.Upload.Interval, "UPLOAD_INTERVAL", "1m"},
		{&cfg.Upload.CleanupInterval, "UPLOAD_CLEANUP_INTERVAL", "15m"},
		{&cfg.Upload.ProcessingTimeout, "UPLOAD_PROCESSING_TIMEOUT", "30m"},
		{&cfg.RateLimit.SecondSleep, "RATE_LIMIT_SECOND_SLEEP", "1s"},
		{&cfg.RateLimit.MinuteSleep, "RATE_LIMIT_MINUTE_SLEEP", "1m"},
		{&cfg.RateLimit.BaseDelay, "RETRY_BASE_DELAY", "1s"},
		{&cfg.RateLimit.MaxDelay, "RETRY_MAX_DELAY", "30s"},
		{&cfg.Admin.TokenTTL, "ADMIN_TOKEN_TTL", "12h"},
		{&cfg.DB.ConnMaxLifetime, "DB_CONN_MAX_LIFETIME", "5m"},
	}
	for _, d := range durations {
		if *d.dst, err = parseDurationEnv(d.key, d.def); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values and ranges.
func (c *Config) Validate() error {
	if c.DB.Host == "" || c.DB.User == "" || c.DB.Name == "" {
		return errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set for authentication")
	}
	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	if c.DB.MaxOpenConns < 1 || c.DB.MaxIdleConns < 0 || c.DB.MaxIdleConns > c.DB.MaxOpenConns {
		return errors.New("DB_MAX_IDLE_CONNS must be between 0 and DB_MAX_OPEN_CONNS, which must be >= 1")
	}
	if c.Sync.Workers < 1 {
		return errors.New("SYNC_WORKERS must be >= 1")
	}
	if c.Sync.BatchSize < 1 || c.Upload.BatchSize < 1 {
		return errors.New("SYNC_BATCH_SIZE and UPLOAD_BATCH_SIZE must be >= 1")
	}
	if c.Sync.LockTTL <= 0 {
		return errors.New("LOCK_TTL must be > 0")
	}
	if c.Sync.LockRenewEvery > 0 && c.Sync.LockRenewEvery >= c.Sync.LockTTL {
		return fmt.Errorf("LOCK_RENEW_INTERVAL (%s) must be shorter than LOCK_TTL (%s)", c.Sync.LockRenewEvery, c.Sync.LockTTL)
	}
	if c.Sync.Mode != "single" && c.Sync.Mode != "seller_sku" {
		return fmt.Errorf("SYNC_MODE must be single or seller_sku, got %q", c.Sync.Mode)
	}
	if c.Sync.CacheBackend != "redis" && c.Sync.CacheBackend != "memory" {
		return fmt.Errorf("VALIDATION_CACHE_BACKEND must be redis or memory, got %q", c.Sync.CacheBackend)
	}
	return nil
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getEnvList splits a comma-separated variable, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}
