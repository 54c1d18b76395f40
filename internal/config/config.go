package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	S3         S3Config
	Log        LogConfig
	Queue      QueueConfig
	Extraction ExtractionConfig
	Notify     NotifyConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Janitor    JanitorConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds AWS S3 settings for the raw report backup.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// LogConfig holds logging settings. Level "debug" turns on gin's route and
// request debug output; anything else runs gin in release mode.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// QueueConfig holds worker pool settings.
type QueueConfig struct {
	Workers    int           `mapstructure:"workers"`
	Capacity   int           `mapstructure:"capacity"`
	JobTimeout time.Duration `mapstructure:"job_timeout"`
}

// MaxJobLatency is the longest a job can stay PROCESSING: a full queue
// drains in ceil(Capacity/Workers) rounds of JobTimeout, plus its own run.
func (q QueueConfig) MaxJobLatency() time.Duration {
	if q.Workers <= 0 {
		return 0
	}
	rounds := (q.Capacity + q.Workers - 1) / q.Workers
	return time.Duration(rounds+1) * q.JobTimeout
}

// ExtractionConfig holds document pipeline settings.
type ExtractionConfig struct {
	UploadDir     string `mapstructure:"upload_dir"`
	WorkDir       string `mapstructure:"work_dir"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	Flavor        string `mapstructure:"flavor"`
	Pages         string `mapstructure:"pages"`
	LineScale     int    `mapstructure:"line_scale"`
	DPI           int    `mapstructure:"dpi"`
	Renderer      string `mapstructure:"renderer"`
	PdftoppmPath  string `mapstructure:"pdftoppm_path"`
	ChunkSize     int    `mapstructure:"chunk_size"`
}

// NotifyConfig holds webhook and email notification settings.
type NotifyConfig struct {
	DefaultWebhookURL string        `mapstructure:"default_webhook_url"`
	WebhookTimeout    time.Duration `mapstructure:"webhook_timeout"`
	EmailProvider     string        `mapstructure:"email_provider"`
	EmailRegion       string        `mapstructure:"email_region"`
	FromAddress       string        `mapstructure:"from_address"`
	FromName          string        `mapstructure:"from_name"`
	ToAddresses       []string      `mapstructure:"to_addresses"`
}

// AuthConfig holds bearer-token settings. An empty secret disables auth.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// RateLimitConfig holds ingress rate limiting settings.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"rps"`
	Burst             int     `mapstructure:"burst"`
}

// JanitorConfig holds the orphan cleanup schedule.
type JanitorConfig struct {
	Schedule   string        `mapstructure:"schedule"`
	MaxFileAge time.Duration `mapstructure:"max_file_age"`
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

// Load reads configuration from environment variables with the CRPARSER_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRPARSER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":5000")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "crparser")
	v.SetDefault("db.password", "crparser_secret")
	v.SetDefault("db.name", "crparser_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "eu-south-1")
	v.SetDefault("s3.bucket", "cr-parser-backup")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.key_prefix", "")

	// Log defaults
	v.SetDefault("log.level", "info")

	// Queue defaults
	v.SetDefault("queue.workers", 4)
	v.SetDefault("queue.capacity", 32)
	v.SetDefault("queue.job_timeout", "5m")

	// Extraction defaults
	v.SetDefault("extraction.upload_dir", "./temp_uploads")
	v.SetDefault("extraction.work_dir", "")
	v.SetDefault("extraction.max_file_size_mb", 20)
	v.SetDefault("extraction.flavor", "lattice")
	v.SetDefault("extraction.pages", "all")
	v.SetDefault("extraction.line_scale", 40)
	v.SetDefault("extraction.dpi", 144)
	v.SetDefault("extraction.renderer", "vector")
	v.SetDefault("extraction.pdftoppm_path", "pdftoppm")
	v.SetDefault("extraction.chunk_size", 25)

	// Notify defaults
	v.SetDefault("notify.default_webhook_url", "http://localhost:5000/webhook")
	v.SetDefault("notify.webhook_timeout", "5s")
	v.SetDefault("notify.email_provider", "noop")
	v.SetDefault("notify.email_region", "eu-south-1")
	v.SetDefault("notify.from_address", "noreply@crparser.local")
	v.SetDefault("notify.from_name", "CR Parser")
	v.SetDefault("notify.to_addresses", "")

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "crparser")

	// Rate limit defaults
	v.SetDefault("ratelimit.rps", 5)
	v.SetDefault("ratelimit.burst", 10)

	// Janitor defaults
	v.SetDefault("janitor.schedule", "*/15 * * * *")
	v.SetDefault("janitor.max_file_age", "1h")
	v.SetDefault("janitor.stale_after", "1h")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                 "CRPARSER_SERVER_PORT",
		"server.read_timeout":         "CRPARSER_SERVER_READ_TIMEOUT",
		"server.write_timeout":        "CRPARSER_SERVER_WRITE_TIMEOUT",
		"server.environment":          "CRPARSER_SERVER_ENVIRONMENT",
		"db.host":                     "CRPARSER_DB_HOST",
		"db.port":                     "CRPARSER_DB_PORT",
		"db.user":                     "CRPARSER_DB_USER",
		"db.password":                 "CRPARSER_DB_PASSWORD",
		"db.name":                     "CRPARSER_DB_NAME",
		"db.sslmode":                  "CRPARSER_DB_SSLMODE",
		"db.max_open":                 "CRPARSER_DB_MAX_OPEN",
		"db.max_idle":                 "CRPARSER_DB_MAX_IDLE",
		"s3.region":                   "CRPARSER_S3_REGION",
		"s3.bucket":                   "CRPARSER_S3_BUCKET",
		"s3.endpoint":                 "CRPARSER_S3_ENDPOINT",
		"s3.access_key":               "CRPARSER_S3_ACCESS_KEY",
		"s3.secret_key":               "CRPARSER_S3_SECRET_KEY",
		"s3.key_prefix":               "CRPARSER_S3_KEY_PREFIX",
		"log.level":                   "CRPARSER_LOG_LEVEL",
		"queue.workers":               "CRPARSER_QUEUE_WORKERS",
		"queue.capacity":              "CRPARSER_QUEUE_CAPACITY",
		"queue.job_timeout":           "CRPARSER_QUEUE_JOB_TIMEOUT",
		"extraction.upload_dir":       "CRPARSER_EXTRACTION_UPLOAD_DIR",
		"extraction.work_dir":         "CRPARSER_EXTRACTION_WORK_DIR",
		"extraction.max_file_size_mb": "CRPARSER_EXTRACTION_MAX_FILE_SIZE_MB",
		"extraction.flavor":           "CRPARSER_EXTRACTION_FLAVOR",
		"extraction.pages":            "CRPARSER_EXTRACTION_PAGES",
		"extraction.line_scale":       "CRPARSER_EXTRACTION_LINE_SCALE",
		"extraction.dpi":              "CRPARSER_EXTRACTION_DPI",
		"extraction.renderer":         "CRPARSER_EXTRACTION_RENDERER",
		"extraction.pdftoppm_path":    "CRPARSER_EXTRACTION_PDFTOPPM_PATH",
		"extraction.chunk_size":       "CRPARSER_EXTRACTION_CHUNK_SIZE",
		"notify.default_webhook_url":  "CRPARSER_NOTIFY_DEFAULT_WEBHOOK_URL",
		"notify.webhook_timeout":      "CRPARSER_NOTIFY_WEBHOOK_TIMEOUT",
		"notify.email_provider":       "CRPARSER_NOTIFY_EMAIL_PROVIDER",
		"notify.email_region":         "CRPARSER_NOTIFY_EMAIL_REGION",
		"notify.from_address":         "CRPARSER_NOTIFY_FROM_ADDRESS",
		"notify.from_name":            "CRPARSER_NOTIFY_FROM_NAME",
		"notify.to_addresses":         "CRPARSER_NOTIFY_TO_ADDRESSES",
		"auth.jwt_secret":             "CRPARSER_AUTH_JWT_SECRET",
		"auth.issuer":                 "CRPARSER_AUTH_ISSUER",
		"ratelimit.rps":               "CRPARSER_RATELIMIT_RPS",
		"ratelimit.burst":             "CRPARSER_RATELIMIT_BURST",
		"janitor.schedule":            "CRPARSER_JANITOR_SCHEDULE",
		"janitor.max_file_age":        "CRPARSER_JANITOR_MAX_FILE_AGE",
		"janitor.stale_after":         "CRPARSER_JANITOR_STALE_AFTER",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Container platforms set a PORT env var. Use it if CRPARSER_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("CRPARSER_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
		KeyPrefix: v.GetString("s3.key_prefix"),
	}
	cfg.Log = LogConfig{
		Level: strings.ToLower(v.GetString("log.level")),
	}
	cfg.Queue = QueueConfig{
		Workers:    v.GetInt("queue.workers"),
		Capacity:   v.GetInt("queue.capacity"),
		JobTimeout: v.GetDuration("queue.job_timeout"),
	}
	cfg.Extraction = ExtractionConfig{
		UploadDir:     v.GetString("extraction.upload_dir"),
		WorkDir:       v.GetString("extraction.work_dir"),
		MaxFileSizeMB: v.GetInt64("extraction.max_file_size_mb"),
		Flavor:        v.GetString("extraction.flavor"),
		Pages:         v.GetString("extraction.pages"),
		LineScale:     v.GetInt("extraction.line_scale"),
		DPI:           v.GetInt("extraction.dpi"),
		Renderer:      v.GetString("extraction.renderer"),
		PdftoppmPath:  v.GetString("extraction.pdftoppm_path"),
		ChunkSize:     v.GetInt("extraction.chunk_size"),
	}
	// Raster artifacts live beside the uploads unless a work dir is given.
	if cfg.Extraction.WorkDir == "" {
		cfg.Extraction.WorkDir = cfg.Extraction.UploadDir
	}

	cfg.Notify = NotifyConfig{
		DefaultWebhookURL: v.GetString("notify.default_webhook_url"),
		WebhookTimeout:    v.GetDuration("notify.webhook_timeout"),
		EmailProvider:     v.GetString("notify.email_provider"),
		EmailRegion:       v.GetString("notify.email_region"),
		FromAddress:       v.GetString("notify.from_address"),
		FromName:          v.GetString("notify.from_name"),
		ToAddresses:       splitList(v.GetString("notify.to_addresses")),
	}
	cfg.Auth = AuthConfig{
		JWTSecret: v.GetString("auth.jwt_secret"),
		Issuer:    v.GetString("auth.issuer"),
	}
	cfg.RateLimit = RateLimitConfig{
		RequestsPerSecond: v.GetFloat64("ratelimit.rps"),
		Burst:             v.GetInt("ratelimit.burst"),
	}
	cfg.Janitor = JanitorConfig{
		Schedule:   v.GetString("janitor.schedule"),
		MaxFileAge: v.GetDuration("janitor.max_file_age"),
		StaleAfter: v.GetDuration("janitor.stale_after"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Extraction.Flavor {
	case "lattice", "stream":
	default:
		return fmt.Errorf("config: unknown extraction flavor %q", c.Extraction.Flavor)
	}
	switch c.Extraction.Renderer {
	case "vector", "poppler":
	default:
		return fmt.Errorf("config: unknown renderer %q", c.Extraction.Renderer)
	}
	if c.Extraction.LineScale <= 0 {
		return fmt.Errorf("config: line_scale must be positive, got %d", c.Extraction.LineScale)
	}
	if c.Extraction.DPI <= 0 {
		return fmt.Errorf("config: dpi must be positive, got %d", c.Extraction.DPI)
	}
	if c.Queue.Workers <= 0 || c.Queue.Capacity <= 0 {
		return fmt.Errorf("config: queue workers and capacity must be positive")
	}
	if c.Queue.JobTimeout <= 0 {
		return fmt.Errorf("config: queue job_timeout must be positive, got %s", c.Queue.JobTimeout)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}
	// A shorter stale window would fail jobs that are still waiting in the queue.
	if c.Janitor.StaleAfter > 0 {
		if worst := c.Queue.MaxJobLatency(); c.Janitor.StaleAfter <= worst {
			return fmt.Errorf("config: janitor stale_after %s must exceed worst-case job latency %s",
				c.Janitor.StaleAfter, worst)
		}
	}
	return nil
}

// GinMode returns the gin mode matching the configured log level.
func (c *Config) GinMode() string {
	if c.Log.Level == "debug" && c.Server.Environment != "production" {
		return "debug"
	}
	return "release"
}

// splitList parses a comma-separated string, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
