package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig indicates how many requests are allowed within a given interval.
type RateLimitConfig struct {
	Requests int
	Interval time.Duration
}

// ServerConfig holds HTTP settings for the web binary.
type ServerConfig struct {
	Port            string
	BaseURL         string
	UploadDir       string
	MaxUploadMB     int
	SessionSecret   string
	RateLimitUpload RateLimitConfig
}

// AuthConfig describes the single operator account and its session tokens.
type AuthConfig struct {
	JWTSecret            string
	TokenTTL             time.Duration
	OperatorUsername     string
	OperatorPasswordHash string
}

// CRMTiming groups the fixed waits used while driving the CRM UI.
type CRMTiming struct {
	PageLoad      time.Duration
	AfterLogin    time.Duration
	AfterNavigate time.Duration
	AfterFill     time.Duration
	AfterSearch   time.Duration
	BetweenSearch time.Duration
	PollBase      time.Duration
	PollStep      time.Duration
	ElementWait   time.Duration
}

// CRMConfig carries credentials and behaviour for the CRM automation.
type CRMConfig struct {
	URL             string
	Username        string
	Password        string
	Headless        bool
	MaxLoginRetries int
	WorkerURL       string
	SearchTimeout   time.Duration
	Timing          CRMTiming
}

// OCRConfig selects and tunes the OCR engine.
type OCRConfig struct {
	Engine       string
	GoogleAPIKey string
	DPI          float64
	Concurrency  int
	Language     string
}

// LLMConfig selects the chat completion provider used for field extraction.
type LLMConfig struct {
	Provider      string
	APIKey        string
	BaseURL       string
	Model         string
	Temperature   float32
	VertexProject string
	VertexRegion  string
}

// StorageConfig controls retention and archiving of uploaded files.
type StorageConfig struct {
	ArchiveBucket string
	Retention     time.Duration
	SweepSchedule string
}

// Config aggregates application-wide configuration values.
type Config struct {
	Env         string
	LogLevel    string
	DatabaseURL string
	Server      ServerConfig
	Auth        AuthConfig
	CRM         CRMConfig
	OCR         OCRConfig
	LLM         LLMConfig
	Storage     StorageConfig
}

// Load reads configuration from environment variables and applies sane defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Server: ServerConfig{
			Port:          getEnv("PORT", "5000"),
			BaseURL:       strings.TrimRight(getEnv("BASE_URL", "http://localhost:5000"), "/"),
			UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
			SessionSecret: getEnv("SESSION_SECRET", "dev-session-secret"),
		},
		Auth: AuthConfig{
			JWTSecret:            getEnv("JWT_SECRET", "dev-secret"),
			TokenTTL:             parseDuration(getEnv("JWT_TTL", "12h"), 12*time.Hour),
			OperatorUsername:     getEnv("OPERATOR_USERNAME", "operator"),
			OperatorPasswordHash: os.Getenv("OPERATOR_PASSWORD_HASH"),
		},
		CRM: CRMConfig{
			URL:           getEnv("CRM_URL", "http://192.168.1.152/crm/eware.dll/go"),
			Username:      os.Getenv("CRM_USERNAME"),
			Password:      os.Getenv("CRM_PASSWORD"),
			WorkerURL:     os.Getenv("CRM_WORKER_URL"),
			SearchTimeout: parseDuration(getEnv("CRM_SEARCH_TIMEOUT", "10m"), 10*time.Minute),
			Timing: CRMTiming{
				PageLoad:      parseDuration(getEnv("CRM_WAIT_PAGE_LOAD", "2s"), 2*time.Second),
				AfterLogin:    parseDuration(getEnv("CRM_WAIT_AFTER_LOGIN", "3s"), 3*time.Second),
				AfterNavigate: parseDuration(getEnv("CRM_WAIT_AFTER_NAVIGATE", "3s"), 3*time.Second),
				AfterFill:     parseDuration(getEnv("CRM_WAIT_AFTER_FILL", "1s"), time.Second),
				AfterSearch:   parseDuration(getEnv("CRM_WAIT_AFTER_SEARCH", "5s"), 5*time.Second),
				BetweenSearch: parseDuration(getEnv("CRM_WAIT_BETWEEN_SEARCH", "2s"), 2*time.Second),
				PollBase:      parseDuration(getEnv("CRM_WAIT_POLL_BASE", "3s"), 3*time.Second),
				PollStep:      parseDuration(getEnv("CRM_WAIT_POLL_STEP", "1s"), time.Second),
				ElementWait:   parseDuration(getEnv("CRM_WAIT_ELEMENT", "10s"), 10*time.Second),
			},
		},
		OCR: OCRConfig{
			Engine:       strings.ToLower(getEnv("OCR_ENGINE", "vision")),
			GoogleAPIKey: os.Getenv("GOOGLE_API_KEY"),
			Language:     getEnv("OCR_LANGUAGE", "eng"),
		},
		LLM: LLMConfig{
			Provider:      strings.ToLower(getEnv("LLM_PROVIDER", "xai")),
			APIKey:        os.Getenv("XAI_API_KEY"),
			BaseURL:       getEnv("LLM_BASE_URL", "https://api.x.ai/v1"),
			Model:         getEnv("LLM_MODEL", "grok-4-0709"),
			VertexProject: os.Getenv("VERTEX_PROJECT"),
			VertexRegion:  getEnv("VERTEX_REGION", "us-central1"),
		},
		Storage: StorageConfig{
			ArchiveBucket: os.Getenv("ARCHIVE_BUCKET"),
			Retention:     parseDuration(getEnv("UPLOAD_RETENTION", "168h"), 7*24*time.Hour),
			SweepSchedule: getEnv("SWEEP_SCHEDULE", "@every 1h"),
		},
	}

	var err error
	if cfg.Server.MaxUploadMB, err = getEnvAsInt("MAX_UPLOAD_MB", 32); err != nil {
		return nil, err
	}
	if cfg.CRM.MaxLoginRetries, err = getEnvAsInt("CRM_MAX_LOGIN_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.CRM.Headless, err = getEnvAsBool("CRM_HEADLESS", true); err != nil {
		return nil, err
	}
	if cfg.OCR.Concurrency, err = getEnvAsInt("OCR_CONCURRENCY", 2); err != nil {
		return nil, err
	}

	dpi, err := strconv.ParseFloat(getEnv("OCR_DPI", "300"), 64)
	if err != nil || dpi <= 0 {
		return nil, fmt.Errorf("invalid OCR_DPI value: %q", os.Getenv("OCR_DPI"))
	}
	cfg.OCR.DPI = dpi

	temp, err := strconv.ParseFloat(getEnv("LLM_TEMPERATURE", "0.1"), 32)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_TEMPERATURE value: %w", err)
	}
	cfg.LLM.Temperature = float32(temp)

	rl, err := parseRateLimit(getEnv("RATE_LIMIT_UPLOAD", "10/min"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_UPLOAD value: %w", err)
	}
	cfg.Server.RateLimitUpload = rl

	switch cfg.OCR.Engine {
	case "vision", "tesseract":
	default:
		return nil, fmt.Errorf("unsupported OCR_ENGINE %q", cfg.OCR.Engine)
	}
	switch cfg.LLM.Provider {
	case "xai", "vertex":
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLM.Provider)
	}

	return cfg, nil
}

// RequireCRMCredentials reports whether the CRM login can be attempted.
func (c *Config) RequireCRMCredentials() error {
	if c.CRM.Username == "" || c.CRM.Password == "" {
		return fmt.Errorf("CRM_USERNAME and CRM_PASSWORD must be set")
	}
	return nil
}

func parseRateLimit(value string) (RateLimitConfig, error) {
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return RateLimitConfig{}, fmt.Errorf("expected format <requests>/<interval>, got %q", value)
	}

	requests, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || requests <= 0 {
		return RateLimitConfig{}, fmt.Errorf("invalid request count: %v", parts[0])
	}

	unit := strings.ToLower(strings.TrimSpace(parts[1]))
	var interval time.Duration
	switch unit {
	case "s", "sec", "second", "seconds":
		interval = time.Second
	case "m", "min", "minute", "minutes":
		interval = time.Minute
	case "h", "hr", "hour", "hours":
		interval = time.Hour
	default:
		return RateLimitConfig{}, fmt.Errorf("unsupported interval unit: %s", unit)
	}

	return RateLimitConfig{Requests: requests, Interval: interval}, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s value: %q", key, raw)
	}
	return v, nil
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("invalid %s value: %q", key, raw)
	}
	return v, nil
}

func parseDuration(input string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(input)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
