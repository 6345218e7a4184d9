package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	EnableWebsocket bool `yaml:"enable_websocket"`
	SeedDemoData    bool `yaml:"seed_demo_data"`

	APIKeyRequired bool     `yaml:"api_key_required"`
	APIKeys        []string `yaml:"api_keys"`

	DBDriver string `yaml:"db_driver"`
	DBPath   string `yaml:"db_path"`

	JWTSecret     string        `yaml:"jwt_secret"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	EncryptionKey string        `yaml:"encryption_key"`

	PassTTL     time.Duration `yaml:"pass_ttl"`
	MailTimeout time.Duration `yaml:"mail_timeout"`

	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	MailFrom     string `yaml:"mail_from"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`

	ScanRateLimit    int           `yaml:"scan_rate_limit"`
	ScanRateWindow   time.Duration `yaml:"scan_rate_window"`
	ScanReplayWindow time.Duration `yaml:"scan_replay_window"`

	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`

	AlertRetryInterval time.Duration `yaml:"alert_retry_interval"`
	AlertRetryBatch    int           `yaml:"alert_retry_batch"`

	ServiceName    string   `yaml:"service_name"`
	OTLPEndpoint   string   `yaml:"otlp_endpoint"`
	OTLPInsecure   bool     `yaml:"otlp_insecure"`
	OTLPHeaders    []string `yaml:"otlp_headers"`
	TraceSampler   string   `yaml:"trace_sampler"`
	TraceSampleArg string   `yaml:"trace_sample_arg"`
}

func defaults() *Config {
	return &Config{
		Port: "8080",

		EnableWebsocket: false,
		SeedDemoData:    false,

		APIKeyRequired: false,
		APIKeys:        []string{},

		DBDriver: "sqlite",
		DBPath:   "gatepass.db",

		JWTSecret:     "change-me-gatepass-jwt-secret",
		TokenTTL:      24 * time.Hour,
		EncryptionKey: "12345678901234567890123456789012",

		PassTTL:     24 * time.Hour,
		MailTimeout: 5 * time.Second,

		SMTPPort: 587,
		MailFrom: "Campus Gate <no-reply@campus.local>",

		ScanRateLimit:    20,
		ScanRateWindow:   time.Minute,
		ScanReplayWindow: 0,

		KafkaTopic: "gate-events",

		AlertRetryInterval: 0,
		AlertRetryBatch:    50,

		ServiceName:  "gatepass",
		TraceSampler: "parentbased",
	}
}

// Load reads defaults, then CONFIG_FILE (YAML) if set, then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("warning: .env file not found")
	}

	config := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, config); err != nil {
			log.Printf("warning: config file %s ignored: %v", path, err)
		}
	}

	config.Port = getEnv("PORT", config.Port)

	config.EnableWebsocket = getBoolEnv("ENABLE_WEBSOCKET", config.EnableWebsocket)
	config.SeedDemoData = getBoolEnv("SEED_DEMO_DATA", config.SeedDemoData)

	config.APIKeyRequired = getBoolEnv("API_KEY_REQUIRED", config.APIKeyRequired)
	config.APIKeys = getStringSliceEnv("API_KEYS", config.APIKeys)

	config.DBDriver = getEnv("DB_DRIVER", config.DBDriver)
	config.DBPath = getEnv("DB_PATH", config.DBPath)

	config.JWTSecret = getEnv("JWT_SECRET", config.JWTSecret)
	config.TokenTTL = getDurationEnv("TOKEN_TTL", config.TokenTTL)
	config.EncryptionKey = getEnv("ENCRYPTION_KEY", config.EncryptionKey)

	config.PassTTL = getDurationEnv("PASS_TTL", config.PassTTL)
	config.MailTimeout = getDurationEnv("MAIL_TIMEOUT", config.MailTimeout)

	config.SMTPHost = getEnv("SMTP_HOST", config.SMTPHost)
	config.SMTPPort = getIntEnv("SMTP_PORT", config.SMTPPort)
	config.SMTPUser = getEnv("SMTP_USER", config.SMTPUser)
	config.SMTPPassword = getEnv("SMTP_PASSWORD", config.SMTPPassword)
	config.MailFrom = getEnv("MAIL_FROM", config.MailFrom)

	config.RedisAddr = getEnv("REDIS_ADDR", config.RedisAddr)
	config.RedisPassword = getEnv("REDIS_PASSWORD", config.RedisPassword)

	config.ScanRateLimit = getIntEnv("SCAN_RATE_LIMIT", config.ScanRateLimit)
	config.ScanRateWindow = getDurationEnv("SCAN_RATE_WINDOW", config.ScanRateWindow)
	config.ScanReplayWindow = getDurationEnv("SCAN_REPLAY_WINDOW", config.ScanReplayWindow)

	config.KafkaBrokers = getStringSliceEnv("KAFKA_BROKERS", config.KafkaBrokers)
	config.KafkaTopic = getEnv("KAFKA_TOPIC", config.KafkaTopic)

	config.AlertRetryInterval = getDurationEnv("ALERT_RETRY_INTERVAL", config.AlertRetryInterval)
	config.AlertRetryBatch = getIntEnv("ALERT_RETRY_BATCH", config.AlertRetryBatch)

	config.ServiceName = getEnv("OTEL_SERVICE_NAME", config.ServiceName)
	config.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", config.OTLPEndpoint)
	config.OTLPInsecure = getBoolEnv("OTEL_EXPORTER_OTLP_INSECURE", config.OTLPInsecure)
	config.OTLPHeaders = getStringSliceEnv("OTEL_EXPORTER_OTLP_HEADERS", config.OTLPHeaders)
	config.TraceSampler = getEnv("OTEL_TRACES_SAMPLER", config.TraceSampler)
	config.TraceSampleArg = getEnv("OTEL_TRACES_SAMPLER_ARG", config.TraceSampleArg)

	return config
}

func loadFile(path string, config *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return yaml.NewDecoder(f).Decode(config)
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getBoolEnv(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return boolValue
}

func getIntEnv(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return intValue
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return duration
}

func getStringSliceEnv(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
