package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	StoreDriver string
	Database    DatabaseConfig
	Mongo       MongoConfig
	RedisURL    string

	Auth     AuthConfig
	Exam     ExamConfig
	Casdoor  CasdoorConfig
	Kafka    KafkaConfig
	Mail     MailConfig
	Timeouts TimeoutConfig

	NotificationRetrySchedule string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from the parts.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type MongoConfig struct {
	URI      string
	Database string
}

type AuthConfig struct {
	JWTSecret     string
	Issuer        string
	AdminTokenTTL time.Duration
	ExamTokenTTL  time.Duration
}

type ExamConfig struct {
	// ExposeAnswers keeps the correct answer in the exam payload sent to candidates.
	ExposeAnswers bool
}

type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Cert         string
	Organization string
	Application  string
}

func (c CasdoorConfig) Enabled() bool {
	return c.Endpoint != "" && c.Cert != ""
}

type KafkaConfig struct {
	Brokers     []string
	ResultTopic string
}

type MailConfig struct {
	BrevoAPIKey string
	SenderEmail string
	SenderName  string
}

type TimeoutConfig struct {
	Database time.Duration
	Mail     time.Duration
	Read     time.Duration
	Write    time.Duration
}

// LoadConfig reads configuration from the environment, loading .env first when present.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		Database: DatabaseConfig{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "hat"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DATABASE", "hat"),
		},
		RedisURL: os.Getenv("REDIS_URL"),
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			Issuer:    getEnv("JWT_ISSUER", "hat"),
		},
		Casdoor: CasdoorConfig{
			Endpoint:     os.Getenv("CASDOOR_ENDPOINT"),
			ClientID:     os.Getenv("CASDOOR_CLIENT_ID"),
			ClientSecret: os.Getenv("CASDOOR_CLIENT_SECRET"),
			Cert:         os.Getenv("CASDOOR_CERT"),
			Organization: os.Getenv("CASDOOR_ORGANIZATION"),
			Application:  os.Getenv("CASDOOR_APPLICATION"),
		},
		Kafka: KafkaConfig{
			Brokers:     splitList(os.Getenv("KAFKA_BROKERS")),
			ResultTopic: getEnv("RESULT_TOPIC", "hat.candidate.results"),
		},
		Mail: MailConfig{
			BrevoAPIKey: os.Getenv("BREVO_API_KEY"),
			SenderEmail: getEnv("MAIL_SENDER_EMAIL", "no-reply@hat.local"),
			SenderName:  getEnv("MAIL_SENDER_NAME", "HAT Assessments"),
		},
		NotificationRetrySchedule: getEnv("NOTIFICATION_RETRY_SCHEDULE", "@every 10m"),
	}

	var err error
	if cfg.Auth.AdminTokenTTL, err = getDuration("ADMIN_TOKEN_TTL", 8*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Auth.ExamTokenTTL, err = getDuration("EXAM_TOKEN_TTL", 3*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Exam.ExposeAnswers, err = getBool("EXAM_EXPOSE_ANSWERS", true); err != nil {
		return nil, err
	}
	if cfg.Timeouts.Database, err = getDuration("DB_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.Timeouts.Mail, err = getDuration("MAIL_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.Timeouts.Read, err = getDuration("HTTP_READ_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.Timeouts.Write, err = getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if len(c.Auth.JWTSecret) < 32 && c.Environment == "production" {
		return errors.New("JWT_SECRET must be at least 32 bytes in production")
	}
	if c.StoreDriver != StoreDriverPostgres && c.StoreDriver != StoreDriverMongo {
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if c.Auth.AdminTokenTTL <= 0 || c.Auth.ExamTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
