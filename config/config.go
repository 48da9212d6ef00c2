package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Telegram Telegram
	Booking  Booking
	Admin    Admin
	Database Database
	Redis    Redis
	JWT      JWT
	AWS      AWS
}

// Telegram holds bot transport settings.
type Telegram struct {
	BotToken       string
	OperatorChatID int64
}

// Booking holds registration flow settings.
type Booking struct {
	// Offerings is the raw catalog string:
	// "21 Jan — Location A=10:00,12:00,14:00;22 Jan — Location B=11:00,13:00"
	Offerings         string
	SlotCapacity      int
	SessionBackend    string // memory | redis
	SessionTTLMinutes int
	PersistFailure    string // retain | reset
}

// Admin holds the admin HTTP API settings.
type Admin struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string
	PasswordHash       string // bcrypt hash of the operator password
}

// Database holds PostgreSQL connection settings.
type Database struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Redis holds Redis connection settings. An empty Addr disables the
// Redis-backed components: the session store falls back to memory and the
// notifier sends directly instead of through the job queue.
type Redis struct {
	Addr     string
	Password string
	DB       int
}

// JWT holds admin token signing settings.
type JWT struct {
	Secret      string
	ExpireHours int
}

// AWS holds credentials and the payment-proof bucket.
type AWS struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	ProofsBucket         string
	PresignExpireMinutes int
}

// DefaultOfferings is the catalog used when OFFERINGS is unset.
const DefaultOfferings = "21 Jan — Location A=10:00,12:00,14:00;22 Jan — Location B=11:00,13:00,15:00"

// DSN returns the PostgreSQL connection string.
// If Database.URL is set (DATABASE_URL env), it is used as-is; otherwise built from components.
func (c Database) DSN() string {
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

	operatorChatID, _ := strconv.ParseInt(getEnv("OPERATOR_CHAT_ID", "0"), 10, 64)

	cfg := &Config{
		Telegram: Telegram{
			BotToken:       getEnv("TELEGRAM_BOT_TOKEN", ""),
			OperatorChatID: operatorChatID,
		},
		Booking: Booking{
			Offerings:         getEnv("OFFERINGS", DefaultOfferings),
			SlotCapacity:      getEnvInt("SLOT_CAPACITY", 15),
			SessionBackend:    getEnv("SESSION_BACKEND", "memory"),
			SessionTTLMinutes: getEnvInt("SESSION_TTL_MINUTES", 1440),
			PersistFailure:    getEnv("PERSIST_FAILURE_POLICY", "retain"),
		},
		Admin: Admin{
			Port:               getEnv("ADMIN_PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			PasswordHash:       getEnv("ADMIN_PASSWORD_HASH", ""),
		},
		Database: Database{
			URL:      getEnv("DATABASE_URL", "postgres://localhost:5432/bookingbot?sslmode=disable"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "bookingbot"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: Redis{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWT{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		AWS: AWS{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ProofsBucket:         getEnv("AWS_S3_PROOFS_BUCKET", "bookingbot-proofs"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
	}

	if cfg.Telegram.BotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.Booking.SlotCapacity < 1 {
		return nil, fmt.Errorf("SLOT_CAPACITY must be at least 1, got %d", cfg.Booking.SlotCapacity)
	}
	switch cfg.Booking.PersistFailure {
	case "retain", "reset":
	default:
		return nil, fmt.Errorf("PERSIST_FAILURE_POLICY must be retain or reset, got %q", cfg.Booking.PersistFailure)
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

// SplitTrim splits s by sep and trims whitespace, dropping empty entries.
func SplitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}
