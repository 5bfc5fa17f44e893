package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppHost  string
	HTTPPort string
	AppEnv   string
	LogLevel string

	// ClientURL is the public address of the portal, used in e-mail links.
	ClientURL   string
	CORSOrigins []string

	UploadDir   string
	MaxUploadMB int64

	Session struct {
		TTL        time.Duration
		CookieName string
		Secure     bool
	}

	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Database string
		SSLMode  string
	}

	PayPal struct {
		ClientID     string
		ClientSecret string
		Mode         string
	}

	Mail struct {
		BrevoAPIKey string
		From        string
		FromName    string
		Sandbox     bool
	}

	KafkaBrokers    []string
	KafkaTopicCases string

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	RateLimit struct {
		Public int
		Auth   int
		Window time.Duration
	}
}

func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := &Config{
		AppHost:         getEnv("APP_HOST", "0.0.0.0"),
		HTTPPort:        firstEnv("APP_PORT", "HTTP_PORT", "4000"),
		AppEnv:          getEnv("APP_ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ClientURL:       strings.TrimRight(getEnv("CLIENT_URL", "http://localhost:5173"), "/"),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "")),
		UploadDir:       getEnv("UPLOAD_DIR", "uploads"),
		KafkaBrokers:    splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopicCases: getEnv("KAFKA_TOPIC_CASES", "case-events"),
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{cfg.ClientURL}
	}

	var err error
	if cfg.MaxUploadMB, err = getInt64("MAX_UPLOAD_MB", 10); err != nil {
		return nil, err
	}

	if cfg.Session.TTL, err = getDuration("SESSION_TTL", 30*24*time.Hour); err != nil {
		return nil, err
	}
	cfg.Session.CookieName = getEnv("SESSION_COOKIE", "auth_session")
	cfg.Session.Secure = getBool("COOKIE_SECURE", cfg.AppEnv == "production")

	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.Database = getEnv("DB_DATABASE", "case_service")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.PayPal.ClientID = getEnv("PAYPAL_CLIENT_ID", "")
	cfg.PayPal.ClientSecret = getEnv("PAYPAL_CLIENT_SECRET", "")
	cfg.PayPal.Mode = getEnv("PAYPAL_MODE", "sandbox")

	cfg.Mail.BrevoAPIKey = getEnv("BREVO_API_KEY", "")
	cfg.Mail.From = getEnv("MAIL_FROM", "")
	cfg.Mail.FromName = getEnv("MAIL_FROM_NAME", "New Horizons")
	cfg.Mail.Sandbox = getBool("MAIL_SANDBOX", false)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	redisDB, err := getInt64("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	cfg.Redis.DB = int(redisDB)

	public, err := getInt64("RATE_LIMIT_PUBLIC", 10)
	if err != nil {
		return nil, err
	}
	auth, err := getInt64("RATE_LIMIT_AUTH", 20)
	if err != nil {
		return nil, err
	}
	cfg.RateLimit.Public = int(public)
	cfg.RateLimit.Auth = int(auth)
	if cfg.RateLimit.Window, err = getDuration("RATE_LIMIT_WINDOW", 15*time.Minute); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DB.Host == "" || c.DB.Database == "" {
		return errors.New("config: DB_HOST and DB_DATABASE are required")
	}
	if c.Session.TTL <= 0 {
		return errors.New("config: SESSION_TTL must be positive")
	}
	if c.PayPal.Mode != "sandbox" && c.PayPal.Mode != "live" {
		return fmt.Errorf("config: PAYPAL_MODE must be sandbox or live, got %q", c.PayPal.Mode)
	}
	if c.AppEnv == "production" {
		if c.DB.Password == "" {
			return errors.New("config: in production DB_PASSWORD is required")
		}
		if c.PayPal.ClientID == "" || c.PayPal.ClientSecret == "" {
			return errors.New("config: in production PAYPAL_CLIENT_ID and PAYPAL_CLIENT_SECRET are required")
		}
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) DatabaseURL() string {
	pass := url.QueryEscape(c.DB.Password)
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, pass, c.DB.Host, c.DB.Port, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) Addr() string {
	return c.AppHost + ":" + c.HTTPPort
}

func firstEnv(keysAndDef ...string) string {
	if len(keysAndDef) == 0 {
		return ""
	}
	def := keysAndDef[len(keysAndDef)-1]
	for _, k := range keysAndDef[:len(keysAndDef)-1] {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt64(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

// splitList splits "a, b,c" into trimmed non-empty items.
func splitList(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
