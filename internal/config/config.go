package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	FrontendURL string
	HTTPAddr    string

	AuthCookieSecure bool

	// TokenSecret is the base secret; per-subject signing keys are derived
	// from it so access, refresh and approval tokens live in separate
	// verification namespaces.
	TokenSecret     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string

	// GeolocationURL is the base URL of the IP lookup provider. Empty
	// disables resolution; callers fall back to "Unknown location".
	GeolocationURL string

	SMTP SMTPConfig

	WechatAppID     string
	WechatAppSecret string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

// SMTPConfig configures the outbound mail provider.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	authCookieSecure := environment == "production"
	if !authCookieSecure {
		authCookieSecure = getenvBool("AUTH_COOKIE_SECURE", false)
	}

	cfg := Config{
		AppName:          getenv("APP_SERVICE", "passage"),
		AppVersion:       getenv("APP_VERSION", "0.1.0"),
		Environment:      environment,
		FrontendURL:      strings.TrimRight(getenv("FRONTEND_URL", "http://localhost:3000"), "/"),
		HTTPAddr:         getenv("HTTP_ADDR", ":8080"),
		AuthCookieSecure: authCookieSecure,
		TokenSecret:      strings.TrimSpace(getenv("TOKEN_SECRET", "")),
		AccessTokenTTL:   getenvDuration("ACCESS_TOKEN_TTL", 10*time.Minute),
		RefreshTokenTTL:  getenvDuration("REFRESH_TOKEN_TTL", 14*24*time.Hour),
		OTLPEndpoint:     getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "passage"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 4),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 32),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		GeolocationURL: strings.TrimSpace(getenv("GEOLOCATION_URL", "")),

		SMTP: SMTPConfig{
			Host:     getenv("SMTP_HOST", "localhost"),
			Port:     getenvInt("SMTP_PORT", 587),
			Username: getenv("SMTP_USERNAME", ""),
			Password: getenv("SMTP_PASSWORD", ""),
			From:     getenv("SMTP_FROM", "no-reply@passage.local"),
		},

		WechatAppID:     strings.TrimSpace(getenv("WECHAT_APP_ID", "")),
		WechatAppSecret: strings.TrimSpace(getenv("WECHAT_APP_SECRET", "")),

		GoogleClientID:     strings.TrimSpace(getenv("GOOGLE_CLIENT_ID", "")),
		GoogleClientSecret: strings.TrimSpace(getenv("GOOGLE_CLIENT_SECRET", "")),
		GoogleRedirectURL:  strings.TrimSpace(getenv("GOOGLE_REDIRECT_URL", "")),
	}

	return cfg
}

// IsProduction reports whether the service runs with production semantics.
// Outside production, signup auto-verifies the primary email instead of
// sending a verification mail.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
