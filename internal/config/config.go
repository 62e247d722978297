package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is built once at startup and passed to every component. Nothing
// mutates it after NewConfigFromEnv returns.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	QRDir     string
	PosterDir string

	DBHost    string
	DBPort    string
	DBUser    string
	DBPass    string
	DBName    string
	DBSSLMode string

	JWTSecret        string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	SessionSecret    string
	SessionTTL       time.Duration
	CookieSecure     bool
	BcryptCost       int

	// EntryFee is the one-time platform fee in whole rupees.
	EntryFee int64

	PayUMerchantKey  string
	PayUMerchantSalt string
	PayUBaseURL      string
	PayUStatusURL    string
	PayULiveStatus   bool
	PayURateLimit    float64
	PublicBaseURL    string
	FrontendURL      string

	MongoURI string
	MongoDB  string

	AMQPURL   string
	AMQPQueue string

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	CatalogCacheTTL time.Duration
	AllowOrigins    string
}

func NewConfigFromEnv() (*Config, error) {
	var errs []error

	cfg := &Config{
		Port:     getenv("PORT", "3000"),
		Env:      getenv("ENV", "development"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		QRDir:     getenv("QR_DIR", "./uploads/qrcodes"),
		PosterDir: getenv("POSTER_DIR", "./uploads/posters"),

		DBHost:    getenv("DB_HOST", "localhost"),
		DBPort:    getenv("DB_PORT", "5432"),
		DBUser:    getenv("DB_USER", "postgres"),
		DBPass:    getenv("DB_PASSWORD", "postgres"),
		DBName:    getenv("DB_NAME", "kalam"),
		DBSSLMode: getenv("DB_SSLMODE", "disable"),

		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTRefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
		SessionSecret:    os.Getenv("SESSION_SECRET"),

		PayUMerchantKey:  os.Getenv("PAYU_MERCHANT_KEY"),
		PayUMerchantSalt: os.Getenv("PAYU_MERCHANT_SALT"),
		PayUBaseURL:      getenv("PAYU_BASE_URL", "https://test.payu.in/_payment"),
		PayUStatusURL:    getenv("PAYU_STATUS_URL", "https://test.payu.in/merchant/postservice.php?form=2"),
		PublicBaseURL:    getenv("PUBLIC_BASE_URL", "http://localhost:3000"),
		FrontendURL:      os.Getenv("FRONTEND_URL"),

		MongoURI: os.Getenv("MONGO_URI"),
		MongoDB:  getenv("MONGO_DB", "kalam_audit"),

		AMQPURL:   os.Getenv("AMQP_URL"),
		AMQPQueue: getenv("AMQP_QUEUE", "kalam.notifications"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: getenv("SMTP_PORT", "587"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom: getenv("SMTP_FROM", "no-reply@kalam.local"),

		AllowOrigins: getenv("CORS_ALLOW_ORIGINS", "*"),
	}

	required := map[string]string{
		"JWT_SECRET":         cfg.JWTSecret,
		"JWT_REFRESH_SECRET": cfg.JWTRefreshSecret,
		"SESSION_SECRET":     cfg.SessionSecret,
		"PAYU_MERCHANT_KEY":  cfg.PayUMerchantKey,
		"PAYU_MERCHANT_SALT": cfg.PayUMerchantSalt,
	}
	for _, key := range []string{"JWT_SECRET", "JWT_REFRESH_SECRET", "SESSION_SECRET", "PAYU_MERCHANT_KEY", "PAYU_MERCHANT_SALT"} {
		if required[key] == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}
	if cfg.JWTSecret != "" && cfg.JWTSecret == cfg.JWTRefreshSecret {
		errs = append(errs, errors.New("JWT_REFRESH_SECRET must differ from JWT_SECRET"))
	}

	var err error
	if cfg.AccessTokenTTL, err = getDuration("ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		errs = append(errs, err)
	}
	if cfg.RefreshTokenTTL, err = getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 24*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.CatalogCacheTTL, err = getDuration("CATALOG_CACHE_TTL", time.Minute); err != nil {
		errs = append(errs, err)
	}

	if cfg.BcryptCost, err = getInt("BCRYPT_COST", 10); err != nil {
		errs = append(errs, err)
	} else if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", cfg.BcryptCost))
	}

	entryFee, err := getInt("ENTRY_FEE", 200)
	if err != nil {
		errs = append(errs, err)
	} else if entryFee < 0 {
		errs = append(errs, errors.New("ENTRY_FEE cannot be negative"))
	}
	cfg.EntryFee = int64(entryFee)

	if cfg.PayURateLimit, err = strconv.ParseFloat(getenv("PAYU_RATE_LIMIT", "5"), 64); err != nil || cfg.PayURateLimit <= 0 {
		errs = append(errs, errors.New("PAYU_RATE_LIMIT must be a positive number"))
	}

	cfg.PayULiveStatus = parseBool(getenv("PAYU_LIVE_STATUS", "false"))
	cfg.CookieSecure = parseBool(getenv("COOKIE_SECURE", strconv.FormatBool(cfg.IsProduction())))

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// DatabaseDSN returns the postgres DSN in key=value form.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBPort, c.DBUser, c.DBPass, c.DBName, c.DBSSLMode)
}

func getenv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	return d, nil
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
