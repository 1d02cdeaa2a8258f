package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Storage drivers
const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

// Config holds all configuration for the application
type Config struct {
	AppMode       string
	Port          string
	StorageDriver string
	LogLevel      string
	Database      DatabaseConfig
	JWT           JWTConfig
	Cookie        CookieConfig
	OTP           OTPConfig
	Loan          LoanConfig
	Notify        NotifyConfig
	CleanupCron   string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	RefreshSecret    string
	AccessTokenMins  int
	RefreshTokenDays int
}

// CookieConfig holds cookie configuration
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// OTPConfig holds password-reset code settings
type OTPConfig struct {
	TTL          time.Duration
	ResendWindow time.Duration
	MaxAttempts  int
}

// LoanConfig holds loan defaults
type LoanConfig struct {
	DefaultInterestRate decimal.Decimal
}

// NotifyConfig holds OTP delivery and event publishing settings
type NotifyConfig struct {
	SMSGatewayURL   string
	SMSGatewayToken string
	AMQPURL         string
	AMQPExchange    string
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// .env is optional; production uses real environment variables
	_ = godotenv.Load()

	// trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	driver := strings.TrimSpace(getEnv("STORAGE_DRIVER", StorageMySQL))
	if driver != StorageMySQL && driver != StorageMemory {
		return nil, fmt.Errorf("invalid STORAGE_DRIVER: '%s' (must be 'mysql' or 'memory')", driver)
	}

	jwtCfg, err := loadJWTConfig(appMode)
	if err != nil {
		return nil, err
	}

	otpCfg, err := loadOTPConfig()
	if err != nil {
		return nil, err
	}

	rate, err := loadInterestRate()
	if err != nil {
		return nil, err
	}

	defaultLevel := "info"
	if appMode == "dev" {
		defaultLevel = "debug"
	}

	config := &Config{
		AppMode:       appMode,
		Port:          getEnv("PORT", "3000"),
		StorageDriver: driver,
		LogLevel:      getEnv("LOG_LEVEL", defaultLevel),
		Database:      loadDatabaseConfig(appMode),
		JWT:           jwtCfg,
		Cookie:        loadCookieConfig(appMode),
		OTP:           otpCfg,
		Loan:          LoanConfig{DefaultInterestRate: rate},
		Notify: NotifyConfig{
			SMSGatewayURL:   getEnv("SMS_GATEWAY_URL", ""),
			SMSGatewayToken: getEnv("SMS_GATEWAY_TOKEN", ""),
			AMQPURL:         getEnv("AMQP_URL", ""),
			AMQPExchange:    getEnv("AMQP_EXCHANGE", "sacco.events"),
		},
		CleanupCron: getEnv("CLEANUP_CRON", "@every 5m"),
	}

	AppConfig = config
	return config, nil
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := modePrefix(mode)

	return DatabaseConfig{
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "sacco"),
	}
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) (JWTConfig, error) {
	prefix := modePrefix(mode)

	accessMins, err := getEnvInt("ACCESS_TOKEN_MINUTES", 15)
	if err != nil {
		return JWTConfig{}, err
	}
	refreshDays, err := getEnvInt("REFRESH_TOKEN_DAYS", 7)
	if err != nil {
		return JWTConfig{}, err
	}

	return JWTConfig{
		Secret:           getEnv(prefix+"JWT_SECRET", "default_secret"),
		RefreshSecret:    getEnv(prefix+"JWT_REFRESH_SECRET", "default_refresh_secret"),
		AccessTokenMins:  accessMins,
		RefreshTokenDays: refreshDays,
	}, nil
}

// loadCookieConfig loads cookie config based on mode
func loadCookieConfig(mode string) CookieConfig {
	secure, _ := strconv.ParseBool(getEnv(modePrefix(mode)+"COOKIE_SECURE", "false"))

	return CookieConfig{
		Secure:   secure,
		SameSite: getEnv("COOKIE_SAMESITE", "lax"),
		Domain:   getEnv("COOKIE_DOMAIN", ""),
	}
}

func loadOTPConfig() (OTPConfig, error) {
	ttl, err := getEnvInt("OTP_TTL_MINUTES", 10)
	if err != nil {
		return OTPConfig{}, err
	}
	if ttl <= 0 {
		return OTPConfig{}, fmt.Errorf("invalid OTP_TTL_MINUTES: must be positive")
	}
	resend, err := getEnvInt("OTP_RESEND_SECONDS", 60)
	if err != nil {
		return OTPConfig{}, err
	}
	attempts, err := getEnvInt("OTP_MAX_ATTEMPTS", 5)
	if err != nil {
		return OTPConfig{}, err
	}
	if attempts <= 0 {
		return OTPConfig{}, fmt.Errorf("invalid OTP_MAX_ATTEMPTS: must be positive")
	}

	return OTPConfig{
		TTL:          time.Duration(ttl) * time.Minute,
		ResendWindow: time.Duration(resend) * time.Second,
		MaxAttempts:  attempts,
	}, nil
}

// maxInterestRate is the largest value the loans.interest_rate DECIMAL(5,2) column holds
var maxInterestRate = decimal.RequireFromString("999.99")

func loadInterestRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(getEnv("LOAN_DEFAULT_INTEREST_RATE", "1.5")))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid LOAN_DEFAULT_INTEREST_RATE: %w", err)
	}
	switch {
	case rate.IsNegative():
		return decimal.Zero, fmt.Errorf("invalid LOAN_DEFAULT_INTEREST_RATE: must not be negative")
	case !rate.Equal(rate.Round(2)):
		return decimal.Zero, fmt.Errorf("invalid LOAN_DEFAULT_INTEREST_RATE: at most 2 decimal places")
	case rate.GreaterThan(maxInterestRate):
		return decimal.Zero, fmt.Errorf("invalid LOAN_DEFAULT_INTEREST_RATE: must not exceed %s", maxInterestRate)
	}
	return rate, nil
}

func modePrefix(mode string) string {
	if mode == "prod" {
		return "PROD_"
	}
	return "DEV_"
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://app.sacco.local"
	}
	return origins
}
