package utils

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Email     EmailConfig
	Code      CodeConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
}

type DatabaseConfig struct {
	Host        string
	Port        string
	Name        string
	User        string
	Password    string
	MaxConns    int32
	AutoMigrate bool
}

type JWTConfig struct {
	Secret      string
	Issuer      string
	ExpiryHours int
}

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// CodeConfig controls confirmation codes issued at signup.
type CodeConfig struct {
	ExpiryMinutes int
	Length        int
}

type RateLimitConfig struct {
	AuthRPS   float64
	AuthBurst int
}

type CORSConfig struct {
	AllowedOrigins []string
}

const minJWTSecretLength = 32

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "review-catalog")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("DB_AUTO_MIGRATE", true)
	viper.SetDefault("JWT_EXPIRY_HOURS", 24)
	viper.SetDefault("JWT_ISSUER", "review-catalog")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("CONFIRMATION_CODE_EXPIRY_MINUTES", 60)
	viper.SetDefault("CONFIRMATION_CODE_LENGTH", 12)
	viper.SetDefault("RATE_LIMIT_AUTH_RPS", 1.0)
	viper.SetDefault("RATE_LIMIT_AUTH_BURST", 5)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	// .env is optional; containers usually pass plain environment variables
	if err := viper.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:    viper.GetString("APP_NAME"),
			Port:    viper.GetString("PORT"),
			Debug:   viper.GetBool("DEBUG"),
			LogPath: viper.GetString("LOG_PATH"),
		},
		Database: DatabaseConfig{
			Host:        viper.GetString("DB_HOST"),
			Port:        viper.GetString("DB_PORT"),
			Name:        viper.GetString("DB_NAME"),
			User:        viper.GetString("DB_USER"),
			Password:    viper.GetString("DB_PASS"),
			MaxConns:    viper.GetInt32("DB_MAX_CONNS"),
			AutoMigrate: viper.GetBool("DB_AUTO_MIGRATE"),
		},
		JWT: JWTConfig{
			Secret:      viper.GetString("JWT_SECRET"),
			Issuer:      viper.GetString("JWT_ISSUER"),
			ExpiryHours: viper.GetInt("JWT_EXPIRY_HOURS"),
		},
		Email: EmailConfig{
			Host:     viper.GetString("SMTP_HOST"),
			Port:     viper.GetInt("SMTP_PORT"),
			User:     viper.GetString("SMTP_USER"),
			Password: viper.GetString("SMTP_PASS"),
			From:     viper.GetString("EMAIL_FROM"),
		},
		Code: CodeConfig{
			ExpiryMinutes: viper.GetInt("CONFIRMATION_CODE_EXPIRY_MINUTES"),
			Length:        viper.GetInt("CONFIRMATION_CODE_LENGTH"),
		},
		RateLimit: RateLimitConfig{
			AuthRPS:   viper.GetFloat64("RATE_LIMIT_AUTH_RPS"),
			AuthBurst: viper.GetInt("RATE_LIMIT_AUTH_BURST"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if c.JWT.ExpiryHours <= 0 {
		return fmt.Errorf("JWT_EXPIRY_HOURS must be positive, got %d", c.JWT.ExpiryHours)
	}
	if c.Code.Length <= 0 {
		return fmt.Errorf("CONFIRMATION_CODE_LENGTH must be positive, got %d", c.Code.Length)
	}
	if c.Code.ExpiryMinutes <= 0 {
		return fmt.Errorf("CONFIRMATION_CODE_EXPIRY_MINUTES must be positive, got %d", c.Code.ExpiryMinutes)
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
