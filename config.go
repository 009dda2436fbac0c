package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	GinMode  string `envconfig:"GIN_MODE" default:"debug"`

	// DB
	DBDriver string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBPath   string `envconfig:"DB_PATH" default:"evento.db"`
	DBHost   string `envconfig:"DB_HOST"`
	DBUser   string `envconfig:"DB_USER"`
	DBPass   string `envconfig:"DB_PASS"`
	DBName   string `envconfig:"DB_NAME"`
	DBPort   string `envconfig:"DB_PORT" default:"5432"`

	// Session
	JWTSecret    string        `envconfig:"JWT_SECRET"`
	SessionTTL   time.Duration `envconfig:"SESSION_TTL" default:"0"`
	CookieSecure bool          `envconfig:"COOKIE_SECURE" default:"false"`

	// Seed
	AdminEmail    string `envconfig:"ADMIN_EMAIL" default:"admin@evento.com"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD" default:"admin123"`
	SeedFile      string `envconfig:"SEED_FILE"`

	CORSOrigin  string `envconfig:"CORS_ORIGIN" default:"*"`
	DebugRoutes bool   `envconfig:"DEBUG_ROUTES" default:"false"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`
}

// LoadConfig reads .env (when present) and then the process environment.
// The returned bool reports whether a .env file was found.
func LoadConfig() (Config, bool, error) {
	envFound := godotenv.Load() == nil

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, envFound, fmt.Errorf("load config: %w", err)
	}
	if cfg.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return cfg, envFound, err
		}
		cfg.JWTSecret = secret
	}
	return cfg, envFound, nil
}

func (c Config) postgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPass, c.DBName, c.DBPort,
	)
}

func randomSecret() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
