package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Environment string `env:"APP_ENV" envDefault:"production"`
	ServerPort  string `env:"SERVER_PORT" envDefault:"8080"`
	GinMode     string `env:"GIN_MODE" envDefault:"debug"`

	Database DatabaseConfig
	Log      LogConfig
	SMTP     SMTPConfig

	JWTSecret         string        `env:"JWT_SECRET,required"`
	JWTExpireHours    int           `env:"JWT_EXPIRE_HOURS" envDefault:"24"`
	PasswordResetTTL  time.Duration `env:"PASSWORD_RESET_TTL" envDefault:"1h"`
	AllowLegacyPasswd bool          `env:"ALLOW_LEGACY_PASSWORDS" envDefault:"true"`
	AppBaseURL        string        `env:"APP_BASE_URL" envDefault:"http://localhost:3000"`

	UploadPath      string `env:"UPLOAD_PATH" envDefault:"./uploads"`
	MaxUploadSizeMB int64  `env:"MAX_UPLOAD_SIZE_MB" envDefault:"10"`
	UploadDBBackup  bool   `env:"UPLOAD_DB_BACKUP" envDefault:"true"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`
}

type DatabaseConfig struct {
	Driver   string `env:"DB_DRIVER" envDefault:"mysql"`
	Host     string `env:"DB_HOST" envDefault:"127.0.0.1"`
	Port     string `env:"DB_PORT" envDefault:"3306"`
	Name     string `env:"DB_DATABASE" envDefault:"dost_pmns"`
	User     string `env:"DB_USERNAME" envDefault:"root"`
	Password string `env:"DB_PASSWORD"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	DebugSQL bool   `env:"DEBUG_SQL" envDefault:"false"`
}

type LogConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	Format     string `env:"LOG_FORMAT"`
	Path       string `env:"LOG_PATH" envDefault:"./logs"`
	File       string `env:"LOG_FILE" envDefault:"pmns-api.log"`
	MaxSize    int    `env:"LOG_MAX_SIZE" envDefault:"100"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"7"`
	MaxAge     int    `env:"LOG_MAX_AGE" envDefault:"30"`
	Compress   bool   `env:"LOG_COMPRESS" envDefault:"true"`
}

type SMTPConfig struct {
	Host          string `env:"SMTP_HOST"`
	Port          int    `env:"SMTP_PORT" envDefault:"587"`
	User          string `env:"SMTP_USER"`
	Pass          string `env:"SMTP_PASS"`
	From          string `env:"SMTP_FROM"` // e.g. "DOST MIMAROPA PMNS <no-reply@mimaropa.dost.gov.ph>"
	SkipTLSVerify bool   `env:"SMTP_SKIP_TLS_VERIFY" envDefault:"false"`
}

// App is the configuration loaded by the entry point. Services fall back to
// Default() while it is nil.
var App *Config

// Default returns the built-in defaults without reading the environment.
func Default() *Config {
	return &Config{
		Environment:       "production",
		ServerPort:        "8080",
		JWTExpireHours:    24,
		PasswordResetTTL:  time.Hour,
		AllowLegacyPasswd: true,
		AppBaseURL:        "http://localhost:3000",
		UploadPath:        "./uploads",
		MaxUploadSizeMB:   10,
		UploadDBBackup:    true,
		Database:          DatabaseConfig{Driver: "mysql"},
		Log:               LogConfig{Level: "info", Path: "./logs", File: "pmns-api.log"},
		SMTP:              SMTPConfig{Port: 587},
	}
}

// Current returns App, or the defaults when nothing was loaded.
func Current() *Config {
	if App != nil {
		return App
	}
	return Default()
}

// Load reads .env (if present) and parses the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if cfg.MaxUploadSizeMB <= 0 {
		cfg.MaxUploadSizeMB = 10
	}
	if cfg.JWTExpireHours <= 0 {
		cfg.JWTExpireHours = 24
	}
	return cfg, nil
}

func (c *Config) IsDevelopment() bool { return c.Environment == "development" }

func (c *Config) IsProduction() bool { return c.Environment == "production" }

// MaxUploadBytes is the per-file upload limit.
func (c *Config) MaxUploadBytes() int64 { return c.MaxUploadSizeMB * 1024 * 1024 }

func (c *Config) TokenTTL() time.Duration { return time.Duration(c.JWTExpireHours) * time.Hour }
