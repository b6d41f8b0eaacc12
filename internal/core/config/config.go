package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv         string        `mapstructure:"APP_ENV"`
	AppHost        string        `mapstructure:"APP_HOST"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	PerPage        int           `mapstructure:"PER_PAGE"`
	// TrustedProxies lists the peers whose X-Forwarded-For is believed.
	// Empty means the socket address is always the client address.
	TrustedProxies []string      `mapstructure:"TRUSTED_PROXIES"`

	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	MigrationsDir   string        `mapstructure:"MIGRATIONS_DIR"`
	DBMaxOpenConns  int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns  int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLife   time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME"`
	AutoMigrate     bool          `mapstructure:"AUTO_MIGRATE"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTTTL    time.Duration `mapstructure:"JWT_TTL"`

	LoginMaxFailures int           `mapstructure:"LOGIN_MAX_FAILURES"`
	LoginBackoffBase time.Duration `mapstructure:"LOGIN_BACKOFF_BASE"`
	LoginBackoffMax  time.Duration `mapstructure:"LOGIN_BACKOFF_MAX"`
	LoginRateRPS     float64       `mapstructure:"LOGIN_RATE_RPS"`
	LoginRateBurst   int           `mapstructure:"LOGIN_RATE_BURST"`

	GoogleSheetsCredentialsJSON string `mapstructure:"GOOGLE_SHEETS_CREDENTIALS_JSON"`
	GoogleSheetsSpreadsheetID   string `mapstructure:"GOOGLE_SHEETS_SPREADSHEET_ID"`
	GoogleSheetsRange           string `mapstructure:"GOOGLE_SHEETS_RANGE"`

	AdminUsername string `mapstructure:"ADMIN_USERNAME"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`
}

var defaults = map[string]interface{}{
	"APP_ENV":              "development",
	"APP_HOST":             ":8080",
	"LOG_LEVEL":            "info",
	"REQUEST_TIMEOUT":      "15s",
	"PER_PAGE":             20,
	"TRUSTED_PROXIES":      "",
	"DATABASE_URL":         "",
	"MIGRATIONS_DIR":       "migrations",
	"DB_MAX_OPEN_CONNS":    10,
	"DB_MAX_IDLE_CONNS":    5,
	"DB_CONN_MAX_LIFETIME": "5m",
	"AUTO_MIGRATE":         false,
	"JWT_SECRET":           "",
	"JWT_TTL":              "12h",
	"LOGIN_MAX_FAILURES":   5,
	"LOGIN_BACKOFF_BASE":   "30s",
	"LOGIN_BACKOFF_MAX":    "15m",
	"LOGIN_RATE_RPS":       1.0,
	"LOGIN_RATE_BURST":     5,

	"GOOGLE_SHEETS_CREDENTIALS_JSON": "",
	"GOOGLE_SHEETS_SPREADSHEET_ID":   "",
	"GOOGLE_SHEETS_RANGE":            "Inventory!A1",

	"ADMIN_USERNAME": "",
	"ADMIN_PASSWORD": "",
}

// Load reads the environment, optionally seeded from a .env file. Values
// already present in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.PerPage <= 0 {
		cfg.PerPage = 20
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate checks the settings required to serve HTTP traffic.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	return nil
}

func (c *Config) SheetsEnabled() bool {
	return c.GoogleSheetsCredentialsJSON != "" && c.GoogleSheetsSpreadsheetID != ""
}
