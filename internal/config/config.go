package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	// MaxPlatesLimit is the hard cap on rows returned by GET /plates.
	MaxPlatesLimit = 100
)

type Config struct {
	Port            int
	LogDirectory    string
	PlatesLimit     int           // Domyślna liczba rekordów dla GET /plates (<= MaxPlatesLimit)
	ShutdownTimeout time.Duration // Czas na zamknięcie połączeń HTTP

	Database DatabaseConfig
}

// DatabaseConfig holds the individually supplied store credentials.
type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
}

// LoadEnvFile loads variables from a .env file without overriding ones
// already present in the environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func Load() *Config {
	cfg := &Config{
		Port:            getEnvAsInt("PORT", 8000),
		LogDirectory:    getEnv("LOG_DIR", filepath.Join(".", "logs")),
		PlatesLimit:     getEnvAsInt("PLATES_LIMIT", MaxPlatesLimit),
		ShutdownTimeout: time.Duration(getEnvAsInt("SHUTDOWN_TIMEOUT", 5)) * time.Second,
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", DriverPostgres),
			Host:       getEnv("DB_HOST", ""),
			Port:       getEnvAsInt("DB_PORT", 5432),
			User:       getEnv("DB_USER", ""),
			Password:   getEnv("DB_PASSWORD", ""),
			Name:       getEnv("DB_NAME", ""),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("SQLITE_PATH", filepath.Join(".", "data", "plates.db")),
		},
	}

	if cfg.PlatesLimit <= 0 || cfg.PlatesLimit > MaxPlatesLimit {
		cfg.PlatesLimit = MaxPlatesLimit
	}

	return cfg
}

// Validate reports configuration that cannot be used to reach the store.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	return c.Database.Validate()
}

func (d DatabaseConfig) Validate() error {
	switch d.Driver {
	case DriverPostgres:
		var errs []error
		if d.Host == "" {
			errs = append(errs, errors.New("DB_HOST is required"))
		}
		if d.User == "" {
			errs = append(errs, errors.New("DB_USER is required"))
		}
		if d.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required"))
		}
		if d.Port <= 0 || d.Port > 65535 {
			errs = append(errs, fmt.Errorf("invalid DB_PORT %d", d.Port))
		}
		return errors.Join(errs...)
	case DriverSQLite:
		if d.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required")
		}
		return nil
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", d.Driver)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
