package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type envConfig struct {
	APP_PORT      string
	LOG_FILE_PATH string
	LOG_LEVEL     string

	DB_HOST              string
	DB_PORT              int
	DB_USER              string
	DB_PASSWORD          string
	DB_NAME              string
	DB_SSL_MODE          string
	DB_MAX_OPEN_CONNS    int
	DB_MAX_IDLE_CONNS    int
	DB_CONN_MAX_LIFETIME time.Duration

	PROFILE_DIR    string
	GCP_PROJECT_ID string
	ELASTIC_URL    string
}

// DefaultEnvConfig holds the values read by LoadEnvConfig.
var DefaultEnvConfig = defaults()

func defaults() envConfig {
	return envConfig{
		APP_PORT:             "8080",
		LOG_FILE_PATH:        "",
		LOG_LEVEL:            "info",
		DB_HOST:              "localhost",
		DB_PORT:              5432,
		DB_SSL_MODE:          "disable",
		DB_MAX_OPEN_CONNS:    10,
		DB_MAX_IDLE_CONNS:    5,
		DB_CONN_MAX_LIFETIME: 30 * time.Minute,
		PROFILE_DIR:          "profiles",
	}
}

// LoadEnvConfig loads .env when present and fills DefaultEnvConfig from the
// environment. Unset variables keep their defaults.
func LoadEnvConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg := defaults()
	setString(&cfg.APP_PORT, "APP_PORT")
	setString(&cfg.LOG_FILE_PATH, "LOG_FILE_PATH")
	setString(&cfg.LOG_LEVEL, "LOG_LEVEL")
	setString(&cfg.DB_HOST, "DB_HOST")
	setString(&cfg.DB_USER, "DB_USER")
	setString(&cfg.DB_PASSWORD, "DB_PASSWORD")
	setString(&cfg.DB_NAME, "DB_NAME")
	setString(&cfg.DB_SSL_MODE, "DB_SSL_MODE")
	setString(&cfg.PROFILE_DIR, "PROFILE_DIR")
	setString(&cfg.GCP_PROJECT_ID, "GCP_PROJECT_ID")
	setString(&cfg.ELASTIC_URL, "ELASTIC_URL")

	if err := setInt(&cfg.DB_PORT, "DB_PORT"); err != nil {
		return err
	}
	if err := setInt(&cfg.DB_MAX_OPEN_CONNS, "DB_MAX_OPEN_CONNS"); err != nil {
		return err
	}
	if err := setInt(&cfg.DB_MAX_IDLE_CONNS, "DB_MAX_IDLE_CONNS"); err != nil {
		return err
	}
	if v, ok := os.LookupEnv("DB_CONN_MAX_LIFETIME"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %q: %w", v, err)
		}
		cfg.DB_CONN_MAX_LIFETIME = d
	}

	DefaultEnvConfig = cfg
	return nil
}

func setString(dst *string, name string) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, name string) error {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	*dst = n
	return nil
}
