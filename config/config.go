package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment
// variables or a local .env file.
//
// Example ENV equivalent:
//
//	SERVER_PORT=8080
//	POSTGRES_HOST=localhost
//	POSTGRES_PORT=5432
//	POSTGRES_USER=postgres
//	POSTGRES_PASSWORD=secret
//	POSTGRES_DB=foliopulse
//	POSTGRES_SSLMODE=disable
//	IMPORT_WINDOW_DAYS=7
type Config struct {
	Server   ServerConfig   // HTTP server configuration
	Postgres PostgresConfig // PostgreSQL connection settings
	Import   ImportConfig   // Import pipeline tuning
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string // TCP port the HTTP server listens on (e.g. "8080")
}

// PostgresConfig defines connection details for PostgreSQL.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string // computed DSN used by database/sql
}

// ImportConfig tunes the chunked import pipeline.
type ImportConfig struct {
	WindowDays int    // chunk window length in days
	Broker     string // broker label used for broker-level snapshots
}

// AppConfig is the globally accessible configuration instance, populated
// once via LoadConfig().
var AppConfig Config

// LoadConfig initializes AppConfig from (lowest to highest precedence)
// defaults, an optional .env file, and environment variables. Missing
// required values terminate the process via validateConfig.
func LoadConfig() {
	viper.SetDefault("SERVER_PORT", "8080")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "foliopulse")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	viper.SetDefault("IMPORT_WINDOW_DAYS", 7)
	viper.SetDefault("IMPORT_BROKER", "default")

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	viper.AutomaticEnv()

	AppConfig = Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
		Import: ImportConfig{
			WindowDays: viper.GetInt("IMPORT_WINDOW_DAYS"),
			Broker:     viper.GetString("IMPORT_BROKER"),
		},
	}

	AppConfig.Postgres.URL = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		AppConfig.Postgres.User,
		AppConfig.Postgres.Password,
		AppConfig.Postgres.Host,
		AppConfig.Postgres.Port,
		AppConfig.Postgres.DBName,
		AppConfig.Postgres.SSLMode,
	)

	validateConfig()
}

// validateConfig terminates the application when required variables are
// missing, avoiding late runtime failures from incomplete configuration.
func validateConfig() {
	var missing []string

	if AppConfig.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if AppConfig.Postgres.Host == "" {
		missing = append(missing, "POSTGRES_HOST")
	}
	if AppConfig.Postgres.Port == 0 {
		missing = append(missing, "POSTGRES_PORT")
	}
	if AppConfig.Postgres.User == "" {
		missing = append(missing, "POSTGRES_USER")
	}
	if AppConfig.Postgres.Password == "" {
		missing = append(missing, "POSTGRES_PASSWORD")
	}
	if AppConfig.Postgres.DBName == "" {
		missing = append(missing, "POSTGRES_DB")
	}
	if AppConfig.Import.WindowDays < 1 {
		missing = append(missing, "IMPORT_WINDOW_DAYS")
	}

	if len(missing) > 0 {
		log.Fatalf("missing required environment variables: %v\n", missing)
	}
}
