package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all configuration fields for the application.
type Config struct {
	Port             string
	DatabaseURL      string
	DBDriver         string // "sqlite" or "postgres"
	EvolutionBaseURL string
	EvolutionAPIKey  string
	PublicBaseURL    string // externally reachable base URL, used when registering webhooks with the gateway
	RabbitMQURL      string
	RabbitMQQueue    string
	LogLevel         string
	LogFormat        string
}

// LoadConfig loads configuration from environment variables.
// A .env file is honored when present; the environment takes precedence.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		Port:             os.Getenv("PORT"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DBDriver:         os.Getenv("DB_DRIVER"),
		EvolutionBaseURL: os.Getenv("EVOLUTION_BASE_URL"),
		EvolutionAPIKey:  os.Getenv("EVOLUTION_API_KEY"),
		PublicBaseURL:    os.Getenv("PUBLIC_BASE_URL"),
		RabbitMQURL:      os.Getenv("RABBITMQ_URL"),
		RabbitMQQueue:    os.Getenv("RABBITMQ_QUEUE"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		LogFormat:        os.Getenv("LOG_FORMAT"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.DBDriver == "" {
		cfg.DBDriver = "sqlite"
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "onethy.db"
		log.Info().Str("path", cfg.DatabaseURL).Msg("DATABASE_URL not set, using local sqlite file")
	}
	if cfg.RabbitMQQueue == "" {
		cfg.RabbitMQQueue = "onethy_events"
	}

	return cfg, nil
}
