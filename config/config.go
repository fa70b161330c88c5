package config

import (
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// Port the API server listens on
	Port string `env:"PORT" envDefault:"5250"`

	// Base URL of the external listings backend
	BackendBaseURL string `env:"BACKEND_API_URL" envDefault:"https://backend-ubd7.onrender.com"`

	// Timeout for outbound backend requests
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"10s"`

	// Path of the local sqlite database (watchlist, handoff, snapshots)
	DatabasePath string `env:"DATABASE_PATH" envDefault:"database/primerjalnik.db"`

	// Origins allowed by the CORS middleware
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	// Snapshot pipeline configuration
	Snapshot struct {
		// Buffer size of the in-memory batch queue
		QueueSize int `env:"SNAPSHOT_QUEUE_SIZE" envDefault:"64"`

		// Number of concurrent snapshot writers
		WriterCount int `env:"SNAPSHOT_WRITER_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"SNAPSHOT_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"SNAPSHOT_RETRY_DELAY" envDefault:"5"`

		// Days a snapshot row is kept before the scheduler prunes it
		RetentionDays int `env:"SNAPSHOT_RETENTION_DAYS" envDefault:"14"`
	}
}

func LoadConfig() (*Config, error) {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
