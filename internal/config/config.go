package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	DEFAULT_PORT            = "8080"
	DEFAULT_MAX_CONCURRENCY = 8
	DEFAULT_APPLY_RETRIES   = 3
	DEFAULT_KAFKA_TOPIC     = "reconciliation_completed"
)

type ServerConfig struct {
	Port           string   `envconfig:"PORT"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type DatabaseConfig struct {
	DSN          string `envconfig:"DSN"`
	MaxOpenConns int    `envconfig:"MAX_OPEN_CONNS" default:"20"`
	// MaxConcurrency caps the number of match link updates in flight.
	MaxConcurrency int `envconfig:"MAX_CONCURRENCY"`
}

type RedisConfig struct {
	Dns string `envconfig:"DNS"`
}

type KafkaConfig struct {
	Brokers []string `envconfig:"BROKERS"`
	Topic   string   `envconfig:"TOPIC"`
}

type MatchingConfig struct {
	DateWindowDays int `envconfig:"DATE_WINDOW_DAYS"`
}

type TaxConfig struct {
	Tolerance string `envconfig:"TOLERANCE" default:"0"`
}

type ApplyConfig struct {
	MaxRetries int `envconfig:"MAX_RETRIES"`
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"text"`
}

type Configuration struct {
	Server   ServerConfig   `envconfig:"SERVER"`
	Database DatabaseConfig `envconfig:"DATABASE"`
	Redis    RedisConfig    `envconfig:"REDIS"`
	Kafka    KafkaConfig    `envconfig:"KAFKA"`
	Matching MatchingConfig `envconfig:"MATCHING"`
	Tax      TaxConfig      `envconfig:"TAX"`
	Apply    ApplyConfig    `envconfig:"APPLY"`
	Log      LogConfig      `envconfig:"LOG"`
}

// Load reads an optional .env file and then the RECON_* environment.
func Load(envFiles ...string) (*Configuration, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	var cnf Configuration
	if err := envconfig.Process("recon", &cnf); err != nil {
		return nil, err
	}
	if err := cnf.validateAndAddDefaults(); err != nil {
		return nil, err
	}
	return &cnf, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	cnf.Database.DSN = strings.TrimSpace(cnf.Database.DSN)
	if cnf.Database.DSN == "" {
		return errors.New("database DSN is required (RECON_DATABASE_DSN)")
	}

	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
	}

	if cnf.Database.MaxConcurrency <= 0 {
		cnf.Database.MaxConcurrency = DEFAULT_MAX_CONCURRENCY
	}
	if cnf.Apply.MaxRetries < 0 {
		return errors.New("apply max retries must not be negative")
	}
	if cnf.Apply.MaxRetries == 0 {
		cnf.Apply.MaxRetries = DEFAULT_APPLY_RETRIES
	}
	if cnf.Matching.DateWindowDays < 0 {
		return errors.New("matching date window must not be negative")
	}
	if cnf.Kafka.Topic == "" {
		cnf.Kafka.Topic = DEFAULT_KAFKA_TOPIC
	}

	tolerance, err := cnf.TaxTolerance()
	if err != nil {
		return err
	}
	if tolerance.IsNegative() {
		return errors.New("tax tolerance must not be negative")
	}
	return nil
}

func (cnf *Configuration) TaxTolerance() (decimal.Decimal, error) {
	if strings.TrimSpace(cnf.Tax.Tolerance) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(cnf.Tax.Tolerance))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid tax tolerance %q: %w", cnf.Tax.Tolerance, err)
	}
	return d, nil
}
