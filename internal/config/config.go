package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Transport TransportConfig `yaml:"transport"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	NATS      NATSConfig      `yaml:"nats"`
	Detector  DetectorConfig  `yaml:"detector"`
	Log       LogConfig       `yaml:"log"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	MaxConns int32  `yaml:"max_conns"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type TransportConfig struct {
	Driver string `yaml:"driver"`
}

type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type DetectorConfig struct {
	Interval time.Duration `yaml:"interval"`
	// AnnounceExisting makes the first pass after start announce orders that
	// were already in the store instead of only remembering them.
	AnnounceExisting bool `yaml:"announce_existing"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

const envPrefix = "TABLEORDER_"

func Default() *Config {
	return &Config{
		Store:     StoreConfig{Driver: "postgres"},
		Database:  DatabaseConfig{Host: "localhost", Port: 5432, User: "tableorder", Database: "tableorder", MaxConns: 10},
		Mongo:     MongoConfig{URI: "mongodb://localhost:27017", Database: "tableorder"},
		Transport: TransportConfig{Driver: "rabbitmq"},
		RabbitMQ:  RabbitMQConfig{Host: "localhost", Port: 5672, User: "guest", Password: "guest"},
		NATS:      NATSConfig{URL: "nats://localhost:4222"},
		Detector:  DetectorConfig{Interval: 2 * time.Second},
		Log:       LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies
// TABLEORDER_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres", "mongo", "memory":
	default:
		return fmt.Errorf("invalid store driver %q", c.Store.Driver)
	}
	switch c.Transport.Driver {
	case "rabbitmq", "nats", "memory":
	default:
		return fmt.Errorf("invalid transport driver %q", c.Transport.Driver)
	}
	if c.Detector.Interval <= 0 {
		return fmt.Errorf("detector interval must be positive, got %s", c.Detector.Interval)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"STORE_DRIVER":      &c.Store.Driver,
		"DB_HOST":           &c.Database.Host,
		"DB_USER":           &c.Database.User,
		"DB_PASSWORD":       &c.Database.Password,
		"DB_NAME":           &c.Database.Database,
		"MONGO_URI":         &c.Mongo.URI,
		"MONGO_DATABASE":    &c.Mongo.Database,
		"TRANSPORT_DRIVER":  &c.Transport.Driver,
		"RABBITMQ_HOST":     &c.RabbitMQ.Host,
		"RABBITMQ_USER":     &c.RabbitMQ.User,
		"RABBITMQ_PASSWORD": &c.RabbitMQ.Password,
		"NATS_URL":          &c.NATS.URL,
		"LOG_LEVEL":         &c.Log.Level,
	}
	for key, dst := range strs {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"DB_PORT":       &c.Database.Port,
		"RABBITMQ_PORT": &c.RabbitMQ.Port,
	}
	for key, dst := range ints {
		if v, ok := lookup(envPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
			}
			*dst = n
		}
	}

	if v, ok := lookup(envPrefix + "DETECTOR_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sDETECTOR_INTERVAL: %w", envPrefix, err)
		}
		c.Detector.Interval = d
	}
	return nil
}
