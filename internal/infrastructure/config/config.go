package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

type Config struct {
	ServerAddress   string
	ShutdownTimeout time.Duration

	// Document store
	StoreDriver   string
	SQLitePath    string
	MongoURI      string
	MongoDatabase string

	// Auth
	JWTSecret string
	TokenTTL  time.Duration

	// Demo mode
	SeedDemo     bool
	DemoEmail    string
	DemoPassword string

	PersistWorkers int
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		ServerAddress:   mustGetenv("SERVER_ADDRESS"),
		ShutdownTimeout: mustGetDuration("SHUTDOWN_TIMEOUT"),
		StoreDriver:     getenvDefault("STORE_DRIVER", DriverMemory),
		SQLitePath:      getenvDefault("SQLITE_PATH", "toeic.db"),
		MongoURI:        getenvDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getenvDefault("MONGO_DATABASE", "toeic"),
		JWTSecret:       mustGetenv("JWT_SECRET"),
		TokenTTL:        getDurationDefault("TOKEN_TTL", 24*time.Hour),
		SeedDemo:        getBoolDefault("SEED_DEMO", false),
		DemoEmail:       getenvDefault("DEMO_EMAIL", "student@demo.com"),
		DemoPassword:    getenvDefault("DEMO_PASSWORD", "demo1234"),
		PersistWorkers:  getIntDefault("PERSIST_WORKERS", 2),
	}

	switch cfg.StoreDriver {
	case DriverMemory, DriverSQLite, DriverMongo:
	default:
		log.Fatalf("config: STORE_DRIVER=%q must be one of memory, sqlite, mongo", cfg.StoreDriver)
	}
	return cfg
}

func mustGetenv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("config: required environment variable %s is not set", k)
	}
	return v
}

func mustGetDuration(k string) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("config: required environment variable %s is not set", k)
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("config: %s=%q is not a valid duration: %v", k, v, err)
	}
	return d
}

func getenvDefault(k, fallback string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return fallback
}

func getDurationDefault(k string, fallback time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("config: %s=%q is not a valid duration: %v", k, v, err)
	}
	return d
}

func getIntDefault(k string, fallback int) int {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("config: %s=%q is not a valid integer: %v", k, v, err)
	}
	return n
}

func getBoolDefault(k string, fallback bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Fatalf("config: %s=%q is not a valid boolean: %v", k, v, err)
	}
	return b
}
