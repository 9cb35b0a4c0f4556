package config_test

import (
	"testing"
	"time"

	"github.com/toeicquiz/backend/internal/infrastructure/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":9090")
	t.Setenv("SHUTDOWN_TIMEOUT", "5s")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("SEED_DEMO", "")
	t.Setenv("PERSIST_WORKERS", "")

	cfg := config.Load()

	if cfg.ServerAddress != ":9090" || cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("unexpected server config: %+v", cfg)
	}
	if cfg.StoreDriver != config.DriverMemory {
		t.Errorf("expected memory driver, got %q", cfg.StoreDriver)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("expected 24h token ttl, got %v", cfg.TokenTTL)
	}
	if cfg.SeedDemo {
		t.Error("expected demo seeding off by default")
	}
	if cfg.PersistWorkers != 2 {
		t.Errorf("expected 2 persist workers, got %d", cfg.PersistWorkers)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":8080")
	t.Setenv("SHUTDOWN_TIMEOUT", "10s")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/quiz.db")
	t.Setenv("TOKEN_TTL", "1h")
	t.Setenv("SEED_DEMO", "true")
	t.Setenv("PERSIST_WORKERS", "4")

	cfg := config.Load()

	if cfg.StoreDriver != config.DriverSQLite || cfg.SQLitePath != "/tmp/quiz.db" {
		t.Errorf("unexpected store config: %q %q", cfg.StoreDriver, cfg.SQLitePath)
	}
	if cfg.TokenTTL != time.Hour || !cfg.SeedDemo || cfg.PersistWorkers != 4 {
		t.Errorf("unexpected overrides: %+v", cfg)
	}
}
