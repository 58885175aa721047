package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "environment: test\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Publisher.Backend != "ws" {
		t.Errorf("backend = %q", cfg.Publisher.Backend)
	}
	if cfg.Generator.Symbol != "BTC" || cfg.Generator.Interval != time.Second {
		t.Errorf("generator = %q/%v", cfg.Generator.Symbol, cfg.Generator.Interval)
	}
	if cfg.Generator.StartPrice != 100_000_000_000 || cfg.Generator.MaxPrice != 199_999_990_000 {
		t.Errorf("price bounds = %d..%d", cfg.Generator.StartPrice, cfg.Generator.MaxPrice)
	}
	if cfg.Rollup.Interval != time.Minute {
		t.Errorf("rollup interval = %v", cfg.Rollup.Interval)
	}
	if cfg.Kafka.TickTopic != "chart.tick" || cfg.Kafka.CandleTopic != "chart.candle" {
		t.Errorf("topics = %q/%q", cfg.Kafka.TickTopic, cfg.Kafka.CandleTopic)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, "environment: test\npublisher:\n  backend: nats\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for unknown backend")
	}
}

func TestLoadRejectsKafkaWithoutBrokers(t *testing.T) {
	path := writeConfig(t, "environment: test\npublisher:\n  backend: kafka\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for kafka backend without brokers")
	}
}

func TestLoadRejectsBadPriceBounds(t *testing.T) {
	path := writeConfig(t, `environment: test
generator:
  start_price: 50
  min_price: 100
  max_price: 200
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for start price outside bounds")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, "environment: test\n")
	t.Setenv("PUBLISHER_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "redis.internal:6379")
	t.Setenv("GENERATOR_SYMBOL", "ETH")

	cfg, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}
	if cfg.Publisher.Backend != "redis" {
		t.Errorf("backend = %q", cfg.Publisher.Backend)
	}
	if cfg.Redis.Addr != "redis.internal:6379" {
		t.Errorf("redis addr = %q", cfg.Redis.Addr)
	}
	if cfg.Generator.Symbol != "ETH" {
		t.Errorf("generator symbol = %q", cfg.Generator.Symbol)
	}
}
