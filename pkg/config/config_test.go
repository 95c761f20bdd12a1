package config

import "testing"

func validConfig() *Config {
	c := &Config{Environment: "development"}
	c.Bybit.RESTURL = "https://api.bybit.com"
	c.Bybit.WebSocketURL = "wss://stream.bybit.com/v5/public/spot"
	c.Store.Backend = "memory"
	c.Ledger.Backend = "clickhouse"
	c.applyDefaults()
	return c
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateRejectsUnknownInterval(t *testing.T) {
	c := validConfig()
	c.Bybit.Interval = "7"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for unknown interval code")
	}
}

func TestValidateRejectsUnknownBackends(t *testing.T) {
	c := validConfig()
	c.Store.Backend = "postgres"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for unknown store backend")
	}

	c = validConfig()
	c.Ledger.Backend = "sqlite"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for unknown ledger backend")
	}
}

func TestValidateRejectsOversizedBatchLimit(t *testing.T) {
	c := validConfig()
	c.Backfill.BatchLimit = 1500
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for batch limit above 1000")
	}
}
