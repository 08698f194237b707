package config

import (
	"testing"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Error("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/evolua")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.DefaultClinic != "default" {
		t.Errorf("expected default clinic, got %s", cfg.DefaultClinic)
	}
	if cfg.DBMaxConns != 20 || cfg.DBMinConns != 5 {
		t.Errorf("unexpected pool defaults: max=%d min=%d", cfg.DBMaxConns, cfg.DBMinConns)
	}
	if cfg.MaxUploadBytes != 50*1024*1024 {
		t.Errorf("unexpected upload limit: %d", cfg.MaxUploadBytes)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/evolua")
	t.Setenv("PORT", "9090")
	t.Setenv("DEFAULT_CLINIC", "fono_sp")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.DefaultClinic != "fono_sp" {
		t.Errorf("expected clinic fono_sp, got %s", cfg.DefaultClinic)
	}
}

func TestValidate_ProductionNeedsIssuer(t *testing.T) {
	cfg := &Config{Env: "production", MaxUploadBytes: 1, DBMaxConns: 2, DBMinConns: 1}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for production without AUTH_ISSUER")
	}

	cfg.AuthIssuer = "https://auth.example.com"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_DevNeedsNoIssuer(t *testing.T) {
	cfg := &Config{Env: "development", MaxUploadBytes: 1, DBMaxConns: 2, DBMinConns: 1}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWarnings_DevOnly(t *testing.T) {
	dev := &Config{Env: "development"}
	if len(dev.Warnings()) == 0 {
		t.Error("expected startup warnings in development mode")
	}

	prod := &Config{Env: "production"}
	if got := prod.Warnings(); len(got) != 0 {
		t.Errorf("expected no warnings in production, got %v", got)
	}
}

func TestValidate_PoolBounds(t *testing.T) {
	cfg := &Config{Env: "development", MaxUploadBytes: 1, DBMaxConns: 2, DBMinConns: 10}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when DB_MIN_CONNS exceeds DB_MAX_CONNS")
	}
}
