package config_test

import (
	"strings"
	"testing"

	"github.com/samirrijal/questgeo/internal/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load("questgeo-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Telemetry.ServiceName != "questgeo-test" {
		t.Errorf("service name = %q", cfg.Telemetry.ServiceName)
	}
	if cfg.Verification.MinRadiusMeters != 10 || cfg.Verification.DefaultRadiusMeters != 50 {
		t.Errorf("verification = %+v", cfg.Verification)
	}
	if cfg.Spoof.CheckWeight != 0.6 || cfg.Spoof.PassThreshold != 0.5 {
		t.Errorf("spoof = %+v", cfg.Spoof)
	}
	if cfg.Database.MaxConns != 50 {
		t.Errorf("max conns = %d, want 50", cfg.Database.MaxConns)
	}
	if cfg.Temporal.TaskQueue != "questgeo-import" {
		t.Errorf("task queue = %q", cfg.Temporal.TaskQueue)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("QUESTGEO_SERVER_PORT", "9090")
	t.Setenv("QUESTGEO_VERIFICATION_DEFAULT_RADIUS_METERS", "75")
	t.Setenv("QUESTGEO_LOG_FORMAT", "text")

	cfg, err := config.Load("questgeo-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Verification.DefaultRadiusMeters != 75 {
		t.Errorf("default radius = %v, want 75", cfg.Verification.DefaultRadiusMeters)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("log format = %q", cfg.Log.Format)
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("QUESTGEO_SPOOF_PASS_THRESHOLD", "1.5")

	if _, err := config.Load("questgeo-test"); err == nil {
		t.Fatal("expected validation error")
	}
}

func validConfig() config.Config {
	return config.Config{
		Server:       config.ServerConfig{Port: 8080, ReadTimeout: 10, WriteTimeout: 10, RateLimit: 120},
		Database:     config.DatabaseConfig{Host: "localhost", Port: 5432, User: "questgeo", DBName: "questgeo"},
		NATS:         config.NATSConfig{URL: "nats://localhost:4222"},
		Valkey:       config.ValkeyConfig{Addr: "localhost:6379"},
		Log:          config.LogConfig{Level: "info", Format: "json"},
		Verification: config.VerificationConfig{MinRadiusMeters: 10, DefaultRadiusMeters: 50},
		Spoof:        config.SpoofConfig{CheckWeight: 0.6, PassThreshold: 0.5},
		Temporal:     config.TemporalConfig{HostPort: "localhost:7233", Namespace: "default", TaskQueue: "questgeo-import"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr string
	}{
		{"valid", func(c *config.Config) {}, ""},
		{"bad port", func(c *config.Config) { c.Server.Port = 70000 }, "server.port"},
		{"missing db host", func(c *config.Config) { c.Database.Host = "" }, "database.host"},
		{"missing nats", func(c *config.Config) { c.NATS.URL = "" }, "nats.url"},
		{"bad log format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
		{"negative floor", func(c *config.Config) { c.Verification.MinRadiusMeters = -1 }, "min_radius_meters"},
		{"zero default radius", func(c *config.Config) { c.Verification.DefaultRadiusMeters = 0 }, "default_radius_meters"},
		{"weight too high", func(c *config.Config) { c.Spoof.CheckWeight = 2 }, "spoof.check_weight"},
		{"missing task queue", func(c *config.Config) { c.Temporal.TaskQueue = "" }, "temporal.task_queue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Database.User = ""
	cfg.Valkey.Addr = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"server.port", "database.user", "valkey.addr"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}

func TestDSN(t *testing.T) {
	d := config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "q", SSLMode: "disable"}
	if got, want := d.DSN(), "postgres://u:p@db:5432/q?sslmode=disable"; got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
