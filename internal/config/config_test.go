package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadLive_FlagsAndDefaults(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringSlice("programs", nil, "")
	flags.String("idl-dir", "", "")
	flags.String("db-url", "", "")
	flags.String("rpc-url", "", "")
	flags.String("ws-url", "", "")
	flags.String("commitment", "", "")
	flags.Duration("reconnect-delay", 0, "")
	flags.Int("max-reconnects", 0, "")
	flags.String("log-level", "", "")

	if err := flags.Parse([]string{
		"--programs=prog1,prog2",
		"--idl-dir=/idl",
		"--db-url=sqlite:/tmp/events.db",
		"--rpc-url=https://rpc.example.com",
		"--ws-url=wss://rpc.example.com",
	}); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadLive(flags)
	if err != nil {
		t.Fatalf("LoadLive: %v", err)
	}
	if len(cfg.Programs) != 2 || cfg.Programs[0] != "prog1" || cfg.Programs[1] != "prog2" {
		t.Fatalf("unexpected programs: %+v", cfg.Programs)
	}
	if cfg.Commitment != "confirmed" {
		t.Fatalf("expected default commitment confirmed, got %q", cfg.Commitment)
	}
	if cfg.ReconnectDelay != 5*time.Second {
		t.Fatalf("expected default reconnect delay 5s, got %v", cfg.ReconnectDelay)
	}
	if cfg.IDLDir != "/idl" {
		t.Fatalf("expected idl dir /idl, got %q", cfg.IDLDir)
	}
}

func TestLoadBackfill_Defaults(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringSlice("programs", nil, "")
	flags.String("idl-dir", "", "")
	flags.String("db-url", "", "")
	flags.String("rpc-url", "", "")
	flags.Int("limit", 0, "")
	flags.Int("batch-size", 0, "")
	flags.Duration("batch-delay", 0, "")
	flags.Int("concurrency", 0, "")
	flags.Int("max-retries", 0, "")
	flags.String("log-level", "", "")

	cfg, err := LoadBackfill(flags)
	if err != nil {
		t.Fatalf("LoadBackfill: %v", err)
	}
	if cfg.Limit != 1000 {
		t.Fatalf("expected default limit 1000, got %d", cfg.Limit)
	}
	if cfg.Concurrency != 10 {
		t.Fatalf("expected default concurrency 10, got %d", cfg.Concurrency)
	}
	if cfg.BatchDelay != 100*time.Millisecond {
		t.Fatalf("expected default batch delay 100ms, got %v", cfg.BatchDelay)
	}
}
