// Package config merges CLI flags, environment variables, and built-in
// defaults into the engines' configuration structs. No config file is read.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// LiveConfig holds merged configuration for soltrace-live.
type LiveConfig struct {
	Programs       []string
	IDLDir         string
	DatabaseURL    string
	RPCURL         string
	WSURL          string
	Commitment     string
	ReconnectDelay time.Duration
	MaxReconnects  int
	LogLevel       string
}

// BackfillConfig holds merged configuration for soltrace-backfill.
type BackfillConfig struct {
	Programs    []string
	IDLDir      string
	DatabaseURL string
	RPCURL      string
	Limit       int
	BatchSize   int
	BatchDelay  time.Duration
	Concurrency int
	MaxRetries  int
	LogLevel    string
}

// specEnvVars binds the bare environment variable names documented for the
// CLI (e.g. SOLANA_RPC_URL) alongside the SOLTRACE_-prefixed ones
// AutomaticEnv already resolves, so either form works.
var specEnvVars = map[string]string{
	"rpc-url":         "SOLANA_RPC_URL",
	"ws-url":          "SOLANA_WS_URL",
	"db-url":          "DB_URL",
	"idl-dir":         "IDL_DIR",
	"programs":        "PROGRAM_IDS",
	"commitment":      "COMMITMENT",
	"reconnect-delay": "RECONNECT_DELAY",
	"limit":           "LIMIT",
	"batch-size":      "BATCH_SIZE",
	"batch-delay":     "BATCH_DELAY",
	"log-level":       "LOG_LEVEL",
}

func newViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("SOLTRACE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, env := range specEnvVars {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}
	return v, nil
}

// LoadLive merges flags and environment into a LiveConfig.
func LoadLive(flags *pflag.FlagSet) (LiveConfig, error) {
	v, err := newViper(flags)
	if err != nil {
		return LiveConfig{}, err
	}

	v.SetDefault("commitment", "confirmed")
	v.SetDefault("reconnect-delay", 5*time.Second)
	v.SetDefault("max-reconnects", 0)
	v.SetDefault("log-level", "info")

	return LiveConfig{
		Programs:       getStringSlice(v, "programs"),
		IDLDir:         v.GetString("idl-dir"),
		DatabaseURL:    v.GetString("db-url"),
		RPCURL:         v.GetString("rpc-url"),
		WSURL:          v.GetString("ws-url"),
		Commitment:     v.GetString("commitment"),
		ReconnectDelay: v.GetDuration("reconnect-delay"),
		MaxReconnects:  v.GetInt("max-reconnects"),
		LogLevel:       v.GetString("log-level"),
	}, nil
}

// LoadBackfill merges flags and environment into a BackfillConfig.
func LoadBackfill(flags *pflag.FlagSet) (BackfillConfig, error) {
	v, err := newViper(flags)
	if err != nil {
		return BackfillConfig{}, err
	}

	v.SetDefault("limit", 1000)
	v.SetDefault("batch-size", 10)
	v.SetDefault("batch-delay", 100*time.Millisecond)
	v.SetDefault("concurrency", 10)
	v.SetDefault("max-retries", 3)
	v.SetDefault("log-level", "info")

	return BackfillConfig{
		Programs:    getStringSlice(v, "programs"),
		IDLDir:      v.GetString("idl-dir"),
		DatabaseURL: v.GetString("db-url"),
		RPCURL:      v.GetString("rpc-url"),
		Limit:       v.GetInt("limit"),
		BatchSize:   v.GetInt("batch-size"),
		BatchDelay:  v.GetDuration("batch-delay"),
		Concurrency: v.GetInt("concurrency"),
		MaxRetries:  v.GetInt("max-retries"),
		LogLevel:    v.GetString("log-level"),
	}, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	return cleanStrings(strings.Split(input, ","))
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
