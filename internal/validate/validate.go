// Package validate checks a merged engine configuration before anything is
// opened, dialed, or subscribed to.
package validate

import (
	"fmt"
	"os"
	"strings"

	"github.com/mr-tron/base58"
)

// ConfigError aggregates the first validation failure found. Only one
// failure is reported per call, matching the fail-fast startup posture the
// engines expect: validation runs once, before any I/O, and any failure is
// fatal.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Message)
}

func fail(field, format string, args ...interface{}) error {
	return &ConfigError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ProgramID checks that id decodes as a base58 32-byte public key.
func ProgramID(id string) error {
	decoded, err := base58.Decode(id)
	if err != nil {
		return fail("program_id", "%q is not valid base58: %v", id, err)
	}
	if len(decoded) != 32 {
		return fail("program_id", "%q decodes to %d bytes, want 32", id, len(decoded))
	}
	return nil
}

// ProgramIDs checks that programs is non-empty and every entry passes
// ProgramID.
func ProgramIDs(programs []string) error {
	if len(programs) == 0 {
		return fail("programs", "at least one program id must be specified")
	}
	for _, id := range programs {
		if err := ProgramID(id); err != nil {
			return err
		}
	}
	return nil
}

// DatabaseURL checks that url is non-empty and, for a sqlite:/file: URL,
// that the parent directory of the database file already exists.
func DatabaseURL(url string) error {
	if url == "" {
		return fail("db_url", "must not be empty")
	}

	path := ""
	switch {
	case strings.HasPrefix(url, "sqlite:"):
		path = strings.TrimPrefix(url, "sqlite:")
	case strings.HasPrefix(url, "file:"):
		path = strings.TrimPrefix(url, "file:")
	default:
		return nil
	}

	if path == ":memory:" || path == "" {
		return nil
	}

	dir := parentDir(path)
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fail("db_url", "parent directory %q does not exist", dir)
	}
	if !info.IsDir() {
		return fail("db_url", "%q is not a directory", dir)
	}
	return nil
}

func parentDir(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return ""
	}
	if idx == 0 {
		return "/"
	}
	return path[:idx]
}

// IDLDir checks that dir exists, is a directory, and is readable.
func IDLDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fail("idl_dir", "does not exist: %v", err)
	}
	if !info.IsDir() {
		return fail("idl_dir", "%q is not a directory", dir)
	}
	if _, err := os.ReadDir(dir); err != nil {
		return fail("idl_dir", "cannot read %q: %v", dir, err)
	}
	return nil
}

// RPCURL checks that url is non-empty and uses http:// or https://.
func RPCURL(url string) error {
	if url == "" {
		return fail("rpc_url", "must not be empty")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fail("rpc_url", "%q must start with http:// or https://", url)
	}
	return nil
}

// WSURL checks that url is non-empty and uses ws:// or wss://.
func WSURL(url string) error {
	if url == "" {
		return fail("ws_url", "must not be empty")
	}
	if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
		return fail("ws_url", "%q must start with ws:// or wss://", url)
	}
	return nil
}

var commitments = map[string]bool{"processed": true, "confirmed": true, "finalized": true}

// Commitment checks that level is one of processed, confirmed, or
// finalized.
func Commitment(level string) error {
	if !commitments[strings.ToLower(level)] {
		return fail("commitment", "%q must be one of processed, confirmed, finalized", level)
	}
	return nil
}

// Positive checks that a numeric config field is greater than zero.
func Positive(field string, value int) error {
	if value <= 0 {
		return fail(field, "must be greater than 0, got %d", value)
	}
	return nil
}

// LiveConfig aggregates the fields validate.Live checks.
type LiveConfig struct {
	Programs       []string
	IDLDir         string
	DatabaseURL    string
	RPCURL         string
	WSURL          string
	Commitment     string
	ReconnectDelay int
}

// Live validates a live engine configuration, returning the first failure.
func Live(cfg LiveConfig) error {
	if err := ProgramIDs(cfg.Programs); err != nil {
		return err
	}
	if err := IDLDir(cfg.IDLDir); err != nil {
		return err
	}
	if err := DatabaseURL(cfg.DatabaseURL); err != nil {
		return err
	}
	if err := RPCURL(cfg.RPCURL); err != nil {
		return err
	}
	if err := WSURL(cfg.WSURL); err != nil {
		return err
	}
	if err := Commitment(cfg.Commitment); err != nil {
		return err
	}
	return nil
}

// BackfillConfig aggregates the fields validate.Backfill checks.
type BackfillConfig struct {
	Programs    []string
	IDLDir      string
	DatabaseURL string
	RPCURL      string
	Limit       int
	BatchSize   int
	Concurrency int
	MaxRetries  int
}

// Backfill validates a backfill engine configuration, returning the first
// failure.
func Backfill(cfg BackfillConfig) error {
	if err := ProgramIDs(cfg.Programs); err != nil {
		return err
	}
	if err := IDLDir(cfg.IDLDir); err != nil {
		return err
	}
	if err := DatabaseURL(cfg.DatabaseURL); err != nil {
		return err
	}
	if err := RPCURL(cfg.RPCURL); err != nil {
		return err
	}
	if err := Positive("limit", cfg.Limit); err != nil {
		return err
	}
	if err := Positive("batch_size", cfg.BatchSize); err != nil {
		return err
	}
	if err := Positive("concurrency", cfg.Concurrency); err != nil {
		return err
	}
	if err := Positive("max_retries", cfg.MaxRetries); err != nil {
		return err
	}
	return nil
}
