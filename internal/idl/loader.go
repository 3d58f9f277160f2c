package idl

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// LoadDir parses every .json file directly under dir and registers it under
// the program id named by its own address field. A file that fails to
// parse, or whose registration fails (duplicate discriminator), is logged
// and skipped rather than aborting the rest of the directory.
func LoadDir(registry *Registry, dir string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read idl directory %q: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("skipping idl file, cannot read", zap.String("path", path), zap.Error(err))
			continue
		}

		doc, err := ParseDocument(data)
		if err != nil {
			logger.Warn("skipping idl file, parse failed", zap.String("path", path), zap.Error(err))
			continue
		}

		if err := registry.Register(doc.Address, doc); err != nil {
			logger.Warn("skipping idl file, registration failed", zap.String("path", path), zap.Error(err))
			continue
		}

		logger.Info("registered idl", zap.String("path", path), zap.String("program_id", doc.Address), zap.Int("events", len(doc.Events)))
	}

	return nil
}
