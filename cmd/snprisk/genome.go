package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/M0-Anwar/diseases-detection/internal/clean"
	"github.com/M0-Anwar/diseases-detection/internal/table"
)

// loadCleaned reads a catalogue or raw table and cleans it.
func (a *app) loadCleaned(path string) (*table.Frame, error) {
	raw, err := table.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return a.cleanTable(path, raw)
}

// loadGenome reads a genome. A genome that is already clean is returned as
// read; anything else is cleaned first.
func (a *app) loadGenome(path string) (*table.Frame, error) {
	raw, err := table.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if clean.IsClean(raw) {
		a.logger.Debug("genome already clean", zap.String("file", path))
		return raw, nil
	}
	return a.cleanTable(path, raw)
}

func (a *app) cleanTable(path string, raw *table.Frame) (*table.Frame, error) {
	c := clean.New()
	c.SetLogger(a.logger.With(zap.String("file", path)))
	f, err := c.Clean(raw)
	if err != nil {
		return nil, fmt.Errorf("clean %s: %w", path, err)
	}
	return f, nil
}

// sampleName derives a sample name from a genome path.
func sampleName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".gz")
	return strings.TrimSuffix(base, filepath.Ext(base))
}
