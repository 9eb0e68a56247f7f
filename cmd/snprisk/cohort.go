package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
)

// CohortEntry is one labeled genome of a training cohort manifest.
type CohortEntry struct {
	Path  string `csv:"path"`
	Label int    `csv:"label"`
}

// readCohort parses a tab-delimited manifest with a "path<TAB>label" header.
// Relative genome paths are resolved against the manifest's directory.
func readCohort(path string) ([]CohortEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cohort manifest: %w", err)
	}
	defer f.Close()
	return parseCohort(f, filepath.Dir(path))
}

func parseCohort(in io.Reader, dir string) ([]CohortEntry, error) {
	r := csv.NewReader(in)
	r.Comma = '\t'
	r.Comment = '#'
	r.LazyQuotes = true

	var entries []CohortEntry
	if err := gocsv.UnmarshalCSV(r, &entries); err != nil {
		return nil, fmt.Errorf("parse cohort manifest: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("cohort manifest lists no genomes")
	}
	for i := range entries {
		e := &entries[i]
		if e.Label != 0 && e.Label != 1 {
			return nil, fmt.Errorf("cohort manifest line %d: label must be 0 or 1, got %d", i+2, e.Label)
		}
		if !filepath.IsAbs(e.Path) {
			e.Path = filepath.Join(dir, e.Path)
		}
	}
	return entries, nil
}
