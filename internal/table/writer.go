package table

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Write writes the frame as delimited text with a header row. Null cells are
// written empty.
func Write(w io.Writer, f *Frame, delim rune) error {
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)
	cw.Comma = delim

	if err := cw.Write(f.Names()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	cols := f.Columns()
	rec := make([]string, len(cols))
	for i := 0; i < f.Len(); i++ {
		for j, c := range cols {
			rec[j] = c.String(i)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush table: %w", err)
	}
	return bw.Flush()
}

// WriteFile writes the frame to path, choosing the delimiter from the
// extension (comma unless .tsv or .tab). "-" writes to stdout.
func WriteFile(path string, f *Frame) error {
	delim, ok := delimiterForPath(path)
	if !ok {
		delim = ','
	}
	if path == "-" {
		return Write(os.Stdout, f, delim)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(out, f, delim); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
