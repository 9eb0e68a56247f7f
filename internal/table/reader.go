package table

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/csimplestring/go-csv/detector"
)

// nullTokens are cell values read as missing.
var nullTokens = map[string]bool{
	"":      true,
	"#N/A":  true,
	"<NA>":  true,
	"N/A":   true,
	"n/a":   true,
	"NA":    true,
	"NULL":  true,
	"null":  true,
	"NaN":   true,
	"nan":   true,
	"-NaN":  true,
	"-nan":  true,
	"None":  true,
}

// ParseError represents an error while reading a delimited file, with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("table parse error at line %d: %s", e.Line, e.Message)
}

// ReadFile reads a delimited file into a frame. Gzipped files are detected by
// their magic bytes. The delimiter follows the extension (.csv, .tsv);
// anything else is sniffed from the first bytes of the file.
func ReadFile(path string) (*Frame, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open table: %w", err)
		}
		defer file.Close()
		r = file
	}

	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		defer gz.Close()
		br = bufio.NewReader(gz)
	}

	delim, ok := delimiterForPath(path)
	if !ok {
		delim = sniffDelimiter(br)
	}
	return Read(br, delim)
}

func delimiterForPath(path string) (rune, bool) {
	lower := strings.TrimSuffix(strings.ToLower(path), ".gz")
	switch filepath.Ext(lower) {
	case ".csv":
		return ',', true
	case ".tsv", ".tab":
		return '\t', true
	}
	return 0, false
}

// sniffDelimiter detects the delimiter from the buffered head of the input,
// falling back to a tab when the header contains one and a comma otherwise.
func sniffDelimiter(br *bufio.Reader) rune {
	head, _ := br.Peek(4096)
	if len(head) == 0 {
		return ','
	}
	d := detector.New()
	if found := d.DetectDelimiter(bytes.NewReader(head), '"'); len(found) > 0 && found[0] != "" {
		return rune(found[0][0])
	}
	line := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		line = head[:i]
	}
	if bytes.IndexByte(line, '\t') >= 0 {
		return '\t'
	}
	return ','
}

// Read parses delimited text with a header row into a frame. A column is
// numeric when every non-null cell parses as a float; otherwise it is text.
func Read(r io.Reader, delim rune) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Line: 1, Message: "no header line found"}
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	cells := make([][]string, len(header))
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line++
		if len(rec) == 1 && rec[0] == "" {
			continue
		}
		if len(rec) > len(header) {
			return nil, &ParseError{
				Line:    line,
				Message: fmt.Sprintf("expected at most %d columns, found %d", len(header), len(rec)),
			}
		}
		for i := range header {
			v := ""
			if i < len(rec) {
				v = rec[i]
			}
			cells[i] = append(cells[i], v)
		}
	}

	rows := 0
	if len(cells) > 0 {
		rows = len(cells[0])
	}
	f := New(rows)
	for i, name := range header {
		if f.Has(name) {
			return nil, &ParseError{Line: 1, Message: fmt.Sprintf("duplicate column %q", name)}
		}
		if err := f.Set(inferColumn(name, cells[i])); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func inferColumn(name string, raw []string) *Column {
	nums := make([]float64, len(raw))
	null := make([]bool, len(raw))
	numeric := true
	for i, s := range raw {
		s = strings.TrimSpace(s)
		raw[i] = s
		if nullTokens[s] {
			null[i] = true
			continue
		}
		if !numeric {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			numeric = false
			continue
		}
		nums[i] = v
	}
	if numeric {
		for i := range nums {
			if null[i] {
				nums[i] = math.NaN()
			}
		}
		return NewNumeric(name, nums)
	}
	for i := range raw {
		if null[i] {
			raw[i] = ""
		}
	}
	return NewText(name, raw, null)
}
