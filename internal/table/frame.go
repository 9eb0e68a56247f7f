// Package table provides a small column-typed in-memory table used to carry
// GWAS association catalogues and individual genomes through the pipeline.
package table

import (
	"fmt"
	"math"
	"strconv"
)

// Kind is the storage type of a column.
type Kind int

const (
	// Numeric columns hold float64 values; NaN marks a missing value.
	Numeric Kind = iota
	// Text columns hold strings with an explicit null mask.
	Text
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "text"
}

// Column is a single named, typed column.
type Column struct {
	Name string
	Kind Kind
	Num  []float64 // Numeric values (NaN = null)
	Str  []string  // Text values
	Null []bool    // Text null mask
}

// NewNumeric creates a numeric column. The slice is not copied.
func NewNumeric(name string, values []float64) *Column {
	return &Column{Name: name, Kind: Numeric, Num: values}
}

// NewText creates a text column. A nil null mask means no nulls.
func NewText(name string, values []string, null []bool) *Column {
	if null == nil {
		null = make([]bool, len(values))
	}
	return &Column{Name: name, Kind: Text, Str: values, Null: null}
}

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Num)
	}
	return len(c.Str)
}

// IsNull reports whether row i is missing.
func (c *Column) IsNull(i int) bool {
	if c.Kind == Numeric {
		return math.IsNaN(c.Num[i])
	}
	return c.Null[i]
}

// NullCount returns the number of missing values.
func (c *Column) NullCount() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			n++
		}
	}
	return n
}

// String returns the textual form of row i ("" when null).
func (c *Column) String(i int) string {
	if c.IsNull(i) {
		return ""
	}
	if c.Kind == Text {
		return c.Str[i]
	}
	return strconv.FormatFloat(c.Num[i], 'g', -1, 64)
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == Numeric {
		out.Num = append([]float64(nil), c.Num...)
	} else {
		out.Str = append([]string(nil), c.Str...)
		out.Null = append([]bool(nil), c.Null...)
	}
	return out
}

// Take returns a new column holding the given rows in the given order.
func (c *Column) Take(rows []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == Numeric {
		out.Num = make([]float64, len(rows))
		for j, i := range rows {
			out.Num[j] = c.Num[i]
		}
		return out
	}
	out.Str = make([]string, len(rows))
	out.Null = make([]bool, len(rows))
	for j, i := range rows {
		out.Str[j] = c.Str[i]
		out.Null[j] = c.Null[i]
	}
	return out
}

// AsText converts a numeric column into a text column in place.
// Null values stay null.
func (c *Column) AsText() {
	if c.Kind == Text {
		return
	}
	c.Str = make([]string, len(c.Num))
	c.Null = make([]bool, len(c.Num))
	for i, v := range c.Num {
		if math.IsNaN(v) {
			c.Null[i] = true
			continue
		}
		c.Str[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	c.Num = nil
	c.Kind = Text
}

// AsNumeric converts a text column into a numeric column in place. Values
// that do not parse as numbers become null. It returns the number of
// non-null values that failed to parse.
func (c *Column) AsNumeric() int {
	if c.Kind == Numeric {
		return 0
	}
	bad := 0
	c.Num = make([]float64, len(c.Str))
	for i, s := range c.Str {
		if c.Null[i] {
			c.Num[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			c.Num[i] = math.NaN()
			bad++
			continue
		}
		c.Num[i] = v
	}
	c.Str = nil
	c.Null = nil
	c.Kind = Numeric
	return bad
}

// Frame is an ordered set of equally long columns.
type Frame struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// New creates an empty frame with the given number of rows.
func New(rows int) *Frame {
	return &Frame{index: make(map[string]int), rows: rows}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return f.rows
}

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in order.
func (f *Frame) Columns() []*Column {
	return f.cols
}

// Has reports whether a column exists.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the named column or nil.
func (f *Frame) Column(name string) *Column {
	i, ok := f.index[name]
	if !ok {
		return nil
	}
	return f.cols[i]
}

// Set adds a column, replacing an existing column of the same name in place.
func (f *Frame) Set(c *Column) error {
	if c.Len() != f.rows {
		return fmt.Errorf("column %s has %d rows, frame has %d", c.Name, c.Len(), f.rows)
	}
	if i, ok := f.index[c.Name]; ok {
		f.cols[i] = c
		return nil
	}
	f.index[c.Name] = len(f.cols)
	f.cols = append(f.cols, c)
	return nil
}

// Drop removes a column. It reports whether the column existed.
func (f *Frame) Drop(name string) bool {
	i, ok := f.index[name]
	if !ok {
		return false
	}
	f.cols = append(f.cols[:i], f.cols[i+1:]...)
	f.reindex()
	return true
}

// Rename renames a column, keeping its position. Renaming onto an existing
// name replaces that column.
func (f *Frame) Rename(from, to string) bool {
	i, ok := f.index[from]
	if !ok {
		return false
	}
	if j, exists := f.index[to]; exists && j != i {
		f.cols = append(f.cols[:j], f.cols[j+1:]...)
		f.reindex()
		i = f.index[from]
	}
	f.cols[i].Name = to
	f.reindex()
	return true
}

func (f *Frame) reindex() {
	f.index = make(map[string]int, len(f.cols))
	for i, c := range f.cols {
		f.index[c.Name] = i
	}
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := New(f.rows)
	for _, c := range f.cols {
		out.index[c.Name] = len(out.cols)
		out.cols = append(out.cols, c.Clone())
	}
	return out
}

// Take returns a new frame holding the given rows.
func (f *Frame) Take(rows []int) *Frame {
	out := New(len(rows))
	for _, c := range f.cols {
		out.index[c.Name] = len(out.cols)
		out.cols = append(out.cols, c.Take(rows))
	}
	return out
}
