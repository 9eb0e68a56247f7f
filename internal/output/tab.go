// Package output provides prediction and model report formatters.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/M0-Anwar/diseases-detection/internal/pipeline"
)

// TabWriter writes predictions in tab-delimited format, one genome per line.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#Sample",
			"Target_condition",
			"Mode",
			"Risk_score",
			"Risk_category",
			"Relevant_variants",
			"Total_variants",
			"Relevant_percentage",
			"Error",
		},
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single prediction. A failed prediction is written with
// placeholders and its error message.
func (tw *TabWriter) Write(sample string, r *pipeline.Result, predErr error) error {
	values := []string{sample, "-", "-", "-", "-", "-", "-", "-", "-"}
	if r != nil {
		values[1] = r.TargetCondition
		values[2] = r.Mode.String()
		values[3] = strconv.FormatFloat(r.RiskScore, 'f', 4, 64)
		values[4] = string(r.RiskCategory)
		values[5] = strconv.Itoa(r.RelevantVariantCount)
		values[6] = strconv.Itoa(r.TotalVariants)
		values[7] = fmt.Sprintf("%.1f", r.RelevantPercentage)
	}
	if predErr != nil {
		// Keep the row on one line.
		values[8] = strings.ReplaceAll(predErr.Error(), "\n", " ")
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}
