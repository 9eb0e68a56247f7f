package output

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/M0-Anwar/diseases-detection/internal/pipeline"
)

// BatchRow is the CSV form of one batch prediction.
type BatchRow struct {
	Sample             string  `csv:"sample"`
	TargetCondition    string  `csv:"target_condition"`
	Mode               string  `csv:"mode"`
	RiskScore          float64 `csv:"risk_score"`
	RiskCategory       string  `csv:"risk_category"`
	RelevantVariants   int     `csv:"relevant_variants"`
	TotalVariants      int     `csv:"total_variants"`
	RelevantPercentage float64 `csv:"relevant_percentage"`
	Error              string  `csv:"error"`
}

// NewBatchRow flattens a prediction outcome. r may be nil when predErr is set.
func NewBatchRow(sample string, r *pipeline.Result, predErr error) BatchRow {
	row := BatchRow{Sample: sample}
	if r != nil {
		row.TargetCondition = r.TargetCondition
		row.Mode = r.Mode.String()
		row.RiskScore = r.RiskScore
		row.RiskCategory = string(r.RiskCategory)
		row.RelevantVariants = r.RelevantVariantCount
		row.TotalVariants = r.TotalVariants
		row.RelevantPercentage = r.RelevantPercentage
	}
	if predErr != nil {
		row.Error = predErr.Error()
	}
	return row
}

// WriteCSV writes batch rows as comma-separated values with a header line.
func WriteCSV(w io.Writer, rows []BatchRow) error {
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write batch csv: %w", err)
	}
	return nil
}
