package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/M0-Anwar/diseases-detection/internal/pipeline"
)

// Prediction is one stored prediction row.
type Prediction struct {
	Sample             string
	TargetCondition    string
	Mode               string
	RiskScore          float64
	RiskCategory       string
	RelevantVariants   int64
	TotalVariants      int64
	RelevantPercentage float64
	Model              FileFingerprint
	PredictedAt        time.Time
}

// NewPrediction flattens a pipeline result for storage.
func NewPrediction(sample string, r *pipeline.Result, model FileFingerprint, at time.Time) Prediction {
	return Prediction{
		Sample:             sample,
		TargetCondition:    r.TargetCondition,
		Mode:               r.Mode.String(),
		RiskScore:          r.RiskScore,
		RiskCategory:       string(r.RiskCategory),
		RelevantVariants:   int64(r.RelevantVariantCount),
		TotalVariants:      int64(r.TotalVariants),
		RelevantPercentage: r.RelevantPercentage,
		Model:              model,
		PredictedAt:        at,
	}
}

type predictionKey struct {
	sample, target string
}

// WritePredictions batch-inserts predictions using the Appender API. A
// (sample, target_condition) pair holds one row: rows already stored for a
// pair are replaced, and within the batch the last entry wins.
func (s *Store) WritePredictions(preds []Prediction) error {
	if len(preds) == 0 {
		return nil
	}

	index := make(map[predictionKey]int, len(preds))
	deduped := make([]Prediction, 0, len(preds))
	for _, p := range preds {
		k := predictionKey{p.Sample, p.TargetCondition}
		if i, ok := index[k]; ok {
			deduped[i] = p
			continue
		}
		index[k] = len(deduped)
		deduped = append(deduped, p)
	}

	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	for _, p := range deduped {
		if _, err := conn.ExecContext(ctx,
			"DELETE FROM predictions WHERE sample=? AND target_condition=?",
			p.Sample, p.TargetCondition); err != nil {
			return fmt.Errorf("replace prediction: %w", err)
		}
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "predictions")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, p := range deduped {
		if err := appender.AppendRow(
			p.Sample, p.TargetCondition, p.Mode,
			p.RiskScore, p.RiskCategory,
			p.RelevantVariants, p.TotalVariants, p.RelevantPercentage,
			p.Model.Path, p.Model.Size, p.Model.ModTime.UTC(),
			p.PredictedAt.UTC(),
		); err != nil {
			return fmt.Errorf("append prediction: %w", err)
		}
	}
	return appender.Flush()
}

// ClearPredictions removes all stored predictions.
func (s *Store) ClearPredictions() error {
	_, err := s.db.Exec("DELETE FROM predictions")
	return err
}

const predictionColumns = `sample, target_condition, mode,
		risk_score, risk_category,
		relevant_variants, total_variants, relevant_percentage,
		model_path, model_size, model_mtime, predicted_at`

// LookupSample returns the stored predictions for a sample across all
// target conditions, ordered by condition.
func (s *Store) LookupSample(sample string) ([]Prediction, error) {
	rows, err := s.db.Query(`SELECT `+predictionColumns+`
		FROM predictions
		WHERE sample=?
		ORDER BY target_condition`, sample)
	if err != nil {
		return nil, fmt.Errorf("query sample: %w", err)
	}
	defer rows.Close()

	return scanPredictions(rows)
}

// TopRisk returns the n highest-risk predictions for a condition.
func (s *Store) TopRisk(target string, n int) ([]Prediction, error) {
	rows, err := s.db.Query(`SELECT `+predictionColumns+`
		FROM predictions
		WHERE target_condition=?
		ORDER BY risk_score DESC, sample
		LIMIT ?`, target, n)
	if err != nil {
		return nil, fmt.Errorf("query top risk: %w", err)
	}
	defer rows.Close()

	return scanPredictions(rows)
}

// CategoryCount summarizes the predictions of one risk category.
type CategoryCount struct {
	Category string
	Count    int64
	MeanRisk float64
}

// SummarizeCategories counts predictions per risk category for a condition,
// ordered from the lowest to the highest mean risk.
func (s *Store) SummarizeCategories(target string) ([]CategoryCount, error) {
	rows, err := s.db.Query(`SELECT risk_category, COUNT(*), AVG(risk_score)
		FROM predictions
		WHERE target_condition=?
		GROUP BY risk_category
		ORDER BY AVG(risk_score)`, target)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count, &c.MeanRisk); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

// scanPredictions scans rows into Prediction slices.
func scanPredictions(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]Prediction, error) {
	var out []Prediction
	for rows.Next() {
		var p Prediction
		if err := rows.Scan(
			&p.Sample, &p.TargetCondition, &p.Mode,
			&p.RiskScore, &p.RiskCategory,
			&p.RelevantVariants, &p.TotalVariants, &p.RelevantPercentage,
			&p.Model.Path, &p.Model.Size, &p.Model.ModTime, &p.PredictedAt,
		); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate predictions: %w", err)
	}
	return out, nil
}
