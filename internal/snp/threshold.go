package snp

import "fmt"

// Threshold decides which scored variants are relevant.
type Threshold struct {
	Value     float64
	Inclusive bool // Relevant when score >= Value rather than > Value.
}

// Relevance thresholds used when building training data for the person
// classifier and when predicting. They differ only in inclusiveness.
var (
	TrainingThreshold   = Threshold{Value: 0.5, Inclusive: true}
	PredictionThreshold = Threshold{Value: 0.5, Inclusive: false}
)

// Relevant reports whether score clears the threshold.
func (t Threshold) Relevant(score float64) bool {
	if t.Inclusive {
		return score >= t.Value
	}
	return score > t.Value
}

// Filter returns the indices of relevant scores in order.
func (t Threshold) Filter(scores []float64) []int {
	var idx []int
	for i, s := range scores {
		if t.Relevant(s) {
			idx = append(idx, i)
		}
	}
	return idx
}

func (t Threshold) String() string {
	if t.Inclusive {
		return fmt.Sprintf(">= %g", t.Value)
	}
	return fmt.Sprintf("> %g", t.Value)
}
