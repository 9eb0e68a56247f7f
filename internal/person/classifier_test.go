package person

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cohort() ([]Features, []int) {
	vectors := make([]Features, 40)
	labels := make([]int, 40)
	for i := range vectors {
		if i%2 == 1 {
			labels[i] = 1
			vectors[i] = Features{
				PRSScore:        10 + float64(i),
				NumDiseaseSNPs:  8,
				MaxEffect:       1.6,
				ConfidenceScore: 9,
				AvgPValue:       20,
			}
			continue
		}
		vectors[i] = Features{
			PRSScore:        0.1 * float64(i),
			NumDiseaseSNPs:  1,
			MaxEffect:       1.0,
			ConfidenceScore: 0.5,
			AvgPValue:       6,
		}
	}
	return vectors, labels
}

func TestFit(t *testing.T) {
	vectors, labels := cohort()
	c, err := Fit(vectors, labels, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, FeatureNames, c.Columns)
	assert.Equal(t, 32, c.Report.TrainRows)
	assert.Equal(t, 8, c.Report.TestRows)
	assert.Equal(t, 1.0, c.Report.Accuracy)
	assert.Len(t, c.Report.Importances, len(FeatureNames))

	high := c.ScoreFeatures(vectors[1])
	low := c.ScoreFeatures(vectors[0])
	assert.Greater(t, high, 0.5)
	assert.Less(t, low, 0.5)
}

func TestFit_InsufficientClassVariance(t *testing.T) {
	vectors, _ := cohort()
	for _, label := range []int{0, 1} {
		labels := make([]int, len(vectors))
		for i := range labels {
			labels[i] = label
		}
		_, err := Fit(vectors, labels, DefaultOptions())
		var ice *InsufficientClassVarianceError
		require.ErrorAs(t, err, &ice)
		assert.Equal(t, []int{label}, ice.Classes)
	}
}

func TestFit_Errors(t *testing.T) {
	vectors, labels := cohort()
	_, err := Fit(vectors, labels[:3], DefaultOptions())
	assert.Error(t, err)

	labels[0] = 2
	_, err = Fit(vectors, labels, DefaultOptions())
	assert.Error(t, err)
}

func TestScore_Reindexes(t *testing.T) {
	vectors, labels := cohort()
	c, err := Fit(vectors, labels, DefaultOptions())
	require.NoError(t, err)

	zero := c.ScoreFeatures(Features{})
	assert.Equal(t, zero, c.Score(map[string]float64{}))
	assert.Equal(t, zero, c.Score(map[string]float64{"polygenic_risk": 99}))
	assert.Equal(t, c.ScoreFeatures(vectors[3]), c.Score(vectors[3].Map()))
}
