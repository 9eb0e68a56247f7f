package snp

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/M0-Anwar/diseases-detection/internal/clean"
	"github.com/M0-Anwar/diseases-detection/internal/table"
	"github.com/M0-Anwar/diseases-detection/internal/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findTestFile(t *testing.T, name string) string {
	t.Helper()
	paths := []string{
		filepath.Join("testdata", name),
		filepath.Join("..", "..", "testdata", name),
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	t.Fatalf("Test file not found: %s", name)
	return ""
}

func loadCleaned(t *testing.T, name string) *table.Frame {
	t.Helper()
	raw, err := table.ReadFile(findTestFile(t, name))
	require.NoError(t, err)
	f, err := clean.New().Clean(raw)
	require.NoError(t, err)
	return f
}

func fitT2D(t *testing.T) *Classifier {
	t.Helper()
	c, err := Fit(loadCleaned(t, "raw_catalogue.csv"), "Type 2 Diabetes", DefaultOptions())
	require.NoError(t, err)
	return c
}

func mean(x []float64) float64 {
	s := 0.0
	for _, v := range x {
		s += v
	}
	return s / float64(len(x))
}

func TestFit_Report(t *testing.T) {
	catalogue := loadCleaned(t, "raw_catalogue.csv")
	c, err := Fit(catalogue, "Type 2 Diabetes", DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "type 2 diabetes", c.Target)
	assert.Equal(t, 40, c.Report.Positives)
	assert.Equal(t, 160, c.Report.Negatives)
	assert.Equal(t, 160, c.Report.TrainRows)
	assert.Equal(t, 40, c.Report.TestRows)
	assert.GreaterOrEqual(t, c.Report.Accuracy, 0.85)
	assert.GreaterOrEqual(t, c.Report.ROCAUC, 0.9)

	var want []string
	for _, n := range catalogue.Names() {
		if n != variant.DiseaseTrait {
			want = append(want, n)
		}
	}
	assert.Equal(t, want, c.FeatureNames())
	assert.Len(t, c.Report.Importances, len(want))
}

func TestScore_SeparatesGenomes(t *testing.T) {
	c := fitT2D(t)

	high, _, err := c.Score(loadCleaned(t, "genome_high.tsv"), QueryMedians)
	require.NoError(t, err)
	low, _, err := c.Score(loadCleaned(t, "genome_low.tsv"), QueryMedians)
	require.NoError(t, err)

	require.Len(t, high, 12)
	require.Len(t, low, 12)
	assert.Greater(t, mean(high), 0.5)
	assert.Less(t, mean(low), 0.5)
}

func TestScore_PreservesRowOrder(t *testing.T) {
	c := fitT2D(t)
	genome := loadCleaned(t, "genome_high.tsv")

	all, _, err := c.Score(genome, TrainingMedians)
	require.NoError(t, err)
	for i := 0; i < genome.Len(); i++ {
		one, _, err := c.Score(genome.Take([]int{i}), TrainingMedians)
		require.NoError(t, err)
		assert.Equal(t, all[i], one[0])
	}
}

func TestScore_Schema(t *testing.T) {
	c := fitT2D(t)
	genome := loadCleaned(t, "genome_high.tsv")

	missing := genome.Clone()
	missing.Drop(variant.EffectMidpoint)
	_, _, err := c.Score(missing, QueryMedians)
	var se *variant.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []string{variant.EffectMidpoint}, se.Missing)

	extra := genome.Clone()
	require.NoError(t, extra.Set(table.NewNumeric("POLYPHEN", make([]float64, extra.Len()))))
	snps := extra.Column(variant.SNPs)
	snps.Str[0] = "rs_never_seen"
	snps.Str[1] = "rs_also_new"

	scores, warnings, err := c.Score(extra, QueryMedians)
	require.NoError(t, err)
	assert.Len(t, scores, extra.Len())
	require.Len(t, warnings, 2)
	assert.Equal(t, "POLYPHEN", warnings[0].Column)
	assert.Empty(t, warnings[0].Category)
	assert.Equal(t, variant.SNPs, warnings[1].Column)
	assert.Equal(t, "rs_never_seen", warnings[1].Category)
	assert.Equal(t, 2, warnings[1].Count)
}

func TestScore_MalformedNumeric(t *testing.T) {
	c := fitT2D(t)
	genome := loadCleaned(t, "genome_high.tsv")
	p := genome.Column(variant.PValue)
	p.AsText()
	p.Str[3] = "not-a-number"

	_, _, err := c.Score(genome, QueryMedians)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestEncode_Imputation(t *testing.T) {
	c := fitT2D(t)
	genome := loadCleaned(t, "genome_high.tsv").Take([]int{0, 1})
	raf := genome.Column(variant.RiskAlleleFrequency)
	raf.Num[0] = 0.9
	raf.Num[1] = math.NaN()

	j := -1
	for i, name := range c.FeatureNames() {
		if name == variant.RiskAlleleFrequency {
			j = i
		}
	}
	require.GreaterOrEqual(t, j, 0)

	x, _, err := c.Encode(genome, QueryMedians)
	require.NoError(t, err)
	assert.Equal(t, 0.9, x[1][j])

	x, _, err = c.Encode(genome, TrainingMedians)
	require.NoError(t, err)
	assert.Equal(t, c.Features[j].Median, x[1][j])
	assert.NotEqual(t, 0.9, x[1][j])
}

func TestFit_AbsentTarget(t *testing.T) {
	c, err := Fit(loadCleaned(t, "raw_catalogue.csv"), "scurvy", DefaultOptions())
	require.NoError(t, err)
	assert.Zero(t, c.Report.Positives)
	assert.True(t, math.IsNaN(c.Report.ROCAUC))

	scores, _, err := c.Score(loadCleaned(t, "genome_high.tsv"), QueryMedians)
	require.NoError(t, err)
	for _, s := range scores {
		assert.Less(t, s, 0.5)
	}
}

func TestFit_RequiresTrait(t *testing.T) {
	f := loadCleaned(t, "genome_low.tsv")
	_, err := Fit(f, "asthma", DefaultOptions())
	var se *variant.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []string{variant.DiseaseTrait}, se.Missing)
}

func TestFeature_Code(t *testing.T) {
	f := Feature{Kind: table.Text, Categories: []string{"APOE", "TCF7L2"}}
	code, ok := f.Code("TCF7L2")
	assert.True(t, ok)
	assert.Equal(t, 1, code)
	code, ok = f.Code("BRCA1")
	assert.False(t, ok)
	assert.Equal(t, -1, code)
}

func TestParseImputation(t *testing.T) {
	m, err := ParseImputation("training")
	require.NoError(t, err)
	assert.Equal(t, TrainingMedians, m)
	m, err = ParseImputation("")
	require.NoError(t, err)
	assert.Equal(t, QueryMedians, m)
	_, err = ParseImputation("mean")
	assert.Error(t, err)
}
