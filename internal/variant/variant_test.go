package variant

import (
	"math"
	"testing"

	"github.com/M0-Anwar/diseases-detection/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonical(t *testing.T) {
	assert.Len(t, Canonical, 20)
	assert.NotContains(t, Canonical, DiseaseTrait)

	seen := make(map[string]bool)
	for _, c := range Canonical {
		assert.False(t, seen[c], "duplicate canonical column %s", c)
		seen[c] = true
	}
}

func TestValidate_ListsAllMissing(t *testing.T) {
	f := table.New(1)
	require.NoError(t, f.Set(table.NewText(SNPs, []string{"rs1"}, nil)))
	require.NoError(t, f.Set(table.NewNumeric(PValue, []float64{0.01})))

	err := Validate(f)
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Len(t, se.Missing, len(Canonical)-2)
	assert.NotContains(t, se.Missing, SNPs)
	assert.Contains(t, se.Error(), EffectMidpoint)
}

func TestRequire(t *testing.T) {
	f := table.New(0)
	assert.NoError(t, Require(f))
	require.NoError(t, f.Set(table.NewNumeric(PValue, nil)))
	assert.NoError(t, Require(f, PValue))
	assert.Error(t, Require(f, PValue, SNPs))
}

func TestRecords(t *testing.T) {
	f := table.New(2)
	require.NoError(t, f.Set(table.NewText(SNPs, []string{"rs429358", "rs7412"}, nil)))
	require.NoError(t, f.Set(table.NewNumeric(EffectMidpoint, []float64{1.2, math.NaN()})))
	require.NoError(t, f.Set(table.NewNumeric(PValue, []float64{1e-20, 0.3})))

	recs := Records(f)
	require.Len(t, recs, 2)
	assert.Equal(t, "rs429358", recs[0].SNP)
	assert.Equal(t, 1.2, recs[0].Midpoint)
	assert.True(t, math.IsNaN(recs[1].Midpoint))
	assert.Equal(t, 0.3, recs[1].PValue)
	assert.True(t, math.IsNaN(recs[0].RiskAlleleFrequency))
	assert.Empty(t, recs[0].Gene)
}
