package clean

import (
	"math"
	"strings"
	"testing"

	"github.com/M0-Anwar/diseases-detection/internal/table"
	"github.com/M0-Anwar/diseases-detection/internal/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawCatalogue = `DISEASE/TRAIT,REGION,CHR_ID,MAPPED_GENE,SNPS,CONTEXT,INTERGENIC,RISK_ALLELE_FREQUENCY,P_VALUE,P_VALUE_MLOG,CI_95,EFFECT_SIZE_RANGE,STRONGEST_SNP_RISK_ALLELE,SNP_ID
Type 2 Diabetes,10q25.2,10.0,TCF7L2,rs7903146,intron_variant,no,0.3,1e-20,19.7,[1.3-1.5],[1.3-1.5] increase,rs7903146-T,7903146
 ALZHEIMER DISEASE ,19q13.32,19,APOE,rs429358,missense_variant,yes,,2e-300,299.7,,[3.1-3.9] increase,rs429358-C,429358
,1p13.3,1,,,intergenic_variant,1,1.4,1.5,,,,,
Type 2 diabetes,,X,KCNJ11,rs5219,missense_variant,0,0.35,abc,5.2,[1.1-1.2],[0.8-0.95] decrease,rs5219-T,5219
`

func readRaw(t *testing.T) *table.Frame {
	t.Helper()
	f, err := table.Read(strings.NewReader(rawCatalogue), ',')
	require.NoError(t, err)
	return f
}

func cleanRaw(t *testing.T) *table.Frame {
	t.Helper()
	out, err := New().Clean(readRaw(t))
	require.NoError(t, err)
	return out
}

func TestClean_NoNullsRemain(t *testing.T) {
	out := cleanRaw(t)
	for _, col := range out.Columns() {
		assert.Zero(t, col.NullCount(), "column %s", col.Name)
	}
	assert.NoError(t, variant.Validate(out))
}

func TestClean_Idempotent(t *testing.T) {
	once := cleanRaw(t)
	twice, err := New().Clean(once)
	require.NoError(t, err)

	require.Equal(t, once.Names(), twice.Names())
	for _, name := range once.Names() {
		assert.Equal(t, once.Column(name), twice.Column(name), "column %s", name)
	}
}

func TestIsClean(t *testing.T) {
	assert.False(t, IsClean(readRaw(t)))

	out := cleanRaw(t)
	assert.True(t, IsClean(out))

	out.Column(variant.PValue).Num[0] = math.NaN()
	assert.False(t, IsClean(out))
}

func TestClean_DoesNotModifyInput(t *testing.T) {
	in := readRaw(t)
	_, err := New().Clean(in)
	require.NoError(t, err)
	assert.True(t, in.Has(variant.LegacyDiseaseTrait))
	assert.Equal(t, table.Text, in.Column(variant.PValue).Kind)
}

func TestClean_Fills(t *testing.T) {
	out := cleanRaw(t)

	assert.Equal(t,
		[]string{"type 2 diabetes", "alzheimer disease", UnspecifiedTrait, "type 2 diabetes"},
		out.Column(variant.DiseaseTrait).Str)
	assert.Equal(t, "gen_snp_2", out.Column(variant.SNPs).Str[2])
	// Region counts tie, so the smallest value wins.
	assert.Equal(t, "10q25.2", out.Column(variant.Region).Str[3])
	assert.Equal(t, 0.35, out.Column(variant.RiskAlleleFrequency).Num[1])
	assert.Equal(t, 0.0, out.Column(variant.PValueMLog).Num[2])
	assert.Equal(t, DefaultCI95, out.Column(variant.CI95).Str[1])
	assert.Equal(t, []float64{1, 1, 0, 1}, out.Column(variant.HasKnownGene).Num)
	assert.Equal(t, []string{"10", "19", "1", "X"}, out.Column(variant.ChrID).Str)
}

func TestClean_ClampsToUnitInterval(t *testing.T) {
	out := cleanRaw(t)

	p := out.Column(variant.PValue).Num
	assert.Equal(t, 1.0, p[2], "p=1.5 clipped to 1.0")
	assert.Equal(t, 1e-20, p[3], "unparseable p takes the column median")
	for _, name := range []string{variant.PValue, variant.RiskAlleleFrequency} {
		for _, v := range out.Column(name).Num {
			assert.True(t, v >= 0 && v <= 1, "%s=%v", name, v)
		}
	}
}

func TestClean_Effects(t *testing.T) {
	out := cleanRaw(t)

	lower := out.Column(variant.EffectLower).Num
	upper := out.Column(variant.EffectUpper).Num
	mid := out.Column(variant.EffectMidpoint).Num
	for i := range mid {
		assert.InDelta(t, (lower[i]+upper[i])/2, mid[i], 1e-12)
	}
	assert.InDelta(t, 1.4, mid[0], 1e-12)
	assert.InDelta(t, 1.0, mid[2], 1e-12)
	assert.InDelta(t, 0.875, mid[3], 1e-12)
	assert.Equal(t, []float64{1, 1, 0, -1}, out.Column(variant.EffectDirectionEncoded).Num)

	for _, name := range droppedColumns {
		assert.False(t, out.Has(name), name)
	}
}

func TestClean_Intergenic(t *testing.T) {
	out := cleanRaw(t)
	assert.Equal(t, []string{"N", "Y", "Y", "N"}, out.Column(variant.Intergenic).Str)
	assert.Equal(t, []float64{0, 1, 1, 0}, out.Column(variant.IsIntergenic).Num)

	f := table.New(2)
	require.NoError(t, f.Set(table.NewText(variant.SNPs, []string{"rs1", "rs2"}, nil)))
	require.NoError(t, f.Set(table.NewNumeric(variant.PValue, []float64{0.1, 0.2})))
	require.NoError(t, f.Set(table.NewNumeric(variant.EffectMidpoint, []float64{1, 1})))
	require.NoError(t, f.Set(table.NewText(variant.Intergenic, []string{"maybe", "TRUE"}, nil)))
	out, err := New().Clean(f)
	require.NoError(t, err)
	assert.Equal(t, []string{"maybe", "Y"}, out.Column(variant.Intergenic).Str)
}

func TestClean_Significance(t *testing.T) {
	out := cleanRaw(t)
	assert.Equal(t, []float64{1, 1, 0, 1}, out.Column(variant.IsSignificant005).Num)
	assert.Equal(t, []float64{1, 1, 0, 1}, out.Column(variant.IsSignificant5e8).Num)
	assert.Equal(t,
		[]string{"ultra_sig", "ultra_sig", "not_sig", "ultra_sig"},
		out.Column(variant.PValueCategory).Str)
}

func TestClean_MissingRequired(t *testing.T) {
	f := table.New(1)
	require.NoError(t, f.Set(table.NewNumeric(variant.PValue, []float64{0.1})))

	_, err := New().Clean(f)
	var se *variant.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []string{variant.SNPs, variant.EffectSizeRange}, se.Missing)
}

func TestClean_MissingVersusMalformedNumbers(t *testing.T) {
	f, err := table.Read(strings.NewReader(`SNPS,P_VALUE,P_VALUE_MLOG,EFFECT_SIZE_RANGE
rs1,0.01,2,[1.1-1.2] increase
rs2,,,[1.1-1.2] increase
rs3,xyz,bad,[1.1-1.2] increase
rs4,0.03,4,[1.1-1.2] increase
`), ',')
	require.NoError(t, err)

	out, err := New().Clean(f)
	require.NoError(t, err)
	// Missing cells take the defaults, malformed ones the column median.
	assert.Equal(t, []float64{0.01, 1.0, 0.03, 0.03}, out.Column(variant.PValue).Num)
	assert.Equal(t, []float64{2, 0, 2, 4}, out.Column(variant.PValueMLog).Num)
	assert.Equal(t, []float64{1, 0, 1, 1}, out.Column(variant.IsSignificant005).Num)
	assert.Equal(t, "low_sig", out.Column(variant.PValueCategory).Str[2])
}

func TestClean_ReconcilesMissingBounds(t *testing.T) {
	f := table.New(3)
	require.NoError(t, f.Set(table.NewText(variant.SNPs, []string{"rs1", "rs2", "rs3"}, nil)))
	require.NoError(t, f.Set(table.NewNumeric(variant.PValue, []float64{0.1, 0.2, 0.3})))
	require.NoError(t, f.Set(table.NewNumeric(variant.EffectLower, []float64{1, math.NaN(), math.NaN()})))
	require.NoError(t, f.Set(table.NewNumeric(variant.EffectUpper, []float64{3, 2, math.NaN()})))
	require.NoError(t, f.Set(table.NewNumeric(variant.EffectMidpoint, []float64{math.NaN(), 1.5, math.NaN()})))

	out, err := New().Clean(f)
	require.NoError(t, err)
	lower := out.Column(variant.EffectLower).Num
	upper := out.Column(variant.EffectUpper).Num
	mid := out.Column(variant.EffectMidpoint).Num
	assert.Equal(t, 2.0, mid[0])
	assert.Equal(t, 1.0, lower[1])
	for i := range mid {
		assert.InDelta(t, (lower[i]+upper[i])/2, mid[i], 1e-12)
	}
	assert.Equal(t, []float64{0, 0, 0}, out.Column(variant.EffectDirectionEncoded).Num)
}

func TestPValueCategory(t *testing.T) {
	tests := []struct {
		p    float64
		want string
	}{
		{0, "ultra_sig"},
		{1e-10, "ultra_sig"},
		{5e-9, "very_sig"},
		{1e-8, "very_sig"},
		{1e-6, "high_sig"},
		{1e-4, "moderate_sig"},
		{0.01, "low_sig"},
		{0.05, "low_sig"},
		{0.5, "not_sig"},
		{1, "not_sig"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PValueCategory(tt.p), "p=%g", tt.p)
	}
}

func TestParseEffectRange(t *testing.T) {
	lo, hi := ParseEffectRange("[1.05 - 1.20] unit increase")
	assert.Equal(t, 1.05, lo)
	assert.Equal(t, 1.2, hi)

	lo, hi = ParseEffectRange("NR")
	assert.True(t, math.IsNaN(lo))
	assert.True(t, math.IsNaN(hi))

	assert.Equal(t, 1, EffectDirection("[1-2] Increase"))
	assert.Equal(t, -1, EffectDirection("[0.5-0.9] unit DECREASE"))
	assert.Equal(t, 0, EffectDirection("[0.99-1.01] unit neutral"))
}

func TestNormalizeTrait(t *testing.T) {
	assert.Equal(t, "type 2 diabetes", NormalizeTrait("  Type 2 Diabetes "))
	assert.Equal(t, UnspecifiedTrait, NormalizeTrait("None"))
	assert.Equal(t, UnspecifiedTrait, NormalizeTrait("NULL"))
}
