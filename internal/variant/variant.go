// Package variant defines the canonical GWAS association columns and a typed
// per-row view over a cleaned table.
package variant

import (
	"fmt"
	"math"
	"strings"

	"github.com/M0-Anwar/diseases-detection/internal/table"
)

// Canonical column names.
const (
	Region                 = "REGION"
	ChrID                  = "CHR_ID"
	MappedGene             = "MAPPED_GENE"
	SNPs                   = "SNPS"
	Context                = "CONTEXT"
	Intergenic             = "INTERGENIC"
	RiskAlleleFrequency    = "RISK_ALLELE_FREQUENCY"
	PValue                 = "P_VALUE"
	PValueMLog             = "P_VALUE_MLOG"
	CI95                   = "CI_95"
	EffectLower            = "EFFECT_LOWER"
	EffectUpper            = "EFFECT_UPPER"
	EffectMidpoint         = "EFFECT_MIDPOINT"
	EffectDirectionEncoded = "EFFECT_DIRECTION_ENCODED"
	IsSignificant005       = "IS_SIGNIFICANT_0_05"
	IsSignificant001       = "IS_SIGNIFICANT_0_01"
	IsSignificant5e8       = "IS_SIGNIFICANT_5e_8"
	PValueCategory         = "P_VALUE_CATEGORY"
	IsIntergenic           = "IS_INTERGENIC"
	HasKnownGene           = "HAS_KNOWN_GENE"
)

// Catalogue-only columns.
const (
	DiseaseTrait       = "DISEASE_TRAIT"
	LegacyDiseaseTrait = "DISEASE/TRAIT"
	EffectSizeRange    = "EFFECT_SIZE_RANGE"
)

// Canonical lists the columns every genome and cleaned catalogue must carry,
// in their conventional order.
var Canonical = []string{
	Region, ChrID, MappedGene, SNPs, Context, Intergenic,
	RiskAlleleFrequency, PValue, PValueMLog, CI95,
	EffectLower, EffectUpper, EffectMidpoint, EffectDirectionEncoded,
	IsSignificant005, IsSignificant001, IsSignificant5e8, PValueCategory,
	IsIntergenic, HasKnownGene,
}

// SchemaError reports required columns that are absent from a table.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: missing required columns: %s", strings.Join(e.Missing, ", "))
}

// Require returns a *SchemaError naming every listed column the frame lacks.
func Require(f *table.Frame, cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !f.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

// Validate checks that the frame carries the full canonical schema.
func Validate(f *table.Frame) error {
	return Require(f, Canonical...)
}

// Record is the subset of a variant row used for person-level aggregation
// and explanations. Missing numeric values are NaN.
type Record struct {
	SNP                 string
	Gene                string
	Midpoint            float64
	PValue              float64
	RiskAlleleFrequency float64
}

// Records extracts one Record per row. Absent or text-typed numeric columns
// yield NaN.
func Records(f *table.Frame) []Record {
	snps := f.Column(SNPs)
	genes := f.Column(MappedGene)
	mid := numeric(f, EffectMidpoint)
	p := numeric(f, PValue)
	raf := numeric(f, RiskAlleleFrequency)

	out := make([]Record, f.Len())
	for i := range out {
		r := Record{
			Midpoint:            at(mid, i),
			PValue:              at(p, i),
			RiskAlleleFrequency: at(raf, i),
		}
		if snps != nil {
			r.SNP = snps.String(i)
		}
		if genes != nil {
			r.Gene = genes.String(i)
		}
		out[i] = r
	}
	return out
}

func numeric(f *table.Frame, name string) []float64 {
	c := f.Column(name)
	if c == nil || c.Kind != table.Numeric {
		return nil
	}
	return c.Num
}

func at(x []float64, i int) float64 {
	if x == nil {
		return math.NaN()
	}
	return x[i]
}
