// Package person aggregates a person's relevant variants into a fixed
// feature vector and classifies people by disease risk.
package person

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/M0-Anwar/diseases-detection/internal/variant"
)

// Features is the person-level feature vector. All fields are zero when no
// variant is relevant.
type Features struct {
	PRSScore         float64 `json:"prs_score" csv:"prs_score"`
	WeightedPRS      float64 `json:"weighted_prs" csv:"weighted_prs"`
	NumDiseaseSNPs   float64 `json:"num_disease_snps" csv:"num_disease_snps"`
	NumRareSNPs      float64 `json:"num_rare_snps" csv:"num_rare_snps"`
	AvgEffect        float64 `json:"avg_effect" csv:"avg_effect"`
	MaxEffect        float64 `json:"max_effect" csv:"max_effect"`
	EffectStd        float64 `json:"effect_std" csv:"effect_std"`
	AvgPValue        float64 `json:"avg_p_value" csv:"avg_p_value"`
	MinPValue        float64 `json:"min_p_value" csv:"min_p_value"`
	ConfidenceScore  float64 `json:"confidence_score" csv:"confidence_score"`
	AvgRiskFrequency float64 `json:"avg_risk_frequency" csv:"avg_risk_frequency"`
}

// FeatureNames lists the feature vector columns in their canonical order.
var FeatureNames = []string{
	"prs_score",
	"weighted_prs",
	"num_disease_snps",
	"num_rare_snps",
	"avg_effect",
	"max_effect",
	"effect_std",
	"avg_p_value",
	"min_p_value",
	"confidence_score",
	"avg_risk_frequency",
}

// Values returns the features in FeatureNames order.
func (f Features) Values() []float64 {
	return []float64{
		f.PRSScore,
		f.WeightedPRS,
		f.NumDiseaseSNPs,
		f.NumRareSNPs,
		f.AvgEffect,
		f.MaxEffect,
		f.EffectStd,
		f.AvgPValue,
		f.MinPValue,
		f.ConfidenceScore,
		f.AvgRiskFrequency,
	}
}

// Map returns the features keyed by name.
func (f Features) Map() map[string]float64 {
	vals := f.Values()
	m := make(map[string]float64, len(vals))
	for i, name := range FeatureNames {
		m[name] = vals[i]
	}
	return m
}

// RareFrequency is the risk allele frequency below which a variant is rare.
const RareFrequency = 0.01

// pEpsilon keeps -log10(p) finite for p == 0.
const pEpsilon = 1e-10

// Significance returns -log10(p + 1e-10).
func Significance(p float64) float64 {
	return -math.Log10(p + pEpsilon)
}

// Aggregate summarizes the relevant variants of one person. scores holds the
// variant classifier probability of each row. Effect statistics use only
// rows with an effect midpoint; p-value statistics only rows with a p-value.
func Aggregate(rows []variant.Record, scores []float64) Features {
	if len(rows) == 0 {
		return Features{}
	}

	var effects, sig, freqs []float64
	var weighted, confidence float64
	rare := 0
	for i, r := range rows {
		hasEffect := !math.IsNaN(r.Midpoint)
		hasP := !math.IsNaN(r.PValue)
		if hasEffect {
			effects = append(effects, r.Midpoint)
			if i < len(scores) {
				confidence += r.Midpoint * scores[i]
			}
		}
		if hasP {
			s := Significance(r.PValue)
			sig = append(sig, s)
			if hasEffect {
				weighted += r.Midpoint * s
			}
		}
		if !math.IsNaN(r.RiskAlleleFrequency) {
			freqs = append(freqs, r.RiskAlleleFrequency)
			if r.RiskAlleleFrequency < RareFrequency {
				rare++
			}
		}
	}

	f := Features{
		PRSScore:         orZero(stats.Sum(effects)),
		WeightedPRS:      weighted,
		NumDiseaseSNPs:   float64(len(rows)),
		NumRareSNPs:      float64(rare),
		AvgEffect:        orZero(stats.Mean(effects)),
		MaxEffect:        orZero(stats.Max(effects)),
		AvgPValue:        orZero(stats.Mean(sig)),
		MinPValue:        orZero(stats.Max(sig)),
		ConfidenceScore:  confidence,
		AvgRiskFrequency: orZero(stats.Mean(freqs)),
	}
	if len(effects) > 1 {
		f.EffectStd = orZero(stats.StandardDeviationSample(effects))
	}
	return f
}

func orZero(v float64, err error) float64 {
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return v
}
