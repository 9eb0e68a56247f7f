// Package clean normalizes raw GWAS association catalogues into the
// canonical variant schema.
package clean

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/M0-Anwar/diseases-detection/internal/table"
	"github.com/M0-Anwar/diseases-detection/internal/variant"
)

// UnspecifiedTrait labels rows whose disease trait is missing.
const UnspecifiedTrait = "unspecified_trait"

// Default fill values for descriptive text columns.
const (
	DefaultCI95            = "[0.95-1.05]"
	DefaultEffectSizeRange = "[0.99-1.01] unit neutral"
)

// Winsorizing bounds.
const (
	LowerQuantile = 0.01
	UpperQuantile = 0.99
)

var effectRangePattern = regexp.MustCompile(`\[([\d\.]+)\s*-\s*([\d\.]+)\]`)

var categoricalColumns = []string{
	variant.Region,
	variant.ChrID,
	variant.MappedGene,
	variant.Context,
	variant.Intergenic,
}

var droppedColumns = []string{
	"STRONGEST_SNP_RISK_ALLELE",
	"SNP_ID",
	variant.EffectSizeRange,
	"RISK_ALLELE_FROM_SPLIT",
}

var intergenicTokens = map[string]string{
	"y": "Y", "yes": "Y", "true": "Y", "1": "Y",
	"n": "N", "no": "N", "false": "N", "0": "N",
}

// Cleaner applies the cleaning rules to a catalogue or genome table.
type Cleaner struct {
	logger *zap.Logger
}

// New creates a cleaner that logs nothing.
func New() *Cleaner {
	return &Cleaner{logger: zap.NewNop()}
}

// SetLogger sets the logger used to report every fill and coercion.
func (c *Cleaner) SetLogger(l *zap.Logger) {
	c.logger = l
}

// Clean returns a cleaned copy of the input. The input frame is not modified.
// It fails with a *variant.SchemaError when a required column is absent.
func (c *Cleaner) Clean(in *table.Frame) (*table.Frame, error) {
	f := in.Clone()

	if f.Has(variant.LegacyDiseaseTrait) {
		f.Rename(variant.LegacyDiseaseTrait, variant.DiseaseTrait)
	}
	required := []string{variant.SNPs, variant.PValue}
	if !f.Has(variant.EffectMidpoint) {
		required = append(required, variant.EffectSizeRange)
	}
	if err := variant.Require(f, required...); err != nil {
		return nil, err
	}
	if err := deriveKnownGene(f); err != nil {
		return nil, err
	}

	c.fillCategorical(f)
	c.fillTrait(f)
	c.fillSNPs(f)
	c.fillNumeric(f)
	c.clipAndWinsorize(f)
	c.fillCoercedPValues(f)
	normalizeTrait(f)
	if err := normalizeIntergenic(f); err != nil {
		return nil, err
	}
	if err := c.deriveEffects(f); err != nil {
		return nil, err
	}
	if err := deriveSignificance(f); err != nil {
		return nil, err
	}
	for _, name := range droppedColumns {
		f.Drop(name)
	}
	c.finalSweep(f)

	c.logger.Info("cleaned table",
		zap.Int("rows", f.Len()),
		zap.Int("columns", len(f.Names())))
	return f, nil
}

// IsClean reports whether f carries the canonical schema with no missing
// values. Cleaning such a table again is not a no-op when it is a subset of
// a cleaned catalogue, because winsorizing bounds depend on the rows present.
func IsClean(f *table.Frame) bool {
	if variant.Validate(f) != nil {
		return false
	}
	for _, col := range f.Columns() {
		if col.NullCount() > 0 {
			return false
		}
	}
	return true
}

func (c *Cleaner) logFill(column string, n int, value string) {
	if n == 0 {
		return
	}
	c.logger.Info("filled missing values",
		zap.String("column", column),
		zap.Int("count", n),
		zap.String("value", value))
}

// deriveKnownGene records which rows had a mapped gene before any filling.
func deriveKnownGene(f *table.Frame) error {
	genes := f.Column(variant.MappedGene)
	if genes == nil || f.Has(variant.HasKnownGene) {
		return nil
	}
	known := make([]float64, f.Len())
	for i := range known {
		if !genes.IsNull(i) {
			known[i] = 1
		}
	}
	return f.Set(table.NewNumeric(variant.HasKnownGene, known))
}

func (c *Cleaner) fillCategorical(f *table.Frame) {
	for _, name := range categoricalColumns {
		col := f.Column(name)
		if col == nil {
			continue
		}
		col.AsText()
		if mode, ok := col.Mode(); ok {
			c.logFill(name, col.FillNullText(mode), mode)
		}
	}
	if chr := f.Column(variant.ChrID); chr != nil {
		for i, s := range chr.Str {
			if !chr.Null[i] {
				chr.Str[i] = normalizeChromosome(s)
			}
		}
	}
}

// normalizeChromosome turns numeric chromosome ids such as "1.0" into "1".
func normalizeChromosome(s string) string {
	digits := strings.Replace(s, ".", "", 1)
	if digits == "" {
		return s
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return s
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return strconv.Itoa(int(v))
}

func (c *Cleaner) fillTrait(f *table.Frame) {
	col := f.Column(variant.DiseaseTrait)
	if col == nil {
		return
	}
	col.AsText()
	c.logFill(variant.DiseaseTrait, col.FillNullText(UnspecifiedTrait), UnspecifiedTrait)
}

func (c *Cleaner) fillSNPs(f *table.Frame) {
	col := f.Column(variant.SNPs)
	col.AsText()
	n := 0
	for i := range col.Str {
		if col.Null[i] {
			col.Str[i] = fmt.Sprintf("gen_snp_%d", i)
			col.Null[i] = false
			n++
		}
	}
	c.logFill(variant.SNPs, n, "gen_snp_<row>")
}

func (c *Cleaner) fillNumeric(f *table.Frame) {
	// Missing cells take the column default; cells that are present but do
	// not parse stay null until fillCoercedPValues or the final sweep.
	for _, name := range []string{variant.RiskAlleleFrequency, variant.PValue, variant.PValueMLog} {
		col := f.Column(name)
		if col == nil {
			continue
		}
		var missing []int
		for i := 0; i < col.Len(); i++ {
			if col.IsNull(i) {
				missing = append(missing, i)
			}
		}
		if bad := col.AsNumeric(); bad > 0 {
			c.logger.Warn("coerced non-numeric values to missing",
				zap.String("column", name),
				zap.Int("count", bad))
		}
		if len(missing) == 0 {
			continue
		}

		var fill float64
		switch name {
		case variant.RiskAlleleFrequency:
			fill = col.Median()
			if math.IsNaN(fill) {
				continue
			}
		case variant.PValue:
			fill = 1.0
		case variant.PValueMLog:
			fill = 0.0
		}
		for _, i := range missing {
			col.Num[i] = fill
		}
		c.logFill(name, len(missing), formatFloat(fill))
	}

	if col := f.Column(variant.CI95); col != nil {
		col.AsText()
		c.logFill(variant.CI95, col.FillNullText(DefaultCI95), DefaultCI95)
	}
	if col := f.Column(variant.EffectSizeRange); col != nil {
		col.AsText()
		c.logFill(variant.EffectSizeRange, col.FillNullText(DefaultEffectSizeRange), DefaultEffectSizeRange)
	}
}

// clipAndWinsorize bounds p-values and risk allele frequencies to [0,1] and
// then to their 1st and 99th percentiles.
func (c *Cleaner) clipAndWinsorize(f *table.Frame) {
	for _, name := range []string{variant.PValue, variant.RiskAlleleFrequency} {
		col := f.Column(name)
		if col == nil {
			continue
		}
		if n := col.Clip(0, 1); n > 0 {
			c.logger.Info("clipped out-of-range values",
				zap.String("column", name),
				zap.Int("count", n))
		}
		lo := col.EmpiricalQuantile(LowerQuantile)
		hi := col.EmpiricalQuantile(UpperQuantile)
		if math.IsNaN(lo) || math.IsNaN(hi) {
			continue
		}
		if n := col.Clip(lo, hi); n > 0 {
			c.logger.Debug("winsorized values",
				zap.String("column", name),
				zap.Int("count", n),
				zap.Float64("lower", lo),
				zap.Float64("upper", hi))
		}
	}
}

// fillCoercedPValues gives p-values that failed to parse the column median
// before significance is derived from them.
func (c *Cleaner) fillCoercedPValues(f *table.Frame) {
	col := f.Column(variant.PValue)
	if col.NullCount() == 0 {
		return
	}
	median := col.Median()
	if math.IsNaN(median) {
		median = 0
	}
	c.logFill(variant.PValue, col.FillNull(median), formatFloat(median))
}

func normalizeTrait(f *table.Frame) {
	col := f.Column(variant.DiseaseTrait)
	if col == nil {
		return
	}
	for i, s := range col.Str {
		col.Str[i] = NormalizeTrait(s)
	}
}

// NormalizeTrait lower-cases and trims a disease label, mapping textual
// nulls to UnspecifiedTrait.
func NormalizeTrait(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "nan", "none", "null":
		return UnspecifiedTrait
	}
	return s
}

func normalizeIntergenic(f *table.Frame) error {
	col := f.Column(variant.Intergenic)
	if col == nil {
		return nil
	}
	for i, s := range col.Str {
		if col.Null[i] {
			continue
		}
		if v, ok := intergenicTokens[strings.ToLower(s)]; ok {
			col.Str[i] = v
		}
	}
	if f.Has(variant.IsIntergenic) {
		return nil
	}
	flag := make([]float64, f.Len())
	for i, s := range col.Str {
		if !col.Null[i] && s == "Y" {
			flag[i] = 1
		}
	}
	return f.Set(table.NewNumeric(variant.IsIntergenic, flag))
}

// deriveEffects parses the effect size range into bounds, midpoint and
// encoded direction. Without a range column, existing bounds are kept and
// only missing midpoints are filled.
func (c *Cleaner) deriveEffects(f *table.Frame) error {
	ranges := f.Column(variant.EffectSizeRange)
	if ranges == nil {
		return c.completeEffects(f)
	}

	n := f.Len()
	lower := make([]float64, n)
	upper := make([]float64, n)
	mid := make([]float64, n)
	dir := make([]float64, n)
	unparsed := 0
	for i, s := range ranges.Str {
		lower[i], upper[i] = ParseEffectRange(s)
		mid[i] = (lower[i] + upper[i]) / 2
		if math.IsNaN(mid[i]) {
			unparsed++
		}
		dir[i] = float64(EffectDirection(s))
	}
	if unparsed > 0 {
		c.logger.Warn("unparseable effect size ranges", zap.Int("count", unparsed))
	}

	for _, col := range []*table.Column{
		table.NewNumeric(variant.EffectLower, lower),
		table.NewNumeric(variant.EffectUpper, upper),
		table.NewNumeric(variant.EffectMidpoint, mid),
		table.NewNumeric(variant.EffectDirectionEncoded, dir),
	} {
		if err := f.Set(col); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cleaner) completeEffects(f *table.Frame) error {
	for _, name := range []string{variant.EffectLower, variant.EffectUpper, variant.EffectMidpoint, variant.EffectDirectionEncoded} {
		if col := f.Column(name); col != nil {
			if bad := col.AsNumeric(); bad > 0 {
				c.logger.Warn("coerced non-numeric values to missing",
					zap.String("column", name),
					zap.Int("count", bad))
			}
		}
	}
	mid := f.Column(variant.EffectMidpoint)
	lower, upper := f.Column(variant.EffectLower), f.Column(variant.EffectUpper)
	if lower != nil && upper != nil {
		n := 0
		for i, m := range mid.Num {
			if math.IsNaN(m) && !math.IsNaN(lower.Num[i]) && !math.IsNaN(upper.Num[i]) {
				mid.Num[i] = (lower.Num[i] + upper.Num[i]) / 2
				n++
			}
		}
		c.logFill(variant.EffectMidpoint, n, "(lower+upper)/2")
	}
	if !f.Has(variant.EffectDirectionEncoded) {
		return f.Set(table.NewNumeric(variant.EffectDirectionEncoded, make([]float64, f.Len())))
	}
	return nil
}

// ParseEffectRange extracts the bounds of the first "[lower-upper]" in s.
// Both are NaN when s has no such range.
func ParseEffectRange(s string) (lower, upper float64) {
	m := effectRangePattern.FindStringSubmatch(s)
	if m == nil {
		return math.NaN(), math.NaN()
	}
	return parseOrNaN(m[1]), parseOrNaN(m[2])
}

func parseOrNaN(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// EffectDirection encodes the direction named in an effect size range:
// +1 for increase, -1 for decrease, 0 otherwise.
func EffectDirection(s string) int {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "increase"):
		return 1
	case strings.Contains(s, "decrease"):
		return -1
	}
	return 0
}

// P-value category bin edges (right-closed, lowest edge inclusive) and labels.
var (
	categoryEdges  = []float64{1e-10, 1e-8, 1e-5, 1e-3, 0.05}
	categoryLabels = []string{"ultra_sig", "very_sig", "high_sig", "moderate_sig", "low_sig", "not_sig"}
)

// PValueCategory returns the significance bucket of a p-value in [0,1].
func PValueCategory(p float64) string {
	for i, edge := range categoryEdges {
		if p <= edge {
			return categoryLabels[i]
		}
	}
	return categoryLabels[len(categoryLabels)-1]
}

func deriveSignificance(f *table.Frame) error {
	p := f.Column(variant.PValue).Num
	n := len(p)
	sig05 := make([]float64, n)
	sig01 := make([]float64, n)
	sig5e8 := make([]float64, n)
	cat := make([]string, n)
	for i, v := range p {
		sig05[i] = indicator(v < 0.05)
		sig01[i] = indicator(v < 0.01)
		sig5e8[i] = indicator(v < 5e-8)
		cat[i] = PValueCategory(v)
	}
	for _, col := range []*table.Column{
		table.NewNumeric(variant.IsSignificant005, sig05),
		table.NewNumeric(variant.IsSignificant001, sig01),
		table.NewNumeric(variant.IsSignificant5e8, sig5e8),
		table.NewText(variant.PValueCategory, cat, nil),
	} {
		if err := f.Set(col); err != nil {
			return err
		}
	}
	return nil
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// finalSweep fills every remaining null: numeric columns with their median,
// text columns with their mode or "unknown". Effect bounds are reconciled
// with the midpoint first so the midpoint stays their average.
func (c *Cleaner) finalSweep(f *table.Frame) {
	c.reconcileEffects(f)
	for _, col := range f.Columns() {
		if col.NullCount() == 0 {
			continue
		}
		if col.Kind == table.Numeric {
			median := col.Median()
			if math.IsNaN(median) {
				median = 0
			}
			c.logFill(col.Name, col.FillNull(median), formatFloat(median))
			continue
		}
		fill := "unknown"
		if mode, ok := col.Mode(); ok {
			fill = mode
		}
		c.logFill(col.Name, col.FillNullText(fill), fill)
	}
}

func (c *Cleaner) reconcileEffects(f *table.Frame) {
	lower, upper, mid := f.Column(variant.EffectLower), f.Column(variant.EffectUpper), f.Column(variant.EffectMidpoint)
	if lower == nil || upper == nil || mid == nil {
		return
	}
	if lower.NullCount()+upper.NullCount()+mid.NullCount() == 0 {
		return
	}
	// Rows where the midpoint pins the missing bound.
	for i := range mid.Num {
		lo, hi, m := lower.Num[i], upper.Num[i], mid.Num[i]
		switch {
		case math.IsNaN(m):
		case math.IsNaN(lo) && math.IsNaN(hi):
			lower.Num[i], upper.Num[i] = m, m
		case math.IsNaN(lo):
			lower.Num[i] = 2*m - hi
		case math.IsNaN(hi):
			upper.Num[i] = 2*m - lo
		}
	}
	for _, col := range []*table.Column{lower, upper} {
		median := col.Median()
		if math.IsNaN(median) {
			median = 0
		}
		c.logFill(col.Name, col.FillNull(median), formatFloat(median))
	}
	n := 0
	for i, m := range mid.Num {
		if math.IsNaN(m) {
			mid.Num[i] = (lower.Num[i] + upper.Num[i]) / 2
			n++
		}
	}
	c.logFill(variant.EffectMidpoint, n, "(lower+upper)/2")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
