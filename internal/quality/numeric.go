package quality

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/insightdb-cli/internal/schema"
)

const (
	outlierZ          = 3.0
	outlierIssueShare = 0.05
)

// numericSanity checks sign, policy range and z-score outliers for every
// numeric column. Range violations count as outliers.
func (tc *tableCtx) numericSanity(m *Metrics) float64 {
	cols := tc.schema.ColumnsOf(schema.Numeric)
	if len(cols) == 0 {
		return 100
	}
	negatives, outliers := 0, 0
	for _, cs := range cols {
		col, ok := tc.table.Column(cs.Name)
		if !ok {
			continue
		}
		values := make([]float64, 0, len(col.Values))
		skipped := 0
		for _, v := range col.Values {
			if v.IsNull() {
				continue
			}
			f, ok := v.Float()
			if !ok {
				skipped++
				continue
			}
			values = append(values, f)
		}
		if len(values) == 0 {
			continue
		}
		mean, std := meanStd(values)
		m.ColumnStats[cs.Name] = ColumnStats{
			Kind:    StatsNumeric,
			Mean:    round2(mean),
			Std:     round2(std),
			Count:   len(values),
			Skipped: skipped,
		}

		rule := tc.policy.Column(tc.table.Name, cs.Name)
		if rule.IsUnsigned() {
			negs := 0
			for _, f := range values {
				if f < 0 {
					negs++
				}
			}
			if negs > 0 {
				negatives += negs
				m.issue(fmt.Sprintf("Negative values in %s (expected unsigned)", cs.Name))
			}
		}

		if rule.Range != nil {
			out := 0
			for _, f := range values {
				if !rule.Range.Contains(f) {
					out++
				}
			}
			if out > 0 {
				outliers += out
				m.issue(fmt.Sprintf("Value range violation in %s (expected [%s, %s])", cs.Name, num(rule.Range.Min), num(rule.Range.Max)))
			}
		}

		if std > 0 {
			z := 0
			for _, f := range values {
				if math.Abs(f-mean)/std > outlierZ {
					z++
				}
			}
			outliers += z
			if share := float64(z) / float64(tc.rows); share > outlierIssueShare {
				m.issue(fmt.Sprintf("High outlier rate in %s (%s%%)", cs.Name, pct1(share*100)))
			}
		}
	}

	denom := float64(len(cols) * tc.rows)
	negRate := float64(negatives) / denom
	outRate := float64(outliers) / denom
	m.NegativeRate = round2(clamp(negRate*100, 0, 100))
	m.OutlierRate = round2(clamp(outRate*100, 0, 100))
	return clamp((1-negRate)*50+(1-outRate)*50, 0, 100)
}

// meanStd returns the mean and sample standard deviation; std is 0 for
// fewer than two values.
func meanStd(values []float64) (float64, float64) {
	n := float64(len(values))
	sum := 0.0
	for _, f := range values {
		sum += f
	}
	mean := sum / n
	if len(values) < 2 {
		return mean, 0
	}
	ss := 0.0
	for _, f := range values {
		d := f - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / (n - 1))
}

// pct1 is pct with one decimal.
func pct1(f float64) string {
	return fmt.Sprintf("%.1f", math.Round(f*10)/10)
}
