// Package screening evaluates indicator criteria against point-in-time
// snapshots. All criteria of a profile are ANDed; a ticker whose
// history is too short for any required indicator fails the profile.
package screening

import (
	"math"

	"wheeljournal/internal/domain"
	"wheeljournal/internal/indicator"
	"wheeljournal/internal/models"
)

const eqTolerance = 1e-9

// ParamsFor widens the default snapshot parameters so every active
// criterion finds its indicator in the snapshot.
func ParamsFor(criteria []models.ScreeningCriterion, base indicator.SnapshotParams) indicator.SnapshotParams {
	p := base
	for _, c := range criteria {
		if !c.IsActive {
			continue
		}
		switch c.IndicatorType {
		case models.IndicatorRSI:
			if c.ParamPeriod != nil && *c.ParamPeriod > 0 {
				p.RSIPeriod = *c.ParamPeriod
			}
		case models.IndicatorBB:
			if c.ParamPeriod != nil && *c.ParamPeriod > 0 {
				p.BBPeriod = *c.ParamPeriod
			}
			if c.ParamStdDev != nil {
				if sd, _ := c.ParamStdDev.Float64(); sd > 0 {
					p.BBStdDev = sd
				}
			}
		case models.IndicatorMACD:
			if c.ParamPeriod != nil && *c.ParamPeriod > 0 {
				p.MACDFast = *c.ParamPeriod
			}
			if c.ParamPeriod2 != nil && *c.ParamPeriod2 > 0 {
				p.MACDSlow = *c.ParamPeriod2
			}
			if c.ParamPeriod3 != nil && *c.ParamPeriod3 > 0 {
				p.MACDSignal = *c.ParamPeriod3
			}
		case models.IndicatorSMA:
			if c.ParamPeriod != nil && *c.ParamPeriod > 0 {
				p.SMAPeriods = appendPeriod(p.SMAPeriods, *c.ParamPeriod)
			}
		case models.IndicatorEMA:
			if c.ParamPeriod != nil && *c.ParamPeriod > 0 {
				p.EMAPeriods = appendPeriod(p.EMAPeriods, *c.ParamPeriod)
			}
		case models.IndicatorVolume:
			if c.ParamPeriod != nil && *c.ParamPeriod > 0 {
				p.VolumeSMAPeriod = *c.ParamPeriod
			}
		}
	}
	return p
}

func appendPeriod(periods []int, n int) []int {
	for _, p := range periods {
		if p == n {
			return periods
		}
	}
	return append(periods, n)
}

// Evaluate reports whether the snapshot passes every active criterion.
// Evaluation short-circuits on the first failing criterion. Malformed
// criteria surface as validation errors rather than silent failures.
func Evaluate(criteria []models.ScreeningCriterion, snap indicator.Snapshot) (bool, error) {
	for _, c := range criteria {
		if !c.IsActive {
			continue
		}
		ok, err := evaluateOne(c, snap)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func evaluateOne(c models.ScreeningCriterion, snap indicator.Snapshot) (bool, error) {
	if c.Operator == models.OperatorPosition {
		if c.IndicatorType != models.IndicatorBB {
			return false, domain.Validationf("POSITION operator requires the BB indicator")
		}
		if c.PositionValue == nil {
			return false, domain.Validationf("POSITION operator requires a band bucket")
		}
		if !snap.BB.Middle.Valid {
			return false, nil
		}
		return bandBucket(snap.Close, snap.BB) == *c.PositionValue, nil
	}

	value, available, err := resolveValue(c, snap)
	if err != nil {
		return false, err
	}
	if !available {
		return false, nil
	}
	return compare(c, value)
}

// resolveValue picks the numeric value a criterion compares against.
// BB uses bandwidth for numeric operators, MACD uses the MACD line.
func resolveValue(c models.ScreeningCriterion, snap indicator.Snapshot) (float64, bool, error) {
	switch c.IndicatorType {
	case models.IndicatorRSI:
		return snap.RSI.V, snap.RSI.Valid, nil
	case models.IndicatorBB:
		return snap.BB.Bandwidth.V, snap.BB.Bandwidth.Valid, nil
	case models.IndicatorMACD:
		return snap.MACD.Line.V, snap.MACD.Line.Valid, nil
	case models.IndicatorVolume:
		return float64(snap.Volume), true, nil
	case models.IndicatorPrice:
		return snap.Close, true, nil
	case models.IndicatorSMA:
		if c.ParamPeriod == nil {
			return 0, false, domain.Validationf("SMA criterion requires a period")
		}
		v, ok := snap.SMA[*c.ParamPeriod]
		return v.V, ok && v.Valid, nil
	case models.IndicatorEMA:
		if c.ParamPeriod == nil {
			return 0, false, domain.Validationf("EMA criterion requires a period")
		}
		v, ok := snap.EMA[*c.ParamPeriod]
		return v.V, ok && v.Valid, nil
	default:
		return 0, false, domain.Validationf("unknown indicator type %q", c.IndicatorType)
	}
}

func compare(c models.ScreeningCriterion, value float64) (bool, error) {
	if c.Value1 == nil {
		return false, domain.Validationf("%s operator requires a comparison value", c.Operator)
	}
	v1, _ := c.Value1.Float64()

	switch c.Operator {
	case models.OperatorLT:
		return value < v1, nil
	case models.OperatorGT:
		return value > v1, nil
	case models.OperatorEQ:
		return math.Abs(value-v1) < eqTolerance, nil
	case models.OperatorBetween:
		if c.Value2 == nil {
			return false, domain.Validationf("BETWEEN requires two values")
		}
		v2, _ := c.Value2.Float64()
		if v1 >= v2 {
			return false, domain.Validationf("BETWEEN requires value1 < value2")
		}
		return value >= v1 && value <= v2, nil
	default:
		return false, domain.Validationf("unknown operator %q", c.Operator)
	}
}

// bandBucket classifies the close against the Bollinger Bands into the
// five qualitative buckets.
func bandBucket(close float64, bb indicator.Bands) string {
	lower, middle, upper := bb.Lower.V, bb.Middle.V, bb.Upper.V
	switch {
	case close < lower:
		return models.BandBelowLower
	case close < lower+(middle-lower)/3:
		return models.BandLowerThird
	case close > upper:
		return models.BandAboveUpper
	case close > upper-(upper-middle)/3:
		return models.BandUpperThird
	default:
		return models.BandMiddleThird
	}
}
