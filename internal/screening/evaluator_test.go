package screening

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"wheeljournal/internal/domain"
	"wheeljournal/internal/indicator"
	"wheeljournal/internal/models"
)

func decp(s string) *decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return &v
}

func intp(v int) *int { return &v }

func strp(s string) *string { return &s }

func valid(v float64) indicator.Value {
	return indicator.Value{V: v, Valid: true}
}

func snapshotWith(rsi float64, close float64) indicator.Snapshot {
	return indicator.Snapshot{
		Close:  close,
		Volume: 100000,
		RSI:    valid(rsi),
		BB: indicator.Bands{
			Middle:    valid(100),
			Upper:     valid(110),
			Lower:     valid(90),
			Bandwidth: valid(0.2),
		},
		MACD: indicator.MACDValue{
			Line:      valid(-0.5),
			Signal:    valid(-0.3),
			Histogram: valid(-0.2),
		},
		VolumeSMA: valid(80000),
		SMA:       map[int]indicator.Value{20: valid(101)},
		EMA:       map[int]indicator.Value{9: valid(100.5)},
	}
}

func oversoldProfile() []models.ScreeningCriterion {
	return []models.ScreeningCriterion{
		{
			IndicatorType: models.IndicatorRSI,
			IsActive:      true,
			ParamPeriod:   intp(14),
			Operator:      models.OperatorLT,
			Value1:        decp("40"),
		},
		{
			IndicatorType: models.IndicatorBB,
			IsActive:      true,
			Operator:      models.OperatorPosition,
			PositionValue: strp(models.BandLowerThird),
		},
	}
}

func TestEvaluateOversoldProfile(t *testing.T) {
	criteria := oversoldProfile()

	// RSI 35, close 92: below lower+third (90 + 10/3 = 93.33).
	pass, err := Evaluate(criteria, snapshotWith(35, 92))
	if err != nil || !pass {
		t.Fatalf("pass=%v err=%v, want pass", pass, err)
	}

	// RSI too high.
	pass, err = Evaluate(criteria, snapshotWith(55, 92))
	if err != nil || pass {
		t.Fatalf("pass=%v err=%v, want fail on RSI", pass, err)
	}

	// Close in the middle of the bands.
	pass, err = Evaluate(criteria, snapshotWith(35, 100))
	if err != nil || pass {
		t.Fatalf("pass=%v err=%v, want fail on band position", pass, err)
	}
}

func TestEvaluateInsufficientHistoryFails(t *testing.T) {
	bars := make([]indicator.Bar, 5)
	for i := range bars {
		bars[i] = indicator.Bar{
			Date:  time.Date(2024, 1, 2+i, 0, 0, 0, 0, time.UTC),
			Open:  100, High: 101, Low: 99, Close: 100,
			Volume: 1000,
		}
	}
	snap := indicator.ComputeSnapshot(bars, len(bars)-1, indicator.DefaultSnapshotParams())

	pass, err := Evaluate(oversoldProfile(), snap)
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if pass {
		t.Fatalf("a ticker with too little history must fail, not pass")
	}
}

func TestEvaluateSkipsInactiveCriteria(t *testing.T) {
	criteria := oversoldProfile()
	criteria[1].IsActive = false

	pass, err := Evaluate(criteria, snapshotWith(35, 100))
	if err != nil || !pass {
		t.Fatalf("pass=%v err=%v, inactive criterion must be skipped", pass, err)
	}
}

func TestEvaluateBetween(t *testing.T) {
	criteria := []models.ScreeningCriterion{{
		IndicatorType: models.IndicatorPrice,
		IsActive:      true,
		Operator:      models.OperatorBetween,
		Value1:        decp("90"),
		Value2:        decp("95"),
	}}

	if pass, err := Evaluate(criteria, snapshotWith(50, 92)); err != nil || !pass {
		t.Fatalf("pass=%v err=%v, want pass", pass, err)
	}
	if pass, err := Evaluate(criteria, snapshotWith(50, 99)); err != nil || pass {
		t.Fatalf("pass=%v err=%v, want fail", pass, err)
	}

	criteria[0].Value2 = decp("90")
	if _, err := Evaluate(criteria, snapshotWith(50, 92)); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation error for value1 >= value2", err)
	}
}

func TestBandBuckets(t *testing.T) {
	bb := indicator.Bands{
		Middle: valid(100),
		Upper:  valid(110),
		Lower:  valid(90),
	}
	cases := []struct {
		close float64
		want  string
	}{
		{85, models.BandBelowLower},
		{91, models.BandLowerThird},
		{100, models.BandMiddleThird},
		{108, models.BandUpperThird},
		{112, models.BandAboveUpper},
	}
	for _, tc := range cases {
		if got := bandBucket(tc.close, bb); got != tc.want {
			t.Fatalf("bucket(%v) = %s, want %s", tc.close, got, tc.want)
		}
	}
}

func TestParamsForCollectsPeriods(t *testing.T) {
	criteria := []models.ScreeningCriterion{
		{IndicatorType: models.IndicatorRSI, IsActive: true, ParamPeriod: intp(7), Operator: models.OperatorLT, Value1: decp("30")},
		{IndicatorType: models.IndicatorSMA, IsActive: true, ParamPeriod: intp(150), Operator: models.OperatorGT, Value1: decp("0")},
		{IndicatorType: models.IndicatorSMA, IsActive: false, ParamPeriod: intp(999), Operator: models.OperatorGT, Value1: decp("0")},
	}
	p := ParamsFor(criteria, indicator.DefaultSnapshotParams())
	if p.RSIPeriod != 7 {
		t.Fatalf("rsi period = %d, want 7", p.RSIPeriod)
	}
	found := false
	for _, n := range p.SMAPeriods {
		if n == 150 {
			found = true
		}
		if n == 999 {
			t.Fatalf("inactive criterion must not widen params")
		}
	}
	if !found {
		t.Fatalf("sma periods = %v, want 150 included", p.SMAPeriods)
	}
}
