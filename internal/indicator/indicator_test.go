package indicator

import (
	"math"
	"testing"
	"time"
)

func day(offset int) time.Time {
	return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func closesToBars(closes ...float64) []Bar {
	bars := make([]Bar, len(closes))
	for i, c := range closes {
		bars[i] = Bar{Date: day(i), Open: c, High: c, Low: c, Close: c, Volume: 1000 + int64(i)}
	}
	return bars
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSMA(t *testing.T) {
	bars := closesToBars(1, 2, 3, 4, 5)

	got := SMA(bars, 3, 4)
	if !got.Valid || !almostEqual(got.V, 4) {
		t.Fatalf("SMA(3) at 4 = %+v, want 4", got)
	}

	if got := SMA(bars, 3, 1); got.Valid {
		t.Fatalf("SMA(3) at 1 should be unavailable, got %+v", got)
	}
	if got := SMA(bars, 3, 2); !got.Valid || !almostEqual(got.V, 2) {
		t.Fatalf("SMA(3) at 2 = %+v, want 2", got)
	}
}

func TestEMA(t *testing.T) {
	bars := closesToBars(1, 2, 3, 4, 5)

	// Seeded with SMA(3)=2 at index 2, k=0.5: 3 at index 3, 4 at index 4.
	got := EMA(bars, 3, 4)
	if !got.Valid || !almostEqual(got.V, 4) {
		t.Fatalf("EMA(3) at 4 = %+v, want 4", got)
	}
	if got := EMA(bars, 3, 1); got.Valid {
		t.Fatalf("EMA(3) at 1 should be unavailable, got %+v", got)
	}
}

func TestEMAPeriodOneEqualsClose(t *testing.T) {
	bars := closesToBars(10, 12.5, 9, 14, 13.25, 11)
	for i := range bars {
		got := EMA(bars, 1, i)
		if !got.Valid || !almostEqual(got.V, bars[i].Close) {
			t.Fatalf("EMA(1) at %d = %+v, want %v", i, got, bars[i].Close)
		}
	}
}

func TestRSIExtremes(t *testing.T) {
	rising := make([]float64, 40)
	falling := make([]float64, 40)
	for i := range rising {
		rising[i] = 100 + float64(i)
		falling[i] = 100 - float64(i)
	}

	up := RSI(closesToBars(rising...), 14, 39)
	if !up.Valid || up.V < 99 {
		t.Fatalf("RSI on rising series = %+v, want near 100", up)
	}
	down := RSI(closesToBars(falling...), 14, 39)
	if !down.Valid || down.V > 1 {
		t.Fatalf("RSI on falling series = %+v, want near 0", down)
	}
}

func TestRSIWilderSmoothing(t *testing.T) {
	bars := closesToBars(10, 11, 10.5, 11.5)

	// Deltas +1, -0.5, +1 with n=2: initial avgGain=0.5 avgLoss=0.25,
	// smoothed avgGain=0.75 avgLoss=0.125, RS=6, RSI=100-100/7.
	got := RSI(bars, 2, 3)
	want := 100.0 - 100.0/7.0
	if !got.Valid || !almostEqual(got.V, want) {
		t.Fatalf("RSI(2) at 3 = %+v, want %v", got, want)
	}
}

func TestRSIInsufficientHistory(t *testing.T) {
	bars := closesToBars(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14)
	if got := RSI(bars, 14, 13); got.Valid {
		t.Fatalf("RSI(14) with 14 bars should be unavailable, got %+v", got)
	}
}

func TestBollingerBands(t *testing.T) {
	// Population stddev of this series is exactly 2 around mean 5.
	bars := closesToBars(2, 4, 4, 4, 5, 5, 7, 9)

	b := BollingerBands(bars, 8, 2, 7)
	if !b.Middle.Valid || !almostEqual(b.Middle.V, 5) {
		t.Fatalf("middle = %+v, want 5", b.Middle)
	}
	if !almostEqual(b.Upper.V, 9) || !almostEqual(b.Lower.V, 1) {
		t.Fatalf("bands = [%v, %v], want [1, 9]", b.Lower.V, b.Upper.V)
	}
	if !b.Bandwidth.Valid || !almostEqual(b.Bandwidth.V, 1.6) {
		t.Fatalf("bandwidth = %+v, want 1.6", b.Bandwidth)
	}

	if b := BollingerBands(bars, 20, 2, 7); b.Middle.Valid {
		t.Fatalf("BB(20) over 8 bars should be unavailable")
	}
}

func TestMACDConstantSeries(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 42
	}
	m := MACD(closesToBars(closes...), 12, 26, 9, 49)
	if !m.Line.Valid || !almostEqual(m.Line.V, 0) {
		t.Fatalf("MACD line = %+v, want 0", m.Line)
	}
	if !m.Signal.Valid || !almostEqual(m.Signal.V, 0) {
		t.Fatalf("MACD signal = %+v, want 0", m.Signal)
	}
	if !m.Histogram.Valid || !almostEqual(m.Histogram.V, 0) {
		t.Fatalf("MACD histogram = %+v, want 0", m.Histogram)
	}
}

func TestMACDAvailability(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + math.Sin(float64(i)/3)*5
	}
	bars := closesToBars(closes...)

	if m := MACD(bars, 12, 26, 9, 24); m.Line.Valid {
		t.Fatalf("MACD line before slow bars should be unavailable")
	}
	m := MACD(bars, 12, 26, 9, 25)
	if !m.Line.Valid {
		t.Fatalf("MACD line at slow-1 should be available")
	}
	if m.Signal.Valid {
		t.Fatalf("MACD signal at slow-1 should be unavailable")
	}
	m = MACD(bars, 12, 26, 9, 33)
	if !m.Signal.Valid || !m.Histogram.Valid {
		t.Fatalf("MACD signal at slow+signal-2 should be available, got %+v", m)
	}
	if !almostEqual(m.Histogram.V, m.Line.V-m.Signal.V) {
		t.Fatalf("histogram %v != line-signal %v", m.Histogram.V, m.Line.V-m.Signal.V)
	}
}

func TestVolumeSMA(t *testing.T) {
	bars := closesToBars(1, 2, 3, 4)
	bars[1].Volume = 2000
	bars[2].Volume = 3000
	bars[3].Volume = 4000

	got := VolumeSMA(bars, 3, 3)
	if !got.Valid || !almostEqual(got.V, 3000) {
		t.Fatalf("VolumeSMA(3) at 3 = %+v, want 3000", got)
	}
}

func TestNoLookAhead(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + math.Sin(float64(i)/5)*10 + float64(i%7)
	}
	short := closesToBars(closes...)

	extended := make([]float64, 0, 90)
	extended = append(extended, closes...)
	for i := 0; i < 30; i++ {
		extended = append(extended, 500+float64(i)*20)
	}
	long := closesToBars(extended...)

	const at = 40
	p := DefaultSnapshotParams()
	a := ComputeSnapshot(short, at, p)
	b := ComputeSnapshot(long, at, p)

	if a.RSI != b.RSI || a.BB != b.BB || a.MACD != b.MACD || a.VolumeSMA != b.VolumeSMA {
		t.Fatalf("snapshot at %d changed after appending bars:\n%+v\nvs\n%+v", at, a, b)
	}
	for n, v := range a.SMA {
		if b.SMA[n] != v {
			t.Fatalf("SMA(%d) changed after appending bars", n)
		}
	}
	for n, v := range a.EMA {
		if b.EMA[n] != v {
			t.Fatalf("EMA(%d) changed after appending bars", n)
		}
	}
}

func TestToWeekly(t *testing.T) {
	mon := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	daily := []Bar{
		{Date: mon, Open: 10, High: 12, Low: 9, Close: 11, Volume: 100},
		{Date: mon.AddDate(0, 0, 1), Open: 11, High: 15, Low: 10, Close: 14, Volume: 200},
		{Date: mon.AddDate(0, 0, 2), Open: 14, High: 14.5, Low: 8, Close: 9, Volume: 300},
		{Date: mon.AddDate(0, 0, 3), Open: 9, High: 10, Low: 8.5, Close: 9.5, Volume: 100},
		{Date: mon.AddDate(0, 0, 4), Open: 9.5, High: 11, Low: 9, Close: 10.5, Volume: 150},
		// Next week.
		{Date: mon.AddDate(0, 0, 7), Open: 10.5, High: 13, Low: 10, Close: 12, Volume: 400},
	}

	weekly := ToWeekly(daily)
	if len(weekly) != 2 {
		t.Fatalf("weeks = %d, want 2", len(weekly))
	}
	w := weekly[0]
	if w.Open != 10 || w.Close != 10.5 || w.High != 15 || w.Low != 8 || w.Volume != 850 {
		t.Fatalf("week 1 = %+v", w)
	}
	if !w.Date.Equal(mon) {
		t.Fatalf("week 1 date = %v, want %v", w.Date, mon)
	}
	if weekly[1].Open != 10.5 || weekly[1].Volume != 400 {
		t.Fatalf("week 2 = %+v", weekly[1])
	}
}

func TestSnapshotInsufficientHistory(t *testing.T) {
	bars := closesToBars(1, 2, 3)
	snap := ComputeSnapshot(bars, 2, DefaultSnapshotParams())
	if snap.RSI.Valid || snap.BB.Middle.Valid || snap.MACD.Line.Valid {
		t.Fatalf("snapshot over 3 bars should be unavailable, got %+v", snap)
	}
	if !almostEqual(snap.Close, 3) {
		t.Fatalf("close = %v, want 3", snap.Close)
	}
}
