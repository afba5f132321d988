// Package indicator computes technical indicators strictly point-in-time:
// every function takes the index of the "current" bar and reads only bars
// at or before it, so chart replay and screening can never look ahead.
package indicator

import (
	"math"
	"time"
)

// Bar is one OHLCV bar. Bars are ordered ascending by date.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Value is an indicator result. Valid is false when there is not enough
// history at the requested index; V is meaningless in that case.
type Value struct {
	V     float64
	Valid bool
}

func valid(v float64) Value { return Value{V: v, Valid: true} }

var unavailable = Value{}

// SMA returns the arithmetic mean of close over the n bars ending at
// index at.
func SMA(bars []Bar, n, at int) Value {
	return meanOf(bars, n, at, func(b Bar) float64 { return b.Close })
}

// VolumeSMA is SMA applied to volume.
func VolumeSMA(bars []Bar, n, at int) Value {
	return meanOf(bars, n, at, func(b Bar) float64 { return float64(b.Volume) })
}

func meanOf(bars []Bar, n, at int, f func(Bar) float64) Value {
	if n <= 0 || at < 0 || at >= len(bars) || at+1 < n {
		return unavailable
	}
	sum := 0.0
	for i := at - n + 1; i <= at; i++ {
		sum += f(bars[i])
	}
	return valid(sum / float64(n))
}

// EMA returns the exponential moving average of close at index at,
// seeded with SMA(n) at the first index where n bars exist.
func EMA(bars []Bar, n, at int) Value {
	if n <= 0 || at < 0 || at >= len(bars) || at+1 < n {
		return unavailable
	}
	k := 2.0 / (float64(n) + 1.0)
	seed := SMA(bars, n, n-1)
	ema := seed.V
	for i := n; i <= at; i++ {
		ema = bars[i].Close*k + ema*(1.0-k)
	}
	return valid(ema)
}

// RSI returns Wilder's relative strength index at index at. It needs
// n+1 bars (n day-over-day deltas).
func RSI(bars []Bar, n, at int) Value {
	if n <= 0 || at < 0 || at >= len(bars) || at < n {
		return unavailable
	}
	var avgGain, avgLoss float64
	for i := 1; i <= n; i++ {
		delta := bars[i].Close - bars[i-1].Close
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(n)
	avgLoss /= float64(n)

	// Wilder smoothing for the remaining deltas up to at.
	for i := n + 1; i <= at; i++ {
		delta := bars[i].Close - bars[i-1].Close
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(n-1) + gain) / float64(n)
		avgLoss = (avgLoss*float64(n-1) + loss) / float64(n)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return valid(50)
		}
		return valid(100)
	}
	rs := avgGain / avgLoss
	return valid(100.0 - 100.0/(1.0+rs))
}

// Bands is a Bollinger Bands result. All fields share validity.
type Bands struct {
	Middle    Value
	Upper     Value
	Lower     Value
	Bandwidth Value
}

// BollingerBands returns bands around SMA(n) at k population standard
// deviations.
func BollingerBands(bars []Bar, n int, k float64, at int) Bands {
	middle := SMA(bars, n, at)
	if !middle.Valid {
		return Bands{}
	}
	variance := 0.0
	for i := at - n + 1; i <= at; i++ {
		d := bars[i].Close - middle.V
		variance += d * d
	}
	stddev := math.Sqrt(variance / float64(n))
	upper := middle.V + k*stddev
	lower := middle.V - k*stddev
	b := Bands{
		Middle: middle,
		Upper:  valid(upper),
		Lower:  valid(lower),
	}
	if middle.V != 0 {
		b.Bandwidth = valid((upper - lower) / middle.V)
	}
	return b
}

// MACDValue is a MACD result. Line needs slow bars; Signal and
// Histogram need signal extra bars on top of that.
type MACDValue struct {
	Line      Value
	Signal    Value
	Histogram Value
}

// MACD returns MACD(fast, slow, signal) at index at. The signal line is
// an EMA of the MACD line, seeded the same way EMA is seeded on closes.
func MACD(bars []Bar, fast, slow, signal, at int) MACDValue {
	if fast <= 0 || slow <= 0 || signal <= 0 || fast >= slow {
		return MACDValue{}
	}
	if at < 0 || at >= len(bars) || at+1 < slow {
		return MACDValue{}
	}

	// MACD line exists from index slow-1 onward.
	line := make([]float64, 0, at-slow+2)
	for i := slow - 1; i <= at; i++ {
		f := EMA(bars, fast, i)
		s := EMA(bars, slow, i)
		line = append(line, f.V-s.V)
	}

	out := MACDValue{Line: valid(line[len(line)-1])}
	if len(line) < signal {
		return out
	}

	seed := 0.0
	for i := 0; i < signal; i++ {
		seed += line[i]
	}
	seed /= float64(signal)
	k := 2.0 / (float64(signal) + 1.0)
	sig := seed
	for i := signal; i < len(line); i++ {
		sig = line[i]*k + sig*(1.0-k)
	}
	out.Signal = valid(sig)
	out.Histogram = valid(out.Line.V - sig)
	return out
}
