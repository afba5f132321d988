package indicator

import "time"

// SnapshotParams selects which indicators a snapshot carries.
type SnapshotParams struct {
	RSIPeriod       int
	BBPeriod        int
	BBStdDev        float64
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	VolumeSMAPeriod int
	SMAPeriods      []int
	EMAPeriods      []int
}

// DefaultSnapshotParams mirrors the common chart setup.
func DefaultSnapshotParams() SnapshotParams {
	return SnapshotParams{
		RSIPeriod:       14,
		BBPeriod:        20,
		BBStdDev:        2.0,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		VolumeSMAPeriod: 20,
		SMAPeriods:      []int{20, 50, 200},
		EMAPeriods:      []int{9, 21},
	}
}

// Snapshot is the full point-in-time indicator state of one series,
// used by screening and chart replay.
type Snapshot struct {
	AsOf   time.Time
	Close  float64
	Volume int64

	RSI       Value
	BB        Bands
	MACD      MACDValue
	VolumeSMA Value
	SMA       map[int]Value
	EMA       map[int]Value
}

// ComputeSnapshot evaluates every configured indicator at index at.
func ComputeSnapshot(bars []Bar, at int, p SnapshotParams) Snapshot {
	snap := Snapshot{
		SMA: make(map[int]Value, len(p.SMAPeriods)),
		EMA: make(map[int]Value, len(p.EMAPeriods)),
	}
	if at < 0 || at >= len(bars) {
		return snap
	}
	snap.AsOf = bars[at].Date
	snap.Close = bars[at].Close
	snap.Volume = bars[at].Volume

	snap.RSI = RSI(bars, p.RSIPeriod, at)
	snap.BB = BollingerBands(bars, p.BBPeriod, p.BBStdDev, at)
	snap.MACD = MACD(bars, p.MACDFast, p.MACDSlow, p.MACDSignal, at)
	snap.VolumeSMA = VolumeSMA(bars, p.VolumeSMAPeriod, at)
	for _, n := range p.SMAPeriods {
		snap.SMA[n] = SMA(bars, n, at)
	}
	for _, n := range p.EMAPeriods {
		snap.EMA[n] = EMA(bars, n, at)
	}
	return snap
}
