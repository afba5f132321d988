package importer

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"wheeljournal/internal/models"
)

func dec(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestAggregateFillsByOrderID(t *testing.T) {
	at := time.Date(2024, 3, 4, 15, 30, 0, 0, time.UTC)
	fills := []models.PartialFill{
		{BrokerOrderID: "O-1", FilledAt: at, FillQuantity: 1, FillPrice: dec("3.20"), FillCommission: dec("1.15")},
		{BrokerOrderID: "O-1", FilledAt: at.Add(time.Minute), FillQuantity: 1, FillPrice: dec("3.25"), FillCommission: dec("1.15")},
	}

	out := AggregateFills(fills)
	if len(out) != 1 {
		t.Fatalf("groups = %d, want 1", len(out))
	}
	agg := out[0]
	if agg.Quantity != 2 {
		t.Fatalf("quantity = %d, want 2", agg.Quantity)
	}
	if !agg.AveragePrice.Equal(dec("3.225")) {
		t.Fatalf("average price = %s, want 3.225", agg.AveragePrice)
	}
	if !agg.Commission.Equal(dec("2.30")) {
		t.Fatalf("commission = %s, want 2.30", agg.Commission)
	}
	if len(agg.Fills) != 2 {
		t.Fatalf("raw fills must be preserved, got %d", len(agg.Fills))
	}
}

func TestAggregateFillsFallbackGrouping(t *testing.T) {
	strike := dec("100")
	exp := time.Date(2024, 4, 19, 0, 0, 0, 0, time.UTC)
	day1 := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	fills := []models.PartialFill{
		{Symbol: "AAPL", Strike: &strike, ExpirationDate: &exp, Side: "SELL", FilledAt: day1, FillQuantity: 1, FillPrice: dec("2.00")},
		{Symbol: "AAPL", Strike: &strike, ExpirationDate: &exp, Side: "SELL", FilledAt: day1.Add(time.Hour), FillQuantity: 2, FillPrice: dec("2.30")},
		// Different day, must not merge.
		{Symbol: "AAPL", Strike: &strike, ExpirationDate: &exp, Side: "SELL", FilledAt: day2, FillQuantity: 1, FillPrice: dec("2.10")},
	}

	out := AggregateFills(fills)
	if len(out) != 2 {
		t.Fatalf("groups = %d, want 2", len(out))
	}
	if out[0].Quantity != 3 {
		t.Fatalf("day-1 quantity = %d, want 3", out[0].Quantity)
	}
	// (1*2.00 + 2*2.30) / 3
	if !out[0].AveragePrice.Equal(dec("2.20")) {
		t.Fatalf("day-1 average = %s, want 2.20", out[0].AveragePrice)
	}
}

func TestParseOHLCVCSV(t *testing.T) {
	input := strings.Join([]string{
		"Date,Open,High,Low,Close,Volume",
		"2024-03-04,100,105,99,104,120000",
		"2024-03-05,104,106,103,105,90000",
		// Saturday.
		"2024-03-09,105,107,104,106,1000",
		// High below low.
		"2024-03-06,104,100,103,104,5000",
		"2024-03-07,105,108,104,107,70000",
	}, "\n")

	bars, rejected, err := ParseOHLCVCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseOHLCVCSV: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("bars = %d, want 3", len(bars))
	}
	if len(rejected) != 2 {
		t.Fatalf("rejected = %v, want 2 rows", rejected)
	}
	if bars[0].Close != 104 || bars[2].Volume != 70000 {
		t.Fatalf("bars = %+v", bars)
	}
}

func TestParseOHLCVCSVDateFormats(t *testing.T) {
	cases := []struct {
		name string
		row  string
	}{
		{"iso", "2024-03-04,1,2,1,2,10"},
		{"german", "04.03.2024,1,2,1,2,10"},
		{"us", "03/04/2024,1,2,1,2,10"},
	}
	want := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	for _, tc := range cases {
		bars, rejected, err := ParseOHLCVCSV(strings.NewReader(tc.row))
		if err != nil || len(rejected) != 0 {
			t.Fatalf("%s: err=%v rejected=%v", tc.name, err, rejected)
		}
		if len(bars) != 1 || !bars[0].Date.Equal(want) {
			t.Fatalf("%s: bars = %+v", tc.name, bars)
		}
	}
}

func TestParseOHLCVCSVRejectsInconsistentHighLow(t *testing.T) {
	rows := []string{
		// High below close.
		"2024-03-04,100,101,99,103,1000",
		// Low above open.
		"2024-03-04,100,105,101,104,1000",
	}
	for _, row := range rows {
		bars, rejected, err := ParseOHLCVCSV(strings.NewReader(row))
		if err != nil {
			t.Fatalf("err = %v", err)
		}
		if len(bars) != 0 || len(rejected) != 1 {
			t.Fatalf("row %q: bars=%d rejected=%v", row, len(bars), rejected)
		}
	}
}
