package wheel

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"wheeljournal/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func decp(s string) *decimal.Decimal {
	v := dec(s)
	return &v
}

func strp(s string) *string { return &s }

func u64p(v uint64) *uint64 { return &v }

func closedPut(id uint64, net string, closeType string, openDate, closeDate time.Time) models.TradePosition {
	cd := closeDate
	return models.TradePosition{
		ID:                 id,
		PositionType:       models.PositionShortPut,
		Status:             models.StatusClosed,
		Quantity:           -1,
		PremiumPerContract: decp("2.00"),
		StrikePrice:        decp("100"),
		NetPremium:         decp(net),
		OpenDate:           openDate,
		CloseDate:          &cd,
		CloseType:          strp(closeType),
	}
}

// Full traversal: put rolled once, assigned, covered call, called away.
func fullCycle() ([]models.TradePosition, []models.Dividend) {
	p0 := closedPut(1, "199.50", models.CloseRolled, date(2024, 1, 5), date(2024, 1, 19))
	p0.ClosePrice = decp("3.00")
	p0.CommissionOpen = dec("0.50")
	p0.CommissionClose = decp("0.50")

	p1 := closedPut(2, "149.50", models.CloseAssigned, date(2024, 1, 19), date(2024, 2, 16))
	p1.RolledFromTradeID = u64p(1)
	p1.AssignedToStockID = u64p(3)
	p1.CommissionOpen = dec("0.50")

	shares := 100
	stock := models.TradePosition{
		ID:           3,
		PositionType: models.PositionLongStock,
		Status:       models.StatusClosed,
		Quantity:     100,
		Shares:       &shares,
		CostPerShare: decp("98.505"),
		OpenDate:     date(2024, 2, 16),
		CloseType:    strp(models.CloseCalledAway),
		ClosePrice:   decp("102"),
		RealizedPL:   decp("349.50"),
	}
	cd := date(2024, 3, 15)
	stock.CloseDate = &cd

	call := models.TradePosition{
		ID:                 4,
		PositionType:       models.PositionShortCall,
		Status:             models.StatusClosed,
		Quantity:           -1,
		PremiumPerContract: decp("1.20"),
		StrikePrice:        decp("102"),
		NetPremium:         decp("119.50"),
		CoveredByStockID:   u64p(3),
		OpenDate:           date(2024, 2, 20),
		CloseType:          strp(models.CloseCalledAway),
		CommissionOpen:     dec("0.50"),
	}
	callClose := date(2024, 3, 15)
	call.CloseDate = &callClose

	div := models.Dividend{
		ID:              1,
		StockPositionID: u64p(3),
		SharesHeld:      100,
		NetAmount:       dec("24"),
		ExDividendDate:  date(2024, 3, 1),
	}
	return []models.TradePosition{p0, p1, stock, call}, []models.Dividend{div}
}

func TestPartitionFullCycle(t *testing.T) {
	positions, dividends := fullCycle()
	cycles := Partition(positions, dividends)

	if len(cycles) != 1 {
		t.Fatalf("cycles = %d, want 1", len(cycles))
	}
	c := cycles[0]
	if len(c.Positions) != 4 {
		t.Fatalf("members = %d, want 4", len(c.Positions))
	}
	for i, wantID := range []uint64{1, 2, 3, 4} {
		if c.Positions[i].ID != wantID {
			t.Fatalf("positions[%d].ID = %d, want %d", i, c.Positions[i].ID, wantID)
		}
	}
	if c.Status != models.CycleCompleted {
		t.Fatalf("status = %s, want COMPLETED", c.Status)
	}
	if c.EndDate == nil || !c.EndDate.Equal(date(2024, 3, 15)) {
		t.Fatalf("end date = %v", c.EndDate)
	}
	if len(c.Dividends) != 1 {
		t.Fatalf("dividends = %d, want 1", len(c.Dividends))
	}
}

func TestPartitionSeparatesIndependentPuts(t *testing.T) {
	p0 := closedPut(1, "199.50", models.CloseExpired, date(2024, 1, 5), date(2024, 1, 19))
	p1 := closedPut(2, "149.50", models.CloseExpired, date(2024, 2, 5), date(2024, 2, 16))

	cycles := Partition([]models.TradePosition{p0, p1}, nil)
	if len(cycles) != 2 {
		t.Fatalf("cycles = %d, want 2", len(cycles))
	}
	if cycles[0].Status != models.CycleCompleted || cycles[1].Status != models.CycleCompleted {
		t.Fatalf("expired puts complete their cycles immediately")
	}
}

func TestPartitionOpenPutIsActive(t *testing.T) {
	open := models.TradePosition{
		ID:                 1,
		PositionType:       models.PositionShortPut,
		Status:             models.StatusOpen,
		Quantity:           -1,
		StrikePrice:        decp("50"),
		PremiumPerContract: decp("1.00"),
		OpenDate:           date(2024, 5, 1),
	}
	cycles := Partition([]models.TradePosition{open}, nil)
	if len(cycles) != 1 || cycles[0].Status != models.CycleActive {
		t.Fatalf("cycles = %+v", cycles)
	}
	if cycles[0].EndDate != nil {
		t.Fatalf("active cycle must not carry an end date")
	}
}

func TestComputeTotals(t *testing.T) {
	positions, dividends := fullCycle()
	cycles := Partition(positions, dividends)
	totals := ComputeTotals(cycles[0])

	// 199.50 + 149.50 + 119.50
	if !totals.PremiumCollected.Equal(dec("468.50")) {
		t.Fatalf("premium = %s, want 468.50", totals.PremiumCollected)
	}
	// Roll buyback of the first put: 1 * 3.00 * 100.
	if !totals.BuybackCost.Equal(dec("300")) {
		t.Fatalf("buyback = %s, want 300", totals.BuybackCost)
	}
	if !totals.StockProfitLoss.Equal(dec("349.50")) {
		t.Fatalf("stock pl = %s, want 349.50", totals.StockProfitLoss)
	}
	if !totals.Dividends.Equal(dec("24")) {
		t.Fatalf("dividends = %s, want 24", totals.Dividends)
	}
	// 468.50 - 300 + 349.50 + 24
	if !totals.NetProfitLoss.Equal(dec("542")) {
		t.Fatalf("net pl = %s, want 542", totals.NetProfitLoss)
	}
	if totals.DurationDays == nil || *totals.DurationDays != 70 {
		t.Fatalf("duration = %v, want 70", totals.DurationDays)
	}
}

func TestNextLabel(t *testing.T) {
	label, n := NextLabel("AAPL", 2024, 1)
	if label != "AAPL-2024-02" || n != 2 {
		t.Fatalf("label = %s n = %d", label, n)
	}
	label, n = NextLabel("F", 2025, 0)
	if label != "F-2025-01" || n != 1 {
		t.Fatalf("label = %s n = %d", label, n)
	}
}
