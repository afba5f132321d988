package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"wheeljournal/internal/domain"
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

func shortPutInput() OpenInput {
	return OpenInput{
		DepotID:            1,
		SecurityID:         1,
		PositionType:       models.PositionShortPut,
		StrikePrice:        dec("100"),
		ExpirationDate:     date(2024, 2, 16),
		PremiumPerContract: dec("2.00"),
		Quantity:           -1,
		OpenDate:           date(2024, 1, 15),
		CommissionOpen:     dec("0.50"),
	}
}

func TestOpenShortPutDerivedFields(t *testing.T) {
	store := newStubStore()
	eng := NewEngine(store, nil)

	pos, err := eng.Open(context.Background(), shortPutInput())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if pos.Status != models.StatusOpen {
		t.Fatalf("status = %s", pos.Status)
	}
	if !pos.TotalPremium.Equal(dec("200")) {
		t.Fatalf("total premium = %s, want 200", pos.TotalPremium)
	}
	if !pos.NetPremium.Equal(dec("199.50")) {
		t.Fatalf("net premium = %s, want 199.50", pos.NetPremium)
	}
	if !pos.BreakEven.Equal(dec("98")) {
		t.Fatalf("break even = %s, want 98", pos.BreakEven)
	}
	if *pos.DTEAtOpen != 32 {
		t.Fatalf("dte = %d, want 32", *pos.DTEAtOpen)
	}
	if len(store.transactions) != 1 || store.transactions[0].TransactionType != models.TxnOpen {
		t.Fatalf("transactions = %+v", store.transactions)
	}
}

func TestOpenShortCallBreakEven(t *testing.T) {
	store := newStubStore()
	eng := NewEngine(store, nil)

	in := shortPutInput()
	in.PositionType = models.PositionShortCall
	pos, err := eng.Open(context.Background(), in)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !pos.BreakEven.Equal(dec("102")) {
		t.Fatalf("break even = %s, want 102", pos.BreakEven)
	}
}

func TestOpenValidation(t *testing.T) {
	store := newStubStore()
	eng := NewEngine(store, nil)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*OpenInput)
	}{
		{"zero quantity", func(in *OpenInput) { in.Quantity = 0 }},
		{"non-positive strike", func(in *OpenInput) { in.StrikePrice = dec("0") }},
		{"positive short quantity", func(in *OpenInput) { in.Quantity = 1 }},
		{"missing expiration", func(in *OpenInput) { in.ExpirationDate = time.Time{} }},
		{"unknown type", func(in *OpenInput) { in.PositionType = "SPREAD" }},
	}
	for _, tc := range cases {
		in := shortPutInput()
		tc.mutate(&in)
		if _, err := eng.Open(ctx, in); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%s: err = %v, want validation error", tc.name, err)
		}
	}

	in := shortPutInput()
	in.DepotID = 99
	if _, err := eng.Open(ctx, in); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown depot: err = %v, want not found", err)
	}
}

func TestCloseExpired(t *testing.T) {
	store := newStubStore()
	eng := NewEngine(store, nil)
	ctx := context.Background()

	pos, _ := eng.Open(ctx, shortPutInput())
	closed, err := eng.Close(ctx, pos.ID, CloseInput{
		CloseType: models.CloseExpired,
		CloseDate: date(2024, 2, 16),
	})
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed.Status != models.StatusClosed || *closed.CloseType != models.CloseExpired {
		t.Fatalf("closed = %+v", closed)
	}
	if !closed.RealizedPL.Equal(dec("199.50")) {
		t.Fatalf("realized pl = %s, want 199.50", closed.RealizedPL)
	}
}

func TestCloseBuyback(t *testing.T) {
	store := newStubStore()
	eng := NewEngine(store, nil)
	ctx := context.Background()

	pos, _ := eng.Open(ctx, shortPutInput())
	price := dec("0.75")
	closed, err := eng.Close(ctx, pos.ID, CloseInput{
		CloseType:       models.CloseBuyback,
		CloseDate:       date(2024, 2, 1),
		ClosePrice:      &price,
		CommissionClose: dec("0.50"),
	})
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	// 199.50 - 75 - 0.50
	if !closed.RealizedPL.Equal(dec("124")) {
		t.Fatalf("realized pl = %s, want 124", closed.RealizedPL)
	}
}

func TestCloseBuybackWithoutPrice(t *testing.T) {
	store := newStubStore()
	eng := NewEngine(store, nil)
	ctx := context.Background()

	pos, _ := eng.Open(ctx, shortPutInput())
	_, err := eng.Close(ctx, pos.ID, CloseInput{
		CloseType: models.CloseBuyback,
		CloseDate: date(2024, 2, 1),
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestCloseAlreadyClosed(t *testing.T) {
	store := newStubStore()
	eng := NewEngine(store, nil)
	ctx := context.Background()

	pos, _ := eng.Open(ctx, shortPutInput())
	in := CloseInput{CloseType: models.CloseExpired, CloseDate: date(2024, 2, 16)}
	if _, err := eng.Close(ctx, pos.ID, in); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if _, err := eng.Close(ctx, pos.ID, in); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second close err = %v, want conflict", err)
	}
}

func TestCloseUnknownID(t *testing.T) {
	eng := NewEngine(newStubStore(), nil)
	_, err := eng.Close(context.Background(), 404, CloseInput{
		CloseType: models.CloseExpired,
		CloseDate: date(2024, 2, 16),
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestRoll(t *testing.T) {
	store := newStubStore()
	eng := NewEngine(store, nil)
	ctx := context.Background()

	pos, _ := eng.Open(ctx, shortPutInput())
	res, err := eng.Roll(ctx, pos.ID, RollInput{
		RollDate:          date(2024, 2, 14),
		BuybackPrice:      dec("3.10"),
		BuybackCommission: dec("0.50"),
		NewStrike:         dec("97.50"),
		NewExpirationDate: date(2024, 3, 15),
		NewPremium:        dec("2.80"),
		NewCommission:     dec("0.50"),
	})
	if err != nil {
		t.Fatalf("Roll: %v", err)
	}

	src := store.positions[res.ClosedID]
	if src.Status != models.StatusClosed || *src.CloseType != models.CloseRolled {
		t.Fatalf("source = %+v", src)
	}
	// 199.50 - 310 - 0.50
	if !src.RealizedPL.Equal(dec("-111")) {
		t.Fatalf("source realized pl = %s, want -111", src.RealizedPL)
	}

	next := store.positions[res.NewID]
	if next.Status != models.StatusOpen || *next.RolledFromTradeID != src.ID {
		t.Fatalf("successor = %+v", next)
	}
	if next.Quantity != src.Quantity || next.PositionType != src.PositionType {
		t.Fatalf("successor must keep type and quantity, got %+v", next)
	}
	if !next.StrikePrice.Equal(dec("97.50")) || !next.NetPremium.Equal(dec("279.50")) {
		t.Fatalf("successor strike/net = %s/%s", next.StrikePrice, next.NetPremium)
	}
}

func TestRollAtomicity(t *testing.T) {
	store := newStubStore()
	eng := NewEngine(store, nil)
	ctx := context.Background()

	pos, _ := eng.Open(ctx, shortPutInput())
	store.failInsertPosition = true

	_, err := eng.Roll(ctx, pos.ID, RollInput{
		RollDate:          date(2024, 2, 14),
		BuybackPrice:      dec("3.10"),
		NewStrike:         dec("97.50"),
		NewExpirationDate: date(2024, 3, 15),
		NewPremium:        dec("2.80"),
	})
	if err == nil {
		t.Fatalf("expected roll to fail")
	}

	src := store.positions[pos.ID]
	if src.Status != models.StatusOpen || src.CloseType != nil {
		t.Fatalf("source must be untouched after failed roll, got %+v", src)
	}
	if len(store.positions) != 1 {
		t.Fatalf("no successor may exist after failed roll")
	}
}

func TestRollRejectsExpirationBeforeRollDate(t *testing.T) {
	store := newStubStore()
	eng := NewEngine(store, nil)
	ctx := context.Background()

	pos, _ := eng.Open(ctx, shortPutInput())
	_, err := eng.Roll(ctx, pos.ID, RollInput{
		RollDate:          date(2024, 2, 14),
		BuybackPrice:      dec("3.10"),
		NewStrike:         dec("97.50"),
		NewExpirationDate: date(2024, 2, 14),
		NewPremium:        dec("2.80"),
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestAssign(t *testing.T) {
	store := newStubStore()
	eng := NewEngine(store, nil)
	ctx := context.Background()

	in := shortPutInput()
	in.Quantity = -2
	in.CommissionOpen = dec("1")
	pos, _ := eng.Open(ctx, in)

	stockID, err := eng.Assign(ctx, pos.ID, AssignInput{AssignmentDate: date(2024, 2, 16)})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}

	stock := store.positions[stockID]
	if stock.PositionType != models.PositionLongStock {
		t.Fatalf("stock = %+v", stock)
	}
	if *stock.Shares != 200 {
		t.Fatalf("shares = %d, want 200", *stock.Shares)
	}
	// 100 - (400-1)/200 = 98.005
	if !stock.CostPerShare.Equal(dec("98.005")) {
		t.Fatalf("cost per share = %s, want 98.005", stock.CostPerShare)
	}

	put := store.positions[pos.ID]
	if put.Status != models.StatusClosed || *put.CloseType != models.CloseAssigned {
		t.Fatalf("put = %+v", put)
	}
	if put.AssignedToStockID == nil || *put.AssignedToStockID != stockID {
		t.Fatalf("put must link the stock position, got %+v", put.AssignedToStockID)
	}
}

func TestAssignNonPutFails(t *testing.T) {
	store := newStubStore()
	eng := NewEngine(store, nil)
	ctx := context.Background()

	in := shortPutInput()
	in.PositionType = models.PositionShortCall
	call, _ := eng.Open(ctx, in)

	_, err := eng.Assign(ctx, call.ID, AssignInput{AssignmentDate: date(2024, 2, 16)})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("assigning a call: err = %v, want validation error", err)
	}
}

func TestCloseStockSold(t *testing.T) {
	store := newStubStore()
	eng := NewEngine(store, nil)
	ctx := context.Background()

	in := shortPutInput()
	in.Quantity = -2
	in.CommissionOpen = dec("1")
	pos, _ := eng.Open(ctx, in)
	stockID, _ := eng.Assign(ctx, pos.ID, AssignInput{AssignmentDate: date(2024, 2, 16)})

	price := dec("105")
	closed, err := eng.Close(ctx, stockID, CloseInput{
		CloseType:       models.CloseSold,
		CloseDate:       date(2024, 4, 1),
		ClosePrice:      &price,
		CommissionClose: dec("1"),
	})
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	// (105 - 98.005) * 200 - 1
	if !closed.RealizedPL.Equal(dec("1398")) {
		t.Fatalf("realized pl = %s, want 1398", closed.RealizedPL)
	}
}
