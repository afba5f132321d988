package rollchain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"wheeljournal/internal/domain"
	"wheeljournal/internal/models"
)

type stubStore struct {
	positions map[uint64]models.TradePosition
}

func (s *stubStore) GetPositionByID(ctx context.Context, id uint64) (*models.TradePosition, error) {
	if p, ok := s.positions[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func dec(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func put(id uint64, rolledFrom *uint64, strike, premium string, openDate, expiration time.Time) models.TradePosition {
	strikeD := dec(strike)
	premiumD := dec(premium)
	return models.TradePosition{
		ID:                 id,
		PositionType:       models.PositionShortPut,
		Quantity:           -1,
		StrikePrice:        &strikeD,
		PremiumPerContract: &premiumD,
		OpenDate:           openDate,
		ExpirationDate:     &expiration,
		CommissionOpen:     dec("0.50"),
		RolledFromTradeID:  rolledFrom,
	}
}

func chainStore() *stubStore {
	p0 := put(1, nil, "100", "2.00", date(2024, 1, 5), date(2024, 1, 19))
	p1 := put(2, &p0.ID, "100", "1.50", date(2024, 1, 19), date(2024, 2, 2))
	p2 := put(3, &p1.ID, "97.50", "1.80", date(2024, 2, 2), date(2024, 2, 16))
	return &stubStore{positions: map[uint64]models.TradePosition{1: p0, 2: p1, 3: p2}}
}

func TestResolveOrdersOldestFirst(t *testing.T) {
	r := NewResolver(chainStore())

	chain, err := r.Resolve(context.Background(), 3)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(chain) != 3 {
		t.Fatalf("chain length = %d, want 3", len(chain))
	}
	for i, wantID := range []uint64{1, 2, 3} {
		if chain[i].ID != wantID {
			t.Fatalf("chain[%d].ID = %d, want %d", i, chain[i].ID, wantID)
		}
	}
}

func TestResolveUnknownID(t *testing.T) {
	r := NewResolver(chainStore())
	if _, err := r.Resolve(context.Background(), 404); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestResolveBrokenChain(t *testing.T) {
	store := chainStore()
	delete(store.positions, 2)
	r := NewResolver(store)
	if _, err := r.Resolve(context.Background(), 3); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not found for missing predecessor", err)
	}
}

func TestAggregateChain(t *testing.T) {
	r := NewResolver(chainStore())
	chain, err := r.Resolve(context.Background(), 3)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	m := Aggregate(chain)
	if m.RollCount != 2 {
		t.Fatalf("roll count = %d, want 2", m.RollCount)
	}
	// 200 + 150 + 180
	if !m.TotalPremium.Equal(dec("530")) {
		t.Fatalf("total premium = %s, want 530", m.TotalPremium)
	}
	if !m.TotalFees.Equal(dec("1.50")) {
		t.Fatalf("total fees = %s, want 1.50", m.TotalFees)
	}

	// Capital at risk on the last leg: 97.50 * 100 = 9750.
	if m.RoR == nil {
		t.Fatalf("RoR must be defined for an option chain")
	}
	wantRoR := dec("528.50").Div(dec("9750")).Mul(dec("100"))
	if !m.RoR.Equal(wantRoR) {
		t.Fatalf("RoR = %s, want %s", m.RoR, wantRoR)
	}

	// Jan 5 to Feb 16 is 42 days, 6 weeks.
	if m.WRoR == nil {
		t.Fatalf("WRoR must be defined")
	}
	if !m.WRoR.Equal(wantRoR.Div(dec("6"))) {
		t.Fatalf("WRoR = %s, want %s", m.WRoR, wantRoR.Div(dec("6")))
	}
}

func TestAggregateStockHasNoRoR(t *testing.T) {
	shares := 100
	cost := dec("98")
	stock := models.TradePosition{
		ID:           7,
		PositionType: models.PositionLongStock,
		Quantity:     100,
		Shares:       &shares,
		CostPerShare: &cost,
		OpenDate:     date(2024, 2, 16),
	}
	m := Aggregate([]models.TradePosition{stock})
	if m.RoR != nil || m.WRoR != nil {
		t.Fatalf("stock positions must not produce RoR/WRoR, got %+v", m)
	}
	if m.RollCount != 0 {
		t.Fatalf("roll count = %d, want 0", m.RollCount)
	}
}

func TestAggregateSingleLeg(t *testing.T) {
	p := put(1, nil, "50", "1.00", date(2024, 3, 1), date(2024, 3, 1))
	m := Aggregate([]models.TradePosition{p})
	if m.RollCount != 0 {
		t.Fatalf("roll count = %d, want 0", m.RollCount)
	}
	// Zero weeks elapsed: WRoR undefined, RoR still defined.
	if m.RoR == nil || m.WRoR != nil {
		t.Fatalf("metrics = %+v", m)
	}
}
