package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"wheeljournal/internal/models"
	"wheeljournal/internal/repository"
)

type stubCycleStore struct {
	positions  map[uint64]*models.TradePosition
	securities map[uint64]*models.Security
	cycles     map[uint64]*models.WheelCycle
	dividends  []models.Dividend
	nextID     uint64
}

func newStubCycleStore() *stubCycleStore {
	return &stubCycleStore{
		positions: map[uint64]*models.TradePosition{},
		securities: map[uint64]*models.Security{
			1: {ID: 1, Ticker: "AAPL", IsActive: true},
		},
		cycles: map[uint64]*models.WheelCycle{},
		nextID: 1,
	}
}

func (s *stubCycleStore) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (s *stubCycleStore) GetPositionByID(ctx context.Context, id uint64) (*models.TradePosition, error) {
	if p, ok := s.positions[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (s *stubCycleStore) SavePositionTx(ctx context.Context, tx *gorm.DB, item *models.TradePosition) error {
	cp := *item
	s.positions[item.ID] = &cp
	return nil
}

func (s *stubCycleStore) GetSecurityByID(ctx context.Context, id uint64) (*models.Security, error) {
	if sec, ok := s.securities[id]; ok {
		cp := *sec
		return &cp, nil
	}
	return nil, nil
}

func (s *stubCycleStore) GetCycleByID(ctx context.Context, id uint64) (*models.WheelCycle, error) {
	if c, ok := s.cycles[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (s *stubCycleStore) GetActiveCycle(ctx context.Context, depotID, securityID uint64) (*models.WheelCycle, error) {
	for _, c := range s.cycles {
		if c.DepotID == depotID && c.SecurityID == securityID && c.Status == models.CycleActive {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubCycleStore) MaxCycleNumber(ctx context.Context, depotID, securityID uint64, year int) (int, error) {
	max := 0
	for _, c := range s.cycles {
		if c.DepotID == depotID && c.SecurityID == securityID && c.Year == year && c.CycleNumber > max {
			max = c.CycleNumber
		}
	}
	return max, nil
}

func (s *stubCycleStore) InsertCycleTx(ctx context.Context, tx *gorm.DB, item *models.WheelCycle) error {
	item.ID = s.nextID
	s.nextID++
	cp := *item
	s.cycles[item.ID] = &cp
	return nil
}

func (s *stubCycleStore) SaveCycleTx(ctx context.Context, tx *gorm.DB, item *models.WheelCycle) error {
	cp := *item
	s.cycles[item.ID] = &cp
	return nil
}

func (s *stubCycleStore) ListPositionsByCycleID(ctx context.Context, cycleID uint64) ([]models.TradePosition, error) {
	var out []models.TradePosition
	for _, p := range s.positions {
		if p.WheelCycleID != nil && *p.WheelCycleID == cycleID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *stubCycleStore) ListActiveCycleIDs(ctx context.Context) ([]uint64, error) {
	var out []uint64
	for id, c := range s.cycles {
		if c.Status == models.CycleActive {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *stubCycleStore) ListDividends(ctx context.Context, params repository.ListDividendsParams) ([]models.Dividend, error) {
	var out []models.Dividend
	for _, d := range s.dividends {
		if params.WheelCycleID != nil && (d.WheelCycleID == nil || *d.WheelCycleID != *params.WheelCycleID) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func cycleDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func cycleDec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func seedShortPut(store *stubCycleStore, id uint64) *models.TradePosition {
	strike := cycleDec("100")
	premium := cycleDec("2.00")
	net := cycleDec("199.50")
	pos := &models.TradePosition{
		ID:                 id,
		DepotID:            1,
		SecurityID:         1,
		PositionType:       models.PositionShortPut,
		Status:             models.StatusOpen,
		StrikePrice:        &strike,
		PremiumPerContract: &premium,
		NetPremium:         &net,
		Quantity:           -1,
		OpenDate:           cycleDate(2024, time.January, 15),
		CommissionOpen:     cycleDec("0.50"),
	}
	store.positions[id] = pos
	return pos
}

func TestAssignCycleCreatesForUnlinkedShortPut(t *testing.T) {
	store := newStubCycleStore()
	seedShortPut(store, 10)
	svc := NewCycleService(store, nil)

	cycle, err := svc.AssignCycle(context.Background(), 10)
	if err != nil {
		t.Fatalf("AssignCycle: %v", err)
	}
	if cycle == nil {
		t.Fatal("expected a new cycle")
	}
	if cycle.Label != "AAPL-2024-01" {
		t.Fatalf("label = %s, want AAPL-2024-01", cycle.Label)
	}
	if cycle.Status != models.CycleActive {
		t.Fatalf("status = %s, want ACTIVE", cycle.Status)
	}
	pos := store.positions[10]
	if pos.WheelCycleID == nil || *pos.WheelCycleID != cycle.ID {
		t.Fatal("position not linked to the new cycle")
	}
}

func TestAssignCycleJoinsActiveCycle(t *testing.T) {
	store := newStubCycleStore()
	store.cycles[7] = &models.WheelCycle{
		ID: 7, DepotID: 1, SecurityID: 1, CycleNumber: 1, Year: 2024,
		Label: "AAPL-2024-01", Status: models.CycleActive,
		StartDate: cycleDate(2024, time.January, 2),
	}
	store.nextID = 8
	seedShortPut(store, 11)
	svc := NewCycleService(store, nil)

	cycle, err := svc.AssignCycle(context.Background(), 11)
	if err != nil {
		t.Fatalf("AssignCycle: %v", err)
	}
	if cycle == nil || cycle.ID != 7 {
		t.Fatalf("expected join of cycle 7, got %+v", cycle)
	}
	if len(store.cycles) != 1 {
		t.Fatalf("cycles = %d, want 1", len(store.cycles))
	}
}

func TestAssignCycleSkipsLoneCoveredCall(t *testing.T) {
	store := newStubCycleStore()
	pos := seedShortPut(store, 12)
	pos.PositionType = models.PositionShortCall
	svc := NewCycleService(store, nil)

	cycle, err := svc.AssignCycle(context.Background(), 12)
	if err != nil {
		t.Fatalf("AssignCycle: %v", err)
	}
	if cycle != nil {
		t.Fatalf("expected no cycle for a covered call without an active cycle, got %+v", cycle)
	}
	if len(store.cycles) != 0 {
		t.Fatal("no cycle should have been created")
	}
}

func TestRefreshCompletesCycle(t *testing.T) {
	store := newStubCycleStore()
	store.cycles[3] = &models.WheelCycle{
		ID: 3, DepotID: 1, SecurityID: 1, CycleNumber: 1, Year: 2024,
		Label: "AAPL-2024-01", Status: models.CycleActive,
		StartDate: cycleDate(2024, time.January, 15),
	}
	store.nextID = 4

	pos := seedShortPut(store, 20)
	cycleID := uint64(3)
	closeDate := cycleDate(2024, time.February, 16)
	closeType := models.CloseExpired
	pl := cycleDec("199.50")
	pos.WheelCycleID = &cycleID
	pos.Status = models.StatusClosed
	pos.CloseDate = &closeDate
	pos.CloseType = &closeType
	pos.RealizedPL = &pl

	svc := NewCycleService(store, nil)
	cycle, err := svc.Refresh(context.Background(), 3)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if cycle.Status != models.CycleCompleted {
		t.Fatalf("status = %s, want COMPLETED", cycle.Status)
	}
	if !cycle.TotalPremiumCollected.Equal(cycleDec("199.50")) {
		t.Fatalf("premium = %s, want 199.50", cycle.TotalPremiumCollected)
	}
	if !cycle.NetProfitLoss.Equal(cycleDec("199.50")) {
		t.Fatalf("net pl = %s, want 199.50", cycle.NetProfitLoss)
	}
	if cycle.EndDate == nil || !cycle.EndDate.Equal(closeDate) {
		t.Fatalf("end date = %v, want %s", cycle.EndDate, closeDate)
	}
	if cycle.DurationDays == nil || *cycle.DurationDays != 32 {
		t.Fatalf("duration = %v, want 32", cycle.DurationDays)
	}
}
