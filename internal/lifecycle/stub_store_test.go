package lifecycle

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"wheeljournal/internal/models"
)

// stubStore is a test-only in-memory Store. InTx snapshots the position
// map and restores it when fn fails, mimicking a rollback.
type stubStore struct {
	depots       map[uint64]models.Depot
	securities   map[uint64]models.Security
	positions    map[uint64]models.TradePosition
	transactions []models.TradeTransaction
	nextID       uint64

	failInsertPosition bool
}

func newStubStore() *stubStore {
	s := &stubStore{
		depots:     map[uint64]models.Depot{},
		securities: map[uint64]models.Security{},
		positions:  map[uint64]models.TradePosition{},
		nextID:     1,
	}
	s.depots[1] = models.Depot{ID: 1, Name: "main", Currency: "USD"}
	s.securities[1] = models.Security{ID: 1, Ticker: "AAPL"}
	return s
}

func (s *stubStore) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	snapshot := make(map[uint64]models.TradePosition, len(s.positions))
	for k, v := range s.positions {
		snapshot[k] = v
	}
	txnLen := len(s.transactions)
	if err := fn(nil); err != nil {
		s.positions = snapshot
		s.transactions = s.transactions[:txnLen]
		return err
	}
	return nil
}

func (s *stubStore) GetDepotByID(ctx context.Context, id uint64) (*models.Depot, error) {
	if d, ok := s.depots[id]; ok {
		return &d, nil
	}
	return nil, nil
}

func (s *stubStore) GetSecurityByID(ctx context.Context, id uint64) (*models.Security, error) {
	if sec, ok := s.securities[id]; ok {
		return &sec, nil
	}
	return nil, nil
}

func (s *stubStore) GetPositionByID(ctx context.Context, id uint64) (*models.TradePosition, error) {
	if p, ok := s.positions[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (s *stubStore) InsertPositionTx(ctx context.Context, tx *gorm.DB, item *models.TradePosition) error {
	if s.failInsertPosition {
		return errors.New("insert failed")
	}
	item.ID = s.nextID
	s.nextID++
	s.positions[item.ID] = *item
	return nil
}

func (s *stubStore) SavePositionTx(ctx context.Context, tx *gorm.DB, item *models.TradePosition) error {
	s.positions[item.ID] = *item
	return nil
}

func (s *stubStore) InsertTransactionTx(ctx context.Context, tx *gorm.DB, item *models.TradeTransaction) error {
	item.ID = s.nextID
	s.nextID++
	s.transactions = append(s.transactions, *item)
	return nil
}
