package service

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"wheeljournal/internal/domain"
	"wheeljournal/internal/models"
	"wheeljournal/internal/repository"
	"wheeljournal/internal/wheel"
)

// CycleStore is the repository slice the cycle service works through.
type CycleStore interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	GetPositionByID(ctx context.Context, id uint64) (*models.TradePosition, error)
	SavePositionTx(ctx context.Context, tx *gorm.DB, item *models.TradePosition) error
	GetSecurityByID(ctx context.Context, id uint64) (*models.Security, error)
	GetCycleByID(ctx context.Context, id uint64) (*models.WheelCycle, error)
	GetActiveCycle(ctx context.Context, depotID, securityID uint64) (*models.WheelCycle, error)
	MaxCycleNumber(ctx context.Context, depotID, securityID uint64, year int) (int, error)
	InsertCycleTx(ctx context.Context, tx *gorm.DB, item *models.WheelCycle) error
	SaveCycleTx(ctx context.Context, tx *gorm.DB, item *models.WheelCycle) error
	ListPositionsByCycleID(ctx context.Context, cycleID uint64) ([]models.TradePosition, error)
	ListActiveCycleIDs(ctx context.Context) ([]uint64, error)
	ListDividends(ctx context.Context, params repository.ListDividendsParams) ([]models.Dividend, error)
}

type CycleService struct {
	Repo   CycleStore
	Logger *zap.Logger
}

func NewCycleService(repo CycleStore, logger *zap.Logger) *CycleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CycleService{Repo: repo, Logger: logger}
}

// AssignCycle attaches a freshly opened position to the depot+ticker's
// active cycle, creating one when an unlinked short put starts a new
// traversal. Roll and assignment successors inherit the cycle inside
// the lifecycle engine, so this only runs for root positions.
func (s *CycleService) AssignCycle(ctx context.Context, tradeID uint64) (*models.WheelCycle, error) {
	pos, err := s.Repo.GetPositionByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return nil, domain.NotFoundf("position %d", tradeID)
	}
	if pos.WheelCycleID != nil {
		return s.Repo.GetCycleByID(ctx, *pos.WheelCycleID)
	}

	cycle, err := s.Repo.GetActiveCycle(ctx, pos.DepotID, pos.SecurityID)
	if err != nil {
		return nil, err
	}

	if cycle == nil {
		if pos.PositionType != models.PositionShortPut || pos.RolledFromTradeID != nil {
			// Only an unlinked short put may start a cycle.
			return nil, nil
		}
		sec, err := s.Repo.GetSecurityByID(ctx, pos.SecurityID)
		if err != nil {
			return nil, err
		}
		if sec == nil {
			return nil, domain.NotFoundf("security %d", pos.SecurityID)
		}
		year := pos.OpenDate.Year()
		last, err := s.Repo.MaxCycleNumber(ctx, pos.DepotID, pos.SecurityID, year)
		if err != nil {
			return nil, err
		}
		label, number := wheel.NextLabel(sec.Ticker, year, last)
		cycle = &models.WheelCycle{
			DepotID:     pos.DepotID,
			SecurityID:  pos.SecurityID,
			CycleNumber: number,
			Year:        year,
			Label:       label,
			StartDate:   pos.OpenDate,
			Status:      models.CycleActive,
		}
	}

	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if cycle.ID == 0 {
			if err := s.Repo.InsertCycleTx(ctx, tx, cycle); err != nil {
				return err
			}
		}
		pos.WheelCycleID = &cycle.ID
		return s.Repo.SavePositionTx(ctx, tx, pos)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("position attached to cycle",
		zap.Uint64("trade_id", pos.ID),
		zap.String("cycle", cycle.Label))
	return cycle, nil
}

// Refresh recomputes one cycle's totals and status from its members.
func (s *CycleService) Refresh(ctx context.Context, cycleID uint64) (*models.WheelCycle, error) {
	cycle, err := s.Repo.GetCycleByID(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, domain.NotFoundf("wheel cycle %d", cycleID)
	}

	members, err := s.Repo.ListPositionsByCycleID(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return cycle, nil
	}
	dividends, err := s.Repo.ListDividends(ctx, repository.ListDividendsParams{WheelCycleID: &cycleID, Limit: 500})
	if err != nil {
		return nil, err
	}

	view := wheel.FromMembers(members, dividends)
	totals := wheel.ComputeTotals(view)

	cycle.Status = view.Status
	cycle.StartDate = view.StartDate
	cycle.EndDate = view.EndDate
	cycle.TotalPremiumCollected = totals.PremiumCollected
	cycle.TotalBuybackCost = totals.BuybackCost
	cycle.TotalCommissions = totals.Commissions
	cycle.TotalDividends = totals.Dividends
	cycle.StockProfitLoss = totals.StockProfitLoss
	cycle.NetProfitLoss = totals.NetProfitLoss
	cycle.DurationDays = totals.DurationDays

	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		return s.Repo.SaveCycleTx(ctx, tx, cycle)
	})
	if err != nil {
		return nil, err
	}
	return cycle, nil
}

// RefreshActive recomputes every active cycle, returning how many were
// touched. Run by the cycle refresh cron job and after imports.
func (s *CycleService) RefreshActive(ctx context.Context) (int, error) {
	ids, err := s.Repo.ListActiveCycleIDs(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if _, err := s.Refresh(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}
