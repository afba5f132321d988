package service

import (
	"context"

	"go.uber.org/zap"

	"wheeljournal/internal/lifecycle"
	"wheeljournal/internal/models"
	"wheeljournal/internal/rollchain"
)

// PositionService couples the lifecycle engine with cycle bookkeeping:
// every mutation keeps the owning wheel cycle's totals current.
type PositionService struct {
	Engine   *lifecycle.Engine
	Resolver *rollchain.Resolver
	Cycles   *CycleService
	Logger   *zap.Logger
}

func NewPositionService(engine *lifecycle.Engine, resolver *rollchain.Resolver, cycles *CycleService, logger *zap.Logger) *PositionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PositionService{Engine: engine, Resolver: resolver, Cycles: cycles, Logger: logger}
}

func (s *PositionService) Open(ctx context.Context, in lifecycle.OpenInput) (*models.TradePosition, error) {
	pos, err := s.Engine.Open(ctx, in)
	if err != nil {
		return nil, err
	}
	cycle, err := s.Cycles.AssignCycle(ctx, pos.ID)
	if err != nil {
		return nil, err
	}
	if cycle != nil {
		pos.WheelCycleID = &cycle.ID
		if _, err := s.Cycles.Refresh(ctx, cycle.ID); err != nil {
			return nil, err
		}
	}
	return pos, nil
}

func (s *PositionService) Close(ctx context.Context, tradeID uint64, in lifecycle.CloseInput) (*models.TradePosition, error) {
	pos, err := s.Engine.Close(ctx, tradeID, in)
	if err != nil {
		return nil, err
	}
	if err := s.refreshCycleOf(ctx, pos); err != nil {
		return nil, err
	}
	return pos, nil
}

func (s *PositionService) Roll(ctx context.Context, tradeID uint64, in lifecycle.RollInput) (lifecycle.RollResult, error) {
	res, err := s.Engine.Roll(ctx, tradeID, in)
	if err != nil {
		return lifecycle.RollResult{}, err
	}
	pos, err := s.Engine.Repo.GetPositionByID(ctx, res.NewID)
	if err != nil {
		return res, err
	}
	if err := s.refreshCycleOf(ctx, pos); err != nil {
		return res, err
	}
	return res, nil
}

func (s *PositionService) Assign(ctx context.Context, tradeID uint64, in lifecycle.AssignInput) (uint64, error) {
	stockID, err := s.Engine.Assign(ctx, tradeID, in)
	if err != nil {
		return 0, err
	}
	stock, err := s.Engine.Repo.GetPositionByID(ctx, stockID)
	if err != nil {
		return stockID, err
	}
	if err := s.refreshCycleOf(ctx, stock); err != nil {
		return stockID, err
	}
	return stockID, nil
}

// ChainView is a resolved roll chain plus its aggregate metrics.
type ChainView struct {
	Positions []models.TradePosition `json:"positions"`
	Metrics   rollchain.Metrics      `json:"metrics"`
}

func (s *PositionService) Chain(ctx context.Context, tradeID uint64) (*ChainView, error) {
	chain, err := s.Resolver.Resolve(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	return &ChainView{Positions: chain, Metrics: rollchain.Aggregate(chain)}, nil
}

func (s *PositionService) refreshCycleOf(ctx context.Context, pos *models.TradePosition) error {
	if pos == nil || pos.WheelCycleID == nil {
		return nil
	}
	_, err := s.Cycles.Refresh(ctx, *pos.WheelCycleID)
	return err
}
