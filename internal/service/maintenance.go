package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"wheeljournal/internal/lifecycle"
	"wheeljournal/internal/models"
	"wheeljournal/internal/repository"
)

// MaintenanceStore is the repository slice the background jobs read.
type MaintenanceStore interface {
	ListOpenOptionsExpiringBy(ctx context.Context, cutoff time.Time) ([]models.TradePosition, error)
	ListSecurities(ctx context.Context, params repository.ListSecuritiesParams) ([]models.Security, error)
}

// MaintenanceService hosts the cron-driven jobs: closing expired
// options, refreshing cycle totals and pre-warming indicator snapshots.
type MaintenanceService struct {
	Repo      MaintenanceStore
	Engine    *lifecycle.Engine
	Cycles    *CycleService
	Screening *ScreeningService
	Logger    *zap.Logger
}

func NewMaintenanceService(repo MaintenanceStore, engine *lifecycle.Engine, cycles *CycleService, screening *ScreeningService, logger *zap.Logger) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceService{
		Repo:      repo,
		Engine:    engine,
		Cycles:    cycles,
		Screening: screening,
		Logger:    logger,
	}
}

// ExpirationSweep closes every open option whose expiration date has
// passed, dated at the expiration itself. Returns the number closed.
func (s *MaintenanceService) ExpirationSweep(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.AddDate(0, 0, -1)
	expired, err := s.Repo.ListOpenOptionsExpiringBy(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, pos := range expired {
		_, err := s.Engine.Close(ctx, pos.ID, lifecycle.CloseInput{
			CloseType: models.CloseExpired,
			CloseDate: *pos.ExpirationDate,
		})
		if err != nil {
			s.Logger.Error("expiration sweep: close failed",
				zap.Uint64("trade_id", pos.ID), zap.Error(err))
			continue
		}
		closed++
	}
	if closed > 0 {
		s.Logger.Info("expiration sweep finished", zap.Int("closed", closed))
		if _, err := s.Cycles.RefreshActive(ctx); err != nil {
			return closed, err
		}
	}
	return closed, nil
}

// WarmSnapshots recomputes the latest daily and weekly snapshot of
// every active security so interactive screening hits the cache.
func (s *MaintenanceService) WarmSnapshots(ctx context.Context) error {
	securities, err := s.Repo.ListSecurities(ctx, repository.ListSecuritiesParams{ActiveOnly: true, Limit: 500})
	if err != nil {
		return err
	}
	for _, sec := range securities {
		for _, timeframe := range []string{models.TimeframeDaily, models.TimeframeWeekly} {
			if _, err := s.Screening.LatestSnapshot(ctx, sec.ID, timeframe); err != nil {
				s.Logger.Warn("snapshot warmup failed",
					zap.String("ticker", sec.Ticker),
					zap.String("timeframe", timeframe),
					zap.Error(err))
			}
		}
	}
	return nil
}
