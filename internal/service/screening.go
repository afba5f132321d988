// Package service wires the engines to storage for the application
// layer: screening runs, wheel-cycle bookkeeping, chart replay and the
// background maintenance jobs.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"wheeljournal/internal/cache"
	"wheeljournal/internal/domain"
	"wheeljournal/internal/indicator"
	"wheeljournal/internal/models"
	"wheeljournal/internal/repository"
	"wheeljournal/internal/screening"
)

// ScreeningStore is the repository slice the screening service reads.
type ScreeningStore interface {
	GetProfileByID(ctx context.Context, id uint64) (*models.ScreeningProfile, error)
	ListCriteriaByProfileID(ctx context.Context, profileID uint64) ([]models.ScreeningCriterion, error)
	ListSecurities(ctx context.Context, params repository.ListSecuritiesParams) ([]models.Security, error)
	GetSecurityByID(ctx context.Context, id uint64) (*models.Security, error)
	ListDailyPrices(ctx context.Context, securityID uint64, until time.Time, limit int) ([]models.DailyPrice, error)
}

type ScreeningService struct {
	Repo        ScreeningStore
	Cache       *cache.SnapshotCache
	Logger      *zap.Logger
	Params      indicator.SnapshotParams
	HistoryBars int
}

func NewScreeningService(repo ScreeningStore, snapCache *cache.SnapshotCache, params indicator.SnapshotParams, historyBars int, logger *zap.Logger) *ScreeningService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if historyBars <= 0 {
		historyBars = 400
	}
	return &ScreeningService{
		Repo:        repo,
		Cache:       snapCache,
		Logger:      logger,
		Params:      params,
		HistoryBars: historyBars,
	}
}

// ScreeningResult is one ticker's outcome of a profile run.
type ScreeningResult struct {
	SecurityID uint64              `json:"securityId"`
	Ticker     string              `json:"ticker"`
	Pass       bool                `json:"pass"`
	Snapshot   *indicator.Snapshot `json:"snapshot,omitempty"`
}

// RunProfile evaluates a profile against every active security and
// returns the per-ticker outcomes. Tickers without any price history
// are reported as failing.
func (s *ScreeningService) RunProfile(ctx context.Context, profileID uint64) ([]ScreeningResult, error) {
	profile, err := s.Repo.GetProfileByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, domain.NotFoundf("screening profile %d", profileID)
	}
	criteria, err := s.Repo.ListCriteriaByProfileID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	params := screening.ParamsFor(criteria, s.Params)

	securities, err := s.Repo.ListSecurities(ctx, repository.ListSecuritiesParams{ActiveOnly: true, Limit: 500})
	if err != nil {
		return nil, err
	}

	results := make([]ScreeningResult, 0, len(securities))
	for _, sec := range securities {
		res := ScreeningResult{SecurityID: sec.ID, Ticker: sec.Ticker}
		snap, err := s.snapshotFor(ctx, sec, profile.Timeframe, params)
		if err != nil {
			return nil, err
		}
		if snap != nil {
			pass, err := screening.Evaluate(criteria, *snap)
			if err != nil {
				return nil, err
			}
			res.Pass = pass
			res.Snapshot = snap
		}
		results = append(results, res)
	}

	s.Logger.Info("screening profile evaluated",
		zap.Uint64("profile_id", profileID),
		zap.Int("universe", len(results)))
	return results, nil
}

// LatestSnapshot computes (or serves from cache) the newest snapshot of
// one security using the service's default parameters.
func (s *ScreeningService) LatestSnapshot(ctx context.Context, securityID uint64, timeframe string) (*indicator.Snapshot, error) {
	sec, err := s.Repo.GetSecurityByID(ctx, securityID)
	if err != nil {
		return nil, err
	}
	if sec == nil {
		return nil, domain.NotFoundf("security %d", securityID)
	}
	return s.snapshotFor(ctx, *sec, timeframe, s.Params)
}

// snapshotFor returns nil when the security has no price history. The
// cache is only consulted for the default parameter set; widened
// profile parameters always compute fresh.
func (s *ScreeningService) snapshotFor(ctx context.Context, sec models.Security, timeframe string, params indicator.SnapshotParams) (*indicator.Snapshot, error) {
	bars, err := s.loadBars(ctx, sec.ID, timeframe)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, nil
	}
	asOf := bars[len(bars)-1].Date

	cacheable := paramsEqual(params, s.Params)
	if cacheable {
		snap, err := s.Cache.Get(ctx, sec.Ticker, timeframe, asOf)
		if err != nil {
			s.Logger.Warn("snapshot cache read failed", zap.String("ticker", sec.Ticker), zap.Error(err))
		} else if snap != nil {
			return snap, nil
		}
	}

	snap := indicator.ComputeSnapshot(bars, len(bars)-1, params)
	if cacheable {
		if err := s.Cache.Set(ctx, sec.Ticker, timeframe, snap); err != nil {
			s.Logger.Warn("snapshot cache write failed", zap.String("ticker", sec.Ticker), zap.Error(err))
		}
	}
	return &snap, nil
}

func (s *ScreeningService) loadBars(ctx context.Context, securityID uint64, timeframe string) ([]indicator.Bar, error) {
	prices, err := s.Repo.ListDailyPrices(ctx, securityID, time.Time{}, s.HistoryBars)
	if err != nil {
		return nil, err
	}
	bars := toBars(prices)
	if timeframe == models.TimeframeWeekly {
		bars = indicator.ToWeekly(bars)
	}
	return bars, nil
}

func toBars(prices []models.DailyPrice) []indicator.Bar {
	bars := make([]indicator.Bar, len(prices))
	for i, p := range prices {
		bars[i] = indicator.Bar{
			Date:   p.PriceDate,
			Open:   p.Open,
			High:   p.High,
			Low:    p.Low,
			Close:  p.Close,
			Volume: p.Volume,
		}
	}
	return bars
}

func paramsEqual(a, b indicator.SnapshotParams) bool {
	if a.RSIPeriod != b.RSIPeriod || a.BBPeriod != b.BBPeriod || a.BBStdDev != b.BBStdDev {
		return false
	}
	if a.MACDFast != b.MACDFast || a.MACDSlow != b.MACDSlow || a.MACDSignal != b.MACDSignal {
		return false
	}
	if a.VolumeSMAPeriod != b.VolumeSMAPeriod {
		return false
	}
	if len(a.SMAPeriods) != len(b.SMAPeriods) || len(a.EMAPeriods) != len(b.EMAPeriods) {
		return false
	}
	for i := range a.SMAPeriods {
		if a.SMAPeriods[i] != b.SMAPeriods[i] {
			return false
		}
	}
	for i := range a.EMAPeriods {
		if a.EMAPeriods[i] != b.EMAPeriods[i] {
			return false
		}
	}
	return true
}
