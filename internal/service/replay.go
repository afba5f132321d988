package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"wheeljournal/internal/domain"
	"wheeljournal/internal/indicator"
	"wheeljournal/internal/models"
)

// ReplayStore is the repository slice chart replay needs.
type ReplayStore interface {
	GetSecurityByID(ctx context.Context, id uint64) (*models.Security, error)
	ListDailyPrices(ctx context.Context, securityID uint64, until time.Time, limit int) ([]models.DailyPrice, error)
	GetReplaySessionBySecurityID(ctx context.Context, securityID uint64) (*models.ReplaySession, error)
	UpsertReplaySession(ctx context.Context, item *models.ReplaySession) error
}

// ReplayService drives bar-by-bar chart replay. The cursor only ever
// sees indicators computed from bars at or before it.
type ReplayService struct {
	Repo        ReplayStore
	Logger      *zap.Logger
	Params      indicator.SnapshotParams
	HistoryBars int
}

func NewReplayService(repo ReplayStore, params indicator.SnapshotParams, historyBars int, logger *zap.Logger) *ReplayService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if historyBars <= 0 {
		historyBars = 400
	}
	return &ReplayService{Repo: repo, Logger: logger, Params: params, HistoryBars: historyBars}
}

// ReplayWindow is the visible chart state at the replay cursor.
type ReplayWindow struct {
	SecurityID uint64             `json:"securityId"`
	Timeframe  string             `json:"timeframe"`
	Cursor     time.Time          `json:"cursor"`
	AtEnd      bool               `json:"atEnd"`
	Bars       []indicator.Bar    `json:"bars"`
	Snapshot   indicator.Snapshot `json:"snapshot"`
}

// Window computes the replay view at an explicit cursor date and saves
// it as the security's session.
func (s *ReplayService) Window(ctx context.Context, securityID uint64, timeframe string, cursor time.Time, viewport int) (*ReplayWindow, error) {
	bars, err := s.loadBars(ctx, securityID, timeframe)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, domain.NotFoundf("no price history for security %d", securityID)
	}

	at := sort.Search(len(bars), func(i int) bool { return bars[i].Date.After(cursor) }) - 1
	if at < 0 {
		return nil, domain.Validationf("cursor %s is before the first bar", cursor.Format("2006-01-02"))
	}
	return s.buildWindow(ctx, securityID, timeframe, bars, at, viewport)
}

// Step moves the saved session cursor forward (or back) by the given
// number of bars, clamped to the series bounds.
func (s *ReplayService) Step(ctx context.Context, securityID uint64, steps int) (*ReplayWindow, error) {
	session, err := s.Repo.GetReplaySessionBySecurityID(ctx, securityID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.NotFoundf("replay session for security %d", securityID)
	}

	bars, err := s.loadBars(ctx, securityID, session.Timeframe)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, domain.NotFoundf("no price history for security %d", securityID)
	}

	at := sort.Search(len(bars), func(i int) bool { return bars[i].Date.After(session.CursorDate) }) - 1
	at += steps
	if at < 0 {
		at = 0
	}
	if at >= len(bars) {
		at = len(bars) - 1
	}
	return s.buildWindow(ctx, securityID, session.Timeframe, bars, at, session.ViewportSize)
}

func (s *ReplayService) buildWindow(ctx context.Context, securityID uint64, timeframe string, bars []indicator.Bar, at, viewport int) (*ReplayWindow, error) {
	if viewport <= 0 {
		viewport = 100
	}
	from := at - viewport + 1
	if from < 0 {
		from = 0
	}

	w := &ReplayWindow{
		SecurityID: securityID,
		Timeframe:  timeframe,
		Cursor:     bars[at].Date,
		AtEnd:      at == len(bars)-1,
		Bars:       bars[from : at+1],
		Snapshot:   indicator.ComputeSnapshot(bars, at, s.Params),
	}

	err := s.Repo.UpsertReplaySession(ctx, &models.ReplaySession{
		SecurityID:   securityID,
		CursorDate:   w.Cursor,
		Timeframe:    timeframe,
		ViewportSize: viewport,
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (s *ReplayService) loadBars(ctx context.Context, securityID uint64, timeframe string) ([]indicator.Bar, error) {
	sec, err := s.Repo.GetSecurityByID(ctx, securityID)
	if err != nil {
		return nil, err
	}
	if sec == nil {
		return nil, domain.NotFoundf("security %d", securityID)
	}
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
