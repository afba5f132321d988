package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"wheeljournal/internal/models"
	"wheeljournal/internal/repository"
)

// SummaryStore is the repository slice the dashboard reads.
type SummaryStore interface {
	ListPositions(ctx context.Context, params repository.ListPositionsParams) ([]models.TradePosition, error)
	CountPositions(ctx context.Context, params repository.ListPositionsParams) (int64, error)
	ListCycles(ctx context.Context, params repository.ListCyclesParams) ([]models.WheelCycle, error)
	ListDividends(ctx context.Context, params repository.ListDividendsParams) ([]models.Dividend, error)
}

type SummaryService struct {
	Repo   SummaryStore
	Logger *zap.Logger
}

func NewSummaryService(repo SummaryStore, logger *zap.Logger) *SummaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryService{Repo: repo, Logger: logger}
}

// Summary is the depot dashboard header.
type Summary struct {
	DepotID       uint64          `json:"depotId"`
	Year          int             `json:"year"`
	OpenPositions int64           `json:"openPositions"`
	OpenPremium   decimal.Decimal `json:"openPremium"`
	PremiumYTD    decimal.Decimal `json:"premiumYtd"`
	RealizedPLYTD decimal.Decimal `json:"realizedPlYtd"`
	DividendsYTD  decimal.Decimal `json:"dividendsYtd"`
	ActiveCycles  int             `json:"activeCycles"`
	ClosedYTD     int             `json:"closedYtd"`
	ExpiringIn7d  int             `json:"expiringIn7d"`

	// Share of closed positions this year with positive realized P/L.
	// Nil until something has closed.
	WinRatePct *decimal.Decimal `json:"winRatePct,omitempty"`

	AsOf time.Time `json:"asOf"`
}

// Compute builds the year-to-date dashboard numbers for one depot.
func (s *SummaryService) Compute(ctx context.Context, depotID uint64, now time.Time) (*Summary, error) {
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	out := &Summary{DepotID: depotID, Year: now.Year(), AsOf: now}

	openStatus := models.StatusOpen
	open, err := s.Repo.ListPositions(ctx, repository.ListPositionsParams{
		DepotID: &depotID,
		Status:  &openStatus,
		Limit:   500,
	})
	if err != nil {
		return nil, err
	}
	out.OpenPositions = int64(len(open))
	weekOut := now.AddDate(0, 0, 7)
	for _, p := range open {
		if p.NetPremium != nil {
			out.OpenPremium = out.OpenPremium.Add(*p.NetPremium)
		}
		if p.ExpirationDate != nil && !p.ExpirationDate.After(weekOut) {
			out.ExpiringIn7d++
		}
	}

	yearPositions, err := s.Repo.ListPositions(ctx, repository.ListPositionsParams{
		DepotID:     &depotID,
		OpenedSince: &yearStart,
		Limit:       500,
	})
	if err != nil {
		return nil, err
	}
	wins := 0
	for _, p := range yearPositions {
		if p.NetPremium != nil {
			out.PremiumYTD = out.PremiumYTD.Add(*p.NetPremium)
		}
		if p.Status == models.StatusClosed {
			out.ClosedYTD++
			if p.RealizedPL != nil {
				out.RealizedPLYTD = out.RealizedPLYTD.Add(*p.RealizedPL)
				if p.RealizedPL.IsPositive() {
					wins++
				}
			}
		}
	}
	if out.ClosedYTD > 0 {
		rate := decimal.NewFromInt(int64(wins)).
			Div(decimal.NewFromInt(int64(out.ClosedYTD))).
			Mul(decimal.NewFromInt(100))
		out.WinRatePct = &rate
	}

	activeStatus := models.CycleActive
	cycles, err := s.Repo.ListCycles(ctx, repository.ListCyclesParams{
		DepotID: &depotID,
		Status:  &activeStatus,
		Limit:   500,
	})
	if err != nil {
		return nil, err
	}
	out.ActiveCycles = len(cycles)

	dividends, err := s.Repo.ListDividends(ctx, repository.ListDividendsParams{
		DepotID: &depotID,
		Since:   &yearStart,
		Limit:   500,
	})
	if err != nil {
		return nil, err
	}
	for _, d := range dividends {
		out.DividendsYTD = out.DividendsYTD.Add(d.NetAmount)
	}
	return out, nil
}
