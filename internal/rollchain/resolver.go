// Package rollchain reconstructs chains of rolled positions and
// aggregates return metrics over them.
package rollchain

import (
	"context"

	"github.com/shopspring/decimal"

	"wheeljournal/internal/domain"
	"wheeljournal/internal/models"
)

// Store is the read surface the resolver walks. Satisfied by
// repository.Repository.
type Store interface {
	GetPositionByID(ctx context.Context, id uint64) (*models.TradePosition, error)
}

type Resolver struct {
	Repo Store
}

func NewResolver(repo Store) *Resolver {
	return &Resolver{Repo: repo}
}

// Resolve walks rolled_from_trade_id back-references from the given
// position and returns the chain ordered oldest first, ending at the
// given position. A missing link anywhere in the chain is an error.
func (r *Resolver) Resolve(ctx context.Context, tradeID uint64) ([]models.TradePosition, error) {
	pos, err := r.Repo.GetPositionByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return nil, domain.NotFoundf("position %d", tradeID)
	}

	chain := []models.TradePosition{*pos}
	seen := map[uint64]struct{}{pos.ID: {}}

	for pos.RolledFromTradeID != nil {
		prevID := *pos.RolledFromTradeID
		if _, ok := seen[prevID]; ok {
			return nil, domain.Validationf("roll chain of position %d contains a cycle", tradeID)
		}
		prev, err := r.Repo.GetPositionByID(ctx, prevID)
		if err != nil {
			return nil, err
		}
		if prev == nil {
			return nil, domain.NotFoundf("predecessor %d of position %d", prevID, pos.ID)
		}
		seen[prevID] = struct{}{}
		chain = append([]models.TradePosition{*prev}, chain...)
		pos = prev
	}
	return chain, nil
}

// Metrics aggregates one roll chain. RoR and WRoR are nil when
// undefined, never zero-filled.
type Metrics struct {
	TotalPremium decimal.Decimal
	TotalFees    decimal.Decimal
	RollCount    int

	// Percent of capital at risk on the current leg.
	RoR  *decimal.Decimal
	WRoR *decimal.Decimal
}

var seven = decimal.NewFromInt(7)

// Aggregate computes chain totals and rate of return. The chain must be
// ordered oldest first, as produced by Resolve.
func Aggregate(chain []models.TradePosition) Metrics {
	m := Metrics{RollCount: len(chain) - 1}
	if len(chain) == 0 {
		m.RollCount = 0
		return m
	}

	multiplier := decimal.NewFromInt(models.ContractMultiplier)
	for _, p := range chain {
		if p.PremiumPerContract != nil {
			contracts := decimal.NewFromInt(int64(absInt(p.Quantity)))
			m.TotalPremium = m.TotalPremium.Add(p.PremiumPerContract.Mul(contracts).Mul(multiplier))
		}
		m.TotalFees = m.TotalFees.Add(p.CommissionOpen)
		if p.CommissionClose != nil {
			m.TotalFees = m.TotalFees.Add(*p.CommissionClose)
		}
	}

	last := chain[len(chain)-1]
	if !last.IsOption() || last.StrikePrice == nil {
		return m
	}
	contracts := decimal.NewFromInt(int64(absInt(last.Quantity)))
	capital := last.StrikePrice.Mul(multiplier).Mul(contracts)
	if capital.Sign() <= 0 {
		return m
	}
	ror := m.TotalPremium.Sub(m.TotalFees).Div(capital).Mul(decimal.NewFromInt(100))
	m.RoR = &ror

	if last.ExpirationDate == nil {
		return m
	}
	days := last.ExpirationDate.Sub(chain[0].OpenDate).Hours() / 24
	if days <= 0 {
		return m
	}
	weeks := decimal.NewFromFloat(days).Div(seven)
	wror := ror.Div(weeks)
	m.WRoR = &wror
	return m
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
