// Package wheel partitions position history into wheel cycles and
// computes cycle-level totals.
package wheel

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"wheeljournal/internal/models"
)

// Cycle is one put -> assignment -> covered call -> exit traversal,
// materialized from the position history of a ticker within a depot.
type Cycle struct {
	Positions []models.TradePosition
	Dividends []models.Dividend
	Status    string
	StartDate time.Time
	EndDate   *time.Time
}

// Partition groups the chronological position history of one
// ticker+depot into cycles. A cycle starts at a short put without a
// roll predecessor and absorbs everything reachable through roll,
// assignment and covered-call links. Positions are returned inside each
// cycle ordered by open date.
func Partition(positions []models.TradePosition, dividends []models.Dividend) []Cycle {
	sorted := make([]models.TradePosition, len(positions))
	copy(sorted, positions)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].OpenDate.Equal(sorted[j].OpenDate) {
			return sorted[i].OpenDate.Before(sorted[j].OpenDate)
		}
		return sorted[i].ID < sorted[j].ID
	})

	claimed := make(map[uint64]bool, len(sorted))
	var cycles []Cycle

	for _, root := range sorted {
		if claimed[root.ID] {
			continue
		}
		if root.PositionType != models.PositionShortPut || root.RolledFromTradeID != nil {
			continue
		}

		members := map[uint64]models.TradePosition{root.ID: root}
		claimed[root.ID] = true

		// Fixed point over the link closure: rolls of members, stock
		// created by assignment, calls covered by member stock.
		for {
			grew := false
			for _, p := range sorted {
				if claimed[p.ID] {
					continue
				}
				if !belongs(p, members) {
					continue
				}
				members[p.ID] = p
				claimed[p.ID] = true
				grew = true
			}
			if !grew {
				break
			}
		}

		cycles = append(cycles, buildCycle(members, dividends))
	}
	return cycles
}

// FromMembers materializes a cycle from an already-assigned member set,
// used when refreshing a persisted cycle instead of re-partitioning.
func FromMembers(positions []models.TradePosition, dividends []models.Dividend) Cycle {
	members := make(map[uint64]models.TradePosition, len(positions))
	for _, p := range positions {
		members[p.ID] = p
	}
	// The caller already scoped the dividends to this cycle.
	c := buildCycle(members, nil)
	c.Dividends = dividends
	return c
}

func belongs(p models.TradePosition, members map[uint64]models.TradePosition) bool {
	if p.RolledFromTradeID != nil {
		if _, ok := members[*p.RolledFromTradeID]; ok {
			return true
		}
	}
	if p.CoveredByStockID != nil {
		if _, ok := members[*p.CoveredByStockID]; ok {
			return true
		}
	}
	for _, m := range members {
		if m.AssignedToStockID != nil && *m.AssignedToStockID == p.ID {
			return true
		}
	}
	return false
}

func buildCycle(members map[uint64]models.TradePosition, dividends []models.Dividend) Cycle {
	c := Cycle{Positions: make([]models.TradePosition, 0, len(members))}
	for _, p := range members {
		c.Positions = append(c.Positions, p)
	}
	sort.Slice(c.Positions, func(i, j int) bool {
		if !c.Positions[i].OpenDate.Equal(c.Positions[j].OpenDate) {
			return c.Positions[i].OpenDate.Before(c.Positions[j].OpenDate)
		}
		return c.Positions[i].ID < c.Positions[j].ID
	})

	c.StartDate = c.Positions[0].OpenDate
	allClosed := true
	var end time.Time
	for _, p := range c.Positions {
		if p.Status != models.StatusClosed {
			allClosed = false
			continue
		}
		if p.CloseDate != nil && p.CloseDate.After(end) {
			end = *p.CloseDate
		}
	}
	if allClosed {
		c.Status = models.CycleCompleted
		if !end.IsZero() {
			endCopy := end
			c.EndDate = &endCopy
		}
	} else {
		c.Status = models.CycleActive
	}

	for _, d := range dividends {
		if d.StockPositionID == nil {
			continue
		}
		if _, ok := members[*d.StockPositionID]; ok {
			c.Dividends = append(c.Dividends, d)
		}
	}
	return c
}

// Totals are the aggregated money fields of one cycle.
type Totals struct {
	PremiumCollected decimal.Decimal
	BuybackCost      decimal.Decimal
	Commissions      decimal.Decimal
	Dividends        decimal.Decimal
	StockProfitLoss  decimal.Decimal
	NetProfitLoss    decimal.Decimal
	DurationDays     *int
}

// ComputeTotals folds a cycle's members into its money totals.
// Net P/L is premium minus buyback cost plus stock P/L plus dividends.
func ComputeTotals(c Cycle) Totals {
	var t Totals
	multiplier := decimal.NewFromInt(models.ContractMultiplier)

	for _, p := range c.Positions {
		t.Commissions = t.Commissions.Add(p.CommissionOpen)
		if p.CommissionClose != nil {
			t.Commissions = t.Commissions.Add(*p.CommissionClose)
		}

		if p.PositionType == models.PositionLongStock {
			if p.Status == models.StatusClosed && p.RealizedPL != nil {
				t.StockProfitLoss = t.StockProfitLoss.Add(*p.RealizedPL)
			}
			continue
		}

		if p.NetPremium != nil {
			t.PremiumCollected = t.PremiumCollected.Add(*p.NetPremium)
		}
		if p.CloseType != nil && p.ClosePrice != nil &&
			(*p.CloseType == models.CloseBuyback || *p.CloseType == models.CloseRolled) {
			contracts := decimal.NewFromInt(int64(abs(p.Quantity)))
			t.BuybackCost = t.BuybackCost.Add(p.ClosePrice.Mul(contracts).Mul(multiplier))
		}
	}

	for _, d := range c.Dividends {
		t.Dividends = t.Dividends.Add(d.NetAmount)
	}

	t.NetProfitLoss = t.PremiumCollected.
		Sub(t.BuybackCost).
		Add(t.StockProfitLoss).
		Add(t.Dividends)

	if c.EndDate != nil {
		days := int(c.EndDate.Sub(c.StartDate).Hours() / 24)
		t.DurationDays = &days
	}
	return t
}

// NextLabel builds the human-readable cycle id, sequential within
// ticker and year: AAPL-2024-02 is the second AAPL cycle of 2024.
func NextLabel(ticker string, year, lastNumber int) (string, int) {
	next := lastNumber + 1
	return fmt.Sprintf("%s-%d-%02d", ticker, year, next), next
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
