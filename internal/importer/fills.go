// Package importer ingests broker fills and OHLCV price files.
package importer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"wheeljournal/internal/models"
)

// AggregatedFill is one logical order assembled from raw broker fills.
// The raw fills stay attached for the audit trail.
type AggregatedFill struct {
	BrokerOrderID string
	Quantity      int
	AveragePrice  decimal.Decimal
	Commission    decimal.Decimal
	FirstFillAt   time.Time
	Fills         []models.PartialFill
}

// AggregateFills merges fills that share a broker order id. Fills
// without an order id are grouped by symbol, strike, expiration and
// side on the same trading day. The average price is quantity-weighted.
func AggregateFills(fills []models.PartialFill) []AggregatedFill {
	groups := make(map[string][]models.PartialFill)
	for _, f := range fills {
		groups[groupKey(f)] = append(groups[groupKey(f)], f)
	}

	out := make([]AggregatedFill, 0, len(groups))
	for _, group := range groups {
		sort.Slice(group, func(i, j int) bool {
			return group[i].FilledAt.Before(group[j].FilledAt)
		})

		agg := AggregatedFill{
			BrokerOrderID: group[0].BrokerOrderID,
			FirstFillAt:   group[0].FilledAt,
			Fills:         group,
		}
		weighted := decimal.Zero
		for _, f := range group {
			agg.Quantity += f.FillQuantity
			agg.Commission = agg.Commission.Add(f.FillCommission)
			weighted = weighted.Add(f.FillPrice.Mul(decimal.NewFromInt(int64(f.FillQuantity))))
		}
		if agg.Quantity != 0 {
			agg.AveragePrice = weighted.Div(decimal.NewFromInt(int64(agg.Quantity)))
		}
		out = append(out, agg)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].FirstFillAt.Equal(out[j].FirstFillAt) {
			return out[i].FirstFillAt.Before(out[j].FirstFillAt)
		}
		return out[i].BrokerOrderID < out[j].BrokerOrderID
	})
	return out
}

func groupKey(f models.PartialFill) string {
	if id := strings.TrimSpace(f.BrokerOrderID); id != "" {
		return "order:" + id
	}
	strike := ""
	if f.Strike != nil {
		strike = f.Strike.String()
	}
	expiration := ""
	if f.ExpirationDate != nil {
		expiration = f.ExpirationDate.Format("2006-01-02")
	}
	return fmt.Sprintf("leg:%s|%s|%s|%s|%s",
		strings.ToUpper(f.Symbol),
		strike,
		expiration,
		strings.ToUpper(f.Side),
		f.FilledAt.Format("2006-01-02"))
}
