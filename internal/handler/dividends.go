package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"wheeljournal/internal/models"
	"wheeljournal/internal/repository"
	"wheeljournal/internal/service"
)

type DividendHandler struct {
	Repo   repository.Repository
	Cycles *service.CycleService
}

func (h *DividendHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/dividends")
	g.GET("", h.list)
	g.POST("", h.create)
}

type dividendRequest struct {
	DepotID         uint64  `json:"depotId" binding:"required"`
	SecurityID      uint64  `json:"securityId" binding:"required"`
	StockPositionID *uint64 `json:"stockPositionId"`

	ExDividendDate string `json:"exDividendDate" binding:"required"`
	PaymentDate    string `json:"paymentDate"`

	SharesHeld       int              `json:"sharesHeld" binding:"required"`
	DividendPerShare decimal.Decimal  `json:"dividendPerShare" binding:"required"`
	WithholdingTax   *decimal.Decimal `json:"withholdingTax"`

	Currency            string `json:"currency"`
	BrokerTransactionID string `json:"brokerTransactionId"`
}

func (h *DividendHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListDividendsParams{
		DepotID:      uint64QueryPtr(c, "depot_id"),
		SecurityID:   uint64QueryPtr(c, "security_id"),
		WheelCycleID: uint64QueryPtr(c, "cycle_id"),
		Since:        dateQueryPtr(c, "since"),
		Until:        dateQueryPtr(c, "until"),
		Limit:        intQuery(c, "limit", 50),
		Offset:       intQuery(c, "offset", 0),
	}
	items, err := h.Repo.ListDividends(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

// create records a dividend. Gross is derived from shares and per-share
// amount; withholding defaults to the depot's configured rate. When the
// payment lands on a stock position inside a wheel cycle, the dividend
// is attributed to that cycle and the cycle totals are refreshed.
func (h *DividendHandler) create(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req dividendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if req.SharesHeld <= 0 {
		Error(c, http.StatusBadRequest, "sharesHeld must be positive", nil)
		return
	}
	exDate, err := parseDate(req.ExDividendDate)
	if err != nil {
		Error(c, http.StatusBadRequest, "exDividendDate: "+err.Error(), nil)
		return
	}

	depot, err := h.Repo.GetDepotByID(c.Request.Context(), req.DepotID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if depot == nil {
		Error(c, http.StatusNotFound, "depot not found", nil)
		return
	}

	gross := req.DividendPerShare.Mul(decimal.NewFromInt(int64(req.SharesHeld)))
	withholding := gross.Mul(depot.WithholdingTaxPct).Div(decimal.NewFromInt(100))
	if req.WithholdingTax != nil {
		withholding = *req.WithholdingTax
	}

	item := &models.Dividend{
		DepotID:             req.DepotID,
		SecurityID:          req.SecurityID,
		StockPositionID:     req.StockPositionID,
		ExDividendDate:      exDate,
		SharesHeld:          req.SharesHeld,
		DividendPerShare:    req.DividendPerShare,
		GrossAmount:         gross,
		WithholdingTax:      withholding,
		NetAmount:           gross.Sub(withholding),
		Currency:            strings.ToUpper(strings.TrimSpace(req.Currency)),
		BrokerTransactionID: req.BrokerTransactionID,
	}
	if item.Currency == "" {
		item.Currency = depot.Currency
	}
	if req.PaymentDate != "" {
		payDate, err := parseDate(req.PaymentDate)
		if err != nil {
			Error(c, http.StatusBadRequest, "paymentDate: "+err.Error(), nil)
			return
		}
		item.PaymentDate = &payDate
	}
	if req.StockPositionID != nil {
		stock, err := h.Repo.GetPositionByID(c.Request.Context(), *req.StockPositionID)
		if err != nil {
			Error(c, http.StatusBadGateway, err.Error(), nil)
			return
		}
		if stock == nil {
			Error(c, http.StatusNotFound, "stock position not found", nil)
			return
		}
		item.WheelCycleID = stock.WheelCycleID
	}

	if err := h.Repo.InsertDividend(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item.WheelCycleID != nil && h.Cycles != nil {
		if _, err := h.Cycles.Refresh(c.Request.Context(), *item.WheelCycleID); err != nil {
			writeDomainError(c, err)
			return
		}
	}
	Ok(c, item, nil)
}
