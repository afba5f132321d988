package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"wheeljournal/internal/lifecycle"
	"wheeljournal/internal/models"
	"wheeljournal/internal/repository"
	"wheeljournal/internal/service"
)

type PositionHandler struct {
	Repo      repository.Repository
	Positions *service.PositionService
}

func (h *PositionHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/positions")
	g.GET("", h.list)
	g.POST("", h.open)
	g.GET("/:id", h.get)
	g.GET("/:id/chain", h.chain)
	g.POST("/:id/close", h.close)
	g.POST("/:id/roll", h.roll)
	g.POST("/:id/assign", h.assign)
	g.POST("/:id/archive", h.archive)
}

type openPositionRequest struct {
	DepotID      uint64 `json:"depotId" binding:"required"`
	SecurityID   uint64 `json:"securityId" binding:"required"`
	PositionType string `json:"positionType" binding:"required"`

	StrikePrice        *decimal.Decimal `json:"strikePrice"`
	ExpirationDate     string           `json:"expirationDate"`
	PremiumPerContract *decimal.Decimal `json:"premiumPerContract"`

	Shares       int              `json:"shares"`
	CostPerShare *decimal.Decimal `json:"costPerShare"`

	Quantity       int              `json:"quantity" binding:"required"`
	OpenDate       string           `json:"openDate" binding:"required"`
	CommissionOpen *decimal.Decimal `json:"commissionOpen"`
	OpenSnapshot   json.RawMessage  `json:"openSnapshot"`

	CoveredByStockID *uint64 `json:"coveredByStockId"`
	BrokerTradeID    string  `json:"brokerTradeId"`
}

type closePositionRequest struct {
	CloseType       string           `json:"closeType" binding:"required"`
	CloseDate       string           `json:"closeDate" binding:"required"`
	ClosePrice      *decimal.Decimal `json:"closePrice"`
	CommissionClose *decimal.Decimal `json:"commissionClose"`
}

type rollPositionRequest struct {
	RollDate          string           `json:"rollDate" binding:"required"`
	BuybackPrice      decimal.Decimal  `json:"buybackPrice" binding:"required"`
	BuybackCommission *decimal.Decimal `json:"buybackCommission"`

	NewStrike         decimal.Decimal  `json:"newStrike" binding:"required"`
	NewExpirationDate string           `json:"newExpirationDate" binding:"required"`
	NewPremium        decimal.Decimal  `json:"newPremium" binding:"required"`
	NewCommission     *decimal.Decimal `json:"newCommission"`
}

type assignPositionRequest struct {
	AssignmentDate string           `json:"assignmentDate" binding:"required"`
	Commission     *decimal.Decimal `json:"commission"`
}

func (h *PositionHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	orderBy := parseOrder(strings.TrimSpace(c.Query("order_by")), map[string]string{
		"open_date":       "open_date",
		"close_date":      "close_date",
		"expiration_date": "expiration_date",
		"created_at":      "created_at",
	})
	if orderBy == "" {
		orderBy = "open_date"
	}
	asc := strings.EqualFold(strings.TrimSpace(c.Query("order")), "asc")

	params := repository.ListPositionsParams{
		DepotID:         uint64QueryPtr(c, "depot_id"),
		SecurityID:      uint64QueryPtr(c, "security_id"),
		Status:          stringQueryPtr(c, "status"),
		PositionType:    stringQueryPtr(c, "position_type"),
		WheelCycleID:    uint64QueryPtr(c, "cycle_id"),
		OpenedSince:     dateQueryPtr(c, "opened_since"),
		OpenedUntil:     dateQueryPtr(c, "opened_until"),
		IncludeArchived: boolQueryDefault(c, "include_archived", false),
		Limit:           limit,
		Offset:          offset,
		OrderBy:         orderBy,
		Asc:             boolPtr(asc),
	}
	items, err := h.Repo.ListPositions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountPositions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

func (h *PositionHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	item, err := h.Repo.GetPositionByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "position not found", nil)
		return
	}
	transactions, err := h.Repo.ListTransactionsByTradeID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"position": item, "transactions": transactions}, nil)
}

func (h *PositionHandler) chain(c *gin.Context) {
	if h.Positions == nil {
		Error(c, http.StatusInternalServerError, "position service unavailable", nil)
		return
	}
	view, err := h.Positions.Chain(c.Request.Context(), uint64Param(c, "id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	Ok(c, view, nil)
}

func (h *PositionHandler) open(c *gin.Context) {
	if h.Positions == nil {
		Error(c, http.StatusInternalServerError, "position service unavailable", nil)
		return
	}
	var req openPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	openDate, err := parseDate(req.OpenDate)
	if err != nil {
		Error(c, http.StatusBadRequest, "openDate: "+err.Error(), nil)
		return
	}
	in := lifecycle.OpenInput{
		DepotID:          req.DepotID,
		SecurityID:       req.SecurityID,
		PositionType:     strings.ToUpper(strings.TrimSpace(req.PositionType)),
		Shares:           req.Shares,
		Quantity:         req.Quantity,
		OpenDate:         openDate,
		OpenSnapshot:     datatypes.JSON(req.OpenSnapshot),
		CoveredByStockID: req.CoveredByStockID,
		BrokerTradeID:    req.BrokerTradeID,
	}
	if req.StrikePrice != nil {
		in.StrikePrice = *req.StrikePrice
	}
	if req.PremiumPerContract != nil {
		in.PremiumPerContract = *req.PremiumPerContract
	}
	if req.CostPerShare != nil {
		in.CostPerShare = *req.CostPerShare
	}
	if req.CommissionOpen != nil {
		in.CommissionOpen = *req.CommissionOpen
	}
	if req.ExpirationDate != "" {
		exp, err := parseDate(req.ExpirationDate)
		if err != nil {
			Error(c, http.StatusBadRequest, "expirationDate: "+err.Error(), nil)
			return
		}
		in.ExpirationDate = exp
	}
	pos, err := h.Positions.Open(c.Request.Context(), in)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	Ok(c, pos, nil)
}

func (h *PositionHandler) close(c *gin.Context) {
	if h.Positions == nil {
		Error(c, http.StatusInternalServerError, "position service unavailable", nil)
		return
	}
	var req closePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	closeDate, err := parseDate(req.CloseDate)
	if err != nil {
		Error(c, http.StatusBadRequest, "closeDate: "+err.Error(), nil)
		return
	}
	in := lifecycle.CloseInput{
		CloseType:  strings.ToUpper(strings.TrimSpace(req.CloseType)),
		CloseDate:  closeDate,
		ClosePrice: req.ClosePrice,
	}
	if req.CommissionClose != nil {
		in.CommissionClose = *req.CommissionClose
	}
	pos, err := h.Positions.Close(c.Request.Context(), uint64Param(c, "id"), in)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	Ok(c, pos, nil)
}

func (h *PositionHandler) roll(c *gin.Context) {
	if h.Positions == nil {
		Error(c, http.StatusInternalServerError, "position service unavailable", nil)
		return
	}
	var req rollPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	rollDate, err := parseDate(req.RollDate)
	if err != nil {
		Error(c, http.StatusBadRequest, "rollDate: "+err.Error(), nil)
		return
	}
	newExpiration, err := parseDate(req.NewExpirationDate)
	if err != nil {
		Error(c, http.StatusBadRequest, "newExpirationDate: "+err.Error(), nil)
		return
	}
	in := lifecycle.RollInput{
		RollDate:          rollDate,
		BuybackPrice:      req.BuybackPrice,
		NewStrike:         req.NewStrike,
		NewExpirationDate: newExpiration,
		NewPremium:        req.NewPremium,
	}
	if req.BuybackCommission != nil {
		in.BuybackCommission = *req.BuybackCommission
	}
	if req.NewCommission != nil {
		in.NewCommission = *req.NewCommission
	}
	res, err := h.Positions.Roll(c.Request.Context(), uint64Param(c, "id"), in)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	Ok(c, gin.H{"closedId": res.ClosedID, "newId": res.NewID}, nil)
}

func (h *PositionHandler) assign(c *gin.Context) {
	if h.Positions == nil {
		Error(c, http.StatusInternalServerError, "position service unavailable", nil)
		return
	}
	var req assignPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	assignmentDate, err := parseDate(req.AssignmentDate)
	if err != nil {
		Error(c, http.StatusBadRequest, "assignmentDate: "+err.Error(), nil)
		return
	}
	in := lifecycle.AssignInput{AssignmentDate: assignmentDate}
	if req.Commission != nil {
		in.Commission = *req.Commission
	}
	stockID, err := h.Positions.Assign(c.Request.Context(), uint64Param(c, "id"), in)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	Ok(c, gin.H{"stockPositionId": stockID}, nil)
}

func (h *PositionHandler) archive(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	item, err := h.Repo.GetPositionByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "position not found", nil)
		return
	}
	if item.Status == models.StatusOpen {
		Error(c, http.StatusConflict, "open positions cannot be archived", nil)
		return
	}
	if err := h.Repo.ArchivePosition(c.Request.Context(), id); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"archived": id}, nil)
}

func parseDate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(value))
}
