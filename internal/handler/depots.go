package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"wheeljournal/internal/models"
	"wheeljournal/internal/repository"
	"wheeljournal/internal/service"
)

type DepotHandler struct {
	Repo    repository.Repository
	Summary *service.SummaryService
}

func (h *DepotHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/depots")
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.POST("/:id/archive", h.archive)
	g.GET("/:id/summary", h.summary)
}

type depotRequest struct {
	Name                  string           `json:"name" binding:"required"`
	BrokerName            string           `json:"brokerName"`
	AccountNumber         string           `json:"accountNumber"`
	Description           string           `json:"description"`
	Currency              string           `json:"currency"`
	IsDefault             bool             `json:"isDefault"`
	IncludeCommissionInPL *bool            `json:"includeCommissionInPl"`
	WithholdingTaxPct     *decimal.Decimal `json:"withholdingTaxPct"`
}

func (h *DepotHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListDepots(c.Request.Context(), boolQueryDefault(c, "include_archived", false))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *DepotHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	item, err := h.Repo.GetDepotByID(c.Request.Context(), uint64Param(c, "id"))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "depot not found", nil)
		return
	}
	Ok(c, item, nil)
}

func (h *DepotHandler) create(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req depotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	item := &models.Depot{
		Name:                  strings.TrimSpace(req.Name),
		BrokerName:            req.BrokerName,
		AccountNumber:         req.AccountNumber,
		Description:           req.Description,
		Currency:              strings.ToUpper(strings.TrimSpace(req.Currency)),
		IsDefault:             req.IsDefault,
		IncludeCommissionInPL: true,
	}
	if item.Currency == "" {
		item.Currency = "USD"
	}
	if req.IncludeCommissionInPL != nil {
		item.IncludeCommissionInPL = *req.IncludeCommissionInPL
	}
	if req.WithholdingTaxPct != nil {
		item.WithholdingTaxPct = *req.WithholdingTaxPct
	}
	if err := h.Repo.InsertDepot(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

func (h *DepotHandler) update(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	item, err := h.Repo.GetDepotByID(c.Request.Context(), uint64Param(c, "id"))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "depot not found", nil)
		return
	}
	var req depotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	item.Name = strings.TrimSpace(req.Name)
	item.BrokerName = req.BrokerName
	item.AccountNumber = req.AccountNumber
	item.Description = req.Description
	if v := strings.ToUpper(strings.TrimSpace(req.Currency)); v != "" {
		item.Currency = v
	}
	item.IsDefault = req.IsDefault
	if req.IncludeCommissionInPL != nil {
		item.IncludeCommissionInPL = *req.IncludeCommissionInPL
	}
	if req.WithholdingTaxPct != nil {
		item.WithholdingTaxPct = *req.WithholdingTaxPct
	}
	if err := h.Repo.UpdateDepot(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

// archive soft-hides a depot. Depots with trade history are never
// deleted; archiving keeps cycles and chains resolvable.
func (h *DepotHandler) archive(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	item, err := h.Repo.GetDepotByID(c.Request.Context(), uint64Param(c, "id"))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "depot not found", nil)
		return
	}
	openStatus := models.StatusOpen
	open, err := h.Repo.CountPositions(c.Request.Context(), repository.ListPositionsParams{
		DepotID: &item.ID,
		Status:  &openStatus,
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if open > 0 {
		Error(c, http.StatusConflict, "depot has open positions", nil)
		return
	}
	item.IsArchived = true
	item.IsDefault = false
	if err := h.Repo.UpdateDepot(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

func (h *DepotHandler) summary(c *gin.Context) {
	if h.Summary == nil {
		Error(c, http.StatusInternalServerError, "summary service unavailable", nil)
		return
	}
	out, err := h.Summary.Compute(c.Request.Context(), uint64Param(c, "id"), time.Now().UTC())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	Ok(c, out, nil)
}
