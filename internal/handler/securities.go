package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wheeljournal/internal/models"
	"wheeljournal/internal/repository"
)

type SecurityHandler struct {
	Repo repository.Repository
}

func (h *SecurityHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/securities")
	g.GET("", h.list)
	g.POST("", h.upsert)
	g.GET("/:id", h.get)
}

type securityRequest struct {
	Ticker   string `json:"ticker" binding:"required"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Sector   string `json:"sector"`
	Industry string `json:"industry"`
	Currency string `json:"currency"`
	IsActive *bool  `json:"isActive"`
}

func (h *SecurityHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListSecuritiesParams{
		Ticker:     stringQueryPtr(c, "ticker"),
		ActiveOnly: boolQueryDefault(c, "active_only", false),
		Limit:      intQuery(c, "limit", 50),
		Offset:     intQuery(c, "offset", 0),
	}
	items, err := h.Repo.ListSecurities(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *SecurityHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	item, err := h.Repo.GetSecurityByID(c.Request.Context(), uint64Param(c, "id"))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "security not found", nil)
		return
	}
	Ok(c, item, nil)
}

func (h *SecurityHandler) upsert(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req securityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	item := &models.Security{
		Ticker:   strings.ToUpper(strings.TrimSpace(req.Ticker)),
		Name:     req.Name,
		Exchange: req.Exchange,
		Sector:   req.Sector,
		Industry: req.Industry,
		Currency: strings.ToUpper(strings.TrimSpace(req.Currency)),
		IsActive: true,
	}
	if item.Currency == "" {
		item.Currency = "USD"
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}
	if err := h.Repo.UpsertSecurity(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}
