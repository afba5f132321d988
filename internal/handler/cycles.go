package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wheeljournal/internal/repository"
	"wheeljournal/internal/service"
)

type CycleHandler struct {
	Repo   repository.Repository
	Cycles *service.CycleService
}

func (h *CycleHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/cycles")
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.POST("/:id/refresh", h.refresh)
	g.POST("/refresh", h.refreshActive)
}

func (h *CycleHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListCyclesParams{
		DepotID:    uint64QueryPtr(c, "depot_id"),
		SecurityID: uint64QueryPtr(c, "security_id"),
		Status:     stringQueryPtr(c, "status"),
		Year:       intQueryPtr(c, "year"),
		Limit:      intQuery(c, "limit", 50),
		Offset:     intQuery(c, "offset", 0),
	}
	items, err := h.Repo.ListCycles(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *CycleHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	cycle, err := h.Repo.GetCycleByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if cycle == nil {
		Error(c, http.StatusNotFound, "cycle not found", nil)
		return
	}
	members, err := h.Repo.ListPositionsByCycleID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	dividends, err := h.Repo.ListDividends(c.Request.Context(), repository.ListDividendsParams{WheelCycleID: &id})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"cycle": cycle, "positions": members, "dividends": dividends}, nil)
}

func (h *CycleHandler) refresh(c *gin.Context) {
	if h.Cycles == nil {
		Error(c, http.StatusInternalServerError, "cycle service unavailable", nil)
		return
	}
	cycle, err := h.Cycles.Refresh(c.Request.Context(), uint64Param(c, "id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	Ok(c, cycle, nil)
}

func (h *CycleHandler) refreshActive(c *gin.Context) {
	if h.Cycles == nil {
		Error(c, http.StatusInternalServerError, "cycle service unavailable", nil)
		return
	}
	refreshed, err := h.Cycles.RefreshActive(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	Ok(c, gin.H{"refreshed": refreshed}, nil)
}
