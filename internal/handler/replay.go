package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"wheeljournal/internal/models"
	"wheeljournal/internal/repository"
	"wheeljournal/internal/service"
)

type ReplayHandler struct {
	Repo   repository.Repository
	Replay *service.ReplayService
}

func (h *ReplayHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/replay")
	g.GET("/:id", h.window)
	g.POST("/:id/step", h.step)

	charts := r.Group("/api/v1/charts")
	charts.GET("/:id/bars", h.bars)
}

type stepRequest struct {
	Steps int `json:"steps"`
}

// window opens (or re-anchors) a replay session at an explicit cursor
// date. Without a cursor the session starts at the latest bar.
func (h *ReplayHandler) window(c *gin.Context) {
	if h.Replay == nil {
		Error(c, http.StatusInternalServerError, "replay service unavailable", nil)
		return
	}
	timeframe := strings.ToUpper(strings.TrimSpace(c.DefaultQuery("timeframe", models.TimeframeDaily)))
	if timeframe != models.TimeframeDaily && timeframe != models.TimeframeWeekly {
		Error(c, http.StatusBadRequest, "timeframe must be D or W", nil)
		return
	}
	cursor := time.Now().UTC()
	if v := dateQueryPtr(c, "cursor"); v != nil {
		cursor = *v
	}
	w, err := h.Replay.Window(c.Request.Context(), uint64Param(c, "id"), timeframe, cursor, intQuery(c, "viewport", 0))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	Ok(c, w, nil)
}

func (h *ReplayHandler) step(c *gin.Context) {
	if h.Replay == nil {
		Error(c, http.StatusInternalServerError, "replay service unavailable", nil)
		return
	}
	var req stepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if req.Steps == 0 {
		req.Steps = 1
	}
	w, err := h.Replay.Step(c.Request.Context(), uint64Param(c, "id"), req.Steps)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	Ok(c, w, nil)
}

func (h *ReplayHandler) bars(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	until := time.Time{}
	if v := dateQueryPtr(c, "until"); v != nil {
		until = *v
	}
	prices, err := h.Repo.ListDailyPrices(c.Request.Context(), uint64Param(c, "id"), until, intQuery(c, "limit", 500))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, prices, nil)
}
