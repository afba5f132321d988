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

type ScreeningHandler struct {
	Repo      repository.Repository
	Screening *service.ScreeningService
}

func (h *ScreeningHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/screening")
	g.GET("/profiles", h.listProfiles)
	g.POST("/profiles", h.createProfile)
	g.GET("/profiles/:id", h.getProfile)
	g.PUT("/profiles/:id", h.updateProfile)
	g.DELETE("/profiles/:id", h.deleteProfile)
	g.POST("/profiles/:id/criteria", h.addCriterion)
	g.DELETE("/criteria/:id", h.deleteCriterion)
	g.POST("/profiles/:id/run", h.run)
	g.GET("/snapshots/:id", h.snapshot)
}

type profileRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Timeframe   string `json:"timeframe"`
}

type criterionRequest struct {
	IndicatorType string `json:"indicatorType" binding:"required"`
	IsActive      *bool  `json:"isActive"`

	ParamPeriod  *int             `json:"paramPeriod"`
	ParamPeriod2 *int             `json:"paramPeriod2"`
	ParamPeriod3 *int             `json:"paramPeriod3"`
	ParamStdDev  *decimal.Decimal `json:"paramStdDev"`

	Operator      string           `json:"operator" binding:"required"`
	Value1        *decimal.Decimal `json:"value1"`
	Value2        *decimal.Decimal `json:"value2"`
	PositionValue *string          `json:"positionValue"`

	SortOrder int `json:"sortOrder"`
}

func (h *ScreeningHandler) listProfiles(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListProfiles(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *ScreeningHandler) getProfile(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	profile, err := h.Repo.GetProfileByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if profile == nil {
		Error(c, http.StatusNotFound, "profile not found", nil)
		return
	}
	criteria, err := h.Repo.ListCriteriaByProfileID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"profile": profile, "criteria": criteria}, nil)
}

func (h *ScreeningHandler) createProfile(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	item := &models.ScreeningProfile{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Timeframe:   strings.ToUpper(strings.TrimSpace(req.Timeframe)),
	}
	if item.Timeframe == "" {
		item.Timeframe = models.TimeframeDaily
	}
	if item.Timeframe != models.TimeframeDaily && item.Timeframe != models.TimeframeWeekly {
		Error(c, http.StatusBadRequest, "timeframe must be D or W", nil)
		return
	}
	if err := h.Repo.InsertProfile(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

func (h *ScreeningHandler) updateProfile(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	item, err := h.Repo.GetProfileByID(c.Request.Context(), uint64Param(c, "id"))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "profile not found", nil)
		return
	}
	if item.IsSystemTemplate {
		Error(c, http.StatusConflict, "system templates are read-only", nil)
		return
	}
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	item.Name = strings.TrimSpace(req.Name)
	item.Description = req.Description
	if v := strings.ToUpper(strings.TrimSpace(req.Timeframe)); v != "" {
		if v != models.TimeframeDaily && v != models.TimeframeWeekly {
			Error(c, http.StatusBadRequest, "timeframe must be D or W", nil)
			return
		}
		item.Timeframe = v
	}
	if err := h.Repo.UpdateProfile(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

func (h *ScreeningHandler) deleteProfile(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	item, err := h.Repo.GetProfileByID(c.Request.Context(), uint64Param(c, "id"))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "profile not found", nil)
		return
	}
	if item.IsSystemTemplate {
		Error(c, http.StatusConflict, "system templates are read-only", nil)
		return
	}
	if err := h.Repo.DeleteProfile(c.Request.Context(), item.ID); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"deleted": item.ID}, nil)
}

func (h *ScreeningHandler) addCriterion(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	profile, err := h.Repo.GetProfileByID(c.Request.Context(), uint64Param(c, "id"))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if profile == nil {
		Error(c, http.StatusNotFound, "profile not found", nil)
		return
	}
	var req criterionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	item := &models.ScreeningCriterion{
		ProfileID:     profile.ID,
		IndicatorType: strings.ToUpper(strings.TrimSpace(req.IndicatorType)),
		IsActive:      true,
		ParamPeriod:   req.ParamPeriod,
		ParamPeriod2:  req.ParamPeriod2,
		ParamPeriod3:  req.ParamPeriod3,
		ParamStdDev:   req.ParamStdDev,
		Operator:      strings.ToUpper(strings.TrimSpace(req.Operator)),
		Value1:        req.Value1,
		Value2:        req.Value2,
		PositionValue: req.PositionValue,
		SortOrder:     req.SortOrder,
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}
	if err := h.Repo.InsertCriterion(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

func (h *ScreeningHandler) deleteCriterion(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	if err := h.Repo.DeleteCriterion(c.Request.Context(), uint64Param(c, "id")); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"deleted": uint64Param(c, "id")}, nil)
}

func (h *ScreeningHandler) run(c *gin.Context) {
	if h.Screening == nil {
		Error(c, http.StatusInternalServerError, "screening service unavailable", nil)
		return
	}
	results, err := h.Screening.RunProfile(c.Request.Context(), uint64Param(c, "id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	matched := 0
	for _, r := range results {
		if r.Pass {
			matched++
		}
	}
	Ok(c, results, map[string]any{"evaluated": len(results), "matched": matched})
}

func (h *ScreeningHandler) snapshot(c *gin.Context) {
	if h.Screening == nil {
		Error(c, http.StatusInternalServerError, "screening service unavailable", nil)
		return
	}
	timeframe := strings.ToUpper(strings.TrimSpace(c.DefaultQuery("timeframe", models.TimeframeDaily)))
	if timeframe != models.TimeframeDaily && timeframe != models.TimeframeWeekly {
		Error(c, http.StatusBadRequest, "timeframe must be D or W", nil)
		return
	}
	snap, err := h.Screening.LatestSnapshot(c.Request.Context(), uint64Param(c, "id"), timeframe)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	Ok(c, snap, nil)
}
