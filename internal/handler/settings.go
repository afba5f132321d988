package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wheeljournal/internal/repository"
)

type SettingsHandler struct {
	Repo repository.Repository
}

func (h *SettingsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/settings")
	g.GET("", h.list)
	g.GET("/:key", h.get)
	g.PUT("/:key", h.put)
}

type settingRequest struct {
	Value string `json:"value" binding:"required"`
}

func (h *SettingsHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListSettings(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *SettingsHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	item, err := h.Repo.GetSetting(c.Request.Context(), strings.TrimSpace(c.Param("key")))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "setting not found", nil)
		return
	}
	Ok(c, item, nil)
}

func (h *SettingsHandler) put(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		Error(c, http.StatusBadRequest, "key is required", nil)
		return
	}
	var req settingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Repo.UpsertSetting(c.Request.Context(), key, req.Value); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"key": key, "value": req.Value}, nil)
}
