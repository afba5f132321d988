package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wheeljournal/internal/models"
	"wheeljournal/internal/repository"
)

type NoteHandler struct {
	Repo repository.Repository
}

func (h *NoteHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/notes")
	g.GET("", h.list)
	g.POST("", h.create)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

type noteRequest struct {
	TradeID    *uint64 `json:"tradeId"`
	SecurityID *uint64 `json:"securityId"`
	NoteType   string  `json:"noteType" binding:"required"`
	NoteDate   string  `json:"noteDate" binding:"required"`
	NoteText   string  `json:"noteText" binding:"required"`
}

var noteTypes = map[string]bool{
	models.NoteIdea:       true,
	models.NoteSetup:      true,
	models.NoteManagement: true,
	models.NoteReview:     true,
}

func (h *NoteHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListNotesParams{
		TradeID:    uint64QueryPtr(c, "trade_id"),
		SecurityID: uint64QueryPtr(c, "security_id"),
		NoteType:   stringQueryPtr(c, "note_type"),
		Limit:      intQuery(c, "limit", 50),
		Offset:     intQuery(c, "offset", 0),
	}
	items, err := h.Repo.ListNotes(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *NoteHandler) create(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	noteType := strings.ToUpper(strings.TrimSpace(req.NoteType))
	if !noteTypes[noteType] {
		Error(c, http.StatusBadRequest, "unknown note type "+noteType, nil)
		return
	}
	noteDate, err := parseDate(req.NoteDate)
	if err != nil {
		Error(c, http.StatusBadRequest, "noteDate: "+err.Error(), nil)
		return
	}
	item := &models.TradeNote{
		TradeID:    req.TradeID,
		SecurityID: req.SecurityID,
		NoteType:   noteType,
		NoteDate:   noteDate,
		NoteText:   req.NoteText,
	}
	if err := h.Repo.InsertNote(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

func (h *NoteHandler) update(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	noteType := strings.ToUpper(strings.TrimSpace(req.NoteType))
	if !noteTypes[noteType] {
		Error(c, http.StatusBadRequest, "unknown note type "+noteType, nil)
		return
	}
	noteDate, err := parseDate(req.NoteDate)
	if err != nil {
		Error(c, http.StatusBadRequest, "noteDate: "+err.Error(), nil)
		return
	}
	item := &models.TradeNote{
		ID:         uint64Param(c, "id"),
		TradeID:    req.TradeID,
		SecurityID: req.SecurityID,
		NoteType:   noteType,
		NoteDate:   noteDate,
		NoteText:   req.NoteText,
	}
	if err := h.Repo.UpdateNote(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

func (h *NoteHandler) delete(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if err := h.Repo.DeleteNote(c.Request.Context(), id); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"deleted": id}, nil)
}
