package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"wheeljournal/internal/importer"
	"wheeljournal/internal/models"
	"wheeljournal/internal/repository"
)

type ImportHandler struct {
	Repo     repository.Repository
	Importer *importer.Service
}

func (h *ImportHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/imports")
	g.GET("", h.listBatches)
	g.GET("/:reference", h.getBatch)
	g.POST("/prices", h.importPrices)
	g.POST("/fills", h.importFills)
}

type fillRequest struct {
	FilledAt       time.Time        `json:"filledAt" binding:"required"`
	FillQuantity   int              `json:"fillQuantity" binding:"required"`
	FillPrice      decimal.Decimal  `json:"fillPrice" binding:"required"`
	FillCommission *decimal.Decimal `json:"fillCommission"`

	BrokerOrderID     string `json:"brokerOrderId"`
	BrokerExecutionID string `json:"brokerExecutionId"`

	Symbol         string           `json:"symbol"`
	Strike         *decimal.Decimal `json:"strike"`
	ExpirationDate string           `json:"expirationDate"`
	Side           string           `json:"side"`
}

type importFillsRequest struct {
	DepotID uint64        `json:"depotId" binding:"required"`
	Source  string        `json:"source"`
	Fills   []fillRequest `json:"fills" binding:"required"`
}

func (h *ImportHandler) listBatches(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListImportBatches(c.Request.Context(), intQuery(c, "limit", 50), intQuery(c, "offset", 0))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *ImportHandler) getBatch(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	batch, err := h.Repo.GetImportBatchByReference(c.Request.Context(), strings.TrimSpace(c.Param("reference")))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if batch == nil {
		Error(c, http.StatusNotFound, "import batch not found", nil)
		return
	}
	fills, err := h.Repo.ListFillsByBatchID(c.Request.Context(), batch.ID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"batch": batch, "fills": fills}, nil)
}

// importPrices accepts a multipart upload: a "ticker" field plus the
// OHLCV CSV under "file".
func (h *ImportHandler) importPrices(c *gin.Context) {
	if h.Importer == nil {
		Error(c, http.StatusInternalServerError, "importer unavailable", nil)
		return
	}
	ticker := strings.TrimSpace(c.PostForm("ticker"))
	if ticker == "" {
		Error(c, http.StatusBadRequest, "ticker is required", nil)
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		Error(c, http.StatusBadRequest, "file is required", nil)
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	defer f.Close()

	batch, err := h.Importer.ImportPrices(c.Request.Context(), ticker, fileHeader.Filename, f)
	if err != nil {
		if batch != nil {
			Error(c, http.StatusUnprocessableEntity, err.Error(), map[string]any{"reference": batch.Reference})
			return
		}
		writeDomainError(c, err)
		return
	}
	Ok(c, batch, nil)
}

func (h *ImportHandler) importFills(c *gin.Context) {
	if h.Importer == nil {
		Error(c, http.StatusInternalServerError, "importer unavailable", nil)
		return
	}
	var req importFillsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if len(req.Fills) == 0 {
		Error(c, http.StatusBadRequest, "fills must not be empty", nil)
		return
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = "broker_fills"
	}
	fills, err := toFillModels(req.Fills)
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	batch, aggregates, err := h.Importer.ImportFills(c.Request.Context(), req.DepotID, source, fills)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	Ok(c, gin.H{"batch": batch, "aggregates": aggregates}, nil)
}

func toFillModels(reqs []fillRequest) ([]models.PartialFill, error) {
	out := make([]models.PartialFill, len(reqs))
	for i, r := range reqs {
		fill := models.PartialFill{
			FilledAt:          r.FilledAt,
			FillQuantity:      r.FillQuantity,
			FillPrice:         r.FillPrice,
			BrokerOrderID:     strings.TrimSpace(r.BrokerOrderID),
			BrokerExecutionID: strings.TrimSpace(r.BrokerExecutionID),
			Symbol:            strings.ToUpper(strings.TrimSpace(r.Symbol)),
			Strike:            r.Strike,
			Side:              strings.ToUpper(strings.TrimSpace(r.Side)),
		}
		if r.FillCommission != nil {
			fill.FillCommission = *r.FillCommission
		}
		if r.ExpirationDate != "" {
			exp, err := parseDate(r.ExpirationDate)
			if err != nil {
				return nil, err
			}
			fill.ExpirationDate = &exp
		}
		out[i] = fill
	}
	return out, nil
}
