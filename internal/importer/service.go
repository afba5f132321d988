package importer

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"wheeljournal/internal/cache"
	"wheeljournal/internal/models"
)

// Store is the repository slice imports write through.
type Store interface {
	GetSecurityByTicker(ctx context.Context, ticker string) (*models.Security, error)
	UpsertSecurity(ctx context.Context, item *models.Security) error
	UpsertDailyPrices(ctx context.Context, items []models.DailyPrice) (int64, error)
	InsertImportBatch(ctx context.Context, item *models.ImportBatch) error
	UpdateImportBatch(ctx context.Context, item *models.ImportBatch) error
	InsertFills(ctx context.Context, items []models.PartialFill) error
}

type Service struct {
	Repo         Store
	Cache        *cache.SnapshotCache
	Logger       *zap.Logger
	MaxRowErrors int
}

func NewService(repo Store, snapCache *cache.SnapshotCache, maxRowErrors int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRowErrors <= 0 {
		maxRowErrors = 50
	}
	return &Service{Repo: repo, Cache: snapCache, Logger: logger, MaxRowErrors: maxRowErrors}
}

// ImportPrices ingests an OHLCV CSV for one ticker, creating the
// security on first sight. Existing (security, date) rows are left
// untouched and counted as duplicates. Cached snapshots of the ticker
// are invalidated afterwards.
func (s *Service) ImportPrices(ctx context.Context, ticker, fileName string, r io.Reader) (*models.ImportBatch, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	sec, err := s.Repo.GetSecurityByTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if sec == nil {
		sec = &models.Security{Ticker: ticker, IsActive: true, Currency: "USD"}
		if err := s.Repo.UpsertSecurity(ctx, sec); err != nil {
			return nil, err
		}
	}

	batch := &models.ImportBatch{
		Reference: uuid.NewString(),
		Source:    "ohlcv_csv",
		FileName:  fileName,
		Status:    models.ImportPending,
	}
	if err := s.Repo.InsertImportBatch(ctx, batch); err != nil {
		return nil, err
	}

	bars, rejected, err := ParseOHLCVCSV(r)
	if err != nil {
		batch.Status = models.ImportFailed
		batch.ErrorLog = errorLog([]RowError{{Line: 0, Reason: err.Error()}}, s.MaxRowErrors)
		if uerr := s.Repo.UpdateImportBatch(ctx, batch); uerr != nil {
			s.Logger.Error("import batch update failed", zap.Error(uerr))
		}
		return batch, err
	}

	prices := make([]models.DailyPrice, len(bars))
	for i, b := range bars {
		prices[i] = models.DailyPrice{
			SecurityID: sec.ID,
			PriceDate:  b.Date,
			Open:       b.Open,
			High:       b.High,
			Low:        b.Low,
			Close:      b.Close,
			Volume:     b.Volume,
			DataSource: "csv",
		}
	}
	inserted, err := s.Repo.UpsertDailyPrices(ctx, prices)
	if err != nil {
		batch.Status = models.ImportFailed
		if uerr := s.Repo.UpdateImportBatch(ctx, batch); uerr != nil {
			s.Logger.Error("import batch update failed", zap.Error(uerr))
		}
		return batch, err
	}

	batch.RecordsTotal = len(bars) + len(rejected)
	batch.RecordsImported = int(inserted)
	batch.RecordsSkipped = len(rejected)
	batch.RecordsDuplicate = len(bars) - int(inserted)
	batch.Status = models.ImportCompleted
	if len(rejected) > 0 {
		batch.Status = models.ImportPartial
		batch.ErrorLog = errorLog(rejected, s.MaxRowErrors)
	}
	if err := s.Repo.UpdateImportBatch(ctx, batch); err != nil {
		return nil, err
	}

	if err := s.Cache.Invalidate(ctx, ticker); err != nil {
		s.Logger.Warn("snapshot invalidation failed", zap.String("ticker", ticker), zap.Error(err))
	}

	s.Logger.Info("price import finished",
		zap.String("ticker", ticker),
		zap.String("batch", batch.Reference),
		zap.Int("imported", batch.RecordsImported),
		zap.Int("skipped", batch.RecordsSkipped),
		zap.Int("duplicates", batch.RecordsDuplicate))
	return batch, nil
}

// ImportFills stores raw broker fills under a new batch and returns
// their per-order aggregation. The raw rows are kept for audit; linking
// aggregates to positions is the caller's decision.
func (s *Service) ImportFills(ctx context.Context, depotID uint64, source string, fills []models.PartialFill) (*models.ImportBatch, []AggregatedFill, error) {
	batch := &models.ImportBatch{
		DepotID:   &depotID,
		Reference: uuid.NewString(),
		Source:    source,
		Status:    models.ImportPending,
	}
	if err := s.Repo.InsertImportBatch(ctx, batch); err != nil {
		return nil, nil, err
	}

	for i := range fills {
		fills[i].ImportBatchID = &batch.ID
	}
	if err := s.Repo.InsertFills(ctx, fills); err != nil {
		batch.Status = models.ImportFailed
		if uerr := s.Repo.UpdateImportBatch(ctx, batch); uerr != nil {
			s.Logger.Error("import batch update failed", zap.Error(uerr))
		}
		return batch, nil, err
	}

	aggregates := AggregateFills(fills)
	batch.RecordsTotal = len(fills)
	batch.RecordsImported = len(fills)
	batch.Status = models.ImportCompleted
	if err := s.Repo.UpdateImportBatch(ctx, batch); err != nil {
		return nil, nil, err
	}
	return batch, aggregates, nil
}

func errorLog(rows []RowError, max int) datatypes.JSON {
	if len(rows) > max {
		rows = rows[:max]
	}
	msgs := make([]string, len(rows))
	for i, r := range rows {
		msgs[i] = r.String()
	}
	raw, err := json.Marshal(msgs)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
