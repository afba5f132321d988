package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"wheeljournal/internal/models"
)

// Repository is the persistence boundary for the journal. Get methods
// return (nil, nil) when the row does not exist; callers translate that
// into a domain error where one is required.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Depots
	InsertDepot(ctx context.Context, item *models.Depot) error
	GetDepotByID(ctx context.Context, id uint64) (*models.Depot, error)
	GetDefaultDepot(ctx context.Context) (*models.Depot, error)
	ListDepots(ctx context.Context, includeArchived bool) ([]models.Depot, error)
	UpdateDepot(ctx context.Context, item *models.Depot) error

	// Securities
	UpsertSecurity(ctx context.Context, item *models.Security) error
	GetSecurityByID(ctx context.Context, id uint64) (*models.Security, error)
	GetSecurityByTicker(ctx context.Context, ticker string) (*models.Security, error)
	ListSecurities(ctx context.Context, params ListSecuritiesParams) ([]models.Security, error)

	// Positions
	InsertPositionTx(ctx context.Context, tx *gorm.DB, item *models.TradePosition) error
	SavePositionTx(ctx context.Context, tx *gorm.DB, item *models.TradePosition) error
	GetPositionByID(ctx context.Context, id uint64) (*models.TradePosition, error)
	GetPositionByRolledFromID(ctx context.Context, rolledFromID uint64) (*models.TradePosition, error)
	ListPositions(ctx context.Context, params ListPositionsParams) ([]models.TradePosition, error)
	CountPositions(ctx context.Context, params ListPositionsParams) (int64, error)
	ListPositionsByCycleID(ctx context.Context, cycleID uint64) ([]models.TradePosition, error)
	ListOpenOptionsExpiringBy(ctx context.Context, cutoff time.Time) ([]models.TradePosition, error)
	ArchivePosition(ctx context.Context, id uint64) error

	// Transactions & fills
	InsertTransactionTx(ctx context.Context, tx *gorm.DB, item *models.TradeTransaction) error
	ListTransactionsByTradeID(ctx context.Context, tradeID uint64) ([]models.TradeTransaction, error)
	InsertFills(ctx context.Context, items []models.PartialFill) error
	AttachFillsTx(ctx context.Context, tx *gorm.DB, fillIDs []uint64, tradeID, transactionID uint64) error
	ListFillsByBatchID(ctx context.Context, batchID uint64) ([]models.PartialFill, error)

	// Wheel cycles
	InsertCycleTx(ctx context.Context, tx *gorm.DB, item *models.WheelCycle) error
	SaveCycleTx(ctx context.Context, tx *gorm.DB, item *models.WheelCycle) error
	GetCycleByID(ctx context.Context, id uint64) (*models.WheelCycle, error)
	GetActiveCycle(ctx context.Context, depotID, securityID uint64) (*models.WheelCycle, error)
	ListCycles(ctx context.Context, params ListCyclesParams) ([]models.WheelCycle, error)
	ListActiveCycleIDs(ctx context.Context) ([]uint64, error)
	MaxCycleNumber(ctx context.Context, depotID, securityID uint64, year int) (int, error)

	// Dividends
	InsertDividend(ctx context.Context, item *models.Dividend) error
	ListDividends(ctx context.Context, params ListDividendsParams) ([]models.Dividend, error)
	SumDividendsByCycleID(ctx context.Context, cycleID uint64) (decimal.Decimal, error)

	// Prices
	UpsertDailyPrices(ctx context.Context, items []models.DailyPrice) (int64, error)
	ListDailyPrices(ctx context.Context, securityID uint64, until time.Time, limit int) ([]models.DailyPrice, error)
	LatestPriceDate(ctx context.Context, securityID uint64) (*time.Time, error)

	// Screening
	InsertProfile(ctx context.Context, item *models.ScreeningProfile) error
	GetProfileByID(ctx context.Context, id uint64) (*models.ScreeningProfile, error)
	ListProfiles(ctx context.Context) ([]models.ScreeningProfile, error)
	UpdateProfile(ctx context.Context, item *models.ScreeningProfile) error
	DeleteProfile(ctx context.Context, id uint64) error
	InsertCriterion(ctx context.Context, item *models.ScreeningCriterion) error
	ListCriteriaByProfileID(ctx context.Context, profileID uint64) ([]models.ScreeningCriterion, error)
	DeleteCriterion(ctx context.Context, id uint64) error

	// Import batches
	InsertImportBatch(ctx context.Context, item *models.ImportBatch) error
	UpdateImportBatch(ctx context.Context, item *models.ImportBatch) error
	GetImportBatchByReference(ctx context.Context, reference string) (*models.ImportBatch, error)
	ListImportBatches(ctx context.Context, limit, offset int) ([]models.ImportBatch, error)

	// Notes
	InsertNote(ctx context.Context, item *models.TradeNote) error
	ListNotes(ctx context.Context, params ListNotesParams) ([]models.TradeNote, error)
	UpdateNote(ctx context.Context, item *models.TradeNote) error
	DeleteNote(ctx context.Context, id uint64) error

	// Settings
	UpsertSetting(ctx context.Context, key, value string) error
	GetSetting(ctx context.Context, key string) (*models.UserSetting, error)
	ListSettings(ctx context.Context) ([]models.UserSetting, error)

	// Chart replay
	UpsertReplaySession(ctx context.Context, item *models.ReplaySession) error
	GetReplaySessionBySecurityID(ctx context.Context, securityID uint64) (*models.ReplaySession, error)
}

type ListSecuritiesParams struct {
	Ticker     *string
	ActiveOnly bool
	Limit      int
	Offset     int
}

type ListPositionsParams struct {
	DepotID         *uint64
	SecurityID      *uint64
	Status          *string
	PositionType    *string
	WheelCycleID    *uint64
	OpenedSince     *time.Time
	OpenedUntil     *time.Time
	IncludeArchived bool
	Limit           int
	Offset          int
	OrderBy         string
	Asc             *bool
}

type ListCyclesParams struct {
	DepotID    *uint64
	SecurityID *uint64
	Status     *string
	Year       *int
	Limit      int
	Offset     int
}

type ListDividendsParams struct {
	DepotID      *uint64
	SecurityID   *uint64
	WheelCycleID *uint64
	Since        *time.Time
	Until        *time.Time
	Limit        int
	Offset       int
}

type ListNotesParams struct {
	TradeID    *uint64
	SecurityID *uint64
	NoteType   *string
	Limit      int
	Offset     int
}
