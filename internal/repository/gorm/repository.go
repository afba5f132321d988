package gormrepository

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wheeljournal/internal/models"
	"wheeljournal/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// conn picks the transaction handle when one is open.
func (s *Store) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}

// --- Depots -----------------------------------------------------------------

func (s *Store) InsertDepot(ctx context.Context, item *models.Depot) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetDepotByID(ctx context.Context, id uint64) (*models.Depot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Depot
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetDefaultDepot(ctx context.Context) (*models.Depot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Depot
	err := s.db.WithContext(ctx).
		Where("is_default = ?", true).
		Where("is_archived = ?", false).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListDepots(ctx context.Context, includeArchived bool) ([]models.Depot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Depot{})
	if !includeArchived {
		query = query.Where("is_archived = ?", false)
	}
	var items []models.Depot
	if err := query.Order("is_default desc, name asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateDepot(ctx context.Context, item *models.Depot) error {
	if s == nil || s.db == nil || item == nil || item.ID == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Save(item).Error
}

// --- Securities -------------------------------------------------------------

func (s *Store) UpsertSecurity(ctx context.Context, item *models.Security) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Ticker = strings.ToUpper(strings.TrimSpace(item.Ticker))
	if item.Ticker == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "ticker"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"exchange",
			"sector",
			"industry",
			"currency",
			"is_active",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSecurityByID(ctx context.Context, id uint64) (*models.Security, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Security
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetSecurityByTicker(ctx context.Context, ticker string) (*models.Security, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, nil
	}
	var item models.Security
	err := s.db.WithContext(ctx).First(&item, "ticker = ?", ticker).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSecurities(ctx context.Context, params repository.ListSecuritiesParams) ([]models.Security, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Security{})
	if params.Ticker != nil && strings.TrimSpace(*params.Ticker) != "" {
		query = query.Where("ticker = ?", strings.ToUpper(strings.TrimSpace(*params.Ticker)))
	}
	if params.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Security
	if err := query.Order("ticker asc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Positions --------------------------------------------------------------

func (s *Store) InsertPositionTx(ctx context.Context, tx *gorm.DB, item *models.TradePosition) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.conn(ctx, tx).Create(item).Error
}

func (s *Store) SavePositionTx(ctx context.Context, tx *gorm.DB, item *models.TradePosition) error {
	if s == nil || s.db == nil || item == nil || item.ID == 0 {
		return nil
	}
	return s.conn(ctx, tx).Save(item).Error
}

func (s *Store) GetPositionByID(ctx context.Context, id uint64) (*models.TradePosition, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.TradePosition
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetPositionByRolledFromID(ctx context.Context, rolledFromID uint64) (*models.TradePosition, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.TradePosition
	err := s.db.WithContext(ctx).
		Where("rolled_from_trade_id = ?", rolledFromID).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func positionQuery(query *gorm.DB, params repository.ListPositionsParams) *gorm.DB {
	if params.DepotID != nil {
		query = query.Where("depot_id = ?", *params.DepotID)
	}
	if params.SecurityID != nil {
		query = query.Where("security_id = ?", *params.SecurityID)
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.PositionType != nil && strings.TrimSpace(*params.PositionType) != "" {
		query = query.Where("position_type = ?", strings.TrimSpace(*params.PositionType))
	}
	if params.WheelCycleID != nil {
		query = query.Where("wheel_cycle_id = ?", *params.WheelCycleID)
	}
	if params.OpenedSince != nil && !params.OpenedSince.IsZero() {
		query = query.Where("open_date >= ?", *params.OpenedSince)
	}
	if params.OpenedUntil != nil && !params.OpenedUntil.IsZero() {
		query = query.Where("open_date <= ?", *params.OpenedUntil)
	}
	if !params.IncludeArchived {
		query = query.Where("is_archived = ?", false)
	}
	return query
}

func (s *Store) ListPositions(ctx context.Context, params repository.ListPositionsParams) ([]models.TradePosition, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := positionQuery(s.db.WithContext(ctx).Model(&models.TradePosition{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "open_date")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.TradePosition
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountPositions(ctx context.Context, params repository.ListPositionsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	query := positionQuery(s.db.WithContext(ctx).Model(&models.TradePosition{}), params)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) ListPositionsByCycleID(ctx context.Context, cycleID uint64) ([]models.TradePosition, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.TradePosition
	if err := s.db.WithContext(ctx).
		Where("wheel_cycle_id = ?", cycleID).
		Order("open_date asc, id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListOpenOptionsExpiringBy(ctx context.Context, cutoff time.Time) ([]models.TradePosition, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.TradePosition
	if err := s.db.WithContext(ctx).
		Where("status = ?", models.StatusOpen).
		Where("position_type IN ?", []string{models.PositionShortPut, models.PositionShortCall}).
		Where("expiration_date IS NOT NULL").
		Where("expiration_date <= ?", cutoff).
		Where("is_archived = ?", false).
		Order("expiration_date asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ArchivePosition(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.TradePosition{}).
		Where("id = ?", id).
		Update("is_archived", true).Error
}

// --- Transactions & fills ---------------------------------------------------

func (s *Store) InsertTransactionTx(ctx context.Context, tx *gorm.DB, item *models.TradeTransaction) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.conn(ctx, tx).Create(item).Error
}

func (s *Store) ListTransactionsByTradeID(ctx context.Context, tradeID uint64) ([]models.TradeTransaction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.TradeTransaction
	if err := s.db.WithContext(ctx).
		Where("trade_id = ?", tradeID).
		Order("transaction_date asc, id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) InsertFills(ctx context.Context, items []models.PartialFill) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(items, 200).Error
}

func (s *Store) AttachFillsTx(ctx context.Context, tx *gorm.DB, fillIDs []uint64, tradeID, transactionID uint64) error {
	if s == nil || s.db == nil || len(fillIDs) == 0 {
		return nil
	}
	return s.conn(ctx, tx).
		Model(&models.PartialFill{}).
		Where("id IN ?", fillIDs).
		Updates(map[string]any{
			"trade_id":       tradeID,
			"transaction_id": transactionID,
		}).Error
}

func (s *Store) ListFillsByBatchID(ctx context.Context, batchID uint64) ([]models.PartialFill, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.PartialFill
	if err := s.db.WithContext(ctx).
		Where("import_batch_id = ?", batchID).
		Order("filled_at asc, id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Wheel cycles -----------------------------------------------------------

func (s *Store) InsertCycleTx(ctx context.Context, tx *gorm.DB, item *models.WheelCycle) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.conn(ctx, tx).Create(item).Error
}

func (s *Store) SaveCycleTx(ctx context.Context, tx *gorm.DB, item *models.WheelCycle) error {
	if s == nil || s.db == nil || item == nil || item.ID == 0 {
		return nil
	}
	return s.conn(ctx, tx).Save(item).Error
}

func (s *Store) GetCycleByID(ctx context.Context, id uint64) (*models.WheelCycle, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.WheelCycle
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetActiveCycle(ctx context.Context, depotID, securityID uint64) (*models.WheelCycle, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.WheelCycle
	err := s.db.WithContext(ctx).
		Where("depot_id = ?", depotID).
		Where("security_id = ?", securityID).
		Where("status = ?", models.CycleActive).
		Order("start_date desc").
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListCycles(ctx context.Context, params repository.ListCyclesParams) ([]models.WheelCycle, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.WheelCycle{})
	if params.DepotID != nil {
		query = query.Where("depot_id = ?", *params.DepotID)
	}
	if params.SecurityID != nil {
		query = query.Where("security_id = ?", *params.SecurityID)
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Year != nil {
		query = query.Where("year = ?", *params.Year)
	}
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.WheelCycle
	if err := query.
		Order("start_date desc, id desc").
		Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListActiveCycleIDs(ctx context.Context) ([]uint64, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var ids []uint64
	if err := s.db.WithContext(ctx).
		Model(&models.WheelCycle{}).
		Where("status = ?", models.CycleActive).
		Order("id asc").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) MaxCycleNumber(ctx context.Context, depotID, securityID uint64, year int) (int, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var max *int
	err := s.db.WithContext(ctx).
		Model(&models.WheelCycle{}).
		Where("depot_id = ?", depotID).
		Where("security_id = ?", securityID).
		Where("year = ?", year).
		Select("MAX(cycle_number)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// --- Dividends --------------------------------------------------------------

func (s *Store) InsertDividend(ctx context.Context, item *models.Dividend) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListDividends(ctx context.Context, params repository.ListDividendsParams) ([]models.Dividend, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Dividend{})
	if params.DepotID != nil {
		query = query.Where("depot_id = ?", *params.DepotID)
	}
	if params.SecurityID != nil {
		query = query.Where("security_id = ?", *params.SecurityID)
	}
	if params.WheelCycleID != nil {
		query = query.Where("wheel_cycle_id = ?", *params.WheelCycleID)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("ex_dividend_date >= ?", *params.Since)
	}
	if params.Until != nil && !params.Until.IsZero() {
		query = query.Where("ex_dividend_date <= ?", *params.Until)
	}
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Dividend
	if err := query.
		Order("ex_dividend_date desc, id desc").
		Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SumDividendsByCycleID(ctx context.Context, cycleID uint64) (decimal.Decimal, error) {
	if s == nil || s.db == nil {
		return decimal.Zero, nil
	}
	var sum decimal.NullDecimal
	err := s.db.WithContext(ctx).
		Model(&models.Dividend{}).
		Where("wheel_cycle_id = ?", cycleID).
		Select("COALESCE(SUM(net_amount), 0)").
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// --- Prices -----------------------------------------------------------------

func (s *Store) UpsertDailyPrices(ctx context.Context, items []models.DailyPrice) (int64, error) {
	if s == nil || s.db == nil || len(items) == 0 {
		return 0, nil
	}
	var inserted int64
	for i := 0; i < len(items); i += 200 {
		end := i + 200
		if end > len(items) {
			end = len(items)
		}
		res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "security_id"}, {Name: "price_date"}},
			DoNothing: true,
		}).Create(items[i:end])
		if res.Error != nil {
			return inserted, res.Error
		}
		inserted += res.RowsAffected
	}
	return inserted, nil
}

func (s *Store) ListDailyPrices(ctx context.Context, securityID uint64, until time.Time, limit int) ([]models.DailyPrice, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).
		Model(&models.DailyPrice{}).
		Where("security_id = ?", securityID)
	if !until.IsZero() {
		query = query.Where("price_date <= ?", until)
	}
	if limit <= 0 {
		limit = 400
	}
	var items []models.DailyPrice
	if err := query.
		Order("price_date desc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	// Stored newest-first for the limit; callers want ascending.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, nil
}

func (s *Store) LatestPriceDate(ctx context.Context, securityID uint64) (*time.Time, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var latest *time.Time
	err := s.db.WithContext(ctx).
		Model(&models.DailyPrice{}).
		Where("security_id = ?", securityID).
		Select("MAX(price_date)").
		Scan(&latest).Error
	if err != nil {
		return nil, err
	}
	return latest, nil
}

// --- Screening --------------------------------------------------------------

func (s *Store) InsertProfile(ctx context.Context, item *models.ScreeningProfile) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetProfileByID(ctx context.Context, id uint64) (*models.ScreeningProfile, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.ScreeningProfile
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListProfiles(ctx context.Context) ([]models.ScreeningProfile, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ScreeningProfile
	if err := s.db.WithContext(ctx).
		Model(&models.ScreeningProfile{}).
		Order("is_system_template desc, name asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateProfile(ctx context.Context, item *models.ScreeningProfile) error {
	if s == nil || s.db == nil || item == nil || item.ID == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Save(item).Error
}

func (s *Store) DeleteProfile(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("profile_id = ?", id).Delete(&models.ScreeningCriterion{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.ScreeningProfile{}, "id = ?", id).Error
	})
}

func (s *Store) InsertCriterion(ctx context.Context, item *models.ScreeningCriterion) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListCriteriaByProfileID(ctx context.Context, profileID uint64) ([]models.ScreeningCriterion, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ScreeningCriterion
	if err := s.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("sort_order asc, id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeleteCriterion(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Delete(&models.ScreeningCriterion{}, "id = ?", id).Error
}

// --- Import batches ---------------------------------------------------------

func (s *Store) InsertImportBatch(ctx context.Context, item *models.ImportBatch) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) UpdateImportBatch(ctx context.Context, item *models.ImportBatch) error {
	if s == nil || s.db == nil || item == nil || item.ID == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Save(item).Error
}

func (s *Store) GetImportBatchByReference(ctx context.Context, reference string) (*models.ImportBatch, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, nil
	}
	var item models.ImportBatch
	err := s.db.WithContext(ctx).First(&item, "reference = ?", reference).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListImportBatches(ctx context.Context, limit, offset int) ([]models.ImportBatch, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 50)
	offset = normalizeOffset(offset)
	var items []models.ImportBatch
	if err := s.db.WithContext(ctx).
		Model(&models.ImportBatch{}).
		Order("created_at desc").
		Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Notes ------------------------------------------------------------------

func (s *Store) InsertNote(ctx context.Context, item *models.TradeNote) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListNotes(ctx context.Context, params repository.ListNotesParams) ([]models.TradeNote, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.TradeNote{})
	if params.TradeID != nil {
		query = query.Where("trade_id = ?", *params.TradeID)
	}
	if params.SecurityID != nil {
		query = query.Where("security_id = ?", *params.SecurityID)
	}
	if params.NoteType != nil && strings.TrimSpace(*params.NoteType) != "" {
		query = query.Where("note_type = ?", strings.TrimSpace(*params.NoteType))
	}
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.TradeNote
	if err := query.
		Order("note_date desc, id desc").
		Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateNote(ctx context.Context, item *models.TradeNote) error {
	if s == nil || s.db == nil || item == nil || item.ID == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Save(item).Error
}

func (s *Store) DeleteNote(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Delete(&models.TradeNote{}, "id = ?", id).Error
}

// --- Settings ---------------------------------------------------------------

func (s *Store) UpsertSetting(ctx context.Context, key, value string) error {
	if s == nil || s.db == nil {
		return nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"setting_value", "updated_at"}),
	}).Create(&models.UserSetting{Key: key, Value: value}).Error
}

func (s *Store) GetSetting(ctx context.Context, key string) (*models.UserSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.UserSetting
	err := s.db.WithContext(ctx).First(&item, "setting_key = ?", strings.TrimSpace(key)).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSettings(ctx context.Context) ([]models.UserSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.UserSetting
	if err := s.db.WithContext(ctx).
		Model(&models.UserSetting{}).
		Order("setting_key asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Chart replay -----------------------------------------------------------

func (s *Store) UpsertReplaySession(ctx context.Context, item *models.ReplaySession) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "security_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"cursor_date",
			"timeframe",
			"viewport_size",
			"last_accessed",
		}),
	}).Create(item).Error
}

func (s *Store) GetReplaySessionBySecurityID(ctx context.Context, securityID uint64) (*models.ReplaySession, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.ReplaySession
	err := s.db.WithContext(ctx).First(&item, "security_id = ?", securityID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- Helpers ----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
