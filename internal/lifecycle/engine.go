// Package lifecycle implements the position state machine: open, close,
// roll and assign. All derived money fields are computed here so stored
// rows never disagree with their inputs.
package lifecycle

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"wheeljournal/internal/domain"
	"wheeljournal/internal/models"
)

// Store is the slice of the repository the engine mutates through.
// Satisfied by repository.Repository.
type Store interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	GetDepotByID(ctx context.Context, id uint64) (*models.Depot, error)
	GetSecurityByID(ctx context.Context, id uint64) (*models.Security, error)
	GetPositionByID(ctx context.Context, id uint64) (*models.TradePosition, error)
	InsertPositionTx(ctx context.Context, tx *gorm.DB, item *models.TradePosition) error
	SavePositionTx(ctx context.Context, tx *gorm.DB, item *models.TradePosition) error
	InsertTransactionTx(ctx context.Context, tx *gorm.DB, item *models.TradeTransaction) error
}

type Engine struct {
	Repo   Store
	Logger *zap.Logger
}

func NewEngine(repo Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{Repo: repo, Logger: logger}
}

// OpenInput carries everything needed to open a position. Option and
// stock fields are mutually exclusive per PositionType.
type OpenInput struct {
	DepotID      uint64
	SecurityID   uint64
	PositionType string

	// Options.
	StrikePrice        decimal.Decimal
	ExpirationDate     time.Time
	PremiumPerContract decimal.Decimal

	// Stock.
	Shares       int
	CostPerShare decimal.Decimal

	Quantity       int
	OpenDate       time.Time
	CommissionOpen decimal.Decimal
	OpenSnapshot   datatypes.JSON

	WheelCycleID     *uint64
	CoveredByStockID *uint64
	BrokerTradeID    string
	ImportBatchID    *uint64
}

type CloseInput struct {
	CloseType       string
	CloseDate       time.Time
	ClosePrice      *decimal.Decimal
	CommissionClose decimal.Decimal
}

type RollInput struct {
	RollDate          time.Time
	BuybackPrice      decimal.Decimal
	BuybackCommission decimal.Decimal

	NewStrike         decimal.Decimal
	NewExpirationDate time.Time
	NewPremium        decimal.Decimal
	NewCommission     decimal.Decimal
}

type RollResult struct {
	ClosedID uint64
	NewID    uint64
}

type AssignInput struct {
	AssignmentDate time.Time
	Commission     decimal.Decimal
}

// Open validates the input, computes derived fields and persists a new
// OPEN position.
func (e *Engine) Open(ctx context.Context, in OpenInput) (*models.TradePosition, error) {
	if err := e.validateOpen(ctx, &in); err != nil {
		return nil, err
	}

	pos := &models.TradePosition{
		DepotID:          in.DepotID,
		SecurityID:       in.SecurityID,
		PositionType:     in.PositionType,
		Status:           models.StatusOpen,
		Quantity:         in.Quantity,
		OpenDate:         in.OpenDate,
		CommissionOpen:   in.CommissionOpen,
		OpenSnapshot:     in.OpenSnapshot,
		WheelCycleID:     in.WheelCycleID,
		CoveredByStockID: in.CoveredByStockID,
		BrokerTradeID:    in.BrokerTradeID,
		ImportBatchID:    in.ImportBatchID,
	}

	switch in.PositionType {
	case models.PositionShortPut, models.PositionShortCall:
		strike := in.StrikePrice
		expiration := in.ExpirationDate
		premium := in.PremiumPerContract
		pos.StrikePrice = &strike
		pos.ExpirationDate = &expiration
		pos.PremiumPerContract = &premium

		total, net := optionPremiums(premium, in.Quantity, in.CommissionOpen)
		pos.TotalPremium = &total
		pos.NetPremium = &net

		be := breakEven(in.PositionType, strike, premium)
		pos.BreakEven = &be

		dte := daysBetween(in.OpenDate, expiration)
		pos.DTEAtOpen = &dte

	case models.PositionLongStock:
		shares := in.Shares
		cost := in.CostPerShare
		pos.Shares = &shares
		pos.CostPerShare = &cost
	}

	err := e.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := e.Repo.InsertPositionTx(ctx, tx, pos); err != nil {
			return err
		}
		txn := &models.TradeTransaction{
			TradeID:         pos.ID,
			TransactionType: models.TxnOpen,
			TransactionDate: in.OpenDate,
			Price:           openPrice(in),
			Quantity:        in.Quantity,
			Commission:      in.CommissionOpen,
		}
		return e.Repo.InsertTransactionTx(ctx, tx, txn)
	})
	if err != nil {
		return nil, err
	}

	e.Logger.Info("position opened",
		zap.Uint64("trade_id", pos.ID),
		zap.String("type", pos.PositionType),
		zap.Int("quantity", pos.Quantity))
	return pos, nil
}

// Close transitions an OPEN position to CLOSED and computes realized
// P/L per close type. Closed positions are immutable, a second close is
// a conflict.
func (e *Engine) Close(ctx context.Context, tradeID uint64, in CloseInput) (*models.TradePosition, error) {
	pos, err := e.Repo.GetPositionByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return nil, domain.NotFoundf("position %d", tradeID)
	}
	if pos.Status == models.StatusClosed {
		return nil, domain.Conflictf("position %d is already closed", tradeID)
	}
	if err := validateClose(pos, in); err != nil {
		return nil, err
	}

	applyClose(pos, in)

	err = e.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := e.Repo.SavePositionTx(ctx, tx, pos); err != nil {
			return err
		}
		return e.Repo.InsertTransactionTx(ctx, tx, closeTransaction(pos, in))
	})
	if err != nil {
		return nil, err
	}

	e.Logger.Info("position closed",
		zap.Uint64("trade_id", pos.ID),
		zap.String("close_type", in.CloseType))
	return pos, nil
}

// Roll closes the source option with ROLLED and opens a replacement leg
// linked by rolled_from_trade_id, atomically. The source position is
// left untouched when any step fails.
func (e *Engine) Roll(ctx context.Context, tradeID uint64, in RollInput) (RollResult, error) {
	src, err := e.Repo.GetPositionByID(ctx, tradeID)
	if err != nil {
		return RollResult{}, err
	}
	if src == nil {
		return RollResult{}, domain.NotFoundf("position %d", tradeID)
	}
	if src.Status == models.StatusClosed {
		return RollResult{}, domain.Conflictf("position %d is already closed", tradeID)
	}
	if !src.IsOption() {
		return RollResult{}, domain.Validationf("only option positions can be rolled")
	}
	if in.BuybackPrice.Sign() <= 0 {
		return RollResult{}, domain.Validationf("roll requires a buyback price")
	}
	if in.NewStrike.Sign() <= 0 {
		return RollResult{}, domain.Validationf("new strike must be positive")
	}
	if !in.NewExpirationDate.After(in.RollDate) {
		return RollResult{}, domain.Validationf("new expiration must be after the roll date")
	}

	closeIn := CloseInput{
		CloseType:       models.CloseRolled,
		CloseDate:       in.RollDate,
		ClosePrice:      &in.BuybackPrice,
		CommissionClose: in.BuybackCommission,
	}
	applyClose(src, closeIn)

	strike := in.NewStrike
	expiration := in.NewExpirationDate
	premium := in.NewPremium
	total, net := optionPremiums(premium, src.Quantity, in.NewCommission)
	be := breakEven(src.PositionType, strike, premium)
	dte := daysBetween(in.RollDate, expiration)
	rolledFrom := src.ID

	next := &models.TradePosition{
		DepotID:            src.DepotID,
		SecurityID:         src.SecurityID,
		PositionType:       src.PositionType,
		Status:             models.StatusOpen,
		StrikePrice:        &strike,
		ExpirationDate:     &expiration,
		PremiumPerContract: &premium,
		Quantity:           src.Quantity,
		OpenDate:           in.RollDate,
		CommissionOpen:     in.NewCommission,
		RolledFromTradeID:  &rolledFrom,
		WheelCycleID:       src.WheelCycleID,
		CoveredByStockID:   src.CoveredByStockID,
		TotalPremium:       &total,
		NetPremium:         &net,
		BreakEven:          &be,
		DTEAtOpen:          &dte,
	}

	err = e.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := e.Repo.SavePositionTx(ctx, tx, src); err != nil {
			return err
		}
		if err := e.Repo.InsertTransactionTx(ctx, tx, &models.TradeTransaction{
			TradeID:         src.ID,
			TransactionType: models.TxnRollClose,
			TransactionDate: in.RollDate,
			Price:           in.BuybackPrice,
			Quantity:        -src.Quantity,
			Commission:      in.BuybackCommission,
		}); err != nil {
			return err
		}
		if err := e.Repo.InsertPositionTx(ctx, tx, next); err != nil {
			return err
		}
		return e.Repo.InsertTransactionTx(ctx, tx, &models.TradeTransaction{
			TradeID:         next.ID,
			TransactionType: models.TxnRollOpen,
			TransactionDate: in.RollDate,
			Price:           premium,
			Quantity:        next.Quantity,
			Commission:      in.NewCommission,
		})
	})
	if err != nil {
		return RollResult{}, err
	}

	e.Logger.Info("position rolled",
		zap.Uint64("closed_id", src.ID),
		zap.Uint64("new_id", next.ID))
	return RollResult{ClosedID: src.ID, NewID: next.ID}, nil
}

// Assign converts a short put into stock. The put closes with ASSIGNED
// and a LONG_STOCK position opens with the premium-adjusted cost basis.
func (e *Engine) Assign(ctx context.Context, tradeID uint64, in AssignInput) (uint64, error) {
	put, err := e.Repo.GetPositionByID(ctx, tradeID)
	if err != nil {
		return 0, err
	}
	if put == nil {
		return 0, domain.NotFoundf("position %d", tradeID)
	}
	if put.Status == models.StatusClosed {
		return 0, domain.Conflictf("position %d is already closed", tradeID)
	}
	if put.PositionType != models.PositionShortPut {
		return 0, domain.Validationf("only a short put can be assigned, got %s", put.PositionType)
	}
	if put.StrikePrice == nil {
		return 0, domain.Validationf("position %d has no strike", tradeID)
	}

	shares := absInt(put.Quantity) * models.ContractMultiplier
	net := decimal.Zero
	if put.NetPremium != nil {
		net = *put.NetPremium
	}
	premiumPerShare := net.Div(decimal.NewFromInt(int64(shares)))
	costPerShare := put.StrikePrice.Sub(premiumPerShare)

	closeIn := CloseInput{
		CloseType:       models.CloseAssigned,
		CloseDate:       in.AssignmentDate,
		CommissionClose: in.Commission,
	}
	applyClose(put, closeIn)

	stock := &models.TradePosition{
		DepotID:      put.DepotID,
		SecurityID:   put.SecurityID,
		PositionType: models.PositionLongStock,
		Status:       models.StatusOpen,
		Shares:       &shares,
		CostPerShare: &costPerShare,
		Quantity:     shares,
		OpenDate:     in.AssignmentDate,
		WheelCycleID: put.WheelCycleID,
	}

	err = e.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := e.Repo.InsertPositionTx(ctx, tx, stock); err != nil {
			return err
		}
		put.AssignedToStockID = &stock.ID
		if err := e.Repo.SavePositionTx(ctx, tx, put); err != nil {
			return err
		}
		return e.Repo.InsertTransactionTx(ctx, tx, &models.TradeTransaction{
			TradeID:         put.ID,
			TransactionType: models.TxnAssignment,
			TransactionDate: in.AssignmentDate,
			Price:           *put.StrikePrice,
			Quantity:        shares,
			Commission:      in.Commission,
		})
	})
	if err != nil {
		return 0, err
	}

	e.Logger.Info("put assigned",
		zap.Uint64("put_id", put.ID),
		zap.Uint64("stock_id", stock.ID),
		zap.Int("shares", shares))
	return stock.ID, nil
}

// --- Validation -------------------------------------------------------------

func (e *Engine) validateOpen(ctx context.Context, in *OpenInput) error {
	if in.Quantity == 0 {
		return domain.Validationf("quantity must be non-zero")
	}
	if in.OpenDate.IsZero() {
		return domain.Validationf("open date is required")
	}

	switch in.PositionType {
	case models.PositionShortPut, models.PositionShortCall:
		if in.StrikePrice.Sign() <= 0 {
			return domain.Validationf("strike must be positive")
		}
		if in.ExpirationDate.IsZero() {
			return domain.Validationf("expiration date is required for options")
		}
		if in.PremiumPerContract.Sign() <= 0 {
			return domain.Validationf("premium per contract must be positive")
		}
		if in.Quantity > 0 {
			return domain.Validationf("short option quantity must be negative")
		}
		if in.Shares != 0 || in.CostPerShare.Sign() != 0 {
			return domain.Validationf("stock fields are not allowed on an option position")
		}
	case models.PositionLongStock:
		if in.Shares <= 0 {
			return domain.Validationf("shares must be positive")
		}
		if in.CostPerShare.Sign() <= 0 {
			return domain.Validationf("cost per share must be positive")
		}
		if in.Quantity < 0 {
			return domain.Validationf("stock quantity must be positive")
		}
		if in.StrikePrice.Sign() != 0 || in.PremiumPerContract.Sign() != 0 || !in.ExpirationDate.IsZero() {
			return domain.Validationf("option fields are not allowed on a stock position")
		}
	default:
		return domain.Validationf("unknown position type %q", in.PositionType)
	}

	depot, err := e.Repo.GetDepotByID(ctx, in.DepotID)
	if err != nil {
		return err
	}
	if depot == nil {
		return domain.NotFoundf("depot %d", in.DepotID)
	}
	sec, err := e.Repo.GetSecurityByID(ctx, in.SecurityID)
	if err != nil {
		return err
	}
	if sec == nil {
		return domain.NotFoundf("security %d", in.SecurityID)
	}
	return nil
}

func validateClose(pos *models.TradePosition, in CloseInput) error {
	if in.CloseDate.IsZero() {
		return domain.Validationf("close date is required")
	}
	hasPrice := in.ClosePrice != nil && in.ClosePrice.Sign() > 0

	switch in.CloseType {
	case models.CloseExpired:
		if !pos.IsOption() {
			return domain.Validationf("stock positions cannot expire")
		}
		if hasPrice {
			return domain.Validationf("expiration close must not carry a close price")
		}
	case models.CloseBuyback, models.CloseRolled:
		if !pos.IsOption() {
			return domain.Validationf("%s applies to option positions only", in.CloseType)
		}
		if !hasPrice {
			return domain.Validationf("%s requires a close price", in.CloseType)
		}
	case models.CloseAssigned:
		if pos.PositionType != models.PositionShortPut {
			return domain.Validationf("only a short put can close via assignment")
		}
	case models.CloseCalledAway:
		if pos.PositionType == models.PositionShortPut {
			return domain.Validationf("a short put cannot be called away")
		}
		if pos.PositionType == models.PositionLongStock && !hasPrice {
			return domain.Validationf("calling stock away requires the sale price")
		}
	case models.CloseSold:
		if pos.PositionType != models.PositionLongStock {
			return domain.Validationf("SOLD applies to stock positions only")
		}
		if !hasPrice {
			return domain.Validationf("selling stock requires the sale price")
		}
	default:
		return domain.Validationf("unknown close type %q", in.CloseType)
	}
	return nil
}

// --- Derivations ------------------------------------------------------------

// applyClose mutates pos in memory. Persistence happens in the caller's
// transaction so multi-step operations stay atomic.
func applyClose(pos *models.TradePosition, in CloseInput) {
	closeDate := in.CloseDate
	closeType := in.CloseType
	pos.Status = models.StatusClosed
	pos.CloseDate = &closeDate
	pos.CloseType = &closeType
	pos.ClosePrice = in.ClosePrice
	commission := in.CommissionClose
	pos.CommissionClose = &commission

	pl := realizedPL(pos, in)
	pos.RealizedPL = &pl
}

func realizedPL(pos *models.TradePosition, in CloseInput) decimal.Decimal {
	if pos.PositionType == models.PositionLongStock {
		if in.ClosePrice == nil || pos.CostPerShare == nil || pos.Shares == nil {
			return decimal.Zero
		}
		shares := decimal.NewFromInt(int64(*pos.Shares))
		gross := in.ClosePrice.Sub(*pos.CostPerShare).Mul(shares)
		return gross.Sub(pos.CommissionOpen).Sub(in.CommissionClose)
	}

	net := decimal.Zero
	if pos.NetPremium != nil {
		net = *pos.NetPremium
	}
	switch in.CloseType {
	case models.CloseBuyback, models.CloseRolled:
		cost := buybackCost(pos.Quantity, *in.ClosePrice)
		return net.Sub(cost).Sub(in.CommissionClose)
	default:
		// EXPIRED, ASSIGNED, CALLED_AWAY: stock-side P/L lives on the
		// stock position, the option keeps its net premium.
		return net.Sub(in.CommissionClose)
	}
}

func closeTransaction(pos *models.TradePosition, in CloseInput) *models.TradeTransaction {
	txnType := models.TxnExpire
	switch in.CloseType {
	case models.CloseBuyback, models.CloseSold:
		txnType = models.TxnBuyback
	case models.CloseRolled:
		txnType = models.TxnRollClose
	case models.CloseAssigned:
		txnType = models.TxnAssignment
	case models.CloseCalledAway:
		txnType = models.TxnCalledAway
	}
	price := decimal.Zero
	if in.ClosePrice != nil {
		price = *in.ClosePrice
	}
	return &models.TradeTransaction{
		TradeID:         pos.ID,
		TransactionType: txnType,
		TransactionDate: in.CloseDate,
		Price:           price,
		Quantity:        -pos.Quantity,
		Commission:      in.CommissionClose,
	}
}

// optionPremiums returns gross and net premium for a short option leg.
func optionPremiums(premium decimal.Decimal, quantity int, commissionOpen decimal.Decimal) (total, net decimal.Decimal) {
	contracts := decimal.NewFromInt(int64(absInt(quantity)))
	total = premium.Mul(contracts).Mul(decimal.NewFromInt(models.ContractMultiplier))
	net = total.Sub(commissionOpen)
	return total, net
}

func buybackCost(quantity int, closePrice decimal.Decimal) decimal.Decimal {
	contracts := decimal.NewFromInt(int64(absInt(quantity)))
	return closePrice.Mul(contracts).Mul(decimal.NewFromInt(models.ContractMultiplier))
}

func breakEven(positionType string, strike, premium decimal.Decimal) decimal.Decimal {
	if positionType == models.PositionShortPut {
		return strike.Sub(premium)
	}
	return strike.Add(premium)
}

func openPrice(in OpenInput) decimal.Decimal {
	if in.PositionType == models.PositionLongStock {
		return in.CostPerShare
	}
	return in.PremiumPerContract
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
