package db

import "wheeljournal/internal/models"

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil {
		return nil
	}
	return db.Gorm.AutoMigrate(
		&models.Depot{},
		&models.Security{},
		&models.WheelCycle{},
		&models.TradePosition{},
		&models.Dividend{},
		&models.TradeTransaction{},
		&models.PartialFill{},
		&models.ImportBatch{},
		&models.DailyPrice{},
		&models.ScreeningProfile{},
		&models.ScreeningCriterion{},
		&models.ReplaySession{},
		&models.TradeNote{},
		&models.UserSetting{},
	)
}
