package database

import (
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"unifarm/internal/config"
	"unifarm/internal/models"
)

func ConnectPostgres(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Connected to PostgreSQL")

	// Auto Migrate
	err = db.AutoMigrate(
		&models.User{},
		&models.Transaction{},
		&models.FarmingSession{},
		&models.Mission{},
		&models.UserMission{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := seedMissions(db); err != nil {
		return nil, fmt.Errorf("failed to seed missions: %w", err)
	}

	return db, nil
}

// seedMissions inserts the default mission catalogue on first boot.
func seedMissions(db *gorm.DB) error {
	missions := []models.Mission{
		{Title: "Подписаться на Telegram-канал UniFarm", RewardAmount: dec("500"), RewardCurrency: models.CurrencyUNI},
		{Title: "Пригласить первого друга", RewardAmount: dec("1000"), RewardCurrency: models.CurrencyUNI},
		{Title: "Запустить первую UNI-сессию фарминга", RewardAmount: dec("250"), RewardCurrency: models.CurrencyUNI},
	}

	for _, mission := range missions {
		if err := db.Where(models.Mission{Title: mission.Title}).FirstOrCreate(&mission).Error; err != nil {
			return err
		}
	}
	return nil
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}
