package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"unifarm/internal/models"
)

func (l *Ledger) ActiveMissions(ctx context.Context) ([]models.Mission, error) {
	var missions []models.Mission
	if err := l.db.WithContext(ctx).Where("active = ?", true).Order("id").Find(&missions).Error; err != nil {
		return nil, fmt.Errorf("error fetching missions: %w", err)
	}
	return missions, nil
}

func (l *Ledger) CompletedMissionIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	var records []models.UserMission
	if err := l.db.WithContext(ctx).Where("user_id = ?", userID).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("error fetching completed missions: %w", err)
	}

	completed := make(map[uint]bool, len(records))
	for _, rec := range records {
		completed[rec.MissionID] = true
	}
	return completed, nil
}

// CompleteMission writes the completion marker, the balance credit and the
// mission_reward row in one transaction. The unique index on
// (user_id, mission_id) turns a repeat completion into ErrDuplicate.
func (l *Ledger) CompleteMission(ctx context.Context, userID uint, mission *models.Mission) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		marker := models.UserMission{
			UserID:      userID,
			MissionID:   mission.ID,
			CompletedAt: time.Now().UTC(),
		}
		if err := tx.Create(&marker).Error; err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return ErrDuplicate
			}
			return fmt.Errorf("error marking mission complete: %w", err)
		}

		if _, err := creditBalance(tx, userID, mission.RewardCurrency, mission.RewardAmount); err != nil {
			return err
		}

		rec := models.Transaction{
			UserID:         userID,
			Type:           models.TransactionMissionReward,
			Currency:       mission.RewardCurrency,
			Amount:         mission.RewardAmount,
			Status:         models.TransactionConfirmed,
			IdempotencyKey: fmt.Sprintf("mission:%d:%d", userID, mission.ID),
			Description:    mission.Title,
		}
		return appendTransaction(tx, &rec)
	})
}
