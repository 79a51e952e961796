package missions

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"unifarm/internal/ledger"
	"unifarm/internal/models"
)

var ErrAlreadyCompleted = errors.New("mission already completed")

type store interface {
	ActiveMissions(ctx context.Context) ([]models.Mission, error)
	CompletedMissionIDs(ctx context.Context, userID uint) (map[uint]bool, error)
	CompleteMission(ctx context.Context, userID uint, mission *models.Mission) error
}

type Service struct {
	store store
}

func NewService(store store) *Service {
	return &Service{store: store}
}

type MissionStatus struct {
	ID             uint            `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	RewardAmount   decimal.Decimal `json:"reward_amount"`
	RewardCurrency string          `json:"reward_currency"`
	Completed      bool            `json:"completed"`
}

// List returns the active missions with the user's completion flags.
func (s *Service) List(ctx context.Context, userID uint) ([]MissionStatus, error) {
	missions, err := s.store.ActiveMissions(ctx)
	if err != nil {
		return nil, err
	}

	completed, err := s.store.CompletedMissionIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	statuses := make([]MissionStatus, 0, len(missions))
	for _, m := range missions {
		statuses = append(statuses, MissionStatus{
			ID:             m.ID,
			Title:          m.Title,
			Description:    m.Description,
			RewardAmount:   m.RewardAmount,
			RewardCurrency: m.RewardCurrency,
			Completed:      completed[m.ID],
		})
	}
	return statuses, nil
}

// Complete marks a mission done and credits its reward. Each mission pays
// once per user; the completion marker and the credit land atomically.
func (s *Service) Complete(ctx context.Context, userID, missionID uint) (*models.Mission, error) {
	missions, err := s.store.ActiveMissions(ctx)
	if err != nil {
		return nil, err
	}

	var mission *models.Mission
	for i := range missions {
		if missions[i].ID == missionID {
			mission = &missions[i]
			break
		}
	}
	if mission == nil {
		return nil, ledger.ErrNotFound
	}

	if err := s.store.CompleteMission(ctx, userID, mission); err != nil {
		if errors.Is(err, ledger.ErrDuplicate) {
			return nil, ErrAlreadyCompleted
		}
		return nil, err
	}
	return mission, nil
}
