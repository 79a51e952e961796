package farming

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"unifarm/internal/ledger"
	"unifarm/internal/models"
)

var (
	ErrSessionActive   = errors.New("farming session already active")
	ErrDepositTooSmall = errors.New("deposit below minimum")
)

type store interface {
	ActiveSession(ctx context.Context, userID uint, currency string) (*models.FarmingSession, error)
	StartFarmingSession(ctx context.Context, userID uint, currency string, deposit, ratePerInterval decimal.Decimal, boostPackageID string, expiresAt *time.Time) (*models.FarmingSession, error)
	CloseFarmingSession(ctx context.Context, session *models.FarmingSession, finalReward decimal.Decimal, intervals int64, interval time.Duration) error
}

// Service manages UNI farming session lifecycle. All balance movement goes
// through the ledger's compound operations.
type Service struct {
	store      store
	rate       decimal.Decimal
	minDeposit decimal.Decimal
	interval   time.Duration
}

func NewService(store store, ratePerInterval, minDeposit decimal.Decimal, interval time.Duration) *Service {
	return &Service{
		store:      store,
		rate:       ratePerInterval,
		minDeposit: minDeposit,
		interval:   interval,
	}
}

// Start opens a UNI farming session, moving the deposit out of the user's
// balance. One active UNI session per user.
func (s *Service) Start(ctx context.Context, userID uint, amount decimal.Decimal) (*models.FarmingSession, error) {
	if err := ledger.CheckScale(amount); err != nil {
		return nil, err
	}
	if amount.LessThan(s.minDeposit) {
		return nil, fmt.Errorf("%w: minimum is %s UNI", ErrDepositTooSmall, s.minDeposit)
	}

	if _, err := s.store.ActiveSession(ctx, userID, models.CurrencyUNI); err == nil {
		return nil, ErrSessionActive
	} else if !errors.Is(err, ledger.ErrNotFound) {
		return nil, err
	}

	return s.store.StartFarmingSession(ctx, userID, models.CurrencyUNI, amount, s.rate, "", nil)
}

// Stop settles any remaining whole intervals, returns the deposit and
// completes the session.
func (s *Service) Stop(ctx context.Context, userID uint) (*models.FarmingSession, error) {
	session, err := s.store.ActiveSession(ctx, userID, models.CurrencyUNI)
	if err != nil {
		return nil, err
	}

	reward, intervals := PendingReward(session, time.Now().UTC(), s.interval)
	if err := s.store.CloseFarmingSession(ctx, session, reward, intervals, s.interval); err != nil {
		return nil, err
	}
	return session, nil
}

// Status reports the active session and its currently accrued, not yet
// settled reward.
func (s *Service) Status(ctx context.Context, userID uint) (*SessionStatus, error) {
	session, err := s.store.ActiveSession(ctx, userID, models.CurrencyUNI)
	if err != nil {
		return nil, err
	}

	reward, intervals := PendingReward(session, time.Now().UTC(), s.interval)
	return &SessionStatus{
		Session:          session,
		PendingIntervals: intervals,
		PendingReward:    reward,
	}, nil
}

type SessionStatus struct {
	Session          *models.FarmingSession `json:"session"`
	PendingIntervals int64                  `json:"pending_intervals"`
	PendingReward    decimal.Decimal        `json:"pending_reward"`
}

// PendingReward computes the reward due for the whole intervals elapsed since
// the last settlement: deposit * rate * floor(elapsed / interval), truncated
// to the ledger scale.
func PendingReward(session *models.FarmingSession, now time.Time, interval time.Duration) (decimal.Decimal, int64) {
	intervals := int64(now.Sub(session.LastSettledAt) / interval)
	if intervals <= 0 {
		return decimal.Zero, 0
	}

	reward := session.DepositAmount.
		Mul(session.RatePerInterval).
		Mul(decimal.NewFromInt(intervals)).
		Truncate(ledger.Scale)
	return reward, intervals
}
