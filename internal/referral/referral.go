package referral

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"unifarm/internal/ledger"
	"unifarm/internal/models"
)

var (
	ErrSelfReferral    = errors.New("cannot redeem own referral code")
	ErrAlreadyAttached = errors.New("referrer already set")
	ErrReferralCycle   = errors.New("referral chain would form a cycle")
)

// maxRedeemWalk bounds the redemption-time chain check independently of the
// payout depth, so a long legitimate chain is still inspected fully.
const maxRedeemWalk = 64

type store interface {
	UserByID(ctx context.Context, id uint) (*models.User, error)
	UserByReferralCode(ctx context.Context, code string) (*models.User, error)
	AttachReferrer(ctx context.Context, userID, referrerID uint) error
	InvitedCount(ctx context.Context, userID uint) (int64, error)
	ReferralEarnings(ctx context.Context, userID uint) (map[string]decimal.Decimal, error)
	CreditReferralBonus(ctx context.Context, ancestorID, sourceUserID uint, currency string, bonus decimal.Decimal, level int) error
}

type bonusNotifier interface {
	ReferralBonus(ctx context.Context, telegramID int64, amount decimal.Decimal, currency string)
}

// Service walks referral chains: paying out level bonuses on settled rewards
// and validating code redemptions.
type Service struct {
	store      store
	levelRates []decimal.Decimal
	notifier   bonusNotifier
}

func NewService(store store, levelRates []decimal.Decimal, notifier bonusNotifier) *Service {
	return &Service{
		store:      store,
		levelRates: levelRates,
		notifier:   notifier,
	}
}

// Propagate distributes level bonuses for a settled reward up the referral
// chain. The walk is capped at len(levelRates) ancestors and keeps a visited
// set, so a self-referential or cyclic edge cannot pay twice. A failure at
// one level is logged and the walk continues upward; propagation never
// triggers further accrual.
func (s *Service) Propagate(ctx context.Context, userID uint, reward decimal.Decimal, currency string) error {
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("error loading reward source user %d: %w", userID, err)
	}

	visited := map[uint]bool{userID: true}
	current := user

	for depth := 0; depth < len(s.levelRates); depth++ {
		if current.ReferrerID == nil {
			break
		}
		ancestorID := *current.ReferrerID

		if visited[ancestorID] {
			log.Printf("Referral cycle detected at user %d, stopping payout walk", ancestorID)
			break
		}
		visited[ancestorID] = true

		ancestor, err := s.store.UserByID(ctx, ancestorID)
		if err != nil {
			log.Printf("Failed to load referrer %d: %v", ancestorID, err)
			break
		}

		bonus := reward.Mul(s.levelRates[depth]).Truncate(ledger.Scale)
		if bonus.IsPositive() {
			if err := s.store.CreditReferralBonus(ctx, ancestor.ID, userID, currency, bonus, depth+1); err != nil {
				log.Printf("Failed to credit level %d bonus to user %d: %v", depth+1, ancestor.ID, err)
			} else if s.notifier != nil {
				s.notifier.ReferralBonus(ctx, ancestor.TelegramID, bonus, currency)
			}
		}

		current = ancestor
	}

	return nil
}

// Redeem attaches the owner of code as userID's referrer. Self-referrals,
// repeat redemptions and cycle-forming edges are rejected here, at the only
// point where referral edges are created.
func (s *Service) Redeem(ctx context.Context, userID uint, code string) (*models.User, error) {
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.ReferrerID != nil {
		return nil, ErrAlreadyAttached
	}

	referrer, err := s.store.UserByReferralCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if referrer.ID == userID {
		return nil, ErrSelfReferral
	}

	if err := s.checkCycle(ctx, userID, referrer); err != nil {
		return nil, err
	}

	if err := s.store.AttachReferrer(ctx, userID, referrer.ID); err != nil {
		if errors.Is(err, ledger.ErrDuplicate) {
			return nil, ErrAlreadyAttached
		}
		return nil, err
	}

	return referrer, nil
}

// checkCycle walks upward from the prospective referrer; finding userID in
// that chain means attaching the edge would close a loop.
func (s *Service) checkCycle(ctx context.Context, userID uint, referrer *models.User) error {
	visited := map[uint]bool{referrer.ID: true}
	current := referrer

	for i := 0; i < maxRedeemWalk; i++ {
		if current.ReferrerID == nil {
			return nil
		}
		ancestorID := *current.ReferrerID

		if ancestorID == userID {
			return ErrReferralCycle
		}
		if visited[ancestorID] {
			// Pre-existing loop above the referrer; the new edge does not
			// include userID, so allow it and let the payout guard cope.
			return nil
		}
		visited[ancestorID] = true

		ancestor, err := s.store.UserByID(ctx, ancestorID)
		if err != nil {
			return fmt.Errorf("error walking referral chain: %w", err)
		}
		current = ancestor
	}

	return nil
}

type Stats struct {
	ReferralCode string                     `json:"referral_code"`
	InvitedCount int64                      `json:"invited_count"`
	Earnings     map[string]decimal.Decimal `json:"earnings"`
}

func (s *Service) Stats(ctx context.Context, userID uint) (*Stats, error) {
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	invited, err := s.store.InvitedCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	earnings, err := s.store.ReferralEarnings(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Stats{
		ReferralCode: user.ReferralCode,
		InvitedCount: invited,
		Earnings:     earnings,
	}, nil
}
