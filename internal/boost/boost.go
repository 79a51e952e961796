package boost

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"unifarm/internal/ledger"
	"unifarm/internal/models"
)

var (
	ErrUnknownPackage   = errors.New("unknown boost package")
	ErrAmountOutOfRange = errors.New("amount outside package bounds")
	ErrBoostActive      = errors.New("boost session already active")
)

// Package is a TON-denominated farming upgrade tier.
type Package struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	DailyRate    decimal.Decimal `json:"daily_rate"`
	MinAmount    decimal.Decimal `json:"min_amount"`
	MaxAmount    decimal.Decimal `json:"max_amount"` // zero means unlimited
	DurationDays int             `json:"duration_days"`
}

// Packages mirrors the production tier table.
var Packages = []Package{
	{ID: "STARTER", Name: "Starter Boost", DailyRate: dec("0.01"), MinAmount: dec("10"), MaxAmount: dec("100"), DurationDays: 7},
	{ID: "PREMIUM", Name: "Premium Boost", DailyRate: dec("0.02"), MinAmount: dec("100"), DurationDays: 30},
	{ID: "ELITE", Name: "Elite Boost", DailyRate: dec("0.03"), MinAmount: dec("1000"), DurationDays: 90},
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func PackageByID(id string) (*Package, error) {
	for i := range Packages {
		if Packages[i].ID == id {
			return &Packages[i], nil
		}
	}
	return nil, ErrUnknownPackage
}

type store interface {
	ActiveSession(ctx context.Context, userID uint, currency string) (*models.FarmingSession, error)
	StartFarmingSession(ctx context.Context, userID uint, currency string, deposit, ratePerInterval decimal.Decimal, boostPackageID string, expiresAt *time.Time) (*models.FarmingSession, error)
	ConfirmTransaction(ctx context.Context, id uint) error
}

// Service sells TON boost packages and opens the TON farming session they
// back.
type Service struct {
	store    store
	interval time.Duration
}

func NewService(store store, interval time.Duration) *Service {
	return &Service{store: store, interval: interval}
}

// RatePerInterval converts a package's daily rate to the engine's accounting
// interval.
func (s *Service) RatePerInterval(pkg *Package) decimal.Decimal {
	intervalsPerDay := decimal.NewFromFloat(24 * time.Hour.Hours() / s.interval.Hours())
	return pkg.DailyRate.DivRound(intervalsPerDay, 12)
}

// Purchase debits the TON deposit, records a pending boost_purchase and opens
// the boost session, then confirms the purchase row.
func (s *Service) Purchase(ctx context.Context, userID uint, packageID string, amount decimal.Decimal) (*models.FarmingSession, error) {
	pkg, err := PackageByID(packageID)
	if err != nil {
		return nil, err
	}

	if err := ledger.CheckScale(amount); err != nil {
		return nil, err
	}
	if amount.LessThan(pkg.MinAmount) {
		return nil, fmt.Errorf("%w: minimum is %s TON", ErrAmountOutOfRange, pkg.MinAmount)
	}
	if pkg.MaxAmount.IsPositive() && amount.GreaterThan(pkg.MaxAmount) {
		return nil, fmt.Errorf("%w: maximum is %s TON", ErrAmountOutOfRange, pkg.MaxAmount)
	}

	if _, err := s.store.ActiveSession(ctx, userID, models.CurrencyTON); err == nil {
		return nil, ErrBoostActive
	} else if !errors.Is(err, ledger.ErrNotFound) {
		return nil, err
	}

	expiresAt := time.Now().UTC().Add(time.Duration(pkg.DurationDays) * 24 * time.Hour)
	session, err := s.store.StartFarmingSession(ctx, userID, models.CurrencyTON, amount, s.RatePerInterval(pkg), pkg.ID, &expiresAt)
	if err != nil {
		return nil, err
	}

	if err := s.store.ConfirmTransaction(ctx, session.DepositTransactionID); err != nil {
		// The purchase itself landed; a stuck pending row is an ops concern,
		// not a reason to fail the user.
		log.Printf("Failed to confirm boost purchase %d: %v", session.DepositTransactionID, err)
	}

	return session, nil
}
