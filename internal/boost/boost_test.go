package boost

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"unifarm/internal/ledger"
	"unifarm/internal/models"
)

type fakeStore struct {
	active    *models.FarmingSession
	started   []models.FarmingSession
	confirmed []uint
}

func (f *fakeStore) ActiveSession(_ context.Context, userID uint, currency string) (*models.FarmingSession, error) {
	if f.active == nil || f.active.UserID != userID || f.active.Currency != currency {
		return nil, ledger.ErrNotFound
	}
	copied := *f.active
	return &copied, nil
}

func (f *fakeStore) StartFarmingSession(_ context.Context, userID uint, currency string, deposit, rate decimal.Decimal, boostPackageID string, expiresAt *time.Time) (*models.FarmingSession, error) {
	session := models.FarmingSession{
		ID:                   uint(len(f.started) + 1),
		UserID:               userID,
		Currency:             currency,
		DepositAmount:        deposit,
		RatePerInterval:      rate,
		BoostPackageID:       boostPackageID,
		DepositTransactionID: 77,
		Status:               models.SessionActive,
		ExpiresAt:            expiresAt,
	}
	f.started = append(f.started, session)
	return &session, nil
}

func (f *fakeStore) ConfirmTransaction(_ context.Context, id uint) error {
	f.confirmed = append(f.confirmed, id)
	return nil
}

func TestPackageByID(t *testing.T) {
	pkg, err := PackageByID("STARTER")
	if err != nil {
		t.Fatalf("PackageByID(STARTER) error = %v", err)
	}
	if !pkg.DailyRate.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("STARTER daily rate = %s", pkg.DailyRate)
	}

	if _, err := PackageByID("MEGA"); !errors.Is(err, ErrUnknownPackage) {
		t.Errorf("PackageByID(MEGA) error = %v, want ErrUnknownPackage", err)
	}
}

func TestRatePerInterval(t *testing.T) {
	service := NewService(&fakeStore{}, time.Hour)
	pkg, _ := PackageByID("STARTER")

	// 1% per day over 24 hourly intervals.
	want := decimal.RequireFromString("0.000416666667")
	if got := service.RatePerInterval(pkg); !got.Equal(want) {
		t.Errorf("RatePerInterval = %s, want %s", got, want)
	}
}

func TestPurchase(t *testing.T) {
	tonSession := &models.FarmingSession{ID: 3, UserID: 1, Currency: models.CurrencyTON, Status: models.SessionActive}

	tests := []struct {
		name      string
		packageID string
		amount    string
		active    *models.FarmingSession
		wantErr   error
	}{
		{name: "success", packageID: "STARTER", amount: "50"},
		{name: "unknown package", packageID: "MEGA", amount: "50", wantErr: ErrUnknownPackage},
		{name: "below minimum", packageID: "STARTER", amount: "5", wantErr: ErrAmountOutOfRange},
		{name: "above maximum", packageID: "STARTER", amount: "150", wantErr: ErrAmountOutOfRange},
		{name: "premium has no maximum", packageID: "PREMIUM", amount: "5000"},
		{name: "boost already active", packageID: "STARTER", amount: "50", active: tonSession, wantErr: ErrBoostActive},
		{name: "excess precision", packageID: "STARTER", amount: "50.0000001", wantErr: ledger.ErrInsufficientPrecision},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{active: tt.active}
			service := NewService(store, time.Hour)

			session, err := service.Purchase(context.Background(), 1, tt.packageID, decimal.RequireFromString(tt.amount))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Purchase() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Purchase() error = %v", err)
			}

			if session.Currency != models.CurrencyTON {
				t.Errorf("currency = %q", session.Currency)
			}
			if session.BoostPackageID != tt.packageID {
				t.Errorf("package = %q, want %q", session.BoostPackageID, tt.packageID)
			}
			if session.ExpiresAt == nil {
				t.Error("ExpiresAt not set")
			}
			if len(store.confirmed) != 1 || store.confirmed[0] != 77 {
				t.Errorf("confirmed = %v, want [77]", store.confirmed)
			}
		})
	}
}
