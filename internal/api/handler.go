package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"unifarm/internal/auth"
	"unifarm/internal/boost"
	"unifarm/internal/farming"
	"unifarm/internal/ledger"
	"unifarm/internal/missions"
	"unifarm/internal/models"
	"unifarm/internal/notify"
	"unifarm/internal/referral"
	"unifarm/internal/scheduler"
	"unifarm/internal/wallet"
)

type Handler struct {
	Ledger   *ledger.Ledger
	Auth     *auth.Service
	Farming  *farming.Service
	Boost    *boost.Service
	Missions *missions.Service
	Referral *referral.Service
	Engine   *scheduler.Engine
	Wallet   *wallet.Service
	Notify   *notify.Notifier
}

// POST /api/auth/telegram
// Exchanges valid Telegram init data for a JWT, provisioning the user row on
// first contact.
func (h *Handler) TelegramLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InitData string `json:"init_data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InitData == "" {
		writeError(w, http.StatusBadRequest, "init_data is required")
		return
	}

	parsed, err := h.Auth.ValidateInitData(req.InitData)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid init data")
		return
	}

	user, err := h.Ledger.FindOrCreateByTelegram(r.Context(), parsed.User.ID, parsed.User.Username)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	token, err := h.Auth.IssueToken(user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  balanceView(user),
	})
}

// GET /api/balance
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	user, err := h.Ledger.UserByID(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, balanceView(user))
}

// GET /api/transactions
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	records, err := h.Ledger.Transactions(r.Context(), userID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, records)
}

// POST /api/farming/start
func (h *Handler) FarmingStart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.Farming.Start(r.Context(), userID, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, session)
}

// POST /api/farming/stop
func (h *Handler) FarmingStop(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	session, err := h.Farming.Stop(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if user, err := h.Ledger.UserByID(r.Context(), userID); err == nil {
		h.Notify.FarmingStopped(r.Context(), user.TelegramID, session.DepositAmount, session.Currency)
	}

	writeSuccess(w, http.StatusOK, session)
}

// GET /api/farming/status
func (h *Handler) FarmingStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	status, err := h.Farming.Status(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, status)
}

// GET /api/boost/packages
func (h *Handler) BoostPackages(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, boost.Packages)
}

// POST /api/boost/purchase
func (h *Handler) BoostPurchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	var req struct {
		PackageID string          `json:"package_id"`
		Amount    decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.Boost.Purchase(r.Context(), userID, req.PackageID, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, session)
}

// GET /api/missions
func (h *Handler) MissionList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	list, err := h.Missions.List(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, list)
}

// POST /api/missions/{id}/complete
func (h *Handler) MissionComplete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	missionID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid mission id")
		return
	}

	mission, err := h.Missions.Complete(r.Context(), userID, uint(missionID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, mission)
}

// POST /api/withdraw
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	var req struct {
		Currency string          `json:"currency"`
		Amount   decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Currency == "" {
		writeError(w, http.StatusBadRequest, "currency and amount are required")
		return
	}

	rec, err := h.Wallet.Request(r.Context(), userID, req.Currency, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, rec)
}

// POST /api/admin/withdrawals/{id}/confirm
// Operator acknowledgement that the on-chain transfer went out.
func (h *Handler) AdminConfirmWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid withdrawal id")
		return
	}

	if err := h.Wallet.Confirm(r.Context(), uint(id)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"confirmed": id})
}

// GET /api/referral/stats
func (h *Handler) ReferralStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	stats, err := h.Referral.Stats(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, stats)
}

// POST /api/referral/redeem
func (h *Handler) ReferralRedeem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	referrer, err := h.Referral.Redeem(r.Context(), userID, req.Code)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"referrer_id": referrer.ID,
	})
}

// POST /api/admin/settle
// Manual ops trigger for the accrual engine; shares the engine's
// single-flight guard with the timer.
func (h *Handler) AdminSettle(w http.ResponseWriter, r *http.Request) {
	settled, err := h.Engine.SettleDueSessions(r.Context(), time.Now().UTC())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"settled": settled,
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

func balanceView(user *models.User) map[string]interface{} {
	return map[string]interface{}{
		"id":            user.ID,
		"telegram_id":   user.TelegramID,
		"username":      user.Username,
		"uni_balance":   user.UniBalance,
		"ton_balance":   user.TonBalance,
		"referral_code": user.ReferralCode,
	}
}
