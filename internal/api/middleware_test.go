package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"unifarm/internal/auth"
	"unifarm/internal/models"
)

const testBotToken = "12345:test-token"

type fakeUsers struct {
	user *models.User
	err  error

	gotTelegramID int64
}

func (f *fakeUsers) FindOrCreateByTelegram(_ context.Context, telegramID int64, _ string) (*models.User, error) {
	f.gotTelegramID = telegramID
	return f.user, f.err
}

func newAuthService() *auth.Service {
	return auth.NewService("test-secret", time.Hour, testBotToken, time.Hour)
}

func echoUserID() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(r.Header.Get(userIDHeader)))
	})
}

func TestWithAuth_JWT(t *testing.T) {
	authService := newAuthService()
	token, err := authService.IssueToken(7)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	handler := WithAuth(authService, &fakeUsers{})(echoUserID())

	req := httptest.NewRequest(http.MethodGet, "/api/balance", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "7" {
		t.Errorf("resolved user = %q, want 7", got)
	}
}

func TestWithAuth_MissingCredentials(t *testing.T) {
	handler := WithAuth(newAuthService(), &fakeUsers{})(echoUserID())

	req := httptest.NewRequest(http.MethodGet, "/api/balance", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestWithAuth_InvalidToken(t *testing.T) {
	handler := WithAuth(newAuthService(), &fakeUsers{})(echoUserID())

	req := httptest.NewRequest(http.MethodGet, "/api/balance", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestWithAuth_InitDataProvisionsUser(t *testing.T) {
	users := &fakeUsers{user: &models.User{ID: 15, TelegramID: 777}}
	handler := WithAuth(newAuthService(), users)(echoUserID())

	raw := signInitData(testBotToken, map[string]string{
		"user":      `{"id":777,"username":"alice","first_name":"Alice"}`,
		"auth_date": fmt.Sprintf("%d", time.Now().Unix()),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/balance", nil)
	req.Header.Set("Telegram-Init-Data", raw)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "15" {
		t.Errorf("resolved user = %q, want 15", got)
	}
	if users.gotTelegramID != 777 {
		t.Errorf("provisioned telegram id = %d, want 777", users.gotTelegramID)
	}
}

// signInitData mirrors Telegram's WebApp signing scheme for test payloads.
func signInitData(botToken string, fields map[string]string) string {
	// auth_date sorts before user, the only two keys these tests use.
	checkString := "auth_date=" + fields["auth_date"] + "\nuser=" + fields["user"]

	secretMAC := hmac.New(sha256.New, []byte("WebAppData"))
	secretMAC.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secretMAC.Sum(nil))
	mac.Write([]byte(checkString))

	values := url.Values{}
	for key, value := range fields {
		values.Set(key, value)
	}
	values.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return values.Encode()
}
