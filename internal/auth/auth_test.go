package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"
)

const testBotToken = "12345:test-token"

func newTestService() *Service {
	return NewService("test-secret", time.Hour, testBotToken, time.Hour)
}

func TestTokenRoundTrip(t *testing.T) {
	service := newTestService()

	token, err := service.IssueToken(42)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	userID, err := service.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if userID != 42 {
		t.Errorf("userID = %d, want 42", userID)
	}
}

func TestParseToken_Invalid(t *testing.T) {
	service := newTestService()

	token, err := service.IssueToken(42)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "tampered signature", token: token[:len(token)-4] + "XXXX"},
		{name: "wrong secret", token: mustIssue(t, NewService("other-secret", time.Hour, testBotToken, time.Hour), 42)},
		{name: "expired", token: mustIssue(t, NewService("test-secret", -time.Hour, testBotToken, time.Hour), 42)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := service.ParseToken(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("ParseToken() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func mustIssue(t *testing.T, service *Service, userID uint) string {
	t.Helper()
	token, err := service.IssueToken(userID)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	return token
}

// signInitData builds a Telegram WebApp payload signed the way Telegram signs
// it: data-check-string of sorted key=value pairs, keyed with
// HMAC-SHA256("WebAppData", botToken).
func signInitData(botToken string, fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+fields[key])
	}
	checkString := strings.Join(pairs, "\n")

	secretMAC := hmac.New(sha256.New, []byte("WebAppData"))
	secretMAC.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secretMAC.Sum(nil))
	mac.Write([]byte(checkString))
	hash := hex.EncodeToString(mac.Sum(nil))

	values := url.Values{}
	for key, value := range fields {
		values.Set(key, value)
	}
	values.Set("hash", hash)
	return values.Encode()
}

func TestValidateInitData(t *testing.T) {
	service := newTestService()
	userJSON := `{"id":777,"username":"alice","first_name":"Alice"}`
	freshDate := fmt.Sprintf("%d", time.Now().Unix())

	t.Run("valid payload", func(t *testing.T) {
		raw := signInitData(testBotToken, map[string]string{
			"user":      userJSON,
			"auth_date": freshDate,
			"query_id":  "AAF03QwA",
		})

		parsed, err := service.ValidateInitData(raw)
		if err != nil {
			t.Fatalf("ValidateInitData() error = %v", err)
		}
		if parsed.User.ID != 777 {
			t.Errorf("user ID = %d, want 777", parsed.User.ID)
		}
		if parsed.User.Username != "alice" {
			t.Errorf("username = %q", parsed.User.Username)
		}
	})

	t.Run("tampered payload", func(t *testing.T) {
		raw := signInitData(testBotToken, map[string]string{
			"user":      userJSON,
			"auth_date": freshDate,
		})
		raw = strings.Replace(raw, "777", "778", 1)

		if _, err := service.ValidateInitData(raw); !errors.Is(err, ErrInvalidInitData) {
			t.Errorf("error = %v, want ErrInvalidInitData", err)
		}
	})

	t.Run("wrong bot token", func(t *testing.T) {
		raw := signInitData("999:other-token", map[string]string{
			"user":      userJSON,
			"auth_date": freshDate,
		})

		if _, err := service.ValidateInitData(raw); !errors.Is(err, ErrInvalidInitData) {
			t.Errorf("error = %v, want ErrInvalidInitData", err)
		}
	})

	t.Run("missing hash", func(t *testing.T) {
		if _, err := service.ValidateInitData("user=x&auth_date=1"); !errors.Is(err, ErrInvalidInitData) {
			t.Errorf("error = %v, want ErrInvalidInitData", err)
		}
	})

	t.Run("stale auth date", func(t *testing.T) {
		raw := signInitData(testBotToken, map[string]string{
			"user":      userJSON,
			"auth_date": fmt.Sprintf("%d", time.Now().Add(-2*time.Hour).Unix()),
		})

		if _, err := service.ValidateInitData(raw); !errors.Is(err, ErrExpiredInitData) {
			t.Errorf("error = %v, want ErrExpiredInitData", err)
		}
	})
}
