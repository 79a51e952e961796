package api

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"

	"unifarm/internal/auth"
	"unifarm/internal/models"
)

const userIDHeader = "User-ID"

type userProvisioner interface {
	FindOrCreateByTelegram(ctx context.Context, telegramID int64, username string) (*models.User, error)
}

// WithAuth accepts either a UniFarm JWT in the Authorization header or raw
// Telegram WebApp init data in Telegram-Init-Data, and stuffs the resolved
// user ID into the User-ID header for downstream handlers.
func WithAuth(authService *auth.Service, users userProvisioner) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				tokenString := strings.TrimPrefix(authHeader, "Bearer ")
				userID, err := authService.ParseToken(tokenString)
				if err != nil {
					log.Printf("Unauthorized request to %s: %v", r.RequestURI, err)
					writeError(w, http.StatusUnauthorized, "invalid token")
					return
				}
				r.Header.Set(userIDHeader, strconv.FormatUint(uint64(userID), 10))
				next.ServeHTTP(w, r)
				return
			}

			if initData := r.Header.Get("Telegram-Init-Data"); initData != "" {
				parsed, err := authService.ValidateInitData(initData)
				if err != nil {
					log.Printf("Unauthorized request to %s: %v", r.RequestURI, err)
					writeError(w, http.StatusUnauthorized, "invalid init data")
					return
				}

				user, err := users.FindOrCreateByTelegram(r.Context(), parsed.User.ID, parsed.User.Username)
				if err != nil {
					log.Printf("Failed to provision user %d: %v", parsed.User.ID, err)
					writeError(w, http.StatusInternalServerError, "internal server error")
					return
				}
				r.Header.Set(userIDHeader, strconv.FormatUint(uint64(user.ID), 10))
				next.ServeHTTP(w, r)
				return
			}

			writeError(w, http.StatusUnauthorized, "missing credentials")
		})
	}
}

func requestUserID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.Header.Get(userIDHeader), 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
