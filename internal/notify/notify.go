package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Notifier pushes Telegram messages for balance events. Safe to use with a
// nil bot (notifications are then dropped); Redis, when present, rate-limits
// the referral-bonus messages so a 5-minute settlement cadence does not spam.
type Notifier struct {
	bot   *telego.Bot
	redis *redis.Client
}

func New(bot *telego.Bot, rdb *redis.Client) *Notifier {
	return &Notifier{bot: bot, redis: rdb}
}

func (n *Notifier) ReferralBonus(ctx context.Context, telegramID int64, amount decimal.Decimal, currency string) {
	if n == nil || n.bot == nil {
		return
	}

	if n.redis != nil {
		key := fmt.Sprintf("notified_refbonus_%d", telegramID)
		exists, err := n.redis.Exists(ctx, key).Result()
		if err == nil && exists > 0 {
			return
		}
		n.redis.Set(ctx, key, "true", time.Hour)
	}

	_, err := n.bot.SendMessage(ctx, tu.Message(
		tu.ID(telegramID),
		fmt.Sprintf("💰 Вам начислен реферальный бонус: %s %s за доход друга!", amount.StringFixed(2), currency),
	))
	if err != nil {
		log.Printf("Failed to send referral bonus notification to %d: %v", telegramID, err)
	}
}

func (n *Notifier) FarmingStopped(ctx context.Context, telegramID int64, deposit decimal.Decimal, currency string) {
	if n == nil || n.bot == nil {
		return
	}

	_, err := n.bot.SendMessage(ctx, tu.Message(
		tu.ID(telegramID),
		fmt.Sprintf("🌾 Сессия фарминга завершена. Депозит %s %s возвращён на баланс.", deposit.StringFixed(2), currency),
	))
	if err != nil {
		log.Printf("Failed to send farming notification to %d: %v", telegramID, err)
	}
}
