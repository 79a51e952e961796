package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"unifarm/internal/ledger"
	"unifarm/internal/metrics"
	"unifarm/internal/models"
)

// ErrAlreadyRunning is returned when a settlement run is triggered while a
// previous one is still in flight, locally or on another replica.
var ErrAlreadyRunning = errors.New("settlement run already in progress")

const leaseKey = "unifarm:settle:lease"

type sessionStore interface {
	DueSessions(ctx context.Context, now time.Time, minElapsed time.Duration) ([]models.FarmingSession, error)
	SettleFarmingReward(ctx context.Context, session *models.FarmingSession, reward decimal.Decimal, intervals int64, interval time.Duration) error
	ExpiredSessions(ctx context.Context, now time.Time) ([]models.FarmingSession, error)
	CloseFarmingSession(ctx context.Context, session *models.FarmingSession, finalReward decimal.Decimal, intervals int64, interval time.Duration) error
}

type payoutPropagator interface {
	Propagate(ctx context.Context, userID uint, reward decimal.Decimal, currency string) error
}

// Engine is the boost accrual engine: a timer-driven batch job that settles
// outstanding farming rewards and fans referral payouts out of each
// settlement. Sessions are processed sequentially; a failure on one session
// never aborts the batch.
type Engine struct {
	store      sessionStore
	payouts    payoutPropagator
	redis      *redis.Client
	interval   time.Duration
	tick       time.Duration
	instanceID string

	mu sync.Mutex
}

func NewEngine(store sessionStore, payouts payoutPropagator, rdb *redis.Client, interval, tick time.Duration, instanceID string) *Engine {
	return &Engine{
		store:      store,
		payouts:    payouts,
		redis:      rdb,
		interval:   interval,
		tick:       tick,
		instanceID: instanceID,
	}
}

// Run drives the engine until ctx is cancelled. The first settlement happens
// immediately, then on every tick.
func (e *Engine) Run(ctx context.Context) {
	log.Println("Background accrual engine started")

	e.runOnce(ctx)

	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Accrual engine stopped")
			return
		case <-ticker.C:
			e.runOnce(ctx)
		}
	}
}

func (e *Engine) runOnce(ctx context.Context) {
	settled, err := e.SettleDueSessions(ctx, time.Now().UTC())
	switch {
	case errors.Is(err, ErrAlreadyRunning):
		log.Println("Skipping settlement run: previous run still in progress")
		metrics.SchedulerRuns.WithLabelValues("skipped").Inc()
	case err != nil:
		log.Printf("Settlement run failed: %v", err)
		metrics.SchedulerRuns.WithLabelValues("error").Inc()
	default:
		if settled > 0 {
			log.Printf("Settlement run complete: %d session(s) settled", settled)
		}
		metrics.SchedulerRuns.WithLabelValues("ok").Inc()
	}
}

// SettleDueSessions settles every active session with at least one whole
// elapsed interval and returns how many were settled. At most one run may be
// in flight: an in-process TryLock covers the single-binary case and a Redis
// lease covers multiple replicas. The same guarded entry point serves the
// timer and the manual ops trigger.
func (e *Engine) SettleDueSessions(ctx context.Context, now time.Time) (int, error) {
	if !e.mu.TryLock() {
		return 0, ErrAlreadyRunning
	}
	defer e.mu.Unlock()

	release, err := e.acquireLease(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	sessions, err := e.store.DueSessions(ctx, now, e.interval)
	if err != nil {
		return 0, err
	}

	settled := 0
	for i := range sessions {
		session := &sessions[i]

		intervals := int64(settlementCutoff(session, now).Sub(session.LastSettledAt) / e.interval)
		if intervals <= 0 {
			continue
		}

		reward := session.DepositAmount.
			Mul(session.RatePerInterval).
			Mul(decimal.NewFromInt(intervals)).
			Truncate(ledger.Scale)
		if !reward.IsPositive() {
			log.Printf("Skipping session %d: non-positive reward for %d interval(s)", session.ID, intervals)
			metrics.SessionsSkipped.Inc()
			continue
		}

		if err := e.store.SettleFarmingReward(ctx, session, reward, intervals, e.interval); err != nil {
			log.Printf("Failed to settle session %d: %v", session.ID, err)
			metrics.SettlementErrors.Inc()
			continue
		}

		settled++
		metrics.SessionsSettled.Inc()
		metrics.RewardsDistributed.
			WithLabelValues(session.Currency, models.TransactionFarmingReward).
			Add(reward.InexactFloat64())

		if e.payouts != nil {
			if err := e.payouts.Propagate(ctx, session.UserID, reward, session.Currency); err != nil {
				log.Printf("Referral payout failed for session %d: %v", session.ID, err)
			}
		}
	}

	e.sweepExpired(ctx, now)

	return settled, nil
}

// sweepExpired unwinds boost sessions whose package duration has elapsed:
// settle the remainder up to the expiry instant, then return the deposit.
func (e *Engine) sweepExpired(ctx context.Context, now time.Time) {
	expired, err := e.store.ExpiredSessions(ctx, now)
	if err != nil {
		log.Printf("Failed to fetch expired sessions: %v", err)
		return
	}

	for i := range expired {
		session := &expired[i]

		intervals := int64(settlementCutoff(session, now).Sub(session.LastSettledAt) / e.interval)

		var reward decimal.Decimal
		if intervals > 0 {
			reward = session.DepositAmount.
				Mul(session.RatePerInterval).
				Mul(decimal.NewFromInt(intervals)).
				Truncate(ledger.Scale)
		}

		if err := e.store.CloseFarmingSession(ctx, session, reward, intervals, e.interval); err != nil {
			log.Printf("Failed to close expired session %d: %v", session.ID, err)
			continue
		}
		log.Printf("Closed expired boost session %d (user %d)", session.ID, session.UserID)

		if reward.IsPositive() && e.payouts != nil {
			if err := e.payouts.Propagate(ctx, session.UserID, reward, session.Currency); err != nil {
				log.Printf("Referral payout failed for expired session %d: %v", session.ID, err)
			}
		}
	}
}

// settlementCutoff bounds accrual at the session's expiry, so a run after
// downtime cannot pay intervals that fall past the boost's lifetime.
func settlementCutoff(session *models.FarmingSession, now time.Time) time.Time {
	if session.ExpiresAt != nil && session.ExpiresAt.Before(now) {
		return *session.ExpiresAt
	}
	return now
}

// acquireLease takes the cross-replica settlement lease. A Redis outage
// degrades to in-process locking with a logged warning rather than stalling
// all settlements.
func (e *Engine) acquireLease(ctx context.Context) (func(), error) {
	if e.redis == nil {
		return func() {}, nil
	}

	ttl := 2 * e.tick
	ok, err := e.redis.SetNX(ctx, leaseKey, e.instanceID, ttl).Result()
	if err != nil {
		log.Printf("Redis lease unavailable, falling back to local lock: %v", err)
		return func() {}, nil
	}
	if !ok {
		return nil, ErrAlreadyRunning
	}

	return func() {
		if err := e.redis.Del(context.WithoutCancel(ctx), leaseKey).Err(); err != nil {
			log.Printf("Failed to release settlement lease: %v", err)
		}
	}, nil
}
