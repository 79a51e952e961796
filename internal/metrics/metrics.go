package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unifarm_sessions_settled_total",
		Help: "Farming sessions settled successfully.",
	})

	SessionsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unifarm_sessions_skipped_total",
		Help: "Due sessions skipped because the computed reward was non-positive.",
	})

	SettlementErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unifarm_settlement_errors_total",
		Help: "Per-session settlement failures.",
	})

	RewardsDistributed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unifarm_rewards_distributed_total",
		Help: "Total reward value credited, by currency and transaction type.",
	}, []string{"currency", "type"})

	SchedulerRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unifarm_scheduler_runs_total",
		Help: "Accrual engine invocations by outcome.",
	}, []string{"outcome"})
)
