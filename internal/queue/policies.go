package queue

import (
	"time"

	"github.com/inboxreel/inboxreel/pkg/pipelineconfig"
)

// PoliciesFromConfig builds the per-queue Policy map every JobQueue
// transport is constructed with. cmd/worker and cmd/server both call
// this instead of hand-assembling their own maps, so an operator-triggered
// enqueue (cmd/server) and a worker-triggered one share the same
// dedup window, retries, and retention.
func PoliciesFromConfig(cfg pipelineconfig.Config) map[string]Policy {
	completedRetention := time.Duration(cfg.Retention.CompletedHours) * time.Hour
	failedRetention := time.Duration(cfg.Retention.FailedHours) * time.Hour

	return map[string]Policy{
		EmailProcessQueue: {
			MaxAttempts:        cfg.Queues.EmailProcess.Attempts,
			BackoffBase:        time.Duration(cfg.Queues.EmailProcess.BackoffBaseSeconds) * time.Second,
			Concurrency:        cfg.Queues.EmailProcess.Concurrency,
			RateLimitPerSecond: cfg.Queues.EmailProcess.RateLimitPerSecond,
			CompletedRetention: completedRetention,
			FailedRetention:    failedRetention,
			DedupWindow:        failedRetention,
		},
		EnrichQueue: {
			MaxAttempts:        cfg.Queues.Enrich.Attempts,
			BackoffBase:        time.Duration(cfg.Queues.Enrich.BackoffBaseSeconds) * time.Second,
			Concurrency:        cfg.Queues.Enrich.Concurrency,
			RateLimitPerSecond: cfg.Queues.Enrich.RateLimitPerSecond,
			CompletedRetention: completedRetention,
			FailedRetention:    failedRetention,
			DedupWindow:        failedRetention,
		},
		RankComputeQueue: {
			MaxAttempts:        cfg.Queues.RankCompute.Attempts,
			BackoffBase:        time.Duration(cfg.Queues.RankCompute.BackoffBaseSeconds) * time.Second,
			Concurrency:        cfg.Queues.RankCompute.Concurrency,
			RateLimitPerSecond: cfg.Queues.RankCompute.RateLimitPerSecond,
			CompletedRetention: completedRetention,
			FailedRetention:    failedRetention,
			DedupWindow:        failedRetention,
		},
	}
}
