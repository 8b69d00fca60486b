// Package pipelineconfig loads the behavioral configuration table of the
// ranking pipeline: batch sizes, rate limits, circuit-breaker thresholds,
// ranking weights, and queue policy. It is a TOML document, the way
// five82-spindle's internal/config loads its sample_config.toml, because
// this table is large enough to want named sections and comments rather
// than a flat list of environment variables.
package pipelineconfig

import (
	_ "embed"
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// YouTube holds the Enrichment Client's batching and quota knobs.
type YouTube struct {
	BatchSize         int     `toml:"batch_size"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	QuotaUnitsPerDay  int     `toml:"quota_units_per_day"`
}

// CircuitBreaker holds the Enrichment Client's breaker thresholds.
type CircuitBreaker struct {
	FailureThreshold int `toml:"failure_threshold"`
	ResetTimeoutMS   int `toml:"reset_timeout_ms"`
}

// FeatureWeights holds the five ranker weights; they need not
// sum to 1 but are expected to by convention.
type FeatureWeights struct {
	Sender     float64 `toml:"sender"`
	Thread     float64 `toml:"thread"`
	Freshness  float64 `toml:"freshness"`
	Topic      float64 `toml:"topic"`
	NoisePenalty float64 `toml:"noise_penalty"`
}

// Ranking holds the Ranker's thresholds, decay half-life, and weights.
type Ranking struct {
	FreshnessHalfLifeDays float64        `toml:"freshness_half_life_days"`
	WatchNowThreshold     float64        `toml:"watch_now_threshold"`
	SaveThreshold         float64        `toml:"save_threshold"`
	FeatureWeights        FeatureWeights `toml:"feature_weights"`
}

// QueuePolicy holds the per-queue attempt cap, backoff base, concurrency
// cap, and optional rate limit.
type QueuePolicy struct {
	Attempts           int     `toml:"attempts"`
	BackoffBaseSeconds int     `toml:"backoff_base_seconds"`
	Concurrency        int     `toml:"concurrency"`
	RateLimitPerSecond float64 `toml:"rate_limit_per_second"` // 0 means unlimited
}

// Queues holds the three named queues of the pipeline.
type Queues struct {
	EmailProcess QueuePolicy `toml:"email_process"`
	Enrich       QueuePolicy `toml:"enrich"`
	RankCompute  QueuePolicy `toml:"rank_compute"`
}

// Retention controls how long terminal jobs are kept for inspection.
type Retention struct {
	CompletedHours int `toml:"completed_hours"`
	FailedHours    int `toml:"failed_hours"`
}

// Config is the full behavioral configuration document.
type Config struct {
	YouTube        YouTube        `toml:"youtube"`
	CircuitBreaker CircuitBreaker `toml:"circuit_breaker"`
	Ranking        Ranking        `toml:"ranking"`
	Queues         Queues         `toml:"queues"`
	Retention      Retention      `toml:"retention"`
	CacheTTLDays   int            `toml:"cache_ttl_days"`
}

// Defaults returns the configuration table with every value at its
// conservative default.
func Defaults() Config {
	return Config{
		YouTube: YouTube{
			BatchSize:         50,
			RequestsPerSecond: 10,
			QuotaUnitsPerDay:  10000,
		},
		CircuitBreaker: CircuitBreaker{
			FailureThreshold: 3,
			ResetTimeoutMS:   60000,
		},
		Ranking: Ranking{
			FreshnessHalfLifeDays: 30,
			WatchNowThreshold:     0.7,
			SaveThreshold:         0.4,
			FeatureWeights: FeatureWeights{
				Sender:       0.3,
				Thread:       0.2,
				Freshness:    0.2,
				Topic:        0.2,
				NoisePenalty: 0.1,
			},
		},
		Queues: Queues{
			EmailProcess: QueuePolicy{Attempts: 3, BackoffBaseSeconds: 2, Concurrency: 5},
			Enrich:       QueuePolicy{Attempts: 3, BackoffBaseSeconds: 2, Concurrency: 3, RateLimitPerSecond: 10},
			RankCompute:  QueuePolicy{Attempts: 3, BackoffBaseSeconds: 2, Concurrency: 1},
		},
		Retention: Retention{
			CompletedHours: 24,
			FailedHours:    24 * 7,
		},
		CacheTTLDays: 7,
	}
}

// Load reads a TOML file at path, overlaying it onto Defaults(). A missing
// file is not an error — Defaults() alone is a complete, valid configuration,
// matching a getEnv(key, default) fallback philosophy applied
// to a structured document instead of flat keys.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := readFileOrEmpty(path)
	if err != nil {
		return Config{}, fmt.Errorf("read pipeline config: %w", err)
	}
	if len(data) == 0 {
		return cfg, nil
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse pipeline config %s: %w", path, err)
	}
	return cfg, nil
}

// Sample returns the embedded sample_config.toml contents, documenting
// every key with its default.
func Sample() string {
	return sampleConfig
}
