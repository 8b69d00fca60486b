// Package queue defines the Job Queue Contract: the
// interface every pipeline stage enqueues and consumes work through,
// independent of transport. pubsubqueue provides the
// cloud.google.com/go/pubsub-backed implementation; record provides the
// Postgres ledger backing retries, retention, and dedup.
package queue

import (
	"context"
	"time"
)

// Queue names, one per pipeline stage boundary.
const (
	EmailProcessQueue = "email-process"
	EnrichQueue       = "enrich"
	RankComputeQueue  = "rank-compute"
)

// Policy is the per-queue behavior a queue must support: max attempts,
// backoff shape, concurrency cap, optional rate limit, and retention.
type Policy struct {
	MaxAttempts        int
	BackoffBase        time.Duration
	Concurrency        int
	RateLimitPerSecond float64 // 0 disables rate limiting
	CompletedRetention time.Duration
	FailedRetention    time.Duration
	DedupWindow        time.Duration
}

// EnqueueOptions carries the per-job knobs a producer can set.
type EnqueueOptions struct {
	// IdempotencyKey, when non-empty, collapses repeated enqueues within
	// the queue's dedup window to a single executing job.
	IdempotencyKey string
	// OrderingKey serializes delivery of jobs sharing the same key —
	// used for the Rank-Compute queue to serialize per-user passes.
	OrderingKey string
	// Delay is recorded as the job record's NextVisibleAt. The
	// pubsubqueue transport still publishes the message at once and does
	// not read NextVisibleAt before delivery, so Delay does not hold the
	// job back there. No current producer sets this; an already
	// in-flight job that needs an extended backoff after failure (e.g.
	// a quota error) goes through RetryAfter on reschedule instead,
	// since by that point the job has an attempt count Delay doesn't
	// carry.
	Delay time.Duration
}

// RetryAfter is implemented by handler errors that need a specific
// backoff instead of the queue's normal per-attempt schedule — for
// example an upstream quota error that won't clear until a known
// window rolls over. A transport's Subscribe loop checks for it with
// errors.As before falling back to Policy.BackoffBase.
type RetryAfter interface {
	error
	RetryAfter() time.Duration
}

// Job is one unit of work handed to a Handler: the raw payload bytes (so
// each stage can unmarshal into its own typed struct) plus delivery
// metadata.
type Job struct {
	ID         string
	Queue      string
	Payload    []byte
	Attempt    int
	EnqueuedAt time.Time
}

// Handler processes one Job. Returning a non-nil error causes the queue
// to retry per Policy; handlers must be idempotent.
type Handler func(ctx context.Context, job Job) error

// JobQueue is the contract every pipeline stage is built against —
// the backing implementation is free to vary.
type JobQueue interface {
	// Enqueue publishes payload (marshaled to JSON) onto queueName.
	Enqueue(ctx context.Context, queueName string, payload any, opts EnqueueOptions) error

	// Subscribe starts pulling from queueName and invoking handler up to
	// the queue's configured concurrency cap, until ctx is cancelled.
	// Subscribe blocks until all in-flight handlers have drained.
	Subscribe(ctx context.Context, queueName string, handler Handler) error
}
