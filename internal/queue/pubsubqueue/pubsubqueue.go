// Package pubsubqueue implements queue.JobQueue over
// cloud.google.com/go/pubsub as internal fan-out transport between
// pipeline stages:
// one topic per queue, ReceiveSettings.MaxOutstandingMessages
// implementing the per-queue concurrency cap, and ordering keys
// serializing per-user Rank-Compute passes.
package pubsubqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/inboxreel/inboxreel/internal/queue"
	"github.com/inboxreel/inboxreel/internal/queue/record"

	"cloud.google.com/go/pubsub"
	"golang.org/x/time/rate"
)

// Queue is one cloud.google.com/go/pubsub-backed queue.JobQueue, bound to
// the set of Policies the caller registers at construction, mirroring
// a topic-sub naming convention.
type Queue struct {
	client   *pubsub.Client
	projectID string
	policies map[string]queue.Policy
	ledger   *record.Repository
}

func New(ctx context.Context, projectID string, policies map[string]queue.Policy, ledger *record.Repository) (*Queue, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pubsubqueue: create client: %w", err)
	}
	return &Queue{client: client, projectID: projectID, policies: policies, ledger: ledger}, nil
}

func (q *Queue) topic(ctx context.Context, queueName string) (*pubsub.Topic, error) {
	topic := q.client.Topic(queueName)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("pubsubqueue: check topic %s: %w", queueName, err)
	}
	if !exists {
		topic, err = q.client.CreateTopic(ctx, queueName)
		if err != nil {
			return nil, fmt.Errorf("pubsubqueue: create topic %s: %w", queueName, err)
		}
	}
	return topic, nil
}

func (q *Queue) subscription(ctx context.Context, queueName string) (*pubsub.Subscription, error) {
	subName := queueName + "-sub"
	sub := q.client.Subscription(subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("pubsubqueue: check subscription %s: %w", subName, err)
	}
	if exists {
		return sub, nil
	}

	topic, err := q.topic(ctx, queueName)
	if err != nil {
		return nil, err
	}
	sub, err = q.client.CreateSubscription(ctx, subName, pubsub.SubscriptionConfig{
		Topic:                 topic,
		AckDeadline:           30 * time.Second,
		EnableMessageOrdering: true,
	})
	if err != nil {
		return nil, fmt.Errorf("pubsubqueue: create subscription %s: %w", subName, err)
	}
	return sub, nil
}

type envelope struct {
	JobID   string          `json:"job_id"`
	Payload json.RawMessage `json:"payload"`
	Attempt int             `json:"attempt"`
}

func (q *Queue) Enqueue(ctx context.Context, queueName string, payload any, opts queue.EnqueueOptions) error {
	if rec, err := q.ledger.FindActiveByIdempotencyKey(queueName, opts.IdempotencyKey, q.policies[queueName].DedupWindow); err != nil {
		return fmt.Errorf("pubsubqueue: dedup check: %w", err)
	} else if rec != nil {
		log.Printf("[Queue] %s: collapsed duplicate enqueue for key %q into job %s", queueName, opts.IdempotencyKey, rec.ID)
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("pubsubqueue: marshal payload: %w", err)
	}

	jobID := uuid.New().String()
	rec := &record.JobRecord{
		ID:             jobID,
		Queue:          queueName,
		IdempotencyKey: opts.IdempotencyKey,
		Payload:        raw,
		Status:         record.StatusPending,
		NextVisibleAt:  time.Now().Add(opts.Delay),
	}
	if err := q.ledger.Create(rec); err != nil {
		return fmt.Errorf("pubsubqueue: persist job record: %w", err)
	}

	envBytes, err := json.Marshal(envelope{JobID: jobID, Payload: raw})
	if err != nil {
		return fmt.Errorf("pubsubqueue: marshal envelope: %w", err)
	}

	topic, err := q.topic(ctx, queueName)
	if err != nil {
		return err
	}
	msg := &pubsub.Message{Data: envBytes}
	if opts.OrderingKey != "" {
		topic.EnableMessageOrdering = true
		msg.OrderingKey = opts.OrderingKey
	}
	result := topic.Publish(ctx, msg)
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("pubsubqueue: publish: %w", err)
	}
	return nil
}

func (q *Queue) Subscribe(ctx context.Context, queueName string, handler queue.Handler) error {
	sub, err := q.subscription(ctx, queueName)
	if err != nil {
		return err
	}

	policy := q.policies[queueName]
	if policy.Concurrency > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = policy.Concurrency
		sub.ReceiveSettings.NumGoroutines = policy.Concurrency
	}

	// limiter throttles how fast this queue hands jobs to its handler,
	// separate from Concurrency (how many run at once). A nil limiter
	// (RateLimitPerSecond <= 0) imposes no throttling.
	var limiter *rate.Limiter
	if policy.RateLimitPerSecond > 0 {
		burst := int(policy.RateLimitPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(policy.RateLimitPerSecond), burst)
	}

	log.Printf("[Queue] %s: subscribing with concurrency=%d rate_limit=%g/s", queueName, policy.Concurrency, policy.RateLimitPerSecond)
	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				log.Printf("[Queue] %s: rate limiter wait: %v", queueName, err)
				msg.Nack()
				return
			}
		}

		var env envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			log.Printf("[Queue] %s: malformed envelope, acking to drop: %v", queueName, err)
			msg.Ack()
			return
		}

		if err := q.ledger.MarkRunning(env.JobID); err != nil {
			log.Printf("[Queue] %s: mark running %s: %v", queueName, env.JobID, err)
		}

		job := queue.Job{ID: env.JobID, Queue: queueName, Payload: env.Payload, Attempt: env.Attempt}
		if err := handler(ctx, job); err != nil {
			log.Printf("[Queue] %s: job %s failed (attempt %d): %v", queueName, env.JobID, env.Attempt, err)
			backoff := policy.BackoffBase << uint(env.Attempt)
			var retryAfter queue.RetryAfter
			if errors.As(err, &retryAfter) {
				backoff = retryAfter.RetryAfter()
			}
			if rescheduleErr := q.ledger.ReschedulePending(env.JobID, env.Attempt+1, policy.MaxAttempts, backoff); rescheduleErr != nil {
				log.Printf("[Queue] %s: reschedule %s: %v", queueName, env.JobID, rescheduleErr)
			}
			msg.Nack()
			return
		}

		if err := q.ledger.MarkCompleted(env.JobID); err != nil {
			log.Printf("[Queue] %s: mark completed %s: %v", queueName, env.JobID, err)
		}
		msg.Ack()
	})
}

func (q *Queue) Close() error {
	return q.client.Close()
}
