// Package record is the Postgres-backed ledger behind the Job Queue
// Contract: attempts, next-visible-at, terminal status, retention, and
// the dedup window — the bookkeeping Pub/Sub alone has no query surface
// for.
package record

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// JobRecord is the durable row backing one in-flight or historical job —
// identity is the (queue, job id) pair.
type JobRecord struct {
	ID             string `gorm:"primaryKey"`
	Queue          string `gorm:"uniqueIndex:idx_queue_idempotency,priority:1"`
	IdempotencyKey string `gorm:"uniqueIndex:idx_queue_idempotency,priority:2"`
	Payload        []byte `gorm:"type:jsonb"`
	Attempt        int
	Status         Status
	NextVisibleAt  time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (JobRecord) TableName() string { return "job_tracking" }

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	db.AutoMigrate(&JobRecord{})
	return &Repository{db: db}
}

// FindActiveByIdempotencyKey looks up a still-live (pending/running) job
// for the same queue+key created within dedupWindow, implementing the
// dedup window: completed or failed rows never block re-enqueue, and
// neither do live rows older than the window.
func (r *Repository) FindActiveByIdempotencyKey(queue, key string, dedupWindow time.Duration) (*JobRecord, error) {
	if key == "" {
		return nil, nil
	}
	var rec JobRecord
	err := r.db.Where("queue = ? AND idempotency_key = ? AND status IN ? AND created_at > ?",
		queue, key, []Status{StatusPending, StatusRunning}, time.Now().Add(-dedupWindow)).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *Repository) Create(rec *JobRecord) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(rec).Error
}

func (r *Repository) MarkRunning(id string) error {
	return r.db.Model(&JobRecord{}).Where("id = ?", id).Update("status", StatusRunning).Error
}

func (r *Repository) MarkCompleted(id string) error {
	return r.db.Model(&JobRecord{}).Where("id = ?", id).Update("status", StatusCompleted).Error
}

// ReschedulePending bumps the attempt counter and pushes NextVisibleAt
// out by backoff, or marks the row terminally failed once attempts are
// exhausted.
func (r *Repository) ReschedulePending(id string, attempt int, maxAttempts int, backoff time.Duration) error {
	if attempt >= maxAttempts {
		return r.db.Model(&JobRecord{}).Where("id = ?", id).Updates(map[string]any{
			"status":  StatusFailed,
			"attempt": attempt,
		}).Error
	}
	return r.db.Model(&JobRecord{}).Where("id = ?", id).Updates(map[string]any{
		"status":          StatusPending,
		"attempt":         attempt,
		"next_visible_at": time.Now().Add(backoff),
	}).Error
}

// Summary reports queued/running/failed counts for one queue — the data
// behind the operator status endpoint.
type Summary struct {
	Queue     string
	Pending   int64
	Running   int64
	Completed int64
	Failed    int64
}

func (r *Repository) Summary(queue string) (Summary, error) {
	s := Summary{Queue: queue}
	counts := []struct {
		status Status
		dest   *int64
	}{
		{StatusPending, &s.Pending},
		{StatusRunning, &s.Running},
		{StatusCompleted, &s.Completed},
		{StatusFailed, &s.Failed},
	}
	for _, c := range counts {
		if err := r.db.Model(&JobRecord{}).Where("queue = ? AND status = ?", queue, c.status).
			Count(c.dest).Error; err != nil {
			return Summary{}, err
		}
	}
	return s, nil
}

// RecentFailed returns the most recently updated failed jobs for one
// queue, newest first, capped at limit.
func (r *Repository) RecentFailed(queue string, limit int) ([]JobRecord, error) {
	var rows []JobRecord
	err := r.db.Where("queue = ? AND status = ?", queue, StatusFailed).
		Order("updated_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// PurgeExpired deletes terminal rows past their retention window.
func (r *Repository) PurgeExpired(completedRetention, failedRetention time.Duration) error {
	now := time.Now()
	if err := r.db.Where("status = ? AND updated_at < ?", StatusCompleted, now.Add(-completedRetention)).
		Delete(&JobRecord{}).Error; err != nil {
		return err
	}
	return r.db.Where("status = ? AND updated_at < ?", StatusFailed, now.Add(-failedRetention)).
		Delete(&JobRecord{}).Error
}
