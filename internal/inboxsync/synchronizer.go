// Package inboxsync advances a user's change cursor against their inbox
// provider and fans out one Email-Process job per newly observed
// message.
package inboxsync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/inboxreel/inboxreel/internal/mailsource"
	"github.com/inboxreel/inboxreel/internal/queue"
	"github.com/inboxreel/inboxreel/internal/user/domain"
	"github.com/inboxreel/inboxreel/internal/user/repository"
	"github.com/inboxreel/inboxreel/pkg/cryptutil"
)

const boundedInitialSyncLimit = 200
const maxSyncAttempts = 3

// withRetry runs fn up to maxSyncAttempts times, backing off
// exponentially (2^attempt seconds) between attempts — the same shape
// fetchBatchWithRetry uses for upstream YouTube calls. An authorization
// revocation is a permanent condition, not a transient one, so it
// short-circuits the loop instead of being retried.
func withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxSyncAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		var revoked *mailsource.ErrAuthorizationRevoked
		if errors.As(err, &revoked) {
			return err
		}
		if attempt == maxSyncAttempts {
			break
		}

		sleep := time.Duration(math.Pow(2, float64(attempt))) * time.Second
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// Synchronizer is the Inbox Synchronizer of the pipeline: it owns no
// state of its own, only the collaborators it was built with.
type Synchronizer struct {
	users      repository.UserRepository
	provider   mailsource.Provider
	emailQueue queue.JobQueue
	box        *cryptutil.Box
}

func New(users repository.UserRepository, provider mailsource.Provider, emailQueue queue.JobQueue, box *cryptutil.Box) *Synchronizer {
	return &Synchronizer{users: users, provider: provider, emailQueue: emailQueue, box: box}
}

// EmailProcessPayload is the job body enqueued for the Email Processor,
// keyed by (user, message-id) for queue-level dedup.
type EmailProcessPayload struct {
	UserID    string `json:"user_id"`
	MessageID string `json:"message_id"`
}

// Sync advances u's cursor to the current head of the inbox, emitting
// one Email-Process job per message id the provider reports. It never
// mutates u.ChangeCursor on partial success: either the whole pass
// commits or the cursor is left untouched for a re-run.
func (s *Synchronizer) Sync(ctx context.Context, u *domain.User) error {
	refreshToken, err := s.box.Open(u.EncryptedRefreshToken)
	if err != nil {
		return fmt.Errorf("inboxsync: decrypt refresh token: %w", err)
	}
	accessToken, err := s.box.Open(u.EncryptedAccessToken)
	if err != nil {
		return fmt.Errorf("inboxsync: decrypt access token: %w", err)
	}

	onRefresh := func(newAccess, newRefresh string, _ time.Time) error {
		encAccess, err := s.box.Seal(newAccess)
		if err != nil {
			return err
		}
		u.EncryptedAccessToken = encAccess
		if newRefresh != "" {
			encRefresh, err := s.box.Seal(newRefresh)
			if err != nil {
				return err
			}
			u.EncryptedRefreshToken = encRefresh
		}
		return s.users.Update(u)
	}

	if u.HasCursor() {
		return s.syncDelta(ctx, u, accessToken, refreshToken, onRefresh)
	}
	return s.syncBounded(ctx, u, accessToken, refreshToken, onRefresh)
}

func (s *Synchronizer) syncDelta(ctx context.Context, u *domain.User, accessToken, refreshToken string, onRefresh mailsource.TokenRefreshFunc) error {
	var pageToken string
	enqueued := make(map[string]struct{})

	for {
		var page mailsource.Page
		err := withRetry(ctx, func() error {
			p, err := s.provider.ListDelta(ctx, accessToken, refreshToken, u.ChangeCursor, pageToken, onRefresh)
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			if s.handleRevocation(u, err) {
				return nil
			}
			return fmt.Errorf("inboxsync: list delta: %w", err)
		}

		for _, id := range page.MessageIDs {
			if _, dup := enqueued[id]; dup {
				continue
			}
			enqueued[id] = struct{}{}
			if err := s.enqueue(ctx, u.ID, id); err != nil {
				return fmt.Errorf("inboxsync: enqueue %s: %w", id, err)
			}
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	var newCursor string
	err := withRetry(ctx, func() error {
		cursor, err := s.provider.Profile(ctx, accessToken, refreshToken, onRefresh)
		if err != nil {
			return err
		}
		newCursor = cursor
		return nil
	})
	if err != nil {
		if s.handleRevocation(u, err) {
			return nil
		}
		return fmt.Errorf("inboxsync: profile: %w", err)
	}

	log.Printf("[Sync] user=%s advancing cursor %q -> %q (%d messages)", u.ID, u.ChangeCursor, newCursor, len(enqueued))
	return s.users.AdvanceCursor(u.ID, newCursor)
}

func (s *Synchronizer) syncBounded(ctx context.Context, u *domain.User, accessToken, refreshToken string, onRefresh mailsource.TokenRefreshFunc) error {
	var page mailsource.Page
	err := withRetry(ctx, func() error {
		p, err := s.provider.ListBounded(ctx, accessToken, refreshToken, boundedInitialSyncLimit, onRefresh)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		if s.handleRevocation(u, err) {
			return nil
		}
		return fmt.Errorf("inboxsync: list bounded: %w", err)
	}

	for _, id := range page.MessageIDs {
		if err := s.enqueue(ctx, u.ID, id); err != nil {
			return fmt.Errorf("inboxsync: enqueue %s: %w", id, err)
		}
	}

	var cursor string
	err = withRetry(ctx, func() error {
		c, err := s.provider.Profile(ctx, accessToken, refreshToken, onRefresh)
		if err != nil {
			return err
		}
		cursor = c
		return nil
	})
	if err != nil {
		if s.handleRevocation(u, err) {
			return nil
		}
		return fmt.Errorf("inboxsync: profile: %w", err)
	}

	log.Printf("[Sync] user=%s bounded initial sync, cursor=%q (%d messages)", u.ID, cursor, len(page.MessageIDs))
	return s.users.AdvanceCursor(u.ID, cursor)
}

func (s *Synchronizer) enqueue(ctx context.Context, userID, messageID string) error {
	return s.emailQueue.Enqueue(ctx, queue.EmailProcessQueue, EmailProcessPayload{
		UserID:    userID,
		MessageID: messageID,
	}, queue.EnqueueOptions{
		IdempotencyKey: userID + ":" + messageID,
	})
}

func (s *Synchronizer) handleRevocation(u *domain.User, err error) bool {
	var revoked *mailsource.ErrAuthorizationRevoked
	if !errors.As(err, &revoked) {
		return false
	}
	log.Printf("[Sync] user=%s authorization revoked, marking for reauthorization", u.ID)
	if markErr := s.users.MarkNeedsReauthorization(u.ID); markErr != nil {
		log.Printf("[Sync] user=%s failed to mark reauthorization: %v", u.ID, markErr)
	}
	return true
}
