// Package email implements the Email Processor: decode,
// canonicalize, persist, fan out — all in one transaction per message.
package email

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/inboxreel/inboxreel/internal/email/canonical"
	"github.com/inboxreel/inboxreel/internal/email/decode"
	"github.com/inboxreel/inboxreel/internal/email/domain"
	"github.com/inboxreel/inboxreel/internal/email/repository"
	enrichrepo "github.com/inboxreel/inboxreel/internal/enrichment/repository"
	"github.com/inboxreel/inboxreel/internal/mailsource"
	"github.com/inboxreel/inboxreel/internal/queue"
	userrepo "github.com/inboxreel/inboxreel/internal/user/repository"
	"github.com/inboxreel/inboxreel/pkg/cryptutil"
)

// EnrichPayload is the job body enqueued for the Enrichment Client, one
// per newly inserted Link whose video-id isn't yet in VideoMetadata.
type EnrichPayload struct {
	VideoID string `json:"video_id"`
}

// Processor is the Email Processor: given (user, message-id), it
// produces the Email row, extracts and canonicalizes links, persists
// them, updates sender aggregates, and fans out enrichment jobs.
type Processor struct {
	db            *gorm.DB
	emails        repository.EmailRepository
	links         repository.LinkRepository
	senderStats   repository.SenderStatsRepository
	videoMetadata enrichrepo.VideoMetadataRepository
	users         userrepo.UserRepository
	provider      mailsource.Provider
	enrichQueue   queue.JobQueue
	box           *cryptutil.Box
}

func NewProcessor(
	db *gorm.DB,
	emails repository.EmailRepository,
	links repository.LinkRepository,
	senderStats repository.SenderStatsRepository,
	videoMetadata enrichrepo.VideoMetadataRepository,
	users userrepo.UserRepository,
	provider mailsource.Provider,
	enrichQueue queue.JobQueue,
	box *cryptutil.Box,
) *Processor {
	return &Processor{
		db: db, emails: emails, links: links, senderStats: senderStats,
		videoMetadata: videoMetadata,
		users:         users, provider: provider, enrichQueue: enrichQueue, box: box,
	}
}

// Process handles one (user, message-id) job. It is a no-op success if
// an Email row already exists for the pair.
func (p *Processor) Process(ctx context.Context, userID, messageID string) error {
	existing, err := p.emails.FindByUserAndMessageID(userID, messageID)
	if err != nil {
		return fmt.Errorf("email: idempotency check: %w", err)
	}
	if existing != nil {
		return nil
	}

	u, err := p.users.FindByID(userID)
	if err != nil {
		return fmt.Errorf("email: load user: %w", err)
	}
	if u == nil {
		return fmt.Errorf("email: user %s not found", userID)
	}

	accessToken, err := p.box.Open(u.EncryptedAccessToken)
	if err != nil {
		return fmt.Errorf("email: decrypt access token: %w", err)
	}
	refreshToken, err := p.box.Open(u.EncryptedRefreshToken)
	if err != nil {
		return fmt.Errorf("email: decrypt refresh token: %w", err)
	}
	onRefresh := func(newAccess, newRefresh string, _ time.Time) error {
		encAccess, err := p.box.Seal(newAccess)
		if err != nil {
			return err
		}
		u.EncryptedAccessToken = encAccess
		if newRefresh != "" {
			encRefresh, err := p.box.Seal(newRefresh)
			if err != nil {
				return err
			}
			u.EncryptedRefreshToken = encRefresh
		}
		return p.users.Update(u)
	}

	raw, err := p.provider.GetMessage(ctx, accessToken, refreshToken, messageID, onRefresh)
	if err != nil {
		return fmt.Errorf("email: get message: %w", err)
	}

	replyCount, _ := p.deriveThreadInfo(ctx, accessToken, refreshToken, raw, onRefresh)

	text := decode.Text(raw.Root)
	refs := canonical.ExtractAndCanonicalize(raw.Subject + "\n" + text)

	hasMetadata, err := p.existingMetadataSet(refs)
	if err != nil {
		return fmt.Errorf("email: check existing video metadata: %w", err)
	}

	var enrichTargets []string

	txErr := p.db.Transaction(func(tx *gorm.DB) error {
		e := &domain.Email{
			ID:                uuid.New().String(),
			UserID:            userID,
			ExternalMessageID: messageID,
			ThreadID:          raw.ThreadID,
			SenderAddress:     raw.SenderAddress,
			SenderDisplayName: raw.SenderDisplayName,
			Subject:           raw.Subject,
			ReceivedAt:        raw.ReceivedAt,
			PreviewSnippet:    domain.TruncatePreview(text),
			Labels:            domain.StringList(raw.Labels),
			ThreadReplyCount:  replyCount,
		}
		if err := p.emails.Create(e); err != nil {
			return fmt.Errorf("insert email: %w", err)
		}

		for _, ref := range refs {
			if ref.VideoID == "" {
				continue // playlist-only reference; no VideoMetadata target
			}

			alreadyExisted, err := p.links.ExistsForVideo(userID, ref.VideoID)
			if err != nil {
				return fmt.Errorf("check existing link: %w", err)
			}

			link := &domain.Link{
				ID:           uuid.New().String(),
				UserID:       userID,
				EmailID:      e.ID,
				VideoID:      ref.VideoID,
				CanonicalURL: ref.CanonicalURL,
				PlaylistID:   ref.PlaylistID,
				ExtractedAt:  time.Now(),
				IsDuplicate:  alreadyExisted,
			}
			inserted, err := p.links.InsertIgnoreDuplicate(link)
			if err != nil {
				return fmt.Errorf("insert link: %w", err)
			}
			if inserted && !hasMetadata[ref.VideoID] {
				enrichTargets = append(enrichTargets, ref.VideoID)
			}
		}

		if raw.SenderAddress != "" {
			if err := p.senderStats.Upsert(userID, raw.SenderAddress, raw.ReceivedAt); err != nil {
				return fmt.Errorf("upsert sender stats: %w", err)
			}
		}

		return nil
	})
	if txErr != nil {
		return fmt.Errorf("email: transaction: %w", txErr)
	}

	for _, videoID := range enrichTargets {
		if err := p.enrichQueue.Enqueue(ctx, queue.EnrichQueue, EnrichPayload{VideoID: videoID}, queue.EnqueueOptions{
			IdempotencyKey: "enrich:" + videoID,
		}); err != nil {
			log.Printf("[Email] failed to enqueue enrich job for video %s: %v", videoID, err)
		}
	}

	return nil
}

// existingMetadataSet reports, for the distinct video-ids referenced in
// refs, which ones already have a VideoMetadata row. A video-id already
// enriched by some other user's email doesn't need a second Enrich job.
func (p *Processor) existingMetadataSet(refs []canonical.Reference) (map[string]bool, error) {
	seen := make(map[string]bool)
	var candidates []string
	for _, ref := range refs {
		if ref.VideoID == "" || seen[ref.VideoID] {
			continue
		}
		seen[ref.VideoID] = true
		candidates = append(candidates, ref.VideoID)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	rows, err := p.videoMetadata.FindByIDs(candidates)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]bool, len(rows))
	for _, row := range rows {
		existing[row.VideoID] = true
	}
	return existing, nil
}

// deriveThreadInfo derives thread metadata honestly: the reply count
// comes from the actual thread listing, and is_thread_reply from
// whether the message carries an In-Reply-To header — neither
// reuses the source's labels.length shortcut.
func (p *Processor) deriveThreadInfo(ctx context.Context, accessToken, refreshToken string, raw *mailsource.RawMessage, onRefresh mailsource.TokenRefreshFunc) (replyCount int, isReply bool) {
	isReply = raw.InReplyTo != ""
	if raw.ThreadID == "" {
		return 0, isReply
	}
	thread, err := p.provider.ListThread(ctx, accessToken, refreshToken, raw.ThreadID, onRefresh)
	if err != nil || thread == nil {
		return 0, isReply
	}
	replyCount = thread.TotalMessages - 1
	if replyCount < 0 {
		replyCount = 0
	}
	return replyCount, isReply
}
