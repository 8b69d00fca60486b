package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/inboxreel/inboxreel/internal/email"
	emailrepo "github.com/inboxreel/inboxreel/internal/email/repository"
	"github.com/inboxreel/inboxreel/internal/queue"
)

// RankComputePayload is the job body enqueued for the Ranker, one per
// (user, link) pair referencing a video whose metadata just became
// available.
type RankComputePayload struct {
	UserID string `json:"user_id"`
	LinkID string `json:"link_id"`
}

// Handler wires the Enrichment Client into the Enrich queue: on success
// it looks up every Link referencing the now-enriched video-id and fans
// out one ordered Rank-Compute job per (user, link) pair.
type Handler struct {
	client     *Client
	links      emailrepo.LinkRepository
	rankQueue  queue.JobQueue
}

func NewHandler(client *Client, links emailrepo.LinkRepository, rankQueue queue.JobQueue) *Handler {
	return &Handler{client: client, links: links, rankQueue: rankQueue}
}

func (h *Handler) Handle(ctx context.Context, job queue.Job) error {
	var payload email.EnrichPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("enrichment: unmarshal payload: %w", err)
	}

	results, err := h.client.GetMetadata(ctx, []string{payload.VideoID})
	if err != nil {
		return err
	}
	if _, ok := results[payload.VideoID]; !ok {
		return fmt.Errorf("enrichment: no metadata returned for %s", payload.VideoID)
	}

	links, err := h.links.FindByVideoID(payload.VideoID)
	if err != nil {
		return fmt.Errorf("enrichment: find links for %s: %w", payload.VideoID, err)
	}

	for _, link := range links {
		rankPayload := RankComputePayload{UserID: link.UserID, LinkID: link.ID}
		if err := h.rankQueue.Enqueue(ctx, queue.RankComputeQueue, rankPayload, queue.EnqueueOptions{
			IdempotencyKey: "rank:" + link.UserID + ":" + link.ID,
			OrderingKey:    "user-" + link.UserID,
		}); err != nil {
			log.Printf("[Enrich] failed to enqueue rank-compute for user=%s link=%s: %v", link.UserID, link.ID, err)
		}
	}

	return nil
}
