package ranker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	enrichrepo "github.com/inboxreel/inboxreel/internal/enrichment/repository"
	"github.com/inboxreel/inboxreel/internal/feature"
	"github.com/inboxreel/inboxreel/internal/queue"
	rankrepo "github.com/inboxreel/inboxreel/internal/ranker/repository"
	userrepo "github.com/inboxreel/inboxreel/internal/user/repository"
)

// RankComputePayload mirrors enrichment.RankComputePayload — redeclared
// here to keep this package independent of the enrichment package's
// import surface, a wire-compatible struct duplicated across queue
// payload boundaries.
type RankComputePayload struct {
	UserID string `json:"user_id"`
	LinkID string `json:"link_id"`
}

// linkView is the minimal Link projection the handler reads directly,
// avoiding an email-package import cycle (email already depends on
// nothing in ranker).
type linkView struct {
	ID      string
	EmailID string
	VideoID string
}

type emailView struct {
	SenderAddress    string
	ReceivedAt       time.Time
	ThreadReplyCount int
	Subject          string
}

// Handler wires the Feature Extractor and Ranker into the Rank-Compute
// queue.
type Handler struct {
	db         *gorm.DB
	metadata   enrichrepo.VideoMetadataRepository
	users      userrepo.UserRepository
	rankings   *rankrepo.Repository
	weights    Weights
	thresholds Thresholds
	halfLifeDays float64
}

func NewHandler(db *gorm.DB, metadata enrichrepo.VideoMetadataRepository, users userrepo.UserRepository, rankings *rankrepo.Repository, weights Weights, thresholds Thresholds, halfLifeDays float64) *Handler {
	return &Handler{db: db, metadata: metadata, users: users, rankings: rankings, weights: weights, thresholds: thresholds, halfLifeDays: halfLifeDays}
}

func (h *Handler) Handle(ctx context.Context, job queue.Job) error {
	var payload RankComputePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("ranker: unmarshal payload: %w", err)
	}

	var link linkView
	if err := h.db.Table("youtube_links").Select("id, email_id, video_id").
		Where("id = ?", payload.LinkID).Take(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("ranker: load link: %w", err)
	}

	var email emailView
	if err := h.db.Table("emails").Select("sender_address, received_at, thread_reply_count, subject").
		Where("id = ?", link.EmailID).Take(&email).Error; err != nil {
		return fmt.Errorf("ranker: load email: %w", err)
	}

	rows, err := h.metadata.FindByIDs([]string{link.VideoID})
	if err != nil {
		return fmt.Errorf("ranker: load metadata: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("ranker: no metadata yet for video %s", link.VideoID)
	}
	meta := rows[0]

	u, err := h.users.FindByID(payload.UserID)
	if err != nil {
		return fmt.Errorf("ranker: load user: %w", err)
	}
	if u == nil {
		return fmt.Errorf("ranker: user %s not found", payload.UserID)
	}

	var stats struct {
		EmailCount  int
		LastEmailAt time.Time
		InContacts  bool
	}
	senderKnown := true
	if err := h.db.Table("sender_stats").Select("email_count, last_email_at, in_contacts").
		Where("user_id = ? AND sender_address = ?", payload.UserID, email.SenderAddress).
		Take(&stats).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			senderKnown = false
		} else {
			return fmt.Errorf("ranker: load sender stats: %w", err)
		}
	}

	daysSinceLastEmail := 0.0
	if senderKnown {
		daysSinceLastEmail = time.Since(stats.LastEmailAt).Hours() / 24
	}

	description := strings.Join(meta.DescriptionKeywords, " ")
	scores := feature.Extract(feature.Context{
		SenderKnown:           senderKnown,
		SenderEmailCount:      stats.EmailCount,
		SenderInContacts:      stats.InContacts,
		DaysSinceLastEmail:    daysSinceLastEmail,
		ThreadReplyCount:      email.ThreadReplyCount,
		ReceivedAt:            email.ReceivedAt,
		PublishedAt:           meta.PublishedAt,
		Title:                 meta.Title,
		Description:           description,
		LearningGoals:         u.LearningGoals,
		FreshnessHalfLifeDays: h.halfLifeDays,
	})

	final := Score(h.weights, scores)
	classification := Classify(final, h.thresholds)
	explanation := Explain(scores, classification, final)
	tags := TopicTags(meta.Title)

	return h.rankings.Upsert(&rankrepo.Ranking{
		ID:              uuid.New().String(),
		UserID:          payload.UserID,
		LinkID:          payload.LinkID,
		RankedAt:        time.Now(),
		SenderScore:     scores.SenderScore,
		ThreadScore:     scores.ThreadScore,
		FreshnessScore:  scores.FreshnessScore,
		TopicMatchScore: scores.TopicMatchScore,
		NoisePenalty:    scores.NoisePenalty,
		FinalScore:      final,
		Classification:  classification,
		Explanation:     explanation,
		TopicTags:       strings.Join(tags, ","),
	})
}
