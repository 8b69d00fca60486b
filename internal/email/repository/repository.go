package repository

import (
	"errors"
	"time"

	"github.com/inboxreel/inboxreel/internal/email/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EmailRepository interface {
	FindByUserAndMessageID(userID, externalMessageID string) (*domain.Email, error)
	Create(email *domain.Email) error
}

type LinkRepository interface {
	// InsertIgnoreDuplicate inserts link with ON CONFLICT DO NOTHING
	//, reporting whether the row was newly
	// inserted so the caller knows whether to fan out an Enrich job.
	InsertIgnoreDuplicate(link *domain.Link) (inserted bool, err error)
	// ExistsForVideo reports whether (user, video-id) already has a Link
	// row, used to set Link.IsDuplicate.
	ExistsForVideo(userID, videoID string) (bool, error)
	// FindByVideoID returns every Link across all users referencing
	// videoID, used to fan out one Rank-Compute job per (user, link)
	// once that video's metadata arrives.
	FindByVideoID(videoID string) ([]domain.Link, error)
	FindByID(linkID string) (*domain.Link, error)
	// CountExtractedInRange counts links extracted for userID within
	// [from, to) — the denominator of the Evaluation Harness's coverage
	// metric.
	CountExtractedInRange(userID string, from, to time.Time) (int, error)
}

type SenderStatsRepository interface {
	// Upsert increments email_count and advances last_email_at to the
	// max of the existing and new value.
	Upsert(userID, senderAddress string, receivedAt time.Time) error
}

type gormEmailRepository struct{ db *gorm.DB }

func NewEmailRepository(db *gorm.DB) EmailRepository {
	db.AutoMigrate(&domain.Email{})
	return &gormEmailRepository{db: db}
}

func (r *gormEmailRepository) FindByUserAndMessageID(userID, externalMessageID string) (*domain.Email, error) {
	var e domain.Email
	err := r.db.Where("user_id = ? AND external_message_id = ?", userID, externalMessageID).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *gormEmailRepository) Create(email *domain.Email) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(email).Error
}

type gormLinkRepository struct{ db *gorm.DB }

func NewLinkRepository(db *gorm.DB) LinkRepository {
	db.AutoMigrate(&domain.Link{})
	return &gormLinkRepository{db: db}
}

func (r *gormLinkRepository) InsertIgnoreDuplicate(link *domain.Link) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(link)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *gormLinkRepository) ExistsForVideo(userID, videoID string) (bool, error) {
	var count int64
	err := r.db.Model(&domain.Link{}).Where("user_id = ? AND video_id = ?", userID, videoID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gormLinkRepository) FindByVideoID(videoID string) ([]domain.Link, error) {
	var links []domain.Link
	err := r.db.Where("video_id = ?", videoID).Find(&links).Error
	return links, err
}

func (r *gormLinkRepository) FindByID(linkID string) (*domain.Link, error) {
	var link domain.Link
	err := r.db.Where("id = ?", linkID).First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

func (r *gormLinkRepository) CountExtractedInRange(userID string, from, to time.Time) (int, error) {
	var count int64
	err := r.db.Model(&domain.Link{}).
		Where("user_id = ? AND extracted_at >= ? AND extracted_at < ?", userID, from, to).
		Count(&count).Error
	return int(count), err
}

type gormSenderStatsRepository struct{ db *gorm.DB }

func NewSenderStatsRepository(db *gorm.DB) SenderStatsRepository {
	db.AutoMigrate(&domain.SenderStats{})
	return &gormSenderStatsRepository{db: db}
}

func (r *gormSenderStatsRepository) Upsert(userID, senderAddress string, receivedAt time.Time) error {
	stats := domain.SenderStats{
		UserID:        userID,
		SenderAddress: senderAddress,
		EmailCount:    1,
		LastEmailAt:   receivedAt,
		UpdatedAt:     time.Now(),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "sender_address"}},
		DoUpdates: clause.Assignments(map[string]any{
			"email_count":    gorm.Expr("sender_stats.email_count + 1"),
			"last_email_at":  gorm.Expr("GREATEST(sender_stats.last_email_at, ?)", receivedAt),
			"updated_at":     time.Now(),
		}),
	}).Create(&stats).Error
}
