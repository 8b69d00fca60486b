package repository

import (
	"github.com/inboxreel/inboxreel/internal/enrichment/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VideoMetadataRepository interface {
	FindByIDs(videoIDs []string) ([]domain.VideoMetadata, error)
	// Upsert persists parsed metadata, refreshing in place on conflict.
	Upsert(metadata *domain.VideoMetadata) error
}

type gormVideoMetadataRepository struct{ db *gorm.DB }

func NewVideoMetadataRepository(db *gorm.DB) VideoMetadataRepository {
	db.AutoMigrate(&domain.VideoMetadata{})
	return &gormVideoMetadataRepository{db: db}
}

func (r *gormVideoMetadataRepository) FindByIDs(videoIDs []string) ([]domain.VideoMetadata, error) {
	if len(videoIDs) == 0 {
		return nil, nil
	}
	var rows []domain.VideoMetadata
	err := r.db.Where("video_id IN ?", videoIDs).Find(&rows).Error
	return rows, err
}

func (r *gormVideoMetadataRepository) Upsert(metadata *domain.VideoMetadata) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "video_id"}},
		UpdateAll: true,
	}).Create(metadata).Error
}
