package repository

import (
	"time"

	"github.com/inboxreel/inboxreel/internal/feedback/domain"
	"gorm.io/gorm"
)

type Repository interface {
	Create(feedback *domain.Feedback) error
	ListInRange(userID string, from, to time.Time) ([]domain.Feedback, error)
}

type gormRepository struct{ db *gorm.DB }

func NewRepository(db *gorm.DB) Repository {
	db.AutoMigrate(&domain.Feedback{})
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(feedback *domain.Feedback) error {
	return r.db.Create(feedback).Error
}

func (r *gormRepository) ListInRange(userID string, from, to time.Time) ([]domain.Feedback, error) {
	var rows []domain.Feedback
	err := r.db.Where("user_id = ? AND provided_at >= ? AND provided_at < ?", userID, from, to).Find(&rows).Error
	return rows, err
}
