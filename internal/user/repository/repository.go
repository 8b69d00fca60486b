package repository

import (
	"errors"

	"github.com/inboxreel/inboxreel/internal/user/domain"
	"gorm.io/gorm"
)

// UserRepository is the gorm-backed store for User rows, following the
// teacher's NewXRepository(db) constructor convention.
type UserRepository interface {
	FindByID(id string) (*domain.User, error)
	FindByExternalAccountAddress(address string) (*domain.User, error)
	Create(user *domain.User) error
	Update(user *domain.User) error
	// AdvanceCursor atomically writes a new change cursor and touches no
	// other column.
	AdvanceCursor(userID, newCursor string) error
	MarkNeedsReauthorization(userID string) error
}

type gormUserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	db.AutoMigrate(&domain.User{})
	return &gormUserRepository{db: db}
}

func (r *gormUserRepository) FindByID(id string) (*domain.User, error) {
	var u domain.User
	err := r.db.Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *gormUserRepository) FindByExternalAccountAddress(address string) (*domain.User, error) {
	var u domain.User
	err := r.db.Where("external_account_address = ?", address).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *gormUserRepository) Create(user *domain.User) error {
	return r.db.Create(user).Error
}

func (r *gormUserRepository) Update(user *domain.User) error {
	return r.db.Save(user).Error
}

func (r *gormUserRepository) AdvanceCursor(userID, newCursor string) error {
	return r.db.Model(&domain.User{}).Where("id = ?", userID).
		Update("change_cursor", newCursor).Error
}

func (r *gormUserRepository) MarkNeedsReauthorization(userID string) error {
	return r.db.Model(&domain.User{}).Where("id = ?", userID).
		Update("needs_reauthorization", true).Error
}
