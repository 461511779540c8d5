package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/makerlabExp/pickupConnect/internal/models"
)

// SessionRepository persists workshop theme records.
type SessionRepository interface {
	List(ctx context.Context) ([]models.Session, error)
	Create(ctx context.Context, session *models.Session) error
	Upsert(ctx context.Context, session *models.Session) error
	// DeactivateAll and Activate together implement the two-step activation
	// write. They are separate statements and deliberately not transactional.
	DeactivateAll(ctx context.Context) error
	Activate(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository constructs a session repository backed by GORM.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) List(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepository) Create(ctx context.Context, session *models.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) Upsert(ctx context.Context, session *models.Session) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(session).Error
}

func (r *sessionRepository) DeactivateAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Model(&models.Session{}).Where("is_active = ?", true).
		Update("is_active", false).Error
}

func (r *sessionRepository) Activate(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&models.Session{}).Where("id = ?", id).
		Update("is_active", true).Error
}

func (r *sessionRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&models.Session{}).Error
}
