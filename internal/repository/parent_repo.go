package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/makerlabExp/pickupConnect/internal/models"
)

// ParentRepository provides access to parent records.
type ParentRepository interface {
	List(ctx context.Context) ([]models.Parent, error)
	GetByStudent(ctx context.Context, studentID string) (models.Parent, error)
	Create(ctx context.Context, parent *models.Parent) error
	Upsert(ctx context.Context, parent *models.Parent) error
	DeleteAll(ctx context.Context) error
}

type parentRepository struct {
	db *gorm.DB
}

// NewParentRepository constructs a parent repository backed by GORM.
func NewParentRepository(db *gorm.DB) ParentRepository {
	return &parentRepository{db: db}
}

func (r *parentRepository) List(ctx context.Context) ([]models.Parent, error) {
	var parents []models.Parent
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&parents).Error; err != nil {
		return nil, err
	}
	return parents, nil
}

func (r *parentRepository) GetByStudent(ctx context.Context, studentID string) (models.Parent, error) {
	var parent models.Parent
	if err := r.db.WithContext(ctx).First(&parent, "student_id = ?", studentID).Error; err != nil {
		return models.Parent{}, err
	}
	return parent, nil
}

func (r *parentRepository) Create(ctx context.Context, parent *models.Parent) error {
	return r.db.WithContext(ctx).Create(parent).Error
}

func (r *parentRepository) Upsert(ctx context.Context, parent *models.Parent) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(parent).Error
}

func (r *parentRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&models.Parent{}).Error
}
