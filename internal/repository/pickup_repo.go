package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/makerlabExp/pickupConnect/internal/models"
)

// PickupRepository persists pickup workflow records.
type PickupRepository interface {
	List(ctx context.Context) ([]models.PickupRequest, error)
	GetByStudent(ctx context.Context, studentID string) (models.PickupRequest, error)
	Create(ctx context.Context, request *models.PickupRequest) error
	Save(ctx context.Context, request *models.PickupRequest) error
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error
	DeleteAll(ctx context.Context) error
}

type pickupRepository struct {
	db *gorm.DB
}

// NewPickupRepository constructs a pickup repository backed by GORM.
func NewPickupRepository(db *gorm.DB) PickupRepository {
	return &pickupRepository{db: db}
}

func (r *pickupRepository) List(ctx context.Context) ([]models.PickupRequest, error) {
	var requests []models.PickupRequest
	if err := r.db.WithContext(ctx).Order("timestamp DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *pickupRepository) GetByStudent(ctx context.Context, studentID string) (models.PickupRequest, error) {
	var request models.PickupRequest
	if err := r.db.WithContext(ctx).First(&request, "student_id = ?", studentID).Error; err != nil {
		return models.PickupRequest{}, err
	}
	return request, nil
}

func (r *pickupRepository) Create(ctx context.Context, request *models.PickupRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *pickupRepository) Save(ctx context.Context, request *models.PickupRequest) error {
	return r.db.WithContext(ctx).Save(request).Error
}

func (r *pickupRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.PickupRequest{}).Where("id = ?", id).Updates(fields).Error
}

func (r *pickupRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&models.PickupRequest{}).Error
}
