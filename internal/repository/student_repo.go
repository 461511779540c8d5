package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/makerlabExp/pickupConnect/internal/models"
)

// StudentRepository provides access to student records.
type StudentRepository interface {
	List(ctx context.Context) ([]models.Student, error)
	GetByID(ctx context.Context, id string) (models.Student, error)
	GetByCode(ctx context.Context, code string) (models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Upsert(ctx context.Context, student *models.Student) error
	DeleteAll(ctx context.Context) error
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a student repository backed by GORM.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) List(ctx context.Context) ([]models.Student, error) {
	var students []models.Student
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&students).Error; err != nil {
		return nil, err
	}
	return students, nil
}

func (r *studentRepository) GetByID(ctx context.Context, id string) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, "id = ?", id).Error; err != nil {
		return models.Student{}, err
	}
	return student, nil
}

func (r *studentRepository) GetByCode(ctx context.Context, code string) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, "access_code = ?", code).Error; err != nil {
		return models.Student{}, err
	}
	return student, nil
}

func (r *studentRepository) Create(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *studentRepository) Upsert(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(student).Error
}

func (r *studentRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&models.Student{}).Error
}
