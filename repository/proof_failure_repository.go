package repository

import (
	"context"

	"checkout-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProofFailureRepository stores payment proofs that could not be uploaded.
type ProofFailureRepository interface {
	Create(ctx context.Context, failure *models.ProofUploadFailure) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ProofUploadFailure, error)
	FindByStatus(ctx context.Context, status string, page, limit int) ([]models.ProofUploadFailure, int64, error)
	Update(ctx context.Context, failure *models.ProofUploadFailure) error
}

type GormProofFailureRepository struct {
	db *gorm.DB
}

func NewGormProofFailureRepository(db *gorm.DB) ProofFailureRepository {
	return &GormProofFailureRepository{db: db}
}

func (r *GormProofFailureRepository) Create(ctx context.Context, failure *models.ProofUploadFailure) error {
	return r.db.WithContext(ctx).Create(failure).Error
}

func (r *GormProofFailureRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.ProofUploadFailure, error) {
	var f models.ProofUploadFailure
	if err := r.db.WithContext(ctx).First(&f, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *GormProofFailureRepository) FindByStatus(ctx context.Context, status string, page, limit int) ([]models.ProofUploadFailure, int64, error) {
	var failures []models.ProofUploadFailure
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ProofUploadFailure{}).Where("status = ?", status)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&failures).Error; err != nil {
		return nil, 0, err
	}

	return failures, total, nil
}

func (r *GormProofFailureRepository) Update(ctx context.Context, failure *models.ProofUploadFailure) error {
	return r.db.WithContext(ctx).Save(failure).Error
}
