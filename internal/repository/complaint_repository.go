package repository

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"municipality/internal/models"
)

type complaintRepository struct {
	db *gorm.DB
}

func (r *complaintRepository) Create(ctx context.Context, complaint *models.Complaint) error {
	if err := r.db.WithContext(ctx).Create(complaint).Error; err != nil {
		return duplicate(err, "failed to create complaint")
	}
	return nil
}

func (r *complaintRepository) GetByID(ctx context.Context, id uint) (*models.Complaint, error) {
	var complaint models.Complaint
	if err := r.db.WithContext(ctx).First(&complaint, id).Error; err != nil {
		return nil, notFound(err, "failed to get complaint")
	}
	return &complaint, nil
}

func (r *complaintRepository) ListByCitizen(ctx context.Context, citizenID uint) ([]models.Complaint, error) {
	var complaints []models.Complaint
	err := r.db.WithContext(ctx).
		Where("citizen_id = ?", citizenID).
		Order("submission_date DESC, id DESC").
		Find(&complaints).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list citizen complaints")
	}
	return complaints, nil
}

// List filters by status and by a case-insensitive category fragment
func (r *complaintRepository) List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, error) {
	query := r.db.WithContext(ctx).Model(&models.Complaint{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("LOWER(category) LIKE ?", "%"+strings.ToLower(filter.Category)+"%")
	}

	var complaints []models.Complaint
	if err := paginate(query.Order("submission_date DESC, id DESC"), filter.Skip, filter.Limit).Find(&complaints).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list complaints")
	}
	return complaints, nil
}

func (r *complaintRepository) Update(ctx context.Context, complaint *models.Complaint) error {
	if err := r.db.WithContext(ctx).Save(complaint).Error; err != nil {
		return errors.Wrap(err, "failed to update complaint")
	}
	return nil
}

// Delete removes the complaint and its responses in one transaction
func (r *complaintRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("complaint_id = ?", id).Delete(&models.ComplaintResponse{}).Error; err != nil {
			return errors.Wrap(err, "failed to delete complaint responses")
		}
		result := tx.Delete(&models.Complaint{}, id)
		if result.Error != nil {
			return errors.Wrap(result.Error, "failed to delete complaint")
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *complaintRepository) AddResponse(ctx context.Context, response *models.ComplaintResponse) error {
	if err := r.db.WithContext(ctx).Create(response).Error; err != nil {
		return errors.Wrap(err, "failed to add complaint response")
	}
	return nil
}

// ListResponses returns a complaint's responses, oldest first
func (r *complaintRepository) ListResponses(ctx context.Context, complaintID uint) ([]models.ComplaintResponse, error) {
	var responses []models.ComplaintResponse
	err := r.db.WithContext(ctx).
		Where("complaint_id = ?", complaintID).
		Order("response_date ASC, id ASC").
		Find(&responses).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list complaint responses")
	}
	return responses, nil
}
