package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"municipality/internal/models"
)

type requestRepository struct {
	db *gorm.DB
}

// Create inserts a new request
func (r *requestRepository) Create(ctx context.Context, request *models.Request) error {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return duplicate(err, "failed to create request")
	}
	return nil
}

// GetByID retrieves a request by ID
func (r *requestRepository) GetByID(ctx context.Context, id uint) (*models.Request, error) {
	var request models.Request
	if err := r.db.WithContext(ctx).First(&request, id).Error; err != nil {
		return nil, notFound(err, "failed to get request")
	}
	return &request, nil
}

// ListByCitizen returns a citizen's requests, newest first
func (r *requestRepository) ListByCitizen(ctx context.Context, citizenID uint) ([]models.Request, error) {
	var requests []models.Request
	err := r.db.WithContext(ctx).
		Where("citizen_id = ?", citizenID).
		Order("request_date DESC, id DESC").
		Find(&requests).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list citizen requests")
	}
	return requests, nil
}

// List returns requests matching the filter, newest first
func (r *requestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error) {
	query := r.db.WithContext(ctx).Model(&models.Request{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.AssignedEmployeeID != nil {
		query = query.Where("assigned_employee_id = ?", *filter.AssignedEmployeeID)
	}

	var requests []models.Request
	if err := paginate(query.Order("request_date DESC, id DESC"), filter.Skip, filter.Limit).Find(&requests).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list requests")
	}
	return requests, nil
}

// Update saves every column of the request
func (r *requestRepository) Update(ctx context.Context, request *models.Request) error {
	if err := r.db.WithContext(ctx).Save(request).Error; err != nil {
		return errors.Wrap(err, "failed to update request")
	}
	return nil
}

// Delete removes a request permanently
func (r *requestRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Request{}, id)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete request")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
