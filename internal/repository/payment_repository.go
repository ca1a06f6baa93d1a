package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"municipality/internal/models"
)

type paymentRepository struct {
	db *gorm.DB
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return duplicate(err, "failed to create payment")
	}
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, id).Error; err != nil {
		return nil, notFound(err, "failed to get payment")
	}
	return &payment, nil
}

func (r *paymentRepository) GetByRequestID(ctx context.Context, requestID uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&payment).Error; err != nil {
		return nil, notFound(err, "failed to get payment by request")
	}
	return &payment, nil
}

// ListByCitizen returns the payments of every request owned by the citizen
func (r *paymentRepository) ListByCitizen(ctx context.Context, citizenID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Joins("JOIN requests ON requests.id = payments.request_id").
		Where("requests.citizen_id = ?", citizenID).
		Order("payments.payment_date DESC, payments.id DESC").
		Find(&payments).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list citizen payments")
	}
	return payments, nil
}

func (r *paymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	query := r.db.WithContext(ctx).Model(&models.Payment{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var payments []models.Payment
	if err := paginate(query.Order("payment_date DESC, id DESC"), filter.Skip, filter.Limit).Find(&payments).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list payments")
	}
	return payments, nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	if err := r.db.WithContext(ctx).Save(payment).Error; err != nil {
		return errors.Wrap(err, "failed to update payment")
	}
	return nil
}
