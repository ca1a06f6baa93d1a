package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"municipality/internal/models"
)

type attachmentRepository struct {
	db *gorm.DB
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *models.Attachment) error {
	if err := r.db.WithContext(ctx).Create(attachment).Error; err != nil {
		return duplicate(err, "failed to create attachment")
	}
	return nil
}

func (r *attachmentRepository) GetByID(ctx context.Context, id uint) (*models.Attachment, error) {
	var attachment models.Attachment
	if err := r.db.WithContext(ctx).First(&attachment, id).Error; err != nil {
		return nil, notFound(err, "failed to get attachment")
	}
	return &attachment, nil
}

func (r *attachmentRepository) ListByRequest(ctx context.Context, requestID uint) ([]models.Attachment, error) {
	var attachments []models.Attachment
	if err := r.db.WithContext(ctx).Where("request_id = ?", requestID).Order("upload_date, id").Find(&attachments).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list request attachments")
	}
	return attachments, nil
}

func (r *attachmentRepository) ListByComplaint(ctx context.Context, complaintID uint) ([]models.Attachment, error) {
	var attachments []models.Attachment
	if err := r.db.WithContext(ctx).Where("complaint_id = ?", complaintID).Order("upload_date, id").Find(&attachments).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list complaint attachments")
	}
	return attachments, nil
}

func (r *attachmentRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Attachment{}, id)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete attachment")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *attachmentRepository) DeleteByRequest(ctx context.Context, requestID uint) error {
	if err := r.db.WithContext(ctx).Where("request_id = ?", requestID).Delete(&models.Attachment{}).Error; err != nil {
		return errors.Wrap(err, "failed to delete request attachments")
	}
	return nil
}

func (r *attachmentRepository) DeleteByComplaint(ctx context.Context, complaintID uint) error {
	if err := r.db.WithContext(ctx).Where("complaint_id = ?", complaintID).Delete(&models.Attachment{}).Error; err != nil {
		return errors.Wrap(err, "failed to delete complaint attachments")
	}
	return nil
}

type auditRepository struct {
	db *gorm.DB
}

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return duplicate(err, "failed to create audit log")
	}
	return nil
}
