package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"municipality/internal/models"
)

type notificationRepository struct {
	db *gorm.DB
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		return duplicate(err, "failed to create notification")
	}
	return nil
}

func (r *notificationRepository) GetForCitizen(ctx context.Context, id, citizenID uint) (*models.Notification, error) {
	var notification models.Notification
	err := r.db.WithContext(ctx).
		Where("id = ? AND citizen_id = ?", id, citizenID).
		First(&notification).Error
	if err != nil {
		return nil, notFound(err, "failed to get notification")
	}
	return &notification, nil
}

func (r *notificationRepository) ListByCitizen(ctx context.Context, citizenID uint, unreadOnly bool) ([]models.Notification, error) {
	query := r.db.WithContext(ctx).Where("citizen_id = ?", citizenID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC, id DESC").Find(&notifications).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list notifications")
	}
	return notifications, nil
}

func (r *notificationRepository) Update(ctx context.Context, notification *models.Notification) error {
	if err := r.db.WithContext(ctx).Save(notification).Error; err != nil {
		return errors.Wrap(err, "failed to update notification")
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, citizenID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("citizen_id = ? AND is_read = ?", citizenID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to mark notifications as read")
	}
	return result.RowsAffected, nil
}

func (r *notificationRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Notification{}, id)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete notification")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *notificationRepository) Stats(ctx context.Context, citizenID uint) (*models.NotificationStats, error) {
	var stats models.NotificationStats
	base := r.db.WithContext(ctx).Model(&models.Notification{}).Where("citizen_id = ?", citizenID)

	if err := base.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return nil, errors.Wrap(err, "failed to count notifications")
	}
	if err := base.Session(&gorm.Session{}).Where("is_read = ?", false).Count(&stats.Unread).Error; err != nil {
		return nil, errors.Wrap(err, "failed to count unread notifications")
	}
	stats.Read = stats.Total - stats.Unread
	return &stats, nil
}

func (r *notificationRepository) ExistsSince(ctx context.Context, citizenID, requestID uint, notificationType models.NotificationType, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("citizen_id = ? AND request_id = ? AND notification_type = ? AND created_at >= ?",
			citizenID, requestID, notificationType, since).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "failed to look up notifications")
	}
	return count > 0, nil
}
