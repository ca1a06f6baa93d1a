package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"municipality/internal/cache"
	"municipality/internal/events"
	"municipality/internal/models"
	"municipality/internal/realtime"
)

// Pusher delivers a message to the open connections of a citizen
type Pusher interface {
	PushToCitizen(ctx context.Context, citizenID uint, message *realtime.Message) error
}

// NotificationService stores citizen notifications and fans them out to
// websocket clients and the event stream
type NotificationService struct {
	Deps
	cache    cache.Cache
	pusher   Pusher
	statsTTL time.Duration
	logger   *zap.Logger
}

// NewNotificationService creates a notification service. pusher may be nil.
func NewNotificationService(deps Deps, statsCache cache.Cache, pusher Pusher, statsTTL time.Duration) *NotificationService {
	deps = deps.withDefaults()
	return &NotificationService{
		Deps:     deps,
		cache:    statsCache,
		pusher:   pusher,
		statsTTL: statsTTL,
		logger:   deps.Logger.Named("notification_service"),
	}
}

func statsKey(citizenID uint) string {
	return "notifications:stats:" + strconv.FormatUint(uint64(citizenID), 10)
}

// Notify stores a notification and fans it out. Failures are logged and
// never reach the caller.
func (s *NotificationService) Notify(ctx context.Context, notification models.Notification) {
	notification.ID = 0
	notification.IsRead = false
	notification.CreatedAt = s.Clock()

	if err := s.Store.Notifications().Create(ctx, &notification); err != nil {
		s.Metrics.NotificationDispatched(string(notification.NotificationType), "failed")
		s.logger.Warn("Failed to store notification",
			zap.Uint("citizen_id", notification.CitizenID),
			zap.String("type", string(notification.NotificationType)),
			zap.Error(err))
		return
	}
	s.dispatch(ctx, &notification)
}

// dispatch runs the side effects of a stored notification
func (s *NotificationService) dispatch(ctx context.Context, notification *models.Notification) {
	s.Metrics.NotificationDispatched(string(notification.NotificationType), "stored")
	s.invalidate(ctx, notification.CitizenID)

	if s.pusher != nil {
		message := &realtime.Message{Type: realtime.MessageTypeNotification, Payload: notification}
		if err := s.pusher.PushToCitizen(ctx, notification.CitizenID, message); err != nil {
			s.logger.Warn("Failed to push notification",
				zap.Uint("notification_id", notification.ID),
				zap.Error(err))
		}
	}

	s.publish(ctx, events.NotificationCreated, fmt.Sprintf("citizen-%d", notification.CitizenID), notification)
}

func (s *NotificationService) invalidate(ctx context.Context, citizenID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, statsKey(citizenID)); err != nil {
		s.logger.Warn("Failed to invalidate notification stats", zap.Uint("citizen_id", citizenID), zap.Error(err))
	}
}

// Send stores a notification written by an employee
func (s *NotificationService) Send(ctx context.Context, payload models.SendNotificationPayload) (*models.Notification, error) {
	if _, err := s.Store.Citizens().GetByID(ctx, payload.CitizenID); err != nil {
		return nil, lookupErr(err, "Citizen not found")
	}

	notification := &models.Notification{
		CitizenID:        payload.CitizenID,
		Title:            payload.Title,
		Message:          payload.Message,
		NotificationType: payload.NotificationType,
		CreatedAt:        s.Clock(),
		RequestID:        payload.RequestID,
		ComplaintID:      payload.ComplaintID,
		AnnouncementID:   payload.AnnouncementID,
	}
	if err := s.Store.Notifications().Create(ctx, notification); err != nil {
		return nil, storeErr(err, "failed to create notification")
	}

	s.logger.Info("Notification sent",
		zap.Uint("notification_id", notification.ID),
		zap.Uint("citizen_id", notification.CitizenID))
	s.dispatch(ctx, notification)
	return notification, nil
}

// List returns the notifications of a citizen, newest first
func (s *NotificationService) List(ctx context.Context, citizenID uint, unreadOnly bool) ([]models.Notification, error) {
	notifications, err := s.Store.Notifications().ListByCitizen(ctx, citizenID, unreadOnly)
	if err != nil {
		return nil, storeErr(err, "failed to list notifications")
	}
	return notifications, nil
}

// Stats returns total, unread and read counts, served from cache when fresh
func (s *NotificationService) Stats(ctx context.Context, citizenID uint) (*models.NotificationStats, error) {
	key := statsKey(citizenID)
	if s.cache != nil {
		raw, found, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("Failed to read notification stats cache", zap.Error(err))
		}
		if found {
			var stats models.NotificationStats
			if err := json.Unmarshal([]byte(raw), &stats); err == nil {
				return &stats, nil
			}
		}
	}

	stats, err := s.Store.Notifications().Stats(ctx, citizenID)
	if err != nil {
		return nil, storeErr(err, "failed to count notifications")
	}

	if s.cache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, key, string(raw), s.statsTTL); err != nil {
				s.logger.Warn("Failed to cache notification stats", zap.Error(err))
			}
		}
	}
	return stats, nil
}

// MarkRead marks one notification of citizenID as read
func (s *NotificationService) MarkRead(ctx context.Context, id, citizenID uint) (*models.Notification, error) {
	notification, err := s.Store.Notifications().GetForCitizen(ctx, id, citizenID)
	if err != nil {
		return nil, lookupErr(err, "Notification not found")
	}
	if notification.IsRead {
		return notification, nil
	}

	notification.IsRead = true
	if err := s.Store.Notifications().Update(ctx, notification); err != nil {
		return nil, storeErr(err, "failed to update notification")
	}
	s.invalidate(ctx, citizenID)
	return notification, nil
}

// MarkAllRead marks every unread notification of citizenID as read
func (s *NotificationService) MarkAllRead(ctx context.Context, citizenID uint) (int64, error) {
	count, err := s.Store.Notifications().MarkAllRead(ctx, citizenID)
	if err != nil {
		return 0, storeErr(err, "failed to mark notifications read")
	}
	s.invalidate(ctx, citizenID)
	return count, nil
}

// Delete removes one notification of citizenID
func (s *NotificationService) Delete(ctx context.Context, id, citizenID uint) error {
	if _, err := s.Store.Notifications().GetForCitizen(ctx, id, citizenID); err != nil {
		return lookupErr(err, "Notification not found")
	}
	if err := s.Store.Notifications().Delete(ctx, id); err != nil {
		return storeErr(err, "failed to delete notification")
	}
	s.invalidate(ctx, citizenID)
	return nil
}

var _ Notifier = (*NotificationService)(nil)

// requestUpdate builds the notification sent when a request changes status
func requestUpdate(request *models.Request) models.Notification {
	return models.Notification{
		CitizenID:        request.CitizenID,
		Title:            "Request Status Update",
		Message:          fmt.Sprintf("Your request #%d status has been updated to %s", request.ID, request.Status),
		NotificationType: models.NotificationRequestUpdate,
		RequestID:        uintPtr(request.ID),
	}
}

// complaintUpdate builds the notification sent when a complaint changes status
func complaintUpdate(complaint *models.Complaint) models.Notification {
	return models.Notification{
		CitizenID:        complaint.CitizenID,
		Title:            "Complaint Status Update",
		Message:          fmt.Sprintf("Your complaint #%d status has been updated to %s", complaint.ID, complaint.Status),
		NotificationType: models.NotificationComplaintUpdate,
		ComplaintID:      uintPtr(complaint.ID),
	}
}

// complaintResponse builds the notification sent when an employee responds
func complaintResponse(complaint *models.Complaint) models.Notification {
	return models.Notification{
		CitizenID:        complaint.CitizenID,
		Title:            "New Response to Your Complaint",
		Message:          fmt.Sprintf("An employee has responded to your complaint #%d", complaint.ID),
		NotificationType: models.NotificationComplaintUpdate,
		ComplaintID:      uintPtr(complaint.ID),
	}
}

// paymentReceived builds the notification sent when a payment completes
func paymentReceived(citizenID uint, payment *models.Payment) models.Notification {
	return models.Notification{
		CitizenID:        citizenID,
		Title:            "Payment Successful",
		Message:          fmt.Sprintf("Your payment of $%v has been received successfully.", payment.Amount),
		NotificationType: models.NotificationPaymentReminder,
		RequestID:        uintPtr(payment.RequestID),
	}
}

// paymentDue builds the daily reminder for an approved, unpaid request
func paymentDue(request *models.Request, amount float64) models.Notification {
	return models.Notification{
		CitizenID:        request.CitizenID,
		Title:            "Payment Reminder",
		Message:          fmt.Sprintf("Your request #%d (%s) is approved. Please pay the fee of $%v to continue.", request.ID, request.RequestType, amount),
		NotificationType: models.NotificationDeadlineReminder,
		RequestID:        uintPtr(request.ID),
	}
}
