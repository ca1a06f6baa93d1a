package models

import "time"

// NotificationType classifies a notification
type NotificationType string

const (
	NotificationRequestUpdate    NotificationType = "REQUEST_UPDATE"
	NotificationPaymentReminder  NotificationType = "PAYMENT_REMINDER"
	NotificationComplaintUpdate  NotificationType = "COMPLAINT_UPDATE"
	NotificationAnnouncement     NotificationType = "ANNOUNCEMENT"
	NotificationDeadlineReminder NotificationType = "DEADLINE_REMINDER"
	NotificationGeneral          NotificationType = "GENERAL"
)

// Notification is a message delivered to a citizen
type Notification struct {
	ID               uint             `json:"notification_id" gorm:"primaryKey"`
	CitizenID        uint             `json:"citizen_id" gorm:"not null;index"`
	Title            string           `json:"title" gorm:"type:varchar(255);not null"`
	Message          string           `json:"message" gorm:"type:text;not null"`
	NotificationType NotificationType `json:"notification_type" gorm:"type:varchar(32);not null"`
	IsRead           bool             `json:"is_read" gorm:"not null;default:false;index"`
	CreatedAt        time.Time        `json:"created_at" gorm:"not null"`
	RequestID        *uint            `json:"request_id"`
	ComplaintID      *uint            `json:"complaint_id"`
	AnnouncementID   *uint            `json:"announcement_id"`
}

// NotificationStats summarizes a citizen's notifications
type NotificationStats struct {
	Total  int64 `json:"total_notifications"`
	Unread int64 `json:"unread_count"`
	Read   int64 `json:"read_count"`
}

// SendNotificationPayload lets an employee message a citizen directly
type SendNotificationPayload struct {
	CitizenID        uint             `json:"citizen_id" binding:"required"`
	Title            string           `json:"title" binding:"required,min=3,max=255"`
	Message          string           `json:"message" binding:"required,min=5,max=1000"`
	NotificationType NotificationType `json:"notification_type" binding:"required,oneof=GENERAL ANNOUNCEMENT DEADLINE_REMINDER"`
	RequestID        *uint            `json:"request_id"`
	ComplaintID      *uint            `json:"complaint_id"`
	AnnouncementID   *uint            `json:"announcement_id"`
}
