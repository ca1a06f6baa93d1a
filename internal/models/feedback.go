package models

import "time"

// Feedback is a citizen's rating of the municipality's service
type Feedback struct {
	ID        uint      `json:"feedback_id" gorm:"primaryKey"`
	CitizenID uint      `json:"citizen_id" gorm:"not null;index"`
	RequestID *uint     `json:"request_id" gorm:"index"`
	Rating    int       `json:"rating" gorm:"not null"`
	Comment   string    `json:"comment" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

// FeedbackDetail is feedback with its author and request type resolved
type FeedbackDetail struct {
	Feedback
	CitizenName string       `json:"citizen_name"`
	RequestType *RequestType `json:"request_type"`
}

// FeedbackStatistics summarizes every rating received
type FeedbackStatistics struct {
	Total        int64            `json:"total_feedbacks"`
	Average      float64          `json:"average_rating"`
	Distribution map[int]int64    `json:"rating_distribution"`
	Recent       []FeedbackDetail `json:"recent_feedbacks"`
}

// CreateFeedbackPayload is the body of a feedback submission
type CreateFeedbackPayload struct {
	RequestID *uint  `json:"request_id"`
	Rating    int    `json:"rating" binding:"required,min=1,max=5"`
	Comment   string `json:"comment" binding:"max=1000"`
}
