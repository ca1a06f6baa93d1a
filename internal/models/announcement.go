package models

import "time"

// AnnouncementCategory classifies a public announcement
type AnnouncementCategory string

const (
	AnnouncementNews        AnnouncementCategory = "News"
	AnnouncementEvent       AnnouncementCategory = "Event"
	AnnouncementEmergency   AnnouncementCategory = "Emergency"
	AnnouncementMaintenance AnnouncementCategory = "Maintenance"
	AnnouncementTender      AnnouncementCategory = "Tender"
	AnnouncementGeneral     AnnouncementCategory = "General"
)

// AnnouncementCategories lists every accepted category
var AnnouncementCategories = []AnnouncementCategory{
	AnnouncementNews,
	AnnouncementEvent,
	AnnouncementEmergency,
	AnnouncementMaintenance,
	AnnouncementTender,
	AnnouncementGeneral,
}

// Valid reports whether c is a known category
func (c AnnouncementCategory) Valid() bool {
	for _, known := range AnnouncementCategories {
		if known == c {
			return true
		}
	}
	return false
}

// AnnouncementPriority ranks announcements, lowest first
type AnnouncementPriority string

const (
	PriorityLow    AnnouncementPriority = "LOW"
	PriorityMedium AnnouncementPriority = "MEDIUM"
	PriorityHigh   AnnouncementPriority = "HIGH"
	PriorityUrgent AnnouncementPriority = "URGENT"
)

// Rank orders priorities; unknown values rank below LOW
func (p AnnouncementPriority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	}
	return 0
}

// Broadcast reports whether announcements of this priority are pushed to
// every citizen as a notification
func (p AnnouncementPriority) Broadcast() bool {
	return p.Rank() >= PriorityHigh.Rank()
}

// Announcement is municipal news, an event or a public notice
type Announcement struct {
	ID            uint                 `json:"announcement_id" gorm:"primaryKey"`
	Title         string               `json:"title" gorm:"type:varchar(255);not null"`
	Content       string               `json:"content" gorm:"type:text;not null"`
	Category      AnnouncementCategory `json:"category" gorm:"type:varchar(32);not null;index"`
	Priority      AnnouncementPriority `json:"priority" gorm:"type:varchar(16);not null"`
	IssueDate     time.Time            `json:"issue_date" gorm:"not null;index"`
	ExpiryDate    *time.Time           `json:"expiry_date"`
	IsActive      bool                 `json:"is_active" gorm:"not null;default:true;index"`
	CreatedBy     uint                 `json:"created_by" gorm:"not null"`
	EventDate     *time.Time           `json:"event_date"`
	EventLocation *string              `json:"event_location" gorm:"type:varchar(500)"`
}

// AnnouncementDetail is an announcement with the name of its author
type AnnouncementDetail struct {
	Announcement
	CreatedByName string `json:"created_by_name"`
}

// AnnouncementOrder selects the sort of an announcement listing
type AnnouncementOrder int

const (
	// OrderByIssueDate sorts newest first
	OrderByIssueDate AnnouncementOrder = iota
	// OrderByPriority sorts by priority, then newest first
	OrderByPriority
	// OrderByEventDate sorts by event date, soonest first
	OrderByEventDate
)

// AnnouncementFilter narrows a listing of active announcements. Zero fields
// do not filter.
type AnnouncementFilter struct {
	Categories      []AnnouncementCategory
	ExcludeCategory AnnouncementCategory
	Priorities      []AnnouncementPriority
	IssuedSince     *time.Time
	// UnexpiredAt keeps announcements without an expiry date or expiring after it
	UnexpiredAt *time.Time
	// EventFrom and EventTo bound the event date; either one also drops
	// announcements without an event date
	EventFrom *time.Time
	EventTo   *time.Time
	Order     AnnouncementOrder
	Skip      int
	Limit     int
}

// CreateAnnouncementPayload is the body of an announcement creation
type CreateAnnouncementPayload struct {
	Title         string               `json:"title" binding:"required,min=5,max=255"`
	Content       string               `json:"content" binding:"required,min=10,max=5000"`
	Category      AnnouncementCategory `json:"category" binding:"required,announcement_category"`
	Priority      AnnouncementPriority `json:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	ExpiryDate    *time.Time           `json:"expiry_date"`
	EventDate     *time.Time           `json:"event_date"`
	EventLocation *string              `json:"event_location" binding:"omitempty,max=500"`
}

// UpdateAnnouncementPayload changes the fields that are set
type UpdateAnnouncementPayload struct {
	Title         *string               `json:"title" binding:"omitempty,min=5,max=255"`
	Content       *string               `json:"content" binding:"omitempty,min=10,max=5000"`
	Category      *AnnouncementCategory `json:"category" binding:"omitempty,announcement_category"`
	Priority      *AnnouncementPriority `json:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	ExpiryDate    *time.Time            `json:"expiry_date"`
	IsActive      *bool                 `json:"is_active"`
	EventDate     *time.Time            `json:"event_date"`
	EventLocation *string               `json:"event_location" binding:"omitempty,max=500"`
}

// Homepage gathers the public announcements shown on the landing page
type Homepage struct {
	LatestNews          []Announcement `json:"latest_news"`
	UpcomingEvents      []Announcement `json:"upcoming_events"`
	UrgentAnnouncements []Announcement `json:"urgent_announcements"`
	EmergencyNotices    []Announcement `json:"emergency_notices"`
	RecentTenders       []Announcement `json:"recent_tenders"`
	MaintenanceNotices  []Announcement `json:"maintenance_notices"`
	LastUpdated         time.Time      `json:"last_updated"`
}

// EmergencyNotices holds emergencies plus urgent notices of other categories
type EmergencyNotices struct {
	Emergencies []Announcement `json:"emergency_notices"`
	Urgent      []Announcement `json:"urgent_announcements"`
	Total       int            `json:"total"`
}

// AnnouncementStatistics counts active announcements per category
type AnnouncementStatistics struct {
	ByCategory  map[AnnouncementCategory]int64 `json:"active_announcements"`
	TotalActive int64                          `json:"total_active"`
}
