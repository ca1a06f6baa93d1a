package models

import "time"

// ComplaintCategory classifies a reported issue
type ComplaintCategory string

const (
	CategoryInfrastructure      ComplaintCategory = "Infrastructure"
	CategorySanitation          ComplaintCategory = "Sanitation"
	CategoryWaterSupply         ComplaintCategory = "Water Supply"
	CategoryElectricity         ComplaintCategory = "Electricity"
	CategoryRoadDamage          ComplaintCategory = "Road Damage"
	CategoryGarbageCollection   ComplaintCategory = "Garbage Collection"
	CategoryNoisePollution      ComplaintCategory = "Noise Pollution"
	CategoryIllegalConstruction ComplaintCategory = "Illegal Construction"
	CategoryOther               ComplaintCategory = "Other"
)

// ComplaintCategories lists every accepted category
var ComplaintCategories = []ComplaintCategory{
	CategoryInfrastructure,
	CategorySanitation,
	CategoryWaterSupply,
	CategoryElectricity,
	CategoryRoadDamage,
	CategoryGarbageCollection,
	CategoryNoisePollution,
	CategoryIllegalConstruction,
	CategoryOther,
}

// Valid reports whether c is a known category
func (c ComplaintCategory) Valid() bool {
	for _, known := range ComplaintCategories {
		if known == c {
			return true
		}
	}
	return false
}

// Complaint is a citizen-reported issue tracked to resolution
type Complaint struct {
	ID                 uint              `json:"complaint_id" gorm:"primaryKey"`
	CitizenID          uint              `json:"citizen_id" gorm:"not null;index"`
	Category           ComplaintCategory `json:"category" gorm:"type:varchar(50);not null;index"`
	Title              string            `json:"title" gorm:"type:varchar(255);not null"`
	Description        string            `json:"description" gorm:"type:text;not null"`
	Location           string            `json:"location" gorm:"type:varchar(500)"`
	Status             Status            `json:"status" gorm:"type:varchar(32);not null;default:'SUBMITTED';index"`
	SubmissionDate     time.Time         `json:"submission_date" gorm:"not null"`
	AssignedEmployeeID *uint             `json:"assigned_employee_id"`
	ResolutionNotes    *string           `json:"resolution_notes" gorm:"type:text"`
	ResolvedDate       *time.Time        `json:"resolved_date"`
}

// ComplaintResponse is an employee message appended to a complaint
type ComplaintResponse struct {
	ID           uint      `json:"response_id" gorm:"primaryKey"`
	ComplaintID  uint      `json:"complaint_id" gorm:"not null;index"`
	EmployeeID   uint      `json:"employee_id" gorm:"not null"`
	Message      string    `json:"message" gorm:"type:text;not null"`
	ResponseDate time.Time `json:"response_date" gorm:"not null"`
}

// ResponseDetail is a complaint response with the author's name
type ResponseDetail struct {
	ID           uint      `json:"response_id"`
	EmployeeName string    `json:"employee_name"`
	Message      string    `json:"message"`
	ResponseDate time.Time `json:"response_date"`
}

// ComplaintDetail is a complaint with names and its responses, oldest first
type ComplaintDetail struct {
	Complaint
	CitizenName          string           `json:"citizen_name"`
	AssignedEmployeeName *string          `json:"assigned_employee_name"`
	Responses            []ResponseDetail `json:"responses"`
}

// ComplaintFilter narrows an employee listing of complaints
type ComplaintFilter struct {
	Status   *Status
	Category string
	Skip     int
	Limit    int
}

// CreateComplaintPayload is the body of a complaint submission
type CreateComplaintPayload struct {
	Category    ComplaintCategory `json:"category" binding:"required,complaint_category"`
	Title       string            `json:"title" binding:"required,min=5,max=255"`
	Description string            `json:"description" binding:"required,min=10,max=2000"`
	Location    string            `json:"location" binding:"max=500"`
}

// UpdateComplaintPayload carries optional employee changes to a complaint
type UpdateComplaintPayload struct {
	Status             *Status `json:"status"`
	AssignedEmployeeID *uint   `json:"assigned_employee_id"`
	ResolutionNotes    *string `json:"resolution_notes" binding:"omitempty,max=2000"`
}

// CreateComplaintResponsePayload is the body of an employee response
type CreateComplaintResponsePayload struct {
	Message string `json:"message" binding:"required,min=5,max=1000"`
}
