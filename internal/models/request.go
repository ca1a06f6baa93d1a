package models

import "time"

// RequestType is the municipal document or service a citizen applies for
type RequestType string

const (
	RequestTypeBuildingPermit       RequestType = "Building Permit"
	RequestTypeBusinessLicense      RequestType = "Business License"
	RequestTypeBirthCertificate     RequestType = "Birth Certificate"
	RequestTypeMarriageCertificate  RequestType = "Marriage Certificate"
	RequestTypeResidencyCertificate RequestType = "Residency Certificate"
	RequestTypeTaxClearance         RequestType = "Tax Clearance"
	RequestTypeLandRegistry         RequestType = "Land Registry"
	RequestTypeOther                RequestType = "Other"
)

// RequestTypes lists every accepted request type
var RequestTypes = []RequestType{
	RequestTypeBuildingPermit,
	RequestTypeBusinessLicense,
	RequestTypeBirthCertificate,
	RequestTypeMarriageCertificate,
	RequestTypeResidencyCertificate,
	RequestTypeTaxClearance,
	RequestTypeLandRegistry,
	RequestTypeOther,
}

// Valid reports whether t is a known request type
func (t RequestType) Valid() bool {
	for _, known := range RequestTypes {
		if known == t {
			return true
		}
	}
	return false
}

// Request is a citizen's application for a municipal document or service
type Request struct {
	ID                 uint        `json:"request_id" gorm:"primaryKey"`
	CitizenID          uint        `json:"citizen_id" gorm:"not null;index"`
	RequestType        RequestType `json:"request_type" gorm:"type:varchar(100);not null"`
	RequestDate        time.Time   `json:"request_date" gorm:"not null"`
	Description        string      `json:"description" gorm:"type:text"`
	Status             Status      `json:"status" gorm:"type:varchar(32);not null;default:'SUBMITTED';index"`
	AssignedEmployeeID *uint       `json:"assigned_employee_id"`
	RejectionReason    *string     `json:"rejection_reason" gorm:"type:text"`
}

// RequestDetail is a request enriched with the names of the people involved
type RequestDetail struct {
	Request
	CitizenName          string  `json:"citizen_name"`
	AssignedEmployeeName *string `json:"assigned_employee_name"`
}

// RequestFilter narrows an employee listing of requests
type RequestFilter struct {
	Status             *Status
	AssignedEmployeeID *uint
	Skip               int
	Limit              int
}

// CreateRequestPayload is the body of a request submission
type CreateRequestPayload struct {
	RequestType RequestType `json:"request_type" binding:"required,request_type"`
	Description string      `json:"description" binding:"max=1000"`
}

// UpdateRequestStatusPayload is the body of an employee status decision
type UpdateRequestStatusPayload struct {
	Status          Status `json:"status" binding:"required"`
	RejectionReason string `json:"rejection_reason" binding:"max=1000"`
}
