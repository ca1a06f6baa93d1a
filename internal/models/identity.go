package models

import (
	"strings"
	"time"
)

// Account holds login credentials shared by citizens and employees
type Account struct {
	ID                  uint       `json:"account_id" gorm:"primaryKey"`
	Email               string     `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Phone               string     `json:"phone" gorm:"type:varchar(20)"`
	PasswordHash        string     `json:"-" gorm:"type:varchar(255);not null"`
	IsActive            bool       `json:"is_active" gorm:"not null;default:true"`
	FailedLoginAttempts int        `json:"-" gorm:"not null;default:0"`
	LockedUntil         *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
}

// Citizen is a resident registered with the municipality
type Citizen struct {
	ID             uint      `json:"citizen_id" gorm:"primaryKey"`
	NationalID     string    `json:"national_id" gorm:"type:varchar(50);uniqueIndex;not null"`
	FirstName      string    `json:"first_name" gorm:"type:varchar(100);not null"`
	MiddleName     string    `json:"middle_name" gorm:"type:varchar(100)"`
	LastName       string    `json:"last_name" gorm:"type:varchar(100);not null"`
	DateOfBirth    time.Time `json:"date_of_birth" gorm:"type:date"`
	FatherName     string    `json:"father_name" gorm:"type:varchar(100)"`
	MotherName     string    `json:"mother_name" gorm:"type:varchar(100)"`
	Address        string    `json:"address" gorm:"type:varchar(255)"`
	MaritalStatus  string    `json:"marital_status" gorm:"type:varchar(50)"`
	ResidentStatus bool      `json:"resident_status" gorm:"not null;default:true"`
	AccountID      *uint     `json:"account_id" gorm:"uniqueIndex"`
}

// FullName joins the citizen's names, skipping an empty middle name
func (c *Citizen) FullName() string {
	parts := []string{c.FirstName}
	if c.MiddleName != "" {
		parts = append(parts, c.MiddleName)
	}
	parts = append(parts, c.LastName)
	return strings.Join(parts, " ")
}

// EmploymentType describes an employee's contract
type EmploymentType string

const (
	EmploymentFullTime EmploymentType = "Full-Time"
	EmploymentPartTime EmploymentType = "Part-Time"
	EmploymentContract EmploymentType = "Contract"
	EmploymentIntern   EmploymentType = "Intern"
)

// AccessClearance describes an employee's seniority
type AccessClearance string

const (
	ClearanceEmployee      AccessClearance = "Employee"
	ClearanceManager       AccessClearance = "Manager"
	ClearanceAdministrator AccessClearance = "Administrator"
)

// Employee is a citizen working for the municipality
type Employee struct {
	ID              uint            `json:"employee_id" gorm:"primaryKey"`
	CitizenID       uint            `json:"citizen_id" gorm:"uniqueIndex;not null"`
	Position        string          `json:"position" gorm:"type:varchar(100)"`
	EmploymentType  EmploymentType  `json:"employment_type" gorm:"type:varchar(50)"`
	AccessClearance AccessClearance `json:"access_clearance" gorm:"type:varchar(50)"`
	DepartmentID    uint            `json:"department_id" gorm:"index"`
	StartDate       time.Time       `json:"start_date" gorm:"type:date"`
	EndDate         *time.Time      `json:"end_date" gorm:"type:date"`
	Salary          float64         `json:"salary"`
	AccountID       uint            `json:"account_id" gorm:"uniqueIndex;not null"`
}

// Department groups employees
type Department struct {
	ID         uint   `json:"department_id" gorm:"primaryKey"`
	Name       string `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Extension  string `json:"extension" gorm:"type:varchar(20)"`
	Email      string `json:"email" gorm:"type:varchar(255)"`
	StaffCount int    `json:"staff_count" gorm:"not null;default:0"`
}

// RegisterCitizenPayload is the body of a citizen self-registration
type RegisterCitizenPayload struct {
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required,min=8,max=50"`
	Phone         string `json:"phone" binding:"max=20"`
	NationalID    string `json:"national_id" binding:"required,min=5,max=50"`
	FirstName     string `json:"first_name" binding:"required,min=2,max=100"`
	MiddleName    string `json:"middle_name" binding:"max=100"`
	LastName      string `json:"last_name" binding:"required,min=2,max=100"`
	DateOfBirth   string `json:"date_of_birth" binding:"required,datetime=2006-01-02"`
	FatherName    string `json:"father_name" binding:"max=100"`
	MotherName    string `json:"mother_name" binding:"max=100"`
	Address       string `json:"address" binding:"max=255"`
	MaritalStatus string `json:"marital_status" binding:"max=50"`
}

// LoginPayload is the body of a login call
type LoginPayload struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordPayload is the body of a password change
type ChangePasswordPayload struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=50"`
}

// RegisterEmployeePayload promotes an existing citizen to employee
type RegisterEmployeePayload struct {
	Email           string          `json:"email" binding:"required,email"`
	Password        string          `json:"password" binding:"required,min=8,max=50"`
	Phone           string          `json:"phone" binding:"max=20"`
	NationalID      string          `json:"national_id" binding:"required,min=5,max=50"`
	Position        string          `json:"position" binding:"required,min=2,max=100"`
	EmploymentType  EmploymentType  `json:"employment_type" binding:"required,oneof=Full-Time Part-Time Contract Intern"`
	AccessClearance AccessClearance `json:"access_clearance" binding:"required,oneof=Employee Manager Administrator"`
	DepartmentID    uint            `json:"department_id" binding:"required"`
	StartDate       string          `json:"start_date" binding:"required,datetime=2006-01-02"`
	Salary          float64         `json:"salary" binding:"required,gt=0"`
}

// CreateDepartmentPayload is the body of a department creation
type CreateDepartmentPayload struct {
	Name      string `json:"name" binding:"required,min=2,max=100"`
	Extension string `json:"extension" binding:"max=20"`
	Email     string `json:"email" binding:"omitempty,email"`
}

// UpdateDepartmentPayload changes the fields that are set
type UpdateDepartmentPayload struct {
	Name      *string `json:"name" binding:"omitempty,min=2,max=100"`
	Extension *string `json:"extension" binding:"omitempty,max=20"`
	Email     *string `json:"email" binding:"omitempty,email"`
}

// UpdateEmployeePayload changes the fields that are set
type UpdateEmployeePayload struct {
	Position        *string          `json:"position" binding:"omitempty,min=2,max=100"`
	EmploymentType  *EmploymentType  `json:"employment_type" binding:"omitempty,oneof=Full-Time Part-Time Contract Intern"`
	AccessClearance *AccessClearance `json:"access_clearance" binding:"omitempty,oneof=Employee Manager Administrator"`
	DepartmentID    *uint            `json:"department_id"`
	Salary          *float64         `json:"salary" binding:"omitempty,gt=0"`
	EndDate         *string          `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
}

// EmployeeDetail is an employee with its citizen, account and department
// resolved
type EmployeeDetail struct {
	Employee
	FullName       string `json:"full_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	DepartmentName string `json:"department_name"`
	IsActive       bool   `json:"is_active"`
}

// UpdateProfilePayload changes the contact details of the caller
type UpdateProfilePayload struct {
	Phone         *string `json:"phone" binding:"omitempty,max=20"`
	Address       *string `json:"address" binding:"omitempty,max=255"`
	MaritalStatus *string `json:"marital_status" binding:"omitempty,max=50"`
}

// RecentActivity lists the latest requests and notifications of a citizen
type RecentActivity struct {
	Requests      []Request      `json:"recent_requests"`
	Notifications []Notification `json:"recent_notifications"`
}

// Token is returned by registration and login
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	AccountID   uint      `json:"user_id"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
}

// Profile describes the authenticated account
type Profile struct {
	AccountID  uint      `json:"account_id"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	Citizen    *Citizen  `json:"citizen,omitempty"`
	Employee   *Employee `json:"employee,omitempty"`
	Department string    `json:"department_name,omitempty"`
}

// DeactivateAccountPayload confirms an account deactivation
type DeactivateAccountPayload struct {
	Password string `json:"password" binding:"required"`
	Reason   string `json:"reason" binding:"max=500"`
}

// RequestCounts summarizes a citizen's requests by status
type RequestCounts struct {
	Total       int `json:"total"`
	Submitted   int `json:"submitted"`
	UnderReview int `json:"under_review"`
	Approved    int `json:"approved_pending_payment"`
	Completed   int `json:"completed"`
}

// PaymentCounts summarizes a citizen's payments
type PaymentCounts struct {
	Total      int     `json:"total_transactions"`
	Completed  int     `json:"completed_payments"`
	AmountPaid float64 `json:"amount_paid"`
}

// ComplaintCounts summarizes a citizen's complaints
type ComplaintCounts struct {
	Total    int `json:"total"`
	Open     int `json:"open"`
	Resolved int `json:"resolved"`
}

// Dashboard is the overview shown to a citizen
type Dashboard struct {
	Requests            RequestCounts   `json:"requests"`
	Payments            PaymentCounts   `json:"payments"`
	Complaints          ComplaintCounts `json:"complaints"`
	UnreadNotifications int64           `json:"unread_notifications"`
}
