package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"municipality/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique key
	ErrDuplicate = errors.New("duplicate record")
)

// Store gives access to every repository and to units of work spanning them
type Store interface {
	Accounts() AccountRepository
	Citizens() CitizenRepository
	Employees() EmployeeRepository
	Departments() DepartmentRepository
	Requests() RequestRepository
	Payments() PaymentRepository
	Complaints() ComplaintRepository
	Notifications() NotificationRepository
	Attachments() AttachmentRepository
	AuditLogs() AuditRepository
	Announcements() AnnouncementRepository
	Feedback() FeedbackRepository

	// WithinTx runs fn in a single unit of work. Any error returned by fn
	// rolls back every write made through tx.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}

// AccountRepository persists login accounts
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id uint) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	Update(ctx context.Context, account *models.Account) error
}

// CitizenRepository persists citizen profiles
type CitizenRepository interface {
	Create(ctx context.Context, citizen *models.Citizen) error
	GetByID(ctx context.Context, id uint) (*models.Citizen, error)
	GetByNationalID(ctx context.Context, nationalID string) (*models.Citizen, error)
	GetByAccountID(ctx context.Context, accountID uint) (*models.Citizen, error)
	Update(ctx context.Context, citizen *models.Citizen) error
	// ListActiveIDs returns the ids of citizens with an active account
	ListActiveIDs(ctx context.Context) ([]uint, error)
}

// EmployeeRepository persists employee records
type EmployeeRepository interface {
	Create(ctx context.Context, employee *models.Employee) error
	GetByID(ctx context.Context, id uint) (*models.Employee, error)
	GetByAccountID(ctx context.Context, accountID uint) (*models.Employee, error)
	GetByCitizenID(ctx context.Context, citizenID uint) (*models.Employee, error)
	List(ctx context.Context, skip, limit int) ([]models.Employee, error)
	Update(ctx context.Context, employee *models.Employee) error
}

// DepartmentRepository persists departments
type DepartmentRepository interface {
	Create(ctx context.Context, department *models.Department) error
	GetByID(ctx context.Context, id uint) (*models.Department, error)
	GetByName(ctx context.Context, name string) (*models.Department, error)
	List(ctx context.Context) ([]models.Department, error)
	Update(ctx context.Context, department *models.Department) error
	Delete(ctx context.Context, id uint) error
}

// RequestRepository persists citizen requests
type RequestRepository interface {
	Create(ctx context.Context, request *models.Request) error
	GetByID(ctx context.Context, id uint) (*models.Request, error)
	ListByCitizen(ctx context.Context, citizenID uint) ([]models.Request, error)
	// List returns requests newest first; a zero Limit means no limit.
	List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error)
	Update(ctx context.Context, request *models.Request) error
	Delete(ctx context.Context, id uint) error
}

// PaymentRepository persists request payments
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id uint) (*models.Payment, error)
	GetByRequestID(ctx context.Context, requestID uint) (*models.Payment, error)
	ListByCitizen(ctx context.Context, citizenID uint) ([]models.Payment, error)
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error)
	Update(ctx context.Context, payment *models.Payment) error
}

// ComplaintRepository persists complaints and their responses
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *models.Complaint) error
	GetByID(ctx context.Context, id uint) (*models.Complaint, error)
	ListByCitizen(ctx context.Context, citizenID uint) ([]models.Complaint, error)
	List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, error)
	Update(ctx context.Context, complaint *models.Complaint) error
	// Delete removes the complaint together with its responses.
	Delete(ctx context.Context, id uint) error
	AddResponse(ctx context.Context, response *models.ComplaintResponse) error
	ListResponses(ctx context.Context, complaintID uint) ([]models.ComplaintResponse, error)
}

// NotificationRepository persists citizen notifications
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	GetForCitizen(ctx context.Context, id, citizenID uint) (*models.Notification, error)
	ListByCitizen(ctx context.Context, citizenID uint, unreadOnly bool) ([]models.Notification, error)
	Update(ctx context.Context, notification *models.Notification) error
	MarkAllRead(ctx context.Context, citizenID uint) (int64, error)
	Delete(ctx context.Context, id uint) error
	Stats(ctx context.Context, citizenID uint) (*models.NotificationStats, error)
	// ExistsSince reports whether a notification of the given type about
	// requestID was created for citizenID at or after since.
	ExistsSince(ctx context.Context, citizenID, requestID uint, notificationType models.NotificationType, since time.Time) (bool, error)
}

// AttachmentRepository persists attachment metadata
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *models.Attachment) error
	GetByID(ctx context.Context, id uint) (*models.Attachment, error)
	ListByRequest(ctx context.Context, requestID uint) ([]models.Attachment, error)
	ListByComplaint(ctx context.Context, complaintID uint) ([]models.Attachment, error)
	Delete(ctx context.Context, id uint) error
	DeleteByRequest(ctx context.Context, requestID uint) error
	DeleteByComplaint(ctx context.Context, complaintID uint) error
}

// AuditRepository persists audit entries
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// AnnouncementRepository persists public announcements
type AnnouncementRepository interface {
	Create(ctx context.Context, announcement *models.Announcement) error
	GetByID(ctx context.Context, id uint) (*models.Announcement, error)
	Update(ctx context.Context, announcement *models.Announcement) error
	// ListActive returns active announcements matching the filter
	ListActive(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, error)
	CountActiveByCategory(ctx context.Context) (map[models.AnnouncementCategory]int64, error)
}

// FeedbackRepository persists citizen feedback
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *models.Feedback) error
	ListByCitizen(ctx context.Context, citizenID uint) ([]models.Feedback, error)
	// List returns feedback newest first; a zero limit means no limit.
	List(ctx context.Context, skip, limit int) ([]models.Feedback, error)
	// RatingCounts returns the number of feedback entries per rating
	RatingCounts(ctx context.Context) (map[int]int64, error)
}

// GormStore implements Store on top of gorm
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store bound to db
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Accounts() AccountRepository       { return &accountRepository{db: s.db} }
func (s *GormStore) Citizens() CitizenRepository       { return &citizenRepository{db: s.db} }
func (s *GormStore) Employees() EmployeeRepository     { return &employeeRepository{db: s.db} }
func (s *GormStore) Departments() DepartmentRepository { return &departmentRepository{db: s.db} }
func (s *GormStore) Requests() RequestRepository       { return &requestRepository{db: s.db} }
func (s *GormStore) Payments() PaymentRepository       { return &paymentRepository{db: s.db} }
func (s *GormStore) Complaints() ComplaintRepository   { return &complaintRepository{db: s.db} }
func (s *GormStore) Attachments() AttachmentRepository { return &attachmentRepository{db: s.db} }
func (s *GormStore) AuditLogs() AuditRepository        { return &auditRepository{db: s.db} }
func (s *GormStore) Feedback() FeedbackRepository      { return &feedbackRepository{db: s.db} }

func (s *GormStore) Announcements() AnnouncementRepository {
	return &announcementRepository{db: s.db}
}

func (s *GormStore) Notifications() NotificationRepository {
	return &notificationRepository{db: s.db}
}

// WithinTx runs fn inside a database transaction
func (s *GormStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// Ping checks the database connection
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get database handle")
	}
	return sqlDB.PingContext(ctx)
}

// notFound translates gorm's missing-row error
func notFound(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return errors.Wrap(err, action)
}

// duplicate translates unique-key violations reported by the dialector
func duplicate(err error, action string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return errors.Wrap(err, action)
}

// paginate applies skip/limit, treating a zero limit as unbounded
func paginate(query *gorm.DB, skip, limit int) *gorm.DB {
	if skip > 0 {
		query = query.Offset(skip)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	return query
}
