// Package repotest provides an in-memory sqlite Store for tests, with
// injectable write failures.
package repotest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"municipality/internal/database"
	"municipality/internal/models"
	"municipality/internal/repository"
)

// Store is a GormStore on a private in-memory sqlite database
type Store struct {
	repository.Store

	// DB is the underlying connection, for assertions on raw tables
	DB *gorm.DB

	// FailOn makes the named write (e.g. "requests.update") return the
	// given error instead of reaching the database.
	FailOn map[string]error
}

// New opens a migrated in-memory database that is closed when t ends
func New(t testing.TB) *Store {
	t.Helper()

	db, err := database.NewSQLite(":memory:", false, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.AutoMigrate())

	return &Store{
		Store:  repository.NewGormStore(db.DB),
		DB:     db.DB,
		FailOn: make(map[string]error),
	}
}

func (s *Store) fault(op string) error {
	return s.FailOn[op]
}

func (s *Store) Requests() repository.RequestRepository {
	return requests{RequestRepository: s.Store.Requests(), store: s}
}

func (s *Store) Payments() repository.PaymentRepository {
	return payments{PaymentRepository: s.Store.Payments(), store: s}
}

func (s *Store) Complaints() repository.ComplaintRepository {
	return complaints{ComplaintRepository: s.Store.Complaints(), store: s}
}

func (s *Store) Notifications() repository.NotificationRepository {
	return notifications{NotificationRepository: s.Store.Notifications(), store: s}
}

// WithinTx runs fn in a database transaction, keeping the injected failures
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.WithinTx(ctx, func(tx repository.Store) error {
		return fn(&Store{Store: tx, DB: s.DB, FailOn: s.FailOn})
	})
}

// AuditEntries returns every audit entry, oldest first
func (s *Store) AuditEntries(t testing.TB) []models.AuditLog {
	t.Helper()
	var entries []models.AuditLog
	require.NoError(t, s.DB.Order("id").Find(&entries).Error)
	return entries
}

type requests struct {
	repository.RequestRepository
	store *Store
}

func (r requests) Create(ctx context.Context, request *models.Request) error {
	if err := r.store.fault("requests.create"); err != nil {
		return err
	}
	return r.RequestRepository.Create(ctx, request)
}

func (r requests) Update(ctx context.Context, request *models.Request) error {
	if err := r.store.fault("requests.update"); err != nil {
		return err
	}
	return r.RequestRepository.Update(ctx, request)
}

type payments struct {
	repository.PaymentRepository
	store *Store
}

func (r payments) Create(ctx context.Context, payment *models.Payment) error {
	if err := r.store.fault("payments.create"); err != nil {
		return err
	}
	return r.PaymentRepository.Create(ctx, payment)
}

func (r payments) Update(ctx context.Context, payment *models.Payment) error {
	if err := r.store.fault("payments.update"); err != nil {
		return err
	}
	return r.PaymentRepository.Update(ctx, payment)
}

type complaints struct {
	repository.ComplaintRepository
	store *Store
}

func (r complaints) Update(ctx context.Context, complaint *models.Complaint) error {
	if err := r.store.fault("complaints.update"); err != nil {
		return err
	}
	return r.ComplaintRepository.Update(ctx, complaint)
}

type notifications struct {
	repository.NotificationRepository
	store *Store
}

func (r notifications) Create(ctx context.Context, notification *models.Notification) error {
	if err := r.store.fault("notifications.create"); err != nil {
		return err
	}
	return r.NotificationRepository.Create(ctx, notification)
}
