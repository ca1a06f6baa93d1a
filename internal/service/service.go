// Package service implements the citizen-facing lifecycles: requests,
// payments, complaints, notifications, identity and attachments.
package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"municipality/internal/apperr"
	"municipality/internal/events"
	"municipality/internal/models"
	"municipality/internal/repository"
)

// Metrics receives lifecycle observations
type Metrics interface {
	Transition(entity, status string)
	PaymentAttempt(outcome string)
	NotificationDispatched(notificationType, result string)
	ReminderSent()
}

type nopMetrics struct{}

func (nopMetrics) Transition(string, string)             {}
func (nopMetrics) PaymentAttempt(string)                 {}
func (nopMetrics) NotificationDispatched(string, string) {}
func (nopMetrics) ReminderSent()                         {}

// Notifier records a notification for a citizen. Delivery is best-effort:
// implementations log failures instead of returning them.
type Notifier interface {
	Notify(ctx context.Context, notification models.Notification)
}

// Deps bundles the collaborators shared by the lifecycle services
type Deps struct {
	Store     repository.Store
	Publisher events.Publisher
	Metrics   Metrics
	Logger    *zap.Logger
	Clock     func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Publisher == nil {
		d.Publisher = events.Nop{}
	}
	if d.Metrics == nil {
		d.Metrics = nopMetrics{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = func() time.Time { return time.Now().UTC() }
	}
	return d
}

// publish emits an event, logging failures
func (d Deps) publish(ctx context.Context, eventType, key string, data interface{}) {
	if err := d.Publisher.Publish(ctx, events.New(eventType, key, data)); err != nil {
		d.Logger.Warn("Failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}

// lookupErr classifies a repository lookup failure
func lookupErr(err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(message)
	}
	return apperr.Internal(err, "failed to load "+message)
}

// storeErr classifies a repository write failure; nil stays nil
func storeErr(err error, action string) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal(errors.Wrap(err, action), "Internal server error")
}

// citizenName returns the full name of a citizen, or "" when unknown
func citizenName(ctx context.Context, store repository.Store, citizenID uint) string {
	citizen, err := store.Citizens().GetByID(ctx, citizenID)
	if err != nil {
		return ""
	}
	return citizen.FullName()
}

// employeeName resolves an employee to the full name of their citizen record
func employeeName(ctx context.Context, store repository.Store, employeeID *uint) *string {
	if employeeID == nil {
		return nil
	}
	employee, err := store.Employees().GetByID(ctx, *employeeID)
	if err != nil {
		return nil
	}
	name := citizenName(ctx, store, employee.CitizenID)
	if name == "" {
		return nil
	}
	return &name
}

// clampPage normalizes skip/limit to skip >= 0 and 1 <= limit <= 100
func clampPage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return skip, limit
}

func uintPtr(v uint) *uint { return &v }
