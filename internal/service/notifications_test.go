package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"municipality/internal/apperr"
	"municipality/internal/events"
	"municipality/internal/models"
	"municipality/internal/realtime"
)

type recordingPusher struct {
	mu     sync.Mutex
	pushed map[uint]int
	err    error
}

func (p *recordingPusher) PushToCitizen(ctx context.Context, citizenID uint, message *realtime.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pushed == nil {
		p.pushed = make(map[uint]int)
	}
	p.pushed[citizenID]++
	return p.err
}

func TestNotificationService_NotifyFansOut(t *testing.T) {
	f := newFixture(t)
	citizen := f.citizen(t, "NID-1", "Ana", "Silva")
	pusher := &recordingPusher{err: errors.New("no connections")}
	svc := NewNotificationService(Deps{Store: f.store, Publisher: f.events, Logger: zap.NewNop()}, f.cache, pusher, time.Minute)

	svc.Notify(f.ctx, models.Notification{
		CitizenID:        citizen.ID,
		Title:            "Hello",
		Message:          "World",
		NotificationType: models.NotificationGeneral,
	})

	assert.Equal(t, 1, pusher.pushed[citizen.ID], "push failures are logged only")
	assert.Contains(t, f.events.Types(), events.NotificationCreated)
	assert.Len(t, f.notificationsOf(t, citizen.ID), 1)
}

func TestNotificationService_NotifyIsBestEffort(t *testing.T) {
	f := newFixture(t)
	citizen := f.citizen(t, "NID-1", "Ana", "Silva")
	employee := f.employee(t, "NID-7", "Bruno", "Costa")
	request := f.submit(t, citizen.ID, models.RequestTypeOther)

	f.store.FailOn["notifications.create"] = errors.New("table locked")

	assigned, err := f.requests.Assign(f.ctx, request.ID, employee.ID)
	require.NoError(t, err, "lifecycle operations never fail because of notifications")
	assert.Equal(t, models.StatusUnderReview, assigned.Status)

	stored, err := f.store.Requests().GetByID(f.ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, stored.Status)
}

func TestNotificationService_CitizenOperations(t *testing.T) {
	f := newFixture(t)
	citizen := f.citizen(t, "NID-1", "Ana", "Silva")
	other := f.citizen(t, "NID-2", "Rui", "Lopes")

	for i := 0; i < 3; i++ {
		_, err := f.notifications.Send(f.ctx, models.SendNotificationPayload{
			CitizenID:        citizen.ID,
			Title:            "Water outage",
			Message:          "Scheduled maintenance tonight",
			NotificationType: models.NotificationAnnouncement,
		})
		require.NoError(t, err)
		f.advance(time.Minute)
	}

	stats, err := f.notifications.Stats(f.ctx, citizen.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationStats{Total: 3, Unread: 3, Read: 0}, *stats)

	list, err := f.notifications.List(f.ctx, citizen.ID, false)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.True(t, list[0].CreatedAt.After(list[2].CreatedAt), "newest first")

	t.Run("MarkRead", func(t *testing.T) {
		read, err := f.notifications.MarkRead(f.ctx, list[0].ID, citizen.ID)
		require.NoError(t, err)
		assert.True(t, read.IsRead)

		stats, err := f.notifications.Stats(f.ctx, citizen.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.Unread, "cache invalidated on read")

		unread, err := f.notifications.List(f.ctx, citizen.ID, true)
		require.NoError(t, err)
		assert.Len(t, unread, 2)
	})

	t.Run("OtherCitizenCannotTouch", func(t *testing.T) {
		_, err := f.notifications.MarkRead(f.ctx, list[1].ID, other.ID)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
		err = f.notifications.Delete(f.ctx, list[1].ID, other.ID)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	t.Run("MarkAllRead", func(t *testing.T) {
		count, err := f.notifications.MarkAllRead(f.ctx, citizen.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		stats, err := f.notifications.Stats(f.ctx, citizen.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), stats.Unread)
		assert.Equal(t, int64(3), stats.Read)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, f.notifications.Delete(f.ctx, list[2].ID, citizen.ID))
		stats, err := f.notifications.Stats(f.ctx, citizen.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.Total)
	})
}

func TestNotificationService_SendToUnknownCitizen(t *testing.T) {
	f := newFixture(t)
	_, err := f.notifications.Send(f.ctx, models.SendNotificationPayload{
		CitizenID:        999,
		Title:            "Hello",
		Message:          "Nobody home",
		NotificationType: models.NotificationGeneral,
	})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestPaymentService_SendPaymentReminders(t *testing.T) {
	f := newFixture(t)
	citizen := f.citizen(t, "NID-1", "Ana", "Silva")
	due := f.approved(t, citizen.ID, models.RequestTypeTaxClearance)
	f.submit(t, citizen.ID, models.RequestTypeOther)

	sent, err := f.payments.SendPaymentReminders(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	f.advance(2 * time.Hour)
	sent, err = f.payments.SendPaymentReminders(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, sent, "one reminder per request per day")

	f.advance(24 * time.Hour)
	sent, err = f.payments.SendPaymentReminders(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	var reminders []models.Notification
	for _, n := range f.notificationsOf(t, citizen.ID) {
		if n.NotificationType == models.NotificationDeadlineReminder {
			reminders = append(reminders, n)
		}
	}
	require.Len(t, reminders, 2)
	require.NotNil(t, reminders[0].RequestID)
	assert.Equal(t, due.ID, *reminders[0].RequestID)
	assert.Contains(t, reminders[0].Message, "$100")
}

func TestPaymentService_RemindersFollowPaymentState(t *testing.T) {
	f := newFixture(t)
	citizen := f.citizen(t, "NID-1", "Ana", "Silva")
	exhausted := f.approved(t, citizen.ID, models.RequestTypeLandRegistry)
	retrying := f.approved(t, citizen.ID, models.RequestTypeTaxClearance)

	f.gateway.Decline().Decline().Decline().Decline()
	for i := 0; i < 3; i++ {
		_, err := f.payments.Pay(f.ctx, citizen.ID, exhausted.ID, models.PaymentMethodCash)
		require.NoError(t, err)
	}
	result, err := f.payments.Pay(f.ctx, citizen.ID, retrying.ID, models.PaymentMethodCash)
	require.NoError(t, err)

	payment := result.Payment
	payment.Amount = 75
	require.NoError(t, f.store.Payments().Update(f.ctx, payment))

	sent, err := f.payments.SendPaymentReminders(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	var reminders []models.Notification
	for _, n := range f.notificationsOf(t, citizen.ID) {
		if n.NotificationType == models.NotificationDeadlineReminder {
			reminders = append(reminders, n)
		}
	}
	require.Len(t, reminders, 1)
	require.NotNil(t, reminders[0].RequestID)
	assert.Equal(t, retrying.ID, *reminders[0].RequestID)
	assert.Contains(t, reminders[0].Message, "$75")
}
