package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"municipality/internal/models"
	"municipality/internal/repository"
)

// SendPaymentReminders notifies the owners of approved requests that still
// await payment. A request gets at most one reminder per day, and none once
// its payment attempts are used up.
func (s *PaymentService) SendPaymentReminders(ctx context.Context) (int, error) {
	approved := models.StatusApproved
	requests, err := s.Store.Requests().List(ctx, models.RequestFilter{Status: &approved})
	if err != nil {
		return 0, storeErr(err, "failed to list approved requests")
	}

	now := s.Clock()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	sent := 0
	for i := range requests {
		request := &requests[i]

		amount := s.fees.Amount(request.RequestType)
		payment, err := s.Store.Payments().GetByRequestID(ctx, request.ID)
		switch {
		case err == nil:
			// exhausted payments can no longer be paid by the citizen
			if payment.Status == models.StatusCompleted || payment.RetryCount >= s.maxAttempts {
				continue
			}
			amount = payment.Amount
		case !errors.Is(err, repository.ErrNotFound):
			s.logger.Warn("Skipping reminder", zap.Uint("request_id", request.ID), zap.Error(err))
			continue
		}

		exists, err := s.Store.Notifications().ExistsSince(ctx, request.CitizenID, request.ID, models.NotificationDeadlineReminder, startOfDay)
		if err != nil {
			s.logger.Warn("Skipping reminder", zap.Uint("request_id", request.ID), zap.Error(err))
			continue
		}
		if exists {
			continue
		}

		s.notifier.Notify(ctx, paymentDue(request, amount))
		s.Metrics.ReminderSent()
		sent++
	}

	s.logger.Info("Payment reminders sent", zap.Int("count", sent), zap.Int("approved", len(requests)))
	return sent, nil
}
