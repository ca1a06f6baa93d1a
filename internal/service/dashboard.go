package service

import (
	"context"

	"municipality/internal/models"
)

// Dashboard summarizes the requests, payments, complaints and unread
// notifications of a citizen
func (s *IdentityService) Dashboard(ctx context.Context, citizenID uint) (*models.Dashboard, error) {
	if _, err := s.Store.Citizens().GetByID(ctx, citizenID); err != nil {
		return nil, lookupErr(err, "Citizen profile not found")
	}

	requests, err := s.Store.Requests().ListByCitizen(ctx, citizenID)
	if err != nil {
		return nil, storeErr(err, "failed to list requests")
	}
	payments, err := s.Store.Payments().ListByCitizen(ctx, citizenID)
	if err != nil {
		return nil, storeErr(err, "failed to list payments")
	}
	complaints, err := s.Store.Complaints().ListByCitizen(ctx, citizenID)
	if err != nil {
		return nil, storeErr(err, "failed to list complaints")
	}
	stats, err := s.Store.Notifications().Stats(ctx, citizenID)
	if err != nil {
		return nil, storeErr(err, "failed to count notifications")
	}

	dashboard := &models.Dashboard{UnreadNotifications: stats.Unread}

	dashboard.Requests.Total = len(requests)
	for _, request := range requests {
		switch request.Status {
		case models.StatusSubmitted:
			dashboard.Requests.Submitted++
		case models.StatusUnderReview:
			dashboard.Requests.UnderReview++
		case models.StatusApproved:
			dashboard.Requests.Approved++
		case models.StatusCompleted:
			dashboard.Requests.Completed++
		}
	}

	dashboard.Payments.Total = len(payments)
	for _, payment := range payments {
		if payment.Status == models.StatusCompleted {
			dashboard.Payments.Completed++
			dashboard.Payments.AmountPaid += payment.Amount
		}
	}

	dashboard.Complaints.Total = len(complaints)
	for _, complaint := range complaints {
		switch complaint.Status {
		case models.StatusSubmitted, models.StatusUnderReview, models.StatusInProgress:
			dashboard.Complaints.Open++
		case models.StatusResolved:
			dashboard.Complaints.Resolved++
		}
	}

	return dashboard, nil
}
