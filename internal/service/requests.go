package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"municipality/internal/apperr"
	"municipality/internal/events"
	"municipality/internal/models"
	"municipality/internal/repository"
	"municipality/internal/storage"
)

// RequestService manages the lifecycle of citizen requests
type RequestService struct {
	Deps
	notifier Notifier
	files    storage.Service
	logger   *zap.Logger
}

// NewRequestService creates a request service
func NewRequestService(deps Deps, notifier Notifier, files storage.Service) *RequestService {
	deps = deps.withDefaults()
	return &RequestService{
		Deps:     deps,
		notifier: notifier,
		files:    files,
		logger:   deps.Logger.Named("request_service"),
	}
}

// Create submits a new request for citizenID
func (s *RequestService) Create(ctx context.Context, citizenID uint, payload models.CreateRequestPayload) (*models.Request, error) {
	if !payload.RequestType.Valid() {
		return nil, apperr.Validation("Invalid request type: %s", payload.RequestType)
	}
	if _, err := s.Store.Citizens().GetByID(ctx, citizenID); err != nil {
		return nil, lookupErr(err, "Citizen not found")
	}

	request := &models.Request{
		CitizenID:   citizenID,
		RequestType: payload.RequestType,
		RequestDate: s.Clock(),
		Description: strings.TrimSpace(payload.Description),
		Status:      models.StatusSubmitted,
	}
	if err := s.Store.Requests().Create(ctx, request); err != nil {
		return nil, storeErr(err, "failed to create request")
	}

	s.logger.Info("Request created",
		zap.Uint("request_id", request.ID),
		zap.Uint("citizen_id", citizenID),
		zap.String("request_type", string(request.RequestType)))
	s.Metrics.Transition("request", string(request.Status))
	s.publish(ctx, events.RequestCreated, requestKey(request.ID), request)
	return request, nil
}

// ListForCitizen returns the requests of citizenID, newest first
func (s *RequestService) ListForCitizen(ctx context.Context, citizenID uint) ([]models.Request, error) {
	requests, err := s.Store.Requests().ListByCitizen(ctx, citizenID)
	if err != nil {
		return nil, storeErr(err, "failed to list requests")
	}
	return requests, nil
}

// Get returns a request with the names of its citizen and assignee
func (s *RequestService) Get(ctx context.Context, id uint) (*models.RequestDetail, error) {
	request, err := s.Store.Requests().GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Request not found")
	}
	return &models.RequestDetail{
		Request:              *request,
		CitizenName:          citizenName(ctx, s.Store, request.CitizenID),
		AssignedEmployeeName: employeeName(ctx, s.Store, request.AssignedEmployeeID),
	}, nil
}

// List returns requests for employees. An unknown status filter is ignored.
func (s *RequestService) List(ctx context.Context, status string, skip, limit int) ([]models.Request, error) {
	skip, limit = clampPage(skip, limit)
	filter := models.RequestFilter{Skip: skip, Limit: limit}
	if status != "" {
		if parsed, ok := models.RequestStatuses.Parse(status); ok {
			filter.Status = &parsed
		} else {
			s.logger.Warn("Ignoring unknown request status filter", zap.String("status", status))
		}
	}

	requests, err := s.Store.Requests().List(ctx, filter)
	if err != nil {
		return nil, storeErr(err, "failed to list requests")
	}
	return requests, nil
}

// Assign gives the request to an employee and moves it to UNDER_REVIEW,
// whatever its current status
func (s *RequestService) Assign(ctx context.Context, id, employeeID uint) (*models.Request, error) {
	var request *models.Request
	err := s.Store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		request, err = tx.Requests().GetByID(ctx, id)
		if err != nil {
			return lookupErr(err, "Request not found")
		}
		if _, err := tx.Employees().GetByID(ctx, employeeID); err != nil {
			return lookupErr(err, "Employee not found")
		}

		request.AssignedEmployeeID = uintPtr(employeeID)
		request.Status = models.StatusUnderReview
		return storeErr(tx.Requests().Update(ctx, request), "failed to assign request")
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Request assigned", zap.Uint("request_id", id), zap.Uint("employee_id", employeeID))
	s.statusChanged(ctx, request)
	return request, nil
}

// UpdateStatus records an employee decision on a request. PAID is reserved
// for completed payments and REJECTED requires a reason.
func (s *RequestService) UpdateStatus(ctx context.Context, id uint, status models.Status, reason string) (*models.Request, error) {
	if !models.RequestStatuses.Contains(status) {
		return nil, apperr.Validation("Invalid status for request: %s", status)
	}
	if status == models.StatusPaid {
		return nil, apperr.InvalidState("Request status PAID can only be set by a completed payment")
	}
	reason = strings.TrimSpace(reason)
	if status == models.StatusRejected && reason == "" {
		return nil, apperr.Validation("Rejection reason is required when rejecting a request")
	}

	var request *models.Request
	err := s.Store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		request, err = tx.Requests().GetByID(ctx, id)
		if err != nil {
			return lookupErr(err, "Request not found")
		}

		request.Status = status
		if status == models.StatusRejected {
			request.RejectionReason = &reason
		}
		return storeErr(tx.Requests().Update(ctx, request), "failed to update request status")
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Request status updated", zap.Uint("request_id", id), zap.String("status", string(status)))
	s.statusChanged(ctx, request)
	return request, nil
}

// Delete removes a SUBMITTED request owned by citizenID
func (s *RequestService) Delete(ctx context.Context, id, citizenID uint) error {
	var attachments []models.Attachment
	err := s.Store.WithinTx(ctx, func(tx repository.Store) error {
		request, err := tx.Requests().GetByID(ctx, id)
		if err != nil {
			return lookupErr(err, "Request not found")
		}
		if request.CitizenID != citizenID {
			return apperr.NotFound("Request not found")
		}
		if request.Status != models.StatusSubmitted {
			return apperr.InvalidState("Only submitted requests can be deleted")
		}

		attachments, err = tx.Attachments().ListByRequest(ctx, id)
		if err != nil {
			return storeErr(err, "failed to list attachments")
		}
		if err := tx.Attachments().DeleteByRequest(ctx, id); err != nil {
			return storeErr(err, "failed to delete attachments")
		}
		return storeErr(tx.Requests().Delete(ctx, id), "failed to delete request")
	})
	if err != nil {
		return err
	}
	removeStoredFiles(ctx, s.files, s.logger, attachments)

	s.logger.Info("Request deleted", zap.Uint("request_id", id), zap.Uint("citizen_id", citizenID))
	s.publish(ctx, events.RequestDeleted, requestKey(id), map[string]uint{"request_id": id, "citizen_id": citizenID})
	return nil
}

func (s *RequestService) statusChanged(ctx context.Context, request *models.Request) {
	s.Metrics.Transition("request", string(request.Status))
	s.notifier.Notify(ctx, requestUpdate(request))
	s.publish(ctx, events.RequestStatusChanged, requestKey(request.ID), request)
}

func requestKey(id uint) string {
	return fmt.Sprintf("request-%d", id)
}
