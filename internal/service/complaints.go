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

// ComplaintService manages the lifecycle of citizen complaints
type ComplaintService struct {
	Deps
	notifier Notifier
	files    storage.Service
	logger   *zap.Logger
}

// NewComplaintService creates a complaint service
func NewComplaintService(deps Deps, notifier Notifier, files storage.Service) *ComplaintService {
	deps = deps.withDefaults()
	return &ComplaintService{
		Deps:     deps,
		notifier: notifier,
		files:    files,
		logger:   deps.Logger.Named("complaint_service"),
	}
}

// Create files a new complaint for citizenID
func (s *ComplaintService) Create(ctx context.Context, citizenID uint, payload models.CreateComplaintPayload) (*models.Complaint, error) {
	if !payload.Category.Valid() {
		return nil, apperr.Validation("Invalid complaint category: %s", payload.Category)
	}
	if _, err := s.Store.Citizens().GetByID(ctx, citizenID); err != nil {
		return nil, lookupErr(err, "Citizen not found")
	}

	complaint := &models.Complaint{
		CitizenID:      citizenID,
		Category:       payload.Category,
		Title:          strings.TrimSpace(payload.Title),
		Description:    strings.TrimSpace(payload.Description),
		Location:       strings.TrimSpace(payload.Location),
		Status:         models.StatusSubmitted,
		SubmissionDate: s.Clock(),
	}
	if err := s.Store.Complaints().Create(ctx, complaint); err != nil {
		return nil, storeErr(err, "failed to create complaint")
	}

	s.logger.Info("Complaint created",
		zap.Uint("complaint_id", complaint.ID),
		zap.Uint("citizen_id", citizenID),
		zap.String("category", string(complaint.Category)))
	s.Metrics.Transition("complaint", string(complaint.Status))
	s.publish(ctx, events.ComplaintCreated, complaintKey(complaint.ID), complaint)
	return complaint, nil
}

// ListForCitizen returns the complaints of citizenID, newest first
func (s *ComplaintService) ListForCitizen(ctx context.Context, citizenID uint) ([]models.Complaint, error) {
	complaints, err := s.Store.Complaints().ListByCitizen(ctx, citizenID)
	if err != nil {
		return nil, storeErr(err, "failed to list complaints")
	}
	return complaints, nil
}

// Get returns a complaint with names and its responses, oldest first
func (s *ComplaintService) Get(ctx context.Context, id uint) (*models.ComplaintDetail, error) {
	complaint, err := s.Store.Complaints().GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Complaint not found")
	}

	responses, err := s.Store.Complaints().ListResponses(ctx, id)
	if err != nil {
		return nil, storeErr(err, "failed to list complaint responses")
	}

	details := make([]models.ResponseDetail, 0, len(responses))
	for _, response := range responses {
		name := ""
		if n := employeeName(ctx, s.Store, uintPtr(response.EmployeeID)); n != nil {
			name = *n
		}
		details = append(details, models.ResponseDetail{
			ID:           response.ID,
			EmployeeName: name,
			Message:      response.Message,
			ResponseDate: response.ResponseDate,
		})
	}

	return &models.ComplaintDetail{
		Complaint:            *complaint,
		CitizenName:          citizenName(ctx, s.Store, complaint.CitizenID),
		AssignedEmployeeName: employeeName(ctx, s.Store, complaint.AssignedEmployeeID),
		Responses:            details,
	}, nil
}

// List returns complaints for employees, optionally filtered by status and
// a category fragment. An unknown status filter is ignored.
func (s *ComplaintService) List(ctx context.Context, status, category string, skip, limit int) ([]models.Complaint, error) {
	skip, limit = clampPage(skip, limit)
	filter := models.ComplaintFilter{Category: strings.TrimSpace(category), Skip: skip, Limit: limit}
	if status != "" {
		if parsed, ok := models.ComplaintStatuses.Parse(status); ok {
			filter.Status = &parsed
		} else {
			s.logger.Warn("Ignoring unknown complaint status filter", zap.String("status", status))
		}
	}

	complaints, err := s.Store.Complaints().List(ctx, filter)
	if err != nil {
		return nil, storeErr(err, "failed to list complaints")
	}
	return complaints, nil
}

// Assign gives the complaint to an employee and moves it to UNDER_REVIEW
func (s *ComplaintService) Assign(ctx context.Context, id, employeeID uint) (*models.Complaint, error) {
	var complaint *models.Complaint
	err := s.Store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		complaint, err = tx.Complaints().GetByID(ctx, id)
		if err != nil {
			return lookupErr(err, "Complaint not found")
		}
		if _, err := tx.Employees().GetByID(ctx, employeeID); err != nil {
			return lookupErr(err, "Employee not found")
		}

		complaint.AssignedEmployeeID = uintPtr(employeeID)
		complaint.Status = models.StatusUnderReview
		return storeErr(tx.Complaints().Update(ctx, complaint), "failed to assign complaint")
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Complaint assigned", zap.Uint("complaint_id", id), zap.Uint("employee_id", employeeID))
	s.statusChanged(ctx, complaint)
	return complaint, nil
}

// Update applies an employee's changes. Entering RESOLVED stamps the
// resolution date.
func (s *ComplaintService) Update(ctx context.Context, id uint, payload models.UpdateComplaintPayload) (*models.Complaint, error) {
	if payload.Status != nil && !models.ComplaintStatuses.Contains(*payload.Status) {
		return nil, apperr.Validation("Invalid status for complaint: %s", *payload.Status)
	}

	var (
		complaint *models.Complaint
		changed   bool
	)
	err := s.Store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		complaint, err = tx.Complaints().GetByID(ctx, id)
		if err != nil {
			return lookupErr(err, "Complaint not found")
		}

		if payload.AssignedEmployeeID != nil {
			if _, err := tx.Employees().GetByID(ctx, *payload.AssignedEmployeeID); err != nil {
				return lookupErr(err, "Employee not found")
			}
			complaint.AssignedEmployeeID = uintPtr(*payload.AssignedEmployeeID)
		}
		if payload.ResolutionNotes != nil {
			notes := strings.TrimSpace(*payload.ResolutionNotes)
			complaint.ResolutionNotes = &notes
		}
		if payload.Status != nil && *payload.Status != complaint.Status {
			changed = true
			complaint.Status = *payload.Status
			if complaint.Status == models.StatusResolved {
				resolved := s.Clock()
				complaint.ResolvedDate = &resolved
			}
		}
		return storeErr(tx.Complaints().Update(ctx, complaint), "failed to update complaint")
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Complaint updated", zap.Uint("complaint_id", id), zap.String("status", string(complaint.Status)))
	if changed {
		s.statusChanged(ctx, complaint)
	}
	return complaint, nil
}

// Respond appends an employee response. The complaint status is unchanged.
func (s *ComplaintService) Respond(ctx context.Context, id, employeeID uint, message string) (*models.ComplaintResponse, error) {
	complaint, err := s.Store.Complaints().GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Complaint not found")
	}
	if _, err := s.Store.Employees().GetByID(ctx, employeeID); err != nil {
		return nil, lookupErr(err, "Employee not found")
	}

	response := &models.ComplaintResponse{
		ComplaintID:  id,
		EmployeeID:   employeeID,
		Message:      strings.TrimSpace(message),
		ResponseDate: s.Clock(),
	}
	if err := s.Store.Complaints().AddResponse(ctx, response); err != nil {
		return nil, storeErr(err, "failed to add complaint response")
	}

	s.logger.Info("Complaint response added",
		zap.Uint("complaint_id", id),
		zap.Uint("response_id", response.ID),
		zap.Uint("employee_id", employeeID))
	s.notifier.Notify(ctx, complaintResponse(complaint))
	s.publish(ctx, events.ComplaintResponded, complaintKey(id), response)
	return response, nil
}

// Delete removes a SUBMITTED complaint owned by citizenID together with its
// responses
func (s *ComplaintService) Delete(ctx context.Context, id, citizenID uint) error {
	var attachments []models.Attachment
	err := s.Store.WithinTx(ctx, func(tx repository.Store) error {
		complaint, err := tx.Complaints().GetByID(ctx, id)
		if err != nil {
			return lookupErr(err, "Complaint not found")
		}
		if complaint.CitizenID != citizenID {
			return apperr.NotFound("Complaint not found")
		}
		if complaint.Status != models.StatusSubmitted {
			return apperr.InvalidState("Only submitted complaints can be deleted")
		}

		attachments, err = tx.Attachments().ListByComplaint(ctx, id)
		if err != nil {
			return storeErr(err, "failed to list attachments")
		}
		if err := tx.Attachments().DeleteByComplaint(ctx, id); err != nil {
			return storeErr(err, "failed to delete attachments")
		}
		return storeErr(tx.Complaints().Delete(ctx, id), "failed to delete complaint")
	})
	if err != nil {
		return err
	}
	removeStoredFiles(ctx, s.files, s.logger, attachments)

	s.logger.Info("Complaint deleted", zap.Uint("complaint_id", id), zap.Uint("citizen_id", citizenID))
	return nil
}

func (s *ComplaintService) statusChanged(ctx context.Context, complaint *models.Complaint) {
	s.Metrics.Transition("complaint", string(complaint.Status))
	s.notifier.Notify(ctx, complaintUpdate(complaint))
	s.publish(ctx, events.ComplaintStatusChanged, complaintKey(complaint.ID), complaint)
}

func complaintKey(id uint) string {
	return fmt.Sprintf("complaint-%d", id)
}
