package service

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"municipality/internal/apperr"
	"municipality/internal/events"
	"municipality/internal/models"
)

const recentFeedbackCount = 5

// FeedbackService collects citizen ratings of the municipality's service
type FeedbackService struct {
	Deps
	logger *zap.Logger
}

// NewFeedbackService creates a feedback service
func NewFeedbackService(deps Deps) *FeedbackService {
	deps = deps.withDefaults()
	return &FeedbackService{
		Deps:   deps,
		logger: deps.Logger.Named("feedback_service"),
	}
}

// Create records feedback from citizenID. A referenced request must belong
// to the citizen.
func (s *FeedbackService) Create(ctx context.Context, citizenID uint, payload models.CreateFeedbackPayload) (*models.Feedback, error) {
	if payload.Rating < 1 || payload.Rating > 5 {
		return nil, apperr.Validation("Rating must be between 1 and 5")
	}
	if _, err := s.Store.Citizens().GetByID(ctx, citizenID); err != nil {
		return nil, lookupErr(err, "Citizen not found")
	}
	if payload.RequestID != nil {
		request, err := s.Store.Requests().GetByID(ctx, *payload.RequestID)
		if err != nil {
			return nil, lookupErr(err, "Request not found")
		}
		if request.CitizenID != citizenID {
			return nil, apperr.NotFound("Request not found")
		}
	}

	feedback := &models.Feedback{
		CitizenID: citizenID,
		RequestID: payload.RequestID,
		Rating:    payload.Rating,
		Comment:   payload.Comment,
		CreatedAt: s.Clock(),
	}
	if err := s.Store.Feedback().Create(ctx, feedback); err != nil {
		return nil, storeErr(err, "failed to create feedback")
	}

	s.logger.Info("Feedback submitted",
		zap.Uint("feedback_id", feedback.ID),
		zap.Uint("citizen_id", citizenID),
		zap.Int("rating", feedback.Rating))
	s.publish(ctx, events.FeedbackSubmitted, fmt.Sprintf("feedback-%d", feedback.ID), feedback)
	return feedback, nil
}

// Mine lists the feedback of citizenID, newest first
func (s *FeedbackService) Mine(ctx context.Context, citizenID uint) ([]models.FeedbackDetail, error) {
	feedback, err := s.Store.Feedback().ListByCitizen(ctx, citizenID)
	if err != nil {
		return nil, storeErr(err, "failed to list feedback")
	}
	return s.details(ctx, feedback), nil
}

// List pages through every feedback entry, newest first
func (s *FeedbackService) List(ctx context.Context, skip, limit int) ([]models.FeedbackDetail, error) {
	skip, limit = clampPage(skip, limit)
	feedback, err := s.Store.Feedback().List(ctx, skip, limit)
	if err != nil {
		return nil, storeErr(err, "failed to list feedback")
	}
	return s.details(ctx, feedback), nil
}

// Statistics reports the rating distribution, the average rounded to two
// decimals and the latest entries
func (s *FeedbackService) Statistics(ctx context.Context) (*models.FeedbackStatistics, error) {
	counts, err := s.Store.Feedback().RatingCounts(ctx)
	if err != nil {
		return nil, storeErr(err, "failed to count feedback")
	}

	stats := &models.FeedbackStatistics{Distribution: make(map[int]int64, 5)}
	var sum int64
	for rating := 1; rating <= 5; rating++ {
		stats.Distribution[rating] = counts[rating]
		stats.Total += counts[rating]
		sum += int64(rating) * counts[rating]
	}
	if stats.Total > 0 {
		stats.Average = math.Round(float64(sum)/float64(stats.Total)*100) / 100
	}

	recent, err := s.Store.Feedback().List(ctx, 0, recentFeedbackCount)
	if err != nil {
		return nil, storeErr(err, "failed to list feedback")
	}
	stats.Recent = s.details(ctx, recent)
	return stats, nil
}

func (s *FeedbackService) details(ctx context.Context, feedback []models.Feedback) []models.FeedbackDetail {
	details := make([]models.FeedbackDetail, 0, len(feedback))
	for _, entry := range feedback {
		detail := models.FeedbackDetail{
			Feedback:    entry,
			CitizenName: citizenName(ctx, s.Store, entry.CitizenID),
		}
		if entry.RequestID != nil {
			if request, err := s.Store.Requests().GetByID(ctx, *entry.RequestID); err == nil {
				requestType := request.RequestType
				detail.RequestType = &requestType
			}
		}
		details = append(details, detail)
	}
	return details
}
