package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"municipality/internal/models"
	"municipality/internal/policy"
)

// CreateFeedback records the caller's rating
func (h *Handler) CreateFeedback(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionCreate, policy.On(policy.ResourceFeedback, principal.CitizenID)) {
		return
	}
	var payload models.CreateFeedbackPayload
	if !h.bindJSON(c, &payload) {
		return
	}

	feedback, err := h.Feedback.Create(c.Request.Context(), principal.CitizenID, payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.record(c, principal, "create", policy.ResourceFeedback, feedback.ID, gin.H{"rating": feedback.Rating})
	c.JSON(http.StatusCreated, feedback)
}

// MyFeedback lists the caller's feedback
func (h *Handler) MyFeedback(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionList, policy.On(policy.ResourceFeedback, principal.CitizenID)) {
		return
	}

	feedback, err := h.Feedback.Mine(c.Request.Context(), principal.CitizenID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, feedback)
}

// ListFeedback pages through every feedback entry
func (h *Handler) ListFeedback(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionList, policy.Entity{Resource: policy.ResourceFeedback}) {
		return
	}
	skip, limit, ok := pagination(c)
	if !ok {
		return
	}

	feedback, err := h.Feedback.List(c.Request.Context(), skip, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, feedback)
}

// FeedbackStatistics summarizes every rating
func (h *Handler) FeedbackStatistics(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionList, policy.Entity{Resource: policy.ResourceFeedback}) {
		return
	}

	stats, err := h.Feedback.Statistics(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
