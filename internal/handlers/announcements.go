package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"municipality/internal/models"
	"municipality/internal/policy"
)

// CreateAnnouncement publishes an announcement written by the calling employee
func (h *Handler) CreateAnnouncement(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionCreate, policy.Entity{Resource: policy.ResourceAnnouncement}) {
		return
	}
	var payload models.CreateAnnouncementPayload
	if !h.bindJSON(c, &payload) {
		return
	}

	announcement, err := h.Announcements.Create(c.Request.Context(), principal.EmployeeID, payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.record(c, principal, "create", policy.ResourceAnnouncement, announcement.ID, gin.H{"category": announcement.Category, "priority": announcement.Priority})
	c.JSON(http.StatusCreated, announcement)
}

// ActiveAnnouncements lists unexpired announcements, optionally of one category
func (h *Handler) ActiveAnnouncements(c *gin.Context) {
	skip, ok := queryInt(c, "skip", 0)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return
	}
	var category *models.AnnouncementCategory
	if raw := c.Query("category"); raw != "" {
		value := models.AnnouncementCategory(raw)
		category = &value
	}

	announcements, err := h.Announcements.Active(c.Request.Context(), category, skip, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, announcements)
}

// UpcomingEvents lists events within the next days
func (h *Handler) UpcomingEvents(c *gin.Context) {
	days, ok := queryInt(c, "days", 7)
	if !ok {
		return
	}
	if days < 1 || days > 30 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid days parameter"})
		return
	}

	announcements, err := h.Announcements.UpcomingEvents(c.Request.Context(), days)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, announcements)
}

// GetAnnouncement returns one active announcement
func (h *Handler) GetAnnouncement(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	announcement, err := h.Announcements.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, announcement)
}

// UpdateAnnouncement changes an announcement
func (h *Handler) UpdateAnnouncement(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionUpdate, policy.Entity{Resource: policy.ResourceAnnouncement}) {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var payload models.UpdateAnnouncementPayload
	if !h.bindJSON(c, &payload) {
		return
	}

	announcement, err := h.Announcements.Update(c.Request.Context(), id, payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.record(c, principal, "update", policy.ResourceAnnouncement, id, nil)
	c.JSON(http.StatusOK, announcement)
}

// DeleteAnnouncement deactivates an announcement
func (h *Handler) DeleteAnnouncement(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionDelete, policy.Entity{Resource: policy.ResourceAnnouncement}) {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.Announcements.Deactivate(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	h.record(c, principal, "deactivate", policy.ResourceAnnouncement, id, nil)
	c.JSON(http.StatusOK, gin.H{"message": "Announcement deactivated successfully"})
}
