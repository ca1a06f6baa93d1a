package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"municipality/internal/models"
	"municipality/internal/policy"
)

// ListNotifications lists the caller's notifications, newest first
func (h *Handler) ListNotifications(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionList, policy.On(policy.ResourceNotification, principal.CitizenID)) {
		return
	}
	unreadOnly, err := strconv.ParseBool(c.DefaultQuery("unread_only", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid unread_only parameter"})
		return
	}

	notifications, err := h.Notifications.List(c.Request.Context(), principal.CitizenID, unreadOnly)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

// NotificationStats counts the caller's read and unread notifications
func (h *Handler) NotificationStats(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionRead, policy.On(policy.ResourceNotification, principal.CitizenID)) {
		return
	}

	stats, err := h.Notifications.Stats(c.Request.Context(), principal.CitizenID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// MarkNotificationRead marks one of the caller's notifications read
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionUpdate, policy.On(policy.ResourceNotification, principal.CitizenID)) {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	notification, err := h.Notifications.MarkRead(c.Request.Context(), id, principal.CitizenID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notification)
}

// MarkAllNotificationsRead marks every notification of the caller read
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionUpdate, policy.On(policy.ResourceNotification, principal.CitizenID)) {
		return
	}

	updated, err := h.Notifications.MarkAllRead(c.Request.Context(), principal.CitizenID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "updated": updated})
}

// DeleteNotification removes one of the caller's notifications
func (h *Handler) DeleteNotification(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionDelete, policy.On(policy.ResourceNotification, principal.CitizenID)) {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.Notifications.Delete(c.Request.Context(), id, principal.CitizenID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted successfully"})
}

// SendNotification lets an employee message a citizen
func (h *Handler) SendNotification(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionSend, policy.Entity{Resource: policy.ResourceNotification}) {
		return
	}
	var payload models.SendNotificationPayload
	if !h.bindJSON(c, &payload) {
		return
	}

	notification, err := h.Notifications.Send(c.Request.Context(), payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.record(c, principal, "send", policy.ResourceNotification, notification.ID, gin.H{"citizen_id": payload.CitizenID})
	c.JSON(http.StatusCreated, notification)
}

// NotificationStream upgrades to a websocket receiving the caller's
// notifications as they are created
func (h *Handler) NotificationStream(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionRead, policy.On(policy.ResourceNotification, principal.CitizenID)) {
		return
	}

	if err := h.realtime.Serve(c.Writer, c.Request, principal.CitizenID); err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Uint("citizen_id", principal.CitizenID), zap.Error(err))
	}
}
