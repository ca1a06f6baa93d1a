package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Homepage returns the sections of the public landing page
func (h *Handler) Homepage(c *gin.Context) {
	page, err := h.Announcements.Homepage(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// PublicNews lists recent news
func (h *Handler) PublicNews(c *gin.Context) {
	days, ok := queryInt(c, "days", 7)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 10)
	if !ok {
		return
	}

	news, err := h.Announcements.News(c.Request.Context(), days, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, news)
}

// PublicEvents lists events by date
func (h *Handler) PublicEvents(c *gin.Context) {
	upcomingOnly, ok := queryBool(c, "upcoming_only", true)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 10)
	if !ok {
		return
	}

	events, err := h.Announcements.Events(c.Request.Context(), upcomingOnly, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// PublicTenders lists tenders
func (h *Handler) PublicTenders(c *gin.Context) {
	activeOnly, ok := queryBool(c, "active_only", true)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 10)
	if !ok {
		return
	}

	tenders, err := h.Announcements.Tenders(c.Request.Context(), activeOnly, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tenders)
}

// PublicEmergencies lists emergency and urgent notices
func (h *Handler) PublicEmergencies(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 5)
	if !ok {
		return
	}

	notices, err := h.Announcements.Emergencies(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notices)
}

// PublicStatistics counts active announcements per category
func (h *Handler) PublicStatistics(c *gin.Context) {
	stats, err := h.Announcements.Statistics(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
