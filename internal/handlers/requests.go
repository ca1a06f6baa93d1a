package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"municipality/internal/models"
	"municipality/internal/policy"
)

// CreateRequest submits a request for the caller
func (h *Handler) CreateRequest(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionCreate, policy.On(policy.ResourceRequest, principal.CitizenID)) {
		return
	}
	var payload models.CreateRequestPayload
	if !h.bindJSON(c, &payload) {
		return
	}

	request, err := h.Requests.Create(c.Request.Context(), principal.CitizenID, payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.record(c, principal, "create", policy.ResourceRequest, request.ID, gin.H{"request_type": request.RequestType})
	c.JSON(http.StatusCreated, request)
}

// MyRequests lists the caller's requests
func (h *Handler) MyRequests(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionList, policy.On(policy.ResourceRequest, principal.CitizenID)) {
		return
	}

	requests, err := h.Requests.ListForCitizen(c.Request.Context(), principal.CitizenID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// GetRequest returns one request to its owner or an employee
func (h *Handler) GetRequest(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	request, err := h.Requests.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !h.authorize(c, principal, policy.ActionRead, policy.On(policy.ResourceRequest, request.CitizenID)) {
		return
	}
	c.JSON(http.StatusOK, request)
}

// ListRequests lists requests for employees, optionally by status
func (h *Handler) ListRequests(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionList, policy.Entity{Resource: policy.ResourceRequest}) {
		return
	}
	skip, limit, ok := pagination(c)
	if !ok {
		return
	}

	requests, err := h.Requests.List(c.Request.Context(), c.Query("status"), skip, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// AssignRequest assigns a request to an employee
func (h *Handler) AssignRequest(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionAssign, policy.Entity{Resource: policy.ResourceRequest}) {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	employeeID, ok := paramID(c, "employee_id")
	if !ok {
		return
	}

	request, err := h.Requests.Assign(c.Request.Context(), id, employeeID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.record(c, principal, "assign", policy.ResourceRequest, id, gin.H{"employee_id": employeeID})
	c.JSON(http.StatusOK, request)
}

// UpdateRequestStatus records an employee decision on a request
func (h *Handler) UpdateRequestStatus(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionUpdate, policy.Entity{Resource: policy.ResourceRequest}) {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var payload models.UpdateRequestStatusPayload
	if !h.bindJSON(c, &payload) {
		return
	}

	status := payload.Status
	if parsed, ok := models.RequestStatuses.Parse(string(status)); ok {
		status = parsed
	}
	request, err := h.Requests.UpdateStatus(c.Request.Context(), id, status, payload.RejectionReason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.record(c, principal, "update_status", policy.ResourceRequest, id, gin.H{"status": request.Status})
	c.JSON(http.StatusOK, request)
}

// DeleteRequest removes the caller's submitted request
func (h *Handler) DeleteRequest(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionDelete, policy.On(policy.ResourceRequest, principal.CitizenID)) {
		return
	}

	if err := h.Requests.Delete(c.Request.Context(), id, principal.CitizenID); err != nil {
		h.respondError(c, err)
		return
	}
	h.record(c, principal, "delete", policy.ResourceRequest, id, nil)
	c.JSON(http.StatusOK, gin.H{"message": "Request deleted successfully"})
}
