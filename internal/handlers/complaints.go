package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"municipality/internal/models"
	"municipality/internal/policy"
)

// CreateComplaint files a complaint for the caller
func (h *Handler) CreateComplaint(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionCreate, policy.On(policy.ResourceComplaint, principal.CitizenID)) {
		return
	}
	var payload models.CreateComplaintPayload
	if !h.bindJSON(c, &payload) {
		return
	}

	complaint, err := h.Complaints.Create(c.Request.Context(), principal.CitizenID, payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.record(c, principal, "create", policy.ResourceComplaint, complaint.ID, gin.H{"category": complaint.Category})
	c.JSON(http.StatusCreated, complaint)
}

// MyComplaints lists the caller's complaints
func (h *Handler) MyComplaints(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionList, policy.On(policy.ResourceComplaint, principal.CitizenID)) {
		return
	}

	complaints, err := h.Complaints.ListForCitizen(c.Request.Context(), principal.CitizenID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaints)
}

// GetComplaint returns one complaint with its responses
func (h *Handler) GetComplaint(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	complaint, err := h.Complaints.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !h.authorize(c, principal, policy.ActionRead, policy.On(policy.ResourceComplaint, complaint.CitizenID)) {
		return
	}
	c.JSON(http.StatusOK, complaint)
}

// ListComplaints lists complaints for employees by status and category
func (h *Handler) ListComplaints(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionList, policy.Entity{Resource: policy.ResourceComplaint}) {
		return
	}
	skip, limit, ok := pagination(c)
	if !ok {
		return
	}

	complaints, err := h.Complaints.List(c.Request.Context(), c.Query("status"), c.Query("category"), skip, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaints)
}

// AssignComplaint assigns a complaint to an employee
func (h *Handler) AssignComplaint(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionAssign, policy.Entity{Resource: policy.ResourceComplaint}) {
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

	complaint, err := h.Complaints.Assign(c.Request.Context(), id, employeeID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.record(c, principal, "assign", policy.ResourceComplaint, id, gin.H{"employee_id": employeeID})
	c.JSON(http.StatusOK, complaint)
}

// UpdateComplaint changes the status, assignee or resolution notes
func (h *Handler) UpdateComplaint(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionUpdate, policy.Entity{Resource: policy.ResourceComplaint}) {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var payload models.UpdateComplaintPayload
	if !h.bindJSON(c, &payload) {
		return
	}
	if payload.Status != nil {
		if parsed, ok := models.ComplaintStatuses.Parse(string(*payload.Status)); ok {
			payload.Status = &parsed
		}
	}

	complaint, err := h.Complaints.Update(c.Request.Context(), id, payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.record(c, principal, "update", policy.ResourceComplaint, id, gin.H{"status": complaint.Status})
	c.JSON(http.StatusOK, complaint)
}

// RespondToComplaint appends an employee response
func (h *Handler) RespondToComplaint(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionRespond, policy.Entity{Resource: policy.ResourceComplaint}) {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var payload models.CreateComplaintResponsePayload
	if !h.bindJSON(c, &payload) {
		return
	}

	response, err := h.Complaints.Respond(c.Request.Context(), id, principal.EmployeeID, payload.Message)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.record(c, principal, "respond", policy.ResourceComplaint, id, gin.H{"response_id": response.ID})
	c.JSON(http.StatusCreated, response)
}

// DeleteComplaint removes the caller's submitted complaint
func (h *Handler) DeleteComplaint(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionDelete, policy.On(policy.ResourceComplaint, principal.CitizenID)) {
		return
	}

	if err := h.Complaints.Delete(c.Request.Context(), id, principal.CitizenID); err != nil {
		h.respondError(c, err)
		return
	}
	h.record(c, principal, "delete", policy.ResourceComplaint, id, nil)
	c.JSON(http.StatusOK, gin.H{"message": "Complaint deleted successfully"})
}
