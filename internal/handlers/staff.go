package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"municipality/internal/models"
	"municipality/internal/policy"
)

// ListEmployees pages through employees
func (h *Handler) ListEmployees(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionList, policy.Entity{Resource: policy.ResourceEmployee}) {
		return
	}
	skip, limit, ok := pagination(c)
	if !ok {
		return
	}

	employees, err := h.Identity.ListEmployees(c.Request.Context(), skip, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, employees)
}

// GetEmployee returns one employee
func (h *Handler) GetEmployee(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionRead, policy.Entity{Resource: policy.ResourceEmployee}) {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	employee, err := h.Identity.GetEmployee(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, employee)
}

// UpdateEmployee changes an employee's position, contract or department
func (h *Handler) UpdateEmployee(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionUpdate, policy.Entity{Resource: policy.ResourceEmployee}) {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var payload models.UpdateEmployeePayload
	if !h.bindJSON(c, &payload) {
		return
	}

	employee, err := h.Identity.UpdateEmployee(c.Request.Context(), id, payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.record(c, principal, "update", policy.ResourceEmployee, id, payload)
	c.JSON(http.StatusOK, employee)
}

// DeactivateEmployee ends an employment
func (h *Handler) DeactivateEmployee(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionDelete, policy.Entity{Resource: policy.ResourceEmployee}) {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.Identity.DeactivateEmployee(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	h.record(c, principal, "deactivate", policy.ResourceEmployee, id, nil)
	c.JSON(http.StatusOK, gin.H{"message": "Employee deactivated successfully"})
}

// EmployeeTasks lists the requests assigned to an employee
func (h *Handler) EmployeeTasks(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionList, policy.Entity{Resource: policy.ResourceTask}) {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	tasks, err := h.Identity.EmployeeTasks(c.Request.Context(), principal, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// GetDepartment returns one department
func (h *Handler) GetDepartment(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionRead, policy.Entity{Resource: policy.ResourceDepartment}) {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	department, err := h.Identity.GetDepartment(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, department)
}

// UpdateDepartment renames a department or changes its contacts
func (h *Handler) UpdateDepartment(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionUpdate, policy.Entity{Resource: policy.ResourceDepartment}) {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var payload models.UpdateDepartmentPayload
	if !h.bindJSON(c, &payload) {
		return
	}

	department, err := h.Identity.UpdateDepartment(c.Request.Context(), id, payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.record(c, principal, "update", policy.ResourceDepartment, id, payload)
	c.JSON(http.StatusOK, department)
}

// DeleteDepartment removes an empty department
func (h *Handler) DeleteDepartment(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionDelete, policy.Entity{Resource: policy.ResourceDepartment}) {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.Identity.DeleteDepartment(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	h.record(c, principal, "delete", policy.ResourceDepartment, id, nil)
	c.JSON(http.StatusOK, gin.H{"message": "Department deleted successfully"})
}

// UpdateProfile changes the caller's contact details
func (h *Handler) UpdateProfile(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var payload models.UpdateProfilePayload
	if !h.bindJSON(c, &payload) {
		return
	}

	profile, err := h.Identity.UpdateProfile(c.Request.Context(), principal.AccountID, payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.record(c, principal, "update_profile", "account", principal.AccountID, nil)
	c.JSON(http.StatusOK, profile)
}

// RecentActivity lists the caller's latest requests and notifications
func (h *Handler) RecentActivity(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if principal.CitizenID == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Citizen profile not found"})
		return
	}
	limit, ok := queryInt(c, "limit", 10)
	if !ok {
		return
	}

	activity, err := h.Identity.RecentActivity(c.Request.Context(), principal.CitizenID, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, activity)
}
