package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"municipality/internal/middleware"
	"municipality/internal/models"
	"municipality/internal/policy"
)

// Register creates a citizen account and signs it in
func (h *Handler) Register(c *gin.Context) {
	var payload models.RegisterCitizenPayload
	if !h.bindJSON(c, &payload) {
		return
	}

	token, err := h.Identity.RegisterCitizen(c.Request.Context(), payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, token)
}

// Login exchanges credentials for a token
func (h *Handler) Login(c *gin.Context) {
	var payload models.LoginPayload
	if !h.bindJSON(c, &payload) {
		return
	}

	token, err := h.Identity.Login(c.Request.Context(), payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

// Logout revokes the presented token
func (h *Handler) Logout(c *gin.Context) {
	claims, ok := middleware.Claims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	if err := h.Identity.Logout(c.Request.Context(), claims); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

// Me returns the caller's profile
func (h *Handler) Me(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	profile, err := h.Identity.Me(c.Request.Context(), principal.AccountID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ChangePassword replaces the caller's password
func (h *Handler) ChangePassword(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var payload models.ChangePasswordPayload
	if !h.bindJSON(c, &payload) {
		return
	}

	if err := h.Identity.ChangePassword(c.Request.Context(), principal.AccountID, payload); err != nil {
		h.respondError(c, err)
		return
	}
	h.record(c, principal, "change_password", "account", principal.AccountID, nil)
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// DeactivateAccount disables the caller's account
func (h *Handler) DeactivateAccount(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var payload models.DeactivateAccountPayload
	if !h.bindJSON(c, &payload) {
		return
	}

	if err := h.Identity.Deactivate(c.Request.Context(), principal.AccountID, payload); err != nil {
		h.respondError(c, err)
		return
	}
	if claims, ok := middleware.Claims(c); ok {
		_ = h.Identity.Logout(c.Request.Context(), claims)
	}
	h.record(c, principal, "deactivate", "account", principal.AccountID, gin.H{"reason": payload.Reason})
	c.JSON(http.StatusOK, gin.H{"message": "Account deactivated successfully"})
}

// Dashboard summarizes the caller's activity
func (h *Handler) Dashboard(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if principal.CitizenID == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Citizen profile not found"})
		return
	}

	dashboard, err := h.Identity.Dashboard(c.Request.Context(), principal.CitizenID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// RegisterEmployee promotes a citizen to employee
func (h *Handler) RegisterEmployee(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionCreate, policy.Entity{Resource: policy.ResourceEmployee}) {
		return
	}
	var payload models.RegisterEmployeePayload
	if !h.bindJSON(c, &payload) {
		return
	}

	employee, err := h.Identity.RegisterEmployee(c.Request.Context(), payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.record(c, principal, "create", policy.ResourceEmployee, employee.ID, gin.H{"department_id": employee.DepartmentID})
	c.JSON(http.StatusCreated, employee)
}

// CurrentEmployee returns the caller's employee record
func (h *Handler) CurrentEmployee(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionRead, policy.Entity{Resource: policy.ResourceEmployee}) {
		return
	}

	employee, err := h.Identity.Employee(c.Request.Context(), principal.AccountID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, employee)
}

// CreateDepartment adds a department
func (h *Handler) CreateDepartment(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionCreate, policy.Entity{Resource: policy.ResourceDepartment}) {
		return
	}
	var payload models.CreateDepartmentPayload
	if !h.bindJSON(c, &payload) {
		return
	}

	department, err := h.Identity.CreateDepartment(c.Request.Context(), payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.record(c, principal, "create", policy.ResourceDepartment, department.ID, gin.H{"name": department.Name})
	c.JSON(http.StatusCreated, department)
}

// ListDepartments lists every department
func (h *Handler) ListDepartments(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionList, policy.Entity{Resource: policy.ResourceDepartment}) {
		return
	}

	departments, err := h.Identity.Departments(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, departments)
}
