package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"municipality/internal/models"
	"municipality/internal/policy"
)

// CreatePayment pays the fee of the caller's approved request. A declined
// charge answers 402 with the FAILED payment.
func (h *Handler) CreatePayment(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionPay, policy.On(policy.ResourcePayment, principal.CitizenID)) {
		return
	}
	var payload models.CreatePaymentPayload
	if !h.bindJSON(c, &payload) {
		return
	}

	result, err := h.Payments.Pay(c.Request.Context(), principal.CitizenID, payload.RequestID, payload.PaymentMethod)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.record(c, principal, "pay", policy.ResourcePayment, result.Payment.ID, gin.H{
		"request_id": payload.RequestID,
		"approved":   result.Approved,
		"attempt":    result.Payment.RetryCount,
	})

	if !result.Approved {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": result.Message, "payment": result.Payment})
		return
	}
	c.JSON(http.StatusCreated, result.Payment)
}

// MyPayments lists the caller's payments
func (h *Handler) MyPayments(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionList, policy.On(policy.ResourcePayment, principal.CitizenID)) {
		return
	}

	payments, err := h.Payments.ListForCitizen(c.Request.Context(), principal.CitizenID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// GetPayment returns one payment to its payer or an employee
func (h *Handler) GetPayment(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	payment, err := h.Payments.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !h.authorize(c, principal, policy.ActionRead, policy.On(policy.ResourcePayment, payment.CitizenID)) {
		return
	}
	c.JSON(http.StatusOK, payment)
}

// PaymentForRequest returns the payment of a request
func (h *Handler) PaymentForRequest(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	requestID, ok := paramID(c, "request_id")
	if !ok {
		return
	}

	payment, err := h.Payments.GetForRequest(c.Request.Context(), requestID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !h.authorize(c, principal, policy.ActionRead, policy.On(policy.ResourcePayment, payment.CitizenID)) {
		return
	}
	c.JSON(http.StatusOK, payment)
}

// PaymentReceipt returns the receipt of a completed payment
func (h *Handler) PaymentReceipt(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	payment, err := h.Payments.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !h.authorize(c, principal, policy.ActionRead, policy.On(policy.ResourcePayment, payment.CitizenID)) {
		return
	}

	receipt, err := h.Payments.Receipt(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

// ListPayments lists payments for employees, optionally by status
func (h *Handler) ListPayments(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionList, policy.Entity{Resource: policy.ResourcePayment}) {
		return
	}
	skip, limit, ok := pagination(c)
	if !ok {
		return
	}

	payments, err := h.Payments.List(c.Request.Context(), c.Query("status"), skip, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// FeeStructure returns the fee of every request type
func (h *Handler) FeeStructure(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"fees":     h.Payments.FeeStructure(),
		"currency": "USD",
	})
}
