package handlers

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"municipality/internal/apperr"
	"municipality/internal/models"
)

func TestIdentityEndpoints(t *testing.T) {
	app := newTestApp(t)
	token := app.citizen(t, "ana@example.com", "NID-0001")

	t.Run("Me", func(t *testing.T) {
		w := app.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var profile models.Profile
		decode(t, w, &profile)
		assert.Equal(t, "ana@example.com", profile.Email)
		require.NotNil(t, profile.Citizen)
		assert.Nil(t, profile.Employee)
	})

	t.Run("DuplicateRegistration", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
			"email": "ana@example.com", "password": "password123", "national_id": "NID-0002",
			"first_name": "Ana", "last_name": "Again", "date_of_birth": "1990-01-01",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("InvalidPayload", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "not-an-email"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid request payload")
	})

	t.Run("WrongPassword", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "ana@example.com", "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"Incorrect email or password"}`, w.Body.String())
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		w := app.do(t, http.MethodGet, "/api/v1/auth/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("CitizenCannotCreateDepartment", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/v1/departments", token, gin.H{"name": "Roads"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Logout", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = app.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequestAndPaymentScenario(t *testing.T) {
	app := newTestApp(t)
	owner := app.citizen(t, "ana@example.com", "NID-0001")
	other := app.citizen(t, "rui@example.com", "NID-0002")
	clerk, clerkID := app.employee(t, "clerk@example.com", "NID-0003")

	w := app.do(t, http.MethodPost, "/api/v1/requests", owner, gin.H{"request_type": "Passport"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "unknown request types fail binding")

	w = app.do(t, http.MethodPost, "/api/v1/requests", owner, gin.H{"request_type": "Birth Certificate", "description": "For school"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var request models.Request
	decode(t, w, &request)
	assert.Equal(t, models.StatusSubmitted, request.Status)
	requestPath := fmt.Sprintf("/api/v1/requests/%d", request.ID)

	t.Run("Visibility", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, requestPath, owner, nil).Code)
		assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, requestPath, clerk, nil).Code)
		assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, requestPath, other, nil).Code)
		assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, "/api/v1/requests", owner, nil).Code)
		assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodGet, "/api/v1/requests?limit=500", clerk, nil).Code)
	})

	w = app.do(t, http.MethodPost, "/api/v1/payments", owner, gin.H{"request_id": request.ID, "payment_method": "Credit Card"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "payment before approval")
	assert.JSONEq(t, `{"error":"Request must be approved before payment"}`, w.Body.String())

	w = app.do(t, http.MethodPut, fmt.Sprintf("%s/assign/%d", requestPath, clerkID), clerk, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &request)
	assert.Equal(t, models.StatusUnderReview, request.Status)

	w = app.do(t, http.MethodPut, requestPath+"/status", owner, gin.H{"status": "APPROVED"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, http.MethodPut, requestPath+"/status", clerk, gin.H{"status": "approved"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &request)
	assert.Equal(t, models.StatusApproved, request.Status)

	w = app.do(t, http.MethodDelete, requestPath, owner, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "only submitted requests can be deleted")

	w = app.do(t, http.MethodPost, "/api/v1/payments", other, gin.H{"request_id": request.ID, "payment_method": "Cash"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, http.MethodPost, "/api/v1/payments", owner, gin.H{"request_id": request.ID, "payment_method": "Credit Card"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var payment models.Payment
	decode(t, w, &payment)
	assert.Equal(t, models.StatusCompleted, payment.Status)
	assert.Equal(t, 50.0, payment.Amount)
	require.NotNil(t, payment.TransactionID)
	paymentPath := fmt.Sprintf("/api/v1/payments/%d", payment.ID)

	t.Run("PaymentQueries", func(t *testing.T) {
		w := app.do(t, http.MethodGet, paymentPath+"/receipt", owner, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var receipt models.PaymentReceipt
		decode(t, w, &receipt)
		assert.Equal(t, *payment.TransactionID, receipt.TransactionID)

		assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, paymentPath, other, nil).Code)
		assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, fmt.Sprintf("/api/v1/payments/request/%d", request.ID), owner, nil).Code)

		w = app.do(t, http.MethodGet, "/api/v1/payments?status=COMPLETED", clerk, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var payments []models.Payment
		decode(t, w, &payments)
		assert.Len(t, payments, 1)

		w = app.do(t, http.MethodGet, "/api/v1/requests/mine", owner, nil)
		var mine []models.Request
		decode(t, w, &mine)
		require.Len(t, mine, 1)
		assert.Equal(t, models.StatusPaid, mine[0].Status)
	})

	t.Run("Notifications", func(t *testing.T) {
		w := app.do(t, http.MethodGet, "/api/v1/notifications", owner, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var notifications []models.Notification
		decode(t, w, &notifications)
		assert.Len(t, notifications, 3)
	})

	t.Run("Audit", func(t *testing.T) {
		var actions []string
		for _, entry := range app.store.AuditEntries(t) {
			actions = append(actions, entry.Resource+"."+entry.Action)
		}
		assert.Equal(t, []string{"request.create", "request.assign", "request.update_status", "payment.pay"}, actions)
	})
}

func TestPaymentDeclined(t *testing.T) {
	app := newTestApp(t)
	owner := app.citizen(t, "ana@example.com", "NID-0001")
	clerk, _ := app.employee(t, "clerk@example.com", "NID-0003")

	w := app.do(t, http.MethodPost, "/api/v1/requests", owner, gin.H{"request_type": "Building Permit"})
	var request models.Request
	decode(t, w, &request)
	w = app.do(t, http.MethodPut, fmt.Sprintf("/api/v1/requests/%d/status", request.ID), clerk, gin.H{"status": "APPROVED"})
	require.Equal(t, http.StatusOK, w.Code)

	app.gateway.Decline()
	w = app.do(t, http.MethodPost, "/api/v1/payments", owner, gin.H{"request_id": request.ID, "payment_method": "Debit Card"})
	require.Equal(t, http.StatusPaymentRequired, w.Code, w.Body.String())

	var body struct {
		Error   string         `json:"error"`
		Payment models.Payment `json:"payment"`
	}
	decode(t, w, &body)
	assert.NotEmpty(t, body.Error)
	assert.Equal(t, models.StatusFailed, body.Payment.Status)
	assert.Equal(t, 1, body.Payment.RetryCount)
}

func TestComplaintEndpoints(t *testing.T) {
	app := newTestApp(t)
	owner := app.citizen(t, "ana@example.com", "NID-0001")
	clerk, _ := app.employee(t, "clerk@example.com", "NID-0003")

	w := app.do(t, http.MethodPost, "/api/v1/complaints", owner, gin.H{
		"category":    "Road Damage",
		"title":       "Pothole on Main St",
		"description": "Large pothole near the school entrance",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var complaint models.Complaint
	decode(t, w, &complaint)
	complaintPath := fmt.Sprintf("/api/v1/complaints/%d", complaint.ID)

	w = app.do(t, http.MethodPost, complaintPath+"/responses", owner, gin.H{"message": "Any news?"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, http.MethodPost, complaintPath+"/responses", clerk, gin.H{"message": "A crew is scheduled"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = app.do(t, http.MethodGet, complaintPath, owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail models.ComplaintDetail
	decode(t, w, &detail)
	assert.Equal(t, models.StatusSubmitted, detail.Status)
	require.Len(t, detail.Responses, 1)

	w = app.do(t, http.MethodGet, "/api/v1/complaints?category=Road%20Damage", clerk, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []models.Complaint
	decode(t, w, &listed)
	assert.Len(t, listed, 1)

	w = app.do(t, http.MethodDelete, complaintPath, owner, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodGet, complaintPath, owner, nil).Code)
}

func TestNotificationEndpoints(t *testing.T) {
	app := newTestApp(t)
	owner := app.citizen(t, "ana@example.com", "NID-0001")
	clerk, _ := app.employee(t, "clerk@example.com", "NID-0003")

	var profile models.Profile
	decode(t, app.do(t, http.MethodGet, "/api/v1/auth/me", owner, nil), &profile)
	require.NotNil(t, profile.Citizen)

	message := gin.H{
		"citizen_id":        profile.Citizen.ID,
		"title":             "Office closed",
		"message":           "The office is closed on Friday",
		"notification_type": "ANNOUNCEMENT",
	}
	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodPost, "/api/v1/notifications", owner, message).Code)
	require.Equal(t, http.StatusCreated, app.do(t, http.MethodPost, "/api/v1/notifications", clerk, message).Code)

	var stats models.NotificationStats
	decode(t, app.do(t, http.MethodGet, "/api/v1/notifications/stats", owner, nil), &stats)
	assert.Equal(t, int64(1), stats.Unread)

	require.Equal(t, http.StatusOK, app.do(t, http.MethodPut, "/api/v1/notifications/read-all", owner, nil).Code)
	decode(t, app.do(t, http.MethodGet, "/api/v1/notifications/stats", owner, nil), &stats)
	assert.Zero(t, stats.Unread)
	assert.Equal(t, int64(1), stats.Read)

	w := app.do(t, http.MethodGet, "/api/v1/notifications?unread_only=maybe", owner, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodGet, "/api/v1/notifications/ws", owner, nil)
	assert.Equal(t, http.StatusSwitchingProtocols, w.Code)
	assert.Equal(t, []uint{profile.Citizen.ID}, app.stream.citizens)
}

func multipartBody(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func (a *testApp) upload(t *testing.T, path, token, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, filename, "text/plain", content)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func TestAttachmentEndpoints(t *testing.T) {
	app := newTestApp(t)
	owner := app.citizen(t, "ana@example.com", "NID-0001")
	other := app.citizen(t, "rui@example.com", "NID-0002")

	w := app.do(t, http.MethodPost, "/api/v1/requests", owner, gin.H{"request_type": "Other"})
	var request models.Request
	decode(t, w, &request)
	uploadPath := fmt.Sprintf("/api/v1/requests/%d/attachments", request.ID)

	w = app.upload(t, uploadPath, other, "notes.txt", []byte("hello"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.upload(t, uploadPath, owner, "big.txt", bytes.Repeat([]byte("a"), 2048))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = app.upload(t, uploadPath, owner, "notes.txt", []byte("hello"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var attachment models.Attachment
	decode(t, w, &attachment)
	filePath := fmt.Sprintf("/api/v1/attachments/%d", attachment.ID)

	w = app.do(t, http.MethodGet, uploadPath, owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []models.Attachment
	decode(t, w, &listed)
	assert.Len(t, listed, 1)

	w = app.do(t, http.MethodGet, filePath+"/download", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "notes.txt")

	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, filePath, other, nil).Code)
	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodDelete, filePath, other, nil).Code)
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodDelete, filePath, owner, nil).Code)
	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodGet, filePath, owner, nil).Code)
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)
	for _, path := range []string{"/health", "/health/ready", "/health/live"} {
		assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, path, "", nil).Code, path)
	}
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/api/v1/payments/fees", "", nil).Code)
}

func TestRespondError(t *testing.T) {
	h := &Handler{logger: zap.NewNop()}

	tests := []struct {
		err    error
		status int
	}{
		{apperr.NotFound("x"), http.StatusNotFound},
		{apperr.Forbidden("x"), http.StatusForbidden},
		{apperr.Unauthorized("x"), http.StatusUnauthorized},
		{apperr.InvalidState("x"), http.StatusBadRequest},
		{apperr.Validation("x"), http.StatusUnprocessableEntity},
		{apperr.Conflict("x"), http.StatusConflict},
		{assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		h.respondError(c, tt.err)
		assert.Equal(t, tt.status, w.Code, tt.err.Error())
	}
}
