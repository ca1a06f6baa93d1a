package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"municipality/internal/auth"
	"municipality/internal/cache"
	"municipality/internal/config"
	"municipality/internal/events"
	"municipality/internal/gateway"
	"municipality/internal/middleware"
	"municipality/internal/models"
	"municipality/internal/policy"
	"municipality/internal/repository/repotest"
	"municipality/internal/service"
	"municipality/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type streamRecorder struct {
	citizens []uint
}

func (s *streamRecorder) Serve(w http.ResponseWriter, r *http.Request, citizenID uint) error {
	s.citizens = append(s.citizens, citizenID)
	w.WriteHeader(http.StatusSwitchingProtocols)
	return nil
}

type testApp struct {
	router   *gin.Engine
	store    *repotest.Store
	gateway  *gateway.Scripted
	identity *service.IdentityService
	stream   *streamRecorder
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	authConfig := config.AuthConfig{
		JWTSecret:       "test-secret",
		Issuer:          "municipality",
		TokenTTL:        30 * time.Minute,
		MaxFailedLogins: 5,
		LockoutDuration: 30 * time.Minute,
		BcryptCost:      bcrypt.MinCost,
	}
	paymentsConfig := config.PaymentsConfig{
		Fees: []config.FeeConfig{
			{RequestType: string(models.RequestTypeBirthCertificate), Amount: 50},
			{RequestType: string(models.RequestTypeBuildingPermit), Amount: 500},
		},
		DefaultFee:  100,
		MaxAttempts: 3,
	}

	app := &testApp{
		store:   repotest.New(t),
		gateway: gateway.NewScripted(),
		stream:  &streamRecorder{},
	}
	local := cache.NewLocal()
	tokens := auth.NewService(authConfig, local)
	deps := service.Deps{Store: app.store, Publisher: events.Nop{}, Logger: zap.NewNop()}

	notifications := service.NewNotificationService(deps, local, nil, time.Minute)
	app.identity = service.NewIdentityService(deps, tokens, authConfig)
	files := storage.NewLocalStorage(t.TempDir())
	services := Services{
		Identity:      app.identity,
		Requests:      service.NewRequestService(deps, notifications, files),
		Payments:      service.NewPaymentService(deps, app.gateway, service.NewFeeTable(paymentsConfig), paymentsConfig, notifications),
		Complaints:    service.NewComplaintService(deps, notifications, files),
		Notifications: notifications,
		Attachments:   service.NewAttachmentService(deps, files, 1024),
		Announcements: service.NewAnnouncementService(deps, notifications),
		Feedback:      service.NewFeedbackService(deps),
	}

	authorizer, err := policy.New(policy.DefaultRules, zap.NewNop())
	require.NoError(t, err)

	h := New(services, authorizer, app.stream, app.store.AuditLogs(), zap.NewNop())
	app.router = gin.New()
	h.Routes(app.router.Group("/api/v1"), middleware.Auth(tokens, zap.NewNop()))
	NewHealthHandler(app.store, "test", zap.NewNop()).Routes(app.router)
	return app
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), target), w.Body.String())
}

// citizen registers a citizen and returns its access token
func (a *testApp) citizen(t *testing.T, email, nationalID string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":         email,
		"password":      "password123",
		"national_id":   nationalID,
		"first_name":    "Test",
		"last_name":     "Citizen",
		"date_of_birth": "1990-01-01",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var token models.Token
	decode(t, w, &token)
	return token.AccessToken
}

// employee registers a citizen, promotes it and returns an employee token
func (a *testApp) employee(t *testing.T, email, nationalID string) (string, uint) {
	t.Helper()
	return a.staff(t, email, nationalID, models.ClearanceEmployee)
}

// staff is employee with a chosen access clearance
func (a *testApp) staff(t *testing.T, email, nationalID string, clearance models.AccessClearance) (string, uint) {
	t.Helper()
	a.citizen(t, email, nationalID)

	department := &models.Department{Name: "Department " + nationalID}
	require.NoError(t, a.store.Departments().Create(context.Background(), department))

	employee, err := a.identity.RegisterEmployee(context.Background(), models.RegisterEmployeePayload{
		Email:           email,
		Password:        "password123",
		NationalID:      nationalID,
		Position:        "Clerk",
		EmploymentType:  models.EmploymentFullTime,
		AccessClearance: clearance,
		DepartmentID:    department.ID,
		StartDate:       "2024-01-01",
		Salary:          2500,
	})
	require.NoError(t, err)

	w := a.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var token models.Token
	decode(t, w, &token)
	require.Equal(t, policy.RoleEmployee, token.Role)
	return token.AccessToken, employee.ID
}
