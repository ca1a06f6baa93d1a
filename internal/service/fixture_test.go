package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"municipality/internal/auth"
	"municipality/internal/cache"
	"municipality/internal/config"
	"municipality/internal/events"
	"municipality/internal/gateway"
	"municipality/internal/models"
	"municipality/internal/repository/repotest"
	"municipality/internal/storage"
)

type fixture struct {
	ctx     context.Context
	now     time.Time
	store   *repotest.Store
	files   *storage.LocalStorage
	events  *events.Recorder
	gateway *gateway.Scripted
	cache   *cache.LocalCache
	tokens  *auth.Service
	deps    Deps

	notifications *NotificationService
	requests      *RequestService
	payments      *PaymentService
	complaints    *ComplaintService
	identity      *IdentityService
	attachments   *AttachmentService
	announcements *AnnouncementService
	feedback      *FeedbackService
}

var testAuthConfig = config.AuthConfig{
	JWTSecret:       "test-secret",
	Issuer:          "municipality",
	TokenTTL:        30 * time.Minute,
	MaxFailedLogins: 5,
	LockoutDuration: 30 * time.Minute,
	BcryptCost:      bcrypt.MinCost,
}

var testPaymentsConfig = config.PaymentsConfig{
	Fees: []config.FeeConfig{
		{RequestType: "Building Permit", Amount: 500},
		{RequestType: "Business License", Amount: 300},
		{RequestType: "Birth Certificate", Amount: 50},
		{RequestType: "Marriage Certificate", Amount: 75},
		{RequestType: "Residency Certificate", Amount: 40},
		{RequestType: "Tax Clearance", Amount: 100},
		{RequestType: "Land Registry", Amount: 1000},
		{RequestType: "Other", Amount: 100},
	},
	DefaultFee:  100,
	MaxAttempts: 3,
	Municipality: models.MunicipalityInfo{
		Name:  "City Municipality",
		Email: "info@municipality.gov",
	},
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		ctx:     context.Background(),
		now:     time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		store:   repotest.New(t),
		files:   storage.NewLocalStorage(t.TempDir()),
		events:  &events.Recorder{},
		gateway: gateway.NewScripted(),
		cache:   cache.NewLocal(),
	}

	deps := Deps{
		Store:     f.store,
		Publisher: f.events,
		Logger:    zap.NewNop(),
		Clock:     func() time.Time { return f.now },
	}
	f.deps = deps
	f.tokens = auth.NewService(testAuthConfig, f.cache)
	f.notifications = NewNotificationService(deps, f.cache, nil, time.Minute)
	f.requests = NewRequestService(deps, f.notifications, f.files)
	f.payments = NewPaymentService(deps, f.gateway, NewFeeTable(testPaymentsConfig), testPaymentsConfig, f.notifications)
	f.complaints = NewComplaintService(deps, f.notifications, f.files)
	f.identity = NewIdentityService(deps, f.tokens, testAuthConfig)
	f.attachments = NewAttachmentService(deps, f.files, 10*1024*1024)
	f.announcements = NewAnnouncementService(deps, f.notifications)
	f.feedback = NewFeedbackService(deps)
	return f
}

// advance moves the fixture clock forward
func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) citizen(t *testing.T, nationalID, firstName, lastName string) *models.Citizen {
	t.Helper()
	hash, err := auth.HashPassword("password123", bcrypt.MinCost)
	require.NoError(t, err)

	account := &models.Account{Email: nationalID + "@example.com", PasswordHash: hash, IsActive: true}
	require.NoError(t, f.store.Accounts().Create(f.ctx, account))

	citizen := &models.Citizen{
		NationalID: nationalID,
		FirstName:  firstName,
		LastName:   lastName,
		AccountID:  uintPtr(account.ID),
	}
	require.NoError(t, f.store.Citizens().Create(f.ctx, citizen))
	return citizen
}

func (f *fixture) employee(t *testing.T, nationalID, firstName, lastName string) *models.Employee {
	t.Helper()
	citizen := f.citizen(t, nationalID, firstName, lastName)

	department := &models.Department{Name: "Dept " + nationalID}
	require.NoError(t, f.store.Departments().Create(f.ctx, department))

	employee := &models.Employee{
		CitizenID:    citizen.ID,
		Position:     "Clerk",
		DepartmentID: department.ID,
		AccountID:    *citizen.AccountID,
	}
	require.NoError(t, f.store.Employees().Create(f.ctx, employee))
	return employee
}

func (f *fixture) submit(t *testing.T, citizenID uint, requestType models.RequestType) *models.Request {
	t.Helper()
	request, err := f.requests.Create(f.ctx, citizenID, models.CreateRequestPayload{RequestType: requestType})
	require.NoError(t, err)
	return request
}

func (f *fixture) approved(t *testing.T, citizenID uint, requestType models.RequestType) *models.Request {
	t.Helper()
	request := f.submit(t, citizenID, requestType)
	request, err := f.requests.UpdateStatus(f.ctx, request.ID, models.StatusApproved, "")
	require.NoError(t, err)
	return request
}

func (f *fixture) notificationsOf(t *testing.T, citizenID uint) []models.Notification {
	t.Helper()
	notifications, err := f.store.Notifications().ListByCitizen(f.ctx, citizenID, false)
	require.NoError(t, err)
	return notifications
}
