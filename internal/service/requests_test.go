package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"municipality/internal/apperr"
	"municipality/internal/events"
	"municipality/internal/models"
)

func TestRequestService_Create(t *testing.T) {
	f := newFixture(t)
	citizen := f.citizen(t, "NID-1", "Ana", "Silva")

	t.Run("Submitted", func(t *testing.T) {
		request, err := f.requests.Create(f.ctx, citizen.ID, models.CreateRequestPayload{
			RequestType: models.RequestTypeBirthCertificate,
			Description: "  copy for school  ",
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusSubmitted, request.Status)
		assert.Equal(t, "copy for school", request.Description)
		assert.WithinDuration(t, f.now, request.RequestDate, 0)
		assert.Contains(t, f.events.Types(), events.RequestCreated)
	})

	t.Run("UnknownType", func(t *testing.T) {
		_, err := f.requests.Create(f.ctx, citizen.ID, models.CreateRequestPayload{RequestType: "Fishing License"})
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	})

	t.Run("UnknownCitizen", func(t *testing.T) {
		_, err := f.requests.Create(f.ctx, 999, models.CreateRequestPayload{RequestType: models.RequestTypeOther})
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})
}

func TestRequestService_GetIncludesNames(t *testing.T) {
	f := newFixture(t)
	citizen := f.citizen(t, "NID-1", "Ana", "Silva")
	employee := f.employee(t, "NID-7", "Bruno", "Costa")
	request := f.submit(t, citizen.ID, models.RequestTypeTaxClearance)

	_, err := f.requests.Assign(f.ctx, request.ID, employee.ID)
	require.NoError(t, err)

	detail, err := f.requests.Get(f.ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Silva", detail.CitizenName)
	require.NotNil(t, detail.AssignedEmployeeName)
	assert.Equal(t, "Bruno Costa", *detail.AssignedEmployeeName)

	_, err = f.requests.Get(f.ctx, 404)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestRequestService_AssignAlwaysMovesToUnderReview(t *testing.T) {
	f := newFixture(t)
	citizen := f.citizen(t, "NID-1", "Ana", "Silva")
	employee := f.employee(t, "NID-7", "Bruno", "Costa")
	request := f.approved(t, citizen.ID, models.RequestTypeOther)
	before := len(f.notificationsOf(t, citizen.ID))

	assigned, err := f.requests.Assign(f.ctx, request.ID, employee.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, assigned.Status)
	require.NotNil(t, assigned.AssignedEmployeeID)
	assert.Equal(t, employee.ID, *assigned.AssignedEmployeeID)

	_, err = f.requests.Assign(f.ctx, request.ID, employee.ID)
	require.NoError(t, err)

	notifications := f.notificationsOf(t, citizen.ID)
	assert.Len(t, notifications, before+2)
	assert.Equal(t, "Request Status Update", notifications[0].Title)
	assert.Equal(t, "Your request #1 status has been updated to UNDER_REVIEW", notifications[0].Message)
	assert.Equal(t, models.NotificationRequestUpdate, notifications[0].NotificationType)

	t.Run("MissingEmployee", func(t *testing.T) {
		_, err := f.requests.Assign(f.ctx, request.ID, 999)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	t.Run("MissingRequest", func(t *testing.T) {
		_, err := f.requests.Assign(f.ctx, 999, employee.ID)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})
}

func TestRequestService_UpdateStatus(t *testing.T) {
	f := newFixture(t)
	citizen := f.citizen(t, "NID-1", "Ana", "Silva")

	tests := []struct {
		name     string
		status   models.Status
		reason   string
		wantKind apperr.Kind
	}{
		{"Approve", models.StatusApproved, "", ""},
		{"RejectWithReason", models.StatusRejected, "Missing documents", ""},
		{"RejectWithoutReason", models.StatusRejected, "  ", apperr.KindValidation},
		{"PaidIsReserved", models.StatusPaid, "", apperr.KindInvalidState},
		{"ComplaintStatus", models.StatusResolved, "", apperr.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := f.submit(t, citizen.ID, models.RequestTypeOther)
			updated, err := f.requests.UpdateStatus(f.ctx, request.ID, tt.status, tt.reason)
			if tt.wantKind != "" {
				assert.True(t, apperr.Is(err, tt.wantKind), "got %v", err)
				stored, err := f.store.Requests().GetByID(f.ctx, request.ID)
				require.NoError(t, err)
				assert.Equal(t, models.StatusSubmitted, stored.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.status, updated.Status)
			if tt.status == models.StatusRejected {
				require.NotNil(t, updated.RejectionReason)
				assert.Equal(t, tt.reason, *updated.RejectionReason)
			} else {
				assert.Nil(t, updated.RejectionReason)
			}
		})
	}
}

func TestRequestService_Delete(t *testing.T) {
	f := newFixture(t)
	owner := f.citizen(t, "NID-1", "Ana", "Silva")
	other := f.citizen(t, "NID-2", "Rui", "Lopes")

	t.Run("SubmittedByOwner", func(t *testing.T) {
		request := f.submit(t, owner.ID, models.RequestTypeOther)
		require.NoError(t, f.requests.Delete(f.ctx, request.ID, owner.ID))
		_, err := f.requests.Get(f.ctx, request.ID)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	t.Run("NotOwner", func(t *testing.T) {
		request := f.submit(t, owner.ID, models.RequestTypeOther)
		err := f.requests.Delete(f.ctx, request.ID, other.ID)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	for _, status := range []models.Status{models.StatusApproved, models.StatusRejected, models.StatusUnderReview} {
		t.Run("Rejects"+string(status), func(t *testing.T) {
			request := f.submit(t, owner.ID, models.RequestTypeOther)
			_, err := f.requests.UpdateStatus(f.ctx, request.ID, status, "reason")
			require.NoError(t, err)

			err = f.requests.Delete(f.ctx, request.ID, owner.ID)
			assert.True(t, apperr.Is(err, apperr.KindInvalidState))
			assert.Equal(t, "Only submitted requests can be deleted", apperr.MessageOf(err))
		})
	}
}

func TestRequestService_ListIgnoresUnknownStatus(t *testing.T) {
	f := newFixture(t)
	citizen := f.citizen(t, "NID-1", "Ana", "Silva")
	f.submit(t, citizen.ID, models.RequestTypeOther)
	f.approved(t, citizen.ID, models.RequestTypeOther)

	all, err := f.requests.List(f.ctx, "NOT_A_STATUS", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	approved, err := f.requests.List(f.ctx, "approved", 0, 10)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, models.StatusApproved, approved[0].Status)

	mine, err := f.requests.ListForCitizen(f.ctx, citizen.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}
