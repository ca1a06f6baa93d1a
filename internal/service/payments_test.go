package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"municipality/internal/apperr"
	"municipality/internal/events"
	"municipality/internal/gateway"
	"municipality/internal/models"
)

func TestPaymentService_HappyPath(t *testing.T) {
	f := newFixture(t)
	citizen := f.citizen(t, "NID-1", "Ana", "Silva")
	employee := f.employee(t, "NID-7", "Bruno", "Costa")

	request := f.submit(t, citizen.ID, models.RequestTypeBuildingPermit)
	_, err := f.requests.Assign(f.ctx, request.ID, employee.ID)
	require.NoError(t, err)
	_, err = f.requests.UpdateStatus(f.ctx, request.ID, models.StatusApproved, "")
	require.NoError(t, err)

	f.gateway.Approve("GW-123")
	result, err := f.payments.Pay(f.ctx, citizen.ID, request.ID, models.PaymentMethodCreditCard)
	require.NoError(t, err)
	require.True(t, result.Approved)

	payment := result.Payment
	assert.Equal(t, models.StatusCompleted, payment.Status)
	assert.Equal(t, 500.0, payment.Amount)
	assert.Equal(t, 1, payment.RetryCount)
	require.NotNil(t, payment.TransactionID)
	assert.Equal(t, "GW-123", *payment.TransactionID)

	stored, err := f.store.Requests().GetByID(f.ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, stored.Status)

	require.Equal(t, 1, f.gateway.CallCount())
	assert.Equal(t, 500.0, f.gateway.Calls[0].Amount)
	assert.Equal(t, models.PaymentMethodCreditCard, f.gateway.Calls[0].Method)
	assert.Equal(t, "payment-1-1", f.gateway.Calls[0].IdempotencyKey)

	notifications := f.notificationsOf(t, citizen.ID)
	assert.Equal(t, "Payment Successful", notifications[0].Title)
	assert.Equal(t, "Your payment of $500 has been received successfully.", notifications[0].Message)
	assert.Equal(t, models.NotificationPaymentReminder, notifications[0].NotificationType)
	assert.Contains(t, f.events.Types(), events.PaymentCompleted)

	t.Run("SecondPaymentRejected", func(t *testing.T) {
		_, err := f.payments.Pay(f.ctx, citizen.ID, request.ID, models.PaymentMethodCash)
		assert.True(t, apperr.Is(err, apperr.KindInvalidState))
	})

	t.Run("Receipt", func(t *testing.T) {
		receipt, err := f.payments.Receipt(f.ctx, payment.ID)
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^RCP-20240315103000-\d{4}$`), receipt.ReceiptNumber)
		assert.Equal(t, "Ana Silva", receipt.CitizenName)
		assert.Equal(t, models.RequestTypeBuildingPermit, receipt.RequestType)
		assert.Equal(t, "City Municipality", receipt.MunicipalityInfo.Name)
	})
}

func TestPaymentService_GeneratesTransactionID(t *testing.T) {
	f := newFixture(t)
	citizen := f.citizen(t, "NID-1", "Ana", "Silva")
	request := f.approved(t, citizen.ID, models.RequestTypeBirthCertificate)

	result, err := f.payments.Pay(f.ctx, citizen.ID, request.ID, models.PaymentMethodEWallet)
	require.NoError(t, err)
	require.NotNil(t, result.Payment.TransactionID)
	assert.Regexp(t, `^TXN-20240315103000-[0-9A-F]{6}$`, *result.Payment.TransactionID)
	assert.Equal(t, 50.0, result.Payment.Amount)
}

func TestPaymentService_Preconditions(t *testing.T) {
	f := newFixture(t)
	owner := f.citizen(t, "NID-1", "Ana", "Silva")
	other := f.citizen(t, "NID-2", "Rui", "Lopes")

	submitted := f.submit(t, owner.ID, models.RequestTypeOther)
	approved := f.approved(t, owner.ID, models.RequestTypeOther)

	tests := []struct {
		name      string
		citizenID uint
		requestID uint
		method    models.PaymentMethod
		wantKind  apperr.Kind
		wantMsg   string
	}{
		{"MissingRequest", owner.ID, 999, models.PaymentMethodCash, apperr.KindNotFound, "Request not found"},
		{"NotOwner", other.ID, approved.ID, models.PaymentMethodCash, apperr.KindForbidden, "You can only pay for your own requests"},
		{"NotApproved", owner.ID, submitted.ID, models.PaymentMethodCash, apperr.KindInvalidState, "Request must be approved before payment"},
		{"UnknownMethod", owner.ID, approved.ID, "Cheque", apperr.KindValidation, "Invalid payment method: Cheque"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.payments.Pay(f.ctx, tt.citizenID, tt.requestID, tt.method)
			assert.True(t, apperr.Is(err, tt.wantKind), "got %v", err)
			assert.Equal(t, tt.wantMsg, apperr.MessageOf(err))
		})
	}
	assert.Zero(t, f.gateway.CallCount())
}

func TestPaymentService_AttemptLimit(t *testing.T) {
	f := newFixture(t)
	citizen := f.citizen(t, "NID-1", "Ana", "Silva")
	request := f.approved(t, citizen.ID, models.RequestTypeLandRegistry)

	f.gateway.Decline().Decline().Decline()
	for attempt := 1; attempt <= 3; attempt++ {
		result, err := f.payments.Pay(f.ctx, citizen.ID, request.ID, models.PaymentMethodDebitCard)
		require.NoError(t, err)
		assert.False(t, result.Approved)
		assert.Equal(t, "Payment declined by bank", result.Message)
		assert.Equal(t, models.StatusFailed, result.Payment.Status)
		assert.Equal(t, attempt, result.Payment.RetryCount)
	}

	_, err := f.payments.Pay(f.ctx, citizen.ID, request.ID, models.PaymentMethodDebitCard)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
	assert.Equal(t, "Maximum payment attempts (3) exceeded. Please contact support.", apperr.MessageOf(err))
	assert.Equal(t, 3, f.gateway.CallCount(), "the rejected attempt never reaches the gateway")

	payment, err := f.store.Payments().GetByRequestID(f.ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, payment.RetryCount)
	assert.Equal(t, models.StatusFailed, payment.Status)

	stored, err := f.store.Requests().GetByID(f.ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, stored.Status)
	assert.Equal(t, []string{events.PaymentFailed, events.PaymentFailed, events.PaymentFailed}, filterPayments(f.events.Types()))
}

func TestPaymentService_RetryAfterFailureSucceeds(t *testing.T) {
	f := newFixture(t)
	citizen := f.citizen(t, "NID-1", "Ana", "Silva")
	request := f.approved(t, citizen.ID, models.RequestTypeOther)

	f.gateway.Fail(errors.New("connection reset")).Approve("GW-9")

	first, err := f.payments.Pay(f.ctx, citizen.ID, request.ID, models.PaymentMethodCreditCard)
	require.NoError(t, err)
	assert.False(t, first.Approved)
	assert.Equal(t, "Payment processor unavailable", first.Message)

	second, err := f.payments.Pay(f.ctx, citizen.ID, request.ID, models.PaymentMethodBankTransfer)
	require.NoError(t, err)
	assert.True(t, second.Approved)
	assert.Equal(t, 2, second.Payment.RetryCount)
	assert.Equal(t, models.PaymentMethodBankTransfer, second.Payment.PaymentMethod)
	assert.Equal(t, first.Payment.ID, second.Payment.ID)
}

func TestPaymentService_CompletionRollsBackWhenRequestWriteFails(t *testing.T) {
	f := newFixture(t)
	citizen := f.citizen(t, "NID-1", "Ana", "Silva")
	request := f.approved(t, citizen.ID, models.RequestTypeOther)

	f.store.FailOn["requests.update"] = errors.New("disk full")
	_, err := f.payments.Pay(f.ctx, citizen.ID, request.ID, models.PaymentMethodCreditCard)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInternal))

	payment, err := f.store.Payments().GetByRequestID(f.ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, payment.Status, "completion was rolled back")
	assert.Nil(t, payment.TransactionID)

	stored, err := f.store.Requests().GetByID(f.ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, stored.Status)
}

func TestPaymentService_ReceiptRequiresCompletion(t *testing.T) {
	f := newFixture(t)
	citizen := f.citizen(t, "NID-1", "Ana", "Silva")
	request := f.approved(t, citizen.ID, models.RequestTypeOther)

	f.gateway.Decline()
	result, err := f.payments.Pay(f.ctx, citizen.ID, request.ID, models.PaymentMethodCash)
	require.NoError(t, err)

	_, err = f.payments.Receipt(f.ctx, result.Payment.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
	assert.Equal(t, "Receipt only available for completed payments", apperr.MessageOf(err))
}

func TestPaymentService_Queries(t *testing.T) {
	f := newFixture(t)
	citizen := f.citizen(t, "NID-1", "Ana", "Silva")
	request := f.approved(t, citizen.ID, models.RequestTypeBusinessLicense)
	_, err := f.payments.Pay(f.ctx, citizen.ID, request.ID, models.PaymentMethodCash)
	require.NoError(t, err)

	detail, err := f.payments.GetForRequest(f.ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, citizen.ID, detail.CitizenID)
	assert.Equal(t, models.RequestTypeBusinessLicense, detail.RequestType)

	_, err = f.payments.GetForRequest(f.ctx, 999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	mine, err := f.payments.ListForCitizen(f.ctx, citizen.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	completed, err := f.payments.List(f.ctx, "COMPLETED", 0, 100)
	require.NoError(t, err)
	assert.Len(t, completed, 1)

	failed, err := f.payments.List(f.ctx, "FAILED", 0, 100)
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestFeeTable(t *testing.T) {
	table := NewFeeTable(testPaymentsConfig)
	assert.Equal(t, 1000.0, table.Amount(models.RequestTypeLandRegistry))
	assert.Equal(t, 40.0, table.Amount(models.RequestTypeResidencyCertificate))
	assert.Equal(t, 100.0, table.Amount("Unlisted"))
	assert.Len(t, table.Table(), 8)
}

func filterPayments(types []string) []string {
	var out []string
	for _, eventType := range types {
		if eventType == events.PaymentCompleted || eventType == events.PaymentFailed {
			out = append(out, eventType)
		}
	}
	return out
}

func TestPaymentService_ChargeOutlivesCallerDeadline(t *testing.T) {
	f := newFixture(t)
	citizen := f.citizen(t, "NID-1", "Ana", "Silva")
	request := f.approved(t, citizen.ID, models.RequestTypeOther)

	slow := gateway.NewSimulated(50*time.Millisecond, 1, zap.NewNop())
	payments := NewPaymentService(f.deps, slow, NewFeeTable(testPaymentsConfig), testPaymentsConfig, f.notifications)

	ctx, cancel := context.WithTimeout(f.ctx, 5*time.Millisecond)
	defer cancel()
	result, err := payments.Pay(ctx, citizen.ID, request.ID, models.PaymentMethodCreditCard)
	require.NoError(t, err)
	assert.True(t, result.Approved)
	assert.Equal(t, models.StatusCompleted, result.Payment.Status)
	assert.Equal(t, 1, result.Payment.RetryCount)

	stored, err := f.store.Requests().GetByID(f.ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, stored.Status)
}

func TestPaymentService_ChargeKeyChangesPerAttempt(t *testing.T) {
	f := newFixture(t)
	citizen := f.citizen(t, "NID-1", "Ana", "Silva")
	request := f.approved(t, citizen.ID, models.RequestTypeOther)

	f.gateway.Decline().Approve("GW-2")
	for i := 0; i < 2; i++ {
		_, err := f.payments.Pay(f.ctx, citizen.ID, request.ID, models.PaymentMethodCreditCard)
		require.NoError(t, err)
	}

	require.Equal(t, 2, f.gateway.CallCount())
	assert.Equal(t, "payment-1-1", f.gateway.Calls[0].IdempotencyKey)
	assert.Equal(t, "payment-1-2", f.gateway.Calls[1].IdempotencyKey)
}
