package service

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"municipality/internal/apperr"
	"municipality/internal/config"
	"municipality/internal/events"
	"municipality/internal/gateway"
	"municipality/internal/models"
	"municipality/internal/repository"
)

const messageProcessorUnavailable = "Payment processor unavailable"

// PaymentResult is the outcome of one payment attempt
type PaymentResult struct {
	Payment  *models.Payment
	Approved bool
	Message  string
}

// PaymentService charges request fees through the gateway
type PaymentService struct {
	Deps
	gateway      gateway.Gateway
	fees         FeeTable
	maxAttempts  int
	municipality models.MunicipalityInfo
	notifier     Notifier
	logger       *zap.Logger
}

// NewPaymentService creates a payment service
func NewPaymentService(deps Deps, gw gateway.Gateway, fees FeeTable, cfg config.PaymentsConfig, notifier Notifier) *PaymentService {
	deps = deps.withDefaults()
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &PaymentService{
		Deps:         deps,
		gateway:      gw,
		fees:         fees,
		maxAttempts:  maxAttempts,
		municipality: cfg.Municipality,
		notifier:     notifier,
		logger:       deps.Logger.Named("payment_service"),
	}
}

// Pay attempts to pay the fee of an approved request owned by citizenID.
// A declined charge is not an error: the result carries the FAILED payment.
func (s *PaymentService) Pay(ctx context.Context, citizenID, requestID uint, method models.PaymentMethod) (*PaymentResult, error) {
	if !method.Valid() {
		return nil, apperr.Validation("Invalid payment method: %s", method)
	}

	var payment *models.Payment
	err := s.Store.WithinTx(ctx, func(tx repository.Store) error {
		request, err := tx.Requests().GetByID(ctx, requestID)
		if err != nil {
			return lookupErr(err, "Request not found")
		}
		if request.CitizenID != citizenID {
			return apperr.Forbidden("You can only pay for your own requests")
		}
		if request.Status != models.StatusApproved {
			return apperr.InvalidState("Request must be approved before payment")
		}

		payment, err = tx.Payments().GetByRequestID(ctx, requestID)
		switch {
		case err == nil:
			if payment.Status == models.StatusCompleted {
				return apperr.InvalidState("Payment already completed for this request")
			}
			if payment.RetryCount >= s.maxAttempts {
				return apperr.InvalidState("Maximum payment attempts (%d) exceeded. Please contact support.", s.maxAttempts)
			}
			payment.RetryCount++
		case errors.Is(err, repository.ErrNotFound):
			payment = &models.Payment{
				RequestID:     requestID,
				Amount:        s.fees.Amount(request.RequestType),
				PaymentDate:   s.Clock(),
				Status:        models.StatusPending,
				PaymentMethod: method,
				RetryCount:    1,
			}
			if err := tx.Payments().Create(ctx, payment); err != nil {
				return storeErr(err, "failed to create payment")
			}
		default:
			return storeErr(err, "failed to load payment")
		}

		payment.PaymentMethod = method
		payment.Status = models.StatusProcessing
		return storeErr(tx.Payments().Update(ctx, payment), "failed to mark payment processing")
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Processing payment",
		zap.Uint("payment_id", payment.ID),
		zap.Uint("request_id", requestID),
		zap.Float64("amount", payment.Amount),
		zap.Int("attempt", payment.RetryCount))
	s.Metrics.Transition("payment", string(models.StatusProcessing))

	// Once the charge is sent its outcome is recorded, even when the caller
	// has gone away.
	ctx = context.WithoutCancel(ctx)
	outcome, err := s.gateway.Charge(ctx, gateway.Charge{
		IdempotencyKey: chargeKey(payment),
		Amount:         payment.Amount,
		Method:         method,
	})
	if err != nil {
		s.logger.Error("Payment gateway call failed", zap.Uint("payment_id", payment.ID), zap.Error(err))
		s.Metrics.PaymentAttempt("error")
		outcome = gateway.Outcome{Success: false, Message: messageProcessorUnavailable}
	} else if outcome.Success {
		s.Metrics.PaymentAttempt("approved")
	} else {
		s.Metrics.PaymentAttempt("declined")
	}

	if !outcome.Success {
		return s.fail(ctx, payment, outcome.Message)
	}
	return s.complete(ctx, payment.ID, citizenID, outcome)
}

// chargeKey identifies one attempt of a payment to the processor
func chargeKey(payment *models.Payment) string {
	return fmt.Sprintf("payment-%d-%d", payment.ID, payment.RetryCount)
}

// complete marks the payment COMPLETED and the request PAID in one unit of work
func (s *PaymentService) complete(ctx context.Context, paymentID, citizenID uint, outcome gateway.Outcome) (*PaymentResult, error) {
	var payment *models.Payment
	err := s.Store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		payment, err = tx.Payments().GetByID(ctx, paymentID)
		if err != nil {
			return lookupErr(err, "Payment not found")
		}

		now := s.Clock()
		transactionID := outcome.TransactionID
		if transactionID == "" {
			transactionID = newTransactionID(now)
		}
		payment.Status = models.StatusCompleted
		payment.TransactionID = &transactionID
		payment.PaymentDate = now
		if err := tx.Payments().Update(ctx, payment); err != nil {
			return storeErr(err, "failed to complete payment")
		}

		request, err := tx.Requests().GetByID(ctx, payment.RequestID)
		if err != nil {
			return lookupErr(err, "Request not found")
		}
		request.Status = models.StatusPaid
		return storeErr(tx.Requests().Update(ctx, request), "failed to mark request paid")
	})
	if err != nil {
		s.logger.Error("Failed to record completed payment", zap.Uint("payment_id", paymentID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Payment completed",
		zap.Uint("payment_id", payment.ID),
		zap.String("transaction_id", *payment.TransactionID))
	s.Metrics.Transition("payment", string(models.StatusCompleted))
	s.Metrics.Transition("request", string(models.StatusPaid))
	s.notifier.Notify(ctx, paymentReceived(citizenID, payment))
	s.publish(ctx, events.PaymentCompleted, paymentKey(payment.ID), payment)

	return &PaymentResult{Payment: payment, Approved: true, Message: outcome.Message}, nil
}

// fail marks the payment FAILED
func (s *PaymentService) fail(ctx context.Context, payment *models.Payment, message string) (*PaymentResult, error) {
	payment.Status = models.StatusFailed
	if err := s.Store.Payments().Update(ctx, payment); err != nil {
		return nil, storeErr(err, "failed to mark payment failed")
	}

	s.logger.Warn("Payment failed",
		zap.Uint("payment_id", payment.ID),
		zap.Int("attempt", payment.RetryCount),
		zap.String("reason", message))
	s.Metrics.Transition("payment", string(models.StatusFailed))
	s.publish(ctx, events.PaymentFailed, paymentKey(payment.ID), payment)

	return &PaymentResult{Payment: payment, Approved: false, Message: message}, nil
}

// Get returns a payment with its request type and payer
func (s *PaymentService) Get(ctx context.Context, id uint) (*models.PaymentDetail, error) {
	payment, err := s.Store.Payments().GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Payment not found")
	}
	return s.detail(ctx, payment)
}

// GetForRequest returns the payment attached to a request
func (s *PaymentService) GetForRequest(ctx context.Context, requestID uint) (*models.PaymentDetail, error) {
	payment, err := s.Store.Payments().GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, lookupErr(err, "Payment not found for this request")
	}
	return s.detail(ctx, payment)
}

func (s *PaymentService) detail(ctx context.Context, payment *models.Payment) (*models.PaymentDetail, error) {
	request, err := s.Store.Requests().GetByID(ctx, payment.RequestID)
	if err != nil {
		return nil, lookupErr(err, "Request not found")
	}
	return &models.PaymentDetail{
		Payment:     *payment,
		RequestType: request.RequestType,
		CitizenID:   request.CitizenID,
		CitizenName: citizenName(ctx, s.Store, request.CitizenID),
	}, nil
}

// ListForCitizen returns the payments of citizenID, newest first
func (s *PaymentService) ListForCitizen(ctx context.Context, citizenID uint) ([]models.Payment, error) {
	payments, err := s.Store.Payments().ListByCitizen(ctx, citizenID)
	if err != nil {
		return nil, storeErr(err, "failed to list payments")
	}
	return payments, nil
}

// List returns payments for employees. An unknown status filter is ignored.
func (s *PaymentService) List(ctx context.Context, status string, skip, limit int) ([]models.Payment, error) {
	skip, limit = clampPage(skip, limit)
	filter := models.PaymentFilter{Skip: skip, Limit: limit}
	if status != "" {
		if parsed, ok := models.PaymentStatuses.Parse(status); ok {
			filter.Status = &parsed
		} else {
			s.logger.Warn("Ignoring unknown payment status filter", zap.String("status", status))
		}
	}

	payments, err := s.Store.Payments().List(ctx, filter)
	if err != nil {
		return nil, storeErr(err, "failed to list payments")
	}
	return payments, nil
}

// Receipt builds the receipt of a completed payment
func (s *PaymentService) Receipt(ctx context.Context, id uint) (*models.PaymentReceipt, error) {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail.Status != models.StatusCompleted {
		return nil, apperr.InvalidState("Receipt only available for completed payments")
	}

	transactionID := ""
	if detail.TransactionID != nil {
		transactionID = *detail.TransactionID
	}
	return &models.PaymentReceipt{
		PaymentID:        detail.ID,
		TransactionID:    transactionID,
		RequestID:        detail.RequestID,
		RequestType:      detail.RequestType,
		CitizenName:      detail.CitizenName,
		Amount:           detail.Amount,
		PaymentDate:      detail.PaymentDate,
		PaymentMethod:    detail.PaymentMethod,
		ReceiptNumber:    newReceiptNumber(s.Clock()),
		MunicipalityInfo: s.municipality,
	}, nil
}

// FeeStructure returns the configured fee table
func (s *PaymentService) FeeStructure() map[string]float64 {
	return s.fees.Table()
}

// Fee returns the fee charged for requestType
func (s *PaymentService) Fee(requestType models.RequestType) float64 {
	return s.fees.Amount(requestType)
}

func paymentKey(id uint) string {
	return fmt.Sprintf("payment-%d", id)
}
