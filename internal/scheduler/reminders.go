package scheduler

import (
	"context"

	"go.uber.org/zap"
)

// ReminderSender sends the daily payment reminders
type ReminderSender interface {
	SendPaymentReminders(ctx context.Context) (int, error)
}

// PaymentReminderHandler reminds citizens of approved requests awaiting payment
type PaymentReminderHandler struct {
	sender ReminderSender
	logger *zap.Logger
}

// NewPaymentReminderHandler creates the reminder task handler
func NewPaymentReminderHandler(sender ReminderSender, logger *zap.Logger) *PaymentReminderHandler {
	return &PaymentReminderHandler{sender: sender, logger: logger.Named("payment_reminders")}
}

func (h *PaymentReminderHandler) Name() string { return "Payment Reminders" }

func (h *PaymentReminderHandler) Execute(ctx context.Context) error {
	sent, err := h.sender.SendPaymentReminders(ctx)
	if err != nil {
		return err
	}
	h.logger.Info("Payment reminders sent", zap.Int("count", sent))
	return nil
}
