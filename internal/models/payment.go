package models

import "time"

// PaymentMethod is how a citizen settles a request fee
type PaymentMethod string

const (
	PaymentMethodCreditCard   PaymentMethod = "Credit Card"
	PaymentMethodDebitCard    PaymentMethod = "Debit Card"
	PaymentMethodBankTransfer PaymentMethod = "Bank Transfer"
	PaymentMethodCash         PaymentMethod = "Cash"
	PaymentMethodEWallet      PaymentMethod = "E-Wallet"
)

// PaymentMethods lists every accepted payment method
var PaymentMethods = []PaymentMethod{
	PaymentMethodCreditCard,
	PaymentMethodDebitCard,
	PaymentMethodBankTransfer,
	PaymentMethodCash,
	PaymentMethodEWallet,
}

// Valid reports whether m is a known payment method
func (m PaymentMethod) Valid() bool {
	for _, known := range PaymentMethods {
		if known == m {
			return true
		}
	}
	return false
}

// Payment is the single fee transaction attached to a request
type Payment struct {
	ID            uint          `json:"payment_id" gorm:"primaryKey"`
	RequestID     uint          `json:"request_id" gorm:"not null;uniqueIndex"`
	Amount        float64       `json:"amount" gorm:"not null"`
	PaymentDate   time.Time     `json:"payment_date" gorm:"not null"`
	Status        Status        `json:"status" gorm:"type:varchar(32);not null;default:'PENDING';index"`
	TransactionID *string       `json:"transaction_id" gorm:"type:varchar(64);uniqueIndex"`
	PaymentMethod PaymentMethod `json:"payment_method" gorm:"type:varchar(50);not null"`
	RetryCount    int           `json:"retry_count" gorm:"not null;default:0"`
}

// PaymentDetail is a payment with the request type and payer name
type PaymentDetail struct {
	Payment
	RequestType RequestType `json:"request_type"`
	CitizenID   uint        `json:"citizen_id"`
	CitizenName string      `json:"citizen_name"`
}

// MunicipalityInfo is printed on receipts
type MunicipalityInfo struct {
	Name    string `json:"name" mapstructure:"name"`
	Address string `json:"address" mapstructure:"address"`
	Phone   string `json:"phone" mapstructure:"phone"`
	Email   string `json:"email" mapstructure:"email"`
}

// PaymentReceipt is issued for completed payments only
type PaymentReceipt struct {
	PaymentID        uint             `json:"payment_id"`
	TransactionID    string           `json:"transaction_id"`
	RequestID        uint             `json:"request_id"`
	RequestType      RequestType      `json:"request_type"`
	CitizenName      string           `json:"citizen_name"`
	Amount           float64          `json:"amount"`
	PaymentDate      time.Time        `json:"payment_date"`
	PaymentMethod    PaymentMethod    `json:"payment_method"`
	ReceiptNumber    string           `json:"receipt_number"`
	MunicipalityInfo MunicipalityInfo `json:"municipality_info"`
}

// PaymentFilter narrows an employee listing of payments
type PaymentFilter struct {
	Status *Status
	Skip   int
	Limit  int
}

// CreatePaymentPayload is the body of a payment attempt. Card fields are
// accepted for client compatibility and never stored.
type CreatePaymentPayload struct {
	RequestID     uint          `json:"request_id" binding:"required"`
	PaymentMethod PaymentMethod `json:"payment_method" binding:"required,payment_method"`
	CardNumber    string        `json:"card_number" binding:"omitempty,len=16,numeric"`
	CardHolder    string        `json:"card_holder" binding:"max=100"`
	CVV           string        `json:"cvv" binding:"omitempty,min=3,max=4,numeric"`
	ExpiryDate    string        `json:"expiry_date" binding:"omitempty,datetime=01/06"`
}
