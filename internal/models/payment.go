package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusCompleted  PaymentStatus = "COMPLETED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusCancelled  PaymentStatus = "CANCELLED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
	PaymentStatusExpired    PaymentStatus = "EXPIRED"
)

// Terminal reports whether no further automatic transition can happen.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled,
		PaymentStatusRefunded, PaymentStatusExpired:
		return true
	}
	return false
}

type PaymentSession struct {
	PaymentID     string          `json:"payment_id"`
	OrderID       string          `json:"order_id"`
	CustomerID    string          `json:"customer_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	MerchantID    string          `json:"merchant_id"`
	CustomerEmail string          `json:"customer_email"`
	Description   string          `json:"description"`
	PaymentURL    string          `json:"payment_url,omitempty"`
	ExpiresAt     time.Time       `json:"expires_at"`
	Status        PaymentStatus   `json:"status"`
}

type PaymentResult struct {
	PaymentID     string          `json:"payment_id"`
	Status        PaymentStatus   `json:"status"`
	TransactionID *string         `json:"transaction_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	ProcessedAt   time.Time       `json:"processed_at"`
	ErrorMessage  *string         `json:"error_message,omitempty"`
}
