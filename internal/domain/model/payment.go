package model

import "time"

type PaymentStatus string

const (
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment is the terminal record of a charge attempt against an invoice.
// ReferenceNumber carries the gateway's charge id.
type Payment struct {
	ID              string // UUID
	InvoiceID       string
	Method          string // payment method code, e.g. "card"
	AmountMinor     int64
	Status          PaymentStatus
	ReferenceNumber string // gateway charge id
	CustomerName    string // as reported by the gateway
	PaymentDate     time.Time
	CreatedAt       time.Time
}
