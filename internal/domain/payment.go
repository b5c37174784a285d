package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusUnallocated PaymentStatus = "UNALLOCATED"
	PaymentStatusAllocated   PaymentStatus = "ALLOCATED"
)

const PaymentCodePrefix = "PM-"

// Payment is a received amount not yet matched against an invoice.
type Payment struct {
	ID            int32         `json:"id"`
	Code          string        `json:"code"`
	ReservationID int32         `json:"reservation_id"`
	PayerName     string        `json:"payer_name"`
	Amount        int32         `json:"amount"`
	Category      string        `json:"category"`
	Status        PaymentStatus `json:"status"`
	PaidAt        time.Time     `json:"paid_at"`
	CreatedBy     int32         `json:"created_by"`
	CreatedOn     time.Time     `json:"created_on"`
}

type CodeKind string

const (
	CodeKindReservation CodeKind = "reservation"
	CodeKindPayment     CodeKind = "payment"
)

func (k CodeKind) Prefix() string {
	switch k {
	case CodeKindReservation:
		return ReservationCodePrefix
	case CodeKindPayment:
		return PaymentCodePrefix
	}
	return ""
}
