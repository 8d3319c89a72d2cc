// Package payment records self-reported manual payments. A payment starts
// pending and becomes completed when its owner submits the transaction id
// their payment app showed them; nothing here verifies that id.
package payment

import "time"

type Status string

const (
	Pending   Status = "pending"
	Completed Status = "completed"
)

type Method string

const (
	GooglePay Method = "googlepay"
	PhonePe   Method = "phonepe"
	Paytm     Method = "paytm"
	Other     Method = "other"
)

// Methods lists the accepted payment methods in display order.
var Methods = []MethodOption{
	{GooglePay, "Google Pay"},
	{PhonePe, "PhonePe"},
	{Paytm, "Paytm"},
	{Other, "Other UPI"},
}

type MethodOption struct {
	Value Method `json:"value"`
	Label string `json:"label"`
}

const CurrencyINR = "INR"

type Payment struct {
	ID            string    `json:"id" db:"payment_id"`
	UserID        string    `json:"userId" db:"user_id"`
	CourseID      string    `json:"courseId" db:"course_id"`
	Amount        int       `json:"amount" db:"amount"`
	Currency      string    `json:"currency" db:"currency"`
	Status        Status    `json:"status" db:"status"`
	TransactionID *string   `json:"transactionId" db:"transaction_id"`
	Method        *Method   `json:"paymentMethod" db:"payment_method"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// Completion is the evidence a user submits for one of their payments.
type Completion struct {
	ID            string    `db:"payment_id"`
	UserID        string    `db:"user_id"`
	Status        Status    `db:"status"`
	TransactionID string    `db:"transaction_id"`
	Method        Method    `db:"payment_method"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Apply returns p as it looks after c is written.
func (c Completion) Apply(p Payment) Payment {
	txID, m := c.TransactionID, c.Method
	p.Status = Completed
	p.TransactionID = &txID
	p.Method = &m
	p.UpdatedAt = c.UpdatedAt
	return p
}
