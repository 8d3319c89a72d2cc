// Package enrollment tracks which courses a viewer owns or is paying for, and
// runs the manual payment workflow that turns a purchase intent into an
// enrollment request an admin can approve.
package enrollment

import (
	"time"

	"github.com/irsalhamdi/course-market/core/payment"
)

// Status of an enrollment request.
type Status string

const (
	StatusPaymentPending Status = "payment_pending"
	StatusApproved       Status = "approved"
	StatusRejected       Status = "rejected"
)

type Enrollment struct {
	ID        string        `json:"id" db:"enrollment_id"`
	StudentID string        `json:"studentId" db:"student_id"`
	CourseID  string        `json:"courseId" db:"course_id"`
	Progress  int           `json:"progress" db:"progress"`
	CreatedAt time.Time     `json:"createdAt" db:"created_at"`
	Course    CourseSummary `json:"course" db:"course"`
}

// CourseSummary is the course information shown next to an enrollment or
// request.
type CourseSummary struct {
	Title         string `json:"title" db:"title"`
	Description   string `json:"description" db:"description"`
	ThumbnailURL  string `json:"thumbnailUrl" db:"thumbnail_url"`
	PriceINR      int    `json:"priceInr" db:"price_inr"`
	CategoryName  string `json:"categoryName" db:"category_name"`
	CategoryIcon  string `json:"categoryIcon" db:"category_icon"`
	CategoryColor string `json:"categoryColor" db:"category_color"`
}

type Request struct {
	ID        string         `json:"id" db:"request_id"`
	UserID    string         `json:"userId" db:"user_id"`
	CourseID  string         `json:"courseId" db:"course_id"`
	PaymentID string         `json:"paymentId" db:"payment_id"`
	Status    Status         `json:"status" db:"status"`
	CreatedAt time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time      `json:"updatedAt" db:"updated_at"`
	Course    CourseSummary  `json:"course" db:"course"`
	Payment   PaymentSummary `json:"payment" db:"payment"`
}

// PaymentSummary is the payment nested in a Request. An empty Status means
// the payment could not be joined.
type PaymentSummary struct {
	Status        payment.Status  `json:"status" db:"status"`
	Amount        int             `json:"amount" db:"amount"`
	TransactionID *string         `json:"transactionId" db:"transaction_id"`
	Method        *payment.Method `json:"paymentMethod" db:"payment_method"`
}

type ProgressUp struct {
	Progress int `json:"progress" validate:"gte=0,lte=100"`
}

// Stats summarise a dashboard.
type Stats struct {
	Enrolled   int `json:"enrolled"`
	Completed  int `json:"completed"`
	InProgress int `json:"inProgress"`
}

func Summarize(es []Enrollment) Stats {
	s := Stats{Enrolled: len(es)}
	for _, e := range es {
		if e.Progress >= 100 {
			s.Completed++
		}
	}
	s.InProgress = s.Enrolled - s.Completed
	return s
}
