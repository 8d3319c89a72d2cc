package enrollment

import (
	"github.com/irsalhamdi/course-market/core/claims"
	"github.com/irsalhamdi/course-market/core/payment"
)

// State is the viewer's relationship to one course.
type State string

const (
	Unauthenticated State = "unauthenticated"
	Enrolled        State = "enrolled"
	PaymentPending  State = "payment_pending"
	NotEnrolled     State = "not_enrolled"
)

// CTA is the call to action shown for the state.
func (s State) CTA() string {
	switch s {
	case Unauthenticated:
		return "Login to Enroll"
	case Enrolled:
		return "Enrolled"
	case PaymentPending:
		return "Complete Payment"
	default:
		return "Enroll Now"
	}
}

// Classify picks the first matching state in order: no viewer, an
// enrollment for the course, a request for the course whose payment is not
// completed, and otherwise not enrolled. A request whose payment is already
// completed does not count as pending.
func Classify(viewer *claims.Claims, courseID string, enrollments []Enrollment, requests []Request) State {
	if viewer == nil {
		return Unauthenticated
	}

	for _, e := range enrollments {
		if e.CourseID == courseID {
			return Enrolled
		}
	}

	for _, r := range requests {
		if r.CourseID == courseID && r.Payment.Status != payment.Completed {
			return PaymentPending
		}
	}

	return NotEnrolled
}
