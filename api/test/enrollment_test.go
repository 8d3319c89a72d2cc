package test

import (
	"net/http"
	"testing"

	"github.com/irsalhamdi/course-market/core/catalog"
	"github.com/irsalhamdi/course-market/core/course"
	"github.com/irsalhamdi/course-market/core/enrollment"
	"github.com/irsalhamdi/course-market/core/payment"
)

func TestEnrollment(t *testing.T) {
	env, err := NewTestEnv(t, "enrollment_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	admin := env.NewClient(t)
	env.Login(t, admin, adminEmail, adminPass)

	var c course.Course
	cn := course.CourseNew{
		Title:       "Web Development Bootcamp",
		Description: "HTML, CSS and JavaScript from scratch",
		Price:       89,
		PriceINR:    7387,
		IsPublished: true,
	}
	if code := env.do(t, admin, http.MethodPost, "/courses", cn, &c); code != http.StatusCreated {
		t.Fatalf("creating course: status %d", code)
	}

	anon := env.NewClient(t)
	if st := courseState(t, env, anon, c.ID); st != enrollment.Unauthenticated {
		t.Fatalf("anonymous state: got %q", st)
	}
	if code := env.do(t, anon, http.MethodPost, "/courses/"+c.ID+"/enroll", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous enroll: expected 401, got %d", code)
	}

	student := env.NewClient(t)
	env.Signup(t, student, "student@example.com")

	if st := courseState(t, env, student, c.ID); st != enrollment.NotEnrolled {
		t.Fatalf("fresh student state: got %q", st)
	}

	var ins payment.Instructions
	if code := env.do(t, student, http.MethodGet, "/courses/"+c.ID+"/payment-instructions", nil, &ins); code != http.StatusOK {
		t.Fatalf("instructions: status %d", code)
	}
	if ins.FormattedAmount != "₹7,387" || ins.ReceiverID != receiverID {
		t.Fatalf("unexpected instructions %+v", ins)
	}

	var er enrollment.EnrollResponse
	if code := env.do(t, student, http.MethodPost, "/courses/"+c.ID+"/enroll", nil, &er); code != http.StatusCreated {
		t.Fatalf("enroll: status %d", code)
	}
	if er.Payment.Amount != 7387 || er.Payment.Status != payment.Pending || er.Message != enrollment.MessageRequestCreated {
		t.Fatalf("unexpected enroll response %+v", er)
	}

	if st := courseState(t, env, student, c.ID); st != enrollment.PaymentPending {
		t.Fatalf("after enroll: got %q", st)
	}
	if code := env.do(t, student, http.MethodPost, "/courses/"+c.ID+"/enroll", nil, nil); code != http.StatusConflict {
		t.Fatalf("second enroll: expected 409, got %d", code)
	}

	confirmPath := "/payments/" + er.Payment.ID + "/confirm"
	if code := env.do(t, student, http.MethodPost, confirmPath, map[string]string{"method": "googlepay"}, nil); code != http.StatusBadRequest {
		t.Fatalf("confirm without transaction id: expected 400, got %d", code)
	}

	other := env.NewClient(t)
	env.Signup(t, other, "other@example.com")
	conf := map[string]string{"transactionId": "UPI123456", "method": "googlepay"}
	if code := env.do(t, other, http.MethodPost, confirmPath, conf, nil); code != http.StatusNotFound {
		t.Fatalf("confirm someone else's payment: expected 404, got %d", code)
	}

	for i := 0; i < 2; i++ {
		var msg struct {
			Message string `json:"message"`
		}
		if code := env.do(t, student, http.MethodPost, confirmPath, conf, &msg); code != http.StatusOK {
			t.Fatalf("confirm #%d: status %d", i+1, code)
		}
		if msg.Message != enrollment.MessagePaymentConfirmed {
			t.Fatalf("confirm #%d: message %q", i+1, msg.Message)
		}
	}

	if st := courseState(t, env, student, c.ID); st != enrollment.NotEnrolled {
		t.Fatalf("after confirmation: got %q", st)
	}
	if code := env.do(t, student, http.MethodPost, "/courses/"+c.ID+"/enroll", nil, nil); code != http.StatusConflict {
		t.Fatalf("enroll while awaiting review: expected 409, got %d", code)
	}

	if code := env.do(t, student, http.MethodGet, "/admin/enrollment-requests", nil, nil); code != http.StatusForbidden {
		t.Fatalf("student on admin route: expected 403, got %d", code)
	}

	var awaiting []enrollment.Request
	if code := env.do(t, admin, http.MethodGet, "/admin/enrollment-requests", nil, &awaiting); code != http.StatusOK {
		t.Fatalf("listing awaiting: status %d", code)
	}
	if len(awaiting) != 1 || awaiting[0].ID != er.Request.ID || *awaiting[0].Payment.TransactionID != "UPI123456" {
		t.Fatalf("unexpected awaiting list %+v", awaiting)
	}

	approve := "/admin/enrollment-requests/" + er.Request.ID + "/approve"
	if code := env.do(t, admin, http.MethodPost, approve, nil, nil); code != http.StatusOK {
		t.Fatalf("approve: status %d", code)
	}
	if code := env.do(t, admin, http.MethodPost, approve, nil, nil); code != http.StatusConflict {
		t.Fatalf("second approve: expected 409, got %d", code)
	}

	if st := courseState(t, env, student, c.ID); st != enrollment.Enrolled {
		t.Fatalf("after approval: got %q", st)
	}

	var dash enrollment.Dashboard
	if code := env.do(t, student, http.MethodGet, "/enrollments", nil, &dash); code != http.StatusOK {
		t.Fatalf("dashboard: status %d", code)
	}
	if dash.Stats.Enrolled != 1 || dash.Enrollments[0].Course.Title != c.Title {
		t.Fatalf("unexpected dashboard %+v", dash)
	}

	review := map[string]any{"rating": 5, "comment": "Great course"}
	if code := env.do(t, student, http.MethodPost, "/courses/"+c.ID+"/reviews", review, nil); code != http.StatusCreated {
		t.Fatalf("review: status %d", code)
	}
	if code := env.do(t, other, http.MethodPost, "/courses/"+c.ID+"/reviews", review, nil); code != http.StatusForbidden {
		t.Fatalf("review without enrollment: expected 403, got %d", code)
	}
}

func courseState(t *testing.T, env *TestEnv, cl *http.Client, courseID string) enrollment.State {
	t.Helper()

	var l catalog.Listing
	if code := env.do(t, cl, http.MethodGet, "/courses", nil, &l); code != http.StatusOK {
		t.Fatalf("listing courses: status %d", code)
	}
	for _, it := range l.Courses {
		if it.ID == courseID {
			return it.EnrollmentState
		}
	}
	t.Fatalf("course %s not listed", courseID)
	return ""
}
