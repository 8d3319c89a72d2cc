package enrollment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/course-market/api/web"
	"github.com/irsalhamdi/course-market/api/weberr"
	"github.com/irsalhamdi/course-market/core/claims"
	"github.com/irsalhamdi/course-market/core/course"
	"github.com/irsalhamdi/course-market/core/payment"
	"github.com/irsalhamdi/course-market/validate"
	"github.com/jmoiron/sqlx"
)

const (
	MessageRequestCreated   = "Enrollment request created! Please complete the payment."
	MessagePaymentConfirmed = "Payment confirmed! You will be enrolled shortly."
)

type EnrollResponse struct {
	Created
	Instructions payment.Instructions `json:"instructions"`
	Message      string               `json:"message"`
}

type Dashboard struct {
	Enrollments []Enrollment `json:"enrollments"`
	Stats       Stats        `json:"stats"`
}

func HandleInstructions(db *sqlx.DB, wf *Workflow) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		c, err := course.FetchVisible(ctx, db, web.Param(r, "id"))
		if err != nil {
			return err
		}
		return web.Respond(ctx, w, wf.Instructions(c.Title, c.PriceINR), http.StatusOK)
	}
}

// HandleEnroll starts the purchase of a course for the viewer. The amount
// always comes from the course price.
func HandleEnroll(db *sqlx.DB, tr *Tracker, wf *Workflow) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		viewer := claims.Viewer(ctx)
		if viewer == nil {
			return weberr.NotAuthorized(ErrUnauthenticated)
		}

		c, err := course.FetchVisible(ctx, db, web.Param(r, "id"))
		if err != nil {
			return err
		}

		snap, err := tr.Load(ctx, viewer)
		if err != nil {
			return err
		}

		if err := enrollConflict(snap, c.ID); err != nil {
			return err
		}

		created, err := wf.CreateRequest(ctx, viewer, c.ID, c.PriceINR)
		if err != nil {
			if errors.Is(err, ErrInvalidAmount) {
				return weberr.NewError(err, "this course cannot be purchased right now", http.StatusUnprocessableEntity)
			}
			return weberr.NewError(err, "Failed to create enrollment request, please try again", http.StatusInternalServerError)
		}

		created.Request.Course = CourseSummary{
			Title:         c.Title,
			Description:   c.Description,
			ThumbnailURL:  c.ThumbnailURL,
			PriceINR:      c.PriceINR,
			CategoryName:  c.CategoryName,
			CategoryIcon:  c.CategoryIcon,
			CategoryColor: c.CategoryColor,
		}

		resp := EnrollResponse{
			Created:      created,
			Instructions: wf.Instructions(c.Title, c.PriceINR),
			Message:      MessageRequestCreated,
		}
		return web.Respond(ctx, w, resp, http.StatusCreated)
	}
}

// enrollConflict refuses a new request when the viewer owns the course or
// already has an open request for it.
func enrollConflict(snap Snapshot, courseID string) error {
	if snap.Classify(courseID) == Enrolled {
		return weberr.Conflict(errors.New("already enrolled"), "you are already enrolled in this course")
	}
	if req, ok := snap.ActiveRequest(courseID); ok {
		if req.Payment.Status != payment.Completed {
			return weberr.Conflict(errors.New("payment pending"), "complete the payment for your existing enrollment request")
		}
		return weberr.Conflict(errors.New("request awaiting review"), "your payment is awaiting verification")
	}
	return nil
}

func HandleConfirm(wf *Workflow) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		var c Confirmation
		if err := web.Decode(w, r, &c); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}
		c.PaymentID = id

		err := wf.ConfirmPayment(ctx, claims.Viewer(ctx), c)
		switch {
		case err == nil:
		case errors.Is(err, ErrUnauthenticated):
			return weberr.NotAuthorized(err)
		case errors.Is(err, ErrInvalidConfirmation):
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrSubmissionInFlight):
			return weberr.Conflict(err, "a confirmation for this payment is already being processed")
		case errors.Is(err, ErrPaymentNotFound):
			return weberr.NotFound(err)
		default:
			return weberr.NewError(err, "Failed to update payment, please try again", http.StatusInternalServerError)
		}

		return web.Respond(ctx, w, web.Message{Message: MessagePaymentConfirmed}, http.StatusOK)
	}
}

func HandleDashboard(tr *Tracker) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		snap, err := tr.Load(ctx, claims.Viewer(ctx))
		if err != nil {
			return err
		}

		es := snap.Enrollments
		if es == nil {
			es = []Enrollment{}
		}
		return web.Respond(ctx, w, Dashboard{Enrollments: es, Stats: Summarize(es)}, http.StatusOK)
	}
}

func HandleUpdateProgress(wf *Workflow) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		var pu ProgressUp
		if err := web.Decode(w, r, &pu); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(pu); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		err := wf.RecordProgress(ctx, claims.Viewer(ctx), courseID, pu.Progress)
		switch {
		case errors.Is(err, ErrUnauthenticated):
			return weberr.NotAuthorized(err)
		case errors.Is(err, ErrNotEnrolled):
			return weberr.NotFound(err)
		case err != nil:
			return err
		}

		return web.Respond(ctx, w, pu, http.StatusOK)
	}
}

func HandleListRequests(tr *Tracker) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		snap, err := tr.Load(ctx, claims.Viewer(ctx))
		if err != nil {
			return err
		}

		rs := snap.Requests
		if rs == nil {
			rs = []Request{}
		}
		return web.Respond(ctx, w, rs, http.StatusOK)
	}
}

func HandleListAwaiting(rc *Reconciler) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		rs, err := rc.ListAwaiting(ctx)
		if err != nil {
			return err
		}
		return web.Respond(ctx, w, rs, http.StatusOK)
	}
}

func HandleApprove(rc *Reconciler) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		e, err := rc.Approve(ctx, id)
		if err != nil {
			return decisionError(err)
		}
		return web.Respond(ctx, w, e, http.StatusOK)
	}
}

func HandleReject(rc *Reconciler) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		if err := rc.Reject(ctx, id); err != nil {
			return decisionError(err)
		}
		return web.Respond(ctx, w, web.Message{Message: "Enrollment request rejected."}, http.StatusOK)
	}
}

func decisionError(err error) error {
	switch {
	case errors.Is(err, ErrRequestNotFound):
		return weberr.NotFound(err)
	case errors.Is(err, ErrRequestClosed):
		return weberr.Conflict(err, "this enrollment request has already been decided")
	case errors.Is(err, ErrPaymentNotCompleted):
		return weberr.Conflict(err, "the student has not confirmed the payment yet")
	}
	return err
}
