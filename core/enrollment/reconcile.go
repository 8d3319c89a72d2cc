package enrollment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/course-market/cache"
	"github.com/irsalhamdi/course-market/core/payment"
	"github.com/irsalhamdi/course-market/events"
	"github.com/irsalhamdi/course-market/validate"
	"github.com/sirupsen/logrus"
)

var (
	ErrPaymentNotCompleted = errors.New("payment has not been confirmed")
	ErrRequestClosed       = errors.New("enrollment request already decided")
)

// Reconciler lets admins turn confirmed payments into enrollments.
type Reconciler struct {
	store  Storer
	cache  *cache.Cache
	events events.Publisher
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewReconciler(store Storer, c *cache.Cache, pub events.Publisher, log logrus.FieldLogger) *Reconciler {
	return &Reconciler{
		store:  store,
		cache:  c,
		events: pub,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ListAwaiting returns open requests whose payment has been confirmed.
func (rc *Reconciler) ListAwaiting(ctx context.Context) ([]Request, error) {
	return rc.store.QueryAwaiting(ctx)
}

func (rc *Reconciler) Approve(ctx context.Context, requestID string) (Enrollment, error) {
	ctx = context.WithoutCancel(ctx)

	var (
		req Request
		enr Enrollment
	)
	err := rc.store.Atomic(ctx, func(s Storer) error {
		var err error
		if req, err = openRequest(ctx, s, requestID); err != nil {
			return err
		}
		if req.Payment.Status != payment.Completed {
			return ErrPaymentNotCompleted
		}

		now := rc.now()
		enr = Enrollment{
			ID:        validate.GenerateID(),
			StudentID: req.UserID,
			CourseID:  req.CourseID,
			CreatedAt: now,
			Course:    req.Course,
		}
		if enr, err = s.CreateEnrollment(ctx, enr); err != nil {
			return err
		}
		return s.SetRequestStatus(ctx, req.ID, StatusApproved, now)
	})
	if err != nil {
		return Enrollment{}, fmt.Errorf("approving request[%s]: %w", requestID, err)
	}

	invalidate(ctx, rc.cache, rc.log, req.UserID, EnrollmentsKey(req.UserID), RequestsKey(req.UserID))
	publish(ctx, rc.events, rc.log, events.TopicEnrollmentGranted, req.UserID, map[string]string{
		"course_id":  req.CourseID,
		"request_id": req.ID,
	})

	rc.log.WithFields(logrus.Fields{
		"user_id":    req.UserID,
		"course_id":  req.CourseID,
		"request_id": req.ID,
	}).Info("enrollment granted")

	return enr, nil
}

func (rc *Reconciler) Reject(ctx context.Context, requestID string) error {
	ctx = context.WithoutCancel(ctx)

	var req Request
	err := rc.store.Atomic(ctx, func(s Storer) error {
		var err error
		if req, err = openRequest(ctx, s, requestID); err != nil {
			return err
		}
		return s.SetRequestStatus(ctx, req.ID, StatusRejected, rc.now())
	})
	if err != nil {
		return fmt.Errorf("rejecting request[%s]: %w", requestID, err)
	}

	invalidate(ctx, rc.cache, rc.log, req.UserID, RequestsKey(req.UserID))
	publish(ctx, rc.events, rc.log, events.TopicRequestRejected, req.UserID, map[string]string{
		"course_id":  req.CourseID,
		"request_id": req.ID,
	})
	return nil
}

func openRequest(ctx context.Context, s Storer, id string) (Request, error) {
	req, err := s.FetchRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusPaymentPending {
		return Request{}, ErrRequestClosed
	}
	return req, nil
}
