package enrollment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/irsalhamdi/course-market/cache"
	"github.com/irsalhamdi/course-market/core/claims"
	"github.com/irsalhamdi/course-market/core/payment"
	"github.com/irsalhamdi/course-market/events"
	"github.com/irsalhamdi/course-market/validate"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnauthenticated     = errors.New("sign in to continue")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidConfirmation = errors.New("invalid payment confirmation")
	ErrSubmissionInFlight  = errors.New("payment confirmation already in progress")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrNotEnrolled         = errors.New("not enrolled in course")
)

// Confirmation is what a user submits after paying.
type Confirmation struct {
	PaymentID     string         `json:"-" validate:"required"`
	TransactionID string         `json:"transactionId" validate:"required,max=128"`
	Method        payment.Method `json:"method" validate:"required,oneof=googlepay phonepe paytm other"`
}

// Created is the pair written by CreateRequest.
type Created struct {
	Payment payment.Payment `json:"payment"`
	Request Request         `json:"enrollmentRequest"`
}

type Workflow struct {
	store      Storer
	cache      *cache.Cache
	events     events.Publisher
	log        logrus.FieldLogger
	receiverID string
	now        func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewWorkflow(store Storer, c *cache.Cache, pub events.Publisher, log logrus.FieldLogger, receiverID string) *Workflow {
	return &Workflow{
		store:      store,
		cache:      c,
		events:     pub,
		log:        log,
		receiverID: receiverID,
		now:        func() time.Time { return time.Now().UTC() },
		inflight:   make(map[string]struct{}),
	}
}

// CreateRequest records the viewer's intent to buy the course: a pending
// payment for amount and an enrollment request pointing at it.
func (w *Workflow) CreateRequest(ctx context.Context, viewer *claims.Claims, courseID string, amount int) (Created, error) {
	if viewer == nil {
		return Created{}, ErrUnauthenticated
	}
	if amount <= 0 {
		return Created{}, ErrInvalidAmount
	}
	ctx = context.WithoutCancel(ctx)

	now := w.now()
	p := payment.Payment{
		ID:        validate.GenerateID(),
		UserID:    viewer.UserID,
		CourseID:  courseID,
		Amount:    amount,
		Currency:  payment.CurrencyINR,
		Status:    payment.Pending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r := Request{
		ID:        validate.GenerateID(),
		UserID:    viewer.UserID,
		CourseID:  courseID,
		PaymentID: p.ID,
		Status:    StatusPaymentPending,
		CreatedAt: now,
		UpdatedAt: now,
		Payment:   PaymentSummary{Status: p.Status, Amount: p.Amount},
	}

	err := w.store.Atomic(ctx, func(s Storer) error {
		if err := s.CreatePayment(ctx, p); err != nil {
			return err
		}
		return s.CreateRequest(ctx, r)
	})
	if err != nil {
		return Created{}, fmt.Errorf("creating enrollment request: %w", err)
	}

	w.invalidate(ctx, viewer.UserID, RequestsKey(viewer.UserID))
	w.publish(ctx, events.TopicEnrollmentRequested, viewer.UserID, map[string]string{
		"course_id":  courseID,
		"payment_id": p.ID,
		"request_id": r.ID,
		"amount":     strconv.Itoa(amount),
	})

	w.log.WithFields(logrus.Fields{
		"user_id":    viewer.UserID,
		"course_id":  courseID,
		"payment_id": p.ID,
	}).Info("enrollment request created")

	return Created{Payment: p, Request: r}, nil
}

// Instructions describe how to pay amount for the course.
func (w *Workflow) Instructions(courseTitle string, amount int) payment.Instructions {
	return payment.NewInstructions(w.receiverID, courseTitle, amount)
}

// ConfirmPayment marks the viewer's payment completed with the submitted
// transaction id and method. Resubmitting overwrites the previous values.
func (w *Workflow) ConfirmPayment(ctx context.Context, viewer *claims.Claims, c Confirmation) error {
	if viewer == nil {
		return ErrUnauthenticated
	}

	c.TransactionID = strings.TrimSpace(c.TransactionID)
	if err := validate.Check(c); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfirmation, err)
	}

	if !w.acquire(c.PaymentID) {
		return ErrSubmissionInFlight
	}
	defer w.release(c.PaymentID)

	ctx = context.WithoutCancel(ctx)

	ok, err := w.store.CompletePayment(ctx, payment.Completion{
		ID:            c.PaymentID,
		UserID:        viewer.UserID,
		TransactionID: c.TransactionID,
		Method:        c.Method,
		UpdatedAt:     w.now(),
	})
	if err != nil {
		return fmt.Errorf("confirming payment: %w", err)
	}
	if !ok {
		return ErrPaymentNotFound
	}

	w.invalidate(ctx, viewer.UserID, EnrollmentsKey(viewer.UserID), RequestsKey(viewer.UserID))
	w.publish(ctx, events.TopicPaymentSubmitted, viewer.UserID, map[string]string{
		"payment_id":     c.PaymentID,
		"transaction_id": c.TransactionID,
		"method":         string(c.Method),
	})

	w.log.WithFields(logrus.Fields{
		"user_id":    viewer.UserID,
		"payment_id": c.PaymentID,
		"method":     c.Method,
	}).Info("payment confirmation submitted")

	return nil
}

// RecordProgress stores how far the viewer is through an enrolled course.
func (w *Workflow) RecordProgress(ctx context.Context, viewer *claims.Claims, courseID string, progress int) error {
	if viewer == nil {
		return ErrUnauthenticated
	}
	if err := validate.Check(ProgressUp{Progress: progress}); err != nil {
		return err
	}

	ok, err := w.store.UpdateProgress(context.WithoutCancel(ctx), viewer.UserID, courseID, progress)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotEnrolled
	}

	w.invalidate(ctx, viewer.UserID, EnrollmentsKey(viewer.UserID))
	return nil
}

func (w *Workflow) acquire(paymentID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, busy := w.inflight[paymentID]; busy {
		return false
	}
	w.inflight[paymentID] = struct{}{}
	return true
}

func (w *Workflow) release(paymentID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inflight, paymentID)
}

func (w *Workflow) invalidate(ctx context.Context, userID string, keys ...string) {
	invalidate(ctx, w.cache, w.log, userID, keys...)
}

func (w *Workflow) publish(ctx context.Context, topic, userID string, attrs map[string]string) {
	publish(ctx, w.events, w.log, topic, userID, attrs)
}

// A failed invalidation leaves stale reads until the entry expires; the write
// itself already succeeded, so it is logged and not returned.
func invalidate(ctx context.Context, c *cache.Cache, log logrus.FieldLogger, userID string, keys ...string) {
	if err := c.Invalidate(ctx, keys...); err != nil {
		log.WithError(err).WithFields(logrus.Fields{"user_id": userID, "keys": keys}).Error("invalidating cache")
	}
}

func publish(ctx context.Context, pub events.Publisher, log logrus.FieldLogger, topic, userID string, attrs map[string]string) {
	if err := pub.Publish(ctx, topic, userID, attrs); err != nil {
		log.WithError(err).WithField("topic", topic).Error("publishing event")
	}
}
