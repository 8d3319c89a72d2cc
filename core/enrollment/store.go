package enrollment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/course-market/core/payment"
	"github.com/irsalhamdi/course-market/database"
	"github.com/jmoiron/sqlx"
)

var (
	ErrRequestNotFound = errors.New("enrollment request not found")
	ErrPaymentTaken    = errors.New("payment already belongs to a request")
)

// Reader loads a viewer's enrollment collections.
type Reader interface {
	QueryEnrollments(ctx context.Context, studentID string) ([]Enrollment, error)
	QueryRequests(ctx context.Context, userID string) ([]Request, error)
}

// Storer is the persistence the workflow and reconciliation need.
type Storer interface {
	Reader

	// Atomic runs fn against a store whose writes commit together or not at
	// all.
	Atomic(ctx context.Context, fn func(Storer) error) error

	CreatePayment(ctx context.Context, p payment.Payment) error
	CreateRequest(ctx context.Context, r Request) error
	CompletePayment(ctx context.Context, c payment.Completion) (bool, error)

	QueryAwaiting(ctx context.Context) ([]Request, error)
	FetchRequest(ctx context.Context, id string) (Request, error)
	SetRequestStatus(ctx context.Context, id string, status Status, at time.Time) error
	CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
	UpdateProgress(ctx context.Context, studentID, courseID string, progress int) (bool, error)
}

// Store is the postgres Storer.
type Store struct {
	root *sqlx.DB
	db   sqlx.ExtContext
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{root: db, db: db}
}

func (s *Store) Atomic(ctx context.Context, fn func(Storer) error) error {
	if s.root == nil {
		return fn(s)
	}
	return database.Transaction(ctx, s.root, func(tx sqlx.ExtContext) error {
		return fn(&Store{db: tx})
	})
}

const selectEnrollment = `
	SELECT
		e.enrollment_id, e.student_id, e.course_id, e.progress, e.created_at,
		c.title AS "course.title",
		c.description AS "course.description",
		c.thumbnail_url AS "course.thumbnail_url",
		c.price_inr AS "course.price_inr",
		COALESCE(cat.name, '') AS "course.category_name",
		COALESCE(cat.icon, '') AS "course.category_icon",
		COALESCE(cat.color, '') AS "course.category_color"
	FROM enrollments e
	JOIN courses c ON c.course_id = e.course_id
	LEFT JOIN categories cat ON cat.category_id = c.category_id`

func (s *Store) QueryEnrollments(ctx context.Context, studentID string) ([]Enrollment, error) {
	in := struct {
		StudentID string `db:"student_id"`
	}{studentID}

	q := selectEnrollment + `
	WHERE e.student_id = :student_id
	ORDER BY e.created_at DESC`

	var es []Enrollment
	if err := database.NamedQuerySlice(ctx, s.db, q, in, &es); err != nil {
		return nil, fmt.Errorf("selecting enrollments: %w", err)
	}
	return es, nil
}

const selectRequest = `
	SELECT
		r.request_id, r.user_id, r.course_id, r.payment_id, r.status, r.created_at, r.updated_at,
		c.title AS "course.title",
		c.description AS "course.description",
		c.thumbnail_url AS "course.thumbnail_url",
		c.price_inr AS "course.price_inr",
		COALESCE(cat.name, '') AS "course.category_name",
		COALESCE(cat.icon, '') AS "course.category_icon",
		COALESCE(cat.color, '') AS "course.category_color",
		p.status AS "payment.status",
		p.amount AS "payment.amount",
		p.transaction_id AS "payment.transaction_id",
		p.payment_method AS "payment.payment_method"
	FROM enrollment_requests r
	JOIN payments p ON p.payment_id = r.payment_id
	JOIN courses c ON c.course_id = r.course_id
	LEFT JOIN categories cat ON cat.category_id = c.category_id`

func (s *Store) QueryRequests(ctx context.Context, userID string) ([]Request, error) {
	in := struct {
		UserID string `db:"user_id"`
	}{userID}

	q := selectRequest + `
	WHERE r.user_id = :user_id
	ORDER BY r.created_at DESC`

	var rs []Request
	if err := database.NamedQuerySlice(ctx, s.db, q, in, &rs); err != nil {
		return nil, fmt.Errorf("selecting enrollment requests: %w", err)
	}
	return rs, nil
}

func (s *Store) CreatePayment(ctx context.Context, p payment.Payment) error {
	return payment.Create(ctx, s.db, p)
}

func (s *Store) CreateRequest(ctx context.Context, r Request) error {
	const q = `
	INSERT INTO enrollment_requests
		(request_id, user_id, course_id, payment_id, status, created_at, updated_at)
	VALUES
		(:request_id, :user_id, :course_id, :payment_id, :status, :created_at, :updated_at)`

	if err := database.NamedExecContext(ctx, s.db, q, r); err != nil {
		if errors.Is(err, database.ErrDBDuplicatedEntry) {
			return ErrPaymentTaken
		}
		return fmt.Errorf("inserting enrollment request: %w", err)
	}
	return nil
}

func (s *Store) CompletePayment(ctx context.Context, c payment.Completion) (bool, error) {
	return payment.Complete(ctx, s.db, c)
}

func (s *Store) QueryAwaiting(ctx context.Context) ([]Request, error) {
	in := struct {
		Status        Status         `db:"status"`
		PaymentStatus payment.Status `db:"payment_status"`
	}{StatusPaymentPending, payment.Completed}

	q := selectRequest + `
	WHERE r.status = :status AND p.status = :payment_status
	ORDER BY p.updated_at`

	var rs []Request
	if err := database.NamedQuerySlice(ctx, s.db, q, in, &rs); err != nil {
		return nil, fmt.Errorf("selecting awaiting requests: %w", err)
	}
	return rs, nil
}

// FetchRequest locks the request row for the rest of the transaction.
func (s *Store) FetchRequest(ctx context.Context, id string) (Request, error) {
	in := struct {
		ID string `db:"request_id"`
	}{id}

	q := selectRequest + `
	WHERE r.request_id = :request_id
	FOR UPDATE OF r`

	var r Request
	if err := database.NamedQueryStruct(ctx, s.db, q, in, &r); err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return Request{}, ErrRequestNotFound
		}
		return Request{}, fmt.Errorf("selecting enrollment request[%s]: %w", id, err)
	}
	return r, nil
}

func (s *Store) SetRequestStatus(ctx context.Context, id string, status Status, at time.Time) error {
	in := struct {
		ID        string    `db:"request_id"`
		Status    Status    `db:"status"`
		UpdatedAt time.Time `db:"updated_at"`
	}{id, status, at}

	const q = `
	UPDATE enrollment_requests
	SET status = :status, updated_at = :updated_at
	WHERE request_id = :request_id`

	n, err := database.NamedExecAffected(ctx, s.db, q, in)
	if err != nil {
		return fmt.Errorf("updating enrollment request[%s]: %w", id, err)
	}
	if n == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// CreateEnrollment returns the stored enrollment, which is the existing row
// when the student already has the course.
func (s *Store) CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error) {
	const q = `
	WITH ins AS (
		INSERT INTO enrollments
			(enrollment_id, student_id, course_id, progress, created_at)
		VALUES
			(:enrollment_id, :student_id, :course_id, :progress, :created_at)
		ON CONFLICT (student_id, course_id) DO NOTHING
		RETURNING enrollment_id, progress, created_at
	)
	SELECT enrollment_id, progress, created_at FROM ins
	UNION ALL
	SELECT enrollment_id, progress, created_at
	FROM enrollments
	WHERE student_id = :student_id AND course_id = :course_id
	LIMIT 1`

	var stored Enrollment
	if err := database.NamedQueryStruct(ctx, s.db, q, e, &stored); err != nil {
		return Enrollment{}, fmt.Errorf("inserting enrollment: %w", err)
	}

	e.ID = stored.ID
	e.Progress = stored.Progress
	e.CreatedAt = stored.CreatedAt
	return e, nil
}

// UpdateProgress reports whether the student is enrolled in the course.
func (s *Store) UpdateProgress(ctx context.Context, studentID, courseID string, progress int) (bool, error) {
	in := struct {
		StudentID string `db:"student_id"`
		CourseID  string `db:"course_id"`
		Progress  int    `db:"progress"`
	}{studentID, courseID, progress}

	const q = `
	UPDATE enrollments
	SET progress = :progress
	WHERE student_id = :student_id AND course_id = :course_id`

	n, err := database.NamedExecAffected(ctx, s.db, q, in)
	if err != nil {
		return false, fmt.Errorf("updating progress: %w", err)
	}
	return n > 0, nil
}
