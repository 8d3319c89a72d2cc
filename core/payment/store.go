package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/irsalhamdi/course-market/database"
	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, p Payment) error {
	const q = `
	INSERT INTO payments
		(payment_id, user_id, course_id, amount, currency, status, transaction_id,
		 payment_method, created_at, updated_at)
	VALUES
		(:payment_id, :user_id, :course_id, :amount, :currency, :status, :transaction_id,
		 :payment_method, :created_at, :updated_at)`

	if err := database.NamedExecContext(ctx, db, q, p); err != nil {
		return fmt.Errorf("inserting payment: %w", err)
	}
	return nil
}

// Complete overwrites the payment with the submitted evidence. It reports
// whether a payment with that id belonging to that user existed.
func Complete(ctx context.Context, db sqlx.ExtContext, c Completion) (bool, error) {
	c.Status = Completed

	const q = `
	UPDATE payments
	SET
		status = :status,
		transaction_id = :transaction_id,
		payment_method = :payment_method,
		updated_at = :updated_at
	WHERE payment_id = :payment_id AND user_id = :user_id`

	n, err := database.NamedExecAffected(ctx, db, q, c)
	if err != nil {
		return false, fmt.Errorf("completing payment[%s]: %w", c.ID, err)
	}
	return n > 0, nil
}

// DeleteOrphans removes pending payments created before the given time that
// no enrollment request references.
func DeleteOrphans(ctx context.Context, db sqlx.ExtContext, before time.Time) (int64, error) {
	in := struct {
		Status Status    `db:"status"`
		Before time.Time `db:"before"`
	}{Pending, before}

	const q = `
	DELETE FROM payments p
	WHERE p.status = :status
		AND p.created_at < :before
		AND NOT EXISTS (
			SELECT 1 FROM enrollment_requests r WHERE r.payment_id = p.payment_id
		)`

	n, err := database.NamedExecAffected(ctx, db, q, in)
	if err != nil {
		return 0, fmt.Errorf("deleting orphan payments: %w", err)
	}
	return n, nil
}
