package course

import (
	"context"
	"errors"
	"fmt"

	"github.com/irsalhamdi/course-market/database"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound        = errors.New("course not found")
	ErrVersionConflict = errors.New("course was modified concurrently")
)

const selectCourse = `
	SELECT
		c.course_id, c.title, c.description, c.price, c.price_inr, c.thumbnail_url,
		c.category_id, c.instructor_id, c.is_published, c.created_at, c.updated_at, c.version,
		COALESCE(cat.name, '') AS category_name,
		COALESCE(cat.icon, '') AS category_icon,
		COALESCE(cat.color, '') AS category_color,
		COALESCE(TRIM(p.first_name || ' ' || p.last_name), '') AS instructor_name,
		(SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.course_id) AS enrollment_count
	FROM courses c
	LEFT JOIN categories cat ON cat.category_id = c.category_id
	LEFT JOIN profiles p ON p.profile_id = c.instructor_id`

func Create(ctx context.Context, db sqlx.ExtContext, c Course) error {
	const q = `
	INSERT INTO courses
		(course_id, title, description, price, price_inr, thumbnail_url, category_id,
		 instructor_id, is_published, created_at, updated_at, version)
	VALUES
		(:course_id, :title, :description, :price, :price_inr, :thumbnail_url, :category_id,
		 :instructor_id, :is_published, :created_at, :updated_at, :version)`

	if err := database.NamedExecContext(ctx, db, q, c); err != nil {
		return fmt.Errorf("inserting course: %w", err)
	}
	return nil
}

// Update writes c if nobody else changed the course since c.Version was read.
func Update(ctx context.Context, db sqlx.ExtContext, c Course) error {
	const q = `
	UPDATE courses
	SET
		title = :title,
		description = :description,
		price = :price,
		price_inr = :price_inr,
		thumbnail_url = :thumbnail_url,
		category_id = :category_id,
		instructor_id = :instructor_id,
		is_published = :is_published,
		updated_at = :updated_at,
		version = version + 1
	WHERE course_id = :course_id AND version = :version`

	n, err := database.NamedExecAffected(ctx, db, q, c)
	if err != nil {
		return fmt.Errorf("updating course[%s]: %w", c.ID, err)
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Course, error) {
	in := struct {
		ID string `db:"course_id"`
	}{id}

	q := selectCourse + `
	WHERE c.course_id = :course_id`

	var c Course
	if err := database.NamedQueryStruct(ctx, db, q, in, &c); err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return Course{}, ErrNotFound
		}
		return Course{}, fmt.Errorf("selecting course[%s]: %w", id, err)
	}
	return c, nil
}

func ListPublished(ctx context.Context, db sqlx.ExtContext) ([]Course, error) {
	q := selectCourse + `
	WHERE c.is_published
	ORDER BY c.created_at`

	var cs []Course
	if err := database.NamedQuerySlice(ctx, db, q, struct{}{}, &cs); err != nil {
		return nil, fmt.Errorf("selecting published courses: %w", err)
	}
	return cs, nil
}

func ListLessons(ctx context.Context, db sqlx.ExtContext, courseID string) ([]Lesson, error) {
	in := struct {
		ID string `db:"course_id"`
	}{courseID}

	const q = `
	SELECT *
	FROM lessons
	WHERE course_id = :course_id
	ORDER BY index`

	var ls []Lesson
	if err := database.NamedQuerySlice(ctx, db, q, in, &ls); err != nil {
		return nil, fmt.Errorf("selecting lessons of course[%s]: %w", courseID, err)
	}
	return ls, nil
}

func CreateLesson(ctx context.Context, db sqlx.ExtContext, l Lesson) error {
	const q = `
	INSERT INTO lessons
		(lesson_id, course_id, index, title, duration_minutes)
	VALUES
		(:lesson_id, :course_id, :index, :title, :duration_minutes)`

	if err := database.NamedExecContext(ctx, db, q, l); err != nil {
		return fmt.Errorf("inserting lesson: %w", err)
	}
	return nil
}

func ListReviews(ctx context.Context, db sqlx.ExtContext, courseID string) ([]Review, error) {
	in := struct {
		ID string `db:"course_id"`
	}{courseID}

	const q = `
	SELECT
		r.review_id, r.course_id, r.user_id, r.rating, r.comment, r.created_at,
		COALESCE(TRIM(p.first_name || ' ' || p.last_name), '') AS reviewer_name
	FROM reviews r
	LEFT JOIN profiles p ON p.profile_id = r.user_id
	WHERE r.course_id = :course_id
	ORDER BY r.created_at DESC`

	var rs []Review
	if err := database.NamedQuerySlice(ctx, db, q, in, &rs); err != nil {
		return nil, fmt.Errorf("selecting reviews of course[%s]: %w", courseID, err)
	}
	return rs, nil
}

func CreateReview(ctx context.Context, db sqlx.ExtContext, r Review) error {
	const q = `
	INSERT INTO reviews
		(review_id, course_id, user_id, rating, comment, created_at)
	VALUES
		(:review_id, :course_id, :user_id, :rating, :comment, :created_at)`

	if err := database.NamedExecContext(ctx, db, q, r); err != nil {
		return fmt.Errorf("inserting review: %w", err)
	}
	return nil
}
