package course

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/course-market/api/web"
	"github.com/irsalhamdi/course-market/api/weberr"
	"github.com/irsalhamdi/course-market/core/claims"
	"github.com/irsalhamdi/course-market/validate"
	"github.com/jmoiron/sqlx"
)

// FetchVisible loads a course, hiding unpublished ones from everyone but
// admins.
func FetchVisible(ctx context.Context, db sqlx.ExtContext, id string) (Course, error) {
	if err := validate.CheckID(id); err != nil {
		return Course{}, weberr.BadRequest(err)
	}

	c, err := Fetch(ctx, db, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Course{}, weberr.NotFound(err)
		}
		return Course{}, err
	}

	if !c.IsPublished && !claims.IsAdmin(ctx) {
		return Course{}, weberr.NotFound(ErrNotFound)
	}
	return c, nil
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		c, err := FetchVisible(ctx, db, web.Param(r, "id"))
		if err != nil {
			return err
		}

		ls, err := ListLessons(ctx, db, c.ID)
		if err != nil {
			return err
		}

		rs, err := ListReviews(ctx, db, c.ID)
		if err != nil {
			return err
		}

		d := Detail{
			Course:        c,
			Lessons:       ls,
			Reviews:       rs,
			AverageRating: AverageRating(rs),
		}
		return web.Respond(ctx, w, d, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var cn CourseNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		now := time.Now().UTC()
		c := Course{
			ID:           validate.GenerateID(),
			Title:        cn.Title,
			Description:  cn.Description,
			Price:        cn.Price,
			PriceINR:     cn.PriceINR,
			ThumbnailURL: cn.ThumbnailURL,
			CategoryID:   cn.CategoryID,
			InstructorID: cn.InstructorID,
			IsPublished:  cn.IsPublished,
			CreatedAt:    now,
			UpdatedAt:    now,
			Version:      1,
		}

		if err := Create(ctx, db, c); err != nil {
			return err
		}

		return web.Respond(ctx, w, c, http.StatusCreated)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		var cu CourseUp
		if err := web.Decode(w, r, &cu); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cu); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		c, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}

		if cu.Title != nil {
			c.Title = *cu.Title
		}
		if cu.Description != nil {
			c.Description = *cu.Description
		}
		if cu.Price != nil {
			c.Price = *cu.Price
		}
		if cu.PriceINR != nil {
			c.PriceINR = *cu.PriceINR
		}
		if cu.ThumbnailURL != nil {
			c.ThumbnailURL = *cu.ThumbnailURL
		}
		if cu.CategoryID != nil {
			c.CategoryID = cu.CategoryID
		}
		if cu.InstructorID != nil {
			c.InstructorID = cu.InstructorID
		}
		if cu.IsPublished != nil {
			c.IsPublished = *cu.IsPublished
		}
		c.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, c); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				return weberr.Conflict(err, "the course was modified by someone else, reload and try again")
			}
			return err
		}
		c.Version++

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func HandleCreateLesson(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		var ln LessonNew
		if err := web.Decode(w, r, &ln); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(ln); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		if _, err := Fetch(ctx, db, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}

		l := Lesson{
			ID:              validate.GenerateID(),
			CourseID:        id,
			Index:           ln.Index,
			Title:           ln.Title,
			DurationMinutes: ln.DurationMinutes,
		}
		if err := CreateLesson(ctx, db, l); err != nil {
			return err
		}

		return web.Respond(ctx, w, l, http.StatusCreated)
	}
}
