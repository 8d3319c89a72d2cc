package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/course-market/api/web"
	"github.com/irsalhamdi/course-market/api/weberr"
	"github.com/irsalhamdi/course-market/core/claims"
	"github.com/irsalhamdi/course-market/core/course"
	"github.com/irsalhamdi/course-market/core/enrollment"
	"github.com/irsalhamdi/course-market/database"
	"github.com/irsalhamdi/course-market/validate"
	"github.com/jmoiron/sqlx"
)

func HandleList(db *sqlx.DB, tr *enrollment.Tracker) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		cs, err := course.ListPublished(ctx, db)
		if err != nil {
			return err
		}

		snap, err := tr.Load(ctx, claims.Viewer(ctx))
		if err != nil {
			return err
		}

		f := course.Filter{
			Search:   web.Query(r, "search"),
			Category: web.Query(r, "category"),
		}
		return web.Respond(ctx, w, Build(cs, f, snap), http.StatusOK)
	}
}

// HandleCreateReview lets enrolled students review a course once.
func HandleCreateReview(db *sqlx.DB, tr *enrollment.Tracker) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		viewer := claims.Viewer(ctx)
		if viewer == nil {
			return weberr.NotAuthorized(enrollment.ErrUnauthenticated)
		}

		c, err := course.FetchVisible(ctx, db, web.Param(r, "id"))
		if err != nil {
			return err
		}

		var rn course.ReviewNew
		if err := web.Decode(w, r, &rn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(rn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		snap, err := tr.Load(ctx, viewer)
		if err != nil {
			return err
		}
		if snap.Classify(c.ID) != enrollment.Enrolled {
			return weberr.Forbidden(errors.New("not enrolled"))
		}

		rv := course.Review{
			ID:        validate.GenerateID(),
			CourseID:  c.ID,
			UserID:    viewer.UserID,
			Rating:    rn.Rating,
			Comment:   rn.Comment,
			CreatedAt: time.Now().UTC(),
		}
		if err := course.CreateReview(ctx, db, rv); err != nil {
			if errors.Is(err, database.ErrDBDuplicatedEntry) {
				return weberr.Conflict(err, "you have already reviewed this course")
			}
			return err
		}

		return web.Respond(ctx, w, rv, http.StatusCreated)
	}
}
