package category

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/course-market/api/web"
	"github.com/irsalhamdi/course-market/api/weberr"
	"github.com/irsalhamdi/course-market/validate"
	"github.com/jmoiron/sqlx"
)

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		cats, err := List(ctx, db)
		if err != nil {
			return err
		}
		return web.Respond(ctx, w, cats, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var cn CategoryNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		c := Category{
			ID:          validate.GenerateID(),
			Name:        cn.Name,
			Description: cn.Description,
			Icon:        cn.Icon,
			Color:       cn.Color,
		}

		if err := Create(ctx, db, c); err != nil {
			if errors.Is(err, ErrNameTaken) {
				return weberr.Conflict(err, err.Error())
			}
			return err
		}

		return web.Respond(ctx, w, c, http.StatusCreated)
	}
}
