package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/course-market/api/web"
	"github.com/irsalhamdi/course-market/api/weberr"
	"github.com/irsalhamdi/course-market/core/claims"
	"github.com/irsalhamdi/course-market/core/user"
	"github.com/irsalhamdi/course-market/database"
	"github.com/irsalhamdi/course-market/events"
	"github.com/irsalhamdi/course-market/validate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is the answer to "who is signed in".
type Session struct {
	Authenticated bool           `json:"authenticated"`
	User          *claims.Claims `json:"user,omitempty"`
}

func HandleSignup(db *sqlx.DB, sm *scs.SessionManager, pub events.Publisher, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var un user.UserNew
		if err := web.Decode(w, r, &un); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}
		un.Email = strings.ToLower(strings.TrimSpace(un.Email))
		un.FirstName = strings.TrimSpace(un.FirstName)
		un.LastName = strings.TrimSpace(un.LastName)

		if err := validate.Check(un); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(un.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("generating password hash: %w", err)
		}
		hashStr := string(hash)

		now := time.Now().UTC()
		u := user.User{
			ID:           validate.GenerateID(),
			Email:        un.Email,
			PasswordHash: &hashStr,
			Role:         claims.RoleUser,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		p := user.Profile{
			ID:        u.ID,
			FirstName: un.FirstName,
			LastName:  un.LastName,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err = database.Transaction(ctx, db, func(tx sqlx.ExtContext) error {
			if err := user.Create(ctx, tx, u); err != nil {
				return err
			}
			return user.CreateProfile(ctx, tx, p)
		})
		if err != nil {
			if errors.Is(err, user.ErrEmailTaken) {
				return weberr.Conflict(err, "an account with this email already exists")
			}
			return fmt.Errorf("creating user: %w", err)
		}

		if err := login(ctx, sm, pub, log, u); err != nil {
			return fmt.Errorf("starting session: %w", err)
		}

		resp := struct {
			user.Current
			Message string `json:"message"`
		}{
			Current: user.Current{User: u, Profile: p},
			Message: "Account created successfully!",
		}
		return web.Respond(ctx, w, resp, http.StatusCreated)
	}
}

func HandleLogin(db *sqlx.DB, sm *scs.SessionManager, pub events.Publisher, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var cred Credentials
		if err := web.Decode(w, r, &cred); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}
		cred.Email = strings.ToLower(strings.TrimSpace(cred.Email))

		if err := validate.Check(cred); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		u, err := user.FetchByEmail(ctx, db, cred.Email)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return invalidCredentials(err)
			}
			return fmt.Errorf("fetching user: %w", err)
		}

		if u.PasswordHash == nil {
			return invalidCredentials(errors.New("account has no password"))
		}
		if err := bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(cred.Password)); err != nil {
			return invalidCredentials(err)
		}

		if err := login(ctx, sm, pub, log, u); err != nil {
			return fmt.Errorf("starting session: %w", err)
		}

		return web.Respond(ctx, w, web.Message{Message: "Welcome back!"}, http.StatusOK)
	}
}

func HandleLogout(sm *scs.SessionManager, pub events.Publisher, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := sm.GetString(ctx, userIDKey)
		if err := sm.Destroy(ctx); err != nil {
			return fmt.Errorf("destroying session: %w", err)
		}
		if id != "" {
			notify(ctx, pub, log, id, "signed_out")
		}
		return web.Respond(ctx, w, web.Message{Message: "Signed out successfully"}, http.StatusOK)
	}
}

func HandleSession() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		v := claims.Viewer(ctx)
		return web.Respond(ctx, w, Session{Authenticated: v != nil, User: v}, http.StatusOK)
	}
}

func invalidCredentials(err error) error {
	return weberr.NewError(err, "invalid email or password", http.StatusUnauthorized)
}
