// Package auth is the identity provider: it owns sessions, passwords and
// oauth logins, and turns a session into claims for the rest of the request.
package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/course-market/api/web"
	"github.com/irsalhamdi/course-market/api/weberr"
	"github.com/irsalhamdi/course-market/core/claims"
	"github.com/irsalhamdi/course-market/core/user"
	"github.com/irsalhamdi/course-market/events"
	"github.com/sirupsen/logrus"
)

const (
	userIDKey = "user_id"
	emailKey  = "email"
	roleKey   = "role"
	stateKey  = "oauth_state"
)

// LoadAndSave loads the session for every request and commits it once the
// handler is done.
func LoadAndSave(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var err error
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				err = handler(r.Context(), w, r)
			})
			sm.LoadAndSave(next).ServeHTTP(w, r.WithContext(ctx))
			return err
		}
		return h
	}
	return m
}

// LoadClaims puts the session owner's claims in the context when there is
// one. Anonymous requests pass through untouched.
func LoadClaims(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if id := sm.GetString(ctx, userIDKey); id != "" {
				ctx = claims.Set(ctx, claims.Claims{
					UserID: id,
					Email:  sm.GetString(ctx, emailKey),
					Role:   sm.GetString(ctx, roleKey),
				})
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func Authenticate() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if claims.Viewer(ctx) == nil {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func Admin() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			v := claims.Viewer(ctx)
			if v == nil {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}
			if !v.IsAdmin() {
				return weberr.Forbidden(errors.New("admin role required"))
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func login(ctx context.Context, sm *scs.SessionManager, pub events.Publisher, log logrus.FieldLogger, u user.User) error {
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}
	sm.Put(ctx, userIDKey, u.ID)
	sm.Put(ctx, emailKey, u.Email)
	sm.Put(ctx, roleKey, u.Role)

	notify(ctx, pub, log, u.ID, "signed_in")
	return nil
}

func notify(ctx context.Context, pub events.Publisher, log logrus.FieldLogger, userID string, change string) {
	if err := pub.Publish(ctx, events.TopicSessionChanged, userID, map[string]string{"change": change}); err != nil {
		log.WithError(err).WithFields(logrus.Fields{"user_id": userID, "change": change}).Error("publishing session change")
	}
}
