package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/irsalhamdi/course-market/api/web"
	"github.com/irsalhamdi/course-market/api/weberr"
	"github.com/irsalhamdi/course-market/core/claims"
	"github.com/irsalhamdi/course-market/rate"
)

// RateLimit rejects requests once the caller's bucket is empty. Callers are
// identified by user id when logged in and by remote address otherwise.
func RateLimit(lim *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if !lim.Check(clientKey(ctx, r)) {
				return weberr.TooManyRequests(errors.New("rate limit exceeded"))
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func clientKey(ctx context.Context, r *http.Request) string {
	if v := claims.Viewer(ctx); v != nil {
		return "user:" + v.UserID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "addr:" + r.RemoteAddr
	}
	return "addr:" + host
}
