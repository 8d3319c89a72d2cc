package api

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/irsalhamdi/course-market/api/middleware"
	"github.com/irsalhamdi/course-market/api/web"
	"github.com/irsalhamdi/course-market/core/auth"
	"github.com/irsalhamdi/course-market/core/catalog"
	"github.com/irsalhamdi/course-market/core/category"
	"github.com/irsalhamdi/course-market/core/course"
	"github.com/irsalhamdi/course-market/core/enrollment"
	"github.com/irsalhamdi/course-market/core/user"
	"github.com/irsalhamdi/course-market/events"
	"github.com/irsalhamdi/course-market/rate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin       string
	Log              logrus.FieldLogger
	DB               *sqlx.DB
	Session          *scs.SessionManager
	Events           events.Publisher
	Tracker          *enrollment.Tracker
	Workflow         *enrollment.Workflow
	Reconciler       *enrollment.Reconciler
	LoginLimiter     *rate.Limiter
	ConfirmLimiter   *rate.Limiter
	Providers        map[string]auth.Provider
	LoginRedirectURL string
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, auth.LoadClaims(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate()
	admin := auth.Admin()
	loginLimit := middleware.RateLimit(cfg.LoginLimiter)
	confirmLimit := middleware.RateLimit(cfg.ConfirmLimiter)

	a.Handle(http.MethodPost, "/auth/signup", auth.HandleSignup(cfg.DB, cfg.Session, cfg.Events, cfg.Log), loginLimit)
	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.DB, cfg.Session, cfg.Events, cfg.Log), loginLimit)
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session, cfg.Events, cfg.Log))
	a.Handle(http.MethodGet, "/auth/session", auth.HandleSession())
	a.Handle(http.MethodGet, "/auth/oauth-login/{provider}", auth.HandleOauthLogin(cfg.Session, cfg.Providers))
	a.Handle(http.MethodGet, "/auth/oauth-callback/{provider}", auth.HandleOauthCallback(cfg.DB, cfg.Session, cfg.Events, cfg.Log, cfg.Providers, cfg.LoginRedirectURL))

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.DB), authen)
	a.Handle(http.MethodPut, "/users/current", user.HandleUpdateCurrent(cfg.DB), authen)

	a.Handle(http.MethodGet, "/categories", category.HandleList(cfg.DB))
	a.Handle(http.MethodPost, "/categories", category.HandleCreate(cfg.DB), admin)

	a.Handle(http.MethodGet, "/courses/{id}/payment-instructions", enrollment.HandleInstructions(cfg.DB, cfg.Workflow), authen)
	a.Handle(http.MethodPost, "/courses/{id}/enroll", enrollment.HandleEnroll(cfg.DB, cfg.Tracker, cfg.Workflow), authen)
	a.Handle(http.MethodPost, "/courses/{id}/reviews", catalog.HandleCreateReview(cfg.DB, cfg.Tracker), authen)
	a.Handle(http.MethodPost, "/courses/{id}/lessons", course.HandleCreateLesson(cfg.DB), admin)
	a.Handle(http.MethodGet, "/courses/{id}", course.HandleShow(cfg.DB))
	a.Handle(http.MethodGet, "/courses", catalog.HandleList(cfg.DB, cfg.Tracker))
	a.Handle(http.MethodPost, "/courses", course.HandleCreate(cfg.DB), admin)
	a.Handle(http.MethodPut, "/courses/{id}", course.HandleUpdate(cfg.DB), admin)

	a.Handle(http.MethodPost, "/payments/{id}/confirm", enrollment.HandleConfirm(cfg.Workflow), authen, confirmLimit)

	a.Handle(http.MethodGet, "/enrollments", enrollment.HandleDashboard(cfg.Tracker), authen)
	a.Handle(http.MethodPut, "/enrollments/{course_id}/progress", enrollment.HandleUpdateProgress(cfg.Workflow), authen)
	a.Handle(http.MethodGet, "/enrollment-requests", enrollment.HandleListRequests(cfg.Tracker), authen)

	a.Handle(http.MethodGet, "/admin/enrollment-requests", enrollment.HandleListAwaiting(cfg.Reconciler), admin)
	a.Handle(http.MethodPost, "/admin/enrollment-requests/{id}/approve", enrollment.HandleApprove(cfg.Reconciler), admin)
	a.Handle(http.MethodPost, "/admin/enrollment-requests/{id}/reject", enrollment.HandleReject(cfg.Reconciler), admin)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
