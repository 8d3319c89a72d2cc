package enrollment

import (
	"context"

	"github.com/irsalhamdi/course-market/cache"
	"github.com/irsalhamdi/course-market/core/claims"
	"github.com/sirupsen/logrus"
)

func EnrollmentsKey(userID string) string { return "enrollments:" + userID }

func RequestsKey(userID string) string { return "enrollment_requests:" + userID }

// Tracker reads a viewer's enrollments and requests through the cache.
type Tracker struct {
	store Reader
	cache *cache.Cache
	log   logrus.FieldLogger
}

func NewTracker(store Reader, c *cache.Cache, log logrus.FieldLogger) *Tracker {
	return &Tracker{store: store, cache: c, log: log}
}

// Snapshot is one viewer's collections as read at a point in time.
type Snapshot struct {
	Viewer      *claims.Claims
	Enrollments []Enrollment
	Requests    []Request
}

// Load returns the viewer's snapshot. An anonymous viewer gets an empty one
// without touching storage.
func (t *Tracker) Load(ctx context.Context, viewer *claims.Claims) (Snapshot, error) {
	if viewer == nil {
		return Snapshot{}, nil
	}

	onErr := func(err error) {
		t.log.WithError(err).WithField("user_id", viewer.UserID).Warn("enrollment cache")
	}

	es, err := cache.Fetch(ctx, t.cache, EnrollmentsKey(viewer.UserID), func(ctx context.Context) ([]Enrollment, error) {
		return t.store.QueryEnrollments(ctx, viewer.UserID)
	}, onErr)
	if err != nil {
		return Snapshot{}, err
	}

	rs, err := cache.Fetch(ctx, t.cache, RequestsKey(viewer.UserID), func(ctx context.Context) ([]Request, error) {
		return t.store.QueryRequests(ctx, viewer.UserID)
	}, onErr)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{Viewer: viewer, Enrollments: es, Requests: rs}, nil
}

func (s Snapshot) Classify(courseID string) State {
	return Classify(s.Viewer, courseID, s.Enrollments, s.Requests)
}

// ActiveRequest returns the viewer's open request for the course, if any.
func (s Snapshot) ActiveRequest(courseID string) (Request, bool) {
	for _, r := range s.Requests {
		if r.CourseID == courseID && r.Status == StatusPaymentPending {
			return r, true
		}
	}
	return Request{}, false
}
