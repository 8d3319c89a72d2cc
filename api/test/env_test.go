package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/course-market/api"
	"github.com/irsalhamdi/course-market/cache"
	"github.com/irsalhamdi/course-market/config"
	"github.com/irsalhamdi/course-market/core/claims"
	"github.com/irsalhamdi/course-market/core/enrollment"
	"github.com/irsalhamdi/course-market/core/user"
	"github.com/irsalhamdi/course-market/database"
	"github.com/irsalhamdi/course-market/events"
	"github.com/irsalhamdi/course-market/rate"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminEmail = "admin@example.com"
	adminPass  = "admin-password"
	receiverID = "test@upi"
)

// TestEnv is a running api backed by a throwaway postgres container.
type TestEnv struct {
	*httptest.Server
	DB *sqlx.DB
}

func NewTestEnv(t *testing.T, name string) (*TestEnv, error) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	pool.MaxWait = 2 * time.Minute

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Name:       "coursemarket-" + name,
		Repository: "postgres",
		Tag:        "15-alpine",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_PASSWORD=postgres",
			"POSTGRES_DB=" + name,
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, fmt.Errorf("starting postgres: %w", err)
	}
	t.Cleanup(func() { pool.Purge(resource) })
	resource.Expire(300)

	cfg := config.DB{
		User:         "postgres",
		Password:     "postgres",
		Host:         resource.GetHostPort("5432/tcp"),
		Name:         name,
		MaxIdleConns: 2,
		MaxOpenConns: 5,
		DisableTLS:   true,
	}

	var db *sqlx.DB
	err = pool.Retry(func() error {
		var err error
		if db, err = database.Open(cfg); err != nil {
			return err
		}
		return database.StatusCheck(context.Background(), db)
	})
	if err != nil {
		return nil, fmt.Errorf("waiting for postgres: %w", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrating: %w", err)
	}

	if err := seedAdmin(db); err != nil {
		return nil, fmt.Errorf("seeding admin: %w", err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	store := enrollment.NewStore(db)
	c := cache.New(nil, "", 0)

	sm := scs.New()
	sm.Lifetime = time.Hour

	login := rate.NewLimiter(100, time.Minute, 100)
	confirm := rate.NewLimiter(100, time.Minute, 100)
	t.Cleanup(login.Stop)
	t.Cleanup(confirm.Stop)

	mux := api.APIMux(api.APIConfig{
		Log:            log,
		DB:             db,
		Session:        sm,
		Events:         events.Nop{},
		Tracker:        enrollment.NewTracker(store, c, log),
		Workflow:       enrollment.NewWorkflow(store, c, events.Nop{}, log, receiverID),
		Reconciler:     enrollment.NewReconciler(store, c, events.Nop{}, log),
		LoginLimiter:   login,
		ConfirmLimiter: confirm,
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &TestEnv{Server: srv, DB: db}, nil
}

func seedAdmin(db *sqlx.DB) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPass), bcrypt.MinCost)
	if err != nil {
		return err
	}
	h := string(hash)

	now := time.Now().UTC()
	u := user.User{
		ID:           "5b8f5c1e-0a57-4f0d-9d55-2c61b1a0e001",
		Email:        adminEmail,
		PasswordHash: &h,
		Role:         claims.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Create(context.Background(), db, u); err != nil {
		return err
	}
	return user.CreateProfile(context.Background(), db, user.Profile{ID: u.ID, FirstName: "Admin", CreatedAt: now, UpdatedAt: now})
}

// NewClient returns an http client carrying its own session cookie.
func (env *TestEnv) NewClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}
}

// do sends body as json and decodes the response into out when it is not
// nil. It returns the status code.
func (env *TestEnv) do(t *testing.T, cl *http.Client, method, path string, body, out any) int {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}

	r, err := http.NewRequest(method, env.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}

	w, err := cl.Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if out != nil && w.StatusCode < 300 {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decoding response: %v", method, path, err)
		}
	}
	return w.StatusCode
}

func (env *TestEnv) Login(t *testing.T, cl *http.Client, email, pass string) {
	t.Helper()
	creds := map[string]string{"email": email, "password": pass}
	if code := env.do(t, cl, http.MethodPost, "/auth/login", creds, nil); code != http.StatusOK {
		t.Fatalf("login %s: status %d", email, code)
	}
}

func (env *TestEnv) Signup(t *testing.T, cl *http.Client, email string) {
	t.Helper()
	un := map[string]string{
		"email":     email,
		"password":  "student-password",
		"firstName": "Test",
		"lastName":  "Student",
	}
	if code := env.do(t, cl, http.MethodPost, "/auth/signup", un, nil); code != http.StatusCreated {
		t.Fatalf("signup %s: status %d", email, code)
	}
}
