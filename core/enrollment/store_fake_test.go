package enrollment

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/irsalhamdi/course-market/core/payment"
)

// memStore keeps rows in maps. Atomic restores the maps when fn fails unless
// noTx is set, in which case it behaves like a store without transactions.
type memStore struct {
	mu          sync.Mutex
	payments    map[string]payment.Payment
	requests    map[string]Request
	enrollments map[string]Enrollment

	noTx bool

	failCreatePayment error
	failCreateRequest error
	failComplete      error

	// completeGate, when set, blocks CompletePayment until closed; entered
	// receives once the call is waiting.
	completeGate chan struct{}
	entered      chan struct{}

	// queryGate, when set, holds the next QueryRequests after it has read
	// its rows until closed; queryEntered receives once it is held.
	queryGate    chan struct{}
	queryEntered chan struct{}

	reads  int
	writes int
}

func newMemStore() *memStore {
	return &memStore{
		payments:    map[string]payment.Payment{},
		requests:    map[string]Request{},
		enrollments: map[string]Enrollment{},
	}
}

func (m *memStore) Atomic(ctx context.Context, fn func(Storer) error) error {
	m.mu.Lock()
	ps, rs, es := clone(m.payments), clone(m.requests), clone(m.enrollments)
	m.mu.Unlock()

	err := fn(m)
	if err != nil && !m.noTx {
		m.mu.Lock()
		m.payments, m.requests, m.enrollments = ps, rs, es
		m.mu.Unlock()
	}
	return err
}

func clone[T any](in map[string]T) map[string]T {
	out := make(map[string]T, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (m *memStore) QueryEnrollments(_ context.Context, studentID string) ([]Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++

	out := []Enrollment{}
	for _, e := range m.enrollments {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) QueryRequests(_ context.Context, userID string) ([]Request, error) {
	m.mu.Lock()
	m.reads++

	out := []Request{}
	for _, r := range m.requests {
		if r.UserID == userID {
			out = append(out, m.joined(r))
		}
	}
	gate := m.queryGate
	m.queryGate = nil
	m.mu.Unlock()

	if gate != nil {
		m.queryEntered <- struct{}{}
		<-gate
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) joined(r Request) Request {
	p, ok := m.payments[r.PaymentID]
	if !ok {
		r.Payment = PaymentSummary{}
		return r
	}
	r.Payment = PaymentSummary{
		Status:        p.Status,
		Amount:        p.Amount,
		TransactionID: p.TransactionID,
		Method:        p.Method,
	}
	return r
}

func (m *memStore) CreatePayment(_ context.Context, p payment.Payment) error {
	if m.failCreatePayment != nil {
		return m.failCreatePayment
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.payments[p.ID] = p
	return nil
}

func (m *memStore) CreateRequest(_ context.Context, r Request) error {
	if m.failCreateRequest != nil {
		return m.failCreateRequest
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	for _, existing := range m.requests {
		if existing.PaymentID == r.PaymentID {
			return ErrPaymentTaken
		}
	}
	m.requests[r.ID] = r
	return nil
}

func (m *memStore) CompletePayment(_ context.Context, c payment.Completion) (bool, error) {
	if m.completeGate != nil {
		m.entered <- struct{}{}
		<-m.completeGate
	}
	if m.failComplete != nil {
		return false, m.failComplete
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	p, ok := m.payments[c.ID]
	if !ok || p.UserID != c.UserID {
		return false, nil
	}
	m.payments[c.ID] = c.Apply(p)
	return true, nil
}

func (m *memStore) QueryAwaiting(_ context.Context) ([]Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []Request{}
	for _, r := range m.requests {
		r = m.joined(r)
		if r.Status == StatusPaymentPending && r.Payment.Status == payment.Completed {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) FetchRequest(_ context.Context, id string) (Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[id]
	if !ok {
		return Request{}, ErrRequestNotFound
	}
	return m.joined(r), nil
}

func (m *memStore) SetRequestStatus(_ context.Context, id string, status Status, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[id]
	if !ok {
		return ErrRequestNotFound
	}
	r.Status = status
	r.UpdatedAt = at
	m.requests[id] = r
	return nil
}

func (m *memStore) CreateEnrollment(_ context.Context, e Enrollment) (Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.enrollments {
		if existing.StudentID == e.StudentID && existing.CourseID == e.CourseID {
			e.ID, e.Progress, e.CreatedAt = existing.ID, existing.Progress, existing.CreatedAt
			return e, nil
		}
	}
	m.enrollments[e.ID] = e
	return e, nil
}

func (m *memStore) UpdateProgress(_ context.Context, studentID, courseID string, progress int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, e := range m.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			e.Progress = progress
			m.enrollments[id] = e
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) paymentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payments)
}

func (m *memStore) requestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

var errDB = errors.New("connection reset")
