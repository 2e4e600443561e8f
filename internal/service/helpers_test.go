package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"taskflow/internal/model"
	"taskflow/pkg/lock"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, n model.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) kind(kind string) []model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Notification
	for _, n := range r.sent {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time   { return c.now }
func (c fixedClock) Today() time.Time { return model.DateOf(c.now) }

var errBoom = errors.New("boom")

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type engine struct {
	*Engine
	store    *fakeStore
	notifier *recordingNotifier
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	return newEngineWithLocker(t, lock.NewLocalLocker())
}

func newEngineWithLocker(t *testing.T, locker lock.Locker) *engine {
	t.Helper()
	store := newFakeStore()
	notifier := &recordingNotifier{}
	clock := fixedClock{now: testNow}
	return &engine{
		Engine:   NewEngine(store, locker, notifier, clock, Options{}, zap.NewNop()),
		store:    store,
		notifier: notifier,
	}
}

// heldLocker wraps a Locker and tracks which keys are held right now.
type heldLocker struct {
	inner lock.Locker

	mu       sync.Mutex
	held     map[string]int
	acquired map[string]int
}

func newHeldLocker() *heldLocker {
	return &heldLocker{inner: lock.NewLocalLocker(), held: map[string]int{}, acquired: map[string]int{}}
}

func (l *heldLocker) Acquire(ctx context.Context, key string) (func(), error) {
	release, err := l.inner.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.held[key]++
	l.acquired[key]++
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		l.held[key]--
		l.mu.Unlock()
		release()
	}, nil
}

func (l *heldLocker) holding(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[key] > 0
}

func (l *heldLocker) count(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acquired[key]
}

func (e *engine) project(t *testing.T, owner *model.User, name string) *model.Project {
	t.Helper()
	p, err := e.Projects.Create(context.Background(), CreateProjectInput{OwnerID: owner.ID, Name: name})
	if err != nil {
		t.Fatalf("create project %q: %v", name, err)
	}
	return p
}

func (e *engine) task(t *testing.T, project *model.Project, creator *model.User, assignee *model.User) *model.Task {
	t.Helper()
	in := CreateTaskInput{
		ProjectID: project.ID,
		CreatorID: creator.ID,
		Title:     "Prepare the demo",
		DueDate:   testNow.AddDate(0, 0, 30),
	}
	if assignee != nil {
		in.AssigneeID = &assignee.ID
	}
	task, err := e.Tasks.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func mustValidation(t *testing.T, err error, field, reason string) {
	t.Helper()
	v, ok := model.AsValidation(err)
	if !ok {
		t.Fatalf("expected validation error %s %s, got %v", field, reason, err)
	}
	if !v.Has(field, reason) {
		t.Fatalf("expected %s %s, got %v", field, reason, v)
	}
}
