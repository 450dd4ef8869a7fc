package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Foreman/internal/domain"
	"github.com/shaiso/Foreman/internal/registry"
)

type fakeLister struct {
	views []registry.RunnerView
	err   error
}

func (f *fakeLister) List(context.Context) ([]registry.RunnerView, error) {
	return f.views, f.err
}

type submission struct {
	runnerID        string
	orderType       string
	clientRequestID string
}

type fakeSubmitter struct {
	submissions []submission
	seen        map[string]bool
	failFor     string
}

func newFakeSubmitter() *fakeSubmitter {
	return &fakeSubmitter{seen: make(map[string]bool)}
}

func (f *fakeSubmitter) Submit(_ context.Context, runnerID, orderType, clientRequestID string) (*domain.Order, bool, error) {
	if runnerID == f.failFor {
		return nil, false, errors.New("submit failed")
	}
	f.submissions = append(f.submissions, submission{runnerID, orderType, clientRequestID})

	created := !f.seen[clientRequestID]
	f.seen[clientRequestID] = true
	return &domain.Order{ID: uuid.New(), RunnerID: runnerID}, created, nil
}

func view(id string, online bool) registry.RunnerView {
	return registry.RunnerView{
		Runner: domain.Runner{ID: id, TTLSeconds: 60},
		Online: online,
	}
}

var tickTime = time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)

func newTestScheduler(t *testing.T, lister *fakeLister, submitter *fakeSubmitter) *Scheduler {
	t.Helper()
	s, err := New(Config{
		Runners:   lister,
		Submitter: submitter,
		Now:       func() time.Time { return tickTime },
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestTick_OnlineRunnersOnly(t *testing.T) {
	lister := &fakeLister{views: []registry.RunnerView{
		view("r1", true),
		view("r2", false),
		view("r3", true),
	}}
	submitter := newFakeSubmitter()
	s := newTestScheduler(t, lister, submitter)

	if err := s.Tick(context.Background(), tickTime); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(submitter.submissions) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(submitter.submissions))
	}
	for _, sub := range submitter.submissions {
		if sub.runnerID == "r2" {
			t.Error("offline runner must be skipped")
		}
		if sub.orderType != "runner.reconcile" {
			t.Errorf("unexpected order type %q", sub.orderType)
		}
	}
}

func TestTick_IdempotencyKeyFormat(t *testing.T) {
	lister := &fakeLister{views: []registry.RunnerView{view("r1", true)}}
	submitter := newFakeSubmitter()
	s := newTestScheduler(t, lister, submitter)

	if err := s.Tick(context.Background(), tickTime); err != nil {
		t.Fatal(err)
	}

	want := fmt.Sprintf("r1_%d", tickTime.Unix())
	if got := submitter.submissions[0].clientRequestID; got != want {
		t.Errorf("expected key %q, got %q", want, got)
	}
}

func TestTick_RepeatedDueTimeReplays(t *testing.T) {
	lister := &fakeLister{views: []registry.RunnerView{view("r1", true)}}
	submitter := newFakeSubmitter()
	s := newTestScheduler(t, lister, submitter)

	// Два тика с одним dueAt — один и тот же ключ идемпотентности.
	if err := s.Tick(context.Background(), tickTime); err != nil {
		t.Fatal(err)
	}
	if err := s.Tick(context.Background(), tickTime); err != nil {
		t.Fatal(err)
	}

	if submitter.submissions[0].clientRequestID != submitter.submissions[1].clientRequestID {
		t.Error("same due time must reuse the idempotency key")
	}
}

func TestTick_OneRunnerFailureDoesNotBlockOthers(t *testing.T) {
	lister := &fakeLister{views: []registry.RunnerView{
		view("r1", true),
		view("r2", true),
	}}
	submitter := newFakeSubmitter()
	submitter.failFor = "r1"
	s := newTestScheduler(t, lister, submitter)

	if err := s.Tick(context.Background(), tickTime); err != nil {
		t.Fatalf("per-runner failure must not fail the tick: %v", err)
	}
	if len(submitter.submissions) != 1 || submitter.submissions[0].runnerID != "r2" {
		t.Errorf("expected submission for r2 only, got %v", submitter.submissions)
	}
}

func TestTick_ListFailure(t *testing.T) {
	lister := &fakeLister{err: errors.New("db down")}
	s := newTestScheduler(t, lister, newFakeSubmitter())

	if err := s.Tick(context.Background(), tickTime); err == nil {
		t.Error("expected error when runner listing fails")
	}
}

func TestNextDue(t *testing.T) {
	schedule, err := ParseCronExpr("*/5 * * * *")
	if err != nil {
		t.Fatal(err)
	}

	from := time.Date(2025, 6, 1, 12, 3, 20, 0, time.UTC)
	next := NextDue(schedule, from)
	want := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestValidateCronExpr(t *testing.T) {
	if err := ValidateCronExpr("*/5 * * * *"); err != nil {
		t.Errorf("valid expression rejected: %v", err)
	}
	if err := ValidateCronExpr("not a cron"); err == nil {
		t.Error("invalid expression accepted")
	}
}
