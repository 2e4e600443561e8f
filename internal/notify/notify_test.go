package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"taskflow/internal/model"
	"taskflow/pkg/circuitbreaker"
	"taskflow/pkg/trace"
)

type fakeSink struct {
	err   error
	calls int
	last  model.Notification
}

func (f *fakeSink) Deliver(ctx context.Context, n *model.Notification) error {
	f.calls++
	f.last = *n
	return f.err
}

func TestGuardedDeliversToSink(t *testing.T) {
	sink := &fakeSink{}
	g := NewGuarded(sink, nil, zap.NewNop())

	g.Notify(context.Background(), model.Notification{UserID: 7, Kind: model.NotifyTaskAssigned, Title: "Assigned"})

	if sink.calls != 1 || sink.last.UserID != 7 {
		t.Fatalf("expected one delivery to user 7, got %d calls %+v", sink.calls, sink.last)
	}
}

func TestGuardedSwallowsFailuresAndOpens(t *testing.T) {
	sink := &fakeSink{err: errors.New("db down")}
	breaker := circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 2, Timeout: time.Minute})
	g := NewGuarded(sink, breaker, zap.NewNop())

	for i := 0; i < 5; i++ {
		g.Notify(context.Background(), model.Notification{UserID: 1, Kind: model.NotifyMentioned})
	}

	if sink.calls != 2 {
		t.Fatalf("expected sink to be skipped once the breaker opens, got %d calls", sink.calls)
	}
	if breaker.State() != circuitbreaker.StateOpen {
		t.Fatalf("expected open breaker, got %v", breaker.State())
	}
}

func TestCreatedPayloadCarriesLinkAndTrace(t *testing.T) {
	ctx := trace.WithContext(context.Background(), "abc123")
	n := &model.Notification{
		ID:     3,
		UserID: 9,
		Kind:   model.NotifyCommentCreated,
		Title:  "New comment",
		Link:   model.Link{ProjectSlug: "apollo", TaskID: 12, CommentID: 40},
	}

	p := CreatedPayload(ctx, n)
	if p.ProjectSlug != "apollo" || p.TaskID != 12 || p.CommentID != 40 {
		t.Fatalf("unexpected link fields: %+v", p)
	}
	if p.Anchor != "comment-40" {
		t.Fatalf("unexpected anchor %q", p.Anchor)
	}
	if p.TraceID != "abc123" {
		t.Fatalf("expected trace id, got %q", p.TraceID)
	}
}
