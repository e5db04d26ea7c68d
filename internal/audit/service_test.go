package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
)

func TestRecordValidates(t *testing.T) {
	svc := NewService(NewMemoryRepo(), nil)
	ctx := context.Background()

	err := svc.Record(ctx, Event{ActorScope: "tenant", Action: "order.created"})
	if !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent without entity, got %v", err)
	}
	err = svc.Record(ctx, Event{Action: "order.created", Entity: "order"})
	if !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent without actor scope, got %v", err)
	}
}

func TestRecordFillsIDAndTimestamp(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, nil)

	err := svc.Record(context.Background(), Event{
		ActorScope: "tenant",
		ActorID:    "u1",
		Action:     "order.created",
		Entity:     "order",
		EntityID:   "o1",
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	events := repo.Events()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].ID == "" || events[0].CreatedAt.IsZero() {
		t.Fatalf("missing generated fields: %+v", events[0])
	}
}

func TestLogSwallowsWriteFailures(t *testing.T) {
	repo := NewMemoryRepo()
	repo.FailWrites = errors.New("disk full")

	var buf bytes.Buffer
	svc := NewService(repo, slog.New(slog.NewJSONHandler(&buf, nil)))

	// Must not panic and must leave a trace on the process log.
	svc.Log(context.Background(), Event{
		ActorScope: "tenant",
		Action:     "order.created",
		Entity:     "order",
		EntityID:   "o1",
	})

	if len(repo.Events()) != 0 {
		t.Fatalf("expected no persisted events")
	}
	if !bytes.Contains(buf.Bytes(), []byte("audit write failed")) {
		t.Fatalf("fallback log missing, got: %s", buf.String())
	}
}

func TestTrailFilters(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	for _, e := range []Event{
		{ActorScope: "tenant", Action: "order.created", Entity: "order", EntityID: "o1"},
		{ActorScope: "tenant", Action: "checkout.created", Entity: "order", EntityID: "o1"},
		{ActorScope: "tenant", Action: "order.created", Entity: "order", EntityID: "o2"},
	} {
		if err := svc.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := svc.Trail(ctx, "order", "o1", 0)
	if err != nil {
		t.Fatalf("Trail: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("trail length = %d, want 2", len(got))
	}
	for _, e := range got {
		if e.EntityID != "o1" {
			t.Fatalf("unexpected entity id %q", e.EntityID)
		}
	}
}
