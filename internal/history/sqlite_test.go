package history

import (
	"path/filepath"
	"testing"
	"time"
)

const testRunID = "run-1"

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(InMemory)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreAppendAndRetrieve(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	e := &Event{RunID: testRunID, Type: "TestEvent", Payload: []byte(`{"test":"data"}`), Metadata: map[string]string{"key": "value"}}
	if err := store.Append(ctx, e); err != nil {
		t.Fatalf("failed to append event: %v", err)
	}
	if e.ID == 0 {
		t.Error("expected ID to be assigned")
	}

	events, err := store.GetByRunID(ctx, testRunID)
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	got := events[0]
	if got.Type != "TestEvent" || string(got.Payload) != `{"test":"data"}` {
		t.Errorf("unexpected event %+v", got)
	}
	if got.Metadata["key"] != "value" {
		t.Errorf("expected metadata key=value, got %v", got.Metadata)
	}
	if got.Timestamp.UnixMilli() != e.Timestamp.UnixMilli() {
		t.Errorf("timestamp not preserved: %v vs %v", got.Timestamp, e.Timestamp)
	}
}

func TestStoreGetRange(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()
	base := time.Now()

	for i := range 3 {
		e := &Event{RunID: testRunID, Type: "Event", Timestamp: base.Add(time.Duration(i) * time.Hour)}
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("failed to append event: %v", err)
		}
	}

	events, err := store.GetRange(ctx, base.Add(-time.Minute), base.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("failed to get range: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 events, got %d", len(events))
	}
}

func TestStoreSeparatesRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	_ = store.Append(ctx, &Event{RunID: "run-1", Type: "Event1"})
	_ = store.Append(ctx, &Event{RunID: "run-2", Type: "Event2"})
	_ = store.Append(ctx, &Event{RunID: "run-1", Type: "Event3"})

	events, err := store.GetByRunID(ctx, "run-1")
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	if len(events) != 2 || events[0].Type != "Event1" || events[1].Type != "Event3" {
		t.Errorf("unexpected run-1 events: %+v", events)
	}
}

func TestStorePersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	ctx := t.Context()

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := store.Append(ctx, &Event{RunID: testRunID, Type: TypeRunStarted}); err != nil {
		t.Fatalf("failed to append: %v", err)
	}
	_ = store.Close()

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	events, err := reopened.GetByRunID(ctx, testRunID)
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 persisted event, got %d", len(events))
	}
}
