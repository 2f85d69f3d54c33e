package classroom

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// memStore is an in-memory Store for engine tests.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func TestOpenTwiceFails(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	e := NewEngine(store)

	if err := e.Open(ctx, 1, "Math", 60); err != nil {
		t.Fatalf("first open: %v", err)
	}
	before, _, _ := store.Get(ctx, recordKey(1))

	if err := e.Open(ctx, 1, "Physics", 60); !errors.Is(err, ErrAlreadyOpen) {
		t.Fatalf("second open: got %v, want ErrAlreadyOpen", err)
	}
	after, _, _ := store.Get(ctx, recordKey(1))
	if string(before) != string(after) {
		t.Error("failed open modified the record")
	}
}

func TestAttendanceOrdering(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(newMemStore())
	if err := e.Open(ctx, 1, "Math", 60); err != nil {
		t.Fatal(err)
	}

	for _, s := range []struct{ id, name string }{
		{"S001", "Alice"}, {"S002", "Bob"}, {"S003", "Carol"},
	} {
		if err := e.RecordAttendance(ctx, 1, s.id, s.name); err != nil {
			t.Fatalf("attendance %s: %v", s.id, err)
		}
	}

	events, err := e.Record(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	var orders []int
	for _, ev := range events {
		if ev.Type == EventAttendance {
			orders = append(orders, ev.Attendance.Order)
		}
	}
	if len(orders) != 3 || orders[0] != 1 || orders[1] != 2 || orders[2] != 3 {
		t.Errorf("orders = %v, want [1 2 3]", orders)
	}
}

func TestAttendanceDuplicateIsNoOp(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(newMemStore())
	if err := e.Open(ctx, 1, "Math", 60); err != nil {
		t.Fatal(err)
	}

	if err := e.RecordAttendance(ctx, 1, "S001", "Alice"); err != nil {
		t.Fatal(err)
	}
	if err := e.RecordAttendance(ctx, 1, "S002", "Bob"); err != nil {
		t.Fatal(err)
	}
	if err := e.RecordAttendance(ctx, 1, "S001", "Alice"); err != nil {
		t.Fatalf("duplicate attendance errored: %v", err)
	}

	events, err := e.Record(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for _, ev := range events {
		if ev.Type == EventAttendance && ev.Attendance.Student.StudentID == "S001" {
			count++
			if ev.Attendance.Order != 1 {
				t.Errorf("S001 order = %d, want 1", ev.Attendance.Order)
			}
		}
	}
	if count != 1 {
		t.Errorf("S001 has %d attendance events, want 1", count)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(newMemStore())
	if err := e.Open(ctx, 1, "Math", 60); err != nil {
		t.Fatal(err)
	}
	if err := e.Open(ctx, 2, "Physics", 60); err != nil {
		t.Fatal(err)
	}

	token, err := e.IssueAttendanceToken(ctx, 1, DefaultTokenWindow)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if token == "" {
		t.Fatal("issue returned empty token inside the attendance window")
	}
	if err := e.VerifyAttendanceToken(ctx, 1, token); err != nil {
		t.Errorf("verify against own lesson: %v", err)
	}
	if err := e.VerifyAttendanceToken(ctx, 2, token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("verify against other lesson: got %v, want ErrInvalidToken", err)
	}
}

func TestTokenExpired(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(newMemStore())
	if err := e.Open(ctx, 1, "Math", 60); err != nil {
		t.Fatal(err)
	}

	// Issue in the past so the exp claim has already elapsed.
	e.now = func() time.Time { return time.Now().Add(-time.Minute) }
	token, err := e.IssueAttendanceToken(ctx, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	e.now = time.Now
	if token == "" {
		t.Fatal("expected a token, window still open at issue time")
	}
	if err := e.VerifyAttendanceToken(ctx, 1, token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token: got %v, want ErrInvalidToken", err)
	}
}

func TestTokenAfterWindowElapsed(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(newMemStore())
	if err := e.Open(ctx, 1, "Math", 1); err != nil {
		t.Fatal(err)
	}

	e.now = func() time.Time { return time.Now().Add(5 * time.Second) }
	token, err := e.IssueAttendanceToken(ctx, 1, DefaultTokenWindow)
	if err != nil {
		t.Fatalf("elapsed window should not error: %v", err)
	}
	if token != "" {
		t.Error("elapsed window should yield no token")
	}
}

func TestCorruptRecordSelfHeals(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	e := NewEngine(store)
	if err := e.Open(ctx, 1, "Math", 60); err != nil {
		t.Fatal(err)
	}

	if err := store.Set(ctx, recordKey(1), []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Record(ctx, 1); !errors.Is(err, ErrRecordCorrupt) {
		t.Fatalf("got %v, want ErrRecordCorrupt", err)
	}
	if store.len() != 0 {
		t.Errorf("%d keys remain after self-heal, want 0", store.len())
	}
	if _, err := e.Record(ctx, 1); !errors.Is(err, ErrNotOpen) {
		t.Errorf("retried read: got %v, want ErrNotOpen", err)
	}
}

func TestCorruptExpirationSelfHeals(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	e := NewEngine(store)
	if err := e.Open(ctx, 1, "Math", 60); err != nil {
		t.Fatal(err)
	}

	if err := store.Set(ctx, expirationKey(1), []byte("not-a-number")); err != nil {
		t.Fatal(err)
	}
	if _, err := e.IssueAttendanceToken(ctx, 1, DefaultTokenWindow); !errors.Is(err, ErrRecordCorrupt) {
		t.Fatalf("got %v, want ErrRecordCorrupt", err)
	}
	if store.len() != 0 {
		t.Errorf("%d keys remain after self-heal, want 0", store.len())
	}
	if _, err := e.IssueAttendanceToken(ctx, 1, DefaultTokenWindow); !errors.Is(err, ErrNotOpen) {
		t.Errorf("retried issue: got %v, want ErrNotOpen", err)
	}
}

func TestCloseThenReopen(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(newMemStore())
	if err := e.Open(ctx, 1, "A", 60); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Close(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := e.Delete(ctx, 1); err != nil {
		t.Fatal(err)
	}

	if err := e.Open(ctx, 1, "B", 60); err != nil {
		t.Fatalf("reopen after archival: %v", err)
	}
	events, err := e.Record(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Type != EventClassBegin || events[0].Begin.Title != "B" {
		t.Errorf("reopened record = %+v, want single classbegin with title B", events)
	}
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	e := NewEngine(store)

	if err := e.Open(ctx, 42, "Math", 20); err != nil {
		t.Fatal(err)
	}
	token, err := e.IssueAttendanceToken(ctx, 42, DefaultTokenWindow)
	if err != nil || token == "" {
		t.Fatalf("issue: token=%q err=%v", token, err)
	}
	if err := e.VerifyAttendanceToken(ctx, 42, token); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := e.RecordAttendance(ctx, 42, "S001", "Alice"); err != nil {
		t.Fatal(err)
	}
	if err := e.RecordRollCall(ctx, 42, []StudentRef{{StudentID: "S001", Name: "Alice"}}, "What is 2+2?"); err != nil {
		t.Fatal(err)
	}

	events, err := e.Close(ctx, 42)
	if err != nil {
		t.Fatal(err)
	}
	want := []EventType{EventClassBegin, EventAttendance, EventRollCall, EventClassEnd}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, typ := range want {
		if events[i].Type != typ {
			t.Errorf("events[%d].Type = %s, want %s", i, events[i].Type, typ)
		}
	}
	if events[1].Attendance.Order != 1 {
		t.Errorf("attendance order = %d, want 1", events[1].Attendance.Order)
	}

	// Archival done by the caller; simulate it and delete the group.
	if err := e.Delete(ctx, 42); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Record(ctx, 42); !errors.Is(err, ErrNotOpen) {
		t.Errorf("after archival: got %v, want ErrNotOpen", err)
	}
}
