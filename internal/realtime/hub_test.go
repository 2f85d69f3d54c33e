package realtime

import (
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"
)

func newTestClient(id string, lessonID int64) *Client {
	return &Client{ID: id, LessonID: lessonID, send: make(chan Message, 64)}
}

// fakeSub records subscription lifecycle per lesson.
type fakeSub struct {
	mu        sync.Mutex
	active    map[int64]bool
	cancelled int
}

func (f *fakeSub) SubscribeLesson(lessonID int64, _ func(event string, payload []byte)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == nil {
		f.active = make(map[int64]bool)
	}
	f.active[lessonID] = true
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.active, lessonID)
		f.cancelled++
	}, nil
}

func TestRegisterUnregisterRoomLifecycle(t *testing.T) {
	sub := &fakeSub{}
	hub := NewHub(zap.NewNop(), nil, sub)

	a := newTestClient("a", 1)
	b := newTestClient("b", 1)
	hub.Register(a)
	hub.Register(b)
	if got := hub.RoomSize(1); got != 2 {
		t.Fatalf("room size = %d, want 2", got)
	}
	if !sub.active[1] {
		t.Fatal("subscription not started with first client")
	}

	hub.Unregister(a)
	if got := hub.RoomSize(1); got != 1 {
		t.Fatalf("room size after one leave = %d, want 1", got)
	}
	if !sub.active[1] {
		t.Fatal("subscription cancelled while room still occupied")
	}

	hub.Unregister(b)
	if got := hub.RoomSize(1); got != 0 {
		t.Fatalf("room size after last leave = %d, want 0", got)
	}
	if sub.active[1] || sub.cancelled != 1 {
		t.Fatalf("subscription not torn down with last client (cancelled=%d)", sub.cancelled)
	}
}

func TestPushDeliversLocally(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	c := newTestClient("a", 7)
	hub.Register(c)

	hub.Push(7, "notice", map[string]string{"text": "hello"})

	select {
	case msg := <-c.send:
		if msg.Event != "notice" {
			t.Errorf("event = %q, want notice", msg.Event)
		}
	default:
		t.Fatal("no message delivered to room client")
	}
}

func TestBroadcastDuringChurn(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c := newTestClient(fmt.Sprintf("c-%d-%d", i, j), 1)
				hub.Register(c)
				hub.Push(1, "tick", j)
				hub.Unregister(c)
			}
		}(i)
	}
	wg.Wait()

	if got := hub.RoomSize(1); got != 0 {
		t.Errorf("room size after churn = %d, want 0", got)
	}
}
