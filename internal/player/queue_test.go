package player

import (
	"context"
	"errors"
	"testing"
	"time"

	"groovebot/internal/resolver"
)

func track(title string) *resolver.Track {
	return &resolver.Track{Title: title, WebpageURL: "https://example.com/" + title}
}

func TestQueuePushPop(t *testing.T) {
	q := NewQueue()
	q.Push(track("a"))
	q.Push(track("b"))

	got, err := q.Pop(context.Background())
	if err != nil {
		t.Fatalf("Pop failed: %v", err)
	}
	if got.Title != "a" {
		t.Errorf("Expected FIFO order, got %q", got.Title)
	}
	if q.Len() != 1 {
		t.Errorf("Expected 1 remaining, got %d", q.Len())
	}
}

func TestQueuePopBlocksUntilPush(t *testing.T) {
	q := NewQueue()
	result := make(chan *resolver.Track, 1)

	go func() {
		got, err := q.Pop(context.Background())
		if err == nil {
			result <- got
		}
	}()

	time.Sleep(20 * time.Millisecond)
	q.Push(track("late"))

	select {
	case got := <-result:
		if got.Title != "late" {
			t.Errorf("Unexpected track %q", got.Title)
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake on Push")
	}
}

func TestQueuePopHonorsContext(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline error, got %v", err)
	}
}

func TestQueuePushFront(t *testing.T) {
	q := NewQueue()
	q.Push(track("second"))
	q.PushFront(track("first"))

	got, _ := q.Pop(context.Background())
	if got.Title != "first" {
		t.Errorf("PushFront not at head: got %q", got.Title)
	}
}

func TestQueueRemove(t *testing.T) {
	q := NewQueue()
	q.Push(track("a"))
	q.Push(track("b"))
	q.Push(track("c"))

	removed, err := q.Remove(1)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if removed.Title != "b" {
		t.Errorf("Removed wrong track: %q", removed.Title)
	}

	if _, err := q.Remove(5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Expected ErrIndexOutOfRange, got %v", err)
	}
	if _, err := q.Remove(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Expected ErrIndexOutOfRange for negative index, got %v", err)
	}
}

func TestQueueClear(t *testing.T) {
	q := NewQueue()
	q.Push(track("a"))
	q.Push(track("b"))

	if n := q.Clear(); n != 2 {
		t.Errorf("Expected 2 cleared, got %d", n)
	}
	if q.Len() != 0 {
		t.Errorf("Queue not empty after Clear")
	}
}

func TestQueueShuffleKeepsContents(t *testing.T) {
	q := NewQueue()
	titles := map[string]bool{}
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		q.Push(track(name))
		titles[name] = true
	}

	q.Shuffle()

	snap := q.Snapshot()
	if len(snap) != 5 {
		t.Fatalf("Shuffle changed length: %d", len(snap))
	}
	for _, tr := range snap {
		if !titles[tr.Title] {
			t.Errorf("Unexpected track after shuffle: %q", tr.Title)
		}
	}
}

func TestQueuePage(t *testing.T) {
	q := NewQueue()
	for i := 0; i < 25; i++ {
		q.Push(track(string(rune('a' + i))))
	}

	items, pages := q.Page(0, 10)
	if pages != 3 {
		t.Errorf("Expected 3 pages, got %d", pages)
	}
	if len(items) != 10 {
		t.Errorf("Expected 10 items on page 0, got %d", len(items))
	}

	items, _ = q.Page(2, 10)
	if len(items) != 5 {
		t.Errorf("Expected 5 items on last page, got %d", len(items))
	}

	items, _ = q.Page(3, 10)
	if items != nil {
		t.Errorf("Expected nil for out-of-range page, got %v", items)
	}
}
