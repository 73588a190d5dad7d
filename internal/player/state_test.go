package player

import (
	"context"
	"sync"
	"testing"
	"time"

	"groovebot/internal/resolver"

	"go.uber.org/goleak"
)

// fakeRegather returns tracks unchanged.
type fakeRegather struct{}

func (fakeRegather) Regather(_ context.Context, t *resolver.Track) (*resolver.Track, error) {
	return t, nil
}

// fakeHandle simulates a stream that plays until finished or stopped.
type fakeHandle struct {
	mu     sync.Mutex
	paused bool
	done   chan error
	once   sync.Once
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{done: make(chan error, 1)}
}

func (h *fakeHandle) SetPaused(p bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paused = p
}

func (h *fakeHandle) Paused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.paused
}

func (h *fakeHandle) Position() time.Duration { return 0 }
func (h *fakeHandle) Done() <-chan error      { return h.done }

func (h *fakeHandle) Stop() {
	h.once.Do(func() { h.done <- nil })
}

func (h *fakeHandle) finish() {
	h.once.Do(func() { h.done <- nil })
}

// fakeStreamer records streamed tracks and hands out fake handles.
type fakeStreamer struct {
	mu      sync.Mutex
	handles []*fakeHandle
	tracks  []*resolver.Track
	volumes []int
	started chan *fakeHandle
}

func newFakeStreamer() *fakeStreamer {
	return &fakeStreamer{started: make(chan *fakeHandle, 16)}
}

func (f *fakeStreamer) Stream(_ context.Context, t *resolver.Track, volume int) (StreamHandle, error) {
	h := newFakeHandle()
	f.mu.Lock()
	f.handles = append(f.handles, h)
	f.tracks = append(f.tracks, t)
	f.volumes = append(f.volumes, volume)
	f.mu.Unlock()
	f.started <- h
	return h, nil
}

type fakeConn struct {
	mu           sync.Mutex
	disconnected bool
}

func (c *fakeConn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	return nil
}

func (c *fakeConn) isDisconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnected
}

type fakeNotifier struct {
	mu      sync.Mutex
	playing []string
	idles   []string
	errs    []error
}

func (n *fakeNotifier) NowPlaying(_ string, t *resolver.Track, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.playing = append(n.playing, t.Title)
}

func (n *fakeNotifier) PlaybackError(_ string, _ *resolver.Track, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, err)
}

func (n *fakeNotifier) Idle(_ string, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.idles = append(n.idles, reason)
}


// waitLoaded polls until the state has a loaded track, guarding against the
// small window between Stream returning and the state recording the handle.
func waitLoaded(t *testing.T, s *State) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !s.HasTrack() {
		if time.Now().After(deadline) {
			t.Fatal("track never loaded")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func waitCurrent(t *testing.T, s *State, title string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		if cur := s.Current(); cur != nil && cur.Title == title {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("track %q never became current", title)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func newTestState(settings Settings) (*State, *fakeStreamer, *fakeConn, *fakeNotifier) {
	streamer := newFakeStreamer()
	conn := &fakeConn{}
	notifier := &fakeNotifier{}
	s := NewState("guild-1", settings, NewQueue(), fakeRegather{}, streamer, conn, notifier, nil)
	return s, streamer, conn, notifier
}

func TestStatePlaysQueuedTracks(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, streamer, _, notifier := newTestState(Settings{Volume: 30})
	s.Start(context.Background())
	defer func() {
		s.Stop()
		s.Wait()
	}()

	s.Enqueue(track("one"))
	s.Enqueue(track("two"))

	h1 := <-streamer.started
	waitCurrent(t, s, "one")
	h1.finish()

	h2 := <-streamer.started
	waitCurrent(t, s, "two")
	h2.finish()

	// Both tracks should have been announced.
	deadline := time.After(time.Second)
	for {
		notifier.mu.Lock()
		n := len(notifier.playing)
		notifier.mu.Unlock()
		if n == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("Expected 2 now-playing announcements, got %d", n)
		case <-time.After(5 * time.Millisecond):
		}
	}

	streamer.mu.Lock()
	defer streamer.mu.Unlock()
	if streamer.volumes[0] != 30 {
		t.Errorf("Expected volume 30, got %d", streamer.volumes[0])
	}
}

func TestStateIdleTimeoutDisconnects(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, _, conn, notifier := newTestState(Settings{IdleTimeout: 30 * time.Millisecond})
	s.Start(context.Background())

	s.Wait()

	if !conn.isDisconnected() {
		t.Error("Expected disconnect after idle timeout")
	}
	if s.Exists() {
		t.Error("Expected session to be dead after idle timeout")
	}
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.idles) != 1 {
		t.Errorf("Expected 1 idle notification, got %d", len(notifier.idles))
	}
}

func TestStateSkipByRequester(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, streamer, _, _ := newTestState(Settings{SkipThreshold: 3})
	s.Start(context.Background())
	defer func() {
		s.Stop()
		s.Wait()
	}()

	tr := track("skippable")
	tr.RequesterID = "alice"
	s.Enqueue(tr)
	<-streamer.started
	waitLoaded(t, s)

	skipped, _ := s.Skip("alice")
	if !skipped {
		t.Error("Requester skip should be immediate")
	}
}

func TestStateSkipVoteThreshold(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, streamer, _, _ := newTestState(Settings{SkipThreshold: 3})
	s.Start(context.Background())
	defer func() {
		s.Stop()
		s.Wait()
	}()

	tr := track("votable")
	tr.RequesterID = "owner"
	s.Enqueue(tr)
	<-streamer.started
	waitLoaded(t, s)

	if skipped, votes := s.Skip("u1"); skipped || votes != 1 {
		t.Errorf("vote 1: skipped=%v votes=%d", skipped, votes)
	}
	// Duplicate votes don't count twice.
	if skipped, votes := s.Skip("u1"); skipped || votes != 1 {
		t.Errorf("duplicate vote: skipped=%v votes=%d", skipped, votes)
	}
	if skipped, votes := s.Skip("u2"); skipped || votes != 2 {
		t.Errorf("vote 2: skipped=%v votes=%d", skipped, votes)
	}
	if skipped, _ := s.Skip("u3"); !skipped {
		t.Error("vote 3 should trigger skip")
	}
}

func TestStateStaleSkipSignalDoesNotSkipNextTrack(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, streamer, _, _ := newTestState(Settings{SkipThreshold: 3})
	// A vote that lands just as a track finishes naturally leaves its signal
	// behind; the next track must not be cut short by it.
	s.skipCh <- struct{}{}

	s.Start(context.Background())
	defer func() {
		s.Stop()
		s.Wait()
	}()

	s.Enqueue(track("survivor"))
	<-streamer.started
	waitCurrent(t, s, "survivor")

	time.Sleep(30 * time.Millisecond)
	if !s.HasTrack() {
		t.Error("Stale skip signal cut the next track short")
	}
}

func TestStateLoopReplaysFinishedTrack(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, streamer, _, _ := newTestState(Settings{Loop: true})
	s.Start(context.Background())
	defer func() {
		s.Stop()
		s.Wait()
	}()

	s.Enqueue(track("repeat-me"))

	h1 := <-streamer.started
	h1.finish()

	select {
	case <-streamer.started:
		// Replayed.
	case <-time.After(time.Second):
		t.Fatal("Loop mode did not replay the track")
	}
}

func TestStatePauseResume(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, streamer, _, _ := newTestState(Settings{})
	s.Start(context.Background())
	defer func() {
		s.Stop()
		s.Wait()
	}()

	if err := s.Pause(); err != ErrNotPlaying {
		t.Errorf("Pause with no track: %v", err)
	}

	s.Enqueue(track("pausable"))
	<-streamer.started
	waitLoaded(t, s)

	if err := s.Pause(); err != nil {
		t.Errorf("Pause failed: %v", err)
	}
	if s.IsPlaying() {
		t.Error("Expected not playing while paused")
	}
	if !s.HasTrack() {
		t.Error("Expected track loaded while paused")
	}
	if err := s.Resume(); err != nil {
		t.Errorf("Resume failed: %v", err)
	}
	if err := s.Resume(); err != ErrAlreadyPlaying {
		t.Errorf("Resume while playing: %v", err)
	}
}

func TestStateVolumeClamped(t *testing.T) {
	s, _, _, _ := newTestState(Settings{Volume: 30})

	if got := s.SetVolume(500); got != 200 {
		t.Errorf("Expected clamp to 200, got %d", got)
	}
	if got := s.SetVolume(-5); got != 0 {
		t.Errorf("Expected clamp to 0, got %d", got)
	}
	if got := s.SetVolume(75); got != 75 || s.Volume() != 75 {
		t.Errorf("Expected 75, got %d", got)
	}
}

func TestManagerReplacesDeadSessions(t *testing.T) {
	m := NewManager()

	s1, _, _, _ := newTestState(Settings{})
	got, err := m.GetOrCreate("g1", func() (*State, error) { return s1, nil })
	if err != nil || got != s1 {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if m.Get("g1") != s1 {
		t.Error("Get should return live session")
	}

	s1.Stop()
	if m.Get("g1") != nil {
		t.Error("Get should return nil for dead session")
	}

	s2, _, _, _ := newTestState(Settings{})
	got, err = m.GetOrCreate("g1", func() (*State, error) { return s2, nil })
	if err != nil || got != s2 {
		t.Error("GetOrCreate should replace dead session")
	}
}

func TestManagerStopAll(t *testing.T) {
	m := NewManager()
	s1, _, c1, _ := newTestState(Settings{})
	s2, _, c2, _ := newTestState(Settings{})
	m.GetOrCreate("g1", func() (*State, error) { return s1, nil })
	m.GetOrCreate("g2", func() (*State, error) { return s2, nil })

	m.StopAll()

	if !c1.isDisconnected() || !c2.isDisconnected() {
		t.Error("StopAll should disconnect every session")
	}
	if m.Count() != 0 {
		t.Errorf("Expected empty manager, got %d", m.Count())
	}
}
