package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"groovebot/internal/logging"
	"groovebot/internal/resolver"
)

var (
	// ErrNotPlaying is returned when a playback control has nothing to act on.
	ErrNotPlaying = errors.New("no audio is playing")
	// ErrAlreadyPlaying is returned by Resume when playback is not paused.
	ErrAlreadyPlaying = errors.New("audio is already playing")
)

// Regatherer refreshes a track's expiring stream URL before playback.
type Regatherer interface {
	Regather(ctx context.Context, t *resolver.Track) (*resolver.Track, error)
}

// StreamHandle controls one in-flight stream.
type StreamHandle interface {
	SetPaused(paused bool)
	Paused() bool
	Position() time.Duration
	Done() <-chan error
	Stop()
}

// Streamer starts a stream of the given track into the voice connection the
// streamer was built around.
type Streamer interface {
	Stream(ctx context.Context, t *resolver.Track, volumePercent int) (StreamHandle, error)
}

// Connection is the slice of a Discord voice connection the state needs.
type Connection interface {
	Disconnect() error
}

// Notifier posts playback updates back to the guild's text channel.
type Notifier interface {
	NowPlaying(guildID string, t *resolver.Track, action string)
	PlaybackError(guildID string, t *resolver.Track, err error)
	Idle(guildID string, reason string)
}

// SettingsSaver persists per-guild playback settings.
type SettingsSaver interface {
	SaveGuildSettings(guildID string, volume int, loop bool) error
}

// Settings are the per-guild tunables the state starts with.
type Settings struct {
	Volume           int
	Loop             bool
	IdleTimeout      time.Duration
	WatchdogInterval time.Duration
	SkipThreshold    int
}

// State is one guild's voice session. It owns the queue, the player loop
// goroutine, and the inactivity watchdog. A State is single-use: once
// stopped it reports Exists() == false and the manager replaces it.
type State struct {
	guildID  string
	settings Settings

	queue    *Queue
	regather Regatherer
	streamer Streamer
	conn     Connection
	notifier Notifier
	saver    SettingsSaver

	mu        sync.Mutex
	current   *resolver.Track
	handle    StreamHandle
	volume    int
	loop      bool
	skipVotes map[string]struct{}
	exists    bool

	skipCh chan struct{}
	cancel context.CancelFunc
	doneCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewState creates a voice session. Start must be called to begin playback.
func NewState(guildID string, settings Settings, queue *Queue, regather Regatherer, streamer Streamer, conn Connection, notifier Notifier, saver SettingsSaver) *State {
	if settings.IdleTimeout <= 0 {
		settings.IdleTimeout = 5 * time.Minute
	}
	if settings.WatchdogInterval <= 0 {
		settings.WatchdogInterval = 30 * time.Minute
	}
	if settings.SkipThreshold <= 0 {
		settings.SkipThreshold = 3
	}
	if queue == nil {
		queue = NewQueue()
	}
	return &State{
		guildID:   guildID,
		settings:  settings,
		queue:     queue,
		regather:  regather,
		streamer:  streamer,
		conn:      conn,
		notifier:  notifier,
		saver:     saver,
		volume:    settings.Volume,
		loop:      settings.Loop,
		skipVotes: make(map[string]struct{}),
		exists:    true,
		skipCh:    make(chan struct{}, 1),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the player loop and the inactivity watchdog.
func (s *State) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.watchdog(ctx)
	}()

	go func() {
		s.wg.Wait()
		close(s.doneCh)
	}()
	logging.Player("guild %s: voice session started", s.guildID)
}

// run is the player loop: pop, regather, stream, wait.
func (s *State) run(ctx context.Context) {
	for {
		popCtx, cancel := context.WithTimeout(ctx, s.settings.IdleTimeout)
		track, err := s.queue.Pop(popCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return // session stopped
			}
			// Idle timeout: nothing queued for the whole window.
			logging.Player("guild %s: idle timeout, disconnecting", s.guildID)
			logging.Audit().Record(logging.AuditEvent{
				EventType: logging.AuditVoiceIdleLeave,
				GuildID:   s.guildID,
				Success:   true,
			})
			s.stop("idle timeout")
			return
		}

		if err := s.playOne(ctx, track); err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.PlayerError("guild %s: playback of %q failed: %v", s.guildID, track.Title, err)
			if s.notifier != nil {
				s.notifier.PlaybackError(s.guildID, track, err)
			}
		}
	}
}

func (s *State) playOne(ctx context.Context, track *resolver.Track) error {
	// A skip that raced the previous track's natural finish leaves a stale
	// signal in the buffer; it must not cut this track short.
	select {
	case <-s.skipCh:
	default:
	}

	// Stream URLs expire; refresh right before playback.
	fresh, err := s.regather.Regather(ctx, track)
	if err != nil {
		return fmt.Errorf("regather: %w", err)
	}

	handle, err := s.streamer.Stream(ctx, fresh, s.Volume())
	if err != nil {
		return fmt.Errorf("stream: %w", err)
	}

	s.mu.Lock()
	s.current = fresh
	s.handle = handle
	s.skipVotes = make(map[string]struct{})
	s.mu.Unlock()

	logging.Player("guild %s: playing %q (%s)", s.guildID, fresh.Title, resolver.FormatDuration(fresh.Duration))
	logging.Audit().Record(logging.AuditEvent{
		EventType: logging.AuditTrackStart,
		GuildID:   s.guildID,
		UserID:    fresh.RequesterID,
		Target:    fresh.WebpageURL,
		Success:   true,
	})
	if s.notifier != nil {
		s.notifier.NowPlaying(s.guildID, fresh, "")
	}

	skipped := false
	select {
	case streamErr := <-handle.Done():
		if streamErr != nil && !errors.Is(streamErr, context.Canceled) {
			s.clearCurrent()
			return fmt.Errorf("stream ended: %w", streamErr)
		}
	case <-s.skipCh:
		skipped = true
		handle.Stop()
	case <-ctx.Done():
		handle.Stop()
		s.clearCurrent()
		return ctx.Err()
	}

	s.clearCurrent()

	if skipped {
		logging.Audit().Record(logging.AuditEvent{
			EventType: logging.AuditTrackSkip,
			GuildID:   s.guildID,
			Target:    fresh.WebpageURL,
			Success:   true,
		})
	} else {
		logging.Audit().Record(logging.AuditEvent{
			EventType: logging.AuditTrackFinish,
			GuildID:   s.guildID,
			Target:    fresh.WebpageURL,
			Success:   true,
		})
		// Loop mode replays the finished track; a skip breaks out of it.
		if s.Loop() {
			s.queue.PushFront(track)
		}
	}
	return nil
}

func (s *State) clearCurrent() {
	s.mu.Lock()
	s.current = nil
	s.handle = nil
	s.mu.Unlock()
}

// watchdog disconnects a connected-but-idle session every interval.
func (s *State) watchdog(ctx context.Context) {
	ticker := time.NewTicker(s.settings.WatchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.IsPlaying() && s.queue.Len() == 0 && s.Exists() {
				logging.Player("guild %s: inactivity watchdog fired, disconnecting", s.guildID)
				s.stop("inactivity")
				return
			}
			logging.PlayerDebug("guild %s: watchdog: session active, rearming", s.guildID)
		}
	}
}

// Enqueue adds a track to the queue.
func (s *State) Enqueue(t *resolver.Track) {
	s.queue.Push(t)
}

// Queue exposes the underlying queue for queue commands.
func (s *State) Queue() *Queue {
	return s.queue
}

// Current returns the track being played, or nil.
func (s *State) Current() *resolver.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// IsPlaying reports whether a track is actively streaming (not paused).
func (s *State) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil && !s.handle.Paused()
}

// HasTrack reports whether a track is loaded, paused or not.
func (s *State) HasTrack() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil
}

// Position returns the playback position of the current track.
func (s *State) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return 0
	}
	return s.handle.Position()
}

// Pause pauses the current stream.
func (s *State) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil || s.handle.Paused() {
		return ErrNotPlaying
	}
	s.handle.SetPaused(true)
	return nil
}

// Resume resumes a paused stream.
func (s *State) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return ErrNotPlaying
	}
	if !s.handle.Paused() {
		return ErrAlreadyPlaying
	}
	s.handle.SetPaused(false)
	return nil
}

// Skip registers a skip request. The requester of the current track skips
// immediately; anyone else casts a vote and the skip fires at the threshold.
// Returns whether the track was skipped and the current vote count.
func (s *State) Skip(userID string) (skipped bool, votes int) {
	s.mu.Lock()
	if s.handle == nil {
		s.mu.Unlock()
		return false, 0
	}
	if s.current != nil && s.current.RequesterID == userID {
		s.skipVotes = make(map[string]struct{})
		s.mu.Unlock()
		s.fireSkip()
		return true, 0
	}
	s.skipVotes[userID] = struct{}{}
	votes = len(s.skipVotes)
	threshold := s.settings.SkipThreshold
	if votes >= threshold {
		s.skipVotes = make(map[string]struct{})
		s.mu.Unlock()
		s.fireSkip()
		return true, votes
	}
	s.mu.Unlock()
	return false, votes
}

func (s *State) fireSkip() {
	select {
	case s.skipCh <- struct{}{}:
	default:
	}
}

// Volume returns the current volume percent.
func (s *State) Volume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// SetVolume clamps and stores the volume percent. The new volume applies
// from the next track: opus frames are encoded with the volume baked in.
func (s *State) SetVolume(percent int) int {
	if percent < 0 {
		percent = 0
	}
	if percent > 200 {
		percent = 200
	}
	s.mu.Lock()
	s.volume = percent
	loop := s.loop
	s.mu.Unlock()

	s.persist(percent, loop)
	return percent
}

// Loop returns whether loop mode is on.
func (s *State) Loop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loop
}

// ToggleLoop flips loop mode and returns the new value.
func (s *State) ToggleLoop() bool {
	s.mu.Lock()
	s.loop = !s.loop
	loop := s.loop
	vol := s.volume
	s.mu.Unlock()

	s.persist(vol, loop)
	return loop
}

func (s *State) persist(volume int, loop bool) {
	if s.saver == nil {
		return
	}
	if err := s.saver.SaveGuildSettings(s.guildID, volume, loop); err != nil {
		logging.PlayerWarn("guild %s: failed to persist settings: %v", s.guildID, err)
	}
}

// Exists reports whether the session is still live.
func (s *State) Exists() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exists
}

// Stop tears the session down: clears the queue, stops the stream, and
// disconnects from voice. Idempotent.
func (s *State) Stop() {
	s.stop("stopped")
}

func (s *State) stop(reason string) {
	s.once.Do(func() {
		s.mu.Lock()
		s.exists = false
		handle := s.handle
		s.mu.Unlock()

		s.queue.Clear()
		if handle != nil {
			handle.Stop()
		}
		if s.cancel != nil {
			s.cancel()
		}
		if s.conn != nil {
			if err := s.conn.Disconnect(); err != nil {
				logging.PlayerWarn("guild %s: disconnect: %v", s.guildID, err)
			}
		}
		if s.notifier != nil {
			s.notifier.Idle(s.guildID, reason)
		}
		logging.Player("guild %s: voice session stopped (%s)", s.guildID, reason)
	})
}

// Wait blocks until the player loop and watchdog have exited. Test helper
// and shutdown aid.
func (s *State) Wait() {
	<-s.doneCh
}
