package player

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"groovebot/internal/logging"
	"groovebot/internal/resolver"

	"github.com/bwmarrin/discordgo"
	"github.com/jonas747/dca"
)

// DCAStreamer streams tracks into one Discord voice connection. The pipeline
// is a two-stage subprocess chain: an ffmpeg fetch stage pulls the stream URL
// with the headers yt-dlp negotiated and writes WAV to stdout, and dca
// encodes that into opus frames for the gateway.
type DCAStreamer struct {
	FFmpegPath  string
	AudioFilter string
	Bitrate     int

	vc *discordgo.VoiceConnection
}

// NewDCAStreamer wraps a voice connection.
func NewDCAStreamer(vc *discordgo.VoiceConnection, ffmpegPath, audioFilter string, bitrate int) *DCAStreamer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if bitrate <= 0 {
		bitrate = 96
	}
	return &DCAStreamer{FFmpegPath: ffmpegPath, AudioFilter: audioFilter, Bitrate: bitrate, vc: vc}
}

// Stream starts playback of the track at the given volume percent.
func (d *DCAStreamer) Stream(ctx context.Context, t *resolver.Track, volumePercent int) (StreamHandle, error) {
	args := resolver.FetchArgs(t, d.AudioFilter)
	cmd := exec.CommandContext(ctx, d.FFmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	opts := &dca.EncodeOptions{
		Volume:           volumeScale(volumePercent),
		Channels:         2,
		FrameRate:        48000,
		FrameDuration:    20,
		Bitrate:          d.Bitrate,
		PacketLoss:       1,
		RawOutput:        true,
		Application:      dca.AudioApplicationAudio,
		CompressionLevel: 10,
		BufferedFrames:   100,
		VBR:              true,
	}
	enc, err := dca.EncodeMem(stdout, opts)
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("opus encode: %w", err)
	}

	if err := d.vc.Speaking(true); err != nil {
		logging.PlayerWarn("speaking(true): %v", err)
	}

	raw := make(chan error, 1)
	session := dca.NewStream(enc, d.vc, raw)

	h := &dcaHandle{
		cmd:     cmd,
		enc:     enc,
		session: session,
		vc:      d.vc,
		done:    make(chan error, 1),
	}
	go h.finish(raw)
	return h, nil
}

// volumeScale maps percent to dca's 256-based scale.
func volumeScale(percent int) int {
	if percent < 0 {
		percent = 0
	}
	if percent > 200 {
		percent = 200
	}
	return percent * 256 / 100
}

type dcaHandle struct {
	cmd     *exec.Cmd
	enc     *dca.EncodeSession
	session *dca.StreamingSession
	vc      *discordgo.VoiceConnection

	stopOnce sync.Once
	done     chan error
}

// finish waits for the raw dca completion, normalizes io.EOF to success,
// and reaps the fetch process.
func (h *dcaHandle) finish(raw chan error) {
	err := <-raw
	if err == io.EOF {
		err = nil
	}

	h.enc.Cleanup()
	_ = h.cmd.Wait()
	if serr := h.vc.Speaking(false); serr != nil {
		logging.PlayerWarn("speaking(false): %v", serr)
	}
	h.done <- err
}

func (h *dcaHandle) SetPaused(paused bool) {
	h.session.SetPaused(paused)
}

func (h *dcaHandle) Paused() bool {
	return h.session.Paused()
}

func (h *dcaHandle) Position() time.Duration {
	return h.session.PlaybackPosition()
}

func (h *dcaHandle) Done() <-chan error {
	return h.done
}

// Stop kills the pipeline. The raw done channel fires as the encoder dies,
// so finish still runs exactly once.
func (h *dcaHandle) Stop() {
	h.stopOnce.Do(func() {
		h.enc.Cleanup()
		if h.cmd.Process != nil {
			_ = h.cmd.Process.Kill()
		}
	})
}
