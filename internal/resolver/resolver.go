// Package resolver turns search queries and URLs into playable tracks by
// driving yt-dlp as a subprocess with JSON output.
package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"groovebot/internal/logging"

	"golang.org/x/sync/singleflight"
)

// ErrNoResults is returned when yt-dlp finds nothing for a query.
var ErrNoResults = errors.New("no results found")

// Cache stores query -> webpage URL resolutions. Only watch-page URLs are
// cached; stream URLs expire and must never be persisted.
type Cache interface {
	GetResolution(query string) ([]string, bool)
	PutResolution(query string, urls []string) error
}

// Options configures the resolver.
type Options struct {
	YTDLPPath string
	Timeout   time.Duration
}

// Resolver resolves queries via yt-dlp. Concurrent identical lookups are
// collapsed with singleflight so a popular query spawns one subprocess.
type Resolver struct {
	opts  Options
	cache Cache
	group singleflight.Group

	// run executes a command and returns stdout; replaced in tests.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// New creates a Resolver backed by the given cache. A nil cache disables
// caching but not resolution.
func New(opts Options, cache Cache) *Resolver {
	if opts.YTDLPPath == "" {
		opts.YTDLPPath = "yt-dlp"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Resolver{opts: opts, cache: cache, run: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s: %s: %w", name, msg, err)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// ytdlpInfo mirrors the yt-dlp JSON fields the bot reads.
type ytdlpInfo struct {
	Type        string            `json:"_type"`
	Title       string            `json:"title"`
	Uploader    string            `json:"uploader"`
	UploaderURL string            `json:"uploader_url"`
	WebpageURL  string            `json:"webpage_url"`
	URL         string            `json:"url"`
	Thumbnail   string            `json:"thumbnail"`
	Description string            `json:"description"`
	Duration    float64           `json:"duration"`
	HTTPHeaders map[string]string `json:"http_headers"`
	Entries     []ytdlpInfo       `json:"entries"`
}

// Resolve turns a query (free text or URL) into stable watch-page URLs.
// A playlist URL yields every entry; free text yields the top search hit.
func (r *Resolver) Resolve(ctx context.Context, query string) ([]string, error) {
	timer := logging.StartTimer(logging.CategoryResolver, "Resolve")
	defer timer.StopWithThreshold(5 * time.Second)

	if r.cache != nil {
		if urls, ok := r.cache.GetResolution(query); ok && len(urls) > 0 {
			logging.ResolverDebug("cache hit: %q -> %d urls", query, len(urls))
			return urls, nil
		}
	}

	v, err, _ := r.group.Do(query, func() (interface{}, error) {
		return r.resolveUncached(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	urls := v.([]string)

	if r.cache != nil {
		if err := r.cache.PutResolution(query, urls); err != nil {
			logging.Get(logging.CategoryResolver).Warn("cache write failed for %q: %v", query, err)
		}
	}
	return urls, nil
}

func (r *Resolver) resolveUncached(ctx context.Context, query string) ([]string, error) {
	target := query
	if !isURL(query) {
		// Colons confuse yt-dlp's prefix parsing, same workaround the old
		// bot used before handing queries to the extractor.
		target = "ytsearch1:" + strings.ReplaceAll(query, ":", "")
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	out, err := r.run(ctx, r.opts.YTDLPPath,
		"-J", "--flat-playlist", "--no-warnings", "--default-search", "auto", target)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", query, err)
	}

	var info ytdlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("resolve %q: parse yt-dlp output: %w", query, err)
	}

	var urls []string
	if len(info.Entries) > 0 {
		for _, e := range info.Entries {
			switch {
			case e.WebpageURL != "":
				urls = append(urls, e.WebpageURL)
			case e.URL != "":
				// Flat playlist entries carry the watch URL in "url".
				urls = append(urls, e.URL)
			}
		}
	} else if info.WebpageURL != "" {
		urls = append(urls, info.WebpageURL)
	}

	if len(urls) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNoResults, query)
	}
	logging.Resolver("resolved %q -> %d url(s)", query, len(urls))
	return urls, nil
}

// Fetch extracts full track metadata, including a fresh stream URL, for a
// single watch-page URL.
func (r *Resolver) Fetch(ctx context.Context, webpageURL string) (*Track, error) {
	timer := logging.StartTimer(logging.CategoryResolver, "Fetch")
	defer timer.StopWithThreshold(10 * time.Second)

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	out, err := r.run(ctx, r.opts.YTDLPPath,
		"-J", "--no-playlist", "--no-warnings", "-f", "bestaudio/best", webpageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", webpageURL, err)
	}

	var info ytdlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("fetch %q: parse yt-dlp output: %w", webpageURL, err)
	}
	// A playlist URL slipped through; take the first playable entry.
	if len(info.Entries) > 0 {
		info = info.Entries[0]
	}
	if info.URL == "" {
		return nil, fmt.Errorf("%w for %q", ErrNoResults, webpageURL)
	}

	t := &Track{
		Title:       info.Title,
		Uploader:    info.Uploader,
		UploaderURL: info.UploaderURL,
		WebpageURL:  info.WebpageURL,
		StreamURL:   info.URL,
		Thumbnail:   info.Thumbnail,
		Description: info.Description,
		Duration:    time.Duration(info.Duration * float64(time.Second)),
		HTTPHeaders: info.HTTPHeaders,
	}
	if t.WebpageURL == "" {
		t.WebpageURL = webpageURL
	}
	return t, nil
}

// Regather refreshes the expiring stream URL and headers right before
// playback. The track's requester metadata is preserved.
func (r *Resolver) Regather(ctx context.Context, t *Track) (*Track, error) {
	if t.WebpageURL == "" {
		return t, nil
	}
	fresh, err := r.Fetch(ctx, t.WebpageURL)
	if err != nil {
		return nil, fmt.Errorf("regather: %w", err)
	}
	fresh.RequesterID = t.RequesterID
	fresh.RequesterName = t.RequesterName
	return fresh, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
