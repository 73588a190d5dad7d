package spotify

import (
	"context"
	"time"

	"groovebot/internal/logging"
)

// EnqueueFunc receives the YouTube webpage URL resolved for one playlist
// track. Returning an error aborts the expansion; the player uses this to
// stop when the voice session dies mid-playlist.
type EnqueueFunc func(webpageURL string) error

// ProgressFunc is called after each track is handled. done counts attempts,
// not successes.
type ProgressFunc func(done, total int, name string)

// Resolver is the slice of the query resolver the expander needs.
type Resolver interface {
	Resolve(ctx context.Context, query string) ([]string, error)
}

// Expander turns a playlist URL into a paced series of enqueue calls. Pacing
// keeps yt-dlp from hammering the search endpoint on large playlists.
type Expander struct {
	client   PlaylistClient
	resolver Resolver
	delay    time.Duration
}

func NewExpander(client PlaylistClient, resolver Resolver, delay time.Duration) *Expander {
	return &Expander{client: client, resolver: resolver, delay: delay}
}

// Expand resolves every track in the playlist and enqueues it through fn.
// Tracks that fail to resolve are skipped and logged rather than aborting the
// whole playlist. The returned count is the number of tracks enqueued.
func (e *Expander) Expand(ctx context.Context, url string, fn EnqueueFunc, progress ProgressFunc) (string, int, error) {
	id, err := PlaylistIDFromURL(url)
	if err != nil {
		return "", 0, err
	}

	name, err := e.client.PlaylistName(ctx, id)
	if err != nil {
		return "", 0, err
	}
	refs, err := e.client.PlaylistTracks(ctx, id)
	if err != nil {
		return name, 0, err
	}
	logging.Spotify("expanding playlist %q: %d tracks", name, len(refs))

	enqueued := 0
	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			return name, enqueued, err
		}

		urls, err := e.resolver.Resolve(ctx, ref.Query())
		if err != nil || len(urls) == 0 {
			logging.SpotifyWarn("no result for %q: %v", ref.Query(), err)
		} else if err := fn(urls[0]); err != nil {
			return name, enqueued, err
		} else {
			enqueued++
		}

		if progress != nil {
			progress(i+1, len(refs), ref.Name)
		}
		if e.delay > 0 && i < len(refs)-1 {
			select {
			case <-time.After(e.delay):
			case <-ctx.Done():
				return name, enqueued, ctx.Err()
			}
		}
	}
	return name, enqueued, nil
}
