package spotify

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlaylist struct {
	name   string
	tracks []TrackRef
	err    error
}

func (f *fakePlaylist) PlaylistName(ctx context.Context, id string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.name, nil
}

func (f *fakePlaylist) PlaylistTracks(ctx context.Context, id string) ([]TrackRef, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tracks, nil
}

type fakeResolver struct {
	results map[string][]string
	queries []string
}

func (f *fakeResolver) Resolve(ctx context.Context, query string) ([]string, error) {
	f.queries = append(f.queries, query)
	urls, ok := f.results[query]
	if !ok {
		return nil, errors.New("no results")
	}
	return urls, nil
}

func TestPlaylistIDFromURL(t *testing.T) {
	id, err := PlaylistIDFromURL("https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc123")
	require.NoError(t, err)
	assert.Equal(t, "37i9dQZF1DXcBWIGoYBM5M", id)

	_, err = PlaylistIDFromURL("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	assert.ErrorIs(t, err, ErrNotPlaylistURL)
}

func TestIsPlaylistURL(t *testing.T) {
	assert.True(t, IsPlaylistURL("https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M"))
	assert.False(t, IsPlaylistURL("https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC"))
	assert.False(t, IsPlaylistURL("never gonna give you up"))
}

func TestTrackRefQuery(t *testing.T) {
	q := TrackRef{Name: "Re: Stacks", Artist: "Bon Iver"}.Query()
	assert.Equal(t, "Re Stacks Bon Iver Audio", q)
}

func TestExpandEnqueuesResolvedTracks(t *testing.T) {
	pl := &fakePlaylist{
		name: "road trip",
		tracks: []TrackRef{
			{Name: "One", Artist: "A"},
			{Name: "Two", Artist: "B"},
		},
	}
	res := &fakeResolver{results: map[string][]string{
		"One A Audio": {"https://youtube.com/watch?v=one"},
		"Two B Audio": {"https://youtube.com/watch?v=two"},
	}}
	exp := NewExpander(pl, res, 0)

	var got []string
	name, n, err := exp.Expand(context.Background(),
		"https://open.spotify.com/playlist/abc123",
		func(url string) error {
			got = append(got, url)
			return nil
		}, nil)
	require.NoError(t, err)
	assert.Equal(t, "road trip", name)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"https://youtube.com/watch?v=one", "https://youtube.com/watch?v=two"}, got)
}

func TestExpandSkipsUnresolvableTracks(t *testing.T) {
	pl := &fakePlaylist{name: "gaps", tracks: []TrackRef{
		{Name: "Hit", Artist: "X"},
		{Name: "Obscure", Artist: "Y"},
		{Name: "Hit Two", Artist: "X"},
	}}
	res := &fakeResolver{results: map[string][]string{
		"Hit X Audio":     {"u1"},
		"Hit Two X Audio": {"u2"},
	}}
	exp := NewExpander(pl, res, 0)

	var progress []int
	_, n, err := exp.Expand(context.Background(),
		"https://open.spotify.com/playlist/abc",
		func(string) error { return nil },
		func(done, total int, name string) {
			progress = append(progress, done)
			assert.Equal(t, 3, total)
		})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int{1, 2, 3}, progress, "progress counts attempts, not successes")
}

func TestExpandAbortsWhenEnqueueFails(t *testing.T) {
	pl := &fakePlaylist{name: "long", tracks: []TrackRef{
		{Name: "A", Artist: "A"}, {Name: "B", Artist: "B"}, {Name: "C", Artist: "C"},
	}}
	res := &fakeResolver{results: map[string][]string{
		"A A Audio": {"u1"}, "B B Audio": {"u2"}, "C C Audio": {"u3"},
	}}
	exp := NewExpander(pl, res, 0)

	calls := 0
	dead := errors.New("session gone")
	_, n, err := exp.Expand(context.Background(),
		"https://open.spotify.com/playlist/abc",
		func(string) error {
			calls++
			if calls == 2 {
				return dead
			}
			return nil
		}, nil)
	assert.ErrorIs(t, err, dead)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, calls)
}

func TestExpandHonorsContextDuringPacing(t *testing.T) {
	tracks := make([]TrackRef, 5)
	results := map[string][]string{}
	for i := range tracks {
		tracks[i] = TrackRef{Name: fmt.Sprintf("T%d", i), Artist: "Z"}
		results[tracks[i].Query()] = []string{fmt.Sprintf("u%d", i)}
	}
	pl := &fakePlaylist{name: "paced", tracks: tracks}
	exp := NewExpander(pl, &fakeResolver{results: results}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	n := 0
	errCh := make(chan error, 1)
	go func() {
		var err error
		_, n, err = exp.Expand(ctx, "https://open.spotify.com/playlist/abc",
			func(string) error { return nil }, nil)
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, n, "only the first track fits before the pacing delay")
	case <-time.After(2 * time.Second):
		t.Fatal("Expand did not return after cancel")
	}
}

func TestExpandBadURL(t *testing.T) {
	exp := NewExpander(&fakePlaylist{}, &fakeResolver{}, 0)
	_, _, err := exp.Expand(context.Background(), "not a url", func(string) error { return nil }, nil)
	assert.ErrorIs(t, err, ErrNotPlaylistURL)
}
