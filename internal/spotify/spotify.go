// Package spotify expands Spotify playlist URLs into YouTube search queries.
// The bot never streams from Spotify; each playlist track becomes a
// "<name> <artist> Audio" query routed through the resolver, the same trick
// the old bot used.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	spotifyapi "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrNotPlaylistURL is returned for URLs that are not Spotify playlists.
var ErrNotPlaylistURL = errors.New("not a spotify playlist URL")

var playlistURLRe = regexp.MustCompile(`spotify\.com/playlist/([A-Za-z0-9]+)`)

// IsPlaylistURL reports whether the string looks like a Spotify playlist URL.
func IsPlaylistURL(s string) bool {
	return strings.Contains(s, "spotify.com/playlist")
}

// PlaylistIDFromURL extracts the playlist ID from a playlist URL, tolerating
// query strings like ?si=....
func PlaylistIDFromURL(url string) (string, error) {
	m := playlistURLRe.FindStringSubmatch(url)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrNotPlaylistURL, url)
	}
	return m[1], nil
}

// TrackRef is the minimal track identity needed to build a search query.
type TrackRef struct {
	Name   string
	Artist string
}

// Query renders the YouTube search query for the track. Colons are stripped
// because they collide with yt-dlp's prefix syntax.
func (t TrackRef) Query() string {
	q := fmt.Sprintf("%s %s Audio", t.Name, t.Artist)
	return strings.ReplaceAll(q, ":", "")
}

// PlaylistClient fetches playlist metadata. Satisfied by Client and faked in
// tests.
type PlaylistClient interface {
	PlaylistName(ctx context.Context, id string) (string, error)
	PlaylistTracks(ctx context.Context, id string) ([]TrackRef, error)
}

// Client wraps the Spotify Web API with client-credentials auth.
type Client struct {
	api *spotifyapi.Client
}

// NewClient authenticates with the client-credentials flow. Credentials come
// from the environment via config; they are never stored on disk.
func NewClient(ctx context.Context, clientID, clientSecret string) (*Client, error) {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	token, err := cfg.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("spotify auth: %w", err)
	}
	httpClient := spotifyauth.New().Client(ctx, token)
	return &Client{api: spotifyapi.New(httpClient)}, nil
}

// PlaylistName returns the playlist's display name.
func (c *Client) PlaylistName(ctx context.Context, id string) (string, error) {
	pl, err := c.api.GetPlaylist(ctx, spotifyapi.ID(id))
	if err != nil {
		return "", fmt.Errorf("get playlist %s: %w", id, err)
	}
	return pl.Name, nil
}

// PlaylistTracks returns every track in the playlist, following pagination.
func (c *Client) PlaylistTracks(ctx context.Context, id string) ([]TrackRef, error) {
	page, err := c.api.GetPlaylistItems(ctx, spotifyapi.ID(id))
	if err != nil {
		return nil, fmt.Errorf("get playlist items %s: %w", id, err)
	}

	var refs []TrackRef
	for {
		for _, item := range page.Items {
			track := item.Track.Track
			if track == nil {
				continue // episode or removed track
			}
			ref := TrackRef{Name: track.Name}
			if len(track.Artists) > 0 {
				ref.Artist = track.Artists[0].Name
			}
			refs = append(refs, ref)
		}
		err = c.api.NextPage(ctx, page)
		if errors.Is(err, spotifyapi.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("playlist page: %w", err)
		}
	}
	return refs, nil
}
