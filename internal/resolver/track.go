package resolver

import (
	"fmt"
	"strings"
	"time"
)

// Track is one playable item resolved by yt-dlp.
//
// WebpageURL is the stable watch-page URL and the only thing safe to cache.
// StreamURL is the temporary direct media URL; it expires, so it is refreshed
// by Regather right before playback. HTTPHeaders are the headers yt-dlp used
// when generating the stream URL; some hosts return 403 unless ffmpeg sends
// the same ones.
type Track struct {
	Title       string
	Uploader    string
	UploaderURL string
	WebpageURL  string
	StreamURL   string
	Thumbnail   string
	Description string
	Duration    time.Duration
	HTTPHeaders map[string]string

	// Requester metadata, filled in by the command layer.
	RequesterID   string
	RequesterName string
}

func (t *Track) String() string {
	return fmt.Sprintf("**%s** by **%s**", t.Title, t.Uploader)
}

// FormatDuration renders a duration as prose, e.g. "1 hours, 4 minutes, 2 seconds".
func FormatDuration(d time.Duration) string {
	total := int(d.Seconds())
	minutes, seconds := total/60, total%60
	hours, minutes := minutes/60, minutes%60
	days, hours := hours/24, hours%24

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d days", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d hours", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d minutes", minutes))
	}
	if seconds > 0 {
		parts = append(parts, fmt.Sprintf("%d seconds", seconds))
	}
	if len(parts) == 0 {
		return "0 seconds"
	}
	return strings.Join(parts, ", ")
}
