package resolver

import (
	"sort"
	"strings"
)

// buildHeaderArg builds an ffmpeg -headers argument value.
//
// FFmpeg expects a single string containing CRLF-separated header lines.
func buildHeaderArg(headers map[string]string) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		if strings.TrimSpace(k) != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(strings.TrimSpace(k))
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(headers[k]))
		b.WriteString("\r\n")
	}
	return b.String()
}

// FetchArgs builds the argument list for the ffmpeg fetch stage: it pulls the
// stream URL with reconnect flags and the headers yt-dlp negotiated, applies
// the audio filter, and writes WAV to stdout for the opus encode stage.
//
// On some networks (especially datacenter IPs) media hosts return 403 unless
// the request carries the same headers yt-dlp used to obtain the URL, so the
// headers ride along via -user_agent/-referer/-headers.
func FetchArgs(t *Track, audioFilter string) []string {
	headers := make(map[string]string, len(t.HTTPHeaders))
	for k, v := range t.HTTPHeaders {
		headers[k] = v
	}

	if t.WebpageURL != "" {
		if _, ok := headers["Referer"]; !ok {
			headers["Referer"] = t.WebpageURL
		}
		if _, ok := headers["Origin"]; !ok {
			headers["Origin"] = "https://www.youtube.com"
		}
	}

	// Prefer explicit -user_agent; remove from -headers to avoid duplicates.
	userAgent := headers["User-Agent"]
	if userAgent == "" {
		userAgent = headers["User-agent"]
	}
	delete(headers, "User-Agent")
	delete(headers, "User-agent")

	args := []string{
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-rw_timeout", "15000000",
	}
	if userAgent != "" {
		args = append(args, "-user_agent", userAgent)
	}
	if ref := headers["Referer"]; ref != "" {
		args = append(args, "-referer", ref)
	}
	if len(headers) > 0 {
		args = append(args, "-headers", buildHeaderArg(headers))
	}

	args = append(args, "-i", t.StreamURL, "-vn")
	if audioFilter != "" {
		args = append(args, "-af", audioFilter)
	}
	args = append(args, "-ar", "48000", "-ac", "2", "-f", "wav", "pipe:1")
	return args
}
