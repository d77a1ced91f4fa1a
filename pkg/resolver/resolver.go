// Package resolver turns a free-text query or link into a playable
// song reference: a title plus the canonical media URL handed to the
// downloader process.
package resolver

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"time"

	youtube "github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog/log"
)

// ErrNoResults is returned when a search query matches nothing.
var ErrNoResults = errors.New("resolver: no results for query")

// Result is a resolved media reference.
type Result struct {
	Title    string
	URL      string
	Duration time.Duration
}

// Resolver resolves queries via the YouTube API client for direct links
// and the yt-dlp binary for search and for anything the client cannot
// handle.
type Resolver struct {
	binary string
	yt     *youtube.Client
}

func New(binary string) *Resolver {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &Resolver{
		binary: binary,
		yt: &youtube.Client{
			HTTPClient: &http.Client{Timeout: 15 * time.Second},
		},
	}
}

// Resolve maps a query or URL to a Result. Free text is searched and
// the first hit returned; a URL keeps its canonical form and only the
// metadata is fetched.
func (r *Resolver) Resolve(query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrNoResults
	}

	if !IsURL(query) {
		return r.search(query)
	}

	if id := ExtractVideoID(query); id != "" {
		if res, err := r.videoMetadata(query, id); err == nil {
			return res, nil
		} else {
			log.Debug().Err(err).Str("id", id).Msg("youtube client lookup failed, falling back to yt-dlp")
		}
	}
	return r.urlMetadata(query)
}

// videoMetadata fetches title and duration through the YouTube client,
// avoiding a subprocess round trip for plain video links.
func (r *Resolver) videoMetadata(pageURL, videoID string) (*Result, error) {
	video, err := r.yt.GetVideo(videoID)
	if err != nil {
		return nil, fmt.Errorf("resolver: video %s: %w", videoID, err)
	}
	return &Result{
		Title:    video.Title,
		URL:      pageURL,
		Duration: video.Duration,
	}, nil
}

// urlMetadata asks yt-dlp for title and duration of an arbitrary URL.
func (r *Resolver) urlMetadata(pageURL string) (*Result, error) {
	out, err := r.run(
		"--no-playlist",
		"--no-warnings",
		"--print", "title",
		"--print", "duration",
		pageURL)
	if err != nil {
		return nil, fmt.Errorf("resolver: metadata for %s: %w", pageURL, err)
	}

	lines := splitLines(out)
	res := &Result{Title: "Unknown Title", URL: pageURL}
	if len(lines) >= 1 && lines[0] != "" {
		res.Title = lines[0]
	}
	if len(lines) >= 2 {
		res.Duration = parseDurationSeconds(lines[1])
	}
	return res, nil
}

// search runs a single-result YouTube search and returns the first hit.
func (r *Resolver) search(query string) (*Result, error) {
	out, err := r.run(
		"--no-playlist",
		"--no-warnings",
		"--print", "webpage_url",
		"--print", "title",
		"--print", "duration",
		"ytsearch1:"+query)

	lines := splitLines(out)
	if len(lines) == 0 || lines[0] == "" {
		if err != nil {
			return nil, fmt.Errorf("resolver: search %q: %w", query, err)
		}
		return nil, ErrNoResults
	}

	res := &Result{Title: "Unknown Title", URL: lines[0]}
	if len(lines) >= 2 && lines[1] != "" {
		res.Title = lines[1]
	}
	if len(lines) >= 3 {
		res.Duration = parseDurationSeconds(lines[2])
	}
	return res, nil
}

func (r *Resolver) run(args ...string) (string, error) {
	cmd := exec.Command(r.binary, args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		err = fmt.Errorf("%s: %w: %s", r.binary, err, strings.TrimSpace(stderr.String()))
	}
	// Partial output is still parsed; some extractor errors follow a
	// usable result on stdout.
	return out.String(), err
}

func splitLines(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return lines
}

func parseDurationSeconds(s string) time.Duration {
	if s == "" || s == "None" || s == "NA" {
		return 0
	}
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
