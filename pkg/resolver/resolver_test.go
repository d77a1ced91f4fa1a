package resolver

import (
	"errors"
	"os/exec"
	"testing"
	"time"
)

func TestIsURL(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"http://example.com/audio.mp3", true},
		{"www.youtube.com/watch?v=abc", true},
		{"never gonna give you up", false},
		{"", false},
	}
	for _, c := range cases {
		if got := IsURL(c.in); got != c.want {
			t.Errorf("IsURL(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestExtractVideoID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ?si=xyz", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://example.com/watch?v=dQw4w9WgXcQ", ""},
		{"https://www.youtube.com/playlist?list=PL123", ""},
	}
	for _, c := range cases {
		if got := ExtractVideoID(c.in); got != c.want {
			t.Errorf("ExtractVideoID(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseDurationSeconds(t *testing.T) {
	if got := parseDurationSeconds("212"); got != 212*time.Second {
		t.Errorf("parseDurationSeconds(212) = %v", got)
	}
	if got := parseDurationSeconds("3.5"); got != 3500*time.Millisecond {
		t.Errorf("parseDurationSeconds(3.5) = %v", got)
	}
	for _, in := range []string{"", "None", "NA", "garbage"} {
		if got := parseDurationSeconds(in); got != 0 {
			t.Errorf("parseDurationSeconds(%q) = %v, want 0", in, got)
		}
	}
}

func TestResolveEmptyQuery(t *testing.T) {
	r := New("")
	if _, err := r.Resolve("   "); !errors.Is(err, ErrNoResults) {
		t.Errorf("Resolve(blank) err = %v, want ErrNoResults", err)
	}
}

func TestResolveBinaryMissing(t *testing.T) {
	r := New("/nonexistent/yt-dlp")
	if _, err := r.Resolve("some search terms"); err == nil {
		t.Error("expected error when the resolver binary is missing")
	}
}

// Network test, skipped unless yt-dlp is installed.
func TestSearchFirstResult(t *testing.T) {
	if _, err := exec.LookPath("yt-dlp"); err != nil {
		t.Skip("yt-dlp not installed")
	}
	if testing.Short() {
		t.Skip("network test")
	}

	res, err := New("yt-dlp").Resolve("rick astley never gonna give you up")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.URL == "" || res.Title == "" {
		t.Errorf("incomplete result: %+v", res)
	}
}
