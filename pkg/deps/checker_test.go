package deps

import (
	"errors"
	"testing"
)

func TestCheckAllPasses(t *testing.T) {
	// sh is part of every POSIX environment the bot runs in.
	c := NewChecker("sh")
	if err := c.CheckAll(); err != nil {
		t.Fatalf("CheckAll: %v", err)
	}
}

func TestCheckAllReportsEveryMissingBinary(t *testing.T) {
	c := NewChecker("sh", "definitely-not-installed-1", "definitely-not-installed-2")

	err := c.CheckAll()
	var merr *MissingError
	if !errors.As(err, &merr) {
		t.Fatalf("expected MissingError, got %v", err)
	}
	if len(merr.Binaries) != 2 {
		t.Errorf("missing = %v, want both absent binaries", merr.Binaries)
	}
}

func TestIsAvailable(t *testing.T) {
	c := NewChecker()
	if !c.IsAvailable("sh") {
		t.Error("sh reported missing")
	}
	if c.IsAvailable("definitely-not-installed") {
		t.Error("nonexistent binary reported available")
	}
}
