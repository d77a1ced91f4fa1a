package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// Checker verifies that the external binaries the stream pipeline
// shells out to are present before the bot accepts commands.
type Checker struct {
	binaries []string
}

// NewChecker creates a checker for the given binaries. Entries may be
// bare names resolved through PATH or absolute paths.
func NewChecker(binaries ...string) *Checker {
	return &Checker{binaries: binaries}
}

// IsAvailable reports whether a single binary can be resolved.
func (c *Checker) IsAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// CheckAll verifies every binary and returns an error naming all the
// missing ones at once.
func (c *Checker) CheckAll() error {
	var missing []string
	for _, bin := range c.binaries {
		if c.IsAvailable(bin) {
			log.Debug().Str("binary", bin).Msg("dependency found")
		} else {
			log.Error().Str("binary", bin).Msg("dependency not found in PATH")
			missing = append(missing, bin)
		}
	}

	if len(missing) > 0 {
		return &MissingError{Binaries: missing}
	}
	return nil
}

// MissingError is returned when required binaries are absent.
type MissingError struct {
	Binaries []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required binaries: %s", strings.Join(e.Binaries, ", "))
}
