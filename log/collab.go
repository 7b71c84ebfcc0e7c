package log

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// Clock is the wall-clock collaborator: milliseconds since the Unix epoch.
// It is used both for context start times and per-entry elapsed times, so a
// fake clock injected in tests controls every timestamp the pipeline emits.
type Clock func() int64

// SystemClock reads the host's real time.
func SystemClock() int64 {
	return time.Now().UnixMilli()
}

// ThreadNamer is the thread-naming collaborator, queried at most once per
// worker to resolve its human-readable tag. An error makes the worker fall
// back to the fixed placeholder tag.
type ThreadNamer func() (string, error)

// unknownTag is the placeholder used when the naming facility fails.
const unknownTag = "unk"

// ProcessNamer names workers after the host process executable. It is the
// default namer; hosts with a real per-thread naming facility inject their own.
func ProcessNamer() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", errors.Wrap(err, "resolve process name")
	}
	return filepath.Base(exe), nil
}
