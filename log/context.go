package log

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// ErrContextClosed is returned by Write and Flush when the context has no
// open backing file, either because Initialize was never called or because
// Finalize closed it.
var ErrContextClosed = errors.New("log context is not initialized")

// Context is one independent destination stream: a backing file, the start
// timestamp all of its relative timestamps are computed from, and a mutex
// serializing output I/O so there are no races.
//
// Lifecycle: constructed empty, Initialize(path) opens the stream, zero or
// more Writes follow, Finalize closes it. A finalized context may be
// re-Initialized. Writes between Finalize and the next Initialize fail with
// ErrContextClosed rather than crashing the drain goroutine; the owning
// pipeline serializes lifecycle transitions against in-flight writes, so a
// well-behaved host never observes that error.
type Context struct {
	name  string
	clock Clock

	mu   sync.Mutex
	file *os.File

	// start is the wall-clock ms captured at Initialize, the base for all of
	// this context's relative timestamps. Atomic so the drain goroutine can
	// read it without taking the write mutex.
	start atomic.Int64
}

// NewContext creates an uninitialized context. A nil clock falls back to the
// system clock.
func NewContext(name string, clock Clock) *Context {
	if clock == nil {
		clock = SystemClock
	}
	return &Context{name: name, clock: clock}
}

// Name returns the context's destination name.
func (c *Context) Name() string {
	return c.name
}

// Initialize opens the file at path for writing, truncating any existing
// content, and records the current wall-clock time as the context's start
// time. On failure the context stays uninitialized and the error is returned
// for the caller to report; it must not propagate as a panic.
func (c *Context) Initialize(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrapf(err, "initialize %s log context", c.name)
	}

	if c.file != nil {
		_ = c.file.Close()
	}
	c.file = f
	c.start.Store(c.clock())
	return nil
}

// Write appends one rendered record to the open file under the context mutex.
// Only the drain goroutine writes during normal operation, but the mutex keeps
// Write orderable against Flush and Finalize from a supervisor.
func (c *Context) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.file == nil {
		return 0, ErrContextClosed
	}
	n, err := c.file.Write(p)
	if err != nil {
		return n, errors.Wrapf(err, "write %s log context", c.name)
	}
	return n, nil
}

// Flush forces buffered file content to durable storage, for crash-resilience
// checkpoints.
func (c *Context) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.file == nil {
		return ErrContextClosed
	}
	if err := c.file.Sync(); err != nil {
		return errors.Wrapf(err, "flush %s log context", c.name)
	}
	return nil
}

// Finalize closes the backing file. Writes fail with ErrContextClosed until
// the context is re-Initialized. Finalizing an already-closed context is a
// no-op.
func (c *Context) Finalize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	if err != nil {
		return errors.Wrapf(err, "finalize %s log context", c.name)
	}
	return nil
}

// StartMS returns the wall-clock ms recorded at the last Initialize, zero if
// the context was never initialized.
func (c *Context) StartMS() int64 {
	return c.start.Load()
}

// Active reports whether the context currently has an open backing file.
func (c *Context) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file != nil
}
