package log

import "fmt"

// Worker is a producer-side handle carrying the state that belongs to one
// producing goroutine: its cached human-readable tag and the context new
// entries should target. It replaces ambient thread-local state with an
// explicit per-goroutine struct; a Worker must not be shared between
// goroutines.
//
// The tag is resolved lazily from the pipeline's ThreadNamer on the first log
// call and cached for the worker's remaining lifetime, falling back to a fixed
// placeholder if the facility fails.
type Worker struct {
	p        *Pipeline
	ctx      *Context
	tag      string
	resolved bool
}

// Worker creates a handle for the calling goroutine targeting the emulation
// context, the default destination.
func (p *Pipeline) Worker() *Worker {
	return &Worker{p: p, ctx: p.emulation}
}

// NamedWorker creates a handle with an explicit tag, bypassing the naming
// facility.
func (p *Pipeline) NamedWorker(tag string) *Worker {
	return &Worker{p: p, ctx: p.emulation, tag: tag, resolved: true}
}

// SetContext reassigns which context the worker's subsequent entries target.
func (w *Worker) SetContext(ctx *Context) {
	w.ctx = ctx
}

// Context returns the worker's current destination context.
func (w *Worker) Context() *Context {
	return w.ctx
}

// Tag returns the worker's tag, resolving and caching it on first use.
func (w *Worker) Tag() string {
	if !w.resolved {
		name, err := w.p.namer()
		if err != nil || name == "" {
			name = unknownTag
		}
		w.tag = name
		w.resolved = true
	}
	return w.tag
}

// Errorf logs a formatted error-level message prefixed with the calling
// function's name.
func (w *Worker) Errorf(format string, args ...any) {
	w.logf(ErrorLevel, true, format, args...)
}

// ErrorfNoPrefix logs a formatted error-level message without the call-site
// prefix.
func (w *Worker) ErrorfNoPrefix(format string, args ...any) {
	w.logf(ErrorLevel, false, format, args...)
}

// Warnf logs a formatted warn-level message prefixed with the calling
// function's name.
func (w *Worker) Warnf(format string, args ...any) {
	w.logf(WarnLevel, true, format, args...)
}

// WarnfNoPrefix logs a formatted warn-level message without the call-site
// prefix.
func (w *Worker) WarnfNoPrefix(format string, args ...any) {
	w.logf(WarnLevel, false, format, args...)
}

// Infof logs a formatted info-level message prefixed with the calling
// function's name.
func (w *Worker) Infof(format string, args ...any) {
	w.logf(InfoLevel, true, format, args...)
}

// InfofNoPrefix logs a formatted info-level message without the call-site
// prefix.
func (w *Worker) InfofNoPrefix(format string, args ...any) {
	w.logf(InfoLevel, false, format, args...)
}

// Debugf logs a formatted debug-level message prefixed with the calling
// function's name.
func (w *Worker) Debugf(format string, args ...any) {
	w.logf(DebugLevel, true, format, args...)
}

// DebugfNoPrefix logs a formatted debug-level message without the call-site
// prefix.
func (w *Worker) DebugfNoPrefix(format string, args ...any) {
	w.logf(DebugLevel, false, format, args...)
}

// Verbosef logs a formatted verbose-level message prefixed with the calling
// function's name.
func (w *Worker) Verbosef(format string, args ...any) {
	w.logf(VerboseLevel, true, format, args...)
}

// VerbosefNoPrefix logs a formatted verbose-level message without the
// call-site prefix.
func (w *Worker) VerbosefNoPrefix(format string, args ...any) {
	w.logf(VerboseLevel, false, format, args...)
}

// logf is the producer path: threshold check before any string work, lazy tag
// resolution, rendering, then a single Push that may suspend on a full queue.
// Nothing else on this path blocks; all I/O belongs to the drain goroutine.
func (w *Worker) logf(level Level, withPrefix bool, format string, args ...any) {
	if !w.p.levelEnabled(level) {
		return
	}

	tag := w.Tag()
	message := fmt.Sprintf(format, args...)
	if withPrefix {
		// Frames above callerResolver.name: logf, the exported wrapper, then
		// the user's calling function.
		message = w.p.callers.name(3) + ": " + message
	}

	w.p.push(Entry{Ctx: w.ctx, Level: level, Message: message, Tag: tag})
}
