package log

// Entry is one immutable unit of queued work: the fully rendered message, its
// severity, the producing worker's tag, and the destination context the drain
// goroutine must persist it to.
//
// Ctx is a non-owning reference; contexts live for the process lifetime and
// are never freed while the drain goroutine runs, so the reference stays valid
// for the entry's whole life. A nil Ctx means the entry only goes to the
// platform sink.
type Entry struct {
	Ctx     *Context
	Level   Level
	Message string
	Tag     string

	// flush marks a drain barrier injected by the pipeline; the drain
	// goroutine closes it instead of writing anything. Nil for real entries.
	flush chan struct{}
}
