package log

import (
	"bytes"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/halcyon-emu/halcyon/metrics"
	"github.com/halcyon-emu/halcyon/utils/queue"
)

// Context destination names owned by the pipeline, one per high-level
// subsystem of the emulator host.
const (
	EmulationContextName = "emulation"
	LoaderContextName    = "loader"
)

// LifecycleFunc observes context lifecycle transitions and drain-side write
// failures. transition is one of "initialize", "initialize-failed",
// "finalize", "write-failed".
type LifecycleFunc func(contextName string, transition string)

// Pipeline is the process-wide logging coordinator: it owns the bounded log
// queue, the set of destination contexts, the platform sink, the severity
// threshold, and the single drain goroutine that performs all file and
// platform-log I/O.
//
// Producers interact through Worker handles; a log call renders on the
// producing goroutine, then enqueues one immutable Entry. The only blocking a
// producer can experience is backpressure from a full queue. The drain
// goroutine consumes entries in arrival order, so all writes to any given
// context happen in exactly the order entries were enqueued.
//
// A Pipeline is constructed once at startup and passed by reference to all
// producers; there is no hidden package-level instance.
type Pipeline struct {
	queue     *queue.Bounded[Entry]
	sink      Sink
	namer     ThreadNamer
	clock     Clock
	tagPrefix string

	emulation *Context
	loader    *Context

	// minLevel holds the severity threshold; atomic so SetLevel from any
	// goroutine is observed by producers without a lock. Eventual observation
	// is acceptable, per the configuration contract.
	minLevel atomic.Int32

	callers   callerResolver
	started   atomic.Bool
	lifecycle LifecycleFunc

	// renderBuf is touched only by the drain goroutine, which renders each
	// record into it before handing the bytes to the destination context.
	renderBuf bytes.Buffer
}

// NewPipeline creates a pipeline from the given configuration (nil means
// defaults) with the default collaborators: stderr sink, process namer,
// system clock. Collaborator setters must be called before Start.
func NewPipeline(cfg *PipelineCfg) (*Pipeline, error) {
	if cfg == nil {
		cfg = DefaultCfg()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		queue:     queue.NewBounded[Entry](cfg.QueueCapacity),
		sink:      NewStderrSink(),
		namer:     ProcessNamer,
		clock:     SystemClock,
		tagPrefix: cfg.TagPrefix,
	}
	p.minLevel.Store(int32(cfg.Threshold()))

	// Contexts read the clock through the pipeline so a clock injected after
	// construction still governs their start timestamps.
	p.emulation = NewContext(EmulationContextName, p.now)
	p.loader = NewContext(LoaderContextName, p.now)

	p.renderBuf.Grow(256)
	return p, nil
}

// SetSink replaces the platform sink. Must be called before Start.
func (p *Pipeline) SetSink(s Sink) {
	p.sink = s
}

// SetNamer replaces the thread-naming collaborator. Must be called before
// Start; workers created earlier may already hold resolved tags.
func (p *Pipeline) SetNamer(n ThreadNamer) {
	p.namer = n
}

// SetClock replaces the wall-clock collaborator. Must be called before Start
// and before any context is initialized.
func (p *Pipeline) SetClock(c Clock) {
	p.clock = c
}

// SetLifecycleFunc installs the lifecycle observer. Must be called before
// Start.
func (p *Pipeline) SetLifecycleFunc(fn LifecycleFunc) {
	p.lifecycle = fn
}

// EmulationContext returns the emulation subsystem's destination context.
func (p *Pipeline) EmulationContext() *Context {
	return p.emulation
}

// LoaderContext returns the loader subsystem's destination context.
func (p *Pipeline) LoaderContext() *Context {
	return p.loader
}

// Level returns the current severity threshold.
func (p *Pipeline) Level() Level {
	return Level(p.minLevel.Load())
}

// SetLevel adjusts the severity threshold at runtime.
func (p *Pipeline) SetLevel(l Level) {
	p.minLevel.Store(int32(l))
}

func (p *Pipeline) levelEnabled(l Level) bool {
	return l.Enabled(Level(p.minLevel.Load()))
}

// Start launches the drain goroutine. Idempotent; only the first call has an
// effect. The goroutine runs for the process lifetime, there is no stop
// primitive: entries enqueued after process teardown begins may never be
// written, which is an accepted limitation of the design.
func (p *Pipeline) Start() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	go p.queue.Process(p.write)
}

// now reads the pipeline's clock.
func (p *Pipeline) now() int64 {
	return p.clock()
}

// push enqueues one entry, suspending the caller while the queue is full.
func (p *Pipeline) push(e Entry) {
	p.queue.Push(e)
	metrics.IncrCounterWithGroup(metrics.NameLogEnqueuedTotal, metrics.GroupHalcyon, 1)
}

// write is the drain consumer, invoked for every entry in queue order on the
// single drain goroutine. It fans the entry out to the platform sink and, when
// a destination context is set, appends the delimited record to that context's
// file. Failures are reported through the sink and the lifecycle observer;
// nothing here may panic across the drain goroutine.
func (p *Pipeline) write(e Entry) {
	if e.flush != nil {
		close(e.flush)
		return
	}

	begin := time.Now()
	p.sink.Write(e.Level.PlatformSeverity(), p.tagPrefix+e.Tag, e.Message)

	if e.Ctx != nil {
		elapsed := p.now() - e.Ctx.StartMS()
		if elapsed < 0 {
			elapsed = 0
		}
		p.renderBuf.Reset()
		AppendRecord(&p.renderBuf, e.Level, elapsed, e.Tag, e.Message)
		if _, err := e.Ctx.Write(p.renderBuf.Bytes()); err != nil {
			p.reportFailure(e.Ctx, "write-failed", err)
			metrics.IncrCounterWithGroup(metrics.NameLogWriteErrorTotal, metrics.GroupHalcyon, 1)
		}
	}

	metrics.IncrCounterWithGroup(metrics.NameLogDrainedTotal, metrics.GroupHalcyon, 1)
	metrics.UpdateGaugeWithGroup(metrics.NameLogQueueDepth, metrics.GroupHalcyon, metrics.Value(p.queue.Len()))
	metrics.RecordStopwatchWithGroup(metrics.NameLogDrainWriteMS, metrics.GroupHalcyon, begin)
}

// Barrier blocks until every entry enqueued before the call has been drained.
// It is the ordering primitive that makes context lifecycle transitions safe
// against in-flight writes. A no-op before Start.
func (p *Pipeline) Barrier() {
	if !p.started.Load() {
		return
	}
	done := make(chan struct{})
	p.queue.Push(Entry{flush: done})
	<-done
}

// InitContext drains the queue, then opens ctx's backing file at path and
// records its start time. An initialization failure leaves the context
// non-writable and is reported through the platform sink rather than
// propagated as a panic; the error is also returned for the host to act on.
func (p *Pipeline) InitContext(ctx *Context, path string) error {
	p.Barrier()
	if err := ctx.Initialize(path); err != nil {
		p.reportFailure(ctx, "initialize-failed", err)
		return err
	}
	p.notify(ctx, "initialize")
	return nil
}

// FlushContext drains the queue, then forces ctx's buffered content to
// durable storage.
func (p *Pipeline) FlushContext(ctx *Context) error {
	p.Barrier()
	return ctx.Flush()
}

// FinalizeContext drains the queue, then closes ctx's backing file. The
// barrier guarantees no in-flight write races the close; entries enqueued for
// ctx after this call fail drain-side until the context is re-initialized.
func (p *Pipeline) FinalizeContext(ctx *Context) error {
	p.Barrier()
	err := ctx.Finalize()
	p.notify(ctx, "finalize")
	return err
}

// Refresh drains the queue and flushes every active context, a
// crash-resilience checkpoint for supervisors.
func (p *Pipeline) Refresh() {
	p.Barrier()
	for _, ctx := range []*Context{p.emulation, p.loader} {
		if err := ctx.Flush(); err != nil && err != ErrContextClosed {
			p.reportFailure(ctx, "write-failed", err)
		}
	}
}

// Close drains the queue and finalizes both contexts. Call at host shutdown;
// entries enqueued afterwards only reach the platform sink.
func (p *Pipeline) Close() {
	p.Barrier()
	_ = p.FinalizeContext(p.emulation)
	_ = p.FinalizeContext(p.loader)
}

// reportFailure routes an internal error to the platform sink and the
// lifecycle observer. The sink is the designated escape hatch for pipeline
// errors; they must never abort the host application.
func (p *Pipeline) reportFailure(ctx *Context, transition string, err error) {
	p.sink.Write(ErrorLevel.PlatformSeverity(), p.tagPrefix+"Logger",
		fmt.Sprintf("%s context %s: %v", ctx.Name(), transition, err))
	p.notify(ctx, transition)
}

func (p *Pipeline) notify(ctx *Context, transition string) {
	if p.lifecycle != nil {
		p.lifecycle(ctx.Name(), transition)
	}
}
