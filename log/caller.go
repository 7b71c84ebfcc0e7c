package log

import (
	"runtime"
	"strings"
	"sync"
)

const _unknownCaller = "unknown"

// callerResolver resolves the immediate calling function's short name for
// call-site message prefixes. Resolved names are cached by program counter in
// a sync.Map so the runtime symbol lookup happens once per call site.
type callerResolver struct {
	cache sync.Map // pc -> string
}

// name returns the short function name skip frames above the caller of name
// itself.
func (r *callerResolver) name(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return _unknownCaller
	}

	if cached, found := r.cache.Load(pc); found {
		return cached.(string)
	}

	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return _unknownCaller
	}
	name := fn.Name()
	if dotIdx := strings.LastIndexByte(name, '.'); dotIdx != -1 {
		name = name[dotIdx+1:]
	}

	r.cache.Store(pc, name)
	return name
}
