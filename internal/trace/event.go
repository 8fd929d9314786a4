package trace

import "time"

// Kind is the shape of an event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindHeartbeat
)

var kindNames = [...]string{
	KindSpanBegin: "begin",
	KindSpanEnd:   "end",
	KindPoint:     "point",
	KindHeartbeat: "heartbeat",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// Scope is the granularity of an event. Smaller scopes are coarser.
type Scope uint8

const (
	ScopeRun      Scope = iota + 1 // whole merge or load run
	ScopePass                      // closure, merge, fixup, access...
	ScopeAssembly                  // one input assembly
	ScopeNode                      // one type or member
)

var scopeNames = [...]string{
	ScopeRun:      "run",
	ScopePass:     "pass",
	ScopeAssembly: "assembly",
	ScopeNode:     "node",
}

func (s Scope) String() string {
	if int(s) < len(scopeNames) && scopeNames[s] != "" {
		return scopeNames[s]
	}
	return "unknown"
}

// Event is one trace record. Name is the pass, the assembly or the
// rename subject; Detail carries the outcome.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64
	GID      uint64 // goroutine, loader decodes in parallel
	Name     string
	Detail   string
	Extra    map[string]string
}
