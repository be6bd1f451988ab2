// Package base gives every content module and shader program a stable,
// monotonically increasing identity, mirroring ShaderModule's `uuid =
// count(self)` counter in shaderflow.py (a process-wide itertools.count
// shared by every module instance, starting at 1).
package base

import "sync/atomic"

var counter int64

// NextUUID returns the next process-global id, starting at 1.
func NextUUID() int64 {
	return atomic.AddInt64(&counter, 1)
}

// Module embeds into a content module or shader program to give it a
// UUID assigned once, at construction time, via Init.
type Module struct {
	uuid int64
}

// Init assigns this module's UUID. Must be called once, by New.
func (m *Module) Init() {
	m.uuid = NextUUID()
}

// UUID returns the module's stable identity.
func (m *Module) UUID() int64 { return m.uuid }
