/*
Copyright © 2025 Bartłomiej Święcki (byo)

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cyclegc

// Traceable is implemented by any value stored behind a Handle. Trace must
// call Tracer.Mark on every managed handle the value owns, directly,
// through a wrapper such as Optional or Box, or through any container the
// caller defines. Traversal must be free of side effects on the managed
// graph (no new handles, no Release calls of its own) and must report the
// same edges every time the value is unchanged between two collections: a
// forgotten edge leads to premature collection of a still-reachable cell,
// and the package has no way to detect that.
type Traceable interface {
	Trace(t *Tracer)
}

// traceMode selects what Tracer.mark does with a freshly or repeatedly
// visited cell. tally and markAlive are the two phases of trial deletion;
// release exists so that an ordinary value replacement (Handle.Set, or a
// cell's value being cleared) can reuse the same edge-enumeration the
// collector uses: each handle reached gets its ordinary Release (which may
// add its cell to the dirty set) instead of any trace-id bookkeeping.
type traceMode int

const (
	modeTally traceMode = iota
	modeMarkAlive
	modeRelease
)

// Tracer is the visitor passed to Traceable.Trace. Its only public surface
// is Mark; the work queue, generation id, and mode it carries are
// collector-internal.
type Tracer struct {
	queue   []cellRef
	mode    traceMode
	traceID uint64
}

func newTracer(traceID uint64, mode traceMode, queue []cellRef) *Tracer {
	return &Tracer{queue: queue, mode: mode, traceID: traceID}
}

// newReleaseTracer builds a Tracer whose only effect, for every handle
// reached, is to run that handle's ordinary Release. It is used to emulate
// the field-by-field destructor cascade a language with deterministic
// destruction runs automatically when a value is dropped or overwritten;
// Go has no such hook, so cyclegc drives it explicitly off the same
// Traceable contract the collector itself uses. See DESIGN.md for why this
// is the only available substitute for compiler-generated drop glue.
func newReleaseTracer() *Tracer {
	return &Tracer{mode: modeRelease}
}

// Markable is implemented by Handle[T] for every T; it is how Tracer.Mark
// accepts a handle of any pointee type despite Tracer itself not being
// generic (Go methods cannot introduce additional type parameters beyond
// the receiver's, so this indirection replaces what would otherwise be a
// single generic method).
type Markable interface {
	markInto(t *Tracer)
}

// Mark registers an outgoing edge to m. Call it once per managed handle a
// Traceable value owns. Every call counts as one edge: a cell is enqueued
// only once per generation id, but in tally mode each further call on it
// raises its internal count, and in release mode each call releases the
// handle again.
func (t *Tracer) Mark(m Markable) {
	m.markInto(t)
}

// mark implements the tally/mark-alive bookkeeping described in the
// package's trial-deletion algorithm. A cell not yet visited in this trace
// generation is enqueued for processing; in tally mode its internal
// reference count is seeded to 1. A cell already visited this generation
// only has its tally bumped, and only in tally mode: mark-alive revisits
// are a no-op beyond that, since the cell was already enqueued and will be
// (or was) processed.
func (t *Tracer) mark(c cellRef) {
	meta := c.meta()
	meta.mu.Lock()
	alreadyReached := meta.trace.id == t.traceID
	if !alreadyReached {
		meta.trace.id = t.traceID
		if t.mode == modeTally {
			meta.trace.refCount = 1
		}
		meta.mu.Unlock()
		t.queue = append(t.queue, c)
		return
	}
	if t.mode == modeTally {
		meta.trace.refCount++
	}
	meta.mu.Unlock()
}
