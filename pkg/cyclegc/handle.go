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

import "github.com/cyclegc/cyclegc/internal/invariant"

// Handle is a user-visible, reference-counted reference to a cell holding
// a T. Copying a Handle does not implicitly adjust the count the way a
// Rc/Arc clone would in a language with a Clone trait wired into the
// compiler: call Clone explicitly to register a new owner, and Release
// explicitly once that owner is done. This is the Go substitute for
// scope-triggered destruction — the same explicit-lifecycle idiom as
// io.Closer or a pooled buffer's Put/Close pair.
type Handle[T Traceable] struct {
	c *cell[T]
}

// New allocates a cell under manager m holding v and returns the first
// handle to it, with a strong count of one.
func New[T Traceable](m *Manager, v T) Handle[T] {
	invariant.Assert(m != nil, "cyclegc: New requires a non-nil manager")
	return Handle[T]{c: newCell(m, v)}
}

// Ptr creates a new cell under the same manager as h, holding v. It is the
// convenient way to grow a graph from a handle already in hand rather than
// threading the manager through separately. It is a free function, not a
// method on Handle, because Go does not allow a method to introduce a type
// parameter beyond those carried by its receiver, and the new cell's
// pointee type is necessarily unrelated to From.
func Ptr[From Traceable, T Traceable](h Handle[From], v T) Handle[T] {
	return New(h.Manager(), v)
}

// Manager returns the manager h's cell belongs to. A cell is bound to
// exactly one manager at creation and never migrates, so this is stable
// for the handle's whole life.
func (h Handle[T]) Manager() *Manager {
	return h.c.state.manager
}

// Get returns the cell's current value, or ErrAccessAfterCollect if the
// cell has been declared dead by a collection in progress — the case
// where a Destroy callback running on one member of a dead cycle reaches
// back into a neighbor being collected in the same pass.
//
// The returned pointer aliases the cell's own storage rather than a copy,
// which is what makes it safe to keep using a value obtained before a
// later Handle.Set on the same handle: Set swaps in a new value without
// touching the one already handed out, and Go's own garbage collector
// keeps that old value reachable for as long as any caller still holds
// the pointer. Such a pointer keeps showing the old value, which is no
// longer the cell's current value and whose owned handles Set has
// already released.
func (h Handle[T]) Get() (*T, error) {
	h.c.state.mu.Lock()
	dead := h.c.state.trace.dead
	h.c.state.mu.Unlock()
	if dead {
		return nil, ErrAccessAfterCollect
	}
	h.c.valueMu.Lock()
	v := h.c.value
	h.c.valueMu.Unlock()
	return v, nil
}

// Set replaces the cell's stored value unconditionally. It does not touch
// the strong count or dirty state of this cell — only Clone/Release do
// that — but the value being replaced is released exactly as if it had
// gone out of scope, cascading Release over every handle it directly
// owned (see cell.dropValue). That is what lets dropping a subgraph by
// overwriting the last reference to it, `h.Set(zero)`, behave the same as
// dropping that subgraph's root handle.
func (h Handle[T]) Set(v T) {
	c := h.c
	c.valueMu.Lock()
	old := c.value
	c.value = &v
	c.valueMu.Unlock()
	releaseValue(old)
}

// Clone registers a new owner of the cell, incrementing its strong count.
func (h Handle[T]) Clone() Handle[T] {
	h.c.state.mu.Lock()
	h.c.state.refCount++
	h.c.state.mu.Unlock()
	return Handle[T]{c: h.c}
}

// Release drops this owner's claim on the cell, decrementing its strong
// count. If the count reaches zero the value is released immediately
// (ordinary, acyclic destruction); if it merely decreases while remaining
// positive, the cell joins the manager's dirty set as a candidate for the
// next GC — it might be part of a cycle whose remaining references are
// all internal to it.
func (h Handle[T]) Release() {
	h.c.release()
}

// Equal reports whether h and o refer to the same cell.
func (h Handle[T]) Equal(o Handle[T]) bool {
	return h.c == o.c
}

// Trace reports h itself as an outgoing edge, making Handle satisfy
// Traceable so it can be nested inside Optional, Box, or a user type
// without any extra glue.
func (h Handle[T]) Trace(t *Tracer) {
	t.Mark(h)
}

// markInto implements Markable. Its behavior depends on the tracer's mode:
// during trial deletion (tally or mark-alive) it defers to the tracer's
// own bookkeeping; during an ordinary value replacement it runs this
// handle's normal Release, the same thing that would happen if the
// surrounding value had simply gone out of scope.
func (h Handle[T]) markInto(t *Tracer) {
	if t.mode == modeRelease {
		h.Release()
		return
	}
	t.mark(h.c)
}
