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

import "sync"

// traceData is meaningful only between the two phases of a single GC
// pass; it must not be read as carrying information across passes except
// for id, which is how a stale visit from a previous generation is told
// apart from a fresh one.
type traceData struct {
	id       uint64
	refCount int
	dead     bool
}

// cellState is a cell's collector-owned metadata: the strong count,
// the trial-deletion bookkeeping, the dirty-list links, and the owning
// manager. It is guarded by its own mutex, independent from the manager's,
// so that per-cell bookkeeping never needs to hold the manager's lock
// (and vice versa) across a call into user code.
type cellState struct {
	mu        sync.Mutex
	refCount  int
	trace     traceData
	manager   *Manager
	dirty     bool
	prevDirty cellRef
	nextDirty cellRef
}

// cellRef is the collector's type-erased view of a cell, playing the role
// the original Rust implementation gives WeakGCP: a reference that adjusts
// no counts of its own and is never exposed to users. In Go there is no
// separate "weak" wrapper to speak of — cells reachable only through the
// dirty list or a trace queue are kept alive at the memory level by Go's
// own garbage collector exactly as any other reachable pointer would be;
// cellRef only erases the pointee type T so the manager and tracer can
// hold cells of different T uniformly.
type cellRef interface {
	meta() *cellState
	dropValue()
	traceContent(t *Tracer)
	release()
}

// cell is one managed allocation: a value plus the metadata that lets the
// manager decide, later, whether it is part of unreachable cyclic garbage.
type cell[T Traceable] struct {
	valueMu sync.Mutex
	value   *T
	state   cellState
}

func newCell[T Traceable](m *Manager, v T) *cell[T] {
	c := &cell[T]{value: &v}
	c.state.refCount = 1
	c.state.manager = m
	return c
}

func (c *cell[T]) meta() *cellState {
	return &c.state
}

// traceContent runs the value's Traceable.Trace against t, reporting the
// cell's current outgoing edges. A cell whose value was already cleared
// (by a prior collection, or by ordinary release) has nothing to report.
func (c *cell[T]) traceContent(t *Tracer) {
	c.valueMu.Lock()
	v := c.value
	c.valueMu.Unlock()
	if v != nil {
		(*v).Trace(t)
	}
}

// dropValue clears the cell's value and cascades an ordinary release over
// whatever handles it directly owned. The cascade is what a language with
// deterministic destruction would run automatically when the value goes
// out of scope; see newReleaseTracer for why cyclegc has to drive it by
// hand. Clearing the value here is what both an acyclic refcount-to-zero
// release and a collector-declared death have in common: the only
// difference between them is who calls dropValue and what trace.dead was
// set to beforehand.
func (c *cell[T]) dropValue() {
	c.valueMu.Lock()
	old := c.value
	c.value = nil
	c.valueMu.Unlock()
	releaseValue(old)
}

// release implements the handle-drop state machine from the package's
// design: decrement the strong count, and either unlink from the dirty
// list and destroy (count reached zero) or join the dirty list (count
// dropped but is still positive). A cell already declared dead by a
// collection in progress is a post-collection cleanup drop and does
// nothing further — its links are meaningless and its value is already
// gone.
func (c *cell[T]) release() {
	c.state.mu.Lock()
	c.state.refCount--
	dead := c.state.trace.dead
	n := c.state.refCount
	dirty := c.state.dirty
	mgr := c.state.manager
	c.state.mu.Unlock()

	if dead {
		return
	}
	if n == 0 {
		if dirty {
			mgr.unmarkDirty(c)
		}
		c.dropValue()
		return
	}
	if !dirty {
		mgr.markDirty(c)
	}
}
