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

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Manager owns the dirty set — cells whose strong count has decreased
// while remaining positive, the candidates the next GC considers — and
// the monotonically increasing generation id used to tell a fresh trace
// visit from a stale one. Every cell is bound to exactly one Manager at
// creation and never migrates; there is no global registry.
//
// Manager's mutable state (the dirty-list head and the trace-id counter)
// is guarded by a single mutex. GC holds it through both trial-deletion
// phases, including the Traceable.Trace calls those phases make, and
// releases it before clearing any value — the point at which user
// Destroy callbacks, and the Trace calls of the release cascade, run. A
// callback that reached back into the manager while it was still held
// would deadlock rather than
// silently corrupt state; in a library built for a single cooperative
// execution context, that is the cheapest available stand-in for the
// compile-time borrow check a language with RefCell-style interior
// mutability would give for free.
type Manager struct {
	mu        sync.Mutex
	dirtyHead cellRef
	traceID   uint64

	id  string
	log *slog.Logger
}

// ManagerOption configures a Manager at construction.
type ManagerOption func(*Manager)

// WithLogger overrides the *slog.Logger a Manager uses for its internal
// debug logging (candidate and dead counts per GC pass). The
// default is slog.Default(). This is diagnostic plumbing only: cyclegc
// makes no guarantee about what it logs or when, so nothing should parse
// these messages for behavior.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = l
	}
}

// NewManager builds an empty Manager: no dirty cells, trace id zero.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		id:  uuid.NewString(),
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ID returns a short identifier for this manager, useful only for
// correlating log lines across managers; it carries no semantic meaning.
func (m *Manager) ID() string {
	return m.id
}

// markDirty splices c at the head of the dirty list. It is the only way a
// cell enters the dirty set, called from cell.release when a strong count
// decreases but remains positive.
func (m *Manager) markDirty(c cellRef) {
	m.mu.Lock()
	defer m.mu.Unlock()

	meta := c.meta()
	meta.mu.Lock()
	if next := m.dirtyHead; next != nil {
		nextMeta := next.meta()
		nextMeta.mu.Lock()
		nextMeta.prevDirty = c
		nextMeta.mu.Unlock()
		meta.nextDirty = next
	}
	meta.dirty = true
	meta.mu.Unlock()

	m.dirtyHead = c
}

// unmarkDirty removes c from the dirty list, called from cell.release
// when a strong count reaches zero for a cell that was dirty.
func (m *Manager) unmarkDirty(c cellRef) {
	m.mu.Lock()
	defer m.mu.Unlock()

	meta := c.meta()
	meta.mu.Lock()
	prev := meta.prevDirty
	next := meta.nextDirty
	meta.prevDirty = nil
	meta.nextDirty = nil
	meta.dirty = false
	meta.mu.Unlock()

	if prev != nil {
		prevMeta := prev.meta()
		prevMeta.mu.Lock()
		prevMeta.nextDirty = next
		prevMeta.mu.Unlock()
	} else {
		m.dirtyHead = next
	}
	if next != nil {
		nextMeta := next.meta()
		nextMeta.mu.Lock()
		nextMeta.prevDirty = prev
		nextMeta.mu.Unlock()
	}
}

// GC runs one trial-deletion pass over the current dirty set: phase 1
// tallies, for every candidate, how many of its incoming references
// originate from inside the candidate set; phase 2 flood-fills liveness
// from whatever candidate's strong count cannot be fully explained by
// those internal references (it must have an external owner), and
// whatever the flood-fill never reaches is cyclic garbage. Candidate
// values are cleared only after the manager's internal lock has been
// released, so user Destroy/Trace code invoked as part of clearing is
// free to create, release, or collect further without deadlocking.
func (m *Manager) GC() {
	m.mu.Lock()
	candidates := m.tallyInternalReferences()
	dead := m.propagateExternalLiveness(candidates)
	m.mu.Unlock()

	m.log.Debug("cyclegc: gc pass",
		"manager", m.id,
		"candidates", len(candidates),
		"dead", len(dead),
	)

	for _, c := range dead {
		c.dropValue()
	}
}

// tallyInternalReferences is phase 1: drain the dirty list, seed a tally
// trace from it, and return every cell the trace reached (the candidate
// set P). Every candidate leaves this function with trace.dead set, to be
// revised by phase 2.
func (m *Manager) tallyInternalReferences() []cellRef {
	m.traceID++
	traceID := m.traceID

	var queue []cellRef
	for cur := m.dirtyHead; cur != nil; {
		meta := cur.meta()
		meta.mu.Lock()
		meta.trace.id = traceID
		meta.trace.refCount = 0
		next := meta.nextDirty
		meta.prevDirty = nil
		meta.nextDirty = nil
		meta.dirty = false
		meta.mu.Unlock()

		queue = append(queue, cur)
		cur = next
	}
	m.dirtyHead = nil

	t := newTracer(traceID, modeTally, queue)
	var candidates []cellRef
	for len(t.queue) > 0 {
		last := len(t.queue) - 1
		c := t.queue[last]
		t.queue = t.queue[:last]

		c.traceContent(t)

		meta := c.meta()
		meta.mu.Lock()
		meta.trace.dead = true
		meta.mu.Unlock()

		candidates = append(candidates, c)
	}
	return candidates
}

// propagateExternalLiveness is phase 2: any candidate whose strong count
// exceeds the internal references phase 1 tallied must have an external
// owner, so it roots a mark-alive flood fill. Whatever is still marked
// dead once the flood fill is exhausted is the dead set D.
func (m *Manager) propagateExternalLiveness(candidates []cellRef) []cellRef {
	m.traceID++
	traceID := m.traceID

	var roots []cellRef
	for _, c := range candidates {
		meta := c.meta()
		meta.mu.Lock()
		external := meta.trace.refCount < meta.refCount
		meta.mu.Unlock()
		if external {
			roots = append(roots, c)
		}
	}

	t := newTracer(traceID, modeMarkAlive, roots)
	for len(t.queue) > 0 {
		last := len(t.queue) - 1
		c := t.queue[last]
		t.queue = t.queue[:last]

		meta := c.meta()
		meta.mu.Lock()
		meta.trace.dead = false
		meta.mu.Unlock()

		c.traceContent(t)
	}

	var dead []cellRef
	for _, c := range candidates {
		meta := c.meta()
		meta.mu.Lock()
		isDead := meta.trace.dead
		meta.mu.Unlock()
		if isDead {
			dead = append(dead, c)
		}
	}
	return dead
}
