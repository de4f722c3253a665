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

package cyclegc_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cyclegc/cyclegc/pkg/cyclegc"
)

// dropLog records destruction order for the bigraph scenario below.
type dropLog struct {
	names []string
}

func (d *dropLog) record(name string) {
	d.names = append(d.names, name)
}

func (d *dropLog) String() string {
	return strings.Join(d.names, ",")
}

// bigraphNode is a node of the five-node bidirectional graph used by
// TestBigraphTrialDeletion: each node owns two optional, independently
// managed edges, "first" and "second".
type bigraphNode struct {
	first  cyclegc.Handle[cyclegc.Optional[cyclegc.Handle[bigraphNode]]]
	second cyclegc.Handle[cyclegc.Optional[cyclegc.Handle[bigraphNode]]]
	name   string
	log    *dropLog
}

func (n bigraphNode) Trace(t *cyclegc.Tracer) {
	t.Mark(n.first)
	t.Mark(n.second)
}

func (n bigraphNode) OnDestroy() {
	n.log.record(n.name)
}

func newBigraphNode(m *cyclegc.Manager, log *dropLog, name string) cyclegc.Handle[bigraphNode] {
	first := cyclegc.New(m, cyclegc.None[cyclegc.Handle[bigraphNode]]())
	second := cyclegc.New(m, cyclegc.None[cyclegc.Handle[bigraphNode]]())
	return cyclegc.New(m, bigraphNode{first: first, second: second, name: name, log: log})
}

func setFirst(t *testing.T, h, target cyclegc.Handle[bigraphNode]) {
	t.Helper()
	v, err := h.Get()
	require.NoError(t, err)
	v.first.Set(cyclegc.Some(target.Clone()))
}

func setSecond(t *testing.T, h, target cyclegc.Handle[bigraphNode]) {
	t.Helper()
	v, err := h.Get()
	require.NoError(t, err)
	v.second.Set(cyclegc.Some(target.Clone()))
}

func clearFirst(t *testing.T, h cyclegc.Handle[bigraphNode]) {
	t.Helper()
	v, err := h.Get()
	require.NoError(t, err)
	v.first.Set(cyclegc.None[cyclegc.Handle[bigraphNode]]())
}

func clearSecond(t *testing.T, h cyclegc.Handle[bigraphNode]) {
	t.Helper()
	v, err := h.Get()
	require.NoError(t, err)
	v.second.Set(cyclegc.None[cyclegc.Handle[bigraphNode]]())
}

// child follows h's first/second edge and returns the node handle found
// there, failing the test if the edge is absent.
func child(t *testing.T, h cyclegc.Handle[bigraphNode], second bool) cyclegc.Handle[bigraphNode] {
	t.Helper()
	v, err := h.Get()
	require.NoError(t, err)
	edge := v.first
	if second {
		edge = v.second
	}
	opt, err := edge.Get()
	require.NoError(t, err)
	require.True(t, opt.Present)
	return opt.Value
}

// TestBigraphTrialDeletion walks, step by step, through a five-node
// graph with two overlapping
// cycles, externally rooted only through v1, collected in two GC passes
// as v1's own external handle is eventually released too.
func TestBigraphTrialDeletion(t *testing.T) {
	gc := cyclegc.NewManager()
	log := &dropLog{}

	v1 := newBigraphNode(gc, log, "v1")
	v2 := newBigraphNode(gc, log, "v2")
	v3 := newBigraphNode(gc, log, "v3")
	v4 := newBigraphNode(gc, log, "v4")
	v5 := newBigraphNode(gc, log, "v5")

	setSecond(t, v1, v2)
	setSecond(t, v2, v3)
	setSecond(t, v3, v4)
	setSecond(t, v4, v2) // cycle: v2 -> v3 -> v4 -> v2
	setFirst(t, v4, v5)
	setFirst(t, child(t, v4, true), v1) // v4.second (v2) .first = v1, closing v1 <-> v2 <-> v3 <-> v4 <-> v2

	// 1. Drop external v5: still referenced by v4.first.
	v5.Release()
	require.Equal(t, "", log.String())

	// 2. v4.first = none: v5 now has no references left anywhere.
	clearFirst(t, v4)
	require.Equal(t, "v5", log.String())

	// 3. Drop external v2, v3, v4: all three remain internally referenced.
	v2.Release()
	v3.Release()
	v4.Release()
	require.Equal(t, "v5", log.String())

	// 4. GC with v1 still externally rooted: the whole cycle survives.
	gc.GC()
	require.Equal(t, "v5", log.String())

	// 5. Break v2 -> v3 (v1.second.second = none): v3 and v4 lose every
	// reference, internal or external, and are destroyed immediately by
	// ordinary reference counting, no GC required.
	clearSecond(t, child(t, v1, true))
	require.Equal(t, "v5,v3,v4", log.String())

	// 6. Drop external v1: v1 <-> v2 becomes an unreachable 2-cycle.
	v1.Release()
	require.Equal(t, "v5,v3,v4", log.String())

	// 7. GC reclaims the remaining cycle.
	gc.GC()
	require.ElementsMatch(t, []string{"v5", "v3", "v4", "v2", "v1"}, log.names)
	require.Equal(t, []string{"v5", "v3", "v4"}, log.names[:3])
}

// TestNoGarbageIdempotence: a GC with nothing newly dirtied clears
// nothing.
func TestNoGarbageIdempotence(t *testing.T) {
	gc := cyclegc.NewManager()
	log := &dropLog{}
	v1 := newBigraphNode(gc, log, "v1")
	v2 := newBigraphNode(gc, log, "v2")
	setSecond(t, v1, v2)
	v2.Release()

	gc.GC()
	require.Equal(t, "", log.String())
	gc.GC()
	require.Equal(t, "", log.String())

	v1.Release()
	require.Equal(t, "v1,v2", log.String())
}

// TestAcyclicReclamationWithoutGC: dropping the last handle of an acyclic
// subgraph destroys it immediately.
func TestAcyclicReclamationWithoutGC(t *testing.T) {
	gc := cyclegc.NewManager()
	log := &dropLog{}
	v1 := newBigraphNode(gc, log, "v1")

	v1.Release()
	require.Equal(t, "v1", log.String())
}

// TestSelfLoop: a cell whose single managed field points at itself is
// collected by the next GC once its only external handle is released.
func TestSelfLoop(t *testing.T) {
	gc := cyclegc.NewManager()
	log := &dropLog{}
	v := newBigraphNode(gc, log, "self")
	setSecond(t, v, v)

	v.Release()
	require.Equal(t, "", log.String())

	gc.GC()
	require.Equal(t, "self", log.String())
}

// TestGetAfterCollectFromDestroy: a Destroyer callback running as part of
// a dead cycle's collection observes ErrAccessAfterCollect when it
// reaches into a neighbor collected in the same pass.
type selfObservingNode struct {
	peer cyclegc.Handle[cyclegc.Optional[cyclegc.Handle[selfObservingNode]]]
	name string
	errs *[]error
}

func (n selfObservingNode) Trace(t *cyclegc.Tracer) {
	t.Mark(n.peer)
}

func (n selfObservingNode) OnDestroy() {
	opt, err := n.peer.Get()
	if err != nil {
		*n.errs = append(*n.errs, err)
		return
	}
	if opt.Present {
		_, err := opt.Value.Get()
		if err != nil {
			*n.errs = append(*n.errs, err)
		}
	}
}

func TestGetAfterCollectFromDestroy(t *testing.T) {
	gc := cyclegc.NewManager()
	var errs []error

	peerA := cyclegc.New(gc, cyclegc.None[cyclegc.Handle[selfObservingNode]]())
	peerB := cyclegc.New(gc, cyclegc.None[cyclegc.Handle[selfObservingNode]]())

	a := cyclegc.New(gc, selfObservingNode{peer: peerA, name: "a", errs: &errs})
	b := cyclegc.New(gc, selfObservingNode{peer: peerB, name: "b", errs: &errs})

	av, err := a.Get()
	require.NoError(t, err)
	av.peer.Set(cyclegc.Some(b.Clone()))
	bv, err := b.Get()
	require.NoError(t, err)
	bv.peer.Set(cyclegc.Some(a.Clone()))

	a.Release()
	b.Release()
	gc.GC()

	require.Len(t, errs, 2)
	for _, e := range errs {
		require.ErrorIs(t, e, cyclegc.ErrAccessAfterCollect)
	}
}
