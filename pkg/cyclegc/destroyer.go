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

// Destroyer is an optional hook a Traceable value can implement to learn
// when it has actually been discarded — because the last handle to its
// cell was released, because a collection declared its cell dead, or
// because Handle.Set replaced it with a new value.
// It runs in place of the destructor a language with deterministic
// destruction would invoke implicitly.
type Destroyer interface {
	OnDestroy()
}

// releaseValue is the single place a value stored behind a cell stops
// being current: it fires the value's Destroyer hook, if it has one, then
// cascades an ordinary Release over every handle the value directly
// owned. Both cell.dropValue (refcount-zero release and collector death)
// and Handle.Set (the old value being overwritten) go through this, since
// both represent the same event from the value's point of view.
func releaseValue[T Traceable](old *T) {
	if old == nil {
		return
	}
	if d, ok := any(*old).(Destroyer); ok {
		d.OnDestroy()
	}
	(*old).Trace(newReleaseTracer())
}
