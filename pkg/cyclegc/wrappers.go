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

// Optional wraps a Traceable value that may or may not be present, for
// fields whose pointer-typed content is nullable. Trace visits the
// contained value only when Present is true; edges through an absent
// optional are simply not reported, the same as edges through an already
// cleared cell.
type Optional[T Traceable] struct {
	Value   T
	Present bool
}

// Some builds a present Optional wrapping v.
func Some[T Traceable](v T) Optional[T] {
	return Optional[T]{Value: v, Present: true}
}

// None builds an absent Optional of T.
func None[T Traceable]() Optional[T] {
	return Optional[T]{}
}

func (o Optional[T]) Trace(t *Tracer) {
	if o.Present {
		o.Value.Trace(t)
	}
}

// Box wraps a Traceable value behind an owning indirection, delegating
// Trace straight through. It exists for user types that want a named
// pointer-typed field without reaching for a raw Handle.
type Box[T Traceable] struct {
	Value T
}

func (b Box[T]) Trace(t *Tracer) {
	b.Value.Trace(t)
}
