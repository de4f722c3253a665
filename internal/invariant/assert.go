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

// Package invariant holds the single panic-on-violation helper used
// throughout cyclegc to guard states that must always hold.
package invariant

// Assert panics with msg when cond is false. It exists to make the
// invariants the collector depends on (e.g. dirty-list consistency)
// show up as a single, searchable call instead of ad-hoc panics.
func Assert(cond bool, msg string) {
	if !cond {
		panic(msg)
	}
}
