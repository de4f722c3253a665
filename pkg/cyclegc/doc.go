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

// Package cyclegc implements cycle-collecting reference-counted smart
// pointers.
//
// Ordinary reference counting, the discipline Handle's Clone/Release pair
// implements on its own, cannot reclaim a cycle: two cells that only point
// at each other never reach a zero count no matter how many external
// handles are released. Manager.GC augments the counting with a
// trial-deletion pass, run on demand, that tallies the references internal
// to a candidate set and flood-fills liveness from whatever remains
// externally rooted. Whatever the flood-fill never reaches is cyclic
// garbage, and its value is cleared so ordinary release can finish the
// job.
//
// The package assumes a single, cooperative execution context: nothing
// here is safe to call concurrently from multiple goroutines, and GC does
// not interrupt partway. See Manager for the re-entrancy rule that keeps
// user cleanup code (invoked while a value is being cleared) safe to call
// back into the package.
package cyclegc
