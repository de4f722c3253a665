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

import "errors"

var (
	// ErrAccessAfterCollect is returned by Handle.Get when the collector
	// has declared the cell dead as part of the cyclic subgraph it belonged
	// to, whether or not its value has been cleared yet in that pass. It
	// typically surfaces when a Destroy
	// callback, running as part of clearing one member of a dead cycle,
	// reaches back into a neighbor that is being collected in the same
	// pass. Treat it as a programming error at the call site rather than a
	// condition to retry or recover from.
	ErrAccessAfterCollect = errors.New("cyclegc: access to a cell collected as part of a dead cycle")
)
