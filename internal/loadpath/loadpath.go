// Package loadpath holds the process-wide compiler load path as a
// scoped mutation: a build temporarily adds an output directory to the
// load path and must restore the prior path on every exit, including a
// compile error.
package loadpath

import "sync"

// entries is the process-wide compiler load path, in search order,
// guarded by mu. A real
// Erlang-style compiler driver would mutate the BEAM code path; this
// driver models the same scoped-mutation hazard for a local compiler
// process without needing an actual VM to point it at.
var (
	mu      sync.Mutex
	entries []string
)

// Get returns a copy of the current load path.
func Get() []string {
	mu.Lock()
	defer mu.Unlock()
	return append([]string(nil), entries...)
}

// Scope adds dir to the front of the load path and returns a restore
// function that must be deferred immediately. Calling restore puts the
// load path back exactly as it was before Scope, regardless of how the
// scope's body exits.
func Scope(dir string) (restore func()) {
	mu.Lock()
	prev := append([]string(nil), entries...)
	if !contains(entries, dir) {
		entries = append([]string{dir}, entries...)
	}
	mu.Unlock()

	return func() {
		mu.Lock()
		entries = prev
		mu.Unlock()
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
