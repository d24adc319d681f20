package assetindex

import "sync"

// The shared index is the one piece of process-wide mutable state: built
// once, read-only afterwards. Shared() builds lazily on first use;
// Rebuild() swaps in a fresh scan atomically. Concurrent readers are safe
// once their Shared() call returns.
var (
	sharedMu   sync.RWMutex
	sharedIdx  *Index
	sharedOpts Options
)

// Configure stores the options used by the shared index. It does not
// trigger a scan; the first Shared() call does.
func Configure(opts Options) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	sharedOpts = opts
	sharedIdx = nil
}

// Shared returns the process-wide index, building it on first call.
func Shared() (*Index, error) {
	sharedMu.RLock()
	idx := sharedIdx
	sharedMu.RUnlock()
	if idx != nil {
		return idx, nil
	}
	return Rebuild()
}

// Rebuild discards the shared index and scans again with the configured
// options. Intended for tests and live re-scans after the extraction
// trees change.
func Rebuild() (*Index, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	idx, err := Build(sharedOpts)
	if err != nil {
		return nil, err
	}
	sharedIdx = idx
	return idx, nil
}
