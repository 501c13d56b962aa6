package spritegrid

// selectionCache memoizes selector results keyed by posterized cell
// color. Posterization collapses the frame to a small set of distinct
// colors, so after a handful of cells every remaining cell in the frame
// is a cache hit and the linear scan over the statistics table runs
// once per distinct color rather than once per cell.
//
// The cache is only valid for one (atlas generation, selection mode)
// pair; any change to either invalidates every entry.
type selectionCache struct {
	entries    map[RGB]int
	generation uint64
	mode       SelectionMode
	hits       uint64
	misses     uint64
}

func newSelectionCache() *selectionCache {
	return &selectionCache{entries: make(map[RGB]int)}
}

// lookup returns the cached sprite index for c, resetting the cache
// first if the atlas generation or selection mode has moved on.
func (sc *selectionCache) lookup(c RGB, generation uint64, mode SelectionMode) (int, bool) {
	if sc.generation != generation || sc.mode != mode {
		sc.entries = make(map[RGB]int)
		sc.generation = generation
		sc.mode = mode
	}
	idx, ok := sc.entries[c]
	if ok {
		sc.hits++
	}
	return idx, ok
}

// store records a selector result for c. The caller must have passed
// the same generation and mode to lookup first.
func (sc *selectionCache) store(c RGB, idx int) {
	sc.misses++
	sc.entries[c] = idx
}

// Stats returns the hit and miss counters accumulated since the cache
// was created. Resets do not clear the counters.
func (sc *selectionCache) stats() (hits, misses uint64) {
	return sc.hits, sc.misses
}
