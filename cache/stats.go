package cache

import "github.com/puzpuzpuz/xsync/v3"

// Stats is a point in time snapshot of cache counters.
type Stats struct {
	Sets          int64 `json:"sets"`
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Mismatches    int64 `json:"mismatches"`
	Deletes       int64 `json:"deletes"`
	Degraded      int64 `json:"degraded"`
	CloneFailures int64 `json:"clone_failures"`
}

type statKind int

const (
	statSets statKind = iota
	statHits
	statMisses
	statMismatches
	statDeletes
	statDegraded
	statCloneFailures
	numStats
)

// counters is nil when stats are disabled.
type counters [numStats]*xsync.Counter

func newCounters(disabled bool) *counters {
	if disabled {
		return nil
	}

	var c counters
	for i := range c {
		c[i] = xsync.NewCounter()
	}
	return &c
}

func (c *counters) inc(kind statKind) {
	if c == nil {
		return
	}
	c[kind].Inc()
}

func (c *counters) snapshot() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		Sets:          c[statSets].Value(),
		Hits:          c[statHits].Value(),
		Misses:        c[statMisses].Value(),
		Mismatches:    c[statMismatches].Value(),
		Deletes:       c[statDeletes].Value(),
		Degraded:      c[statDegraded].Value(),
		CloneFailures: c[statCloneFailures].Value(),
	}
}

func (c *counters) reset() {
	if c == nil {
		return
	}
	for _, ctr := range c {
		ctr.Reset()
	}
}
