// Package cache implements the duplicate-suppression table keyed by source
// address, used by the engine to recognise retransmits of a frame it has
// already delivered.
package cache

import (
	"time"

	"github.com/gorflink/rflink/protocol"
)

type entry struct {
	inUse        bool
	source       protocol.Address
	lastPktID    protocol.PacketID
	lastUpdateMS uint32
}

// Cache is a small, fixed-capacity associative table: at most one entry per
// source address. Entries older than DiscardDelay are evicted lazily, on
// the next Observe call that sweeps the table.
type Cache struct {
	entries      [protocol.CacheSize]entry
	discardDelay time.Duration
}

// New returns an empty Cache using the default discard delay
// (protocol.DefaultCacheDiscardDelay, ~49 hours).
func New() *Cache {
	return &Cache{discardDelay: protocol.DefaultCacheDiscardDelay}
}

// NewWithDiscardDelay returns an empty Cache using a caller-supplied
// discard delay, primarily for tests that want to exercise eviction
// without waiting 49 hours.
func NewWithDiscardDelay(d time.Duration) *Cache {
	return &Cache{discardDelay: d}
}

// Observe records that a frame with (source, pktid) was seen at time now,
// and reports whether it had already been seen (i.e. is a duplicate
// retransmit). Semantics, applied in order:
//
//  1. Sweep the table; any entry whose age exceeds the discard delay is
//     marked free.
//  2. If an entry for source exists: update its timestamp; if its stored
//     packet-id equals pktid, report a duplicate; otherwise overwrite the
//     stored packet-id and report first-seen.
//  3. Otherwise claim the first free slot, or if none, evict the entry
//     with the greatest age; install {source, pktid, now} and report
//     first-seen.
//
// Timestamp arithmetic is modular (wrapping uint32 milliseconds), so the
// cache tolerates monotonic-clock wraparound.
func (c *Cache) Observe(source protocol.Address, pktid protocol.PacketID, now time.Time) bool {
	nowMS := toWireMS(now)

	c.sweep(nowMS)

	if idx := c.indexOf(source); idx >= 0 {
		e := &c.entries[idx]
		e.lastUpdateMS = nowMS
		if e.lastPktID == pktid {
			return true
		}
		e.lastPktID = pktid
		return false
	}

	idx := c.freeSlot()
	if idx < 0 {
		idx = c.oldestSlot(nowMS)
	}
	c.entries[idx] = entry{
		inUse:        true,
		source:       source,
		lastPktID:    pktid,
		lastUpdateMS: nowMS,
	}
	return false
}

func (c *Cache) sweep(nowMS uint32) {
	for i := range c.entries {
		e := &c.entries[i]
		if !e.inUse {
			continue
		}
		if age(nowMS, e.lastUpdateMS) > uint32(c.discardDelay/time.Millisecond) {
			e.inUse = false
		}
	}
}

func (c *Cache) indexOf(source protocol.Address) int {
	for i := range c.entries {
		if c.entries[i].inUse && c.entries[i].source == source {
			return i
		}
	}
	return -1
}

func (c *Cache) freeSlot() int {
	for i := range c.entries {
		if !c.entries[i].inUse {
			return i
		}
	}
	return -1
}

func (c *Cache) oldestSlot(nowMS uint32) int {
	oldest := 0
	oldestAge := uint32(0)
	for i := range c.entries {
		a := age(nowMS, c.entries[i].lastUpdateMS)
		if a >= oldestAge {
			oldestAge = a
			oldest = i
		}
	}
	return oldest
}

// age returns now - then in milliseconds, using wrapping subtraction so a
// monotonic-clock rollover never produces a negative (and hence, cast to
// unsigned, enormous) age.
func age(now, then uint32) uint32 {
	return now - then
}

// toWireMS reduces a time.Time to the wrapping uint32 millisecond counter
// the cache's arithmetic operates on.
func toWireMS(t time.Time) uint32 {
	return uint32(t.UnixMilli())
}
