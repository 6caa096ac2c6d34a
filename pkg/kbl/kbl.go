// Package kbl implements the Known Bundle List: a mutex-guarded,
// deadline-ordered log of bundle identities the local node has already seen,
// used to suppress duplicate replication and feed the Routing Agent's known
// Summary Vector.
package kbl

import (
	"sync"

	"github.com/dtn7/dtn7-ble/pkg/bpv7"
)

// Entry records that a bundle identified by ID must be considered known
// until Deadline (typically the bundle's expiry time).
type Entry struct {
	ID       bpv7.BundleID
	Deadline bpv7.DtnTime
}

// List is a deadline-ordered, mutex-guarded list of Entries. Entries are
// kept sorted ascending by Deadline so that expired entries always form a
// contiguous prefix, making PopBefore an O(k) operation in the number of
// expired entries rather than a full scan.
//
// Insertion is O(n): the list is walked from the head until the first
// entry whose deadline exceeds the new one, matching the original
// implementation this package is grounded on.
type List struct {
	mu      sync.Mutex
	entries []Entry
}

// New creates an empty Known Bundle List.
func New() *List {
	return &List{}
}

// AddIfNotExists inserts id with the given deadline unless an equivalent
// entry is already known. Two entries are equivalent if their BundleIDs are
// fully equal, or if an existing unfragmented entry is the reassembled
// parent of the fragment being added (same source, same creation timestamp,
// fragment covering the parent's whole payload from offset zero). Returns
// whether the entry was actually added.
func (l *List) AddIfNotExists(id bpv7.BundleID, deadline bpv7.DtnTime) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range l.entries {
		if e.ID.Equal(id) {
			return false
		}
		if e.ID.IsReassembledParentOf(id) {
			return false
		}
	}

	pos := len(l.entries)
	for i, e := range l.entries {
		if deadline < e.Deadline {
			pos = i
			break
		}
	}

	l.entries = append(l.entries, Entry{})
	copy(l.entries[pos+1:], l.entries[pos:])
	l.entries[pos] = Entry{ID: id, Deadline: deadline}

	return true
}

// ContainsReassembledParent reports whether the list holds the unfragmented
// parent entry of the given fragment BundleID.
func (l *List) ContainsReassembledParent(fragment bpv7.BundleID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range l.entries {
		if e.ID.IsReassembledParentOf(fragment) {
			return true
		}
	}
	return false
}

// PopBefore removes and returns every entry whose deadline is strictly
// before the given time, in ascending deadline order.
func (l *List) PopBefore(t bpv7.DtnTime) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := 0
	for i < len(l.entries) && l.entries[i].Deadline < t {
		i++
	}

	expired := make([]Entry, i)
	copy(expired, l.entries[:i])
	l.entries = l.entries[i:]

	return expired
}

// Len returns the number of entries currently tracked.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}

// Entries returns a snapshot copy of all entries in ascending deadline
// order. Intended for building the Routing Agent's known Summary Vector.
func (l *List) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}
