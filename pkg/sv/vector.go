package sv

import "fmt"

// defaultCapacity mirrors the original C implementation's initial
// allocation for a freshly created Summary Vector.
const defaultCapacity = 16

// Vector is an ordered set of Summary Vector Entries. Insertion order is
// preserved since Diff and serialization are both order-sensitive for
// reproducible output, even though set semantics (Contains) ignore order.
type Vector struct {
	entries []Entry
}

// New creates an empty Summary Vector with the default initial capacity.
func New() *Vector {
	return NewWithCapacity(defaultCapacity)
}

// NewWithCapacity creates an empty Summary Vector pre-sized for n entries.
func NewWithCapacity(n int) *Vector {
	return &Vector{entries: make([]Entry, 0, n)}
}

// Len returns the number of entries in this vector.
func (v *Vector) Len() int {
	return len(v.entries)
}

// Contains reports whether e is present in this vector.
func (v *Vector) Contains(e Entry) bool {
	for _, existing := range v.entries {
		if existing == e {
			return true
		}
	}
	return false
}

// AddEntryByCopy appends e to this vector if it is not already present.
// Growth beyond the current capacity is handled by Go's slice append and
// can never leave the vector in a partially mutated state: either the
// entry is appended whole, or (on an out-of-memory panic propagated from
// append, which this code does not otherwise guard against) nothing is
// observably added.
func (v *Vector) AddEntryByCopy(e Entry) {
	if v.Contains(e) {
		return
	}
	v.entries = append(v.entries, e)
}

// Entries returns a copy of the entries in insertion order.
func (v *Vector) Entries() []Entry {
	out := make([]Entry, len(v.entries))
	copy(out, v.entries)
	return out
}

// Diff returns the entries present in a but not in b, in a's insertion
// order. Diff is not commutative: Diff(a, b) != Diff(b, a) in general.
func Diff(a, b *Vector) *Vector {
	out := NewWithCapacity(a.Len())
	for _, e := range a.entries {
		if !b.Contains(e) {
			out.entries = append(out.entries, e)
		}
	}
	return out
}

// Union returns a new vector containing every entry from a and b, each
// appearing once, a's entries first in their original order followed by
// b's.
func Union(a, b *Vector) *Vector {
	out := NewWithCapacity(a.Len() + b.Len())
	for _, e := range a.entries {
		out.AddEntryByCopy(e)
	}
	for _, e := range b.entries {
		out.AddEntryByCopy(e)
	}
	return out
}

// ToBytes serializes this vector as the raw concatenation of its entries,
// with no length prefix or framing.
func (v *Vector) ToBytes() []byte {
	out := make([]byte, 0, len(v.entries)*EntryLength)
	for _, e := range v.entries {
		out = append(out, e[:]...)
	}
	return out
}

// FromBytes deserializes a vector from its raw concatenated-entries form.
// It fails if the buffer length is not a multiple of EntryLength.
func FromBytes(buf []byte) (*Vector, error) {
	if len(buf)%EntryLength != 0 {
		return nil, fmt.Errorf("sv: buffer length %d is not a multiple of entry length %d", len(buf), EntryLength)
	}

	n := len(buf) / EntryLength
	v := NewWithCapacity(n)
	for i := 0; i < n; i++ {
		var e Entry
		copy(e[:], buf[i*EntryLength:(i+1)*EntryLength])
		v.entries = append(v.entries, e)
	}
	return v, nil
}
