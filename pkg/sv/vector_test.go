package sv

import (
	"testing"

	"github.com/dtn7/dtn7-ble/pkg/bpv7"
)

func mustEid(t *testing.T, uri string) bpv7.EndpointID {
	t.Helper()
	eid, err := bpv7.NewEndpointID(uri)
	if err != nil {
		t.Fatalf("NewEndpointID(%q) failed: %v", uri, err)
	}
	return eid
}

func testBid(t *testing.T, node string, seq uint64) bpv7.BundleID {
	return bpv7.BundleID{
		SourceNode:    mustEid(t, node),
		Timestamp:     bpv7.NewCreationTimestamp(bpv7.DtnTime(1000), seq),
		PayloadLength: 42,
	}
}

func TestEntryFromBundleIDDeterministic(t *testing.T) {
	bid := testBid(t, "dtn://foo/", 1)

	e1 := EntryFromBundleID(bid)
	e2 := EntryFromBundleID(bid)

	if e1 != e2 {
		t.Fatalf("hashing the same BundleID twice produced different entries")
	}
}

func TestEntryFromBundleIDDistinct(t *testing.T) {
	a := EntryFromBundleID(testBid(t, "dtn://foo/", 1))
	b := EntryFromBundleID(testBid(t, "dtn://foo/", 2))

	if a == b {
		t.Fatalf("different BundleIDs hashed to the same entry")
	}
}

func TestVectorContainsAndAdd(t *testing.T) {
	v := New()
	e := EntryFromBundleID(testBid(t, "dtn://foo/", 1))

	if v.Contains(e) {
		t.Fatalf("empty vector contains an entry")
	}

	v.AddEntryByCopy(e)
	if !v.Contains(e) {
		t.Fatalf("vector does not contain entry after AddEntryByCopy")
	}
	if v.Len() != 1 {
		t.Fatalf("expected length 1, got %d", v.Len())
	}

	// Adding the same entry again must not duplicate it.
	v.AddEntryByCopy(e)
	if v.Len() != 1 {
		t.Fatalf("expected length 1 after duplicate add, got %d", v.Len())
	}
}

func TestDiff(t *testing.T) {
	e1 := EntryFromBundleID(testBid(t, "dtn://foo/", 1))
	e2 := EntryFromBundleID(testBid(t, "dtn://foo/", 2))
	e3 := EntryFromBundleID(testBid(t, "dtn://foo/", 3))

	a := New()
	a.AddEntryByCopy(e1)
	a.AddEntryByCopy(e2)

	b := New()
	b.AddEntryByCopy(e2)
	b.AddEntryByCopy(e3)

	d := Diff(a, b)
	if d.Len() != 1 || !d.Contains(e1) {
		t.Fatalf("Diff(a, b) expected {e1}, got %v entries", d.Entries())
	}

	dRev := Diff(b, a)
	if dRev.Len() != 1 || !dRev.Contains(e3) {
		t.Fatalf("Diff(b, a) expected {e3}, got %v entries", dRev.Entries())
	}
}

func TestToFromBytesRoundTrip(t *testing.T) {
	v := New()
	v.AddEntryByCopy(EntryFromBundleID(testBid(t, "dtn://foo/", 1)))
	v.AddEntryByCopy(EntryFromBundleID(testBid(t, "dtn://bar/", 2)))

	buf := v.ToBytes()
	if len(buf) != v.Len()*EntryLength {
		t.Fatalf("expected %d bytes, got %d", v.Len()*EntryLength, len(buf))
	}

	got, err := FromBytes(buf)
	if err != nil {
		t.Fatalf("FromBytes failed: %v", err)
	}
	if got.Len() != v.Len() {
		t.Fatalf("round trip changed length: got %d, want %d", got.Len(), v.Len())
	}
	for _, e := range v.Entries() {
		if !got.Contains(e) {
			t.Fatalf("round trip lost entry %v", e)
		}
	}
}

func TestFromBytesInvalidLength(t *testing.T) {
	if _, err := FromBytes(make([]byte, EntryLength+1)); err == nil {
		t.Fatalf("expected error for non-multiple-of-%d length", EntryLength)
	}
}

func TestUnion(t *testing.T) {
	e1 := EntryFromBundleID(testBid(t, "dtn://foo/", 1))
	e2 := EntryFromBundleID(testBid(t, "dtn://foo/", 2))

	a := New()
	a.AddEntryByCopy(e1)
	b := New()
	b.AddEntryByCopy(e2)

	u := Union(a, b)
	if u.Len() != 2 || !u.Contains(e1) || !u.Contains(e2) {
		t.Fatalf("Union missing expected entries: %v", u.Entries())
	}
}
