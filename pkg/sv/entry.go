// Package sv implements the epidemic router's Summary Vector: a fixed-size
// hashed-identifier set used to advertise and request bundles between peers
// without exchanging full bundle identifiers.
package sv

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"

	"github.com/dtn7/dtn7-ble/pkg/bpv7"
)

// EntryLength is the byte length of a single Summary Vector Entry.
const EntryLength = 8

// Entry is a Summary Vector Entry: an 8-byte hash digest identifying a
// bundle, derived from its Bundle Unique Identifier. Entries are compared by
// value, never by pointer.
type Entry [EntryLength]byte

// EntryFromBundleID derives a Summary Vector Entry from a Bundle Unique
// Identifier. The source node's EID is hashed first, then folded into a
// fixed-layout structure together with the remaining five BUID fields,
// which is hashed again; the Entry is the first 8 bytes of that digest.
func EntryFromBundleID(bid bpv7.BundleID) Entry {
	sourceHash := sha256.Sum256([]byte(bid.SourceNode.String()))

	var buf bytes.Buffer
	buf.Write(sourceHash[:])

	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(bid.Timestamp.DtnTime()))
	buf.Write(tmp[:])
	binary.LittleEndian.PutUint64(tmp[:], bid.Timestamp.SequenceNumber())
	buf.Write(tmp[:])

	var tmp4 [4]byte
	binary.LittleEndian.PutUint32(tmp4[:], uint32(bid.FragmentOffset))
	buf.Write(tmp4[:])
	binary.LittleEndian.PutUint32(tmp4[:], uint32(bid.PayloadLength))
	buf.Write(tmp4[:])

	buf.WriteByte(bid.ProtocolVersion)

	digest := sha256.Sum256(buf.Bytes())

	var e Entry
	copy(e[:], digest[:EntryLength])
	return e
}

// Equal reports whether two entries identify the same bundle.
func (e Entry) Equal(other Entry) bool {
	return e == other
}
