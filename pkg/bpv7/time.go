// SPDX-FileCopyrightText: 2018, 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"fmt"
	"io"
	"time"

	"github.com/dtn7/cboring"
)

// DtnTime is a count of milliseconds since the start of the year 2000 (UTC).
// Summary Vector Entry hashing (see pkg/sv) folds this integer in as an
// 8-byte little-endian field, so its wire width and epoch must stay fixed.
type DtnTime uint64

const (
	milliseconds1970To2k = 946684800000

	milliToSec  int64 = 1000
	nanoToMilli int64 = 1000000

	// DtnTimeEpoch is the zero DtnTime, used to flag a missing/unset clock
	// reading rather than an actual timestamp.
	DtnTimeEpoch DtnTime = 0
)

// unixMilliseconds returns t's milliseconds since the Unix epoch.
func (t DtnTime) unixMilliseconds() int64 {
	return int64(t) + milliseconds1970To2k
}

// Time returns the UTC time.Time this DtnTime represents.
func (t DtnTime) Time() time.Time {
	unixSec := t.unixMilliseconds() / milliToSec
	unixNano := (t.unixMilliseconds() - (unixSec * milliToSec)) * nanoToMilli

	return time.Unix(unixSec, unixNano).UTC()
}

func (t DtnTime) String() string {
	return t.Time().Format("2006-01-02 15:04:05.000")
}

// DtnTimeFromTime converts t to a DtnTime, truncating sub-millisecond
// precision.
func DtnTimeFromTime(t time.Time) DtnTime {
	return DtnTime((t.UTC().UnixNano() / nanoToMilli) - milliseconds1970To2k)
}

// DtnTimeNow returns the current UTC time as a DtnTime.
func DtnTimeNow() DtnTime {
	return DtnTimeFromTime(time.Now())
}

// CreationTimestamp pairs a DtnTime with a per-source sequence number, the
// two fields a Bundle Unique Identifier hashes alongside the source EID to
// tell apart bundles a single node created within the same millisecond.
type CreationTimestamp [2]uint64

// NewCreationTimestamp builds a CreationTimestamp from a DtnTime and a
// sequence number.
func NewCreationTimestamp(time DtnTime, sequence uint64) CreationTimestamp {
	return CreationTimestamp{uint64(time), sequence}
}

// DtnTime returns ct's time component.
func (ct CreationTimestamp) DtnTime() DtnTime {
	return DtnTime(ct[0])
}

// IsZeroTime reports whether ct's time component is DtnTimeEpoch, signaling
// the creating node had no accurate clock when the bundle was made.
func (ct CreationTimestamp) IsZeroTime() bool {
	return ct.DtnTime() == DtnTimeEpoch
}

// SequenceNumber returns ct's sequence component.
func (ct CreationTimestamp) SequenceNumber() uint64 {
	return ct[1]
}

// MarshalCbor writes ct as a two-element CBOR array, matching the layout
// every Bundle Protocol peer expects. The Summary Vector hash (see pkg/sv)
// does not use this encoding; it folds in the raw integers instead.
func (ct *CreationTimestamp) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}

	for _, f := range ct {
		if err := cboring.WriteUInt(f, w); err != nil {
			return err
		}
	}

	return nil
}

// UnmarshalCbor reads a CreationTimestamp written by MarshalCbor.
func (ct *CreationTimestamp) UnmarshalCbor(r io.Reader) error {
	if l, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if l != 2 {
		return fmt.Errorf("expected array with length 2, got %d", l)
	}

	for i := 0; i < 2; i++ {
		if f, err := cboring.ReadUInt(r); err != nil {
			return err
		} else {
			ct[i] = f
		}
	}

	return nil
}
