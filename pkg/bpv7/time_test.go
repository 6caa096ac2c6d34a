// SPDX-FileCopyrightText: 2018, 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"bytes"
	"testing"
	"time"
)

func TestDtnTimeFromTimeRoundTrip(t *testing.T) {
	now := time.Now().UTC().Round(time.Millisecond)
	dt := DtnTimeFromTime(now)

	if !dt.Time().Equal(now) {
		t.Fatalf("round trip mismatch: got %v, want %v", dt.Time(), now)
	}
}

func TestCreationTimestampAccessors(t *testing.T) {
	ct := NewCreationTimestamp(DtnTime(42), 7)

	if ct.DtnTime() != 42 {
		t.Fatalf("unexpected DtnTime: %d", ct.DtnTime())
	}
	if ct.SequenceNumber() != 7 {
		t.Fatalf("unexpected sequence number: %d", ct.SequenceNumber())
	}
	if ct.IsZeroTime() {
		t.Fatal("expected a nonzero time")
	}
}

func TestCreationTimestampIsZeroTime(t *testing.T) {
	ct := NewCreationTimestamp(DtnTimeEpoch, 0)
	if !ct.IsZeroTime() {
		t.Fatal("expected DtnTimeEpoch to report as zero time")
	}
}

func TestCreationTimestampCborRoundTrip(t *testing.T) {
	ct := NewCreationTimestamp(DtnTime(1234), 5)

	buf := new(bytes.Buffer)
	if err := ct.MarshalCbor(buf); err != nil {
		t.Fatalf("marshalling failed: %v", err)
	}

	var out CreationTimestamp
	if err := out.UnmarshalCbor(buf); err != nil {
		t.Fatalf("unmarshalling failed: %v", err)
	}

	if out != ct {
		t.Fatalf("round trip mismatch: got %v, want %v", out, ct)
	}
}
