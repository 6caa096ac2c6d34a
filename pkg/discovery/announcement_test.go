// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2020 Markus Sommer
//
// SPDX-License-Identifier: GPL-3.0-or-later

package discovery

import (
	"reflect"
	"testing"

	"github.com/dtn7/dtn7-ble/pkg/bpv7"
)

func TestAnnouncementCbor(t *testing.T) {
	tests := []Announcement{
		{Endpoint: bpv7.MustNewEndpointID("dtn://foobar/"), Address: "aa:bb:cc:dd:ee:ff"},
		{Endpoint: bpv7.MustNewEndpointID("ipn:1337.23"), Address: "192.0.2.1:4556"},
	}

	for _, in := range tests {
		data, err := MarshalAnnouncements([]Announcement{in})
		if err != nil {
			t.Fatalf("marshalling failed: %v", err)
		}

		out, err := UnmarshalAnnouncements(data)
		if err != nil {
			t.Fatalf("unmarshalling failed: %v", err)
		}
		if len(out) != 1 {
			t.Fatalf("expected 1 announcement, got %d", len(out))
		}
		if out[0].Address != in.Address {
			t.Fatalf("address mismatch: got %q, want %q", out[0].Address, in.Address)
		}
		if !reflect.DeepEqual(out[0].Endpoint, in.Endpoint) {
			t.Fatalf("endpoint mismatch: got %v, want %v", out[0].Endpoint, in.Endpoint)
		}
	}
}

func TestUnmarshalAnnouncementsEmpty(t *testing.T) {
	data, err := MarshalAnnouncements(nil)
	if err != nil {
		t.Fatalf("marshalling empty slice failed: %v", err)
	}

	out, err := UnmarshalAnnouncements(data)
	if err != nil {
		t.Fatalf("unmarshalling empty slice failed: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected 0 announcements, got %d", len(out))
	}
}
