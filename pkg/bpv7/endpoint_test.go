// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"bytes"
	"testing"
)

func TestNewEndpointIDDtn(t *testing.T) {
	eid, err := NewEndpointID("dtn://foo/bar")
	if err != nil {
		t.Fatalf("parsing failed: %v", err)
	}
	if eid.SchemeName() != "dtn" {
		t.Fatalf("expected dtn scheme, got %q", eid.SchemeName())
	}
	if eid.String() != "dtn://foo/bar" {
		t.Fatalf("unexpected string: %q", eid.String())
	}
}

func TestNewEndpointIDIpn(t *testing.T) {
	eid, err := NewEndpointID("ipn:5.7")
	if err != nil {
		t.Fatalf("parsing failed: %v", err)
	}
	if eid.SchemeName() != "ipn" {
		t.Fatalf("expected ipn scheme, got %q", eid.SchemeName())
	}
	if !eid.IsSingleton() {
		t.Fatal("ipn endpoints are always singletons")
	}
}

func TestNewEndpointIDUnknownScheme(t *testing.T) {
	if _, err := NewEndpointID("foo:bar"); err == nil {
		t.Fatal("expected an error for an unknown scheme")
	}
}

func TestNewEndpointIDMalformed(t *testing.T) {
	if _, err := NewEndpointID("not-a-uri"); err == nil {
		t.Fatal("expected an error for a malformed URI")
	}
}

func TestMustNewEndpointIDPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected a panic for an invalid endpoint")
		}
	}()
	MustNewEndpointID("foo:bar")
}

func TestEndpointIDSameNode(t *testing.T) {
	a := MustNewEndpointID("dtn://foo/bar")
	b := MustNewEndpointID("dtn://foo/baz")
	c := MustNewEndpointID("dtn://quux/bar")

	if !a.SameNode(b) {
		t.Fatal("expected same node for differing paths under the same authority")
	}
	if a.SameNode(c) {
		t.Fatal("expected different nodes for differing authorities")
	}
}

func TestEndpointIDCborRoundTrip(t *testing.T) {
	tests := []EndpointID{
		MustNewEndpointID("dtn://foo/bar"),
		DtnNone(),
		MustNewEndpointID("ipn:5.7"),
	}

	for _, in := range tests {
		buf := new(bytes.Buffer)
		if err := in.MarshalCbor(buf); err != nil {
			t.Fatalf("marshalling %v failed: %v", in, err)
		}

		var out EndpointID
		if err := out.UnmarshalCbor(buf); err != nil {
			t.Fatalf("unmarshalling %v failed: %v", in, err)
		}

		if out.String() != in.String() {
			t.Fatalf("round trip mismatch: got %q, want %q", out.String(), in.String())
		}
	}
}
