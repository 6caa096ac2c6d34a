// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import "testing"

func TestDtnEndpointAuthorityAndPath(t *testing.T) {
	e, err := NewDtnEndpoint("dtn://foo/bar/baz")
	if err != nil {
		t.Fatalf("parsing failed: %v", err)
	}

	dtn := e.(DtnEndpoint)
	if dtn.Authority() != "foo" {
		t.Fatalf("unexpected authority: %q", dtn.Authority())
	}
	if dtn.Path() != "/bar/baz" {
		t.Fatalf("unexpected path: %q", dtn.Path())
	}
}

func TestDtnEndpointIsSingleton(t *testing.T) {
	none := DtnEndpoint{Ssp: dtnEndpointDtnNoneSsp}
	if none.IsSingleton() {
		t.Fatal("dtn:none must not be a singleton")
	}

	named, err := NewDtnEndpoint("dtn://foo/bar")
	if err != nil {
		t.Fatalf("parsing failed: %v", err)
	}
	if !named.IsSingleton() {
		t.Fatal("a named dtn endpoint should be a singleton")
	}
}

func TestDtnNone(t *testing.T) {
	none := DtnNone()
	if none.String() != "dtn:none" {
		t.Fatalf("unexpected string for dtn:none: %q", none.String())
	}
	if none.IsSingleton() {
		t.Fatal("dtn:none must not be a singleton")
	}
}
