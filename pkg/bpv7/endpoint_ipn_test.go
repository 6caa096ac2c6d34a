// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import "testing"

func TestNewIpnEndpoint(t *testing.T) {
	e, err := NewIpnEndpoint("ipn:23.42")
	if err != nil {
		t.Fatalf("parsing failed: %v", err)
	}

	ipn := e.(IpnEndpoint)
	if ipn.Node != 23 || ipn.Service != 42 {
		t.Fatalf("unexpected node/service: %+v", ipn)
	}
}

func TestNewIpnEndpointMalformed(t *testing.T) {
	if _, err := NewIpnEndpoint("ipn:23"); err == nil {
		t.Fatal("expected an error for a missing service number")
	}
}

func TestIpnEndpointCheckValid(t *testing.T) {
	tests := []struct {
		e       IpnEndpoint
		wantErr bool
	}{
		{IpnEndpoint{Node: 1, Service: 1}, false},
		{IpnEndpoint{Node: 0, Service: 1}, true},
		{IpnEndpoint{Node: 1, Service: 0}, true},
	}

	for _, test := range tests {
		err := test.e.CheckValid()
		if (err != nil) != test.wantErr {
			t.Errorf("%+v: got error %v, wantErr %v", test.e, err, test.wantErr)
		}
	}
}
