// SPDX-FileCopyrightText: 2018, 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/dtn7/cboring"
)

const (
	ipnEndpointSchemeName string = "ipn"
	ipnEndpointSchemeNo   uint64 = 2
)

// IpnEndpoint describes the ipn URI scheme, addressing a node and service
// number pair, as defined in ietf-dtn-bpbis.
type IpnEndpoint struct {
	Node    uint64
	Service uint64
}

var ipnEndpointRegexp = regexp.MustCompile(`^ipn:(\d+)\.(\d+)$`)

// NewIpnEndpoint parses an "ipn:node.service" URI.
func NewIpnEndpoint(uri string) (e EndpointType, err error) {
	matches := ipnEndpointRegexp.FindStringSubmatch(uri)
	if matches == nil {
		err = fmt.Errorf("uri does not match an ipn endpoint")
		return
	}

	node, err := strconv.ParseUint(matches[1], 10, 64)
	if err != nil {
		return
	}
	service, err := strconv.ParseUint(matches[2], 10, 64)
	if err != nil {
		return
	}

	e = IpnEndpoint{Node: node, Service: service}
	return
}

func (_ IpnEndpoint) SchemeName() string {
	return ipnEndpointSchemeName
}

func (_ IpnEndpoint) SchemeNo() uint64 {
	return ipnEndpointSchemeNo
}

// Authority is the node number.
func (e IpnEndpoint) Authority() string {
	return strconv.FormatUint(e.Node, 10)
}

// Path is the service number, including a leading dot.
func (e IpnEndpoint) Path() string {
	return "." + strconv.FormatUint(e.Service, 10)
}

// IsSingleton is always true for ipn endpoints.
func (_ IpnEndpoint) IsSingleton() bool {
	return true
}

// CheckValid requires both node and service number to be non-zero, as
// node 0 and service 0 are reserved.
func (e IpnEndpoint) CheckValid() error {
	if e.Node == 0 || e.Service == 0 {
		return fmt.Errorf("ipn endpoint: node and service number must be non-zero")
	}
	return nil
}

func (e IpnEndpoint) String() string {
	return fmt.Sprintf("%s:%d.%d", ipnEndpointSchemeName, e.Node, e.Service)
}

// MarshalCbor writes this IpnEndpoint's CBOR representation as a two-element
// array of [node, service].
func (e IpnEndpoint) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}
	if err := cboring.WriteUInt(e.Node, w); err != nil {
		return err
	}
	return cboring.WriteUInt(e.Service, w)
}

// UnmarshalCbor reads a CBOR representation.
func (e *IpnEndpoint) UnmarshalCbor(r io.Reader) error {
	if l, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if l != 2 {
		return fmt.Errorf("expected array of length 2, got %d", l)
	}

	node, err := cboring.ReadUInt(r)
	if err != nil {
		return err
	}
	service, err := cboring.ReadUInt(r)
	if err != nil {
		return err
	}

	e.Node = node
	e.Service = service
	return nil
}
