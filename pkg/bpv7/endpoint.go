// SPDX-FileCopyrightText: 2018, 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"fmt"
	"io"
	"reflect"
	"regexp"
	"sync"

	"github.com/dtn7/cboring"
)

// EndpointType is the generic interface for the different schemes of
// EndpointIDs, e.g., "dtn" or "ipn".
type EndpointType interface {
	// SchemeName is the human readable name of this endpoint scheme, e.g., "dtn".
	SchemeName() string

	// SchemeNo is the network representation of this endpoint scheme, as
	// defined in the Bundle Protocol's IANA registry.
	SchemeNo() uint64

	// Authority is the authority part of the endpoint URI.
	Authority() string

	// Path is the path part of the endpoint URI.
	Path() string

	// IsSingleton reports whether this endpoint refers to a single node.
	IsSingleton() bool

	// CheckValid returns an error for structurally invalid endpoints.
	CheckValid() error

	// MarshalCbor writes this EndpointType's CBOR representation.
	MarshalCbor(w io.Writer) error

	fmt.Stringer
}

var (
	endpointMutex sync.Mutex

	// endpointSchemeNames maps a scheme name, e.g., "dtn", to its parser.
	endpointSchemeNames = map[string]func(string) (EndpointType, error){
		dtnEndpointSchemeName: NewDtnEndpoint,
		ipnEndpointSchemeName: NewIpnEndpoint,
	}

	// endpointSchemeNumbers maps a scheme number to a zero EndpointType used
	// for reflection-based CBOR unmarshalling.
	endpointSchemeNumbers = map[uint64]reflect.Type{
		dtnEndpointSchemeNo: reflect.TypeOf(DtnEndpoint{}),
		ipnEndpointSchemeNo: reflect.TypeOf(IpnEndpoint{}),
	}

	endpointUriRegexp = regexp.MustCompile(`^([[:alpha:]][[:alnum:]+-.]*):(.+)$`)
)

// EndpointID represents an endpoint, addressed by an EndpointType.
type EndpointID struct {
	EndpointType
}

// NewEndpointID creates an EndpointID from a "scheme:ssp" URI by dispatching
// to the registered parser for that scheme.
func NewEndpointID(uri string) (e EndpointID, err error) {
	matches := endpointUriRegexp.FindStringSubmatch(uri)
	if matches == nil {
		err = fmt.Errorf("%q does not match an endpoint URI", uri)
		return
	}

	endpointMutex.Lock()
	parser, ok := endpointSchemeNames[matches[1]]
	endpointMutex.Unlock()

	if !ok {
		err = fmt.Errorf("unknown endpoint scheme %q", matches[1])
		return
	}

	et, parseErr := parser(uri)
	if parseErr != nil {
		err = parseErr
		return
	}

	e = EndpointID{et}
	return
}

// MustNewEndpointID calls NewEndpointID and panics on error. Useful for
// static, known-good endpoints in tests and wiring code.
func MustNewEndpointID(uri string) EndpointID {
	e, err := NewEndpointID(uri)
	if err != nil {
		panic(err)
	}
	return e
}

// CheckValid returns an error if this EndpointID is structurally invalid.
func (eid EndpointID) CheckValid() error {
	if eid.EndpointType == nil {
		return fmt.Errorf("endpoint ID has no type")
	}
	return eid.EndpointType.CheckValid()
}

func (eid EndpointID) String() string {
	if eid.EndpointType == nil {
		return "<nil>"
	}
	return eid.EndpointType.String()
}

// SameNode reports whether both EndpointIDs address the same node, ignoring
// any demux/path suffix.
func (eid EndpointID) SameNode(other EndpointID) bool {
	if eid.EndpointType == nil || other.EndpointType == nil {
		return false
	}
	return eid.SchemeNo() == other.SchemeNo() && eid.Authority() == other.Authority()
}

// MarshalCbor writes this EndpointID's CBOR representation as a two-element
// array of [scheme number, scheme-specific part].
func (eid EndpointID) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}
	if err := cboring.WriteUInt(eid.SchemeNo(), w); err != nil {
		return err
	}
	return eid.EndpointType.MarshalCbor(w)
}

// UnmarshalCbor reads a CBOR representation written by MarshalCbor.
func (eid *EndpointID) UnmarshalCbor(r io.Reader) error {
	if l, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if l != 2 {
		return fmt.Errorf("expected array of length 2, got %d", l)
	}

	schemeNo, err := cboring.ReadUInt(r)
	if err != nil {
		return err
	}

	endpointMutex.Lock()
	rt, ok := endpointSchemeNumbers[schemeNo]
	endpointMutex.Unlock()
	if !ok {
		return fmt.Errorf("unknown endpoint scheme number %d", schemeNo)
	}

	et := reflect.New(rt).Interface().(interface {
		UnmarshalCbor(io.Reader) error
	})
	if err := et.UnmarshalCbor(r); err != nil {
		return err
	}

	eid.EndpointType = reflect.ValueOf(et).Elem().Interface().(EndpointType)
	return nil
}
