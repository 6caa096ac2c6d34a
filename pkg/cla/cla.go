// Package cla defines the convergence layer adapter contract the routing
// core depends on. Concrete adapters (BLE L2CAP, TCP, MTCP framing, ...) are
// external collaborators; this package only fixes the vtable they must
// implement and the status messages they report back.
package cla

import (
	"github.com/dtn7/dtn7-ble/pkg/bp"
	"github.com/dtn7/dtn7-ble/pkg/bpv7"
)

// Address identifies a CLA-specific contact address, e.g. a BLE device
// address or a "host:port" pair. Its format is opaque to the routing core.
type Address string

// Convergence is implemented by every CLA endpoint, active or passive.
type Convergence interface {
	// Address returns this CLA's contact address.
	Address() Address

	// Close shuts the CLA endpoint down.
	Close() error
}

// ConvergenceSender is a Convergence capable of transmitting bundles to a
// single known peer.
type ConvergenceSender interface {
	Convergence

	// GetPeerEndpointID returns the EndpointID of the node on the other
	// end of this sender, if known.
	GetPeerEndpointID() bpv7.EndpointID

	// Send enqueues a bundle for transmission. Send may return before the
	// transmission completes; completion is reported asynchronously via a
	// TransmissionSuccess/TransmissionFailure ConvergenceStatus.
	Send(b bp.Bundle) error
}

// ConvergenceReceiver is a Convergence capable of receiving bundles from a
// peer and reporting them as ConvergenceStatus messages.
type ConvergenceReceiver interface {
	Convergence

	// GetEndpointID returns the EndpointID this receiver listens on behalf
	// of (normally the local node's own EID).
	GetEndpointID() bpv7.EndpointID
}

// MessageType indicates the kind of event a ConvergenceStatus carries.
type MessageType int

const (
	// ReceivedBundle reports the reception of a bundle. Message is a
	// ReceivedBundleMessage value.
	ReceivedBundle MessageType = iota
	// PeerAppeared reports a newly reachable peer. Message is its
	// bpv7.EndpointID.
	PeerAppeared
	// PeerDisappeared reports a peer going out of reach. Message is its
	// bpv7.EndpointID.
	PeerDisappeared
	// TransmissionSuccess reports a bundle handed to this Convergence
	// completed transmission. Message is the bundle's bpv7.BundleID.
	TransmissionSuccess
	// TransmissionFailure reports a bundle handed to this Convergence
	// failed to transmit. Message is the bundle's bpv7.BundleID.
	TransmissionFailure
)

func (mt MessageType) String() string {
	switch mt {
	case ReceivedBundle:
		return "received bundle"
	case PeerAppeared:
		return "peer appeared"
	case PeerDisappeared:
		return "peer disappeared"
	case TransmissionSuccess:
		return "transmission success"
	case TransmissionFailure:
		return "transmission failure"
	default:
		return "unknown message type"
	}
}

// Status is a status message a Convergence instance reports back to its
// owner through a return channel.
type Status struct {
	Sender      Convergence
	MessageType MessageType
	Message     interface{}
}

// ReceivedBundleMessage is the Message payload for a ReceivedBundle Status.
type ReceivedBundleMessage struct {
	Endpoint bpv7.EndpointID
	Bundle   bp.Bundle
}

// NewReceivedBundleStatus builds a ReceivedBundle Status.
func NewReceivedBundleStatus(sender Convergence, eid bpv7.EndpointID, b bp.Bundle) Status {
	return Status{
		Sender:      sender,
		MessageType: ReceivedBundle,
		Message:     ReceivedBundleMessage{Endpoint: eid, Bundle: b},
	}
}

// NewPeerAppearedStatus builds a PeerAppeared Status.
func NewPeerAppearedStatus(sender Convergence, peer bpv7.EndpointID) Status {
	return Status{Sender: sender, MessageType: PeerAppeared, Message: peer}
}

// NewPeerDisappearedStatus builds a PeerDisappeared Status.
func NewPeerDisappearedStatus(sender Convergence, peer bpv7.EndpointID) Status {
	return Status{Sender: sender, MessageType: PeerDisappeared, Message: peer}
}

// NewTransmissionSuccessStatus builds a TransmissionSuccess Status.
func NewTransmissionSuccessStatus(sender Convergence, id bpv7.BundleID) Status {
	return Status{Sender: sender, MessageType: TransmissionSuccess, Message: id}
}

// NewTransmissionFailureStatus builds a TransmissionFailure Status.
func NewTransmissionFailureStatus(sender Convergence, id bpv7.BundleID) Status {
	return Status{Sender: sender, MessageType: TransmissionFailure, Message: id}
}
