// Package bp defines the contract between the epidemic routing core and the
// Bundle Processor: the dispatch loop that owns byte-level bundle parsing,
// serialization and persistent storage. Both sides of this contract are
// external to the routing core; only the shapes they exchange live here.
package bp

import (
	"time"

	"github.com/dtn7/dtn7-ble/pkg/bpv7"
)

// Reason enumerates why a bundle could not be routed or delivered. The
// numeric values mirror the bundle status report reason codes the wider
// Bundle Protocol uses, of which the router only ever produces this subset.
type Reason uint64

const (
	// NoInformation indicates no further information is available.
	NoInformation Reason = 0
	// LifetimeExpired indicates the bundle's lifetime elapsed before it
	// could be forwarded.
	LifetimeExpired Reason = 1
	// DepletedStorage indicates the local node ran out of storage for the
	// bundle. The routing core itself never allocates storage; this
	// reason is surfaced for the Bundle Processor's benefit only.
	DepletedStorage Reason = 4
	// NoRouteToDestination indicates the router has no known contact
	// through which the bundle could ever reach its destination.
	NoRouteToDestination Reason = 6
	// NoNextNodeContact indicates no contact is currently available, but
	// one may appear later.
	NoNextNodeContact Reason = 7
)

func (r Reason) String() string {
	switch r {
	case NoInformation:
		return "no additional information"
	case LifetimeExpired:
		return "lifetime expired"
	case DepletedStorage:
		return "depleted storage"
	case NoRouteToDestination:
		return "no known route to destination"
	case NoNextNodeContact:
		return "no timely contact"
	default:
		return "unknown reason"
	}
}

// Signal is an outbound notification the routing core raises against a
// bundle, addressed to the Bundle Processor.
type Signal int

const (
	// BundleRouted indicates the router accepted responsibility for
	// replicating a bundle to at least one future contact.
	BundleRouted Signal = iota
	// ForwardingContraindicated indicates the router will never be able
	// to forward the bundle (see the accompanying Reason).
	ForwardingContraindicated
	// BundleLocalDispatch requests that a locally generated control
	// bundle (an offer or request info-bundle) be dispatched as if it
	// had arrived from an application agent.
	BundleLocalDispatch
	// TransmissionSuccess indicates a bundle was handed off to a CLA and
	// the CLA confirmed the transmission completed.
	TransmissionSuccess
	// TransmissionFailure indicates a bundle handed off to a CLA could
	// not be transmitted.
	TransmissionFailure
	// BundleExpired indicates a bundle's lifetime elapsed while awaiting
	// replication and it was removed from the router's bookkeeping.
	BundleExpired
)

func (s Signal) String() string {
	switch s {
	case BundleRouted:
		return "bundle routed"
	case ForwardingContraindicated:
		return "forwarding contraindicated"
	case BundleLocalDispatch:
		return "bundle local dispatch"
	case TransmissionSuccess:
		return "transmission success"
	case TransmissionFailure:
		return "transmission failure"
	case BundleExpired:
		return "bundle expired"
	default:
		return "unknown signal"
	}
}

// Bundle is the storage-agnostic view of a bundle the routing core needs:
// enough to compute a Summary Vector Entry, check expiry, and hand the
// payload to a CLA. Byte-level encoding/decoding is the Bundle Processor's
// responsibility; the routing core never inspects Payload.
type Bundle struct {
	ID          bpv7.BundleID
	Source      bpv7.EndpointID
	Destination bpv7.EndpointID
	Lifetime    time.Duration
	Payload     []byte
}

// Deadline returns the absolute DtnTime after which this bundle's lifetime
// has elapsed.
func (b Bundle) Deadline() bpv7.DtnTime {
	expiresAt := b.ID.Timestamp.DtnTime().Time().Add(b.Lifetime)
	return bpv7.DtnTimeFromTime(expiresAt)
}

// Processor is the Bundle Processor's contract as seen by the routing core:
// fetch a bundle's content by identity, and be informed of routing
// outcomes. A real Processor also owns persistence, byte-level codec work
// and the application-agent delivery path, none of which the routing core
// depends on directly.
type Processor interface {
	// Bundle returns the bundle identified by id, if the Bundle Processor
	// still holds it.
	Bundle(id bpv7.BundleID) (Bundle, bool)

	// Inform notifies the Bundle Processor of a routing-related outcome
	// for the given bundle.
	Inform(id bpv7.BundleID, signal Signal, reason Reason)

	// DispatchLocal hands a locally generated bundle (e.g. an offer or
	// request info-bundle) to the Bundle Processor as if it had just been
	// created by a local application agent.
	DispatchLocal(b Bundle) error
}
