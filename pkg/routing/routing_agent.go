package routing

import (
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtn7-ble/pkg/bp"
	"github.com/dtn7/dtn7-ble/pkg/bpv7"
	"github.com/dtn7/dtn7-ble/pkg/cla"
	"github.com/dtn7/dtn7-ble/pkg/sv"
)

const (
	// routingAgentSinkPrefix is the reserved demux path segment every
	// offer/request info-bundle is addressed to, beneath a peer's EID.
	routingAgentSinkPrefix = "routing/epidemic"
	sinkOffer              = routingAgentSinkPrefix + "/offer"
	sinkRequest            = routingAgentSinkPrefix + "/request"

	// infoBundleLifetime bounds how long an offer/request control bundle
	// is allowed to linger undelivered; these are only useful fresh.
	infoBundleLifetime = 5 * time.Second
)

// RoutingAgent implements the two-phase offer/request Summary Vector
// exchange over reserved info-bundle endpoints "<peer>/routing/epidemic/
// {offer,request}". It never inspects ordinary application bundles.
type RoutingAgent struct {
	localEID  bpv7.EndpointID
	router    *Router
	processor bp.Processor
}

// NewRoutingAgent creates a RoutingAgent for the local node identified by
// localEID, driving the given Router.
func NewRoutingAgent(localEID bpv7.EndpointID, router *Router, processor bp.Processor) *RoutingAgent {
	return &RoutingAgent{localEID: localEID, router: router, processor: processor}
}

// IsInfoBundle reports whether destination addresses one of this agent's
// reserved sinks, matched by substring exactly as the original
// implementation does (no strict suffix anchoring).
func IsInfoBundle(destination bpv7.EndpointID) bool {
	return strings.Contains(destination.String(), routingAgentSinkPrefix)
}

// PeerFromInfoBundleEID strips the "/routing/epidemic/..." suffix from an
// info-bundle's destination, recovering the EID of the peer it is
// addressed to.
func PeerFromInfoBundleEID(destination bpv7.EndpointID) string {
	s := destination.String()
	if idx := strings.Index(s, "/"+routingAgentSinkPrefix); idx >= 0 {
		return s[:idx]
	}
	return s
}

func (ra *RoutingAgent) offerEndpoint(peer bpv7.EndpointID) bpv7.EndpointID {
	return bpv7.MustNewEndpointID(peer.String() + "/" + sinkOffer)
}

func (ra *RoutingAgent) requestEndpoint(peer bpv7.EndpointID) bpv7.EndpointID {
	return bpv7.MustNewEndpointID(peer.String() + "/" + sinkRequest)
}

func (ra *RoutingAgent) wrapVector(destination bpv7.EndpointID, vec *sv.Vector) bp.Bundle {
	now := bpv7.DtnTimeNow()
	return bp.Bundle{
		ID: bpv7.BundleID{
			SourceNode: ra.localEID,
			Timestamp:  bpv7.NewCreationTimestamp(now, 0),
		},
		Source:      ra.localEID,
		Destination: destination,
		Lifetime:    infoBundleLifetime,
		Payload:     vec.ToBytes(),
	}
}

// SendOfferSV builds the local node's known Summary Vector and dispatches
// it as an OFFER to peer.
func (ra *RoutingAgent) SendOfferSV(peer bpv7.EndpointID) error {
	known := ra.router.KnownSummaryVector()
	b := ra.wrapVector(ra.offerEndpoint(peer), known)

	log.WithFields(log.Fields{"peer": peer, "entries": known.Len()}).Debug("routing agent: sending offer")
	if err := ra.processor.DispatchLocal(b); err != nil {
		return err
	}
	ra.router.RouteBundle(b)
	return nil
}

// sendRequestSV dispatches a REQUEST for the given entries to peer.
func (ra *RoutingAgent) sendRequestSV(peer bpv7.EndpointID, request *sv.Vector) error {
	b := ra.wrapVector(ra.requestEndpoint(peer), request)

	log.WithFields(log.Fields{"peer": peer, "entries": request.Len()}).Debug("routing agent: sending request")
	if err := ra.processor.DispatchLocal(b); err != nil {
		return err
	}
	ra.router.RouteBundle(b)
	return nil
}

// OnOfferReceived handles an incoming OFFER from peer: it computes the
// entries peer offered that the local node does not already know about,
// and requests exactly those.
func (ra *RoutingAgent) OnOfferReceived(peer bpv7.EndpointID, offer *sv.Vector) error {
	known := ra.router.KnownSummaryVector()
	request := sv.Diff(offer, known)

	return ra.sendRequestSV(peer, request)
}

// OnRequestReceived hands an incoming REQUEST from the peer reachable at
// addr to the Router, which owns replica-budget accounting for it.
func (ra *RoutingAgent) OnRequestReceived(addr cla.Address, request *sv.Vector) {
	ra.router.UpdateRequestSV(addr, request)
}

// ParsePayload parses a Summary Vector from an info-bundle's raw payload.
func ParsePayload(payload []byte) (*sv.Vector, error) {
	return sv.FromBytes(payload)
}
