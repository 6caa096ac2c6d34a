package routing

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtn7-ble/pkg/bp"
	"github.com/dtn7/dtn7-ble/pkg/bpv7"
	"github.com/dtn7/dtn7-ble/pkg/cla"
	"github.com/dtn7/dtn7-ble/pkg/sv"
)

// pollInterval is the Router Task's signal-queue poll timeout, driving the
// periodic idle/warning/expiry checks independently of signal arrival.
const pollInterval = 100 * time.Millisecond

// signalKind identifies the payload carried by a routerSignal.
type signalKind int

const (
	signalContactEvent signalKind = iota
	signalRouteBundle
	signalOfferReceived
	signalRequestReceived
	signalTransmissionResult
)

// routerSignal is the single type flowing through the Router Task's bounded
// queue; every producer (CLA callbacks, the Contact Manager, the Routing
// Agent's inbound handlers) only ever posts one of these and never calls
// back synchronously into the Router or Router Task.
type routerSignal struct {
	kind signalKind

	event   Event
	contact Contact

	bundle bp.Bundle

	peer bpv7.EndpointID
	addr cla.Address
	vec  *sv.Vector

	id      bpv7.BundleID
	success bool
}

// Config bundles the Router Task's timing knobs.
type Config struct {
	// IdleTimeout is how long a contact may go unseen before it is reaped.
	IdleTimeout time.Duration
	// WarningThreshold is how long a contact may go unseen before a
	// Warning event fires, ahead of the harder IdleTimeout.
	WarningThreshold time.Duration
	// QueueLength bounds the Router Task's inbound signal queue.
	QueueLength int
}

// DefaultConfig returns the Router Task's default timing knobs.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:      30 * time.Second,
		WarningThreshold: 20 * time.Second,
		QueueLength:      64,
	}
}

// RouterTask is the single-threaded event loop that owns the Contact
// Manager, Router and Routing Agent. Signals and the periodic tick are
// processed one at a time on this one goroutine. The Contact Manager is not
// confined to it: its Handle* methods mutate it under its own mutex on
// whichever goroutine calls them (cmd/epidemicd's discovery callback calls
// HandleDiscoveredNeighbor directly), and only its lifecycle events reach
// the Router Task, as posted routerSignals.
type RouterTask struct {
	cm     *ContactManager
	router *Router
	ra     *RoutingAgent

	config Config

	signals chan routerSignal

	stopSyn chan struct{}
	stopAck chan struct{}
}

// NewRouterTask wires a RouterTask around the given Contact Manager, Router
// and Routing Agent, and starts its event loop.
func NewRouterTask(cm *ContactManager, router *Router, ra *RoutingAgent, config Config) *RouterTask {
	rt := &RouterTask{
		cm:      cm,
		router:  router,
		ra:      ra,
		config:  config,
		signals: make(chan routerSignal, config.QueueLength),
		stopSyn: make(chan struct{}),
		stopAck: make(chan struct{}),
	}

	cm.Subscribe(rt.onContactEvent)

	go rt.run()

	return rt
}

// RegisterSender associates a CLA address with the ConvergenceSender used
// to reach it. It delegates straight to the Contact Manager, which owns
// sender resolution for both the epidemic and info-bundle send paths (see
// ContactManager.TryToSendBundle).
func (rt *RouterTask) RegisterSender(addr cla.Address, sender cla.ConvergenceSender) {
	rt.cm.RegisterSender(addr, sender)
}

// onContactEvent is the Contact Manager's listener callback. It must never
// block and never call back into the Contact Manager or Router directly;
// it only posts a signal onto the Router Task's own queue.
func (rt *RouterTask) onContactEvent(event Event, contact *Contact) {
	select {
	case rt.signals <- routerSignal{kind: signalContactEvent, event: event, contact: *contact}:
	case <-rt.stopSyn:
	}
}

// NotifyRouteBundle posts a newly seen bundle for routing.
func (rt *RouterTask) NotifyRouteBundle(b bp.Bundle) {
	rt.signals <- routerSignal{kind: signalRouteBundle, bundle: b}
}

// NotifyOfferReceived posts an incoming OFFER Summary Vector from peer.
func (rt *RouterTask) NotifyOfferReceived(peer bpv7.EndpointID, vec *sv.Vector) {
	rt.signals <- routerSignal{kind: signalOfferReceived, peer: peer, vec: vec}
}

// NotifyRequestReceived posts an incoming REQUEST Summary Vector from the
// peer reachable at addr.
func (rt *RouterTask) NotifyRequestReceived(addr cla.Address, vec *sv.Vector) {
	rt.signals <- routerSignal{kind: signalRequestReceived, addr: addr, vec: vec}
}

// NotifyTransmissionResult posts a CLA's completion report for a bundle
// previously handed to it.
func (rt *RouterTask) NotifyTransmissionResult(addr cla.Address, id bpv7.BundleID, success bool) {
	rt.signals <- routerSignal{kind: signalTransmissionResult, addr: addr, id: id, success: success}
}

func (rt *RouterTask) run() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rt.stopSyn:
			close(rt.stopAck)
			return

		case sig := <-rt.signals:
			rt.process(sig)

		case <-ticker.C:
			rt.tick()
		}
	}
}

func (rt *RouterTask) process(sig routerSignal) {
	switch sig.kind {
	case signalContactEvent:
		rt.handleContactEvent(sig.event, sig.contact)

	case signalRouteBundle:
		rt.router.RouteBundle(sig.bundle)

	case signalOfferReceived:
		if err := rt.ra.OnOfferReceived(sig.peer, sig.vec); err != nil {
			log.WithFields(log.Fields{"peer": sig.peer, "error": err}).Warn("router task: failed to respond to offer")
		}

	case signalRequestReceived:
		rt.ra.OnRequestReceived(sig.addr, sig.vec)

	case signalTransmissionResult:
		rt.router.HandleTransmissionResult(sig.addr, sig.id, sig.success)
	}
}

func (rt *RouterTask) handleContactEvent(event Event, contact Contact) {
	switch event {
	case Active:
		// Any sender for this address was already registered with the
		// Contact Manager via RegisterSender; AddRouterContact only needs
		// to install the Router's own replication state here.
		rt.router.AddRouterContact(contact.Node.EID, contact.CLAAddress, nil)

		if err := rt.ra.SendOfferSV(contact.Node.EID); err != nil {
			log.WithFields(log.Fields{"peer": contact.Node.EID, "error": err}).
				Warn("router task: failed to send initial offer")
		}

	case Inactive:
		// The link is down but the peer may return; replication state is
		// kept until an explicit Removed event arrives.

	case Removed:
		rt.router.RemoveRouterContact(contact.CLAAddress)

	case Warning:
		log.WithField("peer", contact.Node.EID).Debug("router task: contact approaching idle timeout")

	case Added, Updated:
		// No routing-level action; AddRouterContact only happens once the
		// transient link actually comes up (Active).
	}
}

// HandleCLAStatus translates a CLA's Status report into the matching
// routerSignal, bridging a concrete convergence layer adapter's return
// channel into the Router Task's event loop. Like every other producer it
// only posts a signal; it never calls the Router or Contact Manager
// directly.
func (rt *RouterTask) HandleCLAStatus(status cla.Status) {
	switch status.MessageType {
	case cla.ReceivedBundle:
		msg, ok := status.Message.(cla.ReceivedBundleMessage)
		if !ok {
			return
		}
		rt.NotifyRouteBundle(msg.Bundle)

	case cla.TransmissionSuccess, cla.TransmissionFailure:
		id, ok := status.Message.(bpv7.BundleID)
		if !ok {
			return
		}
		rt.NotifyTransmissionResult(status.Sender.Address(), id, status.MessageType == cla.TransmissionSuccess)
	}
}

func (rt *RouterTask) tick() {
	now := time.Now()
	rt.cm.CheckTimeouts(now, rt.config.WarningThreshold)
	rt.router.ExpireOlderThan(bpv7.DtnTimeNow())
}

// Close stops the Router Task's event loop and waits for it to exit. It
// closes none of the components it was wired with and always returns nil.
func (rt *RouterTask) Close() error {
	close(rt.stopSyn)
	<-rt.stopAck
	return nil
}
