package routing

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtn7-ble/pkg/bp"
	"github.com/dtn7/dtn7-ble/pkg/bpv7"
	"github.com/dtn7/dtn7-ble/pkg/cla"
)

// Event is a Contact Manager lifecycle event, fired whenever a Contact's
// state changes.
type Event int

const (
	// Added fires when a previously unknown node is first seen, via
	// discovery or an unexpected connection.
	Added Event = iota
	// Updated fires when a node is discovered again at an already known CLA
	// address; the stored Node is replaced whether or not it changed.
	Updated
	// Removed fires when a node is forgotten entirely (e.g. reaped after
	// an idle timeout).
	Removed
	// Active fires when a transient link to a node comes up.
	Active
	// Inactive fires when a transient link to a node goes down.
	Inactive
	// Warning fires when a contact is approaching its idle timeout but has
	// not yet been reaped. Suppressed for any contact reaped (Inactive +
	// Removed) in the same timeout check, since IDLE_TIMEOUT takes
	// precedence over TIMEOUT_WARNING.
	Warning
)

func (e Event) String() string {
	switch e {
	case Added:
		return "added"
	case Updated:
		return "updated"
	case Removed:
		return "removed"
	case Active:
		return "active"
	case Inactive:
		return "inactive"
	case Warning:
		return "warning"
	default:
		return "unknown"
	}
}

// noneEID is the "dtn:none" sentinel used for a Contact whose peer EID is
// not yet known, e.g. immediately after an unexpected lower-layer connection
// before the Routing Agent's offer/request exchange has identified the peer.
var noneEID = bpv7.DtnNone()

// Node identifies a peer independently of any particular transient link.
type Node struct {
	EID bpv7.EndpointID
}

// Contact is a peer reachable over a specific CLA address, for as long as
// the transient link lasts.
type Contact struct {
	Node       Node
	CLAAddress cla.Address
	Active     bool

	lastSeen time.Time
}

// ContactManager fuses discovery and connection events into a single,
// coherent view of live peers. All mutation happens under a single mutex;
// listeners are always invoked after the lock is released, so a listener
// calling back into the ContactManager never deadlocks and never observes a
// half-updated state.
type ContactManager struct {
	mu          sync.Mutex
	byAddress   map[cla.Address]*Contact
	idleTimeout time.Duration

	listeners   []func(Event, *Contact)
	listenersMu sync.Mutex

	sendersMu sync.Mutex
	senders   map[cla.Address]cla.ConvergenceSender
}

// NewContactManager creates a ContactManager that reaps contacts idle for
// longer than idleTimeout.
func NewContactManager(idleTimeout time.Duration) *ContactManager {
	return &ContactManager{
		byAddress:   make(map[cla.Address]*Contact),
		idleTimeout: idleTimeout,
		senders:     make(map[cla.Address]cla.ConvergenceSender),
	}
}

// RegisterSender associates addr with the ConvergenceSender used to reach
// it, so TryToSendBundle can resolve a live CLA binding for any Contact
// known at that address.
func (cm *ContactManager) RegisterSender(addr cla.Address, sender cla.ConvergenceSender) {
	cm.sendersMu.Lock()
	defer cm.sendersMu.Unlock()
	cm.senders[addr] = sender
}

func (cm *ContactManager) senderFor(addr cla.Address) cla.ConvergenceSender {
	cm.sendersMu.Lock()
	defer cm.sendersMu.Unlock()
	return cm.senders[addr]
}

// Subscribe registers a listener invoked for every lifecycle event. It is
// the caller's responsibility to ensure the listener itself never blocks on
// the ContactManager.
func (cm *ContactManager) Subscribe(listener func(Event, *Contact)) {
	cm.listenersMu.Lock()
	defer cm.listenersMu.Unlock()
	cm.listeners = append(cm.listeners, listener)
}

func (cm *ContactManager) fire(event Event, contact *Contact) {
	cm.listenersMu.Lock()
	listeners := make([]func(Event, *Contact), len(cm.listeners))
	copy(listeners, cm.listeners)
	cm.listenersMu.Unlock()

	snapshot := *contact
	for _, l := range listeners {
		l(event, &snapshot)
	}
}

// HandleDiscoveredNeighbor creates or updates a Contact for a node
// discovered at the given CLA address, without marking it active — an
// actual transient link must still come up via HandleConnUp.
func (cm *ContactManager) HandleDiscoveredNeighbor(node Node, addr cla.Address) {
	cm.mu.Lock()
	c, exists := cm.byAddress[addr]
	var event Event
	if !exists {
		c = &Contact{Node: node, CLAAddress: addr, lastSeen: time.Now()}
		cm.byAddress[addr] = c
		event = Added
	} else {
		c.Node = node
		c.lastSeen = time.Now()
		event = Updated
	}
	snapshot := *c
	cm.mu.Unlock()

	log.WithFields(log.Fields{"node": node.EID, "address": addr}).Debug("contact manager: discovered neighbor")
	cm.fire(event, &snapshot)
}

// ensurePlaceholder returns the Contact for addr, creating a placeholder
// node with the dtn:none sentinel EID if none is known yet. Must be called
// with cm.mu held; returns whether a new Contact was created.
func (cm *ContactManager) ensurePlaceholder(addr cla.Address) (*Contact, bool) {
	if c, exists := cm.byAddress[addr]; exists {
		return c, false
	}

	c := &Contact{Node: Node{EID: noneEID}, CLAAddress: addr, lastSeen: time.Now()}
	cm.byAddress[addr] = c
	return c, true
}

// HandleConnUp marks the transient link at addr active, synthesizing a
// placeholder Contact if the address is not yet known.
func (cm *ContactManager) HandleConnUp(addr cla.Address) {
	cm.mu.Lock()
	c, created := cm.ensurePlaceholder(addr)
	c.Active = true
	c.lastSeen = time.Now()
	snapshot := *c
	cm.mu.Unlock()

	if created {
		cm.fire(Added, &snapshot)
	}
	cm.fire(Active, &snapshot)
}

// HandleConnDown marks the transient link at addr inactive. If addr is
// unknown, a placeholder Contact is created (already inactive) so the
// Router can still be informed consistently.
func (cm *ContactManager) HandleConnDown(addr cla.Address) {
	cm.mu.Lock()
	c, created := cm.ensurePlaceholder(addr)
	wasActive := c.Active
	c.Active = false
	c.lastSeen = time.Now()
	snapshot := *c
	cm.mu.Unlock()

	if created {
		cm.fire(Added, &snapshot)
	}
	if wasActive || created {
		cm.fire(Inactive, &snapshot)
	}
}

// CheckTimeouts walks every known contact once and decides, per contact,
// whether it has exceeded the idle timeout (reaped: Inactive then Removed
// fire) or only the earlier warning threshold (Warning fires). Because each
// contact is checked exactly once and the idle check runs first, a contact
// reaped this call never also produces a Warning in the same call — this is
// the IDLE_TIMEOUT-precedes-TIMEOUT_WARNING behavior specified for the
// Router Task's periodic tick.
func (cm *ContactManager) CheckTimeouts(now time.Time, warningThreshold time.Duration) {
	cm.mu.Lock()
	var reaped, warned []*Contact
	for addr, c := range cm.byAddress {
		idleFor := now.Sub(c.lastSeen)

		if idleFor >= cm.idleTimeout {
			c.Active = false
			s := *c
			reaped = append(reaped, &s)
			delete(cm.byAddress, addr)
			continue
		}

		if idleFor >= warningThreshold {
			s := *c
			warned = append(warned, &s)
		}
	}
	cm.mu.Unlock()

	for _, c := range reaped {
		cm.fire(Inactive, c)
		cm.fire(Removed, c)
	}
	for _, c := range warned {
		cm.fire(Warning, c)
	}
}

// Contacts returns a snapshot of all currently known contacts.
func (cm *ContactManager) Contacts() []Contact {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	out := make([]Contact, 0, len(cm.byAddress))
	for _, c := range cm.byAddress {
		out = append(out, *c)
	}
	return out
}

// FindByEID returns the first active Contact addressing the given node, if
// any.
func (cm *ContactManager) FindByEID(eid bpv7.EndpointID) (Contact, bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for _, c := range cm.byAddress {
		if c.Active && c.Node.EID.SameNode(eid) {
			return *c, true
		}
	}
	return Contact{}, false
}

// TryToSendBundle looks up the active Contact addressing destination and
// hands b to the CLA sender bound to it. destination may carry a reserved
// offer/request suffix (see IsInfoBundle); that suffix is stripped before
// the lookup, recovering the peer the control bundle is actually meant for.
// timeout bounds a future blocking CLA transmit-queue push; the current
// ConvergenceSender contract already returns as soon as the bundle is
// enqueued, so no deadline is enforced here yet.
//
// It reports failure if no matching Contact is active, no CLA sender is
// bound to it, or the CLA itself rejects the enqueue.
func (cm *ContactManager) TryToSendBundle(destination bpv7.EndpointID, b bp.Bundle, timeout time.Duration) error {
	_ = timeout

	eid := destination
	if IsInfoBundle(destination) {
		peer, err := bpv7.NewEndpointID(PeerFromInfoBundleEID(destination))
		if err != nil {
			return fmt.Errorf("contact manager: could not recover peer eid from %s: %w", destination, err)
		}
		eid = peer
	}

	contact, ok := cm.FindByEID(eid)
	if !ok {
		return fmt.Errorf("contact manager: no active contact for %s", eid)
	}

	sender := cm.senderFor(contact.CLAAddress)
	if sender == nil {
		return fmt.Errorf("contact manager: no CLA sender bound for %s", contact.CLAAddress)
	}

	if err := sender.Send(b); err != nil {
		return fmt.Errorf("contact manager: CLA rejected bundle for %s: %w", eid, err)
	}
	return nil
}
