package routing

import (
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtn7-ble/pkg/bp"
	"github.com/dtn7/dtn7-ble/pkg/bpv7"
	"github.com/dtn7/dtn7-ble/pkg/cla"
	"github.com/dtn7/dtn7-ble/pkg/kbl"
	"github.com/dtn7/dtn7-ble/pkg/sv"
)

// UnlimitedBudget marks a bundle as having no replica cap: it is offered to
// every peer that requests it until its lifetime expires.
const UnlimitedBudget = -1

// defaultDirectTransmissionReplicas is how many peers a locally-originated,
// singleton-destination bundle is handed to before its budget is exhausted.
const defaultDirectTransmissionReplicas = 1

// infoBundleSendTimeout bounds an info bundle's hand-off to the Contact
// Manager; see ContactManager.TryToSendBundle.
const infoBundleSendTimeout = 1 * time.Second

// RouterConfig bundles the Router's non-timing knobs: the local node's
// identity and its replica budget for direct-transmission bundles.
type RouterConfig struct {
	// LocalEID is this node's own endpoint identifier, used to recognize
	// locally-originated bundles when classifying their replica budget.
	LocalEID bpv7.EndpointID
	// DirectTransmissionReplicas is the replica budget given to a
	// locally-originated bundle addressed to a singleton destination.
	DirectTransmissionReplicas int
}

// DefaultRouterConfig returns a RouterConfig for localEID using the default
// direct-transmission replica budget.
func DefaultRouterConfig(localEID bpv7.EndpointID) RouterConfig {
	return RouterConfig{
		LocalEID:                   localEID,
		DirectTransmissionReplicas: defaultDirectTransmissionReplicas,
	}
}

// ContactState is a RouterContact's position in the per-peer replication
// state machine.
type ContactState int

const (
	// StateIdle has no outstanding offer or in-flight transmission.
	StateIdle ContactState = iota
	// StateOffering has sent an OFFER and awaits a REQUEST.
	StateOffering
	// StateAwaitingRequest is a historical alias kept distinct from
	// StateOffering for clarity at call sites; both represent "offer
	// sent, no request yet".
	StateAwaitingRequest
	// StateSending has a bundle handed to the CLA and awaits completion.
	StateSending
)

// BundleInfo is the router's bookkeeping record for a single bundle
// eligible for epidemic replication.
type BundleInfo struct {
	Bundle   bp.Bundle
	SVE      sv.Entry
	Budget   int
	Deadline bpv7.DtnTime
}

// RouterContact is the router's per-peer replication cursor: what the peer
// has been offered, what it has requested, and where candidate selection
// left off.
type RouterContact struct {
	EID        bpv7.EndpointID
	CLAAddress cla.Address

	State     ContactState
	RequestSV *sv.Vector

	current       *BundleInfo
	nextCandidate *BundleInfo
}

// Current returns the bundle currently in flight to this contact, if any.
func (rc *RouterContact) Current() (BundleInfo, bool) {
	if rc.current == nil {
		return BundleInfo{}, false
	}
	return *rc.current, true
}

// Router is the epidemic replication engine: it holds every bundle eligible
// for replication, the per-peer RouterContacts, and enforces replica
// budgets and expiry.
type Router struct {
	mu sync.Mutex

	bundles         []*BundleInfo
	contacts        map[cla.Address]*RouterContact
	knownBundleList *kbl.List

	cm        *ContactManager
	processor bp.Processor

	localEID                   bpv7.EndpointID
	directTransmissionReplicas int
}

// NewRouter creates an empty Router. cm is used to deliver bundles to
// active contacts (see trySendToContact and sendInfoBundle); both epidemic
// and info-bundle traffic goes through it rather than a cached CLA sender.
func NewRouter(cm *ContactManager, processor bp.Processor, knownBundleList *kbl.List, config RouterConfig) *Router {
	return &Router{
		contacts:                   make(map[cla.Address]*RouterContact),
		knownBundleList:            knownBundleList,
		cm:                         cm,
		processor:                  processor,
		localEID:                   config.LocalEID,
		directTransmissionReplicas: config.DirectTransmissionReplicas,
	}
}

func (r *Router) indexOf(b *BundleInfo) int {
	for i, cur := range r.bundles {
		if cur == b {
			return i
		}
	}
	return -1
}

func (r *Router) findBySVE(e sv.Entry) *BundleInfo {
	for _, b := range r.bundles {
		if b.SVE == e {
			return b
		}
	}
	return nil
}

// shouldBeOffered reports whether b still has replica budget to spend for
// rc, or is addressed directly to rc regardless of budget: a bundle whose
// destination names rc's peer EID is delivered to it even after its
// epidemic replica budget is otherwise exhausted.
func shouldBeOffered(b *BundleInfo, rc *RouterContact) bool {
	if b.Budget == UnlimitedBudget || b.Budget > 0 {
		return true
	}
	return strings.Contains(b.Bundle.Destination.String(), rc.EID.String())
}

// classifyBudget derives a bundle's replica budget from its destination and
// source. A non-singleton destination (e.g. "dtn:none") cannot be satisfied
// by handing the bundle to any one contact, so it floods without a cap. A
// singleton destination reached directly is given the configured
// direct-transmission budget only when this node originated the bundle;
// forwarded singleton-destined bundles and bundles with no usable
// destination at all get no budget beyond the destination override in
// shouldBeOffered.
func (r *Router) classifyBudget(b bp.Bundle) int {
	if b.Destination.EndpointType == nil {
		return 0
	}
	if !b.Destination.IsSingleton() {
		return UnlimitedBudget
	}
	if b.Source.SameNode(r.localEID) {
		return r.directTransmissionReplicas
	}
	return 0
}

// RouteBundle registers a newly seen bundle with the router, deduplicating
// against the Known Bundle List, and immediately attempts to forward it to
// any idle contact that has already requested it. An info bundle (see
// IsInfoBundle) bypasses epidemic replication entirely and is handed
// straight to its addressed peer.
func (r *Router) RouteBundle(b bp.Bundle) {
	if IsInfoBundle(b.Destination) {
		r.sendInfoBundle(b)
		return
	}

	sve := sv.EntryFromBundleID(b.ID)

	if !r.knownBundleList.AddIfNotExists(b.ID, b.Deadline()) {
		log.WithField("bundle", b.ID).Debug("router: bundle already known, not re-routing")
		return
	}

	budget := r.classifyBudget(b)

	r.mu.Lock()
	info := &BundleInfo{Bundle: b, SVE: sve, Budget: budget, Deadline: b.Deadline()}
	r.bundles = append(r.bundles, info)
	contacts := make([]*RouterContact, 0, len(r.contacts))
	for _, rc := range r.contacts {
		contacts = append(contacts, rc)
	}
	r.mu.Unlock()

	if r.processor != nil {
		r.processor.Inform(b.ID, bp.BundleRouted, bp.NoInformation)
	}

	for _, rc := range contacts {
		r.trySendToContact(rc)
	}
}

// sendInfoBundle delivers an OFFER or REQUEST control bundle directly to the
// peer it names, through the Contact Manager, without ever entering the
// bundle list or consuming replica budget.
func (r *Router) sendInfoBundle(b bp.Bundle) {
	if err := r.cm.TryToSendBundle(b.Destination, b, infoBundleSendTimeout); err != nil {
		log.WithFields(log.Fields{"bundle": b.ID, "destination": b.Destination, "error": err}).
			Debug("router: info bundle could not be delivered")
		if r.processor != nil {
			r.processor.Inform(b.ID, bp.ForwardingContraindicated, bp.NoNextNodeContact)
		}
		return
	}

	if r.processor != nil {
		r.processor.Inform(b.ID, bp.BundleRouted, bp.NoInformation)
	}
}

// AddRouterContact installs replication state for a newly active peer. If a
// RouterContact already exists for this address it is replaced. A non-nil
// sender is registered with the Contact Manager so trySendToContact and
// sendInfoBundle can later resolve it; it is not stored on the
// RouterContact itself. AddRouterContact only ever touches the Contact
// Manager's sender registry (a plain map write, no listeners fired) and
// never its lifecycle methods, since it is itself invoked from within a
// Contact Manager Active-event handler.
func (r *Router) AddRouterContact(eid bpv7.EndpointID, addr cla.Address, sender cla.ConvergenceSender) *RouterContact {
	if sender != nil && r.cm != nil {
		r.cm.RegisterSender(addr, sender)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rc := &RouterContact{
		EID:        eid,
		CLAAddress: addr,
		State:      StateIdle,
		RequestSV:  sv.New(),
	}
	r.contacts[addr] = rc
	return rc
}

// RemoveRouterContact removes the replication state for addr. It is
// idempotent: removing an address that is not present (e.g. because it was
// already removed by an earlier disconnect signal for the same contact) is
// a safe no-op and reports false.
func (r *Router) RemoveRouterContact(addr cla.Address) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.contacts[addr]; !ok {
		return false
	}
	delete(r.contacts, addr)
	return true
}

// RouterContactFor returns the replication state for addr, if any.
func (r *Router) RouterContactFor(addr cla.Address) (*RouterContact, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rc, ok := r.contacts[addr]
	return rc, ok
}

// KnownSummaryVector returns the union of every bundle the router currently
// holds (regardless of remaining budget) with the Known Bundle List's
// entries, for the Routing Agent to advertise as an OFFER.
func (r *Router) KnownSummaryVector() *sv.Vector {
	r.mu.Lock()
	vec := sv.NewWithCapacity(len(r.bundles))
	for _, b := range r.bundles {
		vec.AddEntryByCopy(b.SVE)
	}
	r.mu.Unlock()

	for _, e := range r.knownBundleList.Entries() {
		vec.AddEntryByCopy(sv.EntryFromBundleID(e.ID))
	}
	return vec
}

// trySendToContact runs the candidate-selection walk for rc: starting from
// its next-candidate cursor, find the first bundle that still has replica
// budget and that rc has requested, and hand it to the CLA.
//
// If the CLA rejects the enqueue (e.g. a full transmit queue), the
// candidate is pinned: rc's cursor is left pointing at the same bundle,
// current stays nil, and no peer-facing error is raised — this is a local
// resource condition, not a routing failure. The Router Task's periodic tick
// does not retry a pinned candidate; it is retried by the next walk for rc,
// which RouteBundle, UpdateRequestSV and HandleTransmissionResult start.
func (r *Router) trySendToContact(rc *RouterContact) {
	r.mu.Lock()
	if rc.current != nil {
		r.mu.Unlock()
		return
	}

	startIdx := 0
	if rc.nextCandidate != nil {
		if idx := r.indexOf(rc.nextCandidate); idx >= 0 {
			startIdx = idx
		}
	}

	var (
		chosen   *BundleInfo
		sendNext *BundleInfo
	)
	for i := startIdx; i < len(r.bundles); i++ {
		b := r.bundles[i]
		if !shouldBeOffered(b, rc) {
			continue
		}
		if !rc.RequestSV.Contains(b.SVE) {
			continue
		}

		chosen = b
		if i+1 < len(r.bundles) {
			sendNext = r.bundles[i+1]
		}
		break
	}

	if chosen == nil {
		rc.nextCandidate = nil
		r.mu.Unlock()
		return
	}

	eid := rc.EID
	r.mu.Unlock()

	if err := r.cm.TryToSendBundle(eid, chosen.Bundle, 0); err != nil {
		log.WithFields(log.Fields{"bundle": chosen.Bundle.ID, "peer": eid, "error": err}).
			Debug("router: CLA enqueue failed, pinning candidate for retry")

		r.mu.Lock()
		rc.nextCandidate = chosen
		rc.current = nil
		r.mu.Unlock()
		return
	}

	r.mu.Lock()
	rc.current = chosen
	rc.nextCandidate = sendNext
	rc.State = StateSending
	r.mu.Unlock()
}

// HandleTransmissionResult processes a CLA's completion report for the
// bundle it most recently accepted from rc. On success the contact's
// cursor resumes from the bundle after the one just sent. On failure the
// cursor is NOT restored to retry the same bundle this cycle — the
// decision recorded as an explicit, tested design choice: the bundle
// remains reachable through a future OFFER re-cycle, but this contact does
// not immediately retry it.
func (r *Router) HandleTransmissionResult(addr cla.Address, id bpv7.BundleID, success bool) {
	r.mu.Lock()
	rc, ok := r.contacts[addr]
	if !ok {
		r.mu.Unlock()
		return
	}

	if rc.current == nil || !rc.current.Bundle.ID.Equal(id) {
		r.mu.Unlock()
		return
	}

	finished := rc.current
	rc.current = nil
	rc.State = StateIdle
	r.mu.Unlock()

	if r.processor != nil {
		if success {
			r.processor.Inform(finished.Bundle.ID, bp.TransmissionSuccess, bp.NoInformation)
		} else {
			r.processor.Inform(finished.Bundle.ID, bp.TransmissionFailure, bp.NoNextNodeContact)
		}
	}

	r.trySendToContact(rc)
}

// UpdateRequestSV installs a newly received REQUEST summary vector for rc.
// Every Summary Vector Entry present in the old REQUEST but absent from the
// new one is treated as satisfied: if that bundle still has replica budget,
// the budget is decremented by one. The contact's candidate cursor is reset
// to the head of the bundle list so bundles skipped in earlier cycles (now
// possibly requested) are reconsidered.
func (r *Router) UpdateRequestSV(addr cla.Address, newRequest *sv.Vector) {
	r.mu.Lock()
	rc, ok := r.contacts[addr]
	if !ok {
		r.mu.Unlock()
		return
	}

	old := rc.RequestSV
	if old != nil {
		for _, e := range old.Entries() {
			if newRequest.Contains(e) {
				continue
			}
			if b := r.findBySVE(e); b != nil && b.Budget > 0 {
				b.Budget--
			}
		}
	}

	rc.RequestSV = newRequest
	if len(r.bundles) > 0 {
		rc.nextCandidate = r.bundles[0]
	} else {
		rc.nextCandidate = nil
	}
	idle := rc.current == nil
	if idle {
		rc.State = StateIdle
	}
	r.mu.Unlock()

	if idle {
		r.trySendToContact(rc)
	}
}

// ExpireOlderThan removes every bundle whose deadline has passed, protecting
// any bundle currently in flight to some contact (it is removed on a later
// call once the in-flight transmission completes). Removed bundles are
// reported to the Bundle Processor as expired, and any contact cursor
// pointing at a removed bundle is reset so candidate selection restarts
// from the head of the remaining list.
func (r *Router) ExpireOlderThan(now bpv7.DtnTime) {
	r.mu.Lock()

	inFlight := make(map[*BundleInfo]bool)
	for _, rc := range r.contacts {
		if rc.current != nil {
			inFlight[rc.current] = true
		}
	}

	kept := r.bundles[:0:0]
	var expired []*BundleInfo
	for _, b := range r.bundles {
		if b.Deadline < now && !inFlight[b] {
			expired = append(expired, b)
			continue
		}
		kept = append(kept, b)
	}
	r.bundles = kept

	if len(expired) > 0 {
		expiredSet := make(map[*BundleInfo]bool, len(expired))
		for _, b := range expired {
			expiredSet[b] = true
		}
		for _, rc := range r.contacts {
			if rc.nextCandidate != nil && expiredSet[rc.nextCandidate] {
				rc.nextCandidate = nil
			}
		}
	}

	r.mu.Unlock()

	for _, b := range expired {
		if r.processor != nil {
			r.processor.Inform(b.Bundle.ID, bp.BundleExpired, bp.LifetimeExpired)
		}
	}
}
