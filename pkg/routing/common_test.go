package routing

import (
	"sync"
	"time"

	"github.com/dtn7/dtn7-ble/pkg/bp"
	"github.com/dtn7/dtn7-ble/pkg/bpv7"
)

// informed records one call to fakeProcessor.Inform, for assertions.
type informed struct {
	id     bpv7.BundleID
	signal bp.Signal
	reason bp.Reason
}

// fakeProcessor is a minimal bp.Processor double recording every call it
// receives, standing in for the Bundle Processor in routing-core tests.
type fakeProcessor struct {
	mu sync.Mutex

	bundles    map[string]bp.Bundle
	informed   []informed
	dispatched []bp.Bundle
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{bundles: make(map[string]bp.Bundle)}
}

func (f *fakeProcessor) Bundle(id bpv7.BundleID) (bp.Bundle, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bundles[id.String()]
	return b, ok
}

func (f *fakeProcessor) Inform(id bpv7.BundleID, signal bp.Signal, reason bp.Reason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.informed = append(f.informed, informed{id: id, signal: signal, reason: reason})
}

func (f *fakeProcessor) DispatchLocal(b bp.Bundle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatched = append(f.dispatched, b)
	return nil
}

func (f *fakeProcessor) informedSignals() []bp.Signal {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bp.Signal, len(f.informed))
	for i, e := range f.informed {
		out[i] = e.signal
	}
	return out
}

func (f *fakeProcessor) dispatchedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.dispatched)
}

// testBundle builds a distinct bp.Bundle from src, keyed by seq so distinct
// calls yield distinct BundleIDs and Summary Vector Entries. Its destination
// is the non-singleton "dtn:none" endpoint, classifying it for unlimited
// epidemic replication budget by default.
func testBundle(src bpv7.EndpointID, seq uint64) bp.Bundle {
	return bp.Bundle{
		ID: bpv7.BundleID{
			SourceNode: src,
			Timestamp:  bpv7.NewCreationTimestamp(bpv7.DtnTimeNow(), seq),
		},
		Source:      src,
		Destination: bpv7.DtnNone(),
		Lifetime:    time.Hour,
	}
}
