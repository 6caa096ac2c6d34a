package cla

import (
	"fmt"
	"sync"

	"github.com/dtn7/dtn7-ble/pkg/bp"
	"github.com/dtn7/dtn7-ble/pkg/bpv7"
)

// MockSender is an in-memory ConvergenceSender for tests. Send either
// succeeds and records the bundle, or fails, depending on FailNext.
type MockSender struct {
	mu sync.Mutex

	peer    bpv7.EndpointID
	address Address

	Sent     []bp.Bundle
	FailNext bool
	closed   bool
}

// NewMockSender creates a MockSender addressing the given peer.
func NewMockSender(peer bpv7.EndpointID) *MockSender {
	return &MockSender{
		peer:    peer,
		address: Address(fmt.Sprintf("mock:%s", peer.String())),
	}
}

func (m *MockSender) Address() Address {
	return m.address
}

func (m *MockSender) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockSender) GetPeerEndpointID() bpv7.EndpointID {
	return m.peer
}

func (m *MockSender) Send(b bp.Bundle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("mock sender closed")
	}
	if m.FailNext {
		m.FailNext = false
		return fmt.Errorf("mock sender: forced failure")
	}

	m.Sent = append(m.Sent, b)
	return nil
}

// SentIDs returns the BundleIDs of every bundle accepted by Send.
func (m *MockSender) SentIDs() []bpv7.BundleID {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]bpv7.BundleID, len(m.Sent))
	for i, b := range m.Sent {
		out[i] = b.ID
	}
	return out
}
