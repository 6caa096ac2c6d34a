package routing

import (
	"sync"
	"testing"
	"time"

	"github.com/dtn7/dtn7-ble/pkg/cla"
)

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(e Event, _ *Contact) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) has(e Event) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, got := range l.events {
		if got == e {
			return true
		}
	}
	return false
}

func TestContactManagerConnUpFiresActive(t *testing.T) {
	cm := NewContactManager(time.Hour)
	log := &eventLog{}
	cm.Subscribe(log.record)

	addr := cla.Address("mock:peer")
	cm.HandleConnUp(addr)

	if !log.has(Active) {
		t.Fatal("expected an Active event")
	}

	contacts := cm.Contacts()
	if len(contacts) != 1 || !contacts[0].Active {
		t.Fatalf("expected exactly one active contact, got %+v", contacts)
	}
}

func TestContactManagerConnDownFiresInactive(t *testing.T) {
	cm := NewContactManager(time.Hour)
	log := &eventLog{}
	cm.Subscribe(log.record)

	addr := cla.Address("mock:peer")
	cm.HandleConnUp(addr)
	cm.HandleConnDown(addr)

	if !log.has(Inactive) {
		t.Fatal("expected an Inactive event")
	}
}

// TestIdleTimeoutPrecedesWarning checks that a contact idle long enough to
// exceed both the warning threshold and the idle timeout is reaped
// (Inactive, Removed) but never also reports a Warning in that same check.
func TestIdleTimeoutPrecedesWarning(t *testing.T) {
	cm := NewContactManager(40 * time.Millisecond)
	log := &eventLog{}
	cm.Subscribe(log.record)

	addr := cla.Address("mock:peer")
	cm.HandleConnUp(addr)

	time.Sleep(60 * time.Millisecond)
	cm.CheckTimeouts(time.Now(), 10*time.Millisecond)

	if log.has(Warning) {
		t.Fatal("a reaped contact must not also report a Warning in the same check")
	}
	if !log.has(Removed) {
		t.Fatal("expected the idle contact to be reaped")
	}

	if _, ok := cm.FindByEID(noneEID); ok {
		t.Fatal("expected the reaped contact to no longer be tracked")
	}
}

func TestCheckTimeoutsWarnsWithoutReaping(t *testing.T) {
	cm := NewContactManager(200 * time.Millisecond)
	log := &eventLog{}
	cm.Subscribe(log.record)

	addr := cla.Address("mock:peer")
	cm.HandleConnUp(addr)

	time.Sleep(30 * time.Millisecond)
	cm.CheckTimeouts(time.Now(), 10*time.Millisecond)

	if !log.has(Warning) {
		t.Fatal("expected a Warning for a contact past the warning threshold but not the idle timeout")
	}
	if log.has(Removed) {
		t.Fatal("a merely-warned contact must not be reaped")
	}

	contacts := cm.Contacts()
	if len(contacts) != 1 {
		t.Fatalf("expected the contact to still be tracked, got %+v", contacts)
	}
}
