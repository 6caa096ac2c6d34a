// SPDX-FileCopyrightText: 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package statusapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dtn7/dtn7-ble/pkg/bpv7"
	"github.com/dtn7/dtn7-ble/pkg/cla"
	"github.com/dtn7/dtn7-ble/pkg/kbl"
	"github.com/dtn7/dtn7-ble/pkg/routing"
)

func TestHandleContactsReturnsSnapshot(t *testing.T) {
	cm := routing.NewContactManager(time.Hour)
	cm.HandleConnUp(cla.Address("mock:peer"))

	s := NewServer("127.0.0.1:0", cm, kbl.New())
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/contacts")
	if err != nil {
		t.Fatalf("GET /contacts failed: %v", err)
	}
	defer resp.Body.Close()

	var views []ContactView
	if err := json.NewDecoder(resp.Body).Decode(&views); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(views) != 1 || !views[0].Active {
		t.Fatalf("expected one active contact, got %+v", views)
	}
}

func TestHandleBundlesReturnsFingerprints(t *testing.T) {
	known := kbl.New()
	src := bpv7.MustNewEndpointID("dtn://sender/")
	id := bpv7.BundleID{
		SourceNode: src,
		Timestamp:  bpv7.NewCreationTimestamp(bpv7.DtnTimeNow(), 1),
	}
	known.AddIfNotExists(id, bpv7.DtnTime(1<<40))

	s := NewServer("127.0.0.1:0", routing.NewContactManager(time.Hour), known)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/bundles")
	if err != nil {
		t.Fatalf("GET /bundles failed: %v", err)
	}
	defer resp.Body.Close()

	var views []BundleView
	if err := json.NewDecoder(resp.Body).Decode(&views); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(views) != 1 {
		t.Fatalf("expected one bundle entry, got %+v", views)
	}
	if views[0].BundleID != id.String() {
		t.Fatalf("expected bundle id %q, got %q", id.String(), views[0].BundleID)
	}
	if len(views[0].Fingerprint) != 4 {
		t.Fatalf("expected a 4-hex-digit fingerprint, got %q", views[0].Fingerprint)
	}
}
