// SPDX-FileCopyrightText: 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package statusapi exposes a read-only administrative view of the epidemic
// router over HTTP: contact state as JSON via gorilla/mux, and a live event
// feed over a gorilla/websocket connection.
package statusapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/howeyc/crc16"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtn7-ble/pkg/kbl"
	"github.com/dtn7/dtn7-ble/pkg/routing"
)

// ContactView is the JSON-facing snapshot of a single Contact.
type ContactView struct {
	EID        string `json:"eid"`
	Address    string `json:"address"`
	Active     bool   `json:"active"`
}

// EventView is a Contact Manager lifecycle event as pushed to WebSocket
// clients.
type EventView struct {
	Event   string    `json:"event"`
	Contact ContactView `json:"contact"`
	At      time.Time `json:"at"`
}

// BundleView is the JSON-facing snapshot of a single Known Bundle List
// entry: its identity, the fingerprint is a CRC16 of the BUID's string form,
// not the Summary Vector's sha256 digest. It lets an operator eyeball
// whether two nodes are looking at the same bundle without printing the
// full identifier.
type BundleView struct {
	BundleID    string `json:"bundle_id"`
	Fingerprint string `json:"fingerprint"`
	Deadline    int64  `json:"deadline"`
}

var bundleFingerprintTable = crc16.MakeTable(crc16.CCITT)

// Server serves the administrative status API.
type Server struct {
	router *mux.Router
	cm     *routing.ContactManager
	kbl    *kbl.List

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan EventView

	httpServer *http.Server
}

// NewServer wires a Server at address, backed by cm and kb. Routes are
// registered on a fresh gorilla/mux router: GET /contacts for a Contact
// Manager snapshot, GET /bundles for a Known Bundle List snapshot, GET /ws
// for the live event feed.
func NewServer(address string, cm *routing.ContactManager, kb *kbl.List) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		cm:       cm,
		kbl:      kb,
		upgrader: websocket.Upgrader{},
		clients:  make(map[*websocket.Conn]chan EventView),
	}

	s.router.HandleFunc("/contacts", s.handleContacts).Methods(http.MethodGet)
	s.router.HandleFunc("/bundles", s.handleBundles).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleWebsocket).Methods(http.MethodGet)

	s.httpServer = &http.Server{Addr: address, Handler: s.router}
	cm.Subscribe(s.onEvent)

	return s
}

// ListenAndServe starts the HTTP server. It blocks until the server is
// closed, mirroring net/http.Server.ListenAndServe's contract.
func (s *Server) ListenAndServe() error {
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts the HTTP server down and drops every connected WebSocket
// client.
func (s *Server) Close() error {
	s.mu.Lock()
	for conn, ch := range s.clients {
		close(ch)
		_ = conn.Close()
	}
	s.clients = make(map[*websocket.Conn]chan EventView)
	s.mu.Unlock()

	return s.httpServer.Close()
}

func toContactView(c *routing.Contact) ContactView {
	return ContactView{
		EID:     c.Node.EID.String(),
		Address: string(c.CLAAddress),
		Active:  c.Active,
	}
}

func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request) {
	contacts := s.cm.Contacts()
	views := make([]ContactView, len(contacts))
	for i := range contacts {
		views[i] = toContactView(&contacts[i])
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(views); err != nil {
		log.WithError(err).Warn("statusapi: failed to write contacts response")
	}
}

func (s *Server) handleBundles(w http.ResponseWriter, r *http.Request) {
	entries := s.kbl.Entries()
	views := make([]BundleView, len(entries))
	for i, e := range entries {
		id := []byte(e.ID.String())
		views[i] = BundleView{
			BundleID:    e.ID.String(),
			Fingerprint: fmt.Sprintf("%04x", crc16.Checksum(id, bundleFingerprintTable)),
			Deadline:    int64(e.Deadline),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(views); err != nil {
		log.WithError(err).Warn("statusapi: failed to write bundles response")
	}
}

// onEvent is the ContactManager listener callback; it only ever fans the
// event out to each connected client's own buffered channel, never writing
// to a websocket connection directly from this call.
func (s *Server) onEvent(event routing.Event, contact *routing.Contact) {
	view := EventView{Event: event.String(), Contact: toContactView(contact), At: time.Now()}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.clients {
		select {
		case ch <- view:
		default:
			log.Warn("statusapi: dropping event for a slow WebSocket client")
		}
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("statusapi: failed to upgrade WebSocket connection")
		return
	}

	ch := make(chan EventView, 32)
	s.mu.Lock()
	s.clients[conn] = ch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	for event := range ch {
		if err := conn.WriteJSON(event); err != nil {
			log.WithError(err).Debug("statusapi: WebSocket client disconnected")
			return
		}
	}
}
