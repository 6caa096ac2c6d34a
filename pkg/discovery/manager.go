// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2020 Markus Sommer
//
// SPDX-License-Identifier: GPL-3.0-or-later

package discovery

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/schollz/peerdiscovery"

	"github.com/dtn7/dtn7-ble/pkg/bpv7"
	"github.com/dtn7/dtn7-ble/pkg/cla"
)

// Manager publishes and receives Announcements over UDP multicast and
// hands each discovered peer to RegisterFunc as a bpv7.EndpointID/cla.Address
// pair. Byte-level transport is entirely delegated to
// schollz/peerdiscovery; this package only knows how to build and parse the
// Announcement payload it carries.
type Manager struct {
	NodeID       bpv7.EndpointID
	RegisterFunc func(peer bpv7.EndpointID, addr cla.Address)

	stopChan4 chan struct{}
	stopChan6 chan struct{}
}

// NewManager starts broadcasting and listening for Announcements of the
// local node at localAddr.
func NewManager(
	nodeID bpv7.EndpointID, localAddr cla.Address,
	registerFunc func(bpv7.EndpointID, cla.Address),
	announcementInterval time.Duration,
	ipv4, ipv6 bool,
) (*Manager, error) {
	manager := &Manager{
		NodeID:       nodeID,
		RegisterFunc: registerFunc,
	}
	if ipv4 {
		manager.stopChan4 = make(chan struct{})
	}
	if ipv6 {
		manager.stopChan6 = make(chan struct{})
	}

	log.WithFields(log.Fields{
		"interval": announcementInterval,
		"IPv4":     ipv4,
		"IPv6":     ipv6,
		"address":  localAddr,
	}).Info("discovery: starting manager")

	msg, err := MarshalAnnouncements([]Announcement{{Endpoint: nodeID, Address: string(localAddr)}})
	if err != nil {
		return nil, err
	}

	sets := []struct {
		active           bool
		multicastAddress string
		stopChan         chan struct{}
		ipVersion        peerdiscovery.IPVersion
		notify           func(discovered peerdiscovery.Discovered)
	}{
		{ipv4, address4, manager.stopChan4, peerdiscovery.IPv4, manager.notify},
		{ipv6, address6, manager.stopChan6, peerdiscovery.IPv6, manager.notify6},
	}

	for _, set := range sets {
		if !set.active {
			continue
		}

		settings := peerdiscovery.Settings{
			Limit:            -1,
			Port:             fmt.Sprintf("%d", port),
			MulticastAddress: set.multicastAddress,
			Payload:          msg,
			Delay:            announcementInterval,
			TimeLimit:        -1,
			StopChan:         set.stopChan,
			AllowSelf:        true,
			IPVersion:        set.ipVersion,
			Notify:           set.notify,
		}

		discoverErrChan := make(chan error, 1)
		go func() {
			_, discoverErr := peerdiscovery.Discover(settings)
			discoverErrChan <- discoverErr
		}()

		select {
		case discoverErr := <-discoverErrChan:
			if discoverErr != nil {
				return nil, discoverErr
			}
		case <-time.After(time.Second):
		}
	}

	return manager, nil
}

func (manager *Manager) notify6(discovered peerdiscovery.Discovered) {
	discovered.Address = fmt.Sprintf("[%s]", discovered.Address)
	manager.notify(discovered)
}

func (manager *Manager) notify(discovered peerdiscovery.Discovered) {
	announcements, err := UnmarshalAnnouncements(discovered.Payload)
	if err != nil {
		log.WithError(err).WithField("peer", discovered.Address).
			Warn("discovery: failed to parse incoming package")
		return
	}

	for _, announcement := range announcements {
		manager.handleDiscovery(announcement)
	}
}

func (manager *Manager) handleDiscovery(announcement Announcement) {
	if manager.NodeID.SameNode(announcement.Endpoint) {
		return
	}

	log.WithFields(log.Fields{
		"peer":    announcement.Endpoint,
		"address": announcement.Address,
	}).Debug("discovery: neighbor discovered")

	manager.RegisterFunc(announcement.Endpoint, cla.Address(announcement.Address))
}

// Close this Manager.
func (manager *Manager) Close() {
	for _, c := range []chan struct{}{manager.stopChan4, manager.stopChan6} {
		if c != nil {
			c <- struct{}{}
		}
	}
}
