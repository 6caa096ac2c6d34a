// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Command epidemicd runs the epidemic routing core as a standalone daemon:
// it wires the Contact Manager, Router, Routing Agent and Router Task
// around a TOML configuration, starts neighbor discovery and the
// administrative status API, and blocks until interrupted.
package main

import (
	"os"
	"os/signal"
	"time"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtn7-ble/internal/config"
	"github.com/dtn7/dtn7-ble/internal/statusapi"
	"github.com/dtn7/dtn7-ble/pkg/bpv7"
	"github.com/dtn7/dtn7-ble/pkg/cla"
	"github.com/dtn7/dtn7-ble/pkg/discovery"
	"github.com/dtn7/dtn7-ble/pkg/kbl"
	"github.com/dtn7/dtn7-ble/pkg/routing"
)

// waitSigint blocks until a SIGINT arrives.
func waitSigint() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
}

// daemon bundles the long-lived components started by run, so their
// shutdown can be aggregated into a single multierror.
type daemon struct {
	routerTask *routing.RouterTask
	discovery  *discovery.Manager
	statusAPI  *statusapi.Server
}

func (d *daemon) Close() error {
	var result *multierror.Error

	if err := d.routerTask.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if d.discovery != nil {
		d.discovery.Close()
	}
	if d.statusAPI != nil {
		if err := d.statusAPI.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

func run(conf config.Config) (*daemon, error) {
	conf.ConfigureLogging()

	localEID, err := bpv7.NewEndpointID(conf.Core.NodeID)
	if err != nil {
		return nil, err
	}

	defaults := routing.DefaultConfig()
	routerConfig := routing.Config{
		IdleTimeout:      conf.Routing.IdleTimeout(defaults.IdleTimeout),
		WarningThreshold: conf.Routing.WarningThreshold(defaults.WarningThreshold),
		QueueLength:      defaults.QueueLength,
	}
	if conf.Routing.QueueLength > 0 {
		routerConfig.QueueLength = conf.Routing.QueueLength
	}

	knownBundles := kbl.New()
	// The Bundle Processor owning persistence and byte-level codec work is
	// an external collaborator; without one wired in, routing outcomes are
	// only logged.
	processor := newLoggingProcessor()

	defaultRouting := routing.DefaultRouterConfig(localEID)
	routingCoreConfig := routing.RouterConfig{
		LocalEID:                   localEID,
		DirectTransmissionReplicas: conf.Routing.DirectTransmissionBudget(defaultRouting.DirectTransmissionReplicas),
	}

	cm := routing.NewContactManager(routerConfig.IdleTimeout)
	router := routing.NewRouter(cm, processor, knownBundles, routingCoreConfig)
	routingAgent := routing.NewRoutingAgent(localEID, router, processor)
	routerTask := routing.NewRouterTask(cm, router, routingAgent, routerConfig)

	d := &daemon{routerTask: routerTask}

	if conf.Discovery.IPv4 || conf.Discovery.IPv6 {
		mgr, err := discovery.NewManager(
			localEID,
			cla.Address(conf.Discovery.LocalAddress),
			func(peer bpv7.EndpointID, addr cla.Address) {
				// No CLA factory is wired in; a concrete CLA implementation
				// is expected to register itself via routerTask.RegisterSender
				// once it has dialed addr.
				log.WithFields(log.Fields{"peer": peer, "address": addr}).
					Debug("epidemicd: discovered neighbor, no CLA registered for it")
				cm.HandleDiscoveredNeighbor(routing.Node{EID: peer}, addr)
			},
			conf.Discovery.DiscoveryInterval(30*time.Second),
			conf.Discovery.IPv4,
			conf.Discovery.IPv6,
		)
		if err != nil {
			return nil, err
		}
		d.discovery = mgr
	}

	if conf.StatusAPI.Address != "" {
		srv := statusapi.NewServer(conf.StatusAPI.Address, cm, knownBundles)
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				log.WithError(err).Warn("epidemicd: status API server stopped")
			}
		}()
		d.statusAPI = srv
	}

	return d, nil
}

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("Usage: %s configuration.toml", os.Args[0])
	}

	conf, err := config.Parse(os.Args[1])
	if err != nil {
		log.WithError(err).Fatal("epidemicd: failed to parse configuration")
	}

	d, err := run(conf)
	if err != nil {
		log.WithError(err).Fatal("epidemicd: failed to start")
	}

	waitSigint()
	log.Info("epidemicd: shutting down")

	if err := d.Close(); err != nil {
		log.WithError(err).Warn("epidemicd: error during shutdown")
	}
}
