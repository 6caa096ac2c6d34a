// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2019, 2020 Markus Sommer
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the TOML configuration for the epidemic routing
// daemon, mirroring the shape and defaulting behavior of the original
// dtnd configuration.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
)

// Config is the root of the daemon's TOML configuration.
type Config struct {
	Core      CoreConf
	Logging   LogConf
	Discovery DiscoveryConf
	Routing   RoutingConf
	StatusAPI StatusAPIConf
}

// CoreConf describes the node's own identity.
type CoreConf struct {
	NodeID string `toml:"node-id"`
}

// LogConf describes the logrus configuration block.
type LogConf struct {
	Level        string
	ReportCaller bool `toml:"report-caller"`
	Format       string
}

// DiscoveryConf describes the UDP multicast neighbor discovery block.
type DiscoveryConf struct {
	IPv4         bool
	IPv6         bool
	Interval     uint
	LocalAddress string `toml:"local-address"`
}

// RoutingConf describes the Router Task's timing knobs and replica budgets.
type RoutingConf struct {
	IdleTimeoutSeconds      uint `toml:"idle-timeout-seconds"`
	WarningThresholdSeconds uint `toml:"warning-threshold-seconds"`
	QueueLength             int  `toml:"queue-length"`

	// DirectTransmissionReplicas is the replica budget given to a
	// locally-originated bundle addressed to a singleton destination.
	DirectTransmissionReplicas int `toml:"direct-transmission-replicas"`
}

// StatusAPIConf describes the administrative HTTP/WebSocket surface.
type StatusAPIConf struct {
	Address   string
	Websocket bool
}

// IdleTimeout returns the configured idle timeout as a time.Duration,
// falling back to the Router Task's default if unset.
func (r RoutingConf) IdleTimeout(fallback time.Duration) time.Duration {
	if r.IdleTimeoutSeconds == 0 {
		return fallback
	}
	return time.Duration(r.IdleTimeoutSeconds) * time.Second
}

// WarningThreshold returns the configured warning threshold as a
// time.Duration, falling back to the Router Task's default if unset.
func (r RoutingConf) WarningThreshold(fallback time.Duration) time.Duration {
	if r.WarningThresholdSeconds == 0 {
		return fallback
	}
	return time.Duration(r.WarningThresholdSeconds) * time.Second
}

// DirectTransmissionBudget returns the configured direct-transmission
// replica budget, falling back to the given default if unset.
func (r RoutingConf) DirectTransmissionBudget(fallback int) int {
	if r.DirectTransmissionReplicas == 0 {
		return fallback
	}
	return r.DirectTransmissionReplicas
}

// DiscoveryInterval returns the configured discovery announcement
// interval, falling back to the given default if unset.
func (d DiscoveryConf) DiscoveryInterval(fallback time.Duration) time.Duration {
	if d.Interval == 0 {
		return fallback
	}
	return time.Duration(d.Interval) * time.Second
}

// Parse reads and validates the TOML configuration at path.
func Parse(path string) (Config, error) {
	var conf Config
	if _, err := toml.DecodeFile(path, &conf); err != nil {
		return Config{}, fmt.Errorf("config: failed to decode %q: %v", path, err)
	}

	if conf.Core.NodeID == "" {
		return Config{}, fmt.Errorf("config: core.node-id must be set")
	}

	return conf, nil
}

// ConfigureLogging applies the Logging block to the default logrus logger.
func (c Config) ConfigureLogging() {
	if c.Logging.Level != "" {
		if lvl, err := log.ParseLevel(c.Logging.Level); err != nil {
			log.WithFields(log.Fields{
				"level":    c.Logging.Level,
				"provided": "panic,fatal,error,warn,info,debug,trace",
			}).Warn("config: failed to set log level")
		} else {
			log.SetLevel(lvl)
		}
	}

	log.SetReportCaller(c.Logging.ReportCaller)

	switch c.Logging.Format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})

	case "json":
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	}
}
