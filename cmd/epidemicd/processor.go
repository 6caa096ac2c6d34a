// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtn7-ble/pkg/bp"
	"github.com/dtn7/dtn7-ble/pkg/bpv7"
)

// loggingProcessor is a bp.Processor that only logs routing outcomes; it
// holds no bundles and performs no dispatch. A real Bundle Processor
// (persistence, byte-level codec, application-agent delivery) is expected
// to replace this stand-in once one is wired in.
type loggingProcessor struct{}

func newLoggingProcessor() *loggingProcessor {
	return &loggingProcessor{}
}

func (p *loggingProcessor) Bundle(id bpv7.BundleID) (bp.Bundle, bool) {
	return bp.Bundle{}, false
}

func (p *loggingProcessor) Inform(id bpv7.BundleID, signal bp.Signal, reason bp.Reason) {
	log.WithFields(log.Fields{
		"bundle": id,
		"signal": signal,
		"reason": reason,
	}).Debug("epidemicd: routing outcome")
}

func (p *loggingProcessor) DispatchLocal(b bp.Bundle) error {
	log.WithField("bundle", b.ID).Debug("epidemicd: local dispatch requested, no processor wired in")
	return nil
}
