// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2019, 2020 Markus Sommer
//
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestParseValidConfig(t *testing.T) {
	path := writeTempConfig(t, `
[core]
node-id = "dtn://node1/"

[logging]
level = "debug"

[discovery]
ipv4 = true
interval = 2

[routing]
idle-timeout-seconds = 30
warning-threshold-seconds = 20
`)

	conf, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if conf.Core.NodeID != "dtn://node1/" {
		t.Fatalf("unexpected node id: %q", conf.Core.NodeID)
	}
	if conf.Routing.IdleTimeout(time.Minute) != 30*time.Second {
		t.Fatalf("unexpected idle timeout: %v", conf.Routing.IdleTimeout(time.Minute))
	}
}

func TestParseMissingNodeID(t *testing.T) {
	path := writeTempConfig(t, `
[logging]
level = "debug"
`)

	if _, err := Parse(path); err == nil {
		t.Fatal("expected an error for a missing core.node-id")
	}
}

func TestRoutingConfFallback(t *testing.T) {
	var r RoutingConf
	if got := r.IdleTimeout(45 * time.Second); got != 45*time.Second {
		t.Fatalf("expected fallback idle timeout, got %v", got)
	}
	if got := r.WarningThreshold(15 * time.Second); got != 15*time.Second {
		t.Fatalf("expected fallback warning threshold, got %v", got)
	}
}
