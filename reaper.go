// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

package nosip

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ReclaimGrace is the minimum delay between destroy_session and actually
// releasing ports, SRTP contexts and recorders, mirroring the Janus core's
// watchdog loop that old_sessions_list sessions sit in for session_timeout
// seconds before the plugin's destroy callback runs.
const ReclaimGrace = 5 * time.Second

// reaperTick is how often the Reaper scans the deferred list. Spec §4.6's
// Testable Property requires the window to land within [5s, 5.5s], so the
// tick must not exceed the 500ms slack budget.
const reaperTick = 500 * time.Millisecond

// Reaper periodically reclaims sessions whose deferred-reclamation window
// has elapsed, freeing their ports, SRTP contexts and recorders.
type Reaper struct {
	registry *SessionRegistry
	log      zerolog.Logger
}

func NewReaper(registry *SessionRegistry, logger zerolog.Logger) *Reaper {
	return &Reaper{registry: registry, log: logger.With().Str("component", "reaper").Logger()}
}

// Run blocks, ticking until ctx is cancelled.
func (rp *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(reaperTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rp.sweep()
		}
	}
}

func (rp *Reaper) sweep() {
	now := time.Now().UnixNano()
	due := rp.registry.ReclaimDue(now, int64(ReclaimGrace))
	for _, s := range due {
		s.StopRelay()
		s.Release()
		rp.log.Info().Str("handle", s.Handle).Msg("session reclaimed")
	}
}
