// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package media

import "github.com/pion/rtp"

// SwitchingContext maintains a continuous sequence/timestamp space across
// source changes (re-INVITE, codec switch, SSRC change) for one media kind.
// It is the Go counterpart of janus_rtp_switching_context /
// janus_rtp_header_update.
type SwitchingContext struct {
	initialized bool

	ssrc uint32

	seqOffset uint16
	lastSeq   uint16

	tsOffset uint32
	lastTs   uint32

	// measured holds the inter-frame timestamp delta once two raw samples
	// of the same source have been observed; it refines the default step
	// hint used on the next source change.
	measured  uint32
	haveFirst bool
	firstRaw  uint32
}

// Update rewrites header's SequenceNumber and Timestamp in place so they
// continue the session's own numbering space regardless of the source's
// SSRC restarting. defaultStep is the fallback inter-frame timestamp hint
// (960 for audio, 4500 for video per spec 4.5) used immediately after a
// source change, before two samples have been measured.
func (c *SwitchingContext) Update(header *rtp.Header, defaultStep uint32) {
	rawTs := header.Timestamp

	if !c.initialized {
		c.initialized = true
		c.ssrc = header.SSRC
		c.seqOffset = 0
		c.tsOffset = 0
	} else if header.SSRC != c.ssrc {
		step := c.measured
		if step == 0 {
			step = defaultStep
		}
		c.seqOffset = c.lastSeq + 1 - header.SequenceNumber
		c.tsOffset = c.lastTs + step - rawTs
		c.ssrc = header.SSRC
		c.haveFirst = false
		c.measured = 0
	}

	c.trackMeasuredStep(rawTs)

	header.SequenceNumber += c.seqOffset
	header.Timestamp += c.tsOffset

	c.lastSeq = header.SequenceNumber
	c.lastTs = header.Timestamp
}

func (c *SwitchingContext) trackMeasuredStep(rawTs uint32) {
	if !c.haveFirst {
		c.haveFirst = true
		c.firstRaw = rawTs
		return
	}
	if c.measured == 0 && rawTs > c.firstRaw {
		c.measured = rawTs - c.firstRaw
	}
}

// PeerSSRC tracks the inbound peer SSRC, updating and reporting whether it
// changed from the previously observed value (janus_nosip_incoming_rtp's
// "capture SSRC on first packet" / change-detection logic).
type PeerSSRC struct {
	ssrc uint32
	seen bool
}

// Observe records ssrc and reports whether this is the first observation or
// the value changed from the prior one.
func (p *PeerSSRC) Observe(ssrc uint32) (changed bool) {
	if !p.seen || p.ssrc != ssrc {
		p.ssrc = ssrc
		p.seen = true
		return true
	}
	return false
}

func (p *PeerSSRC) Value() uint32 {
	return p.ssrc
}
