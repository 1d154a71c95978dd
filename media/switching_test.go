// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package media

import (
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/require"
)

func TestSwitchingContextPassesThroughSameSource(t *testing.T) {
	var c SwitchingContext

	hdr := &rtp.Header{SSRC: 1, SequenceNumber: 100, Timestamp: 1000}
	c.Update(hdr, 960)
	require.Equal(t, uint16(100), hdr.SequenceNumber)
	require.Equal(t, uint32(1000), hdr.Timestamp)

	hdr2 := &rtp.Header{SSRC: 1, SequenceNumber: 101, Timestamp: 1960}
	c.Update(hdr2, 960)
	require.Equal(t, uint16(101), hdr2.SequenceNumber)
	require.Equal(t, uint32(1960), hdr2.Timestamp)
}

func TestSwitchingContextRewritesOnSourceChange(t *testing.T) {
	var c SwitchingContext

	first := &rtp.Header{SSRC: 1, SequenceNumber: 100, Timestamp: 1000}
	c.Update(first, 960)

	// A new source (SSRC change, e.g. re-INVITE) restarts sequence/timestamp
	// numbering from its own base; the context must continue the original
	// space without a jump.
	second := &rtp.Header{SSRC: 2, SequenceNumber: 0, Timestamp: 0}
	c.Update(second, 960)

	require.Equal(t, uint16(101), second.SequenceNumber)
	require.Equal(t, uint32(1960), second.Timestamp)

	third := &rtp.Header{SSRC: 2, SequenceNumber: 1, Timestamp: 160}
	c.Update(third, 960)
	require.Equal(t, uint16(102), third.SequenceNumber)
	require.Equal(t, uint32(2120), third.Timestamp)
}

func TestPeerSSRCObserve(t *testing.T) {
	var p PeerSSRC
	require.True(t, p.Observe(10))
	require.False(t, p.Observe(10))
	require.True(t, p.Observe(20))
	require.Equal(t, uint32(20), p.Value())
}
