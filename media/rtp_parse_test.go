// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package media

import (
	"testing"

	"github.com/pion/rtcp"
	"github.com/stretchr/testify/require"
)

func TestRewriteOutboundRTCPFixesSSRCOfEachSubPacket(t *testing.T) {
	sr := &rtcp.SenderReport{SSRC: 1, Reports: []rtcp.ReceptionReport{{SSRC: 2}}}
	bye := &rtcp.Goodbye{Sources: []uint32{3}}
	payload, err := rtcp.Marshal([]rtcp.Packet{sr, bye})
	require.NoError(t, err)

	out, err := RewriteOutboundRTCP(payload, 1000, 2000)
	require.NoError(t, err)

	packets, err := rtcp.Unmarshal(out)
	require.NoError(t, err)
	require.Len(t, packets, 2)

	gotSR, ok := packets[0].(*rtcp.SenderReport)
	require.True(t, ok)
	require.Equal(t, uint32(1000), gotSR.SSRC)
	require.Equal(t, uint32(2000), gotSR.Reports[0].SSRC)

	gotBye, ok := packets[1].(*rtcp.Goodbye)
	require.True(t, ok)
	require.Equal(t, []uint32{1000}, gotBye.Sources)
}

func TestRewriteOutboundRTCPRejectsTruncatedPacket(t *testing.T) {
	sr := &rtcp.SenderReport{SSRC: 1}
	payload, err := sr.Marshal()
	require.NoError(t, err)

	_, err = RewriteOutboundRTCP(payload[:len(payload)-4], 1000, 2000)
	require.Error(t, err)
}
