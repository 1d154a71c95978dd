// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package media

import (
	"errors"
	"fmt"

	"github.com/pion/rtcp"
)

var errRTCPFailedToUnmarshal = errors.New("rtcp: failed to unmarshal")

// RewriteOutboundRTCP is the host-to-peer RTCP path's only decode step: it
// walks a compound RTCP packet from the host one sub-packet at a time,
// applies FixSSRC to each using the kind's negotiated local/peer SSRCs, and
// re-serializes the result for the wire (spec 4.5's host-to-peer RTCP relay
// step). Unlike a generic unmarshal-then-fix-then-marshal pipeline, the
// rewrite happens inline per sub-packet so callers never see the
// unrewritten SSRCs and can't forget to call FixSSRC on one of them.
func RewriteOutboundRTCP(payload []byte, localSSRC, peerSSRC uint32) ([]byte, error) {
	const maxSubPackets = 16
	packets := make([]rtcp.Packet, 0, maxSubPackets)

	data := payload
	for len(data) != 0 && len(packets) < maxSubPackets {
		var h rtcp.Header
		if err := h.Unmarshal(data); err != nil {
			return nil, errors.Join(err, errRTCPFailedToUnmarshal)
		}

		pktLen := int(h.Length+1) * 4
		if pktLen > len(data) {
			return nil, fmt.Errorf("packet too short: %w", errRTCPFailedToUnmarshal)
		}

		packet := rtcpTypedPacket(h)
		if err := packet.Unmarshal(data[:pktLen]); err != nil {
			return nil, err
		}
		FixSSRC(packet, localSSRC, peerSSRC)
		packets = append(packets, packet)

		data = data[pktLen:]
	}

	return rtcp.Marshal(packets)
}

// rtcpTypedPacket picks the concrete rtcp.Packet to unmarshal into for a
// given RTCP header type; anything this bridge never rewrites a field of
// falls back to rtcp.RawPacket, since FixSSRC has nothing to do with it.
func rtcpTypedPacket(h rtcp.Header) rtcp.Packet {
	switch h.Type {
	case rtcp.TypeSenderReport:
		return new(rtcp.SenderReport)
	case rtcp.TypeReceiverReport:
		return new(rtcp.ReceiverReport)
	case rtcp.TypeSourceDescription:
		return new(rtcp.SourceDescription)
	case rtcp.TypeGoodbye:
		return new(rtcp.Goodbye)
	case rtcp.TypePayloadSpecificFeedback:
		if h.Count == rtcp.FormatPLI {
			return new(rtcp.PictureLossIndication)
		}
		return new(rtcp.RawPacket)
	default:
		return new(rtcp.RawPacket)
	}
}
