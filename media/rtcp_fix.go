// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package media

import "github.com/pion/rtcp"

// FixSSRC rewrites the outer SSRC of an RTCP packet to localSSRC and, for
// report blocks that target a remote source, the inner target SSRC to
// peerSSRC. It is the Go equivalent of janus_rtcp_fix_ssrc, applied to
// host-originated RTCP before it is relayed to the peer.
func FixSSRC(pkt rtcp.Packet, localSSRC, peerSSRC uint32) {
	switch p := pkt.(type) {
	case *rtcp.SenderReport:
		p.SSRC = localSSRC
		for i := range p.Reports {
			p.Reports[i].SSRC = peerSSRC
		}
	case *rtcp.ReceiverReport:
		p.SSRC = localSSRC
		for i := range p.Reports {
			p.Reports[i].SSRC = peerSSRC
		}
	case *rtcp.SourceDescription:
		for i := range p.Chunks {
			p.Chunks[i].Source = localSSRC
		}
	case *rtcp.Goodbye:
		for i := range p.Sources {
			p.Sources[i] = localSSRC
		}
	case *rtcp.PictureLossIndication:
		p.SenderSSRC = localSSRC
		p.MediaSSRC = peerSSRC
	}
}
