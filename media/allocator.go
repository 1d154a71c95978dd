// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package media

import (
	"fmt"
	"math/rand/v2"
	"net"
)

// maxAllocationAttempts caps the retry budget for one kind's RTP+RTCP pair,
// mirroring janus_nosip_allocate_local_ports' attempts counter.
const maxAllocationAttempts = 100

// PortPair is a bound, not-yet-connected RTP/RTCP socket pair for one media
// kind.
type PortPair struct {
	RTP      *net.UDPConn
	RTCP     *net.UDPConn
	RTPPort  int
	RTCPPort int
}

func (p *PortPair) Close() {
	if p == nil {
		return
	}
	if p.RTP != nil {
		p.RTP.Close()
	}
	if p.RTCP != nil {
		p.RTCP.Close()
	}
}

// AllocatePortPair probes random candidate ports in the inclusive range
// [min,max] until it finds an even RTP port whose RTP and RTP+1 RTCP
// sockets both bind successfully, or the attempt cap is exhausted.
func AllocatePortPair(localIP net.IP, min, max int) (*PortPair, error) {
	if min <= 0 || max <= 0 || min > max {
		return nil, fmt.Errorf("media: invalid port range %d-%d", min, max)
	}
	span := max - min + 1

	for attempt := 0; attempt < maxAllocationAttempts; attempt++ {
		port := min + rand.IntN(span)
		if port%2 != 0 {
			port++
		}

		rtpConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: localIP, Port: port})
		if err != nil {
			continue
		}

		rtcpConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: localIP, Port: port + 1})
		if err != nil {
			rtpConn.Close()
			continue
		}

		return &PortPair{RTP: rtpConn, RTCP: rtcpConn, RTPPort: port, RTCPPort: port + 1}, nil
	}

	return nil, fmt.Errorf("media: exhausted %d port allocation attempts in range %d-%d", maxAllocationAttempts, min, max)
}
