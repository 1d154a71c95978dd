// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

// Package media holds the per-session data plane: port allocation, SRTP
// contexts, RTP switching state and the SDP dialect used to describe them.
package media

import (
	"net"
	"sync/atomic"
)

// Kind identifies an audio or video media line. There is no Kind for data
// channels: m=application lines are never mapped onto a Descriptor.
type Kind int

const (
	Audio Kind = iota
	Video
)

func (k Kind) String() string {
	if k == Video {
		return "video"
	}
	return "audio"
}

// KindState is the per-kind slice of janus_nosip_media: sockets, ports,
// SSRCs, negotiated payload type, send gate, SRTP state and switching
// context.
type KindState struct {
	Present bool

	Ports *PortPair

	RemoteRTPPort  int
	RemoteRTCPPort int

	LocalSSRC    uint32
	localSSRCSet bool
	PeerSSRC     PeerSSRC

	PayloadType uint8
	PayloadName string

	// Send gates the host-to-peer path; cleared by a=sendonly/inactive.
	Send bool

	SRTP      SRTPState
	Switching SwitchingContext

	// remoteAddr is the resolved peer endpoint the Relay Loop "connects"
	// its sockets to (spec 4.5 step 2); stored atomically since host
	// callback threads read it while the Relay Loop may rewrite it after
	// an Updated/reconnect cycle.
	remoteAddr atomic.Pointer[net.UDPAddr]
}

// SetRemoteAddr records the resolved RTP endpoint for this kind, called by
// the Relay Loop on startup and after an Updated reconnect.
func (k *KindState) SetRemoteAddr(addr *net.UDPAddr) {
	k.remoteAddr.Store(addr)
}

// RemoteAddr returns the last resolved peer RTP endpoint, or nil if the
// Relay Loop has not resolved one yet.
func (k *KindState) RemoteAddr() *net.UDPAddr {
	return k.remoteAddr.Load()
}

func (k *KindState) LocalRTPPort() int {
	if k.Ports == nil {
		return 0
	}
	return k.Ports.RTPPort
}

func (k *KindState) LocalRTCPPort() int {
	if k.Ports == nil {
		return 0
	}
	return k.Ports.RTCPPort
}

// ObserveLocalSSRC records the host-side SSRC on first observation, mirroring
// janus_nosip_incoming_rtp capturing session->media.*_ssrc once.
func (k *KindState) ObserveLocalSSRC(ssrc uint32) {
	if !k.localSSRCSet {
		k.LocalSSRC = ssrc
		k.localSSRCSet = true
	}
}

func (k *KindState) close() {
	k.Ports.Close()
	k.Ports = nil
	k.SRTP.Cleanup()
	k.remoteAddr.Store(nil)
}

// Descriptor is the Go home of janus_nosip_media: one per session, holding
// both kinds plus the shared remote host and the cross-thread wake signal
// the Dispatcher uses to interrupt the Relay Loop's poll.
//
// The original plumbs this rendezvous through a pipe(2) fd pair read/written
// with poll(2); design note 9 explicitly allows substituting "a bounded
// channel or an atomic event" in a target with better primitives, which is
// what this does: Updated is the atomic event, wake is the bounded channel.
type Descriptor struct {
	LocalIP    net.IP
	RemoteHost string

	Audio KindState
	Video KindState

	Updated atomic.Bool
	wake    chan struct{}
}

func NewDescriptor(localIP net.IP) *Descriptor {
	return &Descriptor{
		LocalIP: localIP,
		wake:    make(chan struct{}, 1),
	}
}

func (d *Descriptor) Kind(k Kind) *KindState {
	if k == Video {
		return &d.Video
	}
	return &d.Audio
}

// MarkUpdated sets the updated flag and wakes the Relay Loop, equivalent to
// setting session->media.updated and writing a byte to pipefd[1].
func (d *Descriptor) MarkUpdated() {
	d.Updated.Store(true)
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// WakeChannel is read by the Relay Loop's select fan-in.
func (d *Descriptor) WakeChannel() <-chan struct{} {
	return d.wake
}

// ConsumeUpdated atomically reads and clears the updated flag.
func (d *Descriptor) ConsumeUpdated() bool {
	return d.Updated.Swap(false)
}

// Close releases both kinds' sockets and SRTP contexts.
func (d *Descriptor) Close() {
	d.Audio.close()
	d.Video.close()
}
