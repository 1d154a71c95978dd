// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

// Package host declares the contract the outer WebRTC gateway must satisfy
// (spec 6.1, "operations consumed from the host"). It is intentionally a
// thin interface: the gateway itself, its SDP/recorder/logging libraries,
// and its signalling stack are all out of scope here.
package host

// Kind mirrors media.Kind without importing the media package, keeping this
// contract dependency-free for implementers.
type Kind int

const (
	Audio Kind = iota
	Video
)

// Bridge is the six operations janus_nosip.c calls back into the Janus core
// for: pushing events, relaying decoded media back onto the WebRTC leg,
// tearing down the peer connection, and event notification gating.
type Bridge interface {
	// PushEvent delivers a response or error envelope (plus optional local
	// JSEP) for the given handle/transaction back to the signalling layer
	// the host is driving.
	PushEvent(handle string, transaction string, event map[string]any, jsep map[string]any) error

	// RelayRTP forwards a decrypted, rewritten RTP packet from the legacy
	// peer onto the WebRTC leg.
	RelayRTP(handle string, kind Kind, payload []byte) error

	// RelayRTCP forwards RTCP from the legacy peer onto the WebRTC leg.
	RelayRTCP(handle string, kind Kind, payload []byte) error

	// ClosePC asks the host to tear down the WebRTC peer connection for
	// handle, e.g. after a fatal relay-loop transport error or an explicit
	// hangup request.
	ClosePC(handle string) error

	// NotifyEvent reports an internal lifecycle event to the host's event
	// bus, only called when EventsEnabled is true.
	NotifyEvent(handle string, info map[string]any)

	// EventsEnabled gates NotifyEvent, mirroring janus_events_is_enabled().
	EventsEnabled() bool
}
