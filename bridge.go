// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

// Package nosip implements the signalling-agnostic WebRTC-to-legacy-RTP
// media bridge: Plugin is the façade the host gateway drives (spec 6.1),
// wiring together the Session Registry, Control-plane Dispatcher and Reaper.
package nosip

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/nosipbridge/nosip/config"
	"github.com/nosipbridge/nosip/host"
	"github.com/nosipbridge/nosip/media"
	"github.com/pion/rtp"
	"github.com/rs/zerolog"
)

const (
	// VersionNumber and VersionString are the plugin's own version
	// identity, reported through the version accessors spec 6.1 requires.
	VersionNumber = 1
	VersionString = "0.1.0"
	PackageName   = "nosip-bridge"
	PluginName    = "NoSIP-style media bridge"
	PluginAuthor  = "nosip bridge contributors"
)

// Plugin is the host-facing entry point: every operation in spec 6.1's
// "operations exposed to the host" column is a method here.
type Plugin struct {
	cfg      config.Config
	registry *SessionRegistry
	bridge   host.Bridge
	disp     *Dispatcher
	reaper   *Reaper
	cancel   context.CancelFunc
	log      zerolog.Logger
}

// Init loads configuration from configDir and starts the Dispatcher and
// Reaper background workers, mirroring janus_nosip_init(callbacks,
// config_path). bridge is the host's callback surface (push_event,
// relay_rtp/rtcp, close_pc, notify_event, events_is_enabled).
func Init(configDir string, bridge host.Bridge, logger zerolog.Logger) (*Plugin, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, fmt.Errorf("nosip: loading configuration: %w", err)
	}

	p := &Plugin{
		cfg:      *cfg,
		registry: NewSessionRegistry(),
		bridge:   bridge,
		log:      logger.With().Str("component", "nosip").Logger(),
	}

	p.disp = NewDispatcher(p.registry, bridge, p.cfg, p.startRelay, p.log)
	p.reaper = NewReaper(p.registry, p.log)

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.disp.Run(ctx)
	go p.reaper.Run(ctx)

	return p, nil
}

func (p *Plugin) startRelay(s *Session) {
	NewRelay(s, p.bridge, p.log).Start()
}

// Destroy stops the Dispatcher and Reaper, mirroring janus_nosip_destroy.
func (p *Plugin) Destroy() {
	if p.cancel != nil {
		p.cancel()
	}
}

// CreateSession registers a fresh session under handle.
func (p *Plugin) CreateSession(handle string) *Session {
	desc := media.NewDescriptor(p.cfg.LocalIP)
	s := NewSessionFor(handle, desc, p.log)
	p.registry.Add(s)
	return s
}

// DestroySession performs the internal hangup, marks destroyed_at and moves
// the session to the deferred-reclamation list (spec 4.6).
func (p *Plugin) DestroySession(handle string) error {
	s, ok := p.registry.Get(handle)
	if !ok {
		return NewError(ErrInvalidRequest, "no such session %q", handle)
	}
	s.HangUp()
	s.StopRelay()
	p.registry.Remove(handle, time.Now().UnixNano())
	return nil
}

// QuerySession reports session state for diagnostics (spec 6.1, SUPPLEMENTED
// FEATURES — the original exposes this via the admin API).
func (p *Plugin) QuerySession(handle string) (Info, error) {
	s, ok := p.registry.Get(handle)
	if !ok {
		return Info{}, NewError(ErrInvalidRequest, "no such session %q", handle)
	}
	return s.Info(), nil
}

// HandleMessage enqueues the request for the Dispatcher and returns
// immediately; the host's handle_message contract is "ok, wait for the
// asynchronous event" (spec 6.1).
func (p *Plugin) HandleMessage(handle, transaction string, message, jsep map[string]any) error {
	if _, ok := p.registry.Get(handle); !ok {
		return NewError(ErrInvalidRequest, "no such session %q", handle)
	}
	p.disp.Submit(Envelope{Handle: handle, Transaction: transaction, Message: message, Jsep: jsep})
	return nil
}

// SetupMedia is a no-op hook point: this bridge has no ICE/DTLS setup of its
// own to react to, unlike the WebRTC leg the host terminates.
func (p *Plugin) SetupMedia(handle string) error {
	if _, ok := p.registry.Get(handle); !ok {
		return NewError(ErrInvalidRequest, "no such session %q", handle)
	}
	return nil
}

// HangupMedia runs the idempotent hangup latch directly, for hosts that
// signal media teardown outside the "hangup" control message (spec 6.1).
func (p *Plugin) HangupMedia(handle string) error {
	s, ok := p.registry.Get(handle)
	if !ok {
		return NewError(ErrInvalidRequest, "no such session %q", handle)
	}
	if s.HangUp() {
		s.StopRelay()
	}
	return nil
}

// IncomingRTP is the host-to-peer path (spec 4.5 "Host -> peer path"): it
// honours the *_send gate, captures the host's SSRC on first observation,
// SRTP-protects if negotiated, and writes the datagram to the peer.
func (p *Plugin) IncomingRTP(handle string, kind host.Kind, payload []byte) error {
	s, ok := p.registry.Get(handle)
	if !ok {
		return NewError(ErrInvalidRequest, "no such session %q", handle)
	}

	mk := fromHostKind(kind)
	ks := s.Media.Kind(mk)
	if !ks.Send || ks.Ports == nil {
		return nil
	}

	var hdr rtp.Header
	if _, err := hdr.Unmarshal(payload); err == nil {
		ks.ObserveLocalSSRC(hdr.SSRC)
	}

	addr := ks.RemoteAddr()
	if addr == nil {
		return nil
	}

	out := payload
	if ks.SRTP.HasLocal {
		protected, err := ks.SRTP.ProtectRTP(make([]byte, 0, maxRelayPacket), payload, &hdr)
		if err != nil {
			return fmt.Errorf("nosip: protecting outbound rtp: %w", err)
		}
		out = protected
	}

	_, err := ks.Ports.RTP.WriteToUDP(out, addr)
	return err
}

// IncomingRTCP is the host-to-peer RTCP path: it rewrites the outer/inner
// SSRCs via the FixSSRC helper before optionally SRTCP-protecting and
// sending (spec 4.5).
func (p *Plugin) IncomingRTCP(handle string, kind host.Kind, payload []byte) error {
	s, ok := p.registry.Get(handle)
	if !ok {
		return NewError(ErrInvalidRequest, "no such session %q", handle)
	}

	mk := fromHostKind(kind)
	ks := s.Media.Kind(mk)
	if ks.Ports == nil {
		return nil
	}

	out, err := media.RewriteOutboundRTCP(payload, ks.LocalSSRC, ks.PeerSSRC.Value())
	if err != nil {
		return fmt.Errorf("nosip: rewriting outbound rtcp: %w", err)
	}

	if ks.SRTP.HasLocal {
		protected, err := ks.SRTP.ProtectRTCP(make([]byte, 0, maxRelayPacket), out, nil)
		if err != nil {
			return fmt.Errorf("nosip: protecting outbound rtcp: %w", err)
		}
		out = protected
	}

	addr := ks.RemoteAddr()
	if addr == nil {
		return nil
	}
	rtcpAddr := &net.UDPAddr{IP: addr.IP, Port: ks.RemoteRTCPPort}
	_, err = ks.Ports.RTCP.WriteToUDP(out, rtcpAddr)
	return err
}

func fromHostKind(k host.Kind) media.Kind {
	if k == host.Video {
		return media.Video
	}
	return media.Audio
}

// NewHandle generates a host session handle; hosts that already have their
// own identifier scheme may ignore this and supply their own to
// CreateSession.
func NewHandle() string {
	return uuid.NewString()
}
