// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

package nosip

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"github.com/nosipbridge/nosip/host"
	"github.com/nosipbridge/nosip/media"
	"github.com/nosipbridge/nosip/recording"
	"github.com/pion/rtp"
	"github.com/rs/zerolog"
)

const (
	audioTimestampStep = 960
	videoTimestampStep = 4500
	maxRelayPacket     = 1500
)

// relayPacket is one datagram handed from a socket reader goroutine to the
// Relay Loop's fan-in select, the channel-based stand-in for the poll(2)
// set design note 9 licenses replacing.
type relayPacket struct {
	kind   media.Kind
	isRTCP bool
	data   []byte
}

// Relay is the per-session Relay Loop (spec 4.5): one instance is started
// exactly once per session, the moment it becomes ready.
//
// Rather than connect(2)-ing each socket and polling SO_ERROR for
// ECONNREFUSED, this resolves the peer endpoint into KindState.remoteAddr
// and reads/writes with ReadFromUDP/WriteToUDP — the pattern
// vshapovalov-rtp-stream-cleaner's audio/video proxies use for the same
// bidirectional relay shape. Linux still surfaces an async ICMP port
// unreachable as ECONNREFUSED on the next read of an unconnected socket, so
// the RTCP-specific handling in spec 4.5 step 5 still applies.
type Relay struct {
	session *Session
	bridge  host.Bridge
	log     zerolog.Logger
}

func NewRelay(s *Session, bridge host.Bridge, logger zerolog.Logger) *Relay {
	return &Relay{
		session: s,
		bridge:  bridge,
		log:     logger.With().Str("handle", s.Handle).Str("component", "relay").Logger(),
	}
}

// Start resolves the remote endpoint, marks the session ready with a cancel
// func, and spawns the loop goroutine. This is the func Dispatcher.relayFactory
// invokes.
func (r *Relay) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.session.MarkReady(cancel)

	if err := r.reconnect(); err != nil {
		r.log.Warn().Err(err).Msg("resolving remote endpoint failed, relay will retry on next update")
	}

	go r.run(ctx)
}

// reconnect re-resolves media.RemoteHost and stores the resulting endpoint
// on each present kind, mirroring spec 4.5 step 2's connect/reconnect.
func (r *Relay) reconnect() error {
	remoteHost := r.session.Media.RemoteHost
	if remoteHost == "" {
		return fmt.Errorf("relay: no remote host set")
	}

	ipAddr, err := net.ResolveIPAddr("ip4", remoteHost)
	if err != nil {
		return fmt.Errorf("relay: resolving remote host %q: %w", remoteHost, err)
	}

	for _, kind := range []media.Kind{media.Audio, media.Video} {
		ks := r.session.Media.Kind(kind)
		if !ks.Present || ks.RemoteRTPPort == 0 {
			continue
		}
		ks.SetRemoteAddr(&net.UDPAddr{IP: ipAddr.IP, Port: ks.RemoteRTPPort})
	}
	return nil
}

func (r *Relay) run(ctx context.Context) {
	defer r.log.Debug().Msg("relay loop exiting")

	packets := make(chan relayPacket, 64)

	startReader := func(kind media.Kind, conn *net.UDPConn, isRTCP bool) {
		if conn == nil {
			return
		}
		go r.readLoop(ctx, kind, conn, isRTCP, packets)
	}

	a := r.session.Media.Kind(media.Audio)
	v := r.session.Media.Kind(media.Video)
	if a.Present && a.Ports != nil {
		startReader(media.Audio, a.Ports.RTP, false)
		startReader(media.Audio, a.Ports.RTCP, true)
	}
	if v.Present && v.Ports != nil {
		startReader(media.Video, v.Ports.RTP, false)
		startReader(media.Video, v.Ports.RTCP, true)
	}

	wake := r.session.Media.WakeChannel()

	for {
		select {
		case <-ctx.Done():
			return
		case <-wake:
			if r.session.Media.ConsumeUpdated() {
				if err := r.reconnect(); err != nil {
					r.log.Warn().Err(err).Msg("reconnect after update failed")
				}
			}
		case pkt := <-packets:
			r.handlePacket(pkt)
		}
	}
}

// readLoop is one of up to four per-session socket readers. It exits when
// its context is cancelled, its socket is closed by the Reaper, or a fatal
// transport error demands the peer-connection be torn down.
func (r *Relay) readLoop(ctx context.Context, kind media.Kind, conn *net.UDPConn, isRTCP bool, out chan<- relayPacket) {
	buf := make([]byte, maxRelayPacket)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, syscall.ECONNREFUSED) {
				if isRTCP {
					r.log.Debug().Str("kind", kind.String()).Msg("rtcp connection refused, closing socket")
					conn.Close()
					return
				}
				continue
			}
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			r.log.Warn().Err(err).Str("kind", kind.String()).Bool("rtcp", isRTCP).Msg("relay read error, asking host to close")
			if closeErr := r.bridge.ClosePC(r.session.Handle); closeErr != nil {
				r.log.Error().Err(closeErr).Msg("close_pc failed")
			}
			return
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		select {
		case out <- relayPacket{kind: kind, isRTCP: isRTCP, data: data}:
		case <-ctx.Done():
			return
		}
	}
}

func (r *Relay) handlePacket(pkt relayPacket) {
	if pkt.isRTCP {
		r.handleRTCP(pkt.kind, pkt.data)
		return
	}
	r.handleRTP(pkt.kind, pkt.data)
}

func (r *Relay) handleRTP(kind media.Kind, raw []byte) {
	ks := r.session.Media.Kind(kind)

	var hdr rtp.Header
	n, err := hdr.Unmarshal(raw)
	if err != nil {
		r.log.Debug().Err(err).Msg("dropping unparsable rtp packet")
		return
	}

	ks.PeerSSRC.Observe(hdr.SSRC)

	decrypted := raw
	if ks.SRTP.HasRemote {
		out, uerr := ks.SRTP.UnprotectRTP(make([]byte, 0, maxRelayPacket), raw, &hdr)
		if uerr != nil {
			if isReplayError(uerr) {
				return
			}
			r.log.Warn().Err(uerr).Str("kind", kind.String()).Msg("rtp unprotect failed")
			return
		}
		decrypted = out
	}

	step := uint32(audioTimestampStep)
	if kind == media.Video {
		step = videoTimestampStep
	}
	ks.Switching.Update(&hdr, step)

	if len(decrypted) < n {
		return
	}
	if _, err := hdr.MarshalTo(decrypted[:n]); err != nil {
		r.log.Warn().Err(err).Msg("re-marshalling rtp header failed")
		return
	}

	if rec := r.peerRecorder(kind); rec != nil {
		if err := rec.SaveFrame(decrypted[n:]); err != nil {
			r.log.Warn().Err(err).Msg("recording frame failed")
		}
	}

	if err := r.bridge.RelayRTP(r.session.Handle, toHostKind(kind), decrypted); err != nil {
		r.log.Warn().Err(err).Msg("relay_rtp failed")
	}
}

func (r *Relay) handleRTCP(kind media.Kind, raw []byte) {
	ks := r.session.Media.Kind(kind)

	decrypted := raw
	if ks.SRTP.HasRemote {
		out, err := ks.SRTP.UnprotectRTCP(make([]byte, 0, maxRelayPacket), raw, nil)
		if err != nil {
			if isReplayError(err) {
				return
			}
			r.log.Warn().Err(err).Str("kind", kind.String()).Msg("rtcp unprotect failed")
			return
		}
		decrypted = out
	}

	if err := r.bridge.RelayRTCP(r.session.Handle, toHostKind(kind), decrypted); err != nil {
		r.log.Warn().Err(err).Msg("relay_rtcp failed")
	}
}

func (r *Relay) peerRecorder(kind media.Kind) recording.Recorder {
	slot := RecorderPeerAudio
	if kind == media.Video {
		slot = RecorderPeerVideo
	}
	return r.session.Recorder(slot)
}

func toHostKind(kind media.Kind) host.Kind {
	if kind == media.Video {
		return host.Video
	}
	return host.Audio
}

// isReplayError tolerates SRTP replay-protection rejections, which spec 4.2
// requires dropping silently rather than logging as a hard failure.
func isReplayError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "replay")
}
