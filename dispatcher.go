// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

package nosip

import (
	"context"
	"fmt"

	"github.com/nosipbridge/nosip/config"
	"github.com/nosipbridge/nosip/host"
	"github.com/nosipbridge/nosip/media"
	"github.com/nosipbridge/nosip/media/sdp"
	"github.com/nosipbridge/nosip/recording"
	"github.com/nosipbridge/nosip/request"
	"github.com/pion/rtcp"
	"github.com/rs/zerolog"
)

// Envelope is one inbound control-plane request, matching the {handle,
// transaction, message, jsep} shape spec §4.4 describes. A zero-value
// Envelope with Shutdown set is the sentinel that drains the Dispatcher.
type Envelope struct {
	Handle      string
	Transaction string
	Message     map[string]any
	Jsep        map[string]any

	Shutdown bool
}

// Dispatcher is the single background worker consuming the control-plane
// FIFO and mutating sessions in response (spec §4.4).
type Dispatcher struct {
	registry *SessionRegistry
	bridge   host.Bridge
	cfg      config.Config
	queue    chan Envelope
	log      zerolog.Logger

	relayFactory func(s *Session)
}

// NewDispatcher wires a Dispatcher against registry and bridge. relay is
// called once per session the moment it becomes ready (answer processed),
// spawning the Relay Loop; it is a func rather than a concrete type so
// dispatcher_test.go can substitute a no-op.
func NewDispatcher(registry *SessionRegistry, bridge host.Bridge, cfg config.Config, relay func(s *Session), logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		registry:     registry,
		bridge:       bridge,
		cfg:          cfg,
		queue:        make(chan Envelope, 64),
		relayFactory: relay,
		log:          logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Submit enqueues an envelope for processing. The queue holds 64 envelopes;
// Submit returns at once while there is room and blocks while it is full,
// so handle_message normally returns "ok, wait for event" without delay.
func (d *Dispatcher) Submit(e Envelope) {
	d.queue <- e
}

// Run drains the queue until a Shutdown envelope arrives or ctx is
// cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-d.queue:
			if e.Shutdown {
				return
			}
			d.handle(e)
		}
	}
}

func (d *Dispatcher) handle(e Envelope) {
	s, ok := d.registry.Get(e.Handle)
	if !ok {
		d.log.Warn().Str("handle", e.Handle).Msg("request for unknown session")
		return
	}
	if s.Destroyed() {
		d.log.Warn().Str("handle", e.Handle).Msg("request for destroyed session, dropping")
		return
	}

	env, err := request.Decode(e.Message)
	if err != nil {
		d.reply(s, e.Transaction, nil, nil, NewError(ErrInvalidJSON, "invalid request body: %v", err))
		return
	}

	var (
		result map[string]any
		jsep   map[string]any
	)

	switch env.Request {
	case request.KindGenerate:
		result, jsep, err = d.generate(s, env, e.Jsep)
	case request.KindProcess:
		result, jsep, err = d.process(s, env)
	case request.KindHangup:
		result, err = d.hangup(s)
	case request.KindRecording:
		result, err = d.recording(s, env)
	case "":
		err = NewError(ErrMissingElement, "missing 'request' field")
	default:
		err = NewError(ErrInvalidRequest, "unsupported request %q", env.Request)
	}

	d.reply(s, e.Transaction, result, jsep, err)
}

func (d *Dispatcher) reply(s *Session, transaction string, result, jsep map[string]any, err error) {
	if err != nil {
		apiErr := AsError(err)
		event := map[string]any{
			"nosip":      "event",
			"error_code": int(apiErr.Code),
			"error":      apiErr.Reason,
		}
		d.log.Warn().Str("handle", s.Handle).Int("code", int(apiErr.Code)).Msg(apiErr.Reason)
		if pushErr := d.bridge.PushEvent(s.Handle, transaction, event, nil); pushErr != nil {
			d.log.Error().Err(pushErr).Str("handle", s.Handle).Msg("push_event failed")
		}
		return
	}

	event := map[string]any{
		"nosip":  "event",
		"result": result,
	}
	if pushErr := d.bridge.PushEvent(s.Handle, transaction, event, jsep); pushErr != nil {
		d.log.Error().Err(pushErr).Str("handle", s.Handle).Msg("push_event failed")
	}
}

// generate implements spec §4.4's "generate" branch: validate the outbound
// JSEP, apply the srtp policy, allocate ports and manipulate the SDP.
func (d *Dispatcher) generate(s *Session, env *request.Envelope, rawJsep map[string]any) (result, jsep map[string]any, err error) {
	j, err := request.DecodeJsep(rawJsep)
	if err != nil || j == nil || j.SDP == "" {
		return nil, nil, NewError(ErrMissingSDP, "generate requires a jsep with an sdp")
	}
	if j.Type != "offer" && j.Type != "answer" {
		return nil, nil, NewError(ErrInvalidElement, "jsep type must be offer or answer, got %q", j.Type)
	}

	parsed, err := sdp.Parse([]byte(j.SDP))
	if err != nil {
		return nil, nil, NewError(ErrInvalidSDP, "parsing jsep sdp: %v", err)
	}

	if len(parsed.MediaByType("application")) > 0 {
		return nil, nil, NewError(ErrMissingSDP, "The NoSIP plugin does not support DataChannels")
	}

	answer := j.Type == "answer"

	audioLines := parsed.MediaByType("audio")
	videoLines := parsed.MediaByType("video")
	hasAudio := len(audioLines) > 0 && audioLines[0].Port > 0
	hasVideo := len(videoLines) > 0 && videoLines[0].Port > 0

	if env.SRTP == request.SRTPMandatory {
		s.Media.Kind(media.Audio).SRTP.RequireSRTP = hasAudio
		s.Media.Kind(media.Video).SRTP.RequireSRTP = hasVideo
		if answer {
			for _, k := range []media.Kind{media.Audio, media.Video} {
				ks := s.Media.Kind(k)
				if ks.Present && ks.SRTP.RequireSRTP && !ks.SRTP.HasRemote {
					return nil, nil, NewError(ErrTooStrict, "mandatory SRTP required but remote offer lacked it")
				}
			}
		}
	}
	if env.SRTP == request.SRTPMandatory || env.SRTP == request.SRTPOptional {
		if hasAudio {
			s.Media.Kind(media.Audio).SRTP.HasLocal = true
		}
		if hasVideo {
			s.Media.Kind(media.Video).SRTP.HasLocal = true
		}
	}

	if hasAudio {
		if err := d.ensurePorts(s, media.Audio); err != nil {
			return nil, nil, err
		}
	}
	if hasVideo {
		if err := d.ensurePorts(s, media.Video); err != nil {
			return nil, nil, err
		}
	}

	if err := sdp.Manipulate(parsed, d.cfg.LocalIP, s.Media, answer); err != nil {
		return nil, nil, fmt.Errorf("manipulate: %w", err)
	}

	out := parsed.String()
	s.SetLastSDP([]byte(out))

	if answer {
		d.startRelay(s)
	}

	result = map[string]any{"event": "generated"}
	jsep = map[string]any{"type": j.Type, "sdp": out}
	return result, jsep, nil
}

// process implements spec §4.4's "process" branch: ingest a peer SDP.
func (d *Dispatcher) process(s *Session, env *request.Envelope) (result, jsep map[string]any, err error) {
	if env.Type != "offer" && env.Type != "answer" {
		return nil, nil, NewError(ErrMissingElement, "process requires type offer or answer")
	}
	if env.SDP == "" {
		return nil, nil, NewError(ErrMissingSDP, "process requires an sdp string")
	}

	answer := env.Type == "answer"
	update := s.Ready()

	if !answer {
		s.Media.Kind(media.Audio).SRTP.Cleanup()
		s.Media.Kind(media.Video).SRTP.Cleanup()
	}

	parsed, err := sdp.Parse([]byte(env.SDP))
	if err != nil {
		return nil, nil, NewError(ErrInvalidSDP, "parsing sdp: %v", err)
	}

	changed, hasDataChannel, err := sdp.Process(parsed, s.Media, answer, update)
	if err != nil {
		return nil, nil, NewError(ErrInvalidSDP, "processing sdp: %v", err)
	}
	if hasDataChannel {
		d.log.Warn().Str("handle", s.Handle).Msg("ignoring m=application in peer sdp")
	}

	a := s.Media.Kind(media.Audio)
	v := s.Media.Kind(media.Video)
	if !a.Present && !v.Present {
		return nil, nil, NewError(ErrInvalidSDP, "sdp carries neither audio nor video")
	}
	if s.Media.RemoteHost == "" {
		return nil, nil, NewError(ErrInvalidSDP, "sdp does not resolve a remote address")
	}

	if changed {
		s.Media.MarkUpdated()
	}

	s.SetLastSDP([]byte(env.SDP))

	if answer {
		d.startRelay(s)
	}

	result = map[string]any{"event": "processed"}
	if env.SRTP != "" {
		result["srtp"] = string(env.SRTP)
	}
	jsep = map[string]any{"type": env.Type, "sdp": env.SDP}
	return result, jsep, nil
}

func (d *Dispatcher) hangup(s *Session) (map[string]any, error) {
	s.HangUp()
	s.StopRelay()
	if err := d.bridge.ClosePC(s.Handle); err != nil {
		d.log.Warn().Err(err).Str("handle", s.Handle).Msg("close_pc failed")
	}
	return map[string]any{"event": "hangingup"}, nil
}

func (d *Dispatcher) recording(s *Session, env *request.Envelope) (map[string]any, error) {
	if env.Action != request.ActionStart && env.Action != request.ActionStop {
		return nil, NewError(ErrMissingElement, "recording requires action start or stop")
	}
	if !env.Audio && !env.Video && !env.PeerAudio && !env.PeerVideo {
		return nil, NewError(ErrMissingElement, "recording requires at least one of audio/video/peer_audio/peer_video")
	}

	type target struct {
		slot RecorderSlot
		kind media.Kind
		peer bool
		want bool
	}
	targets := []target{
		{RecorderUserAudio, media.Audio, false, env.Audio},
		{RecorderUserVideo, media.Video, false, env.Video},
		{RecorderPeerAudio, media.Audio, true, env.PeerAudio},
		{RecorderPeerVideo, media.Video, true, env.PeerVideo},
	}

	if env.Action == request.ActionStop {
		for _, t := range targets {
			if t.want {
				s.SetRecorder(t.slot, nil)
			}
		}
		return map[string]any{"event": "recordingupdated"}, nil
	}

	for _, t := range targets {
		if !t.want {
			continue
		}
		ks := s.Media.Kind(t.kind)
		if ks.PayloadName == "" {
			return nil, NewError(ErrRecordingError, "cannot start recording before a payload type has been negotiated")
		}

		filename := recording.BuildFilename(env.Filename, t.peer, t.kind.String())

		var rec recording.Recorder
		var err error
		if t.kind == media.Video {
			rec, err = recording.NewRawRecorder(filename)
		} else {
			codec, codecErr := codecForName(ks.PayloadName)
			if codecErr != nil {
				return nil, NewError(ErrRecordingError, "%v", codecErr)
			}
			rec, err = recording.NewWavRecorder(filename, codec)
		}
		if err != nil {
			return nil, NewError(ErrRecordingError, "creating recorder: %v", err)
		}
		s.SetRecorder(t.slot, rec)

		if t.kind == media.Video && !t.peer {
			d.requestKeyframe(s)
		}
	}

	return map[string]any{"event": "recordingupdated"}, nil
}

// requestKeyframe sends a PLI on the freshly started user-video recording so
// it begins on a keyframe, matching the original's "Recording video, sending
// a PLI to kickstart it" (janus_nosip.c, the record_video branch right after
// session->vrc is created). The original sends this unconditionally via
// gateway->relay_rtcp regardless of whether event notifications are on, so
// this does too.
func (d *Dispatcher) requestKeyframe(s *Session) {
	ks := s.Media.Kind(media.Video)
	pli := &rtcp.PictureLossIndication{SenderSSRC: ks.LocalSSRC, MediaSSRC: ks.PeerSSRC.Value()}
	payload, err := pli.Marshal()
	if err != nil {
		d.log.Warn().Err(err).Str("handle", s.Handle).Msg("marshalling pli")
		return
	}
	if err := d.bridge.RelayRTCP(s.Handle, host.Video, payload); err != nil {
		d.log.Warn().Err(err).Str("handle", s.Handle).Msg("relaying pli")
	}
}

func (d *Dispatcher) ensurePorts(s *Session, kind media.Kind) error {
	ks := s.Media.Kind(kind)
	if ks.Ports != nil {
		ks.Ports.Close()
	}
	pair, err := media.AllocatePortPair(d.cfg.LocalIP, d.cfg.PortMin, d.cfg.PortMax)
	if err != nil {
		return NewError(ErrIOError, "allocating %s ports: %v", kind, err)
	}
	ks.Ports = pair
	ks.Present = true
	return nil
}

// startRelay spawns the Relay Loop exactly once per session (spec §4.4:
// "If this is an answer, start the Relay Loop"). relayFactory is expected
// to call s.MarkReady before returning so concurrent generate/process calls
// never spawn a second loop.
func (d *Dispatcher) startRelay(s *Session) {
	if s.Ready() {
		return
	}
	if d.relayFactory != nil {
		d.relayFactory(s)
	}
}

// codecForName maps a negotiated payload name to the G.711 codec constant
// the recording package expects; anything else is rejected since this
// bridge's recorder only decodes G.711.
func codecForName(name string) (int, error) {
	switch name {
	case "PCMU":
		return 0, nil
	case "PCMA":
		return 8, nil
	default:
		return 0, fmt.Errorf("recording: unsupported codec %q for recording", name)
	}
}
