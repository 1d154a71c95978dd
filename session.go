// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

package nosip

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/nosipbridge/nosip/media"
	"github.com/nosipbridge/nosip/recording"
	"github.com/rs/zerolog"
)

// RecorderSlot indexes Session.recorders, the Go home of
// janus_nosip_session's four arc/arc_peer/vrc/vrc_peer fields.
type RecorderSlot int

const (
	RecorderUserAudio RecorderSlot = iota
	RecorderPeerAudio
	RecorderUserVideo
	RecorderPeerVideo
	recorderSlotCount
)

// Session is the per-dialog state the Dispatcher and Relay Loop coordinate
// over: media descriptor, last-accepted SDP, recorders, hangup latch and
// destruction timestamp (spec §3).
type Session struct {
	ID     string
	Handle string

	Media *media.Descriptor

	mu      sync.Mutex
	lastSDP []byte
	ready   bool
	cancel  context.CancelFunc

	recMu     sync.Mutex
	recorders [recorderSlotCount]recording.Recorder

	hangingUp atomic.Bool

	// destroyedAt is a Unix-nano timestamp; 0 means alive.
	destroyedAt atomic.Int64

	log zerolog.Logger
}

// NewSessionFor creates a session bound to handle, wrapping an
// already-constructed media descriptor.
func NewSessionFor(handle string, desc *media.Descriptor, logger zerolog.Logger) *Session {
	return &Session{
		ID:     uuid.NewString(),
		Handle: handle,
		Media:  desc,
		log:    logger.With().Str("handle", handle).Logger(),
	}
}

// SetLastSDP stores the last-accepted parsed SDP bytes.
func (s *Session) SetLastSDP(sdp []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSDP = sdp
}

func (s *Session) LastSDP() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSDP
}

// MarkReady records that the Relay Loop has been spawned (the session
// became "active" per spec §3's lifecycle) and stores its cancel func.
func (s *Session) MarkReady(cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
	s.cancel = cancel
}

func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// HangUp is an idempotent compare-and-set latch: only the first caller gets
// true and should actually perform teardown, mirroring
// janus_nosip_hangup_media_internal's g_atomic_int_add guard.
func (s *Session) HangUp() (first bool) {
	return s.hangingUp.CompareAndSwap(false, true)
}

func (s *Session) HangingUp() bool {
	return s.hangingUp.Load()
}

// StopRelay cancels the Relay Loop if one was started.
func (s *Session) StopRelay() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Destroyed reports whether destroy_session has been called.
func (s *Session) Destroyed() bool {
	return s.destroyedAt.Load() != 0
}

// MarkDestroyed sets destroyedAt to now (nanoseconds), once.
func (s *Session) MarkDestroyed(nowUnixNano int64) {
	s.destroyedAt.CompareAndSwap(0, nowUnixNano)
}

func (s *Session) DestroyedAt() int64 {
	return s.destroyedAt.Load()
}

// SetRecorder installs (or clears, with nil) the recorder at slot, closing
// a previous recorder in that slot first.
func (s *Session) SetRecorder(slot RecorderSlot, r recording.Recorder) {
	s.recMu.Lock()
	defer s.recMu.Unlock()
	if prev := s.recorders[slot]; prev != nil {
		prev.Close()
	}
	s.recorders[slot] = r
}

func (s *Session) Recorder(slot RecorderSlot) recording.Recorder {
	s.recMu.Lock()
	defer s.recMu.Unlock()
	return s.recorders[slot]
}

// CloseRecorders releases all four recorder slots, guarded by the session's
// recorder mutex (spec §4.6 "release before free").
func (s *Session) CloseRecorders() {
	s.recMu.Lock()
	defer s.recMu.Unlock()
	for i := range s.recorders {
		if s.recorders[i] != nil {
			s.recorders[i].Close()
			s.recorders[i] = nil
		}
	}
}

// Release frees everything owned by the session: sockets, SRTP contexts
// and recorders. Called only by the Reaper once the deferred-reclamation
// window has elapsed.
func (s *Session) Release() {
	s.Media.Close()
	s.CloseRecorders()
}

// Info is the query_session payload (spec §6.1, SUPPLEMENTED FEATURES).
type Info struct {
	Handle          string `json:"handle"`
	Ready           bool   `json:"ready"`
	HangingUp       bool   `json:"hangingup"`
	Destroyed       bool   `json:"destroyed"`
	AudioPresent    bool   `json:"audio"`
	VideoPresent    bool   `json:"video"`
	RequireSRTP     bool   `json:"require_srtp"`
	LocalAudioPort  int    `json:"local_audio_rtp_port,omitempty"`
	LocalVideoPort  int    `json:"local_video_rtp_port,omitempty"`
	RemoteAudioPort int    `json:"remote_audio_rtp_port,omitempty"`
	RemoteVideoPort int    `json:"remote_video_rtp_port,omitempty"`
}

func (s *Session) Info() Info {
	a := s.Media.Kind(media.Audio)
	v := s.Media.Kind(media.Video)
	return Info{
		Handle:          s.Handle,
		Ready:           s.Ready(),
		HangingUp:       s.HangingUp(),
		Destroyed:       s.Destroyed(),
		AudioPresent:    a.Present,
		VideoPresent:    v.Present,
		RequireSRTP:     a.SRTP.RequireSRTP || v.SRTP.RequireSRTP,
		LocalAudioPort:  a.LocalRTPPort(),
		LocalVideoPort:  v.LocalRTPPort(),
		RemoteAudioPort: a.RemoteRTPPort,
		RemoteVideoPort: v.RemoteRTPPort,
	}
}
