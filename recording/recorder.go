// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

// Package recording implements the bridge's recorder sink. Up to four
// recorders (local/peer × audio/video) can be attached to a session; spec
// §1 treats the recorder as an opaque sink whose internals it doesn't
// specify, so this package is free to pick a concrete format: WAV for
// audio (grounded on diago's audio.WavWriter), and a simple length-prefixed
// frame log for video, since no .mjr-equivalent container exists anywhere
// in the retrieved reference material.
package recording

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/nosipbridge/nosip/audio"
)

// Recorder is the interface the relay loop and dispatcher write frames
// through; Session holds up to four of these under its recorder mutex.
type Recorder interface {
	SaveFrame(payload []byte) error
	Close() error
	Filename() string
}

// WavRecorder decodes G.711 RTP payloads to 16-bit LPCM and streams them to
// a WAV container.
type WavRecorder struct {
	filename string
	f        *os.File
	w        *audio.WavWriter
	codec    int
}

// NewWavRecorder creates filename and prepares a mono 8kHz 16-bit WAV
// writer. codec is audio.FORMAT_TYPE_ULAW or audio.FORMAT_TYPE_ALAW,
// matching the payload type negotiated for the recorded kind.
func NewWavRecorder(filename string, codec int) (*WavRecorder, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("recording: creating %s: %w", filename, err)
	}
	w := audio.NewWavWriter(f)
	w.SampleRate = 8000
	w.NumChans = 1
	w.BitDepth = 16

	return &WavRecorder{filename: filename, f: f, w: w, codec: codec}, nil
}

func (r *WavRecorder) SaveFrame(payload []byte) error {
	pcm, err := audio.DecodeFrame(r.codec, payload)
	if err != nil {
		return fmt.Errorf("recording: decoding frame: %w", err)
	}
	_, err = r.w.Write(pcm)
	return err
}

func (r *WavRecorder) Close() error {
	if err := r.w.Close(); err != nil {
		r.f.Close()
		return err
	}
	return r.f.Close()
}

func (r *WavRecorder) Filename() string {
	return r.filename
}

// RawRecorder writes raw RTP payloads (e.g. VP8/H264) as
// length-prefixed frames. It does not attempt to reproduce Janus's
// proprietary .mjr container, which nothing in the reference pack
// implements.
type RawRecorder struct {
	filename string
	f        *os.File
	mu       sync.Mutex
}

func NewRawRecorder(filename string) (*RawRecorder, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("recording: creating %s: %w", filename, err)
	}
	return &RawRecorder{filename: filename, f: f}, nil
}

func (r *RawRecorder) SaveFrame(payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := r.f.Write(hdr[:]); err != nil {
		return err
	}
	_, err := r.f.Write(payload)
	return err
}

func (r *RawRecorder) Close() error {
	return r.f.Close()
}

func (r *RawRecorder) Filename() string {
	return r.filename
}

// BuildFilename mirrors janus_nosip_handler's recording-start filename
// convention: "<base>-{user|peer}-{audio|video}" when an explicit base was
// given, or an auto-generated name carrying the process id and current
// time otherwise. Either form ends in ".wav" for audio or ".raw" for video.
func BuildFilename(base string, peer bool, kind string) string {
	who := "user"
	if peer {
		who = "peer"
	}
	if base != "" {
		return fmt.Sprintf("%s-%s-%s.%s", base, who, kind, extensionFor(kind))
	}
	return fmt.Sprintf("nosip-%d-%d-%s-%s.%s", os.Getpid(), time.Now().UnixNano(), who, kind, extensionFor(kind))
}

func extensionFor(kind string) string {
	if kind == "video" {
		return "raw"
	}
	return "wav"
}
