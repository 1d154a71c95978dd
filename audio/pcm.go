// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package audio

import (
	"fmt"
	"io"

	"github.com/zaf/g711"
)

const (
	FORMAT_TYPE_ULAW = 0
	FORMAT_TYPE_ALAW = 8
)

// PCMDecoder streams G.711-encoded audio from Source, handing back 16-bit
// LPCM. The recording sink does not use it; it decodes each frame with
// DecodeFrame instead.
type PCMDecoder struct {
	Source  io.Reader
	Decoder func(encoded []byte) (lpcm []byte)

	buf      []byte
	lastLPCM []byte
	unread   int
}

func NewPCMDecoder(codec int, reader io.Reader) (*PCMDecoder, error) {
	var decoder func(lpcm []byte) []byte
	switch codec {
	case FORMAT_TYPE_ULAW:
		decoder = g711.DecodeUlaw
	case FORMAT_TYPE_ALAW:
		decoder = g711.DecodeAlaw
	default:
		return nil, fmt.Errorf("audio: unsupported codec %d", codec)
	}

	return &PCMDecoder{
		Source:  reader,
		Decoder: decoder,
		buf:     make([]byte, 160),
	}, nil
}

func (d *PCMDecoder) Read(b []byte) (n int, err error) {
	if d.unread > 0 {
		ind := len(d.lastLPCM) - d.unread
		n := copy(b, d.lastLPCM[ind:])
		d.unread -= n
		return n, nil
	}

	n, err = d.Source.Read(d.buf)
	if err != nil {
		return n, err
	}

	lpcm := d.Decoder(d.buf[:n])

	copied := copy(b, lpcm)
	d.unread = len(lpcm) - copied
	d.lastLPCM = lpcm
	return copied, nil
}

// DecodeFrame decodes one already-read G.711 frame directly to LPCM,
// avoiding the io.Reader indirection when the caller already has a
// discrete RTP payload in hand (the common case in the relay loop).
func DecodeFrame(codec int, encoded []byte) ([]byte, error) {
	switch codec {
	case FORMAT_TYPE_ULAW:
		return g711.DecodeUlaw(encoded), nil
	case FORMAT_TYPE_ALAW:
		return g711.DecodeAlaw(encoded), nil
	default:
		return nil, fmt.Errorf("audio: unsupported codec %d", codec)
	}
}
