// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

package recording

import (
	"os"
	"path/filepath"
	"testing"

	govwav "github.com/go-audio/wav"
	"github.com/nosipbridge/nosip/audio"
	"github.com/stretchr/testify/require"
	"github.com/zaf/g711"
)

func TestWavRecorderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rec.wav")

	rec, err := NewWavRecorder(path, audio.FORMAT_TYPE_ULAW)
	require.NoError(t, err)

	frame := make([]byte, 160)
	for i := range frame {
		frame[i] = g711.EncodeUlawFrame(int16(i))
	}

	for i := 0; i < 5; i++ {
		require.NoError(t, rec.SaveFrame(frame))
	}
	require.NoError(t, rec.Close())
	require.Equal(t, path, rec.Filename())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec := govwav.NewDecoder(f)
	require.True(t, dec.IsValidFile())
	dec.ReadInfo()
	require.Equal(t, uint16(1), dec.NumChans)
	require.Equal(t, uint32(8000), dec.SampleRate)
}

func TestRawRecorderFraming(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rec.raw")

	rec, err := NewRawRecorder(path)
	require.NoError(t, err)

	require.NoError(t, rec.SaveFrame([]byte("keyframe")))
	require.NoError(t, rec.SaveFrame([]byte("delta")))
	require.NoError(t, rec.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// 4-byte length prefix + "keyframe"(8) + 4-byte length prefix + "delta"(5)
	require.Equal(t, 4+8+4+5, len(data))
}

func TestBuildFilename(t *testing.T) {
	require.Equal(t, "call1-user-audio.wav", BuildFilename("call1", false, "audio"))
	require.Equal(t, "call1-peer-video.raw", BuildFilename("call1", true, "video"))

	auto := BuildFilename("", false, "audio")
	require.Contains(t, auto, "nosip-")
	require.Contains(t, auto, "-user-audio.wav")
}
