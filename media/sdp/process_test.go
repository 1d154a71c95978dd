// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package sdp

import (
	"encoding/base64"
	"testing"

	"github.com/nosipbridge/nosip/media"
	"github.com/stretchr/testify/require"
)

func validCrypto(t *testing.T) string {
	t.Helper()
	key := make([]byte, 30)
	return FormatCrypto(80, base64.StdEncoding.EncodeToString(key))
}

func TestProcessSetsRemoteEndpointsAndFlags(t *testing.T) {
	sdpText := "v=0\r\n" +
		"o=- 1 1 IN IP4 203.0.113.5\r\n" +
		"s=-\r\n" +
		"c=IN IP4 203.0.113.5\r\n" +
		"t=0 0\r\n" +
		"m=audio 40000 RTP/SAVP 111\r\n" +
		"a=crypto:" + validCrypto(t) + "\r\n" +
		"m=video 40002 RTP/SAVP 96\r\n"

	sd, err := Parse([]byte(sdpText))
	require.NoError(t, err)

	desc := media.NewDescriptor(nil)
	changed, hasDC, err := Process(sd, desc, true, false)
	require.NoError(t, err)
	require.False(t, hasDC)
	require.False(t, changed) // not an update, so changed is never set

	require.Equal(t, "203.0.113.5", desc.RemoteHost)

	a := desc.Kind(media.Audio)
	require.True(t, a.Present)
	require.Equal(t, 40000, a.RemoteRTPPort)
	require.Equal(t, 40001, a.RemoteRTCPPort)
	require.True(t, a.Send)
	require.True(t, a.SRTP.RequireSRTP)
	require.True(t, a.SRTP.HasRemote)
	require.Equal(t, uint8(111), a.PayloadType)

	v := desc.Kind(media.Video)
	require.True(t, v.Present)
	require.Equal(t, 40002, v.RemoteRTPPort)
}

func TestProcessZeroPortDisablesSend(t *testing.T) {
	sdpText := "v=0\r\nc=IN IP4 203.0.113.5\r\nt=0 0\r\nm=audio 0 RTP/AVP 0\r\n"
	sd, err := Parse([]byte(sdpText))
	require.NoError(t, err)

	desc := media.NewDescriptor(nil)
	desc.Audio.Present = true
	desc.Audio.Send = true

	_, _, err = Process(sd, desc, false, false)
	require.NoError(t, err)
	require.False(t, desc.Audio.Send)
}

func TestProcessSendonlyClearsSendFlag(t *testing.T) {
	sdpText := "v=0\r\nc=IN IP4 203.0.113.5\r\nt=0 0\r\nm=audio 40000 RTP/AVP 0\r\na=sendonly\r\n"
	sd, err := Parse([]byte(sdpText))
	require.NoError(t, err)

	desc := media.NewDescriptor(nil)
	_, _, err = Process(sd, desc, false, false)
	require.NoError(t, err)
	require.False(t, desc.Audio.Send)
}

func TestProcessUpdateDetectsRemoteIPChange(t *testing.T) {
	desc := media.NewDescriptor(nil)
	desc.RemoteHost = "203.0.113.5"
	desc.Audio.Present = true
	desc.Audio.RemoteRTPPort = 40000

	sdpText := "v=0\r\nc=IN IP4 203.0.113.9\r\nt=0 0\r\nm=audio 40000 RTP/AVP 0\r\n"
	sd, err := Parse([]byte(sdpText))
	require.NoError(t, err)

	changed, _, err := Process(sd, desc, false, true)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, "203.0.113.9", desc.RemoteHost)
}

func TestProcessUpdateWithoutChangeReportsFalse(t *testing.T) {
	desc := media.NewDescriptor(nil)
	desc.RemoteHost = "203.0.113.5"
	desc.Audio.Present = true
	desc.Audio.RemoteRTPPort = 40000

	sdpText := "v=0\r\nc=IN IP4 203.0.113.5\r\nt=0 0\r\nm=audio 40000 RTP/AVP 0\r\n"
	sd, err := Parse([]byte(sdpText))
	require.NoError(t, err)

	changed, _, err := Process(sd, desc, false, true)
	require.NoError(t, err)
	require.False(t, changed)
}

func TestProcessIgnoresSecondCryptoLine(t *testing.T) {
	key1 := FormatCrypto(80, base64.StdEncoding.EncodeToString(make([]byte, 30)))
	key2 := FormatCrypto(32, base64.StdEncoding.EncodeToString(make([]byte, 30)))

	sdpText := "v=0\r\nc=IN IP4 203.0.113.5\r\nt=0 0\r\n" +
		"m=audio 40000 RTP/SAVP 0\r\n" +
		"a=crypto:" + key1 + "\r\n" +
		"a=crypto:" + key2 + "\r\n"

	sd, err := Parse([]byte(sdpText))
	require.NoError(t, err)

	desc := media.NewDescriptor(nil)
	_, _, err = Process(sd, desc, false, false)
	require.NoError(t, err)
	require.Equal(t, 80, desc.Audio.SRTP.SuiteIn)
}

func TestProcessReportsDataChannel(t *testing.T) {
	sdpText := "v=0\r\nc=IN IP4 203.0.113.5\r\nt=0 0\r\nm=application 5000 DTLS/SCTP webrtc-datachannel\r\n"
	sd, err := Parse([]byte(sdpText))
	require.NoError(t, err)

	desc := media.NewDescriptor(nil)
	_, hasDC, err := Process(sd, desc, false, false)
	require.NoError(t, err)
	require.True(t, hasDC)
}
