// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package sdp

import (
	"net"
	"testing"

	"github.com/nosipbridge/nosip/media"
	"github.com/stretchr/testify/require"
)

func TestManipulateRewritesPortsAndProto(t *testing.T) {
	sdpText := "v=0\r\nc=IN IP4 0.0.0.0\r\nt=0 0\r\nm=audio 9 RTP/AVP 111\r\nm=video 9 RTP/AVP 96\r\n"
	sd, err := Parse([]byte(sdpText))
	require.NoError(t, err)

	localIP := net.ParseIP("198.51.100.1")
	desc := media.NewDescriptor(localIP)
	desc.Audio.Ports = &media.PortPair{RTPPort: 40000, RTCPPort: 40001}
	desc.Video.Ports = &media.PortPair{RTPPort: 40010, RTCPPort: 40011}
	desc.Audio.SRTP.RequireSRTP = true

	err = Manipulate(sd, localIP, desc, false)
	require.NoError(t, err)

	require.Equal(t, "RTP/SAVP", sd.Media[0].Proto)
	require.Equal(t, 40000, sd.Media[0].Port)
	require.Equal(t, localIP.String(), sd.Media[0].Connection.IP.String())

	require.Equal(t, "RTP/AVP", sd.Media[1].Proto)
	require.Equal(t, 40010, sd.Media[1].Port)
}

func TestManipulateEmitsExactlyOneCryptoLinePerKind(t *testing.T) {
	sdpText := "v=0\r\nc=IN IP4 0.0.0.0\r\nt=0 0\r\nm=audio 9 RTP/AVP 111\r\nm=video 9 RTP/AVP 96\r\n"
	sd, err := Parse([]byte(sdpText))
	require.NoError(t, err)

	localIP := net.ParseIP("198.51.100.1")
	desc := media.NewDescriptor(localIP)
	desc.Audio.Ports = &media.PortPair{RTPPort: 40000, RTCPPort: 40001}
	desc.Video.Ports = &media.PortPair{RTPPort: 40010, RTCPPort: 40011}
	desc.Audio.SRTP.HasLocal = true
	desc.Audio.SRTP.RequireSRTP = true
	desc.Video.SRTP.HasLocal = true
	desc.Video.SRTP.RequireSRTP = true

	err = Manipulate(sd, localIP, desc, true)
	require.NoError(t, err)

	require.Len(t, sd.Media[0].AttrValues("crypto"), 1)
	require.Len(t, sd.Media[1].AttrValues("crypto"), 1)

	_, suite, _, err := ParseCrypto(sd.Media[0].AttrValues("crypto")[0])
	require.NoError(t, err)
	require.Equal(t, 80, suite)
}

func TestManipulatePreservesMediaOrderAndFormats(t *testing.T) {
	sdpText := "v=0\r\nc=IN IP4 0.0.0.0\r\nt=0 0\r\nm=video 9 RTP/AVP 96\r\nm=audio 9 RTP/AVP 111 0\r\n"
	sd, err := Parse([]byte(sdpText))
	require.NoError(t, err)

	localIP := net.ParseIP("198.51.100.1")
	desc := media.NewDescriptor(localIP)
	desc.Video.Ports = &media.PortPair{RTPPort: 40010}
	desc.Audio.Ports = &media.PortPair{RTPPort: 40000}

	err = Manipulate(sd, localIP, desc, false)
	require.NoError(t, err)

	require.Equal(t, "video", sd.Media[0].MediaType)
	require.Equal(t, "audio", sd.Media[1].MediaType)
	require.Equal(t, []string{"111", "0"}, sd.Media[1].Formats)
}
