// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package sdp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleOffer = "v=0\r\n" +
	"o=- 123 123 IN IP4 203.0.113.5\r\n" +
	"s=-\r\n" +
	"c=IN IP4 203.0.113.5\r\n" +
	"t=0 0\r\n" +
	"m=audio 40000 RTP/AVP 111\r\n" +
	"a=rtpmap:111 opus/48000/2\r\n" +
	"a=sendrecv\r\n" +
	"m=video 40002 RTP/AVP 96\r\n" +
	"a=rtpmap:96 VP8/90000\r\n"

func TestParseExtractsMediaAndConnection(t *testing.T) {
	sd, err := Parse([]byte(sampleOffer))
	require.NoError(t, err)
	require.Len(t, sd.Media, 2)

	require.Equal(t, "audio", sd.Media[0].MediaType)
	require.Equal(t, 40000, sd.Media[0].Port)
	require.Equal(t, "RTP/AVP", sd.Media[0].Proto)
	require.Equal(t, []string{"111"}, sd.Media[0].Formats)
	require.Equal(t, "sendrecv", sd.Media[0].Direction())

	require.Equal(t, "video", sd.Media[1].MediaType)
	require.Equal(t, 40002, sd.Media[1].Port)

	require.NotNil(t, sd.Connection)
	require.Equal(t, "203.0.113.5", sd.Connection.IP.String())
}

func TestMediaByType(t *testing.T) {
	sd, err := Parse([]byte(sampleOffer + "m=application 0 DTLS/SCTP 5000\r\n"))
	require.NoError(t, err)

	require.Len(t, sd.MediaByType("audio"), 1)
	require.Len(t, sd.MediaByType("video"), 1)
	require.Len(t, sd.MediaByType("application"), 1)
}

func TestDirectionDefaultsToSendrecv(t *testing.T) {
	ml := MediaLine{MediaType: "audio"}
	require.Equal(t, "sendrecv", ml.Direction())
}

func TestDirectionSendonly(t *testing.T) {
	ml := MediaLine{Attrs: []Attr{{Name: "sendonly"}}}
	require.Equal(t, "sendonly", ml.Direction())
}

func TestSerializePreservesOrderAndFormats(t *testing.T) {
	sd, err := Parse([]byte(sampleOffer))
	require.NoError(t, err)

	out := sd.String()
	reparsed, err := Parse([]byte(out))
	require.NoError(t, err)

	require.Len(t, reparsed.Media, 2)
	require.Equal(t, "audio", reparsed.Media[0].MediaType)
	require.Equal(t, []string{"111"}, reparsed.Media[0].Formats)
	require.Equal(t, "video", reparsed.Media[1].MediaType)
	require.Equal(t, []string{"96"}, reparsed.Media[1].Formats)
}

func TestParseRejectsMalformedMediaLine(t *testing.T) {
	_, err := Parse([]byte("v=0\r\nm=audio notaport\r\n"))
	require.Error(t, err)
}

func TestParseRejectsMalformedConnection(t *testing.T) {
	_, err := Parse([]byte("v=0\r\nc=IN IP4 not-an-ip\r\n"))
	require.Error(t, err)
}
