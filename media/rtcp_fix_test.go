// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package media

import (
	"testing"

	"github.com/pion/rtcp"
	"github.com/stretchr/testify/require"
)

func TestFixSSRCSenderReport(t *testing.T) {
	sr := &rtcp.SenderReport{
		SSRC:    111,
		Reports: []rtcp.ReceptionReport{{SSRC: 222}},
	}
	FixSSRC(sr, 1000, 2000)
	require.Equal(t, uint32(1000), sr.SSRC)
	require.Equal(t, uint32(2000), sr.Reports[0].SSRC)
}

func TestFixSSRCPictureLossIndication(t *testing.T) {
	pli := &rtcp.PictureLossIndication{SenderSSRC: 111, MediaSSRC: 222}
	FixSSRC(pli, 1000, 2000)
	require.Equal(t, uint32(1000), pli.SenderSSRC)
	require.Equal(t, uint32(2000), pli.MediaSSRC)
}

func TestFixSSRCGoodbye(t *testing.T) {
	bye := &rtcp.Goodbye{Sources: []uint32{111, 222}}
	FixSSRC(bye, 1000, 2000)
	require.Equal(t, []uint32{1000, 1000}, bye.Sources)
}
