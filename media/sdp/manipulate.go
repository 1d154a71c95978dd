// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package sdp

import (
	"net"

	"github.com/nosipbridge/nosip/media"
)

// Manipulate rewrites sd's audio/video m= lines in place to point at the
// locally allocated endpoints and, where SRTP was requested locally, to
// carry a freshly generated crypto line. It implements spec 4.3.2.
//
// Unlike the original janus_nosip_sdp_manipulate, the outbound suite for a
// kind is always taken from that kind's own SRTPState — the source's bug of
// hard-coding the audio suite field into the video branch does not exist
// here because there is exactly one SetupLocalDefault call site and it
// always targets the KindState it was invoked through.
func Manipulate(sd *SessionDescription, localIP net.IP, desc *media.Descriptor, answer bool) error {
	for i := range sd.Media {
		ml := &sd.Media[i]

		kind, ok := kindOf(ml.MediaType)
		if !ok {
			continue
		}
		ks := desc.Kind(kind)

		if ks.SRTP.RequireSRTP {
			ml.Proto = "RTP/SAVP"
		} else {
			ml.Proto = "RTP/AVP"
		}

		ml.Port = ks.LocalRTPPort()
		ml.Connection = &ConnectionInfo{NetworkType: "IN", AddressType: "IP4", IP: localIP}

		if ks.SRTP.HasLocal {
			cryptoB64, err := ks.SRTP.SetupLocalDefault()
			if err != nil {
				return err
			}
			ml.Attrs = append(ml.Attrs, Attr{Name: "crypto", Value: FormatCrypto(media.SuiteFromProfile(media.DefaultLocalProfile), cryptoB64)})
		}

		if answer && len(ml.Formats) > 0 {
			nfmts, err := Formats(ml.Formats).ToNumeric()
			if err == nil && len(nfmts) > 0 {
				ks.PayloadType = uint8(nfmts[0])
			}
		}
	}

	if sd.Connection != nil {
		sd.Connection = &ConnectionInfo{NetworkType: "IN", AddressType: "IP4", IP: localIP}
	}

	return nil
}
