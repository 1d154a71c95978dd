// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package sdp

import (
	"strconv"
	"strings"

	"github.com/nosipbridge/nosip/media"
)

// kindOf maps an m= media type to the internal Kind, and reports whether it
// is one this bridge handles at all (audio/video only; everything else,
// notably m=application, is left to the caller to reject).
func kindOf(mediaType string) (media.Kind, bool) {
	switch mediaType {
	case "audio":
		return media.Audio, true
	case "video":
		return media.Video, true
	default:
		return 0, false
	}
}

// Process ingests a peer-supplied barebone SDP into desc, implementing spec
// 4.3.1. answer marks this SDP as the answer side of a negotiation; update
// marks it as a re-negotiation of an already-active session. It reports
// whether the stored remote endpoint changed and whether an m=application
// line was present; other non-audio/video media lines are skipped silently.
// m=application lines are skipped too, and the caller decides what to do
// about hasDataChannel.
func Process(sd *SessionDescription, desc *media.Descriptor, answer, update bool) (changed bool, hasDataChannel bool, err error) {
	finalIP := ""
	if sd.Connection != nil {
		finalIP = sd.Connection.IP.String()
	}

	for i := range sd.Media {
		ml := &sd.Media[i]

		if ml.MediaType == "application" {
			hasDataChannel = true
			continue
		}

		kind, ok := kindOf(ml.MediaType)
		if !ok {
			continue
		}
		ks := desc.Kind(kind)

		if ml.Proto == "RTP/SAVP" {
			ks.SRTP.RequireSRTP = true
		}

		if ml.Port == 0 {
			ks.Send = false
		} else {
			ks.Present = true
			if ks.RemoteRTPPort != ml.Port {
				if update {
					changed = true
				}
				ks.RemoteRTPPort = ml.Port
				ks.RemoteRTCPPort = ml.Port + 1
			}

			switch ml.Direction() {
			case "sendonly", "inactive":
				ks.Send = false
			default:
				ks.Send = true
			}

			if !ks.SRTP.HasRemote {
				for _, v := range ml.AttrValues("crypto") {
					_, suite, keyB64, parseErr := ParseCrypto(v)
					if parseErr != nil {
						continue
					}
					if setupErr := ks.SRTP.SetupRemote(suite, keyB64); setupErr != nil {
						continue
					}
					break
				}
			}

			if answer && len(ml.Formats) > 0 {
				nfmts, ferr := Formats(ml.Formats).ToNumeric()
				if ferr == nil && len(nfmts) > 0 {
					pt := uint8(nfmts[0])
					ks.PayloadType = pt
					ks.PayloadName = rtpmapName(ml, nfmts[0])
				}
			}
		}

		if ml.Connection != nil {
			finalIP = ml.Connection.IP.String()
		}
	}

	if finalIP != "" {
		if update && desc.RemoteHost != finalIP {
			changed = true
		}
		desc.RemoteHost = finalIP
	}

	return changed, hasDataChannel, nil
}

// rtpmapName looks for "a=rtpmap:<pt> <name>/<rate>" matching pt, falling
// back to the static payload table.
func rtpmapName(ml *MediaLine, pt int) string {
	for _, v := range ml.AttrValues("rtpmap") {
		fields := strings.Fields(v)
		if len(fields) != 2 {
			continue
		}
		if fields[0] != strconv.Itoa(pt) {
			continue
		}
		name, _, _ := strings.Cut(fields[1], "/")
		return name
	}
	return PayloadName(uint8(pt))
}
