// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

// Package request decodes the control-plane JSON message bodies (spec 6.2)
// into typed request structs, the way SilvaMendes-go-rtpengine decodes
// bencode-derived maps into typed RequestRtp/ResponseRtp structs before
// acting on them.
package request

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

type Kind string

const (
	KindGenerate  Kind = "generate"
	KindProcess   Kind = "process"
	KindHangup    Kind = "hangup"
	KindRecording Kind = "recording"
)

type SRTPMode string

const (
	SRTPOptional  SRTPMode = "sdes_optional"
	SRTPMandatory SRTPMode = "sdes_mandatory"
)

// Envelope is the raw control message, mirroring §6.2's object shape before
// per-kind validation.
type Envelope struct {
	Request Kind `mapstructure:"request"`

	Info string   `mapstructure:"info"`
	SRTP SRTPMode `mapstructure:"srtp"`

	Type string `mapstructure:"type"`
	SDP  string `mapstructure:"sdp"`

	Action Kind `mapstructure:"action"`

	Audio      bool `mapstructure:"audio"`
	Video      bool `mapstructure:"video"`
	PeerAudio  bool `mapstructure:"peer_audio"`
	PeerVideo  bool `mapstructure:"peer_video"`
	Filename   string `mapstructure:"filename"`
}

// RecordingAction values for Envelope.Action when Request == KindRecording.
const (
	ActionStart Kind = "start"
	ActionStop  Kind = "stop"
)

// Decode turns an untyped control message body (as delivered by the host,
// e.g. unmarshalled JSON) into an Envelope.
func Decode(raw map[string]any) (*Envelope, error) {
	var env Envelope
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &env,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("request: building decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("request: decoding message: %w", err)
	}
	return &env, nil
}

// Jsep is the {type, sdp} object exchanged alongside a control message.
type Jsep struct {
	Type string `mapstructure:"type"`
	SDP  string `mapstructure:"sdp"`
}

func DecodeJsep(raw map[string]any) (*Jsep, error) {
	if raw == nil {
		return nil, nil
	}
	var j Jsep
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &j,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("request: building jsep decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("request: decoding jsep: %w", err)
	}
	return &j, nil
}
