// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

// Command nosipbridged is a minimal host-process wiring example: it loads
// configuration, starts the plugin's Dispatcher and Reaper, creates one
// session and waits for an interrupt. A real host gateway replaces
// loggingBridge with its own WebRTC termination and SDP signalling.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/nosipbridge/nosip"
	"github.com/nosipbridge/nosip/host"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	lev, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || lev == zerolog.NoLevel {
		lev = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMicro
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.StampMicro,
	}).With().Timestamp().Logger().Level(lev)

	configDir := "."
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	bridge := newLoggingBridge(log.Logger)
	plugin, err := nosip.Init(configDir, bridge, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("plugin init failed")
	}
	defer plugin.Destroy()

	handle := nosip.NewHandle()
	plugin.CreateSession(handle)
	defer plugin.DestroySession(handle)

	log.Info().Str("handle", handle).Msg("session created, waiting for control messages")
	<-ctx.Done()
}

// loggingBridge is a host.Bridge stand-in that logs every callback instead
// of driving a real WebRTC peer connection; it exists so this binary
// demonstrates the wiring without depending on any particular gateway.
type loggingBridge struct {
	log zerolog.Logger

	mu     sync.Mutex
	events bool
}

func newLoggingBridge(logger zerolog.Logger) *loggingBridge {
	return &loggingBridge{log: logger.With().Str("component", "host-stub").Logger(), events: true}
}

func (b *loggingBridge) PushEvent(handle, transaction string, event, jsep map[string]any) error {
	b.log.Info().Str("handle", handle).Str("transaction", transaction).Interface("event", event).Interface("jsep", jsep).Msg("push_event")
	return nil
}

func (b *loggingBridge) RelayRTP(handle string, kind host.Kind, payload []byte) error {
	b.log.Debug().Str("handle", handle).Int("kind", int(kind)).Int("bytes", len(payload)).Msg("relay_rtp")
	return nil
}

func (b *loggingBridge) RelayRTCP(handle string, kind host.Kind, payload []byte) error {
	b.log.Debug().Str("handle", handle).Int("kind", int(kind)).Int("bytes", len(payload)).Msg("relay_rtcp")
	return nil
}

func (b *loggingBridge) ClosePC(handle string) error {
	b.log.Info().Str("handle", handle).Msg("close_pc")
	return nil
}

func (b *loggingBridge) NotifyEvent(handle string, info map[string]any) {
	b.log.Info().Str("handle", handle).Interface("info", info).Msg("notify_event")
}

func (b *loggingBridge) EventsEnabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.events
}
