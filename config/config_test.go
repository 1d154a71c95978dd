// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

package config

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"
)

func loadFromString(t *testing.T, body string) (*Config, error) {
	t.Helper()
	f, err := ini.Load([]byte(body))
	require.NoError(t, err)
	return FromFile(f)
}

func TestFromFileDefaults(t *testing.T) {
	cfg, err := loadFromString(t, "[general]\n")
	require.NoError(t, err)
	require.True(t, cfg.LocalIP.Equal(net.IPv4zero))
	require.Equal(t, 0, cfg.PortMin)
	require.Equal(t, 65535, cfg.PortMax)
	require.True(t, cfg.NotifyEvents)
}

func TestFromFilePortRange(t *testing.T) {
	cfg, err := loadFromString(t, "[general]\nrtp_port_range = 20000-40000\n")
	require.NoError(t, err)
	require.Equal(t, 20000, cfg.PortMin)
	require.Equal(t, 40000, cfg.PortMax)
}

func TestFromFilePortRangeReversedIsNormalised(t *testing.T) {
	cfg, err := loadFromString(t, "[general]\nrtp_port_range = 40000-20000\n")
	require.NoError(t, err)
	require.Equal(t, 20000, cfg.PortMin)
	require.Equal(t, 40000, cfg.PortMax)
}

func TestFromFilePortRangeZeroMaxMeansMaxPort(t *testing.T) {
	cfg, err := loadFromString(t, "[general]\nrtp_port_range = 20000-0\n")
	require.NoError(t, err)
	require.Equal(t, 20000, cfg.PortMin)
	require.Equal(t, 65535, cfg.PortMax)
}

func TestFromFileRejectsMalformedPortRange(t *testing.T) {
	_, err := loadFromString(t, "[general]\nrtp_port_range = not-a-range-at-all-here\n")
	require.Error(t, err)
}

func TestFromFileEventsDisabled(t *testing.T) {
	cfg, err := loadFromString(t, "[general]\nevents = false\n")
	require.NoError(t, err)
	require.False(t, cfg.NotifyEvents)
}

func TestFromFileRejectsUnboundLocalIP(t *testing.T) {
	_, err := loadFromString(t, "[general]\nlocal_ip = 203.0.113.77\n")
	require.Error(t, err)
}

func TestFromFileRejectsInvalidLocalIP(t *testing.T) {
	_, err := loadFromString(t, "[general]\nlocal_ip = not-an-ip\n")
	require.Error(t, err)
}

func TestFromFileAcceptsLoopback(t *testing.T) {
	cfg, err := loadFromString(t, "[general]\nlocal_ip = 127.0.0.1\n")
	require.NoError(t, err)
	require.True(t, cfg.LocalIP.Equal(net.ParseIP("127.0.0.1")))
}
