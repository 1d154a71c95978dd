// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

// Package config loads the bridge's process-wide configuration, grounded on
// the janus.plugin.nosip.cfg format: a "general" section with local_ip,
// rtp_port_range and events.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// Config is the process-wide configuration, initialised once at startup.
type Config struct {
	// LocalIP is the bind address for all allocated RTP/RTCP sockets.
	LocalIP net.IP

	// PortMin and PortMax bound the inclusive RTP port search range.
	PortMin int
	PortMax int

	// NotifyEvents holds the configured "events" flag. No component in
	// this module reads it or calls host.Bridge.NotifyEvent.
	NotifyEvents bool
}

const defaultSection = "general"

// Load reads <dir>/janus.plugin.nosip.cfg.
func Load(dir string) (*Config, error) {
	path := dir + "/janus.plugin.nosip.cfg"
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return FromFile(f)
}

func FromFile(f *ini.File) (*Config, error) {
	sec := f.Section(defaultSection)

	localIPStr := sec.Key("local_ip").String()
	ip := net.IP(net.IPv4zero)
	if localIPStr != "" {
		verified, err := verifyLocalInterface(localIPStr)
		if err != nil {
			return nil, err
		}
		ip = verified
	}

	min, max, err := parsePortRange(sec.Key("rtp_port_range").String())
	if err != nil {
		return nil, err
	}

	events := true
	if sec.HasKey("events") {
		events, err = sec.Key("events").Bool()
		if err != nil {
			return nil, fmt.Errorf("config: invalid events value: %w", err)
		}
	}

	return &Config{
		LocalIP:      ip,
		PortMin:      min,
		PortMax:      max,
		NotifyEvents: events,
	}, nil
}

// verifyLocalInterface checks the configured address against the machine's
// network interfaces, mirroring janus_network_lookup_interface.
func verifyLocalInterface(addr string) (net.IP, error) {
	ip := net.ParseIP(addr)
	if ip == nil {
		return nil, fmt.Errorf("config: local_ip %q is not a valid IP", addr)
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, fmt.Errorf("config: enumerating interfaces: %w", err)
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if ipNet.IP.Equal(ip) {
			return ip, nil
		}
	}
	return nil, fmt.Errorf("config: local_ip %q is not bound to any local interface", addr)
}

// parsePortRange parses "min-max", normalising a reversed range and treating
// max==0 as 65535, matching janus_nosip_init.
func parsePortRange(raw string) (min, max int, err error) {
	if raw == "" {
		return 0, 65535, nil
	}
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("config: rtp_port_range %q must be \"min-max\"", raw)
	}
	min, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("config: rtp_port_range min: %w", err)
	}
	max, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("config: rtp_port_range max: %w", err)
	}
	if max == 0 {
		max = 65535
	}
	if min > max {
		min, max = max, min
	}
	return min, max, nil
}
