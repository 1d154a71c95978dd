// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

// Package sdp is a barebone session description parser/serializer: enough
// of RFC 4566 to process and manipulate the audio/video m= lines a legacy
// RTP peer exchanges, without any WebRTC-specific attributes (ICE
// candidates, DTLS fingerprints).
package sdp

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
)

var bufReader = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// ConnectionInfo is a parsed c= line.
type ConnectionInfo struct {
	NetworkType string
	AddressType string
	IP          net.IP
}

func (c *ConnectionInfo) String() string {
	return fmt.Sprintf("c=%s %s %s", c.NetworkType, c.AddressType, c.IP)
}

func parseConnection(value string) (ConnectionInfo, error) {
	fields := strings.Fields(value)
	if len(fields) < 3 {
		return ConnectionInfo{}, fmt.Errorf("sdp: malformed connection line %q", value)
	}
	ci := ConnectionInfo{NetworkType: fields[0], AddressType: fields[1]}
	addr := strings.Split(fields[2], "/")[0]
	ci.IP = net.ParseIP(addr)
	if ci.IP == nil {
		return ConnectionInfo{}, fmt.Errorf("sdp: invalid connection address %q", addr)
	}
	return ci, nil
}

// MediaLine is one m= section together with the attributes scoped to it.
type MediaLine struct {
	MediaType string // "audio", "video", "application", ...
	Port      int
	Proto     string
	Formats   []string

	Connection *ConnectionInfo

	// Attrs preserves encounter order and duplicates: a=rtpmap, a=crypto
	// etc. may legitimately repeat.
	Attrs []Attr
}

// Attr is one a=<name>[:<value>] line.
type Attr struct {
	Name  string
	Value string
}

func (m *MediaLine) AttrValues(name string) []string {
	var out []string
	for _, a := range m.Attrs {
		if a.Name == name {
			out = append(out, a.Value)
		}
	}
	return out
}

// Direction returns the explicit sendrecv/sendonly/recvonly/inactive
// attribute on this line, defaulting to sendrecv when absent.
func (m *MediaLine) Direction() string {
	for _, a := range m.Attrs {
		switch a.Name {
		case "sendrecv", "sendonly", "recvonly", "inactive":
			return a.Name
		}
	}
	return "sendrecv"
}

func (m *MediaLine) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "m=%s %d %s %s\r\n", m.MediaType, m.Port, m.Proto, strings.Join(m.Formats, " "))
	if m.Connection != nil {
		fmt.Fprintf(&b, "%s\r\n", m.Connection.String())
	}
	for _, a := range m.Attrs {
		if a.Value == "" {
			fmt.Fprintf(&b, "a=%s\r\n", a.Name)
		} else {
			fmt.Fprintf(&b, "a=%s:%s\r\n", a.Name, a.Value)
		}
	}
	return b.String()
}

// SessionDescription is a minimal RFC 4566 document: the session-level
// lines we care about plus an ordered list of media blocks.
type SessionDescription struct {
	Origin     string
	Name       string
	Connection *ConnectionInfo
	Media      []MediaLine
}

// MediaByType returns all media blocks of the given type, in document order.
// Unlike a single first-match lookup, this is required once both audio and
// video m= lines can appear in the same document.
func (sd *SessionDescription) MediaByType(mediaType string) []*MediaLine {
	var out []*MediaLine
	for i := range sd.Media {
		if sd.Media[i].MediaType == mediaType {
			out = append(out, &sd.Media[i])
		}
	}
	return out
}

func (sd *SessionDescription) String() string {
	var b strings.Builder
	b.WriteString("v=0\r\n")
	fmt.Fprintf(&b, "o=%s\r\n", sd.Origin)
	fmt.Fprintf(&b, "s=%s\r\n", sd.Name)
	if sd.Connection != nil {
		fmt.Fprintf(&b, "%s\r\n", sd.Connection.String())
	}
	b.WriteString("t=0 0\r\n")
	for i := range sd.Media {
		b.WriteString(sd.Media[i].String())
	}
	return b.String()
}

// Parse is a non-validating parser: media lines outside {audio,video} are
// kept (so callers can detect and reject m=application) but most session
// attributes beyond c=/o=/s= are ignored, matching the scope spec 4.3
// requires.
func Parse(data []byte) (*SessionDescription, error) {
	reader := bufReader.Get().(*bytes.Buffer)
	defer bufReader.Put(reader)
	reader.Reset()
	reader.Write(data)

	sd := &SessionDescription{}
	var cur *MediaLine

	for {
		line, err := nextLine(reader)
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		if len(line) < 2 || line[1] != '=' {
			continue
		}

		key, value := line[0], line[2:]
		switch key {
		case 'o':
			sd.Origin = value
		case 's':
			sd.Name = value
		case 'c':
			ci, err := parseConnection(value)
			if err != nil {
				return nil, err
			}
			if cur != nil {
				cur.Connection = &ci
			} else {
				sd.Connection = &ci
			}
		case 'm':
			ml, err := parseMediaLine(value)
			if err != nil {
				return nil, err
			}
			sd.Media = append(sd.Media, ml)
			cur = &sd.Media[len(sd.Media)-1]
		case 'a':
			if cur == nil {
				continue
			}
			name, val, _ := strings.Cut(value, ":")
			cur.Attrs = append(cur.Attrs, Attr{Name: name, Value: val})
		}
	}

	return sd, nil
}

func parseMediaLine(value string) (MediaLine, error) {
	fields := strings.Fields(value)
	if len(fields) < 3 {
		return MediaLine{}, fmt.Errorf("sdp: malformed media line %q", value)
	}
	ml := MediaLine{MediaType: fields[0], Proto: fields[2]}
	portField := strings.Split(fields[1], "/")[0]
	port, err := strconv.Atoi(portField)
	if err != nil {
		return MediaLine{}, fmt.Errorf("sdp: invalid port %q: %w", portField, err)
	}
	ml.Port = port
	if len(fields) > 3 {
		ml.Formats = fields[3:]
	}
	return ml, nil
}

func nextLine(reader *bytes.Buffer) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		return line, err
	}
	n := len(line)
	if n >= 2 && line[n-2] == '\r' {
		return line[:n-2], nil
	}
	return line[:n-1], nil
}
