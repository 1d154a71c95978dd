// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package media

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocatePortPairEvenAndConsecutive(t *testing.T) {
	pair, err := AllocatePortPair(net.ParseIP("127.0.0.1"), 30000, 31000)
	require.NoError(t, err)
	defer pair.Close()

	require.Equal(t, 0, pair.RTPPort%2)
	require.Equal(t, pair.RTPPort+1, pair.RTCPPort)
	require.NotNil(t, pair.RTP)
	require.NotNil(t, pair.RTCP)
}

func TestAllocatePortPairRejectsInvalidRange(t *testing.T) {
	_, err := AllocatePortPair(net.ParseIP("127.0.0.1"), 100, 10)
	require.Error(t, err)
}

func TestAllocatePortPairSinglePortRange(t *testing.T) {
	// A range where min==max forces the allocator to retry the same
	// candidate every attempt; it must still succeed once.
	pair, err := AllocatePortPair(net.ParseIP("127.0.0.1"), 30100, 30100)
	require.NoError(t, err)
	defer pair.Close()
	require.Equal(t, 30100, pair.RTPPort)
	require.Equal(t, 30101, pair.RTCPPort)
}
