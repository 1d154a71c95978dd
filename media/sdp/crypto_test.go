// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package sdp

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCryptoRoundTrip(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(make([]byte, 30))
	line := FormatCrypto(80, key)

	tag, suite, got, err := ParseCrypto(line)
	require.NoError(t, err)
	require.Equal(t, 1, tag)
	require.Equal(t, 80, suite)
	require.Equal(t, key, got)
}

func TestParseCryptoRejectsUnsupportedSuite(t *testing.T) {
	_, _, _, err := ParseCrypto("1 AES_CM_128_HMAC_SHA1_16 inline:abc")
	require.Error(t, err)
}

func TestParseCryptoRejectsMalformed(t *testing.T) {
	_, _, _, err := ParseCrypto("not a crypto line")
	require.Error(t, err)
}
