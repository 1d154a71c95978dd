// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

package nosip

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAsErrorUnwrapsTypedError(t *testing.T) {
	base := NewError(ErrInvalidSDP, "bad sdp")
	wrapped := fmt.Errorf("dispatcher: %w", base)

	got := AsError(wrapped)
	require.Equal(t, ErrInvalidSDP, got.Code)
}

func TestAsErrorFallsBackToUnknown(t *testing.T) {
	got := AsError(errors.New("opaque failure"))
	require.Equal(t, ErrUnknown, got.Code)
	require.Equal(t, "opaque failure", got.Reason)
}

func TestAsErrorNil(t *testing.T) {
	require.Nil(t, AsError(nil))
}
