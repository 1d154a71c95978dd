// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package sdp

// Mode is the a= direction attribute name.
type Mode string

const (
	// https://datatracker.ietf.org/doc/html/rfc4566#section-6
	ModeRecvonly Mode = "recvonly"
	ModeSendrecv Mode = "sendrecv"
	ModeSendonly Mode = "sendonly"
	ModeInactive Mode = "inactive"
)
