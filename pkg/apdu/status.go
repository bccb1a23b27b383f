// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

package apdu

import (
	"errors"
	"fmt"
	"strings"
)

// Causes the device reports through known status words.
var (
	ErrAppNotInstalled = errors.New("apdu: the NEAR app is not installed on the device")
	ErrOpenDeclined    = errors.New("apdu: opening the app was declined on the device")
	ErrDeviceLocked    = errors.New("apdu: the device is locked")
	ErrSignDeclined    = errors.New("apdu: signing was declined on the device")
	ErrDeclined        = errors.New("apdu: the request was declined on the device")
)

// Error is a device-reported failure carrying the raw status word next to
// its classified cause.
type Error struct {
	SW    uint16
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v (status %04x)", e.Cause, e.SW)
	}
	return fmt.Sprintf("apdu: device reported status %04x", e.SW)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// statusCauses maps status-word text to causes. Matching is by substring,
// inherited from the original status handling; classifyStatus isolates it
// so exact status-word comparison can replace it without touching callers.
var statusCauses = []struct {
	substring string
	cause     error
}{
	{"6984", ErrAppNotInstalled},
	{"5501", ErrOpenDeclined},
	{"5515", ErrDeviceLocked},
	{"6985", ErrSignDeclined},
	{"6986", ErrDeclined},
}

func classifyStatus(sw uint16) error {
	text := fmt.Sprintf("%04x", sw)
	for _, entry := range statusCauses {
		if strings.Contains(text, entry.substring) {
			return &Error{SW: sw, Cause: entry.cause}
		}
	}
	return &Error{SW: sw}
}
