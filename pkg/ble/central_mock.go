//go:build ble_mock
// +build ble_mock

// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

package ble

// NewCentral returns a loopback central in the ble_mock build, echoing
// every command.
func NewCentral() Central {
	return &LoopbackCentral{}
}
