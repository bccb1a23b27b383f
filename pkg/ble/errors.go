// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

package ble

import "errors"

var (
	// ErrNotConnected is returned when an operation needs a live session
	// and there is none.
	ErrNotConnected = errors.New("ble: not connected")
	// ErrConnectionFailed wraps a platform-reported connect failure.
	ErrConnectionFailed = errors.New("ble: connection failed")
	// ErrDisconnected fails any exchange outstanding when the link drops.
	ErrDisconnected = errors.New("ble: disconnected")
	// ErrServiceNotFound is returned when service discovery completes
	// without any supported device service.
	ErrServiceNotFound = errors.New("ble: no supported service found")
	// ErrCharacteristicNotFound is returned when a descriptor's endpoint
	// is missing from the discovered characteristics.
	ErrCharacteristicNotFound = errors.New("ble: characteristic not found")
	// ErrExchangeTimeout is reserved for outer layers imposing wall-clock
	// limits; the transport itself never raises it.
	ErrExchangeTimeout = errors.New("ble: exchange timed out")
	// ErrBluetoothNotAvailable is returned when the platform adapter
	// cannot be enabled.
	ErrBluetoothNotAvailable = errors.New("ble: bluetooth not available")
	// ErrExchangeInFlight is returned when an exchange is started while a
	// prior one is still outstanding.
	ErrExchangeInFlight = errors.New("ble: exchange already in flight")
)
