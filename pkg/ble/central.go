// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

package ble

import "context"

// Advertisement is one discovered peripheral, deduplicated by Identifier.
type Advertisement struct {
	Identifier string
	Name       string
	RSSI       int
}

// Central abstracts the platform Bluetooth layer: scanning and connecting.
// The default implementation is backed by tinygo.org/x/bluetooth; tests
// substitute their own.
type Central interface {
	// Scan reports peripherals advertising any supported device service
	// until the context is cancelled or StopScan is called.
	Scan(ctx context.Context, found func(Advertisement)) error
	StopScan() error
	// Connect establishes a link to a previously discovered peripheral,
	// performs service and characteristic discovery, and resolves the
	// matching device descriptor.
	Connect(ctx context.Context, identifier string) (Conn, error)
}

// Conn is one live link to a device with resolved endpoints. Frames written
// through WriteFrame prefer the write-without-acknowledgment endpoint when
// the device model exposes one.
type Conn interface {
	Model() DeviceModel
	WriteFrame(frame []byte) error
	// Frames delivers notification values from the device. The channel is
	// closed when the link drops.
	Frames() <-chan []byte
	Close() error
}
