//go:build !ble_mock
// +build !ble_mock

// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

package ble

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"tinygo.org/x/bluetooth"

	"github.com/frol/near-connect-go/internal/logging"
)

// BluetoothCentral is the Central backed by the platform Bluetooth stack
// through tinygo.org/x/bluetooth.
type BluetoothCentral struct {
	adapter *bluetooth.Adapter

	mu         sync.Mutex
	enabled    bool
	discovered map[string]bluetooth.ScanResult
}

// NewCentral returns the platform-backed central.
func NewCentral() Central {
	return &BluetoothCentral{
		adapter:    bluetooth.DefaultAdapter,
		discovered: make(map[string]bluetooth.ScanResult),
	}
}

func (c *BluetoothCentral) enable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled {
		return nil
	}
	if err := c.adapter.Enable(); err != nil {
		return fmt.Errorf("%w: %v", ErrBluetoothNotAvailable, err)
	}
	c.enabled = true
	return nil
}

func (c *BluetoothCentral) Scan(ctx context.Context, found func(Advertisement)) error {
	if err := c.enable(); err != nil {
		return err
	}

	services := make([]bluetooth.UUID, 0, len(DeviceModels))
	for _, s := range ServiceUUIDs() {
		uuid, err := bluetooth.ParseUUID(s)
		if err != nil {
			return fmt.Errorf("ble: parsing service uuid %q: %w", s, err)
		}
		services = append(services, uuid)
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			c.adapter.StopScan()
		case <-stop:
		}
	}()

	return c.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		matched := false
		for _, svc := range services {
			if result.HasServiceUUID(svc) {
				matched = true
				break
			}
		}
		if !matched {
			return
		}
		id := result.Address.String()
		c.mu.Lock()
		c.discovered[id] = result
		c.mu.Unlock()
		found(Advertisement{
			Identifier: id,
			Name:       result.LocalName(),
			RSSI:       int(result.RSSI),
		})
	})
}

func (c *BluetoothCentral) StopScan() error {
	c.mu.Lock()
	enabled := c.enabled
	c.mu.Unlock()
	if !enabled {
		return nil
	}
	return c.adapter.StopScan()
}

func (c *BluetoothCentral) Connect(ctx context.Context, identifier string) (Conn, error) {
	c.mu.Lock()
	result, ok := c.discovered[identifier]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown peripheral %q", ErrConnectionFailed, identifier)
	}

	device, err := c.adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	conn, err := newBluetoothConn(device)
	if err != nil {
		device.Disconnect()
		return nil, err
	}
	return conn, nil
}

type bluetoothConn struct {
	device   bluetooth.Device
	model    DeviceModel
	write    bluetooth.DeviceCharacteristic
	writeCmd bluetooth.DeviceCharacteristic
	hasCmd   bool

	queue *frameQueue
}

// newBluetoothConn discovers services and characteristics on a freshly
// connected device. The first discovered service matching a supported
// descriptor fixes the characteristic UUIDs for the session.
func newBluetoothConn(device bluetooth.Device) (*bluetoothConn, error) {
	services, err := device.DiscoverServices(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceNotFound, err)
	}

	var model DeviceModel
	matched := -1
	for i, svc := range services {
		if m, ok := LookupService(svc.UUID().String()); ok {
			model, matched = m, i
			break
		}
	}
	if matched < 0 {
		return nil, ErrServiceNotFound
	}
	logging.L().Debugf("matched %s", model.Name)

	chars, err := services[matched].DiscoverCharacteristics(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCharacteristicNotFound, err)
	}

	conn := &bluetoothConn{
		device: device,
		model:  model,
		queue:  newFrameQueue(64),
	}
	var notify bluetooth.DeviceCharacteristic
	var hasNotify, hasWrite bool
	for _, ch := range chars {
		switch uuid := ch.UUID().String(); {
		case strings.EqualFold(uuid, model.NotifyCharacteristic):
			notify, hasNotify = ch, true
		case strings.EqualFold(uuid, model.WriteCharacteristic):
			conn.write, hasWrite = ch, true
		case model.WriteCmdCharacteristic != "" && strings.EqualFold(uuid, model.WriteCmdCharacteristic):
			conn.writeCmd, conn.hasCmd = ch, true
		}
	}
	if !hasNotify || !hasWrite {
		return nil, ErrCharacteristicNotFound
	}

	err = notify.EnableNotifications(conn.queue.push)
	if err != nil {
		return nil, fmt.Errorf("%w: enabling notifications: %v", ErrCharacteristicNotFound, err)
	}
	return conn, nil
}

func (c *bluetoothConn) Model() DeviceModel { return c.model }

func (c *bluetoothConn) WriteFrame(frame []byte) error {
	// Both endpoints take unacknowledged writes; the command endpoint is
	// preferred on models that expose one.
	endpoint := c.write
	if c.hasCmd {
		endpoint = c.writeCmd
	}
	_, err := endpoint.WriteWithoutResponse(frame)
	return err
}

func (c *bluetoothConn) Frames() <-chan []byte { return c.queue.frames() }

func (c *bluetoothConn) Close() error {
	c.queue.close()
	return c.device.Disconnect()
}

