// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

package ble

import (
	"context"
	"sync"
)

// Loopback is an in-memory Conn: it reassembles written command frames,
// hands each complete command to its handler, and frames the reply back
// through the notification channel. With a nil handler it echoes the
// command. It stands in for a peripheral in tests and in the ble_mock
// build.
type Loopback struct {
	// Unit is the framing unit the fake peripheral replies with.
	// DefaultUnit when zero.
	Unit int
	// MTU, when non-zero, is the transfer-unit size reported in reply to
	// the negotiation probe.
	MTU byte
	// Mute discards complete commands without replying, simulating a
	// device that never responds.
	Mute bool

	handler func(command []byte) []byte

	mu     sync.Mutex
	r      reassembler
	frames chan []byte
	closed bool
}

// NewLoopback returns a loopback connection answering commands with
// handler, or echoing them when handler is nil.
func NewLoopback(handler func(command []byte) []byte) *Loopback {
	if handler == nil {
		handler = func(command []byte) []byte { return command }
	}
	return &Loopback{
		handler: handler,
		frames:  make(chan []byte, 256),
	}
}

// Model reports the first supported descriptor; the loopback does not
// care which endpoints it is spoken to through.
func (l *Loopback) Model() DeviceModel {
	return DeviceModels[0]
}

func (l *Loopback) WriteFrame(frame []byte) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrDisconnected
	}

	if len(frame) > 0 && frame[0] == tagMTU {
		mtu := l.MTU
		if mtu == 0 {
			mtu = DefaultUnit
		}
		l.frames <- []byte{tagMTU, 0x00, 0x00, 0x00, 0x00, mtu}
		l.mu.Unlock()
		return nil
	}

	done, err := l.r.push(frame)
	if err != nil || !done || l.Mute {
		if done {
			l.r = reassembler{}
		}
		l.mu.Unlock()
		return err
	}
	command := append([]byte(nil), l.r.bytes()...)
	l.r = reassembler{}
	handler := l.handler
	unit := l.Unit
	if unit == 0 {
		unit = DefaultUnit
	}
	l.mu.Unlock()

	// The handler may block; it runs without the lock so Close can
	// proceed.
	reply, err := FrameCommand(handler(command), unit)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrDisconnected
	}
	for _, f := range reply {
		l.frames <- f
	}
	return nil
}

func (l *Loopback) Frames() <-chan []byte {
	return l.frames
}

func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.frames)
	}
	return nil
}

// LoopbackCentral is a Central that always discovers one loopback
// peripheral. It backs the ble_mock build and transport tests.
type LoopbackCentral struct {
	// Handler answers commands on connections handed out by Connect.
	Handler func(command []byte) []byte
	// MTU is passed through to the loopback connection.
	MTU byte

	mu   sync.Mutex
	conn *Loopback
}

const loopbackIdentifier = "loopback"

func (c *LoopbackCentral) Scan(ctx context.Context, found func(Advertisement)) error {
	found(Advertisement{Identifier: loopbackIdentifier, Name: "Loopback Nano X", RSSI: -40})
	<-ctx.Done()
	return nil
}

func (c *LoopbackCentral) StopScan() error { return nil }

func (c *LoopbackCentral) Connect(ctx context.Context, identifier string) (Conn, error) {
	if identifier != loopbackIdentifier {
		return nil, ErrConnectionFailed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = NewLoopback(c.Handler)
	c.conn.MTU = c.MTU
	return c.conn, nil
}
