// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

// Package ble moves opaque command and response buffers to and from a
// hardware wallet over Bluetooth Low Energy, independent of their meaning.
// It owns device discovery, the connection session, transfer-unit
// negotiation, and the symmetric frame/reassemble protocol layered on the
// platform Bluetooth primitives behind the Central interface.
package ble

import (
	"context"
	"sync"

	"github.com/frol/near-connect-go/internal/logging"
)

// Transport is the link layer of the wallet connection. At most one session
// is live at a time and at most one exchange may be outstanding; callers
// serialize Connect, Exchange and Disconnect.
type Transport struct {
	central Central

	mu         sync.Mutex
	conn       Conn
	unit       int
	busy       bool
	discovered map[string]Advertisement
}

// NewTransport returns a transport scanning and connecting through the
// given central.
func NewTransport(central Central) *Transport {
	return &Transport{
		central:    central,
		discovered: make(map[string]Advertisement),
	}
}

// Scan discovers peripherals advertising any supported device service until
// the context is cancelled. Discovered peripherals accumulate, deduplicated
// by identifier, and remain available through Devices after scanning stops.
func (t *Transport) Scan(ctx context.Context) error {
	logging.L().Debug("scanning for wallet services")
	return t.central.Scan(ctx, func(adv Advertisement) {
		t.mu.Lock()
		if _, seen := t.discovered[adv.Identifier]; !seen {
			logging.L().Debugf("discovered %q (%s)", adv.Name, adv.Identifier)
		}
		t.discovered[adv.Identifier] = adv
		t.mu.Unlock()
	})
}

// Devices returns the peripherals discovered so far, in no particular
// order.
func (t *Transport) Devices() []Advertisement {
	t.mu.Lock()
	defer t.mu.Unlock()
	devices := make([]Advertisement, 0, len(t.discovered))
	for _, adv := range t.discovered {
		devices = append(devices, adv)
	}
	return devices
}

// Connect stops scanning and establishes a session with the identified
// peripheral. The transfer unit starts at the conservative default until
// NegotiateMTU reports a larger one.
func (t *Transport) Connect(ctx context.Context, identifier string) error {
	if err := t.central.StopScan(); err != nil {
		logging.L().Debugf("stop scan: %v", err)
	}
	conn, err := t.central.Connect(ctx, identifier)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		t.conn.Close()
	}
	t.conn = conn
	t.unit = DefaultUnit
	t.busy = false
	logging.L().Infof("connected to %s", conn.Model().Name)
	return nil
}

// Connected reports whether a session is live.
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// Unit returns the current transfer-unit size.
func (t *Transport) Unit() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.unit == 0 {
		return DefaultUnit
	}
	return t.unit
}

// NegotiateMTU probes the device for its transfer-unit size. A reply
// tagged 0x08 carries the size at byte offset 5; it is adopted only if
// larger than the current unit. Called once per session, after Connect and
// before the first Exchange.
func (t *Transport) NegotiateMTU(ctx context.Context) error {
	conn, _, err := t.acquire()
	if err != nil {
		return err
	}
	defer t.release()

	probe := []byte{tagMTU, 0x00, 0x00, 0x00, 0x00}
	logging.L().Debugf("=> mtu probe % x", probe)
	if err := conn.WriteFrame(probe); err != nil {
		return err
	}

	for {
		select {
		case frame, ok := <-conn.Frames():
			if !ok {
				return ErrDisconnected
			}
			logging.L().Debugf("<= mtu reply % x", frame)
			if len(frame) < 6 || frame[0] != tagMTU {
				continue
			}
			if negotiated := int(frame[5]); negotiated > t.Unit() {
				t.mu.Lock()
				t.unit = negotiated
				t.mu.Unlock()
				logging.L().Debugf("transfer unit raised to %d", negotiated)
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Exchange frames buf, writes every frame in order, and blocks until a
// complete response has been reassembled, the link drops, or the context
// is cancelled. Starting an exchange while another is outstanding fails
// with ErrExchangeInFlight.
func (t *Transport) Exchange(ctx context.Context, buf []byte) ([]byte, error) {
	conn, unit, err := t.acquire()
	if err != nil {
		return nil, err
	}
	defer t.release()

	// A late reply to an abandoned exchange must not be paired with this
	// command. Anything already queued predates it.
drain:
	for {
		select {
		case frame, ok := <-conn.Frames():
			if !ok {
				return nil, ErrDisconnected
			}
			logging.L().Debugf("discarding stale frame % x", frame)
		default:
			break drain
		}
	}

	logging.L().Debugf("=> % x", buf)

	frames, err := FrameCommand(buf, unit)
	if err != nil {
		return nil, err
	}
	for _, frame := range frames {
		if err := conn.WriteFrame(frame); err != nil {
			return nil, err
		}
	}

	var r reassembler
	for {
		select {
		case frame, ok := <-conn.Frames():
			if !ok {
				return nil, ErrDisconnected
			}
			if len(frame) == 0 || frame[0] != tagAPDU {
				continue
			}
			done, err := r.push(frame)
			if err != nil {
				return nil, err
			}
			if done {
				resp := r.bytes()
				logging.L().Debugf("<= % x", resp)
				return resp, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Disconnect tears the session down synchronously. Any outstanding
// exchange fails with ErrDisconnected through its closed frame channel.
func (t *Transport) Disconnect() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.unit = 0
	t.busy = false
	t.mu.Unlock()

	if conn == nil {
		return nil
	}
	logging.L().Info("disconnecting")
	return conn.Close()
}

func (t *Transport) acquire() (Conn, int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil, 0, ErrNotConnected
	}
	if t.busy {
		return nil, 0, ErrExchangeInFlight
	}
	t.busy = true
	unit := t.unit
	if unit == 0 {
		unit = DefaultUnit
	}
	return t.conn, unit, nil
}

func (t *Transport) release() {
	t.mu.Lock()
	t.busy = false
	t.mu.Unlock()
}
