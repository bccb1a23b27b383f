// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

package ble

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectedTransport(t *testing.T, central *LoopbackCentral) *Transport {
	t.Helper()
	transport := NewTransport(central)
	require.NoError(t, transport.Connect(context.Background(), loopbackIdentifier))
	return transport
}

func TestExchangeEchoesThroughLoopback(t *testing.T) {
	transport := connectedTransport(t, &LoopbackCentral{})

	payload := bytes.Repeat([]byte{0xa5}, 300) // forces multi-frame both ways
	resp, err := transport.Exchange(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, payload, resp)
}

func TestExchangeRequiresConnection(t *testing.T) {
	transport := NewTransport(&LoopbackCentral{})
	_, err := transport.Exchange(context.Background(), []byte{0x01})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestExchangeRejectsConcurrentUse(t *testing.T) {
	block := make(chan struct{})
	central := &LoopbackCentral{Handler: func(command []byte) []byte {
		<-block
		return command
	}}
	transport := connectedTransport(t, central)

	errs := make(chan error, 1)
	go func() {
		_, err := transport.Exchange(context.Background(), []byte{0x01})
		errs <- err
	}()

	// Let the first exchange take the pending slot.
	time.Sleep(50 * time.Millisecond)
	_, err := transport.Exchange(context.Background(), []byte{0x02})
	assert.ErrorIs(t, err, ErrExchangeInFlight)

	close(block)
	require.NoError(t, <-errs)

	// The slot is free again afterwards.
	_, err = transport.Exchange(context.Background(), []byte{0x03})
	assert.NoError(t, err)
}

func TestExchangeFailsOnDisconnect(t *testing.T) {
	block := make(chan struct{})
	central := &LoopbackCentral{Handler: func(command []byte) []byte {
		<-block
		return command
	}}
	transport := connectedTransport(t, central)

	errs := make(chan error, 1)
	go func() {
		_, err := transport.Exchange(context.Background(), []byte{0x01})
		errs <- err
	}()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, transport.Disconnect())
	close(block)
	assert.ErrorIs(t, <-errs, ErrDisconnected)
	assert.False(t, transport.Connected())

	_, err := transport.Exchange(context.Background(), []byte{0x02})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestExchangeHonorsContext(t *testing.T) {
	central := &LoopbackCentral{}
	transport := connectedTransport(t, central)
	central.conn.Mute = true // device never answers

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := transport.Exchange(ctx, bytes.Repeat([]byte{0x01}, 40))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExchangeDiscardsLateReplyAfterAbandon(t *testing.T) {
	central := &LoopbackCentral{}
	transport := connectedTransport(t, central)
	central.conn.Mute = true // device stalls on the first command

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := transport.Exchange(ctx, []byte{0x01})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The stalled reply shows up after the caller gave up.
	late, err := FrameCommand([]byte{0xde, 0xad}, DefaultUnit)
	require.NoError(t, err)
	central.mu.Lock()
	conn := central.conn
	central.mu.Unlock()
	for _, frame := range late {
		conn.frames <- frame
	}
	conn.Mute = false

	// The next exchange must answer the new command, not the stale reply.
	resp, err := transport.Exchange(context.Background(), []byte{0x02})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02}, resp)
}

func TestNegotiateMTUAdoptsLargerUnit(t *testing.T) {
	transport := connectedTransport(t, &LoopbackCentral{MTU: 153})
	require.NoError(t, transport.NegotiateMTU(context.Background()))
	assert.Equal(t, 153, transport.Unit())
}

func TestNegotiateMTUKeepsDefaultForSmallerReply(t *testing.T) {
	transport := connectedTransport(t, &LoopbackCentral{MTU: 9})
	require.NoError(t, transport.NegotiateMTU(context.Background()))
	assert.Equal(t, DefaultUnit, transport.Unit())
}

func TestExchangeUsesNegotiatedUnit(t *testing.T) {
	var widths []int
	central := &LoopbackCentral{MTU: 100}
	transport := connectedTransport(t, central)
	require.NoError(t, transport.NegotiateMTU(context.Background()))

	central.mu.Lock()
	central.conn.handler = func(command []byte) []byte {
		widths = append(widths, len(command))
		return command
	}
	central.mu.Unlock()

	payload := bytes.Repeat([]byte{0x42}, 150)
	resp, err := transport.Exchange(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, payload, resp)
	// 150 bytes at unit 100 is 95 + 55: two frames, so the loopback saw
	// one complete 150-byte command.
	assert.Equal(t, []int{150}, widths)
}

func TestScanAccumulatesAndDeduplicates(t *testing.T) {
	transport := NewTransport(&LoopbackCentral{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, transport.Scan(ctx))

	devices := transport.Devices()
	require.Len(t, devices, 1)
	assert.Equal(t, loopbackIdentifier, devices[0].Identifier)
	assert.Equal(t, "Loopback Nano X", devices[0].Name)
}

func TestConnectRejectsUnknownPeripheral(t *testing.T) {
	transport := NewTransport(&LoopbackCentral{})
	err := transport.Connect(context.Background(), "no-such-device")
	assert.ErrorIs(t, err, ErrConnectionFailed)
}
