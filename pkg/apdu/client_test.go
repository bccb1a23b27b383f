// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

package apdu

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedCommand is one APDU as seen by the fake device.
type recordedCommand struct {
	CLA, INS, P1, P2 byte
	Data             []byte
}

// fakeDevice acts as the peer of a Client: it records every command and
// produces canned NEAR-app replies. Signing accumulates chunk data so
// tests can check the device saw the full path+payload buffer.
type fakeDevice struct {
	commands []recordedCommand
	appName  string
	signBuf  []byte
	failWith uint16 // when non-zero, every command fails with this status
}

func (d *fakeDevice) Exchange(_ context.Context, raw []byte) ([]byte, error) {
	if len(raw) < 5 {
		return nil, errors.New("short command")
	}
	cmd := recordedCommand{
		CLA: raw[0], INS: raw[1], P1: raw[2], P2: raw[3],
		Data: append([]byte(nil), raw[5:]...),
	}
	d.commands = append(d.commands, cmd)

	if d.failWith != 0 {
		return []byte{byte(d.failWith >> 8), byte(d.failWith)}, nil
	}

	ok := []byte{0x90, 0x00}
	switch {
	case cmd.CLA == claNear && cmd.INS == insGetVersion:
		return append([]byte{1, 2, 3}, ok...), nil
	case cmd.CLA == claNear && cmd.INS == insGetPublicKey:
		return append(bytes.Repeat([]byte{0x11}, 32), ok...), nil
	case cmd.CLA == claNear && (cmd.INS == insSignTransaction ||
		cmd.INS == insSignNEP413Message || cmd.INS == insSignNEP366Delegate):
		d.signBuf = append(d.signBuf, cmd.Data...)
		if cmd.P1 == p1LastChunk {
			return append(bytes.Repeat([]byte{0xcc}, 64), ok...), nil
		}
		return ok, nil
	case cmd.CLA == claBolos && cmd.INS == insGetAppAndVersion:
		reply := append([]byte{0x01, byte(len(d.appName))}, d.appName...)
		reply = append(reply, 0x05)
		reply = append(reply, "1.2.3"...)
		return append(reply, ok...), nil
	case cmd.CLA == claBolos && cmd.INS == insQuitApp:
		d.appName = "BOLOS"
		return ok, nil
	case cmd.CLA == claMCU && cmd.INS == insOpenApp:
		d.appName = string(cmd.Data)
		return ok, nil
	}
	return []byte{0x6d, 0x00}, nil
}

func (d *fakeDevice) instructions() []byte {
	out := make([]byte, len(d.commands))
	for i, c := range d.commands {
		out[i] = c.INS
	}
	return out
}

func testPath(t *testing.T) DerivationPath {
	t.Helper()
	path, err := ParsePath(DefaultPath)
	require.NoError(t, err)
	return path
}

func TestGetVersion(t *testing.T) {
	device := &fakeDevice{}
	v, err := NewClient(device).GetVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Version{Major: 1, Minor: 2, Patch: 3}, v)
	assert.Equal(t, "1.2.3", v.String())
}

func TestGetPublicKeyResetsDeviceFirst(t *testing.T) {
	device := &fakeDevice{}
	path := testPath(t)

	key, err := NewClient(device).GetPublicKey(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0x11}, 32), key)

	require.Equal(t, []byte{insGetVersion, insGetPublicKey}, device.instructions())
	last := device.commands[1]
	assert.Equal(t, byte('W'), last.P2)
	assert.Equal(t, path.Bytes(), last.Data)
}

func TestSignChunking(t *testing.T) {
	device := &fakeDevice{}
	path := testPath(t) // 20 bytes encoded
	payload := bytes.Repeat([]byte{0xee}, 230)

	sig, err := NewClient(device).Sign(context.Background(), payload, path)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xcc}, 64), sig)

	// Version reset, then 250 bytes in chunks of 123, 123, 4.
	require.Equal(t, []byte{
		insGetVersion,
		insSignTransaction, insSignTransaction, insSignTransaction,
	}, device.instructions())

	chunks := device.commands[1:]
	assert.Len(t, chunks[0].Data, 123)
	assert.Len(t, chunks[1].Data, 123)
	assert.Len(t, chunks[2].Data, 4)
	assert.Equal(t, byte(p1MoreChunks), chunks[0].P1)
	assert.Equal(t, byte(p1MoreChunks), chunks[1].P1)
	assert.Equal(t, byte(p1LastChunk), chunks[2].P1)

	assert.Equal(t, append(path.Bytes(), payload...), device.signBuf)
}

func TestSignSingleChunk(t *testing.T) {
	device := &fakeDevice{}
	payload := bytes.Repeat([]byte{0xee}, 103) // 20 + 103 = 123 exactly

	_, err := NewClient(device).Sign(context.Background(), payload, testPath(t))
	require.NoError(t, err)

	require.Equal(t, []byte{insGetVersion, insSignTransaction}, device.instructions())
	assert.Equal(t, byte(p1LastChunk), device.commands[1].P1)
	assert.Len(t, device.commands[1].Data, 123)
}

func TestSignDetectsMessagePrefix(t *testing.T) {
	device := &fakeDevice{}
	path := testPath(t)
	body := []byte("off-chain message body")
	payload := append([]byte{0x9d, 0x01, 0x00, 0x80}, body...)

	_, err := NewClient(device).Sign(context.Background(), payload, path)
	require.NoError(t, err)

	require.Equal(t, []byte{insGetVersion, insSignNEP413Message}, device.instructions())
	// The 4 magic bytes are stripped before the path is prepended.
	assert.Equal(t, append(path.Bytes(), body...), device.signBuf)
}

func TestSignDetectsDelegatePrefix(t *testing.T) {
	device := &fakeDevice{}
	payload := append([]byte{0x6e, 0x01, 0x00, 0x40}, []byte("delegate body")...)

	_, err := NewClient(device).Sign(context.Background(), payload, testPath(t))
	require.NoError(t, err)
	require.Equal(t, []byte{insGetVersion, insSignNEP366Delegate}, device.instructions())
}

func TestSignSurfacesDeviceRefusal(t *testing.T) {
	device := &fakeDevice{failWith: 0x6985}
	_, err := NewClient(device).Sign(context.Background(), []byte{0x01}, testPath(t))
	assert.ErrorIs(t, err, ErrSignDeclined)
}

func TestGetRunningAppName(t *testing.T) {
	device := &fakeDevice{appName: "Ethereum"}
	name, err := NewClient(device).GetRunningAppName(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ethereum", name)
}

func TestOpenNearApplicationAlreadyOpen(t *testing.T) {
	device := &fakeDevice{appName: "NEAR"}
	require.NoError(t, NewClient(device).OpenNearApplication(context.Background()))
	assert.Equal(t, []byte{insGetAppAndVersion}, device.instructions())
}

func TestOpenNearApplicationFromDashboard(t *testing.T) {
	device := &fakeDevice{appName: "BOLOS"}
	require.NoError(t, NewClient(device).OpenNearApplication(context.Background()))
	// No quit when the device already sits at the dashboard.
	assert.Equal(t, []byte{insGetAppAndVersion, insOpenApp}, device.instructions())
	assert.Equal(t, "NEAR", device.appName)
}

func TestOpenNearApplicationQuitsForeignApp(t *testing.T) {
	saved := settleDelay
	settleDelay = time.Millisecond
	defer func() { settleDelay = saved }()

	device := &fakeDevice{appName: "Ethereum"}
	require.NoError(t, NewClient(device).OpenNearApplication(context.Background()))
	assert.Equal(t, []byte{insGetAppAndVersion, insQuitApp, insOpenApp}, device.instructions())
	assert.Equal(t, "NEAR", device.appName)
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		sw    uint16
		cause error
	}{
		{0x6984, ErrAppNotInstalled},
		{0x5501, ErrOpenDeclined},
		{0x5515, ErrDeviceLocked},
		{0x6985, ErrSignDeclined},
		{0x6986, ErrDeclined},
	}
	for _, tt := range tests {
		err := classifyStatus(tt.sw)
		assert.ErrorIs(t, err, tt.cause, "status %04x", tt.sw)
	}

	// Unknown status words fall back to their raw text.
	err := classifyStatus(0x6d00)
	var apduErr *Error
	require.ErrorAs(t, err, &apduErr)
	assert.Equal(t, uint16(0x6d00), apduErr.SW)
	assert.Contains(t, err.Error(), "6d00")
}

func TestCommandBytes(t *testing.T) {
	raw, err := Command{CLA: 0x80, INS: 0x02, P1: 0x80, P2: 'W', Data: []byte{0xaa}}.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x80, 0x02, 0x80, 'W', 0x01, 0xaa}, raw)

	_, err = Command{Data: make([]byte, 256)}.Bytes()
	assert.Error(t, err)
}

func TestSplitStatus(t *testing.T) {
	payload, sw, err := splitStatus([]byte{0x01, 0x02, 0x90, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, payload)
	assert.Equal(t, uint16(0x9000), sw)

	_, _, err = splitStatus([]byte{0x90})
	assert.Error(t, err)
}
