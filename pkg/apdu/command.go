// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

// Package apdu expresses and sequences the hardware wallet's command set
// on top of the BLE transport: device and app queries, public-key
// retrieval, chunked signing, and on-device app navigation.
package apdu

import "fmt"

// Instruction classes and codes of the NEAR app and the device dashboard.
const (
	claNear  = 0x80
	claBolos = 0xb0
	claMCU   = 0xe0

	insGetVersion          = 0x06
	insGetPublicKey        = 0x04
	insSignTransaction     = 0x02
	insSignNEP413Message   = 0x07
	insSignNEP366Delegate  = 0x08
	insGetAppAndVersion    = 0x01
	insQuitApp             = 0xa7
	insOpenApp             = 0xd8

	// p1MoreChunks marks every signing chunk but the last; p1LastChunk
	// signals completion and makes the device answer with the signature.
	p1MoreChunks = 0x00
	p1LastChunk  = 0x80

	// networkMainnet is the network discriminator passed as P2.
	networkMainnet = 'W'

	// maxChunk keeps header+chunk within the device's 128-byte command
	// buffer.
	maxChunk = 123

	swOK = 0x9000
)

// Command is one APDU: class, instruction, two parameters and up to 255
// data bytes.
type Command struct {
	CLA  byte
	INS  byte
	P1   byte
	P2   byte
	Data []byte
}

// Bytes renders the wire form: [class][instruction][p1][p2][length][data].
func (c Command) Bytes() ([]byte, error) {
	if len(c.Data) > 0xff {
		return nil, fmt.Errorf("apdu: %d data bytes exceed the command format", len(c.Data))
	}
	out := make([]byte, 0, 5+len(c.Data))
	out = append(out, c.CLA, c.INS, c.P1, c.P2, byte(len(c.Data)))
	return append(out, c.Data...), nil
}

// splitStatus strips the trailing two status-word bytes off a response.
func splitStatus(resp []byte) ([]byte, uint16, error) {
	if len(resp) < 2 {
		return nil, 0, fmt.Errorf("apdu: response of %d bytes lacks a status word", len(resp))
	}
	sw := uint16(resp[len(resp)-2])<<8 | uint16(resp[len(resp)-1])
	return resp[:len(resp)-2], sw, nil
}
