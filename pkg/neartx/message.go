// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

package neartx

import (
	"crypto/rand"
	"fmt"

	"github.com/frol/near-connect-go/pkg/borsh"
)

// PrefixNEP413 is the 4-byte marker (2^31+413 little-endian) prepended to
// an off-chain message payload before signing.
var PrefixNEP413 = [4]byte{0x9d, 0x01, 0x00, 0x80}

// SignMessagePayload is a NEP-413 off-chain message. Callback URLs are not
// supported; the trailing option byte is always 0.
type SignMessagePayload struct {
	Message   string
	Nonce     [32]byte
	Recipient string
}

// Encode returns the Borsh encoding of the payload body.
func (p *SignMessagePayload) Encode() []byte {
	w := borsh.NewWriter(64 + len(p.Message) + len(p.Recipient))
	w.String(p.Message)
	w.Raw(p.Nonce[:])
	w.String(p.Recipient)
	w.U8(0)
	return w.Bytes()
}

// SignPayload returns the bytes handed to the device: the NEP-413 prefix
// followed by the encoded body.
func (p *SignMessagePayload) SignPayload() []byte {
	return append(PrefixNEP413[:], p.Encode()...)
}

// NewMessageNonce draws a random 32-byte nonce for a message payload.
func NewMessageNonce() ([32]byte, error) {
	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nonce, fmt.Errorf("neartx: drawing message nonce: %w", err)
	}
	return nonce, nil
}
