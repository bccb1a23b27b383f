// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

package neartx

import (
	"crypto/sha256"

	"github.com/frol/near-connect-go/pkg/borsh"
)

// PrefixNEP366 is the 4-byte marker (2^30+366 little-endian) prepended to a
// delegate action before signing. The hardware wallet strips it again and
// switches to the meta-transaction signing instruction.
var PrefixNEP366 = [4]byte{0x6e, 0x01, 0x00, 0x40}

// DelegateAction is a NEP-366 meta-transaction: actions the sender
// authorizes a relayer to submit on their behalf before MaxBlockHeight.
type DelegateAction struct {
	SenderID       string
	ReceiverID     string
	Actions        []Action
	Nonce          uint64
	MaxBlockHeight uint64
	PublicKey      PublicKey
}

// Encode returns the Borsh encoding of the delegate action body. Nesting
// is impossible by construction: the closed Action set has no delegate
// variant.
func (d *DelegateAction) Encode() ([]byte, error) {
	w := borsh.NewWriter(256)
	w.String(d.SenderID)
	w.String(d.ReceiverID)
	w.U32(uint32(len(d.Actions)))
	for _, a := range d.Actions {
		if err := encodeAction(w, a); err != nil {
			return nil, err
		}
	}
	w.U64(d.Nonce)
	w.U64(d.MaxBlockHeight)
	d.PublicKey.encodeTo(w)
	return w.Bytes(), nil
}

// SignPayload returns the bytes handed to the device: the NEP-366 prefix
// followed by the encoded body.
func (d *DelegateAction) SignPayload() ([]byte, error) {
	body, err := d.Encode()
	if err != nil {
		return nil, err
	}
	return append(PrefixNEP366[:], body...), nil
}

// Hash is the sha256 digest of the prefixed sign payload, the value the
// network checks the signature against.
func (d *DelegateAction) Hash() ([32]byte, error) {
	payload, err := d.SignPayload()
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(payload), nil
}

// SignedDelegateAction is the delegate body plus the curve-tagged
// signature, ready to hand to a relayer.
type SignedDelegateAction struct {
	DelegateAction DelegateAction
	Signature      Signature
}

// Encode returns the Borsh encoding of the signed envelope.
func (sd *SignedDelegateAction) Encode() ([]byte, error) {
	body, err := sd.DelegateAction.Encode()
	if err != nil {
		return nil, err
	}
	w := borsh.NewWriter(len(body) + 65)
	w.Raw(body)
	sd.Signature.encodeTo(w)
	return w.Bytes(), nil
}
