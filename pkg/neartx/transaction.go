// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

package neartx

import (
	"fmt"

	"github.com/frol/near-connect-go/pkg/borsh"
)

// Transaction is an unsigned NEAR transaction. The encoded form is what the
// hardware wallet displays and signs.
type Transaction struct {
	SignerID   string
	PublicKey  PublicKey
	Nonce      uint64
	ReceiverID string
	BlockHash  [32]byte
	Actions    []Action
}

// Encode returns the Borsh encoding of the transaction.
func (tx *Transaction) Encode() ([]byte, error) {
	w := borsh.NewWriter(256)
	w.String(tx.SignerID)
	tx.PublicKey.encodeTo(w)
	w.U64(tx.Nonce)
	w.String(tx.ReceiverID)
	w.Raw(tx.BlockHash[:])
	w.U32(uint32(len(tx.Actions)))
	for _, a := range tx.Actions {
		if err := encodeAction(w, a); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

// SignedTransaction is a transaction plus the device-produced signature.
type SignedTransaction struct {
	Transaction Transaction
	Signature   Signature
}

// Encode returns the Borsh encoding of the signed envelope: the transaction
// body followed by the curve-tagged signature.
func (stx *SignedTransaction) Encode() ([]byte, error) {
	body, err := stx.Transaction.Encode()
	if err != nil {
		return nil, err
	}
	w := borsh.NewWriter(len(body) + 65)
	w.Raw(body)
	stx.Signature.encodeTo(w)
	return w.Bytes(), nil
}

// DecodeBlockHash parses a base-58 block hash into its fixed 32-byte form.
func DecodeBlockHash(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := decodeBase58Exact(s, 32)
	if err != nil {
		return out, fmt.Errorf("neartx: invalid block hash %q: %w", s, err)
	}
	copy(out[:], raw)
	return out, nil
}
