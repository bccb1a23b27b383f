// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

// Package neartx builds the exact byte sequences the NEAR network and the
// hardware wallet expect: Borsh-encoded transactions, NEP-366 delegate
// actions and NEP-413 off-chain message payloads, plus their signed
// envelopes.
package neartx

import (
	"fmt"
	"strings"

	"github.com/frol/near-connect-go/pkg/base58"
	"github.com/frol/near-connect-go/pkg/borsh"
)

// KeyTypeED25519 is the curve tag for ed25519, the only curve the NEAR
// Ledger app supports.
const KeyTypeED25519 uint8 = 0

const ed25519Prefix = "ed25519:"

// PublicKey is a curve-tagged 32-byte public key.
type PublicKey struct {
	KeyType uint8
	Data    [32]byte
}

// PublicKeyFromBytes wraps a raw 32-byte ed25519 key.
func PublicKeyFromBytes(raw []byte) (PublicKey, error) {
	if len(raw) != 32 {
		return PublicKey{}, fmt.Errorf("neartx: public key must be 32 bytes, got %d", len(raw))
	}
	pk := PublicKey{KeyType: KeyTypeED25519}
	copy(pk.Data[:], raw)
	return pk, nil
}

// ParsePublicKey parses the textual "ed25519:<base58>" form. The prefix is
// optional.
func ParsePublicKey(s string) (PublicKey, error) {
	raw, err := base58.Decode(strings.TrimPrefix(s, ed25519Prefix))
	if err != nil {
		return PublicKey{}, fmt.Errorf("neartx: invalid public key %q: %w", s, err)
	}
	return PublicKeyFromBytes(raw)
}

// String renders the canonical "ed25519:<base58>" form.
func (pk PublicKey) String() string {
	return ed25519Prefix + base58.Encode(pk.Data[:])
}

func (pk PublicKey) encodeTo(w *borsh.Writer) {
	w.U8(pk.KeyType)
	w.Raw(pk.Data[:])
}

// Signature is a curve-tagged 64-byte signature.
type Signature struct {
	KeyType uint8
	Data    [64]byte
}

// SignatureFromBytes wraps a raw 64-byte ed25519 signature.
func SignatureFromBytes(raw []byte) (Signature, error) {
	if len(raw) != 64 {
		return Signature{}, fmt.Errorf("neartx: signature must be 64 bytes, got %d", len(raw))
	}
	sig := Signature{KeyType: KeyTypeED25519}
	copy(sig.Data[:], raw)
	return sig, nil
}

func (sig Signature) encodeTo(w *borsh.Writer) {
	w.U8(sig.KeyType)
	w.Raw(sig.Data[:])
}

func decodeBase58Exact(s string, n int) ([]byte, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, err
	}
	if len(raw) != n {
		return nil, fmt.Errorf("expected %d bytes, got %d", n, len(raw))
	}
	return raw, nil
}
