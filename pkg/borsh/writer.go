// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

// Package borsh provides the primitive writers for the Borsh binary format:
// fixed-width little-endian integers, 4-byte length-prefixed strings and
// byte slices, and raw fixed-size chunks. Every value has a statically
// known layout; the only variable-length element is an explicit length
// prefix. The format is load-bearing: the hardware wallet displays and
// signs a digest of exactly these bytes.
package borsh

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

var maxU128 = new(big.Int).Lsh(big.NewInt(1), 128)

// Writer accumulates Borsh-encoded values. The zero value is ready to use.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Bytes returns the accumulated encoding.
func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) U8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) U16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) U32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) U64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// U128 writes a non-negative integer as 16 little-endian bytes.
func (w *Writer) U128(v *big.Int) error {
	if v == nil || v.Sign() < 0 {
		return fmt.Errorf("borsh: u128 value must be non-negative")
	}
	if v.Cmp(maxU128) >= 0 {
		return fmt.Errorf("borsh: value %s overflows u128", v)
	}
	be := v.Bytes()
	var out [16]byte
	for i, b := range be {
		out[len(be)-1-i] = b
	}
	w.buf = append(w.buf, out[:]...)
	return nil
}

// String writes a 4-byte little-endian length followed by the raw UTF-8
// bytes.
func (w *Writer) String(s string) {
	w.U32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// Prefixed writes a 4-byte little-endian length followed by the raw bytes.
func (w *Writer) Prefixed(b []byte) {
	w.U32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// Raw appends bytes verbatim, without a length prefix. Used for fixed-size
// fields such as 32-byte hashes and 64-byte signatures.
func (w *Writer) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

// Bool writes 1 for true, 0 for false.
func (w *Writer) Bool(v bool) {
	if v {
		w.U8(1)
	} else {
		w.U8(0)
	}
}
