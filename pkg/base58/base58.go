// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

// Package base58 implements the Bitcoin-alphabet base-58 codec used for
// NEAR public keys, block hashes and signatures. Leading zero bytes map to
// leading '1' characters in both directions.
package base58

import (
	"fmt"
	"math/big"
)

const alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var decodeMap [256]int8

func init() {
	for i := range decodeMap {
		decodeMap[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		decodeMap[alphabet[i]] = int8(i)
	}
}

var radix = big.NewInt(58)

// Encode returns the base-58 representation of buf. Empty input encodes to
// the empty string.
func Encode(buf []byte) string {
	zeros := 0
	for zeros < len(buf) && buf[zeros] == 0 {
		zeros++
	}

	num := new(big.Int).SetBytes(buf)
	mod := new(big.Int)

	// Worst case expansion is log(256)/log(58) ~ 1.37.
	out := make([]byte, 0, len(buf)*137/100+1)
	for num.Sign() > 0 {
		num.DivMod(num, radix, mod)
		out = append(out, alphabet[mod.Int64()])
	}
	for i := 0; i < zeros; i++ {
		out = append(out, '1')
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

// Decode parses a base-58 string back into bytes. Characters outside the
// alphabet are rejected.
func Decode(s string) ([]byte, error) {
	zeros := 0
	for zeros < len(s) && s[zeros] == '1' {
		zeros++
	}

	num := new(big.Int)
	for i := zeros; i < len(s); i++ {
		d := decodeMap[s[i]]
		if d < 0 {
			return nil, fmt.Errorf("base58: invalid character %q at index %d", s[i], i)
		}
		num.Mul(num, radix)
		num.Add(num, big.NewInt(int64(d)))
	}

	payload := num.Bytes()
	out := make([]byte, zeros+len(payload))
	copy(out[zeros:], payload)
	return out, nil
}
