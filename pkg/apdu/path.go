// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

package apdu

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// hardened is the top bit set on hardened path components.
const hardened = 0x80000000

// DerivationPath is an ordered sequence of BIP32 path components with the
// top bit marking hardening.
type DerivationPath []uint32

// DefaultPath is the textual form of the derivation path NEAR wallets
// conventionally use for the first Ledger key.
const DefaultPath = "44'/397'/0'/0'/1'"

// DefaultDerivationPath is DefaultPath in parsed form.
var DefaultDerivationPath = DerivationPath{
	44 | hardened, 397 | hardened, 0 | hardened, 0 | hardened, 1 | hardened,
}

// ParsePath parses the slash-separated textual form, e.g.
// "44'/397'/0'/0'/1'". A trailing apostrophe marks the component hardened.
func ParsePath(s string) (DerivationPath, error) {
	if s == "" {
		return nil, fmt.Errorf("apdu: empty derivation path")
	}
	parts := strings.Split(s, "/")
	path := make(DerivationPath, 0, len(parts))
	for _, part := range parts {
		harden := strings.HasSuffix(part, "'")
		component, err := strconv.ParseUint(strings.TrimSuffix(part, "'"), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("apdu: invalid path component %q: %w", part, err)
		}
		if component >= hardened {
			return nil, fmt.Errorf("apdu: path component %q out of range", part)
		}
		if harden {
			component |= hardened
		}
		path = append(path, uint32(component))
	}
	return path, nil
}

// Bytes flattens the path into the device request form: 4 bytes per
// component, big-endian.
func (p DerivationPath) Bytes() []byte {
	out := make([]byte, 4*len(p))
	for i, component := range p {
		binary.BigEndian.PutUint32(out[4*i:], component)
	}
	return out
}

// String renders the canonical slash-separated form.
func (p DerivationPath) String() string {
	parts := make([]string, len(p))
	for i, component := range p {
		if component&hardened != 0 {
			parts[i] = strconv.FormatUint(uint64(component&^uint32(hardened)), 10) + "'"
		} else {
			parts[i] = strconv.FormatUint(uint64(component), 10)
		}
	}
	return strings.Join(parts, "/")
}
