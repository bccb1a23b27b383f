// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

package ble

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameCommandLayout(t *testing.T) {
	payload := make([]byte, 40)
	for i := range payload {
		payload[i] = byte(i + 1)
	}

	frames, err := FrameCommand(payload, 20)
	require.NoError(t, err)
	require.Len(t, frames, 3)

	// First frame: tag, seq 0, total length, then unit-5 payload bytes.
	assert.Equal(t, []byte{0x05, 0x00, 0x00, 0x00, 0x28}, frames[0][:5])
	assert.Equal(t, payload[:15], frames[0][5:])
	assert.Len(t, frames[0], 20)

	// Continuations: tag, incrementing seq, unit-3 payload bytes.
	assert.Equal(t, []byte{0x05, 0x00, 0x01}, frames[1][:3])
	assert.Equal(t, payload[15:32], frames[1][3:])
	assert.Len(t, frames[1], 20)

	// Last frame is exactly header + remainder, no padding.
	assert.Equal(t, []byte{0x05, 0x00, 0x02}, frames[2][:3])
	assert.Equal(t, payload[32:], frames[2][3:])
	assert.Len(t, frames[2], 11)
}

func TestFrameCommandSingleFrame(t *testing.T) {
	frames, err := FrameCommand([]byte{0xaa, 0xbb}, 20)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, []byte{0x05, 0x00, 0x00, 0x00, 0x02, 0xaa, 0xbb}, frames[0])
}

func TestFrameCommandRejectsTinyUnit(t *testing.T) {
	_, err := FrameCommand([]byte{0x01}, MinUnit-1)
	assert.Error(t, err)
}

func TestReassembleTruncatesToDeclaredTotal(t *testing.T) {
	var r reassembler
	done, err := r.push([]byte{0x05, 0x00, 0x00, 0x00, 0x03, 0x01, 0x02, 0x03, 0xff})
	require.NoError(t, err)
	require.True(t, done)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, r.bytes())
}

func TestReassembleIgnoresIncompletePrefix(t *testing.T) {
	var r reassembler
	// A continuation arriving before any first frame must not complete.
	done, err := r.push([]byte{0x05, 0x00, 0x01, 0xaa})
	require.NoError(t, err)
	assert.False(t, done)
}

func TestReassembleSequenceZeroResets(t *testing.T) {
	var r reassembler
	_, err := r.push([]byte{0x05, 0x00, 0x00, 0x00, 0x04, 0xde, 0xad})
	require.NoError(t, err)

	// A fresh first frame discards the partial response.
	done, err := r.push([]byte{0x05, 0x00, 0x00, 0x00, 0x02, 0x01, 0x02})
	require.NoError(t, err)
	require.True(t, done)
	assert.Equal(t, []byte{0x01, 0x02}, r.bytes())
}

func TestFrameReassembleRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, unit := range []int{MinUnit, 9, 20, 23, 63, 128, 247} {
		for _, size := range []int{0, 1, 5, 15, 16, 17, 20, 100, 1000} {
			buf := make([]byte, size)
			rng.Read(buf)

			frames, err := FrameCommand(buf, unit)
			require.NoError(t, err)

			var r reassembler
			var done bool
			for i, frame := range frames {
				assert.LessOrEqual(t, len(frame), unit)
				done, err = r.push(frame)
				require.NoError(t, err)
				if i < len(frames)-1 {
					require.False(t, done, "unit=%d size=%d frame=%d", unit, size, i)
				}
			}
			require.True(t, done, "unit=%d size=%d", unit, size)
			require.True(t, bytes.Equal(buf, r.bytes()), "unit=%d size=%d", unit, size)
		}
	}
}
