// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

package ble

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// tagAPDU marks every link-layer frame carrying command or response
	// bytes.
	tagAPDU = 0x05
	// tagMTU marks the transfer-unit negotiation probe and its reply.
	tagMTU = 0x08

	firstFrameHeader = 5
	contFrameHeader  = 3

	// DefaultUnit is the conservative transfer-unit size assumed until a
	// negotiation reply reports a larger one.
	DefaultUnit = 20

	// MinUnit is the smallest unit the framing algorithm supports: the
	// first-frame header plus at least a few payload bytes.
	MinUnit = 8
)

// FrameCommand turns buf into a sequence of link-layer frames of at most
// unit bytes each. The first frame carries the total length big-endian; a
// frame is exactly header plus payload, never padded.
func FrameCommand(buf []byte, unit int) ([][]byte, error) {
	if unit < MinUnit {
		return nil, fmt.Errorf("ble: transfer unit %d below minimum %d", unit, MinUnit)
	}
	if len(buf) > 0xffff {
		return nil, fmt.Errorf("ble: command of %d bytes exceeds frameable length", len(buf))
	}

	first := unit - firstFrameHeader
	if first > len(buf) {
		first = len(buf)
	}
	frame := make([]byte, firstFrameHeader+first)
	frame[0] = tagAPDU
	binary.BigEndian.PutUint16(frame[1:3], 0)
	binary.BigEndian.PutUint16(frame[3:5], uint16(len(buf)))
	copy(frame[firstFrameHeader:], buf[:first])

	frames := [][]byte{frame}
	offset := first
	for seq := uint16(1); offset < len(buf); seq++ {
		n := unit - contFrameHeader
		if n > len(buf)-offset {
			n = len(buf) - offset
		}
		frame = make([]byte, contFrameHeader+n)
		frame[0] = tagAPDU
		binary.BigEndian.PutUint16(frame[1:3], seq)
		copy(frame[contFrameHeader:], buf[offset:offset+n])
		frames = append(frames, frame)
		offset += n
	}
	return frames, nil
}

// reassembler rebuilds one response from its frames. It is reset for every
// exchange; a frame with sequence zero also resets it mid-stream.
type reassembler struct {
	buf     []byte
	total   int
	frames  int
	started bool
}

var errShortFrame = errors.New("ble: frame too short")

// push consumes one frame and reports whether the response is complete.
func (r *reassembler) push(frame []byte) (bool, error) {
	if len(frame) < contFrameHeader || frame[0] != tagAPDU {
		return false, errShortFrame
	}
	seq := binary.BigEndian.Uint16(frame[1:3])
	if seq == 0 {
		if len(frame) < firstFrameHeader {
			return false, errShortFrame
		}
		r.total = int(binary.BigEndian.Uint16(frame[3:5]))
		r.buf = append(r.buf[:0], frame[firstFrameHeader:]...)
		r.started = true
	} else {
		r.buf = append(r.buf, frame[contFrameHeader:]...)
	}
	r.frames++
	return r.started && len(r.buf) >= r.total, nil
}

// bytes returns the reassembled response, truncated to the declared total.
func (r *reassembler) bytes() []byte {
	if len(r.buf) > r.total {
		return r.buf[:r.total]
	}
	return r.buf
}
