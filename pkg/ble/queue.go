// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

package ble

import (
	"sync"

	"github.com/frol/near-connect-go/internal/logging"
)

// frameQueue carries notification frames from the platform callback to the
// exchange loop. Platform stacks can deliver a notification after the link
// was torn down, so pushes after close are dropped instead of panicking.
type frameQueue struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
}

func newFrameQueue(depth int) *frameQueue {
	return &frameQueue{ch: make(chan []byte, depth)}
}

// push copies frame into the queue. A full queue drops the frame; a closed
// queue ignores it.
func (q *frameQueue) push(frame []byte) {
	buf := append([]byte(nil), frame...)
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	select {
	case q.ch <- buf:
	default:
		logging.L().Warn("dropping frame, receive queue full")
	}
}

func (q *frameQueue) frames() <-chan []byte {
	return q.ch
}

func (q *frameQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
