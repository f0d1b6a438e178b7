/*
 * MIT License
 *
 * Copyright (c) 2026 rpmsgsock contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package rpmsg

// PollHandle is returned by PollSetup; the caller selects on Ready() to
// learn that revents may have changed, then calls Events() to read the
// latest computed mask and Teardown() when done.
type PollHandle struct {
	c    *Connection
	slot int
	w    *pollWaiter
}

// Ready returns the channel that is posted whenever this connection's
// readiness may have changed. Like every other wait primitive in this
// package it is edge-to-level: a receive means "re-check", not "here is the
// event".
func (h *PollHandle) Ready() <-chan struct{} {
	return h.w.notify
}

// Events recomputes and returns the current readiness mask.
func (h *PollHandle) Events() PollEvent {
	h.c.pollLock.Lock()
	defer h.c.pollLock.Unlock()
	return h.c.computeEventsLocked(h.w.events)
}

// Teardown clears the poll slot. The handle must not be used afterwards.
func (h *PollHandle) Teardown() {
	h.c.pollLock.Lock()
	defer h.c.pollLock.Unlock()
	if h.slot >= 0 && h.slot < len(h.c.pollSlots) && h.c.pollSlots[h.slot] == h.w {
		h.c.pollSlots[h.slot] = nil
	}
}

// PollSetup records a poll waiter in a free slot and synchronously computes
// the initial event set: listeners report readable iff the
// accept queue is non-empty (or ECONNRESET if listen-closed); connected
// sockets report hangup iff the endpoint is gone or unbound, writable iff
// send-space > 0, readable iff the recv buffer is non-empty; sockets that
// are not yet connected report hangup iff the endpoint is gone or unbound.
func (c *Connection) PollSetup(events PollEvent) (*PollHandle, error) {
	if c.getRole() == RoleListenClosed {
		return nil, ErrConnReset
	}

	c.pollLock.Lock()
	defer c.pollLock.Unlock()

	slot := -1
	for i, s := range c.pollSlots {
		if s == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		return nil, ErrBusy
	}

	w := &pollWaiter{events: events, notify: make(chan struct{}, 1)}
	c.pollSlots[slot] = w
	w.revents = c.computeEventsLocked(events)

	if w.revents != 0 {
		select {
		case w.notify <- struct{}{}:
		default:
		}
	}

	return &PollHandle{c: c, slot: slot, w: w}, nil
}

// computeEventsLocked must be called with pollLock held.
func (c *Connection) computeEventsLocked(want PollEvent) PollEvent {
	role := c.getRole()

	if role == RoleListening || role == RoleListenClosed {
		if role == RoleListenClosed {
			return (PollIn | PollErr) & want
		}
		c.recvLock.Lock()
		n := c.acceptQueueLen()
		c.recvLock.Unlock()
		var ev PollEvent
		if n > 0 {
			ev |= PollIn
		}
		return ev & (want | PollErr)
	}

	gone := c.endpoint() == nil || c.isUnbind()

	if !c.isConnected() {
		if gone {
			return PollHup & (want | PollHup)
		}
		return 0
	}

	var ev PollEvent
	if gone {
		ev |= PollHup
	}
	c.sendLock.Lock()
	if c.sendSpaceLocked() > 0 {
		ev |= PollOut
	}
	c.sendLock.Unlock()

	c.recvLock.Lock()
	if c.recvBuf.len() > 0 {
		ev |= PollIn
	}
	c.recvLock.Unlock()

	return ev & (want | PollHup | PollErr)
}

func (c *Connection) notifyAll() {
	c.pollLock.Lock()
	defer c.pollLock.Unlock()
	for _, w := range c.pollSlots {
		if w == nil {
			continue
		}
		w.revents = c.computeEventsLocked(w.events)
		select {
		case w.notify <- struct{}{}:
		default:
		}
	}
}

func (c *Connection) notifyReadable()  { c.notifyAll() }
func (c *Connection) notifyWritable()  { c.notifyAll() }
func (c *Connection) notifyHangup()    { c.notifyAll() }
