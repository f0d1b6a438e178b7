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

import (
	"context"
	"encoding/binary"
)

// recordPeerAck applies an incoming DATA frame's pos field to ackPos and
// wakes any sender blocked on credit if space became positive. Called by
// the endpoint bridge; acquires sendLock itself.
func (c *Connection) recordPeerAck(pos uint32) {
	c.sendLock.Lock()
	before := c.sendSpaceLocked()
	c.ackPos = pos
	after := c.sendSpaceLocked()
	c.sendLock.Unlock()

	if before == 0 && after > 0 {
		c.postSendable()
	}
}

// advertiseAck records that we are about to tell the peer our recvPos is
// `pos`, returning the previous lastPos so a failed transmit can roll back.
func (c *Connection) advertiseAck(pos uint32) uint32 {
	c.recvLock.Lock()
	prev := c.lastPos
	c.lastPos = pos
	c.recvLock.Unlock()
	return prev
}

func (c *Connection) rollbackAck(prev uint32) {
	c.recvLock.Lock()
	c.lastPos = prev
	c.recvLock.Unlock()
}

// emitFrame sends a DATA frame carrying payload (nil/empty for a pure ack)
// with pos set to the current recvPos, piggy-backing the credit
// advertisement. It must not be called while holding any
// of recvLock/sendLock/pollLock.
func (c *Connection) emitFrame(ctx context.Context, payload []byte) error {
	ep := c.endpoint()
	if ep == nil {
		return ErrConnReset
	}

	c.recvLock.Lock()
	pos := c.recvPos
	c.recvLock.Unlock()
	prevLast := c.advertiseAck(pos)

	buf, err := ep.GetTXBuffer(ctx)
	if err != nil {
		c.rollbackAck(prevLast)
		return err
	}

	n := len(payload)
	if dataHeaderLen+n > len(buf) {
		n = len(buf) - dataHeaderLen
	}
	if n < 0 {
		n = 0
	}
	encodeDataHeader(buf[:dataHeaderLen], pos, uint32(n))
	copy(buf[dataHeaderLen:dataHeaderLen+n], payload[:n])

	if err := ep.SendNoCopy(buf[:dataHeaderLen+n]); err != nil {
		c.rollbackAck(prevLast)
		return err
	}
	return nil
}

// ackDue reports whether more than half of our own advertised receive
// window has been consumed since the last advertisement.
func (c *Connection) ackDue() bool {
	c.recvLock.Lock()
	defer c.recvLock.Unlock()
	capv := uint32(c.recvBuf.cap())
	if capv == 0 {
		return false
	}
	return c.recvPos-c.lastPos > capv/2
}

// maybeSendAck proactively emits a standalone zero-length DATA frame when
// ackDue reports the peer's credit window is more than half consumed.
func (c *Connection) maybeSendAck(ctx context.Context) {
	if !c.ackDue() {
		return
	}
	if err := c.emitFrame(ctx, nil); err != nil {
		c.log.Warning("failed to send standalone ack frame", ErrorFilter(err))
	}
}

// sendStream implements the continuous stream send path: iterate
// until all of p has been sent, blocking on credit (send-sem) between
// iterations as needed.
func (c *Connection) sendStream(ctx context.Context, p []byte, nonblock bool) (int, error) {
	total := len(p)
	sent := 0

	for sent < total {
		if c.endpoint() == nil || c.isUnbind() {
			if sent > 0 {
				return sent, nil
			}
			return 0, ErrConnReset
		}

		c.sendLock.Lock()
		space := c.sendSpaceLocked()
		c.sendLock.Unlock()

		if space == 0 {
			if nonblock {
				if sent > 0 {
					return sent, nil
				}
				return 0, ErrAgain
			}
			c.sendSem.reset()
			if err := c.sendSem.wait(ctx, c.sendTimeout); err != nil {
				if c.endpoint() == nil || c.isUnbind() {
					if sent > 0 {
						return sent, nil
					}
					return 0, ErrConnReset
				}
				if sent > 0 {
					return sent, nil
				}
				return 0, err
			}
			if c.endpoint() == nil || c.isUnbind() {
				if sent > 0 {
					return sent, nil
				}
				return 0, ErrConnReset
			}
			continue
		}

		ep := c.endpoint()
		if ep == nil {
			if sent > 0 {
				return sent, nil
			}
			return 0, ErrConnReset
		}

		buf, err := ep.GetTXBuffer(ctx)
		if err != nil {
			if sent > 0 {
				return sent, nil
			}
			return 0, err
		}

		c.recvLock.Lock()
		pos := c.recvPos
		c.recvLock.Unlock()
		prevLast := c.advertiseAck(pos)

		c.sendLock.Lock()
		space = c.sendSpaceLocked()
		remaining := total - sent
		block := remaining
		if block > int(space) {
			block = int(space)
		}
		if block > len(buf)-dataHeaderLen {
			block = len(buf) - dataHeaderLen
		}
		if block < 0 {
			block = 0
		}

		encodeDataHeader(buf[:dataHeaderLen], pos, uint32(block))
		copy(buf[dataHeaderLen:dataHeaderLen+block], p[sent:sent+block])

		prevSendPos := c.sendPos
		c.sendPos += uint32(block)
		c.sendLock.Unlock()

		if err := ep.SendNoCopy(buf[:dataHeaderLen+block]); err != nil {
			c.sendLock.Lock()
			c.sendPos = prevSendPos
			c.sendLock.Unlock()
			c.rollbackAck(prevLast)
			if sent > 0 {
				return sent, nil
			}
			return 0, err
		}

		sent += block
	}

	return sent, nil
}

// sendDatagram implements the single-shot datagram send path.
func (c *Connection) sendDatagram(ctx context.Context, p []byte, nonblock bool) (int, error) {
	header := dataHeaderLen
	total := len(p) + header + dgramLenLen

	c.sendLock.Lock()
	sendSize := c.sendSize
	c.sendLock.Unlock()

	if uint32(total) > sendSize {
		return 0, ErrTooBig
	}

	need := uint32(total - header)

	for {
		if c.endpoint() == nil || c.isUnbind() {
			return 0, ErrConnReset
		}

		c.sendLock.Lock()
		space := c.sendSpaceLocked()
		c.sendLock.Unlock()

		if space >= need {
			break
		}
		if nonblock {
			return 0, ErrAgain
		}
		c.sendSem.reset()
		if err := c.sendSem.wait(ctx, c.sendTimeout); err != nil {
			if c.endpoint() == nil || c.isUnbind() {
				return 0, ErrConnReset
			}
			return 0, err
		}
	}

	ep := c.endpoint()
	if ep == nil {
		return 0, ErrConnReset
	}

	buf, err := ep.GetTXBuffer(ctx)
	if err != nil {
		return 0, err
	}

	c.recvLock.Lock()
	pos := c.recvPos
	c.recvLock.Unlock()
	prevLast := c.advertiseAck(pos)

	c.sendLock.Lock()
	space := c.sendSpaceLocked()
	clamped := total
	if clamped > int(space)+header {
		clamped = int(space) + header
	}
	if clamped > len(buf) {
		clamped = len(buf)
	}
	length := clamped - header - dgramLenLen
	if length < 0 {
		length = 0
	}

	encodeDataHeader(buf[:header], pos, uint32(length))
	binary.LittleEndian.PutUint32(buf[header:header+dgramLenLen], uint32(length))
	copy(buf[header+dgramLenLen:header+dgramLenLen+length], p[:length])

	prevSendPos := c.sendPos
	c.sendPos += uint32(length + dgramLenLen)
	c.sendLock.Unlock()

	if err := ep.SendNoCopy(buf[:header+dgramLenLen+length]); err != nil {
		c.sendLock.Lock()
		c.sendPos = prevSendPos
		c.sendLock.Unlock()
		c.rollbackAck(prevLast)
		return 0, err
	}

	return length, nil
}

// recvStream implements the stream receive path.
func (c *Connection) recvStream(ctx context.Context, p []byte, nonblock bool) (int, error) {
	for {
		c.recvLock.Lock()
		if c.recvBuf.len() > 0 {
			n := c.recvBuf.read(p, len(p))
			c.recvPos += uint32(n)
			c.recvLock.Unlock()
			c.maybeSendAck(ctx)
			return n, nil
		}

		if c.endpoint() == nil || c.isUnbind() {
			c.recvLock.Unlock()
			return 0, ErrConnReset
		}

		if nonblock {
			c.recvLock.Unlock()
			return 0, ErrAgain
		}

		dr := &directRecv{buf: p}
		c.recvDirect = dr
		c.recvSem.reset()
		c.recvLock.Unlock()

		waitErr := c.recvSem.wait(ctx, c.recvTimeout)

		c.recvLock.Lock()
		consumed := c.recvDirect == nil
		if !consumed {
			c.recvDirect = nil
		}
		c.recvLock.Unlock()

		if c.endpoint() == nil || c.isUnbind() {
			return 0, ErrConnReset
		}
		if consumed {
			c.maybeSendAck(ctx)
			return dr.n, nil
		}
		if waitErr != nil {
			return 0, waitErr
		}
		// Spurious wake with nothing delivered via the fast path: loop back
		// and re-check the ring buffer (the bridge may have taken the
		// buffered path instead).
	}
}

// recvDatagram implements the datagram receive path.
func (c *Connection) recvDatagram(ctx context.Context, p []byte, nonblock bool) (int, error) {
	for {
		c.recvLock.Lock()
		if c.recvBuf.len() >= dgramLenLen {
			var lb [4]byte
			c.recvBuf.peek(lb[:], 0)
			dglen := binary.LittleEndian.Uint32(lb[:])
			if c.recvBuf.len() >= dgramLenLen+int(dglen) {
				c.recvBuf.discard(dgramLenLen)
				want := int(dglen)
				if want > len(p) {
					want = len(p)
				}
				n := c.recvBuf.read(p, want)
				if int(dglen) > want {
					c.recvBuf.discard(int(dglen) - want)
				}
				c.recvPos += dglen + dgramLenLen
				c.recvLock.Unlock()
				c.maybeSendAck(ctx)
				return n, nil
			}
		}

		if c.endpoint() == nil || c.isUnbind() {
			c.recvLock.Unlock()
			return 0, ErrConnReset
		}

		if nonblock {
			c.recvLock.Unlock()
			return 0, ErrAgain
		}

		dr := &directRecv{buf: p}
		c.recvDirect = dr
		c.recvSem.reset()
		c.recvLock.Unlock()

		waitErr := c.recvSem.wait(ctx, c.recvTimeout)

		c.recvLock.Lock()
		consumed := c.recvDirect == nil
		if !consumed {
			c.recvDirect = nil
		}
		c.recvLock.Unlock()

		if c.endpoint() == nil || c.isUnbind() {
			return 0, ErrConnReset
		}
		if consumed {
			c.maybeSendAck(ctx)
			return dr.n, nil
		}
		if waitErr != nil {
			return 0, waitErr
		}
	}
}
