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

// ringBuffer is a fixed-capacity circular byte buffer. It starts with zero
// capacity and is resized once, lazily, on connect/ns-bind. It is not
// safe for concurrent use; callers serialize access under Connection.recvLock.
type ringBuffer struct {
	buf   []byte
	head  int // next byte to read
	tail  int // next free slot to write
	count int // bytes currently stored
}

// resize grows the buffer to the given capacity, preserving any bytes
// already stored. A capacity no larger than the current one is a no-op: the
// buffer never shrinks.
func (r *ringBuffer) resize(capacity int) {
	if capacity <= len(r.buf) {
		return
	}
	nb := make([]byte, capacity)
	n := r.read(nb, r.count)
	r.buf = nb
	r.head = 0
	r.tail = n % capacity
	r.count = n
}

func (r *ringBuffer) cap() int { return len(r.buf) }

func (r *ringBuffer) len() int { return r.count }

func (r *ringBuffer) free() int { return len(r.buf) - r.count }

// write appends p to the buffer, truncating silently if there is not enough
// free space; an overflow is logged by the caller and silently truncated.
// It returns the number of bytes actually stored.
func (r *ringBuffer) write(p []byte) int {
	n := len(p)
	if n > r.free() {
		n = r.free()
	}
	for i := 0; i < n; i++ {
		r.buf[r.tail] = p[i]
		r.tail = (r.tail + 1) % len(r.buf)
	}
	r.count += n
	return n
}

// read copies up to len(p) bytes out of the buffer into p, advancing head,
// without discarding bytes it did not copy.
func (r *ringBuffer) read(p []byte, want int) int {
	if want > r.count {
		want = r.count
	}
	if want > len(p) {
		want = len(p)
	}
	for i := 0; i < want; i++ {
		p[i] = r.buf[r.head]
		r.head = (r.head + 1) % max1(len(r.buf))
	}
	r.count -= want
	return want
}

// discard drops up to n bytes from the front of the buffer without copying
// them anywhere, used when a datagram's declared length exceeds the
// caller's buffer.
func (r *ringBuffer) discard(n int) int {
	if n > r.count {
		n = r.count
	}
	r.head = (r.head + n) % max1(len(r.buf))
	r.count -= n
	return n
}

// peek copies up to len(p) bytes starting at offset off from the front of
// the buffer, without consuming them. Used to read a 4-byte datagram length
// prefix before deciding how much to read/discard.
func (r *ringBuffer) peek(p []byte, off int) int {
	n := len(p)
	if off+n > r.count {
		n = r.count - off
	}
	if n <= 0 {
		return 0
	}
	for i := 0; i < n; i++ {
		p[i] = r.buf[(r.head+off+i)%len(r.buf)]
	}
	return n
}

func max1(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}
