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
	"errors"
	"io"
	"net"
	"sync"
	"time"
)

// PacketConn adapts a datagram Connection to the standard net.PacketConn
// interface. Unlike a UDP socket, the underlying RPMsg datagram channel is
// point-to-point: WriteTo rejects any address other than the connected
// peer, and ReadFrom always reports that same peer.
type PacketConn struct {
	c  *Connection
	mu sync.Mutex
	rd time.Time
	wd time.Time
}

var _ net.PacketConn = (*PacketConn)(nil)

// DialPacket connects a new datagram socket to dest over sub, blocking
// until the SYNC handshake completes or ctx is done.
func DialPacket(ctx context.Context, cfg *Config, sub Substrate, dest Addr) (*PacketConn, error) {
	c := NewSocket(cfg, sub, SockDgram)
	if err := c.Connect(ctx, dest, false); err != nil {
		return nil, opErr("dial", c, err)
	}
	return &PacketConn{c: c}, nil
}

func (k *PacketConn) readDeadline() time.Time {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.rd
}

func (k *PacketConn) writeDeadline() time.Time {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.wd
}

func (k *PacketConn) ReadFrom(p []byte) (int, net.Addr, error) {
	ctx, cancel := deadlineCtx(k.readDeadline())
	defer cancel()
	n, err := k.c.RecvMsg(ctx, p, false)
	addr := k.c.GetConnName()
	if err != nil {
		if errors.Is(err, ErrConnReset) || errors.Is(err, ErrClosed) {
			return n, addr, io.EOF
		}
		return n, addr, opErr("read", k.c, err)
	}
	return n, addr, nil
}

func (k *PacketConn) WriteTo(p []byte, addr net.Addr) (int, error) {
	if addr != nil {
		if a, ok := addr.(Addr); !ok || a != k.c.GetConnName() {
			return 0, opErr("write", k.c, ErrNotConnected)
		}
	}
	ctx, cancel := deadlineCtx(k.writeDeadline())
	defer cancel()
	n, err := k.c.SendMsg(ctx, p, false)
	if err != nil {
		return n, opErr("write", k.c, err)
	}
	return n, nil
}

func (k *PacketConn) Close() error         { return opErr("close", k.c, k.c.Close()) }
func (k *PacketConn) LocalAddr() net.Addr  { return k.c.GetSockName() }

func (k *PacketConn) SetDeadline(t time.Time) error {
	k.mu.Lock()
	k.rd, k.wd = t, t
	k.mu.Unlock()
	return nil
}

func (k *PacketConn) SetReadDeadline(t time.Time) error {
	k.mu.Lock()
	k.rd = t
	k.mu.Unlock()
	return nil
}

func (k *PacketConn) SetWriteDeadline(t time.Time) error {
	k.mu.Lock()
	k.wd = t
	k.mu.Unlock()
	return nil
}
