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

func deadlineCtx(d time.Time) (context.Context, context.CancelFunc) {
	if d.IsZero() {
		return context.Background(), func() {}
	}
	return context.WithDeadline(context.Background(), d)
}

func opErr(op string, c *Connection, err error) error {
	if err == nil {
		return nil
	}
	return &net.OpError{Op: op, Net: Network, Source: c.GetSockName(), Addr: c.GetConnName(), Err: err}
}

// Conn adapts a stream Connection to the standard net.Conn interface.
type Conn struct {
	c  *Connection
	mu sync.Mutex
	rd time.Time
	wd time.Time
}

var _ net.Conn = (*Conn)(nil)

func newConn(c *Connection) *Conn { return &Conn{c: c} }

// Dial connects a new stream socket to dest over sub, blocking until the
// SYNC handshake completes or ctx is done.
func Dial(ctx context.Context, cfg *Config, sub Substrate, dest Addr) (*Conn, error) {
	c := NewSocket(cfg, sub, SockStream)
	if err := c.Connect(ctx, dest, false); err != nil {
		return nil, opErr("dial", c, err)
	}
	return newConn(c), nil
}

func (k *Conn) readDeadline() time.Time {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.rd
}

func (k *Conn) writeDeadline() time.Time {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.wd
}

func (k *Conn) Read(p []byte) (int, error) {
	ctx, cancel := deadlineCtx(k.readDeadline())
	defer cancel()
	n, err := k.c.RecvMsg(ctx, p, false)
	if err != nil {
		if errors.Is(err, ErrConnReset) || errors.Is(err, ErrClosed) {
			return n, io.EOF
		}
		return n, opErr("read", k.c, err)
	}
	return n, nil
}

func (k *Conn) Write(p []byte) (int, error) {
	ctx, cancel := deadlineCtx(k.writeDeadline())
	defer cancel()
	n, err := k.c.SendMsg(ctx, p, false)
	if err != nil {
		return n, opErr("write", k.c, err)
	}
	return n, nil
}

func (k *Conn) Close() error { return opErr("close", k.c, k.c.Close()) }

func (k *Conn) LocalAddr() net.Addr  { return k.c.GetSockName() }
func (k *Conn) RemoteAddr() net.Addr { return k.c.GetConnName() }

func (k *Conn) SetDeadline(t time.Time) error {
	k.mu.Lock()
	k.rd, k.wd = t, t
	k.mu.Unlock()
	return nil
}

func (k *Conn) SetReadDeadline(t time.Time) error {
	k.mu.Lock()
	k.rd = t
	k.mu.Unlock()
	return nil
}

func (k *Conn) SetWriteDeadline(t time.Time) error {
	k.mu.Lock()
	k.wd = t
	k.mu.Unlock()
	return nil
}
