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
	"net"
)

// Listener adapts a listening Connection to the standard net.Listener
// interface.
type Listener struct {
	c *Connection
}

var _ net.Listener = (*Listener)(nil)

// Listen binds addr and starts listening with the given backlog (0 uses
// cfg.DefaultBacklog).
func Listen(cfg *Config, sub Substrate, addr Addr, backlog int) (*Listener, error) {
	c := NewSocket(cfg, sub, SockStream)
	if err := c.Bind(addr); err != nil {
		return nil, opErr("listen", c, err)
	}
	if err := c.Listen(backlog); err != nil {
		return nil, opErr("listen", c, err)
	}
	return &Listener{c: c}, nil
}

func (l *Listener) Accept() (net.Conn, error) {
	child, err := l.c.Accept(context.Background(), false)
	if err != nil {
		return nil, opErr("accept", l.c, err)
	}
	return newConn(child), nil
}

func (l *Listener) Close() error { return opErr("close", l.c, l.c.Close()) }
func (l *Listener) Addr() net.Addr { return l.c.GetSockName() }
