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

// This file is the socket vtable: bind, listen, connect, accept,
// sendmsg, recvmsg, close, and the handful of getsockopt/ioctl knobs,
// layered on the connection/flow/bridge primitives in the rest of the
// package.
package rpmsg

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"
)

// NewSocket allocates a fresh, unbound socket of the given type against the
// given substrate.
func NewSocket(cfg *Config, sub Substrate, st SockType) *Connection {
	return NewConnection(cfg, sub, st)
}

// Bind assigns a local address. The socket must be freshly created.
func (c *Connection) Bind(addr Addr) error {
	if c.getRole() != RoleUnbound {
		return ErrInvalid
	}
	if addr.Name == "" {
		return ErrInvalid
	}
	c.stateLock.Lock()
	c.local = addr
	c.stateLock.Unlock()
	c.setRole(RoleBound)
	return nil
}

// GetSockName returns the local address, zero-valued if unbound.
func (c *Connection) GetSockName() Addr {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()
	return c.local
}

// GetConnName returns the peer address: the destination given to Connect
// for a client (stored before the handshake completes), the connecting
// peer for an accepted connection, and the zero value otherwise.
func (c *Connection) GetConnName() Addr {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()
	return c.remote
}

// Listen transitions a bound socket to Listening and publishes it as a
// NameService on the substrate so inbound connects can be matched.
func (c *Connection) Listen(backlog int) error {
	if c.getRole() != RoleBound {
		return ErrInvalid
	}
	if backlog <= 0 {
		backlog = c.cfg.DefaultBacklog
	}

	c.recvLock.Lock()
	c.backlog = backlog
	c.recvLock.Unlock()

	c.setRole(RoleListening)

	unreg := c.substrate.RegisterNameService(c)
	c.stateLock.Lock()
	c.unregister = append(c.unregister, unreg)
	c.stateLock.Unlock()
	return nil
}

// Accept blocks (unless nonblock is set) until an incoming connection is
// queued, or the listener is closed. A dequeued connection whose SYNC has
// not arrived yet is waited on (bounded by the connect timeout) before it
// is returned.
func (c *Connection) Accept(ctx context.Context, nonblock bool) (*Connection, error) {
	role := c.getRole()
	if role != RoleListening && role != RoleListenClosed {
		return nil, ErrInvalid
	}

	for {
		c.recvLock.Lock()
		child := c.dequeueAccept()
		c.recvLock.Unlock()
		if child != nil {
			if !child.isConnected() {
				if err := child.connectSem.wait(ctx, child.connectTimeout); err != nil {
					_ = child.Close()
					return nil, err
				}
				if !child.isConnected() {
					_ = child.Close()
					return nil, ErrConnReset
				}
			}
			return child, nil
		}

		if c.getRole() == RoleListenClosed {
			return nil, ErrConnReset
		}
		if nonblock {
			return nil, ErrAgain
		}

		c.recvSem.reset()
		if err := c.recvSem.wait(ctx, c.recvTimeout); err != nil {
			if c.getRole() == RoleListenClosed {
				return nil, ErrConnReset
			}
			return nil, err
		}
	}
}

// Connect assigns a unique local name if necessary, waits for a device
// reaching dest.CPU, creates the connecting endpoint against it, and — for
// a blocking connect — waits out the SYNC handshake driven by bridge.go.
// A non-blocking connect returns ErrInProgress immediately; the caller is
// expected to poll for writability/hangup afterwards.
func (c *Connection) Connect(ctx context.Context, dest Addr, nonblock bool) error {
	if c.isConnected() {
		return ErrIsConnected
	}
	role := c.getRole()
	if role != RoleUnbound && role != RoleBound {
		return ErrIsConnected
	}

	c.stateLock.Lock()
	base := c.local.Name
	if base == "" {
		base = dest.Name
	}
	name := base
	if c.sockType == SockStream {
		name = base + nextSuffix()
	}
	c.local = Addr{CPU: c.substrate.LocalCPU(), Name: name}
	c.remote = dest
	c.stateLock.Unlock()

	c.recvBuf.resize(c.cfg.RXBufferSize)
	c.setRole(RoleClient)

	unregCreated := c.substrate.OnDeviceCreated(dest.CPU, func(dev Device) {
		c.stateLock.Lock()
		already := c.ep != nil
		localName := c.local.Name
		c.stateLock.Unlock()
		if already {
			return
		}
		ep, err := dev.CreateEndpoint(localName, dest, c)
		if err != nil {
			c.log.Warning("failed to create connecting endpoint", err)
			c.markUnbind()
			return
		}
		c.setEndpoint(ep)
	})
	unregDestroyed := c.substrate.OnDeviceDestroyed(dest.CPU, func(Device) {
		c.markUnbind()
	})
	c.stateLock.Lock()
	c.unregister = append(c.unregister, unregCreated, unregDestroyed)
	c.stateLock.Unlock()

	if nonblock {
		return ErrInProgress
	}

	waitCtx := ctx
	if c.connectTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.connectTimeout)
		defer cancel()
	}

	if err := c.connectSem.wait(waitCtx, 0); err != nil {
		return err
	}
	if c.isUnbind() {
		return ErrConnReset
	}
	if !c.isConnected() {
		return ErrTimedOut
	}
	return nil
}

// SendMsg routes to the stream or datagram send path depending on SockType.
func (c *Connection) SendMsg(ctx context.Context, p []byte, nonblock bool) (int, error) {
	if c.getRole() == RoleUnbound || c.getRole() == RoleBound {
		return 0, ErrNotConnected
	}
	if !c.isConnected() {
		if c.isUnbind() {
			return 0, ErrConnReset
		}
		return 0, ErrNotConnected
	}
	if c.sockType == SockDgram {
		return c.sendDatagram(ctx, p, nonblock)
	}
	return c.sendStream(ctx, p, nonblock)
}

// RecvMsg routes to the stream or datagram receive path depending on
// SockType.
func (c *Connection) RecvMsg(ctx context.Context, p []byte, nonblock bool) (int, error) {
	if c.getRole() == RoleUnbound || c.getRole() == RoleBound {
		return 0, ErrNotConnected
	}
	if !c.isConnected() {
		if c.isUnbind() {
			return 0, ErrConnReset
		}
		return 0, ErrNotConnected
	}
	if c.sockType == SockDgram {
		return c.recvDatagram(ctx, p, nonblock)
	}
	return c.recvStream(ctx, p, nonblock)
}

// Close decrements the connection's reference count and, only once it
// reaches zero, tears the socket down: a listener rejects its
// queued-but-unaccepted children and unpublishes its NameService; any other
// socket unbinds and destroys its endpoint. Close is idempotent.
func (c *Connection) Close() error {
	if !c.release() {
		return nil
	}

	c.stateLock.Lock()
	if c.closed {
		c.stateLock.Unlock()
		return nil
	}
	c.closed = true
	role := c.role
	ep := c.ep
	unregs := c.unregister
	c.unregister = nil
	c.stateLock.Unlock()

	for _, u := range unregs {
		u()
	}

	if role == RoleListening || role == RoleListenClosed {
		c.setRole(RoleListenClosed)
		c.recvLock.Lock()
		var pending []*Connection
		for child := c.dequeueAccept(); child != nil; child = c.dequeueAccept() {
			pending = append(pending, child)
		}
		c.recvLock.Unlock()
		for _, child := range pending {
			child.markUnbind()
			_ = child.Close()
		}
		c.recvSem.post()
		c.notifyAll()
		return nil
	}

	c.markUnbind()
	if ep != nil {
		return ErrorFilter(ep.Destroy())
	}
	return nil
}

// SockOpt names one of the few socket options this package understands.
type SockOpt int

const (
	SockOptSendTimeout SockOpt = iota
	SockOptRecvTimeout
)

// SetSockOpt sets a timeout option (SO_SNDTIMEO/SO_RCVTIMEO equivalents).
func (c *Connection) SetSockOpt(opt SockOpt, d time.Duration) error {
	switch opt {
	case SockOptSendTimeout:
		c.sendTimeout = d
	case SockOptRecvTimeout:
		c.recvTimeout = d
	default:
		return ErrNoProtoOpt
	}
	return nil
}

// GetSockOpt reads back a timeout option.
func (c *Connection) GetSockOpt(opt SockOpt) (time.Duration, error) {
	switch opt {
	case SockOptSendTimeout:
		return c.sendTimeout, nil
	case SockOptRecvTimeout:
		return c.recvTimeout, nil
	default:
		return 0, ErrNoProtoOpt
	}
}

// PeerCred is the SOL_SOCKET/SO_PEERCRED equivalent: the credentials carried
// by the peer's SYNC frame. It is read-only, hence kept separate from
// Set/GetSockOpt's duration-valued options rather than forced into the same
// enum.
func (c *Connection) PeerCred() (Ucred, error) {
	if !c.isConnected() {
		return Ucred{}, ErrNotConnected
	}
	c.stateLock.Lock()
	defer c.stateLock.Unlock()
	return c.cred, nil
}

// IoctlCmd enumerates the handful of ioctl requests this address family
// understands (FIONREAD, FIONSPACE, FIOC_FILEPATH); every other request
// code is ENOTTY, matching the reference driver.
type IoctlCmd uint

const (
	FIONREAD IoctlCmd = iota + 1
	FIONSPACE
	FIOCFilePath
)

// Ioctl dispatches one of the known commands, writing its result into out
// and returning the number of bytes written. FIONREAD/FIONSPACE write a
// little-endian uint32 byte count; FIOC_FILEPATH writes (and truncates to
// len(out)) a diagnostic path string describing the connection.
func (c *Connection) Ioctl(cmd IoctlCmd, out []byte) (int, error) {
	switch cmd {
	case FIONREAD:
		c.recvLock.Lock()
		n := c.recvBuf.len()
		c.recvLock.Unlock()
		return putIoctlUint32(out, uint32(n))
	case FIONSPACE:
		c.sendLock.Lock()
		n := c.sendSpaceLocked()
		c.sendLock.Unlock()
		return putIoctlUint32(out, n)
	case FIOCFilePath:
		return copy(out, c.filePath()), nil
	default:
		return 0, ErrNotTTY
	}
}

func putIoctlUint32(out []byte, v uint32) (int, error) {
	if len(out) < 4 {
		return 0, ErrInvalid
	}
	binary.LittleEndian.PutUint32(out[0:4], v)
	return 4, nil
}

// filePath renders the FIOC_FILEPATH diagnostic string: the reference
// driver's "rpmsg:[...]" form, qualified with a transport-supplied
// diagnostic identifier when the underlying Endpoint exposes one (see
// transport/loopback's DiagID).
func (c *Connection) filePath() string {
	c.stateLock.Lock()
	role, local, remote, ep := c.role, c.local, c.remote, c.ep
	c.stateLock.Unlock()

	var path string
	if role == RoleClient {
		path = fmt.Sprintf("rpmsg:[%s<->%s:[%s]]", local.CPU, remote.String(), local.Name)
	} else {
		path = fmt.Sprintf("rpmsg:[%s:[%s]<->%s]", local.CPU, local.Name, remote.String())
	}

	if d, ok := ep.(diagEndpoint); ok {
		path = fmt.Sprintf("%s#%s", path, d.DiagID())
	}
	return path
}
