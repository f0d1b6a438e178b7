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
	"sync"
	"sync/atomic"
	"time"

	liblog "github.com/nabbar/golib/logger"
	logcfg "github.com/nabbar/golib/logger/config"
	loglvl "github.com/nabbar/golib/logger/level"
)

// Role is a tagged variant standing in for the reference driver's
// signed-integer backlog tag, which overloaded one field to mean both
// "listen backlog depth" and "connection role".
type Role int

const (
	RoleUnbound Role = iota
	RoleBound
	RoleListening
	RoleListenClosed
	RoleAccepted
	RoleClient
)

func (r Role) String() string {
	switch r {
	case RoleUnbound:
		return "unbound"
	case RoleBound:
		return "bound"
	case RoleListening:
		return "listening"
	case RoleListenClosed:
		return "listen-closed"
	case RoleAccepted:
		return "accepted"
	case RoleClient:
		return "client"
	default:
		return "unknown"
	}
}

// SockType distinguishes the two socket types this package supports.
type SockType int

const (
	SockStream SockType = iota
	SockDgram
)

// directRecv is the fast-path target published by a blocked reader so the
// bridge can copy straight into user memory, skipping the ring buffer.
type directRecv struct {
	buf []byte
	n   int // bytes actually copied by the bridge
}

// PollEvent is a bitmask of readiness conditions, analogous to poll(2)'s
// POLLIN/POLLOUT/POLLHUP.
type PollEvent uint32

const (
	PollIn PollEvent = 1 << iota
	PollOut
	PollErr
	PollHup
)

// pollWaiter is one registered poll slot.
type pollWaiter struct {
	events  PollEvent
	revents PollEvent
	notify  chan struct{}
}

// Connection is the per-socket state: identity, role,
// buffers, flow-control counters, wait primitives, poll slots, peer
// credentials, reference count, and the accept queue.
type Connection struct {
	cfg       *Config
	substrate Substrate
	log       liblog.Logger

	sockType SockType

	// stateLock guards role, local/remote address, suffix and the endpoint
	// handle's lifecycle bookkeeping (but not the buffer/credit fields,
	// which have their own locks).
	stateLock sync.Mutex
	role      Role
	local     Addr
	remote    Addr
	suffix    string
	ep        Endpoint
	unbind    bool
	connected bool
	cred      Ucred

	sendLock sync.Mutex
	sendSize uint32
	sendPos  uint32
	ackPos   uint32
	sendSem  *levelSema

	// connectSem wakes a blocked connect() once the SYNC handshake completes
	// (or markUnbind fires it to unblock on reset).
	connectSem *levelSema

	recvLock   sync.Mutex
	recvBuf    ringBuffer
	recvPos    uint32
	lastPos    uint32
	recvDirect *directRecv
	recvSem    *levelSema

	pollLock  sync.Mutex
	pollSlots []*pollWaiter

	refs int32

	// accept queue: server-only, a singly linked list of accepted-but-not-
	// yet-returned connections, chained through next and only traversed
	// under the server's recvLock.
	acceptHead *Connection
	acceptTail *Connection
	next       *Connection
	backlog    int

	sendTimeout    time.Duration
	recvTimeout    time.Duration
	connectTimeout time.Duration

	unregister []func()

	closed bool
}

// NewConnection allocates a Connection in the Unbound role: zero-initialized
// ring buffer (capacity 0, resized lazily), fresh locks, all three semaphores at
// level 0, empty poll slots, refs = 1.
func NewConnection(cfg *Config, sub Substrate, st SockType) *Connection {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := &Connection{
		cfg:            cfg,
		substrate:      sub,
		sockType:       st,
		role:           RoleUnbound,
		sendSem:        newLevelSema(),
		recvSem:        newLevelSema(),
		connectSem:     newLevelSema(),
		pollSlots:      make([]*pollWaiter, cfg.PollSlots),
		refs:           1,
		sendTimeout:    cfg.SendTimeout,
		recvTimeout:    cfg.RecvTimeout,
		connectTimeout: cfg.ConnectTimeout,
	}
	lg := liblog.New(context.Background())
	lg.SetLevel(loglvl.WarnLevel)
	_ = lg.SetOptions(&logcfg.Options{Stdout: &logcfg.OptionsStd{EnableTrace: false}})
	c.log = lg
	return c
}

func (c *Connection) addRef() {
	atomic.AddInt32(&c.refs, 1)
}

// release decrements the reference count and reports whether this was the
// last reference (i.e. the caller must now tear the connection down).
func (c *Connection) release() bool {
	return atomic.AddInt32(&c.refs, -1) == 0
}

// sendSpaceLocked returns sendSize - (sendPos - ackPos), the credit available to
// this side. Callers must hold sendLock.
func (c *Connection) sendSpaceLocked() uint32 {
	used := c.sendPos - c.ackPos
	if used > c.sendSize {
		return 0
	}
	return c.sendSize - used
}

// postSendable wakes the send semaphore and notifies poll waiters that the
// socket may now be writable. It must not be called while holding sendLock.
func (c *Connection) postSendable() {
	c.sendSem.post()
	c.notifyWritable()
}

// postReceivable wakes the recv semaphore and notifies poll waiters that
// data may now be available. It must not be called while holding recvLock.
func (c *Connection) postReceivable() {
	c.recvSem.post()
	c.notifyReadable()
}

// markUnbind flags the connection as reset and wakes every waiter so
// blocked operations observe the reset rather than hang.
func (c *Connection) markUnbind() {
	c.stateLock.Lock()
	already := c.unbind
	c.unbind = true
	c.stateLock.Unlock()

	if already {
		return
	}

	c.sendSem.post()
	c.recvSem.post()
	c.connectSem.post()
	c.notifyReadable()
	c.notifyWritable()
	c.notifyHangup()
}

func (c *Connection) isUnbind() bool {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()
	return c.unbind
}

func (c *Connection) getRole() Role {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()
	return c.role
}

func (c *Connection) setRole(r Role) {
	c.stateLock.Lock()
	c.role = r
	c.stateLock.Unlock()
}

func (c *Connection) isConnected() bool {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()
	return c.connected
}

func (c *Connection) endpoint() Endpoint {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()
	return c.ep
}

func (c *Connection) setEndpoint(ep Endpoint) {
	c.stateLock.Lock()
	c.ep = ep
	c.stateLock.Unlock()
}

// enqueueAccept appends child to the server's accept queue and reports the
// resulting queue length. Callers must hold c.recvLock (the server's).
func (c *Connection) enqueueAccept(child *Connection) int {
	n := 1
	if c.acceptHead == nil {
		c.acceptHead = child
		c.acceptTail = child
	} else {
		c.acceptTail.next = child
		c.acceptTail = child
		for p := c.acceptHead; p != child; p = p.next {
			n++
		}
	}
	return n
}

// dequeueAccept pops and returns the head of the server's accept queue, or
// nil if empty. Callers must hold c.recvLock (the server's).
func (c *Connection) dequeueAccept() *Connection {
	h := c.acceptHead
	if h == nil {
		return nil
	}
	c.acceptHead = h.next
	if c.acceptHead == nil {
		c.acceptTail = nil
	}
	h.next = nil
	return h
}

func (c *Connection) acceptQueueLen() int {
	n := 0
	for p := c.acceptHead; p != nil; p = p.next {
		n++
	}
	return n
}
