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

// This file is the endpoint bridge: it implements
// EndpointHandler and NameService directly on *Connection, translating
// substrate callbacks (OnRecv/OnBound/OnUnbind, Match/Bind) into connection
// state transitions and ring-buffer/credit bookkeeping.
package rpmsg

import (
	"context"
	"os"
	"strings"
)

var _ EndpointHandler = (*Connection)(nil)
var _ NameService = (*Connection)(nil)

// OnRecv dispatches an inbound frame by its command discriminator.
func (c *Connection) OnRecv(data []byte, src Addr) {
	cmd, err := frameCmd(data)
	if err != nil {
		c.log.Warning("dropping short frame", err)
		return
	}

	switch cmd {
	case cmdSync:
		sf, err := decodeSync(data)
		if err != nil {
			c.log.Warning("dropping malformed SYNC frame", err)
			return
		}
		c.handleSync(sf, src)
	case cmdData:
		c.handleData(data)
	default:
		c.log.Warning("dropping frame with unknown command", map[string]interface{}{"cmd": cmd})
	}
}

// OnBound fires once the client's destination endpoint has come up on the
// remote side; it is the client's cue to transmit the first SYNC.
func (c *Connection) OnBound() {
	if c.getRole() != RoleClient || c.isConnected() {
		return
	}
	if err := c.sendSync(); err != nil {
		c.log.Warning("failed to send initial SYNC", ErrorFilter(err))
		c.markUnbind()
	}
}

// OnUnbind fires when the peer endpoint vanishes or the owning device goes
// down; it resets the connection and wakes every blocked operation.
func (c *Connection) OnUnbind() {
	c.markUnbind()
}

// Match implements NameService for a listening connection: an incoming
// endpoint announcement is ours iff its declared name starts with our
// "sk:"-prefixed service name and, when we were bound to a specific CPU,
// the announcing peer's CPU matches that binding.
func (c *Connection) Match(name string, dest Addr) bool {
	if c.getRole() != RoleListening {
		return false
	}
	c.stateLock.Lock()
	svc := c.local.Name
	boundCPU := c.local.CPU
	c.stateLock.Unlock()

	if !strings.HasPrefix(name, EndpointPrefix+svc) {
		return false
	}
	if boundCPU != "" && dest.CPU != boundCPU {
		return false
	}
	return true
}

// Bind implements NameService: it creates the accepting endpoint addressed
// back at src first, then enforces the listener's backlog. A connection
// that would overflow the backlog is destroyed immediately after creation
// rather than refused beforehand, so the connecting peer observes
// connection-reset instead of hanging until its own connect timeout. The
// SYNC handshake itself is completed reactively in handleSync once the
// client's SYNC arrives.
func (c *Connection) Bind(name string, src Addr, dev Device) {
	if c.getRole() != RoleListening {
		return
	}

	c.stateLock.Lock()
	ownCPU := c.local.CPU
	c.stateLock.Unlock()

	child := NewConnection(c.cfg, c.substrate, c.sockType)
	child.setRole(RoleAccepted)
	child.stateLock.Lock()
	child.local = Addr{CPU: ownCPU, Name: src.Name}
	child.remote = src
	child.stateLock.Unlock()
	child.recvBuf.resize(c.cfg.RXBufferSize)

	// The accepting endpoint is named after the client's own (already
	// globally unique) address rather than the bare service name, so that
	// concurrent connects to the same service never collide in the
	// substrate's endpoint namespace.
	ep, err := dev.CreateEndpoint(src.Name, src, child)
	if err != nil {
		c.log.Warning("failed to create accepting endpoint", err)
		return
	}
	child.setEndpoint(ep)

	c.recvLock.Lock()
	full := c.backlog > 0 && c.acceptQueueLen() >= c.backlog
	if !full {
		c.enqueueAccept(child)
	}
	c.recvLock.Unlock()

	if full {
		c.log.Warning("refusing connection: backlog full", map[string]interface{}{"from": src.String()})
		_ = child.Close()
		return
	}

	c.postReceivable()
}

// handleSync applies an inbound SYNC frame: the first SYNC from a peer
// finalizes sendSize/cred and marks the connection established; a
// server-accepted connection additionally sends its own SYNC in reply,
// completing the handshake the client started from OnBound.
func (c *Connection) handleSync(sf syncFrame, src Addr) {
	c.stateLock.Lock()
	if c.connected {
		c.stateLock.Unlock()
		return
	}
	role := c.role
	c.cred = sf.Cred
	c.stateLock.Unlock()

	c.sendLock.Lock()
	c.sendSize = sf.Size
	c.sendLock.Unlock()

	if role == RoleAccepted {
		if err := c.sendSync(); err != nil {
			c.log.Warning("failed to send reply SYNC", ErrorFilter(err))
			c.markUnbind()
			return
		}
	}

	c.stateLock.Lock()
	c.connected = true
	c.stateLock.Unlock()

	c.connectSem.post()
	c.postSendable()
	c.postReceivable()
}

// sendSync transmits a SYNC frame announcing our own receive capacity and
// credentials.
func (c *Connection) sendSync() error {
	ep := c.endpoint()
	if ep == nil {
		return ErrConnReset
	}

	cred := Ucred{PID: uint32(os.Getpid()), UID: uint32(os.Getuid()), GID: uint32(os.Getgid())}
	frame := encodeSync(uint32(c.recvBuf.cap()), cred)

	tx, err := ep.GetTXBuffer(context.Background())
	if err != nil {
		return err
	}
	n := len(frame)
	if n > len(tx) {
		n = len(tx)
	}
	copy(tx[:n], frame[:n])
	return ep.SendNoCopy(tx[:n])
}

// handleData applies an inbound DATA frame: its pos field always updates
// our send credit (recordPeerAck), and if it carries a payload the frame is
// delivered to a blocked direct reader or buffered for a later recv call.
func (c *Connection) handleData(raw []byte) {
	df, err := decodeData(raw)
	if err != nil {
		c.log.Warning("dropping malformed DATA frame", err)
		return
	}

	c.recordPeerAck(df.Pos)

	expected := int(df.Len)
	if c.sockType == SockDgram {
		expected += dgramLenLen
	}
	if len(df.Payload) != expected {
		c.log.Warning("dropping DATA frame with inconsistent length ratio", map[string]interface{}{
			"declared": df.Len,
			"actual":   len(df.Payload),
		})
		return
	}

	if len(df.Payload) == 0 {
		return
	}

	if c.sockType == SockDgram {
		c.deliverDatagramPayload(df.Payload)
	} else {
		c.deliverStreamPayload(df.Payload)
	}
}

// deliverStreamPayload hands bytes to a blocked direct reader first, then
// buffers any remainder in the ring buffer, giving byte-stream sockets a
// fast path for an already-blocked reader and a buffered fallback
// otherwise.
func (c *Connection) deliverStreamPayload(payload []byte) {
	c.recvLock.Lock()

	consumed := 0
	if c.recvDirect != nil {
		dr := c.recvDirect
		n := len(dr.buf)
		if n > len(payload) {
			n = len(payload)
		}
		copy(dr.buf[:n], payload[:n])
		dr.n = n
		c.recvDirect = nil
		consumed = n
	}

	remainder := payload[consumed:]
	buffered := 0
	if len(remainder) > 0 {
		if c.recvBuf.free() < len(remainder) {
			c.log.Warning("receive buffer overflow, truncating inbound stream data", nil)
		}
		buffered = c.recvBuf.write(remainder)
	}

	c.recvPos += uint32(consumed)
	woke := consumed > 0
	c.recvLock.Unlock()

	if woke {
		c.recvSem.post()
	}
	if buffered > 0 {
		c.postReceivable()
	}
}

// deliverDatagramPayload hands a whole datagram to a blocked direct reader
// (stripping the 4-byte length prefix) or buffers the frame, prefix
// included, for the buffered receive path to parse. A datagram that cannot
// fit the ring buffer is dropped whole rather than split.
func (c *Connection) deliverDatagramPayload(payload []byte) {
	c.recvLock.Lock()

	if c.recvDirect != nil {
		dr := c.recvDirect
		data := payload[dgramLenLen:]
		n := len(dr.buf)
		if n > len(data) {
			n = len(data)
		}
		copy(dr.buf[:n], data[:n])
		dr.n = n
		c.recvDirect = nil
		c.recvPos += uint32(len(payload))
		c.recvLock.Unlock()
		c.recvSem.post()
		return
	}

	if c.recvBuf.free() < len(payload) {
		c.log.Warning("receive buffer overflow, dropping inbound datagram", nil)
		c.recvLock.Unlock()
		return
	}
	c.recvBuf.write(payload)
	c.recvLock.Unlock()
	c.postReceivable()
}
