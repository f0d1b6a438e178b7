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

package loopback

import (
	"context"
	"sync"

	"github.com/rpmsgsock/rpmsgsock/rpmsg"
)

// inboundFrame is one queued delivery.
type inboundFrame struct {
	data []byte
	src  rpmsg.Addr
}

// endpoint is a loopback rpmsg.Endpoint. Deliveries to it are serialized
// through a single per-endpoint goroutine draining inbox, so frame order is
// preserved even though SendNoCopy itself never blocks on the receiver.
type endpoint struct {
	device  *Device
	name    string
	dest    rpmsg.Addr
	handler rpmsg.EndpointHandler
	mtu     int

	mu        sync.Mutex
	peer      *endpoint
	destroyed bool

	inbox  chan inboundFrame
	stopCh chan struct{}
}

var _ rpmsg.Endpoint = (*endpoint)(nil)

func newEndpoint(device *Device, name string, dest rpmsg.Addr, handler rpmsg.EndpointHandler) *endpoint {
	e := &endpoint{
		device:  device,
		name:    name,
		dest:    dest,
		handler: handler,
		mtu:     device.mtu,
		inbox:   make(chan inboundFrame, 64),
		stopCh:  make(chan struct{}),
	}
	go e.deliverLoop()
	return e
}

func (e *endpoint) deliverLoop() {
	for {
		select {
		case f := <-e.inbox:
			e.handler.OnRecv(f.data, f.src)
		case <-e.stopCh:
			return
		}
	}
}

func (e *endpoint) Name() string { return e.name }
func (e *endpoint) MTU() int     { return e.mtu }

// DiagID satisfies rpmsg's optional diagnostic-endpoint interface, used to
// qualify the FIOC_FILEPATH ioctl string with the owning device's identity.
func (e *endpoint) DiagID() string { return e.device.id.String() }

func (e *endpoint) GetTXBuffer(ctx context.Context) ([]byte, error) {
	if err := e.device.sem.Acquire(ctx, 1); err != nil {
		return nil, rpmsg.ErrTimedOut
	}
	return make([]byte, e.mtu), nil
}

func (e *endpoint) ReleaseBuffer(_ []byte) {
	e.device.sem.Release(1)
}

// SendNoCopy hands buf to the linked peer's inbox. The buffer is copied
// once here (the loopback's one unavoidable copy, standing in for the real
// transport's DMA/shared-memory handoff) so the caller's GetTXBuffer slice
// remains theirs to reuse immediately after this call returns.
func (e *endpoint) SendNoCopy(buf []byte) error {
	defer e.device.sem.Release(1)

	e.mu.Lock()
	peer := e.peer
	destroyed := e.destroyed
	e.mu.Unlock()

	if destroyed {
		return rpmsg.ErrConnReset
	}
	if peer == nil {
		return rpmsg.ErrConnReset
	}

	peer.mu.Lock()
	gone := peer.destroyed
	peer.mu.Unlock()
	if gone {
		return rpmsg.ErrConnReset
	}

	frame := make([]byte, len(buf))
	copy(frame, buf)
	src := rpmsg.Addr{CPU: e.device.local.cpu, Name: e.name}

	select {
	case peer.inbox <- inboundFrame{data: frame, src: src}:
		return nil
	default:
		return rpmsg.ErrBusy
	}
}

func (e *endpoint) Destroy() error {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return nil
	}
	e.destroyed = true
	peer := e.peer
	e.peer = nil
	e.mu.Unlock()

	close(e.stopCh)
	e.device.local.unregister(e.name)

	if peer != nil {
		peer.mu.Lock()
		peer.peer = nil
		handler := peer.handler
		peer.mu.Unlock()
		handler.OnUnbind()
	}
	return nil
}
