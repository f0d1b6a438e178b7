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
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/rpmsgsock/rpmsgsock/rpmsg"
)

const (
	// txDescriptors bounds the number of transmit buffers concurrently
	// outstanding per device, standing in for a real vring's fixed
	// descriptor count.
	txDescriptors = 8
	defaultMTU    = 512
)

// Device is a loopback implementation of rpmsg.Device: the channel from one
// node to a specific peer node. id is a diagnostic identifier surfaced
// through ID(), useful for logging which of several loopback devices a log
// line refers to.
type Device struct {
	id    uuid.UUID
	local *Node
	peer  *Node
	sem   *semaphore.Weighted
	mtu   int
}

var _ rpmsg.Device = (*Device)(nil)

func newDevice(local, peer *Node) *Device {
	return &Device{
		id:    uuid.New(),
		local: local,
		peer:  peer,
		sem:   semaphore.NewWeighted(txDescriptors),
		mtu:   defaultMTU,
	}
}

// ID returns this device's diagnostic identifier.
func (d *Device) ID() uuid.UUID { return d.id }

func (d *Device) CPUName() string { return d.peer.cpu }

// CreateEndpoint registers a new local endpoint and attempts to resolve it
// against dest: first by direct lookup (dest already names a concrete
// endpoint on the peer node), otherwise by offering ("sk:"+dest.Name, our own
// address) to the peer node's registered name services. Either way, a
// match links the two endpoints and fires our handler's OnBound.
func (d *Device) CreateEndpoint(name string, dest rpmsg.Addr, handler rpmsg.EndpointHandler) (rpmsg.Endpoint, error) {
	ep := newEndpoint(d, name, dest, handler)
	d.local.register(ep)

	destNode := d.local.bus.lookupNode(dest.CPU)
	if destNode == nil {
		return ep, nil
	}

	if found := destNode.lookup(dest.Name); found != nil {
		linkEndpoints(ep, found)
		ep.handler.OnBound()
		return ep, nil
	}

	destNode.tryBind(rpmsg.EndpointPrefix+dest.Name, rpmsg.Addr{CPU: d.local.cpu, Name: name}, destNode.deviceTo(d.local))
	if found := destNode.lookup(name); found != nil {
		linkEndpoints(ep, found)
		ep.handler.OnBound()
	}
	return ep, nil
}

func linkEndpoints(a, b *endpoint) {
	a.mu.Lock()
	a.peer = b
	a.mu.Unlock()
	b.mu.Lock()
	b.peer = a
	b.mu.Unlock()
}
