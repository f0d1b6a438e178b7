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
	"sync"

	"github.com/rpmsgsock/rpmsgsock/rpmsg"
)

// Bus is a fully-connected mesh of loopback CPU nodes. Nodes are created
// lazily by name on first reference; every new node is immediately linked
// to every existing node, mirroring a small multi-core system where every
// core can reach every other core.
type Bus struct {
	mu    sync.Mutex
	nodes map[string]*Node
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{nodes: make(map[string]*Node)}
}

// Node returns the named node, creating it (and linking it to every other
// node already on the bus) if necessary.
func (b *Bus) Node(cpu string) *Node {
	b.mu.Lock()
	if n, ok := b.nodes[cpu]; ok {
		b.mu.Unlock()
		return n
	}
	n := newNode(b, cpu)
	var peers []*Node
	for _, p := range b.nodes {
		peers = append(peers, p)
	}
	b.nodes[cpu] = n
	b.mu.Unlock()

	for _, p := range peers {
		n.linkTo(p)
		p.linkTo(n)
	}
	return n
}

func (b *Bus) lookupNode(cpu string) *Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nodes[cpu]
}

// hook is one registered device-lifecycle callback.
type hook struct {
	cpu string
	fn  func(rpmsg.Device)
}

func removeHook(hooks []*hook, target *hook) []*hook {
	out := hooks[:0]
	for _, h := range hooks {
		if h != target {
			out = append(out, h)
		}
	}
	return out
}

// Node is one loopback CPU: it implements rpmsg.Substrate from its own
// point of view, tracking the endpoints it owns, the devices reaching its
// peers, and the hooks/name services registered against it.
type Node struct {
	bus *Bus
	cpu string

	mu             sync.Mutex
	endpoints      map[string]*endpoint
	devices        map[string]*Device
	createdHooks   []*hook
	destroyedHooks []*hook
	nameServices   []rpmsg.NameService
}

func newNode(bus *Bus, cpu string) *Node {
	return &Node{
		bus:       bus,
		cpu:       cpu,
		endpoints: make(map[string]*endpoint),
		devices:   make(map[string]*Device),
	}
}

var _ rpmsg.Substrate = (*Node)(nil)

func (n *Node) LocalCPU() string { return n.cpu }

// linkTo creates the Device reaching peer, if one does not already exist,
// and runs any created-hooks waiting for it.
func (n *Node) linkTo(peer *Node) {
	n.mu.Lock()
	if _, ok := n.devices[peer.cpu]; ok {
		n.mu.Unlock()
		return
	}
	dev := newDevice(n, peer)
	n.devices[peer.cpu] = dev
	var hooks []*hook
	for _, h := range n.createdHooks {
		if h.cpu == "" || h.cpu == peer.cpu {
			hooks = append(hooks, h)
		}
	}
	n.mu.Unlock()

	for _, h := range hooks {
		h.fn(dev)
	}
}

func (n *Node) deviceTo(peer *Node) *Device {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.devices[peer.cpu]
}

// Down tears down the device reaching peerCPU, if one exists, and runs any
// destroyed-hooks registered for it. It is the loopback substrate's stand-in
// for a real RPMsg device going away (the remote core rebooting or the
// virtio channel resetting); the bus has no automatic trigger for this, so
// tests and tooling call it directly to exercise device-loss handling.
func (n *Node) Down(peerCPU string) {
	n.mu.Lock()
	dev, ok := n.devices[peerCPU]
	if !ok {
		n.mu.Unlock()
		return
	}
	delete(n.devices, peerCPU)
	var hooks []*hook
	for _, h := range n.destroyedHooks {
		if h.cpu == "" || h.cpu == peerCPU {
			hooks = append(hooks, h)
		}
	}
	n.mu.Unlock()

	for _, h := range hooks {
		h.fn(dev)
	}
}

func (n *Node) OnDeviceCreated(cpu string, fn func(rpmsg.Device)) func() {
	h := &hook{cpu: cpu, fn: fn}

	n.mu.Lock()
	var existing []*Device
	for pc, d := range n.devices {
		if cpu == "" || cpu == pc {
			existing = append(existing, d)
		}
	}
	n.createdHooks = append(n.createdHooks, h)
	n.mu.Unlock()

	for _, d := range existing {
		fn(d)
	}

	return func() {
		n.mu.Lock()
		n.createdHooks = removeHook(n.createdHooks, h)
		n.mu.Unlock()
	}
}

func (n *Node) OnDeviceDestroyed(cpu string, fn func(rpmsg.Device)) func() {
	h := &hook{cpu: cpu, fn: fn}
	n.mu.Lock()
	n.destroyedHooks = append(n.destroyedHooks, h)
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		n.destroyedHooks = removeHook(n.destroyedHooks, h)
		n.mu.Unlock()
	}
}

func (n *Node) RegisterNameService(ns rpmsg.NameService) func() {
	n.mu.Lock()
	n.nameServices = append(n.nameServices, ns)
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		out := n.nameServices[:0]
		for _, s := range n.nameServices {
			if s != ns {
				out = append(out, s)
			}
		}
		n.nameServices = out
	}
}

func (n *Node) register(ep *endpoint) {
	n.mu.Lock()
	n.endpoints[ep.name] = ep
	n.mu.Unlock()
}

func (n *Node) unregister(name string) {
	n.mu.Lock()
	delete(n.endpoints, name)
	n.mu.Unlock()
}

func (n *Node) lookup(name string) *endpoint {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.endpoints[name]
}

// tryBind offers name/src to every name service registered on n, stopping
// at the first match.
func (n *Node) tryBind(name string, src rpmsg.Addr, dev rpmsg.Device) {
	n.mu.Lock()
	nss := append([]rpmsg.NameService(nil), n.nameServices...)
	n.mu.Unlock()

	for _, ns := range nss {
		if ns.Match(name, src) {
			ns.Bind(name, src, dev)
			return
		}
	}
}
