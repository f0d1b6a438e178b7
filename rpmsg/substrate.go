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

import "context"

// EndpointHandler receives the events a substrate endpoint can raise. It is
// implemented internally by the endpoint bridge (bridge.go); external
// Substrate implementations never need their own EndpointHandler.
type EndpointHandler interface {
	// OnRecv is invoked for every inbound frame addressed to this endpoint.
	OnRecv(data []byte, src Addr)
	// OnBound is invoked once the remote endpoint named in Dest has itself
	// come up (the name-service-bound continuation of a client connect).
	OnBound()
	// OnUnbind is invoked when the name service reports the peer endpoint
	// vanished, or when the owning device goes away.
	OnUnbind()
}

// Endpoint is an opaque, addressable message channel exposed by the
// substrate, identified by (device, local name, remote address). It exposes
// the zero-copy transmit path: acquire a TX buffer, fill it, hand it back
// either via SendNoCopy (transmit) or ReleaseBuffer (abandon).
type Endpoint interface {
	// Name is the name this endpoint was created under (the name passed to
	// Device.CreateEndpoint), without the "sk:" prefix.
	Name() string
	// MTU is the maximum payload capacity of a single TX buffer, header
	// included.
	MTU() int
	// GetTXBuffer blocks until a transmit buffer is available or ctx is
	// done. The returned slice is owned by the caller until it is passed to
	// SendNoCopy or ReleaseBuffer.
	GetTXBuffer(ctx context.Context) ([]byte, error)
	// SendNoCopy transmits a buffer previously obtained from GetTXBuffer,
	// truncated to the portion actually used by the caller. It consumes buf.
	SendNoCopy(buf []byte) error
	// ReleaseBuffer returns an acquired TX buffer without sending it, used
	// on error paths.
	ReleaseBuffer(buf []byte)
	// Destroy tears down the endpoint. Further operations on it fail.
	Destroy() error
}

// Device represents an RPMsg device: the up/running channel to one specific
// remote CPU, able to mint new endpoints addressed to peers reachable
// through it.
type Device interface {
	CPUName() string
	CreateEndpoint(name string, dest Addr, handler EndpointHandler) (Endpoint, error)
}

// NameService is implemented by a listening socket (bridge.go) and
// registered with the substrate so that incoming connect attempts can be
// matched and accepted.
type NameService interface {
	// Match reports whether name (as announced by a remote endpoint
	// creation) should be handled by this name service instance.
	Match(name string, dest Addr) bool
	// Bind is invoked once Match has returned true; it is responsible for
	// creating the accepting endpoint (via dev.CreateEndpoint) and queuing
	// the resulting connection.
	Bind(name string, src Addr, dev Device)
}

// diagEndpoint is implemented optionally by a Substrate's Endpoint for
// diagnostic tooling (FIOC_FILEPATH's device qualifier); transports with no
// natural per-endpoint identifier can leave it unimplemented.
type diagEndpoint interface {
	DiagID() string
}

// Substrate is the external collaborator: it creates and
// destroys named endpoints, delivers inbound messages via a callback,
// supports name-service matching/binding, and raises device up/down
// notifications. package transport/loopback provides the only concrete
// implementation in this repository; production use would bind this
// interface to the real RPMsg/virtio transport.
type Substrate interface {
	LocalCPU() string
	// OnDeviceCreated registers fn to run whenever a device for cpu (or any
	// device, if cpu == "") transitions up. If a matching device is already
	// up, fn runs once, synchronously, before OnDeviceCreated returns.
	OnDeviceCreated(cpu string, fn func(Device)) (unregister func())
	// OnDeviceDestroyed registers fn to run whenever a device for cpu (or
	// any device, if cpu == "") goes down.
	OnDeviceDestroyed(cpu string, fn func(Device)) (unregister func())
	// RegisterNameService publishes ns so that new endpoint announcements
	// across every device are offered to it via Match/Bind.
	RegisterNameService(ns NameService) (unregister func())
}
