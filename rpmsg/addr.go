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
	"fmt"
	"sync/atomic"
)

// Network is the value returned by Addr.Network, standing in for AF_RPMSG.
const Network = "rpmsg"

// EndpointPrefix is prepended to every service name on the wire: the
// endpoint name is always "sk:" + name + suffix.
const EndpointPrefix = "sk:"

// Addr is the Go shape of struct sockaddr_rpmsg: a CPU name and a service
// name. It implements net.Addr.
type Addr struct {
	CPU  string
	Name string
}

func (a Addr) Network() string { return Network }

func (a Addr) String() string {
	return fmt.Sprintf("%s:%s", a.CPU, a.Name)
}

// EndpointName returns the wire name for this address: "sk:" + Name.
func (a Addr) EndpointName() string {
	return EndpointPrefix + a.Name
}

// suffixCounter is the process-wide monotonic counter used to make stream
// service names unique per connect. A relaxed atomic increment is
// sufficient: uniqueness is only required for concurrently-live stream
// connects.
var suffixCounter uint64

// nextSuffix returns the hexadecimal ":%x" suffix for a new stream connect.
func nextSuffix() string {
	v := atomic.AddUint64(&suffixCounter, 1)
	return fmt.Sprintf(":%x", v)
}
