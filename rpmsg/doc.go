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

// Package rpmsg implements a connection-oriented and datagram socket interface
// layered over a name-service-based endpoint substrate (AF_RPMSG). It provides
// asymmetric buffering, credit-based flow control, a listen/accept state
// machine for cross-CPU connections, and poll/readiness notification.
//
// The real message-passing substrate (virtio/rpmsg shared memory, name
// service) is abstracted behind the Substrate, Device, Endpoint and
// NameService interfaces; see package transport/loopback for an in-process
// implementation suitable for tests and local demonstration.
package rpmsg
