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
	"strings"
)

// Errno is a small coded error, modeled on the POSIX errno values the
// original driver surfaced to the socket framework. It carries a stable
// numeric code so callers can switch on Code() instead of string-matching
// Error().
type Errno struct {
	code uint16
	msg  string
}

func (e *Errno) Code() uint16 {
	if e == nil {
		return 0
	}
	return e.code
}

func (e *Errno) Error() string {
	if e == nil {
		return ""
	}
	return e.msg
}

// Is reports whether target is the same Errno code, so errors.Is(err,
// ErrAgain) works against a wrapped or re-created Errno.
func (e *Errno) Is(target error) bool {
	o, ok := target.(*Errno)
	if !ok || o == nil || e == nil {
		return false
	}
	return e.code == o.code
}

func newErrno(code uint16, msg string) *Errno {
	return &Errno{code: code, msg: msg}
}

// Error codes, one per kind surfaced to socket callers.
const (
	codeInvalid uint16 = iota + 1
	codeNoMemory
	codeIsConnected
	codeNotConnected
	codeConnReset
	codeAgain
	codeInProgress
	codeTooBig
	codeBusy
	codeNotTTY
	codeNoProtoOpt
	codeTimedOut
	codeClosed
)

var (
	// ErrInvalid: bad address, listen without bind, an operation in the
	// wrong role, malformed SYNC/DATA. Listen does not reject a
	// non-positive backlog; it substitutes Config.DefaultBacklog.
	ErrInvalid = newErrno(codeInvalid, "invalid argument")
	// ErrNoMemory: allocation of connection or recv buffer failed.
	ErrNoMemory = newErrno(codeNoMemory, "cannot allocate memory")
	// ErrIsConnected: connect on an already-connected socket.
	ErrIsConnected = newErrno(codeIsConnected, "transport endpoint is already connected")
	// ErrNotConnected: sendmsg/recvmsg on an unconnected socket with no destination.
	ErrNotConnected = newErrno(codeNotConnected, "transport endpoint is not connected")
	// ErrConnReset: listen socket closed under an accepting thread, or the
	// endpoint was torn down during a blocking operation.
	ErrConnReset = newErrno(codeConnReset, "connection reset by peer")
	// ErrAgain: non-blocking operation would block.
	ErrAgain = newErrno(codeAgain, "resource temporarily unavailable")
	// ErrInProgress: non-blocking connect awaiting SYNC.
	ErrInProgress = newErrno(codeInProgress, "operation now in progress")
	// ErrTooBig: datagram larger than the peer's advertised RX window.
	ErrTooBig = newErrno(codeTooBig, "message too long")
	// ErrBusy: no free poll slot.
	ErrBusy = newErrno(codeBusy, "device or resource busy")
	// ErrNotTTY: unknown ioctl command.
	ErrNotTTY = newErrno(codeNotTTY, "inappropriate ioctl for device")
	// ErrNoProtoOpt: unknown sockopt.
	ErrNoProtoOpt = newErrno(codeNoProtoOpt, "protocol not available")
	// ErrTimedOut: a blocking wait exceeded its SO_*TIMEO deadline.
	ErrTimedOut = newErrno(codeTimedOut, "connection timed out")
	// ErrClosed: operation attempted on an already-closed socket.
	ErrClosed = newErrno(codeClosed, "socket is closed")
)

// ErrorFilter strips the expected "use of closed network connection" noise
// that a substrate emits when a local Close races an in-flight operation, so
// that logs and returned errors stay meaningful. Every other error is
// returned unchanged.
//
func ErrorFilter(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "use of closed network connection") {
		return nil
	}
	return err
}
