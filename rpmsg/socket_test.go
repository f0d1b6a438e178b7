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

package rpmsg_test

import (
	"context"
	"errors"
	"io"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rpmsgsock/rpmsgsock/rpmsg"
)

var _ = Describe("[TC-RP] Stream socket lifecycle", func() {
	It("[TC-RP-001] binds, listens, accepts and exchanges data end to end", func() {
		_, server, client, cfg := newTestBus()

		addr := rpmsg.Addr{CPU: server.LocalCPU(), Name: "echo"}
		ln, err := rpmsg.Listen(cfg, server, addr, 4)
		Expect(err).ToNot(HaveOccurred())
		defer ln.Close()

		accepted := make(chan error, 1)
		go func() {
			defer GinkgoRecover()
			conn, aerr := ln.Accept()
			if aerr != nil {
				accepted <- aerr
				return
			}
			defer conn.Close()
			buf := make([]byte, 64)
			n, rerr := conn.Read(buf)
			if rerr != nil {
				accepted <- rerr
				return
			}
			_, werr := conn.Write(buf[:n])
			accepted <- werr
		}()

		dialCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		cliConn, err := rpmsg.Dial(dialCtx, cfg, client, addr)
		Expect(err).ToNot(HaveOccurred())
		defer cliConn.Close()

		Expect(cliConn.RemoteAddr()).To(Equal(addr))

		_, err = cliConn.Write([]byte("hello rpmsg"))
		Expect(err).ToNot(HaveOccurred())

		out := make([]byte, 64)
		n, err := cliConn.Read(out)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(out[:n])).To(Equal("hello rpmsg"))

		Eventually(accepted).Should(Receive(BeNil()))
	})

	It("[TC-RP-002] rejects a connect once the backlog is full", func() {
		_, server, client, cfg := newTestBus()
		cfg.ConnectTimeout = 300 * time.Millisecond

		addr := rpmsg.Addr{CPU: server.LocalCPU(), Name: "full"}
		ln, err := rpmsg.Listen(cfg, server, addr, 1)
		Expect(err).ToNot(HaveOccurred())
		defer ln.Close()

		firstCtx, cancel1 := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel1()
		first, err := rpmsg.Dial(firstCtx, cfg, client, addr)
		Expect(err).ToNot(HaveOccurred())
		defer first.Close()

		secondCtx, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel2()
		_, err = rpmsg.Dial(secondCtx, serverCfg(cfg), client, addr)
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, rpmsg.ErrConnReset)).To(BeTrue())
	})

	It("[TC-RP-003] a non-blocking connect returns ErrInProgress and resolves asynchronously", func() {
		_, server, client, cfg := newTestBus()

		addr := rpmsg.Addr{CPU: server.LocalCPU(), Name: "asyncsvc"}
		ln, err := rpmsg.Listen(cfg, server, addr, 4)
		Expect(err).ToNot(HaveOccurred())
		defer ln.Close()

		go func() {
			defer GinkgoRecover()
			conn, aerr := ln.Accept()
			if aerr == nil {
				_ = conn.Close()
			}
		}()

		sock := rpmsg.NewSocket(cfg, client, rpmsg.SockStream)
		err = sock.Connect(context.Background(), addr, true)
		Expect(err).To(MatchError(rpmsg.ErrInProgress))

		handle, err := sock.PollSetup(rpmsg.PollOut | rpmsg.PollHup)
		Expect(err).ToNot(HaveOccurred())
		defer handle.Teardown()

		Eventually(func() rpmsg.PollEvent {
			select {
			case <-handle.Ready():
			default:
			}
			return handle.Events()
		}, 2*time.Second, 20*time.Millisecond).Should(SatisfyAny(
			Equal(rpmsg.PollOut),
			Equal(rpmsg.PollOut|rpmsg.PollHup),
		))

		Expect(sock.Close()).To(Succeed())
	})

	It("[TC-RP-004] SendMsg/RecvMsg on an unconnected socket return ErrNotConnected", func() {
		_, _, client, cfg := newTestBus()
		sock := rpmsg.NewSocket(cfg, client, rpmsg.SockStream)

		_, err := sock.SendMsg(context.Background(), []byte("x"), false)
		Expect(err).To(MatchError(rpmsg.ErrNotConnected))

		_, err = sock.RecvMsg(context.Background(), make([]byte, 1), false)
		Expect(err).To(MatchError(rpmsg.ErrNotConnected))
	})

	It("[TC-RP-005] reading from a peer-closed connection returns io.EOF", func() {
		_, server, client, cfg := newTestBus()
		addr := rpmsg.Addr{CPU: server.LocalCPU(), Name: "closer"}

		ln, err := rpmsg.Listen(cfg, server, addr, 4)
		Expect(err).ToNot(HaveOccurred())
		defer ln.Close()

		go func() {
			defer GinkgoRecover()
			conn, aerr := ln.Accept()
			if aerr != nil {
				return
			}
			_ = conn.Close()
		}()

		cliConn, err := rpmsg.Dial(context.Background(), cfg, client, addr)
		Expect(err).ToNot(HaveOccurred())
		defer cliConn.Close()

		buf := make([]byte, 16)
		_, err = cliConn.Read(buf)
		Expect(err).To(Equal(io.EOF))
	})
})
