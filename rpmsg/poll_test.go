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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rpmsgsock/rpmsgsock/rpmsg"
)

var _ = Describe("[TC-PL] Poll readiness", func() {
	It("[TC-PL-001] a listener reports PollIn only once a connection is queued", func() {
		_, server, client, cfg := newTestBus()
		addr := rpmsg.Addr{CPU: server.LocalCPU(), Name: "pollsvc"}

		srv := rpmsg.NewSocket(cfg, server, rpmsg.SockStream)
		Expect(srv.Bind(addr)).To(Succeed())
		Expect(srv.Listen(4)).To(Succeed())
		defer srv.Close()

		handle, err := srv.PollSetup(rpmsg.PollIn)
		Expect(err).ToNot(HaveOccurred())
		defer handle.Teardown()
		Expect(handle.Events()).To(Equal(rpmsg.PollEvent(0)))

		cliSock := rpmsg.NewSocket(cfg, client, rpmsg.SockStream)
		Expect(cliSock.Connect(context.Background(), addr, true)).To(Equal(rpmsg.ErrInProgress))
		defer cliSock.Close()

		Eventually(func() rpmsg.PollEvent {
			select {
			case <-handle.Ready():
			default:
			}
			return handle.Events()
		}, 2*time.Second, 10*time.Millisecond).Should(Equal(rpmsg.PollIn))
	})

	It("[TC-PL-002] a connected socket reports PollHup after the peer is destroyed", func() {
		_, server, client, cfg := newTestBus()
		addr := rpmsg.Addr{CPU: server.LocalCPU(), Name: "pollhup"}

		srv := rpmsg.NewSocket(cfg, server, rpmsg.SockStream)
		Expect(srv.Bind(addr)).To(Succeed())
		Expect(srv.Listen(4)).To(Succeed())
		defer srv.Close()

		accepted := make(chan *rpmsg.Connection, 1)
		go func() {
			defer GinkgoRecover()
			peer, aerr := srv.Accept(context.Background(), false)
			if aerr == nil {
				accepted <- peer
			}
		}()

		cliSock := rpmsg.NewSocket(cfg, client, rpmsg.SockStream)
		Expect(cliSock.Connect(context.Background(), addr, false)).To(Succeed())
		defer cliSock.Close()

		var peer *rpmsg.Connection
		Eventually(accepted, 2*time.Second).Should(Receive(&peer))

		handle, err := cliSock.PollSetup(rpmsg.PollHup | rpmsg.PollOut)
		Expect(err).ToNot(HaveOccurred())
		defer handle.Teardown()
		Expect(handle.Events() & rpmsg.PollOut).To(Equal(rpmsg.PollOut))

		Expect(peer.Close()).To(Succeed())

		Eventually(func() rpmsg.PollEvent {
			select {
			case <-handle.Ready():
			default:
			}
			return handle.Events()
		}, 2*time.Second, 10*time.Millisecond).Should(Equal(rpmsg.PollHup | rpmsg.PollOut))
	})
})
