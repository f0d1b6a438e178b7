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

var _ = Describe("[TC-DG] Datagram socket", func() {
	It("[TC-DG-001] delivers a whole datagram in a single RecvMsg call", func() {
		_, server, client, cfg := newTestBus()

		addr := rpmsg.Addr{CPU: server.LocalCPU(), Name: "dgecho"}
		srv := rpmsg.NewSocket(cfg, server, rpmsg.SockDgram)
		Expect(srv.Bind(addr)).To(Succeed())
		Expect(srv.Listen(4)).To(Succeed())
		defer srv.Close()

		done := make(chan error, 1)
		go func() {
			defer GinkgoRecover()
			peer, aerr := srv.Accept(context.Background(), false)
			if aerr != nil {
				done <- aerr
				return
			}
			defer peer.Close()
			buf := make([]byte, 128)
			n, rerr := peer.RecvMsg(context.Background(), buf, false)
			if rerr != nil {
				done <- rerr
				return
			}
			_, werr := peer.SendMsg(context.Background(), buf[:n], false)
			done <- werr
		}()

		cliCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		pc, err := rpmsg.DialPacket(cliCtx, cfg, client, addr)
		Expect(err).ToNot(HaveOccurred())
		defer pc.Close()

		msg := []byte("a datagram, whole")
		_, err = pc.WriteTo(msg, nil)
		Expect(err).ToNot(HaveOccurred())

		buf := make([]byte, 128)
		n, _, err := pc.ReadFrom(buf)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(buf[:n])).To(Equal(string(msg)))

		Eventually(done, 2*time.Second).Should(Receive(BeNil()))
	})

	It("[TC-DG-002] rejects a datagram larger than the peer's advertised window", func() {
		_, server, client, cfg := newTestBus()
		cfg.RXBufferSize = 64

		addr := rpmsg.Addr{CPU: server.LocalCPU(), Name: "dgbig"}
		srv := rpmsg.NewSocket(cfg, server, rpmsg.SockDgram)
		Expect(srv.Bind(addr)).To(Succeed())
		Expect(srv.Listen(4)).To(Succeed())
		defer srv.Close()

		go func() {
			defer GinkgoRecover()
			_, _ = srv.Accept(context.Background(), false)
		}()

		sock := rpmsg.NewSocket(cfg, client, rpmsg.SockDgram)
		Expect(sock.Connect(context.Background(), addr, false)).To(Succeed())
		defer sock.Close()

		oversized := make([]byte, cfg.RXBufferSize*2)
		_, err := sock.SendMsg(context.Background(), oversized, false)
		Expect(err).To(MatchError(rpmsg.ErrTooBig))
	})

	It("[TC-DG-003] truncates a datagram that does not fit the caller's buffer", func() {
		_, server, client, cfg := newTestBus()

		addr := rpmsg.Addr{CPU: server.LocalCPU(), Name: "dgtrunc"}
		srv := rpmsg.NewSocket(cfg, server, rpmsg.SockDgram)
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

		sock := rpmsg.NewSocket(cfg, client, rpmsg.SockDgram)
		Expect(sock.Connect(context.Background(), addr, false)).To(Succeed())
		defer sock.Close()

		var peer *rpmsg.Connection
		Eventually(accepted, 2*time.Second).Should(Receive(&peer))
		defer peer.Close()

		_, err := sock.SendMsg(context.Background(), []byte("0123456789"), false)
		Expect(err).ToNot(HaveOccurred())

		small := make([]byte, 4)
		n, err := peer.RecvMsg(context.Background(), small, false)
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(4))
		Expect(string(small)).To(Equal("0123"))
	})

	It("[TC-DG-004] connects with no suffix appended to the local address", func() {
		_, server, client, cfg := newTestBus()

		addr := rpmsg.Addr{CPU: server.LocalCPU(), Name: "dgname"}
		srv := rpmsg.NewSocket(cfg, server, rpmsg.SockDgram)
		Expect(srv.Bind(addr)).To(Succeed())
		Expect(srv.Listen(4)).To(Succeed())
		defer srv.Close()

		go func() {
			defer GinkgoRecover()
			_, _ = srv.Accept(context.Background(), false)
		}()

		sock := rpmsg.NewSocket(cfg, client, rpmsg.SockDgram)
		Expect(sock.Connect(context.Background(), addr, false)).To(Succeed())
		defer sock.Close()

		Expect(sock.GetSockName().Name).To(Equal(addr.Name))
	})
})
