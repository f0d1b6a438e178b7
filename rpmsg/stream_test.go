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
	"bytes"
	"context"
	"io"
	"math/rand"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rpmsgsock/rpmsgsock/rpmsg"
)

var _ = Describe("[TC-ST] Stream flow control", func() {
	It("[TC-ST-001] carries a payload many times the advertised window across several DATA frames", func() {
		_, server, client, cfg := newTestBus()
		cfg.RXBufferSize = 64

		addr := rpmsg.Addr{CPU: server.LocalCPU(), Name: "bigxfer"}
		ln, err := rpmsg.Listen(cfg, server, addr, 4)
		Expect(err).ToNot(HaveOccurred())
		defer ln.Close()

		payload := make([]byte, 5*cfg.RXBufferSize+37)
		rand.New(rand.NewSource(1)).Read(payload)

		echoed := make(chan []byte, 1)
		errCh := make(chan error, 1)
		go func() {
			defer GinkgoRecover()
			conn, aerr := ln.Accept()
			if aerr != nil {
				errCh <- aerr
				return
			}
			defer conn.Close()

			got := make([]byte, len(payload))
			if _, rerr := io.ReadFull(conn, got); rerr != nil {
				errCh <- rerr
				return
			}
			if _, werr := conn.Write(got); werr != nil {
				errCh <- werr
				return
			}
			echoed <- got
		}()

		dialCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		cliConn, err := rpmsg.Dial(dialCtx, cfg, client, addr)
		Expect(err).ToNot(HaveOccurred())
		defer cliConn.Close()

		_, err = cliConn.Write(payload)
		Expect(err).ToNot(HaveOccurred())

		back := make([]byte, len(payload))
		_, err = io.ReadFull(cliConn, back)
		Expect(err).ToNot(HaveOccurred())
		Expect(bytes.Equal(back, payload)).To(BeTrue())

		Eventually(echoed, 2*time.Second).Should(Receive(Equal(payload)))
	})

	It("[TC-ST-002] a non-blocking send returns ErrAgain once credit is exhausted", func() {
		_, server, client, cfg := newTestBus()
		cfg.RXBufferSize = 32

		addr := rpmsg.Addr{CPU: server.LocalCPU(), Name: "stall"}
		ln, err := rpmsg.Listen(cfg, server, addr, 4)
		Expect(err).ToNot(HaveOccurred())
		defer ln.Close()

		stop := make(chan struct{})
		DeferCleanup(func() { close(stop) })
		go func() {
			defer GinkgoRecover()
			conn, aerr := ln.Accept()
			if aerr != nil {
				return
			}
			// Never reads: forces the client's window to saturate.
			<-stop
			_ = conn.Close()
		}()

		sock := rpmsg.NewSocket(cfg, client, rpmsg.SockStream)
		Expect(sock.Connect(context.Background(), addr, false)).To(Succeed())
		defer sock.Close()

		big := make([]byte, cfg.RXBufferSize*4)
		var sawAgain bool
		for i := 0; i < 20; i++ {
			_, err := sock.SendMsg(context.Background(), big, true)
			if err == rpmsg.ErrAgain {
				sawAgain = true
				break
			}
			Expect(err).ToNot(HaveOccurred())
		}
		Expect(sawAgain).To(BeTrue())
	})
})
