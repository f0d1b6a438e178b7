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
	"encoding/binary"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rpmsgsock/rpmsgsock/rpmsg"
)

// acceptOne binds, listens, and returns both the server socket and a channel
// that receives the first accepted peer connection.
func acceptOne(server rpmsg.Substrate, cfg *rpmsg.Config, name string) (*rpmsg.Connection, chan *rpmsg.Connection, rpmsg.Addr) {
	addr := rpmsg.Addr{CPU: server.LocalCPU(), Name: name}
	srv := rpmsg.NewSocket(cfg, server, rpmsg.SockStream)
	Expect(srv.Bind(addr)).To(Succeed())
	Expect(srv.Listen(4)).To(Succeed())

	accepted := make(chan *rpmsg.Connection, 1)
	go func() {
		defer GinkgoRecover()
		peer, aerr := srv.Accept(context.Background(), false)
		if aerr == nil {
			accepted <- peer
		}
	}()
	return srv, accepted, addr
}

var _ = Describe("[TC-IO] Ioctl and socket options", func() {
	It("[TC-IO-001] FIONREAD reports buffered-but-unread bytes", func() {
		_, server, client, cfg := newTestBus()
		srv, accepted, addr := acceptOne(server, cfg, "ioready")
		defer srv.Close()

		cliSock := rpmsg.NewSocket(cfg, client, rpmsg.SockStream)
		Expect(cliSock.Connect(context.Background(), addr, false)).To(Succeed())
		defer cliSock.Close()

		var peer *rpmsg.Connection
		Eventually(accepted, 2*time.Second).Should(Receive(&peer))
		defer peer.Close()

		payload := []byte("twelve bytes")
		_, err := cliSock.SendMsg(context.Background(), payload, false)
		Expect(err).ToNot(HaveOccurred())

		var out [4]byte
		Eventually(func() uint32 {
			n, ierr := peer.Ioctl(rpmsg.FIONREAD, out[:])
			if ierr != nil || n != 4 {
				return 0
			}
			return binary.LittleEndian.Uint32(out[:])
		}, 2*time.Second, 10*time.Millisecond).Should(Equal(uint32(len(payload))))
	})

	It("[TC-IO-002] FIONSPACE reports the sender's remaining credit", func() {
		_, server, client, cfg := newTestBus()
		cfg.RXBufferSize = 128
		srv, accepted, addr := acceptOne(server, cfg, "iospace")
		defer srv.Close()

		cliSock := rpmsg.NewSocket(cfg, client, rpmsg.SockStream)
		Expect(cliSock.Connect(context.Background(), addr, false)).To(Succeed())
		defer cliSock.Close()

		var peer *rpmsg.Connection
		Eventually(accepted, 2*time.Second).Should(Receive(&peer))
		defer peer.Close()

		var out [4]byte
		Eventually(func() uint32 {
			n, ierr := cliSock.Ioctl(rpmsg.FIONSPACE, out[:])
			if ierr != nil || n != 4 {
				return 0
			}
			return binary.LittleEndian.Uint32(out[:])
		}, 2*time.Second, 10*time.Millisecond).Should(Equal(uint32(cfg.RXBufferSize)))
	})

	It("[TC-IO-003] FIOC_FILEPATH renders a diagnostic path qualified with the endpoint's device identity", func() {
		_, server, client, cfg := newTestBus()
		srv, accepted, addr := acceptOne(server, cfg, "iopath")
		defer srv.Close()

		cliSock := rpmsg.NewSocket(cfg, client, rpmsg.SockStream)
		Expect(cliSock.Connect(context.Background(), addr, false)).To(Succeed())
		defer cliSock.Close()

		var peer *rpmsg.Connection
		Eventually(accepted, 2*time.Second).Should(Receive(&peer))
		defer peer.Close()

		buf := make([]byte, 256)
		n, err := cliSock.Ioctl(rpmsg.FIOCFilePath, buf)
		Expect(err).ToNot(HaveOccurred())
		path := string(buf[:n])
		Expect(path).To(HavePrefix("rpmsg:["))
		Expect(path).To(ContainSubstring("iopath"))
		Expect(path).To(ContainSubstring("#"))
	})

	It("[TC-IO-004] PeerCred round-trips the credentials carried by the peer's SYNC frame", func() {
		_, server, client, cfg := newTestBus()
		srv, accepted, addr := acceptOne(server, cfg, "iopeer")
		defer srv.Close()

		cliSock := rpmsg.NewSocket(cfg, client, rpmsg.SockStream)
		Expect(cliSock.Connect(context.Background(), addr, false)).To(Succeed())
		defer cliSock.Close()

		var peer *rpmsg.Connection
		Eventually(accepted, 2*time.Second).Should(Receive(&peer))
		defer peer.Close()

		cred, err := peer.PeerCred()
		Expect(err).ToNot(HaveOccurred())
		Expect(cred.PID).To(Equal(uint32(os.Getpid())))
		Expect(cred.UID).To(Equal(uint32(os.Getuid())))
		Expect(cred.GID).To(Equal(uint32(os.Getgid())))
	})

	It("[TC-IO-005] an unknown ioctl command is rejected with ErrNotTTY", func() {
		_, _, client, cfg := newTestBus()
		sock := rpmsg.NewSocket(cfg, client, rpmsg.SockStream)
		defer sock.Close()

		_, err := sock.Ioctl(rpmsg.IoctlCmd(99), make([]byte, 4))
		Expect(err).To(MatchError(rpmsg.ErrNotTTY))
	})

	It("[TC-IO-006] GetSockOpt rejects an unknown option with ErrNoProtoOpt", func() {
		_, _, client, cfg := newTestBus()
		sock := rpmsg.NewSocket(cfg, client, rpmsg.SockStream)
		defer sock.Close()

		_, err := sock.GetSockOpt(rpmsg.SockOpt(99))
		Expect(err).To(MatchError(rpmsg.ErrNoProtoOpt))
	})
})
