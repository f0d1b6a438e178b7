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
	"time"

	"github.com/rpmsgsock/rpmsgsock/rpmsg"
	"github.com/rpmsgsock/rpmsgsock/transport/loopback"
)

// newTestBus returns a fresh two-node loopback bus (server, client) plus a
// config with short timeouts so a stuck test fails fast instead of hanging
// the whole suite.
func newTestBus() (bus *loopback.Bus, server, client *loopback.Node, cfg *rpmsg.Config) {
	bus = loopback.NewBus()
	server = bus.Node("cpu-server")
	client = bus.Node("cpu-client")

	cfg = rpmsg.DefaultConfig()
	cfg.ConnectTimeout = 2 * time.Second
	cfg.SendTimeout = 2 * time.Second
	cfg.RecvTimeout = 2 * time.Second
	cfg.RXBufferSize = 256
	return bus, server, client, cfg
}

func serverCfg(base *rpmsg.Config) *rpmsg.Config {
	c := *base
	return &c
}
