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

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/rpmsgsock/rpmsgsock/rpmsg"
	"github.com/rpmsgsock/rpmsgsock/transport/loopback"
)

// newEchoCommand wires a listener and a client against the same in-process
// loopback.Bus, sends one message, reads the echo back, and reports the
// round trip. It is the closest thing to an integration smoke test that can
// run without real RPMsg hardware.
func newEchoCommand() *cobra.Command {
	var (
		service        string
		message        string
		serverCPU      string
		clientCPU      string
		timeout        time.Duration
		bufferSize     int
		connectTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "echo",
		Short: "Bind a listener and a client on a loopback bus and round-trip one message",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRPMsgConfig(cmd)
			if err != nil {
				return err
			}
			if bufferSize > 0 {
				cfg.RXBufferSize = bufferSize
			}
			if connectTimeout > 0 {
				cfg.ConnectTimeout = connectTimeout
			}

			bus := loopback.NewBus()
			server := bus.Node(serverCPU)
			client := bus.Node(clientCPU)

			addr := rpmsg.Addr{CPU: server.LocalCPU(), Name: service}
			ln, err := rpmsg.Listen(cfg, server, addr, cfg.DefaultBacklog)
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}
			defer ln.Close()

			errCh := make(chan error, 1)
			go func() {
				conn, aerr := ln.Accept()
				if aerr != nil {
					errCh <- aerr
					return
				}
				defer conn.Close()
				buf := make([]byte, len(message))
				if _, rerr := io.ReadFull(conn, buf); rerr != nil {
					errCh <- rerr
					return
				}
				_, werr := conn.Write(buf)
				errCh <- werr
			}()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			conn, err := rpmsg.Dial(ctx, cfg, client, addr)
			if err != nil {
				return fmt.Errorf("dial: %w", err)
			}
			defer conn.Close()

			logger.WithFields(map[string]interface{}{
				"service": service,
				"server":  serverCPU,
				"client":  clientCPU,
			}).Info("sending message")

			if _, err := conn.Write([]byte(message)); err != nil {
				return fmt.Errorf("write: %w", err)
			}

			back := make([]byte, len(message))
			if _, err := io.ReadFull(conn, back); err != nil {
				return fmt.Errorf("read: %w", err)
			}

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server side: %w", err)
				}
			case <-ctx.Done():
				return ctx.Err()
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", back)
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", "echo", "service name to bind/connect")
	cmd.Flags().StringVar(&message, "message", "hello rpmsg", "message to round-trip")
	cmd.Flags().StringVar(&serverCPU, "server-cpu", "cpu0", "loopback CPU name hosting the listener")
	cmd.Flags().StringVar(&clientCPU, "client-cpu", "cpu1", "loopback CPU name dialing out")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "overall deadline for the round trip")
	cmd.Flags().IntVar(&bufferSize, "rx-buffer-size", 0, "override the receive buffer size (0 keeps the default)")
	cmd.Flags().DurationVar(&connectTimeout, "connect-timeout", 0, "override the connect timeout (0 keeps the default)")

	return cmd
}
