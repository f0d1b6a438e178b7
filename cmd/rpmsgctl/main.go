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

// rpmsgctl is a small diagnostic CLI for the rpmsg package. It has no real
// RPMsg hardware to talk to, so every subcommand runs against an in-process
// loopback.Bus: enough to exercise bind/listen/accept/connect/send/recv end
// to end without a target board.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cfgpkg "github.com/rpmsgsock/rpmsgsock/config"
)

var (
	cfgFile string
	logger  = logrus.New()
	v       = viper.New()
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "rpmsgctl",
		Short: "Diagnostics for the rpmsg AF_RPMSG-style socket package",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: none, flags and env only)")
	root.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	_ = v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newEchoCommand())
	return root
}

func initConfig(cmd *cobra.Command) error {
	v.SetEnvPrefix("RPMSGCTL")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %q: %w", cfgFile, err)
		}
	}

	lvl, err := logrus.ParseLevel(v.GetString("log_level"))
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}

// loadRPMsgConfig builds an rpmsg.Config from environment-backed viper
// defaults; subcommands then override individual knobs from their own flags.
func loadRPMsgConfig(cmd *cobra.Command) (*cfgpkg.Config, error) {
	sub := viper.New()
	sub.SetEnvPrefix("RPMSGCTL")
	sub.AutomaticEnv()
	return cfgpkg.Load(sub)
}
