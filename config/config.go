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

// Package config carries the compile-time knobs the reference driver baked
// in at build time (RX buffer size, poll waiter slot count, local CPU name)
// as a bindable runtime structure: a Validate()-checked struct with sane
// defaults, wired to github.com/spf13/viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the process-wide set of RPMsg socket knobs.
type Config struct {
	// LocalCPU is this endpoint's own CPU name, used to fill in
	// getsockname's CPU field and to match device-created notifications.
	LocalCPU string `mapstructure:"local_cpu"`

	// RXBufferSize is the circular receive buffer capacity allocated per
	// connection on connect/ns-bind.
	RXBufferSize int `mapstructure:"rx_buffer_size"`

	// PollSlots bounds the number of concurrent poll registrations per
	// connection; exceeding it returns EBUSY.
	PollSlots int `mapstructure:"poll_slots"`

	// DefaultBacklog is used by listeners that do not specify one
	// explicitly.
	DefaultBacklog int `mapstructure:"default_backlog"`

	SendTimeout    time.Duration `mapstructure:"send_timeout"`
	RecvTimeout    time.Duration `mapstructure:"recv_timeout"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// DefaultConfig returns the knob values the reference driver compiled in.
func DefaultConfig() *Config {
	return &Config{
		LocalCPU:       "",
		RXBufferSize:   4096,
		PollSlots:      8,
		DefaultBacklog: 4,
		SendTimeout:    0,
		RecvTimeout:    0,
		ConnectTimeout: 30 * time.Second,
	}
}

// Validate checks the configuration for internally consistent values.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("nil config")
	}
	if c.RXBufferSize <= 0 {
		return fmt.Errorf("rx_buffer_size must be positive, got %d", c.RXBufferSize)
	}
	if c.PollSlots <= 0 {
		return fmt.Errorf("poll_slots must be positive, got %d", c.PollSlots)
	}
	if c.DefaultBacklog < 0 {
		return fmt.Errorf("default_backlog must not be negative, got %d", c.DefaultBacklog)
	}
	return nil
}

// Load reads configuration from the given viper instance, filling unset
// keys with DefaultConfig's values first.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	def := DefaultConfig()
	v.SetDefault("local_cpu", def.LocalCPU)
	v.SetDefault("rx_buffer_size", def.RXBufferSize)
	v.SetDefault("poll_slots", def.PollSlots)
	v.SetDefault("default_backlog", def.DefaultBacklog)
	v.SetDefault("send_timeout", def.SendTimeout)
	v.SetDefault("recv_timeout", def.RecvTimeout)
	v.SetDefault("connect_timeout", def.ConnectTimeout)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal rpmsg config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
