// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"

	"github.com/u-root/ahbtool/pkg/ahb"
	"github.com/u-root/ahbtool/pkg/devmem"
	"github.com/u-root/ahbtool/pkg/superio"
	"go.uber.org/zap/zapcore"
)

// Set with -ldflags "-X github.com/u-root/ahbtool/config.gitVersion=..."
var (
	gitVersion = "dev"
	gitHash    = "unknown"
)

type Version struct {
	Version string
	GitHash string
}

type SuperIO struct {
	Device string
	Port   uint16
}

type Devmem struct {
	Device string
}

type Config struct {
	SuperIO SuperIO
	Devmem  Devmem
	// Flattened device tree describing the SoC. When empty the silicon
	// revision is read and a built-in description is used.
	DeviceTree string
	// Bridge used to reach the AHB, see ahb.ParseType.
	Interface     string
	LogLevel      string
	LogFile       string
	MetricsListen string
	Version       Version
}

var DefaultConfig = &Config{
	SuperIO: SuperIO{
		Device: superio.DefaultPortDevice,
		// 0x4e is the alternative when the strap selects it.
		Port: superio.DefaultBase,
	},
	Devmem: Devmem{
		Device: devmem.DefaultDevice,
	},
	Interface: "ilpc",
	LogLevel:  "info",
	Version: Version{
		Version: gitVersion,
		GitHash: gitHash,
	},
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	t, err := ahb.ParseType(c.Interface)
	if err != nil {
		return err
	}
	if t != ahb.ILPC && t != ahb.Devmem {
		return fmt.Errorf("interface %v: %w", t, ahb.ErrUnsupported)
	}
	if c.SuperIO.Port != 0x2e && c.SuperIO.Port != 0x4e {
		return fmt.Errorf("SuperIO port %#x: %w", c.SuperIO.Port, ahb.ErrUnsupported)
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("log level: %v", err)
	}
	return nil
}

// Level returns the configured log level, info if it does not parse.
func (c *Config) Level() zapcore.Level {
	l := zapcore.InfoLevel
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}
