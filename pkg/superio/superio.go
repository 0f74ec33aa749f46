// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package superio drives the configuration space of the SuperIO controller
// found in the AST2400/AST2500 through its LPC index/data port pair.
//
// The configuration space is shared by all logical devices of the chip, so
// every user must hold the unlocked session for the entire duration of a
// multi-register sequence and lock it again afterwards.
package superio

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/u-root/ahbtool/pkg/ahb"
)

// LogicalDevice is a SuperIO logical device number (LDN).
type LogicalDevice uint8

const (
	SUART1  LogicalDevice = 0x02
	SUART2  LogicalDevice = 0x03
	SWC     LogicalDevice = 0x04
	KBC     LogicalDevice = 0x05
	GPIO    LogicalDevice = 0x07
	SUART3  LogicalDevice = 0x0b
	SUART4  LogicalDevice = 0x0c
	ILPC    LogicalDevice = 0x0d
	Mailbox LogicalDevice = 0x0e
)

const (
	DefaultPortDevice = "/dev/port"
	// DefaultBase is the LPC I/O address of the SuperIO index register.
	// The data register follows at DefaultBase+1.
	DefaultBase uint16 = 0x2e

	regSelect = 0x07
	regChipID = 0x20

	unlockKey = 0xa5
	lockKey   = 0xaa
)

// Transport is the byte level access to the SuperIO configuration space.
type Transport interface {
	Present() bool
	Lock() error
	Unlock() error
	Select(d LogicalDevice) error
	WriteReg(reg uint8, val uint8) error
	ReadReg(reg uint8) (uint8, error)
	Close() error
}

// Port is a Transport over an I/O port device file such as /dev/port.
type Port struct {
	f    afero.File
	base int64
}

// Open opens path on fs and addresses the SuperIO at I/O port base.
func Open(fs afero.Fs, path string, base uint16) (*Port, error) {
	f, err := fs.OpenFile(path, os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Port{f: f, base: int64(base)}, nil
}

func (p *Port) outb(off int64, d byte) error {
	n, err := p.f.WriteAt([]byte{d}, p.base+off)
	if err != nil {
		return fmt.Errorf("outb %#x: %v: %w", p.base+off, err, ahb.ErrIO)
	}
	if n != 1 {
		return fmt.Errorf("outb %#x: short write: %w", p.base+off, ahb.ErrIO)
	}
	return nil
}

func (p *Port) inb(off int64) (byte, error) {
	b := make([]byte, 1)
	n, err := p.f.ReadAt(b, p.base+off)
	if err != nil {
		return 0, fmt.Errorf("inb %#x: %v: %w", p.base+off, err, ahb.ErrIO)
	}
	if n != 1 {
		return 0, fmt.Errorf("inb %#x: short read: %w", p.base+off, ahb.ErrIO)
	}
	return b[0], nil
}

// Unlock enters configuration mode.
func (p *Port) Unlock() error {
	if err := p.outb(0, unlockKey); err != nil {
		return fmt.Errorf("unlock: %v: %w", err, ahb.ErrLock)
	}
	if err := p.outb(0, unlockKey); err != nil {
		return fmt.Errorf("unlock: %v: %w", err, ahb.ErrLock)
	}
	return nil
}

// Lock leaves configuration mode.
func (p *Port) Lock() error {
	if err := p.outb(0, lockKey); err != nil {
		return fmt.Errorf("lock: %v: %w", err, ahb.ErrLock)
	}
	return nil
}

func (p *Port) Select(d LogicalDevice) error {
	return p.WriteReg(regSelect, uint8(d))
}

func (p *Port) WriteReg(reg uint8, val uint8) error {
	if err := p.outb(0, reg); err != nil {
		return err
	}
	return p.outb(1, val)
}

func (p *Port) ReadReg(reg uint8) (uint8, error) {
	if err := p.outb(0, reg); err != nil {
		return 0, err
	}
	return p.inb(1)
}

// Present reports whether a SuperIO answers at the configured address.
// An absent chip floats the data lines, which reads back as all ones.
func (p *Port) Present() bool {
	if err := p.Unlock(); err != nil {
		p.Lock()
		return false
	}
	id, err := p.ReadReg(regChipID)
	if lerr := p.Lock(); lerr != nil {
		return false
	}
	return err == nil && id != 0x00 && id != 0xff
}

func (p *Port) Close() error {
	return p.f.Close()
}
