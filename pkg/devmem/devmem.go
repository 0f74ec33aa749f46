// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package devmem reaches the AHB from the BMC itself through /dev/mem.
package devmem

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"github.com/u-root/ahbtool/pkg/ahb"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const DefaultDevice = "/dev/mem"

// Mem is an AHB backed by physical memory mappings.
type Mem struct {
	mu       sync.Mutex
	f        *os.File
	pageSize uint64
	log      *zap.Logger
}

var _ ahb.AHB = (*Mem)(nil)

type Option func(*Mem)

func WithLogger(l *zap.Logger) Option {
	return func(m *Mem) {
		m.log = l
	}
}

// Open opens the physical memory device at path.
func Open(path string, opts ...Option) (*Mem, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v: %w", path, err, ahb.ErrNotPresent)
	}
	m := &Mem{f: f, pageSize: uint64(unix.Getpagesize()), log: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	m.log.Debug("Opened physical memory", zap.String("path", path))
	return m, nil
}

func (m *Mem) Type() ahb.Type {
	return ahb.Devmem
}

// TODO: Mapping and unmapping per access will not do for bulk
// transfers; keep a window mapped across calls to the same pages.
func (m *Mem) mapped(addr uint32, n int, prot int, fn func(b []byte)) error {
	start := uint64(addr)
	end := start + uint64(n)
	if end > 1<<32 {
		return fmt.Errorf("%#x bytes at %#08x: %w", n, addr, ahb.ErrUnsupported)
	}
	ps := m.pageSize
	page := start &^ (ps - 1)
	length := (end - page + ps - 1) &^ (ps - 1)

	m.mu.Lock()
	defer m.mu.Unlock()
	mem, err := unix.Mmap(int(m.f.Fd()), int64(page), int(length), prot, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("map %#08x: %v: %w", page, err, ahb.ErrIO)
	}
	fn(mem[start-page : end-page])
	if err := unix.Munmap(mem); err != nil {
		return fmt.Errorf("unmap %#08x: %v: %w", page, err, ahb.ErrIO)
	}
	return nil
}

func (m *Mem) Read(addr uint32, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	err := m.mapped(addr, len(buf), unix.PROT_READ, func(b []byte) {
		copy(buf, b)
	})
	if err != nil {
		return 0, err
	}
	return len(buf), nil
}

func (m *Mem) Write(addr uint32, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	err := m.mapped(addr, len(buf), unix.PROT_READ|unix.PROT_WRITE, func(b []byte) {
		copy(b, buf)
	})
	if err != nil {
		return 0, err
	}
	return len(buf), nil
}

// Word accesses are single 32-bit loads and stores, so they need natural
// alignment.
func aligned(addr uint32) error {
	if addr&3 != 0 {
		return fmt.Errorf("unaligned word access at %#08x: %w", addr, ahb.ErrUnsupported)
	}
	return nil
}

func (m *Mem) ReadWord(addr uint32) (uint32, error) {
	if err := aligned(addr); err != nil {
		return 0, err
	}
	var v uint32
	err := m.mapped(addr, 4, unix.PROT_READ, func(b []byte) {
		v = *(*uint32)(unsafe.Pointer(&b[0]))
	})
	return v, err
}

func (m *Mem) WriteWord(addr uint32, val uint32) error {
	if err := aligned(addr); err != nil {
		return err
	}
	return m.mapped(addr, 4, unix.PROT_READ|unix.PROT_WRITE, func(b []byte) {
		*(*uint32)(unsafe.Pointer(&b[0])) = val
	})
}

func (m *Mem) Close() error {
	return m.f.Close()
}
