// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ahbtest provides an in-memory AHB for tests.
package ahbtest

import (
	"github.com/u-root/ahbtool/pkg/ahb"
)

// Bus is a sparse AHB. Unset locations read as zero.
type Bus struct {
	Kind  ahb.Type
	Words map[uint32]uint32
	Bytes map[uint32]byte
	// Accesses to these addresses fail with the given error.
	Fail map[uint32]error

	// Addresses of every word read, in order.
	WordReads  []uint32
	WordWrites []uint32
	Closed     bool
}

func New(kind ahb.Type) *Bus {
	return &Bus{
		Kind:  kind,
		Words: make(map[uint32]uint32),
		Bytes: make(map[uint32]byte),
		Fail:  make(map[uint32]error),
	}
}

func (b *Bus) Type() ahb.Type { return b.Kind }

func (b *Bus) Read(addr uint32, buf []byte) (int, error) {
	for i := range buf {
		a := addr + uint32(i)
		if err := b.Fail[a]; err != nil {
			return 0, err
		}
		buf[i] = b.Bytes[a]
	}
	return len(buf), nil
}

func (b *Bus) Write(addr uint32, buf []byte) (int, error) {
	for i, v := range buf {
		a := addr + uint32(i)
		if err := b.Fail[a]; err != nil {
			return 0, err
		}
		b.Bytes[a] = v
	}
	return len(buf), nil
}

func (b *Bus) ReadWord(addr uint32) (uint32, error) {
	b.WordReads = append(b.WordReads, addr)
	if err := b.Fail[addr]; err != nil {
		return 0, err
	}
	return b.Words[addr], nil
}

func (b *Bus) WriteWord(addr uint32, val uint32) error {
	b.WordWrites = append(b.WordWrites, addr)
	if err := b.Fail[addr]; err != nil {
		return err
	}
	b.Words[addr] = val
	return nil
}

func (b *Bus) Close() error {
	b.Closed = true
	return nil
}
