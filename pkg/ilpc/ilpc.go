// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ilpc reaches the AHB through the iLPC2AHB logical device of the
// SuperIO. This is the path available to the host over LPC as long as the
// BMC has not disabled SuperIO decoding.
//
// Every call runs the complete select/enable/width/address/trigger sequence
// with the SuperIO unlocked, and locks it again on the way out no matter how
// the sequence ended. A failed call may leave the iLPC2AHB device selected
// and enabled.
package ilpc

import (
	"sync"

	"github.com/u-root/ahbtool/pkg/ahb"
	"github.com/u-root/ahbtool/pkg/metric"
	"github.com/u-root/ahbtool/pkg/soc"
	"github.com/u-root/ahbtool/pkg/superio"
	"go.uber.org/zap"
)

// iLPC2AHB logical device registers
const (
	regEnable  = 0x30
	regAddr0   = 0xf0
	regAddr1   = 0xf1
	regAddr2   = 0xf2
	regAddr3   = 0xf3
	regData0   = 0xf4
	regData1   = 0xf5
	regData2   = 0xf6
	regData3   = 0xf7
	regWidth   = 0xf8
	regTrigger = 0xfe

	width8  = 0
	width32 = 2

	// Any value read from the trigger register starts a read, a write has
	// to be committed with this one.
	triggerWrite = 0xcf
)

const (
	// LPC HICRB, iLPC2AHB bridge control
	HICRB       uint32 = 0x1e789100
	hicrbILPCRO uint32 = 1 << 6
	scuRevision uint32 = 0x1e6e207c
)

// Mode is the write permission of the bridge as configured by the BMC.
type Mode int

const (
	ReadWrite Mode = iota
	ReadOnly
)

func (m Mode) String() string {
	if m == ReadOnly {
		return "read-only"
	}
	return "read-write"
}

// Bridge is an iLPC2AHB transport over one SuperIO session.
type Bridge struct {
	// Serializes whole transfers, the SuperIO index register is shared
	// state between all of their steps.
	mu  sync.Mutex
	sio superio.Transport
	log *zap.Logger
}

type Option func(*Bridge)

// WithLogger sets where relock failures and probe progress is reported.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) {
		b.log = l
	}
}

func New(t superio.Transport, opts ...Option) *Bridge {
	b := &Bridge{sio: t, log: zap.NewNop()}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Bridge) Type() ahb.Type {
	return ahb.ILPC
}

func (b *Bridge) Close() error {
	return b.sio.Close()
}

// Probe reports whether the bridge is usable. A SuperIO that does not answer
// at all is not an error, the bridge is simply not there to be probed.
func (b *Bridge) Probe() (bool, error) {
	b.log.Debug("Probing", zap.Stringer("bridge", ahb.ILPC))
	if !b.sio.Present() {
		return false, nil
	}
	rev, err := b.ReadWord(scuRevision)
	if err != nil {
		return false, err
	}
	name, err := soc.ModelName(rev)
	if err != nil {
		return false, err
	}
	b.log.Debug("Found SoC", zap.String("model", name))
	return true, nil
}

// Mode reads the bridge permission from LPC HICRB.
func (b *Bridge) Mode() (Mode, error) {
	v, err := b.ReadWord(HICRB)
	if err != nil {
		return ReadWrite, err
	}
	if v&hicrbILPCRO != 0 {
		return ReadOnly, nil
	}
	return ReadWrite, nil
}

// session runs fn with the SuperIO unlocked and the iLPC2AHB device
// selected, enabled and set to width.
func (b *Bridge) session(op string, width uint8, fn func() error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	defer func() {
		if err := b.sio.Lock(); err != nil {
			metric.ILPCRelockFailures.Inc()
			b.log.Error("Failed to lock SuperIO device", zap.String("op", op), zap.Error(err))
		}
	}()

	metric.ILPCTransfers.WithLabelValues(op).Inc()
	if err := b.sio.Unlock(); err != nil {
		return err
	}
	if err := b.sio.Select(superio.ILPC); err != nil {
		return err
	}
	if err := b.sio.WriteReg(regEnable, 0x01); err != nil {
		return err
	}
	if err := b.sio.WriteReg(regWidth, width); err != nil {
		return err
	}
	return fn()
}

func (b *Bridge) address(addr uint32) error {
	for i, reg := range [...]uint8{regAddr0, regAddr1, regAddr2, regAddr3} {
		if err := b.sio.WriteReg(reg, byte(addr>>(24-8*i))); err != nil {
			return err
		}
	}
	return nil
}

// Read fills buf using single byte accesses. The base address is sent
// again for every byte.
func (b *Bridge) Read(addr uint32, buf []byte) (int, error) {
	err := b.session("read", width8, func() error {
		for i := range buf {
			if err := b.address(addr); err != nil {
				return err
			}
			if _, err := b.sio.ReadReg(regTrigger); err != nil {
				return err
			}
			v, err := b.sio.ReadReg(regData3)
			if err != nil {
				return err
			}
			buf[i] = v
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	metric.ILPCBytes.WithLabelValues("read").Add(float64(len(buf)))
	return len(buf), nil
}

// Write stores buf using single byte accesses. The base address is sent
// again for every byte.
func (b *Bridge) Write(addr uint32, buf []byte) (int, error) {
	err := b.session("write", width8, func() error {
		for _, v := range buf {
			if err := b.address(addr); err != nil {
				return err
			}
			if err := b.sio.WriteReg(regData3, v); err != nil {
				return err
			}
			if err := b.sio.WriteReg(regTrigger, triggerWrite); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	metric.ILPCBytes.WithLabelValues("write").Add(float64(len(buf)))
	return len(buf), nil
}

// ReadWord performs a 4-byte access. The first data register read ends up
// as the most significant byte of the result.
func (b *Bridge) ReadWord(addr uint32) (uint32, error) {
	var val uint32
	err := b.session("readl", width32, func() error {
		if err := b.address(addr); err != nil {
			return err
		}
		if _, err := b.sio.ReadReg(regTrigger); err != nil {
			return err
		}
		var v uint32
		for _, reg := range [...]uint8{regData0, regData1, regData2, regData3} {
			d, err := b.sio.ReadReg(reg)
			if err != nil {
				return err
			}
			v = v<<8 | uint32(d)
		}
		val = v
		return nil
	})
	if err != nil {
		return 0, err
	}
	metric.ILPCBytes.WithLabelValues("readl").Add(4)
	return val, nil
}

// WriteWord performs a 4-byte access, most significant byte into the first
// data register.
func (b *Bridge) WriteWord(addr uint32, val uint32) error {
	err := b.session("writel", width32, func() error {
		if err := b.address(addr); err != nil {
			return err
		}
		for i, reg := range [...]uint8{regData0, regData1, regData2, regData3} {
			if err := b.sio.WriteReg(reg, byte(val>>(24-8*i))); err != nil {
				return err
			}
		}
		return b.sio.WriteReg(regTrigger, triggerWrite)
	})
	if err != nil {
		return err
	}
	metric.ILPCBytes.WithLabelValues("writel").Add(4)
	return nil
}
