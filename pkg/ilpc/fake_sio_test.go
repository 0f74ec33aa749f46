// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ilpc

import (
	"fmt"
	"testing"

	"github.com/u-root/ahbtool/pkg/ahb"
	"github.com/u-root/ahbtool/pkg/superio"
)

const (
	opUnlock = iota
	opLock
	opSelect
	opWrite
	opRead
)

type op struct {
	kind int
	reg  uint8
	val  uint8
}

func opstr(o *op) string {
	switch o.kind {
	case opUnlock:
		return "{unlock}"
	case opLock:
		return "{lock}"
	case opSelect:
		return fmt.Sprintf("{select %02x}", o.val)
	case opWrite:
		return fmt.Sprintf("{write %02x = %02x}", o.reg, o.val)
	}
	return fmt.Sprintf("{read %02x = %02x}", o.reg, o.val)
}

// fakeSio replays an expected sequence of SuperIO operations.
type fakeSio struct {
	t       *testing.T
	ops     []op
	present bool
}

func fakeSuperIO(t *testing.T) *fakeSio {
	return &fakeSio{t: t, present: true}
}

func (s *fakeSio) next(got string) op {
	if len(s.ops) == 0 {
		s.t.Errorf("Unexpected %s, no more operations expected", got)
		return op{kind: -1}
	}
	o := s.ops[0]
	s.ops = s.ops[1:]
	return o
}

func (s *fakeSio) Present() bool { return s.present }

func (s *fakeSio) Unlock() error {
	if o := s.next("unlock"); o.kind != opUnlock {
		s.t.Errorf("Expected %s, got unlock", opstr(&o))
	}
	return nil
}

func (s *fakeSio) Lock() error {
	if o := s.next("lock"); o.kind != opLock {
		s.t.Errorf("Expected %s, got lock", opstr(&o))
	}
	return nil
}

func (s *fakeSio) Select(d superio.LogicalDevice) error {
	if o := s.next("select"); o.kind != opSelect || o.val != uint8(d) {
		s.t.Errorf("Expected %s, got select %02x", opstr(&o), d)
	}
	return nil
}

func (s *fakeSio) WriteReg(reg uint8, val uint8) error {
	if o := s.next("write"); o.kind != opWrite || o.reg != reg || o.val != val {
		s.t.Errorf("Expected %s, got write %02x = %02x", opstr(&o), reg, val)
	}
	return nil
}

func (s *fakeSio) ReadReg(reg uint8) (uint8, error) {
	o := s.next("read")
	if o.kind != opRead || o.reg != reg {
		s.t.Errorf("Expected %s, got read %02x", opstr(&o), reg)
	}
	return o.val, nil
}

func (s *fakeSio) Close() error { return nil }

func (s *fakeSio) ExpectUnlock() { s.ops = append(s.ops, op{kind: opUnlock}) }

func (s *fakeSio) ExpectLock() { s.ops = append(s.ops, op{kind: opLock}) }

func (s *fakeSio) ExpectSelect(d superio.LogicalDevice) {
	s.ops = append(s.ops, op{kind: opSelect, val: uint8(d)})
}

func (s *fakeSio) ExpectWrite(reg, val uint8) {
	s.ops = append(s.ops, op{kind: opWrite, reg: reg, val: val})
}

func (s *fakeSio) FakeRead(reg, val uint8) {
	s.ops = append(s.ops, op{kind: opRead, reg: reg, val: val})
}

// ExpectSetup queues the common prologue of every transfer.
func (s *fakeSio) ExpectSetup(width uint8) {
	s.ExpectUnlock()
	s.ExpectSelect(superio.ILPC)
	s.ExpectWrite(0x30, 0x01)
	s.ExpectWrite(0xf8, width)
}

func (s *fakeSio) ExpectAddress(a uint32) {
	s.ExpectWrite(0xf0, uint8(a>>24))
	s.ExpectWrite(0xf1, uint8(a>>16))
	s.ExpectWrite(0xf2, uint8(a>>8))
	s.ExpectWrite(0xf3, uint8(a))
}

func (s *fakeSio) Done() {
	if len(s.ops) != 0 {
		s.t.Errorf("%d expected operations did not happen, next is %s", len(s.ops), opstr(&s.ops[0]))
	}
}

// simSio models the iLPC2AHB logical device in front of a sparse AHB.
type simSio struct {
	locked   bool
	selected superio.LogicalDevice
	regs     [256]uint8
	words    map[uint32]uint32
	bytes    map[uint32]uint8

	// Fail the access to this register, if non-zero.
	failReg   uint8
	lockErr   error
	unlockErr error

	// Calls made other than Unlock and Lock, and Lock calls.
	accesses int
	locks    int
}

func simSuperIO() *simSio {
	return &simSio{
		locked: true,
		words:  make(map[uint32]uint32),
		bytes:  make(map[uint32]uint8),
	}
}

func (s *simSio) Present() bool { return true }

func (s *simSio) Unlock() error {
	if s.unlockErr != nil {
		return s.unlockErr
	}
	s.locked = false
	return nil
}

func (s *simSio) Lock() error {
	s.locks++
	if s.lockErr != nil {
		return s.lockErr
	}
	s.locked = true
	return nil
}

func (s *simSio) Select(d superio.LogicalDevice) error {
	s.accesses++
	if s.locked {
		return ahb.ErrLock
	}
	s.selected = d
	return nil
}

func (s *simSio) addr() uint32 {
	return uint32(s.regs[0xf0])<<24 | uint32(s.regs[0xf1])<<16 |
		uint32(s.regs[0xf2])<<8 | uint32(s.regs[0xf3])
}

func (s *simSio) check(reg uint8) error {
	s.accesses++
	if s.locked {
		return ahb.ErrLock
	}
	if s.failReg != 0 && reg == s.failReg {
		return ahb.ErrIO
	}
	return nil
}

func (s *simSio) WriteReg(reg uint8, val uint8) error {
	if err := s.check(reg); err != nil {
		return err
	}
	if reg == 0xfe && val == 0xcf && s.selected == superio.ILPC {
		a := s.addr()
		if s.regs[0xf8] == 2 {
			s.words[a] = uint32(s.regs[0xf4])<<24 | uint32(s.regs[0xf5])<<16 |
				uint32(s.regs[0xf6])<<8 | uint32(s.regs[0xf7])
		} else {
			s.bytes[a] = s.regs[0xf7]
		}
		return nil
	}
	s.regs[reg] = val
	return nil
}

func (s *simSio) ReadReg(reg uint8) (uint8, error) {
	if err := s.check(reg); err != nil {
		return 0, err
	}
	if reg == 0xfe && s.selected == superio.ILPC {
		a := s.addr()
		if s.regs[0xf8] == 2 {
			v := s.words[a]
			s.regs[0xf4] = uint8(v >> 24)
			s.regs[0xf5] = uint8(v >> 16)
			s.regs[0xf6] = uint8(v >> 8)
			s.regs[0xf7] = uint8(v)
		} else {
			s.regs[0xf7] = s.bytes[a]
		}
		return 0, nil
	}
	return s.regs[reg], nil
}

func (s *simSio) Close() error { return nil }
