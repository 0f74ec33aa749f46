// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ahb

import (
	"errors"
	"fmt"
	"io"
)

// SiphonChunk is the amount of data moved per bridge call by the siphons.
const SiphonChunk = 4096

// chunk returns how many bytes may be moved per call on bus. An iLPC2AHB
// transfer addresses all of its bytes at the base it was given, so such
// buses are driven a byte at a time.
func chunk(bus AHB) int {
	if bus.Type() == ILPC {
		return 1
	}
	return SiphonChunk
}

const addressSpace = uint64(1) << 32

// SiphonIn copies length bytes starting at addr from the bus into w.
func SiphonIn(bus AHB, addr uint32, length uint64, w io.Writer) error {
	if uint64(addr)+length > addressSpace {
		return fmt.Errorf("siphon of %#x bytes at %#08x: %w", length, addr, ErrUnsupported)
	}
	buf := make([]byte, chunk(bus))
	for done := uint64(0); done < length; {
		n := length - done
		if n > uint64(len(buf)) {
			n = uint64(len(buf))
		}
		cur := addr + uint32(done)
		got, err := bus.Read(cur, buf[:n])
		if err != nil {
			return fmt.Errorf("read %#08x: %w", cur, err)
		}
		if got == 0 {
			return fmt.Errorf("read %#08x: short transfer: %w", cur, ErrIO)
		}
		if _, err := w.Write(buf[:got]); err != nil {
			return err
		}
		done += uint64(got)
	}
	return nil
}

// SiphonOut copies everything r produces onto the bus starting at addr.
func SiphonOut(bus AHB, addr uint32, r io.Reader) error {
	buf := make([]byte, chunk(bus))
	cur := uint64(addr)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if cur+uint64(n) > addressSpace {
				return fmt.Errorf("siphon past end of address space at %#x: %w", cur, ErrUnsupported)
			}
			if _, err := bus.Write(uint32(cur), buf[:n]); err != nil {
				return fmt.Errorf("write %#08x: %w", cur, err)
			}
			cur += uint64(n)
		}
		if errors.Is(rerr, io.EOF) {
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}
