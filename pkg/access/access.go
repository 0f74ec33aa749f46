// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package access turns read and write requests into AHB operations.
package access

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/u-root/ahbtool/pkg/ahb"
)

var ErrUsage = errors.New("usage: read ADDR [LEN] | write ADDR [VALUE]")

// Reads of up to this many bytes are done as a single word access.
const wordLen = 4

func parse(what, s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q: %w", what, s, ErrUsage)
	}
	return v, nil
}

// Run performs the action described by args on bus.
//
//	read ADDR [LEN]    prints the word at ADDR, or copies LEN raw bytes to out
//	                   when LEN is larger than a word
//	write ADDR [VALUE] stores VALUE at ADDR, or copies in to ADDR onwards
//
// Numbers take the usual 0x and 0 prefixes.
func Run(bus ahb.AHB, args []string, in io.Reader, out io.Writer) error {
	if len(args) < 2 {
		return ErrUsage
	}
	action := args[0]
	if action != "read" && action != "write" {
		return fmt.Errorf("unknown action %q: %w", action, ErrUsage)
	}
	a, err := parse("address", args[1], 32)
	if err != nil {
		return err
	}
	addr := uint32(a)

	if action == "read" {
		length := uint64(wordLen)
		if len(args) > 2 {
			if length, err = parse("length", args[2], 64); err != nil {
				return err
			}
		}
		if length > wordLen {
			if err := ahb.SiphonIn(bus, addr, length, out); err != nil {
				return fmt.Errorf("siphon in: %w", err)
			}
			return nil
		}
		v, err := bus.ReadWord(addr)
		if err != nil {
			return fmt.Errorf("read word: %w", err)
		}
		_, err = fmt.Fprintf(out, "0x%08x: 0x%08x\n", addr, v)
		return err
	}

	if len(args) > 2 {
		v, err := parse("value", args[2], 32)
		if err != nil {
			return err
		}
		if err := bus.WriteWord(addr, uint32(v)); err != nil {
			return fmt.Errorf("write word: %w", err)
		}
		return nil
	}
	if err := ahb.SiphonOut(bus, addr, in); err != nil {
		return fmt.Errorf("siphon out: %w", err)
	}
	return nil
}
