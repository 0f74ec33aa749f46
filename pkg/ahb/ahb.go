// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ahb describes access to the internal AHB of an Aspeed BMC,
// independent of which bridge is used to reach it.
package ahb

import (
	"errors"
)

// Type identifies the bridge an AHB implementation goes through.
type Type int

const (
	ILPC Type = iota
	L2A
	P2A
	Devmem
	Debug
)

var typeNames = [...]string{
	ILPC:   "iLPC2AHB",
	L2A:    "LPC2AHB",
	P2A:    "P2A",
	Devmem: "devmem",
	Debug:  "debug-uart",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "unknown"
	}
	return typeNames[t]
}

// ParseType maps a bridge name as accepted on the command line to its Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "ilpc", "ilpcb", "iLPC2AHB":
		return ILPC, nil
	case "l2a", "l2ab":
		return L2A, nil
	case "p2a", "p2ab":
		return P2A, nil
	case "devmem":
		return Devmem, nil
	case "debug":
		return Debug, nil
	}
	return 0, errors.New("unknown bridge " + s)
}

// AHB is a synchronous view of the 32-bit AHB address space.
//
// Word values are reported in the order the bridge hands them out, no byte
// swapping is performed.
type AHB interface {
	Type() Type
	Read(addr uint32, buf []byte) (int, error)
	Write(addr uint32, buf []byte) (int, error)
	ReadWord(addr uint32) (uint32, error)
	WriteWord(addr uint32, val uint32) error
	Close() error
}
