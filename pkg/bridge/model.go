// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bridge

// IPState is the discovered state of a hardware block.
type IPState int

const (
	// Unknown is the state of anything discovery did not get to.
	Unknown IPState = iota
	Absent
	Enabled
	Disabled
)

var ipStateDesc = [...]string{
	Unknown:  "Unknown",
	Absent:   "Absent",
	Enabled:  "Enabled",
	Disabled: "Disabled",
}

func (s IPState) String() string {
	if s < 0 || int(s) >= len(ipStateDesc) {
		return ipStateDesc[Unknown]
	}
	return ipStateDesc[s]
}

func enabledIf(b bool) IPState {
	if b {
		return Enabled
	}
	return Disabled
}

// Range is a named window of a PCIe to AHB aperture.
type Range struct {
	Name      string
	Start     uint64
	Length    uint64
	ReadWrite bool
}

// Indices of PCI.Ranges
const (
	Firmware = iota
	SoCIO
	BMCFlash
	HostFlash
	DRAM
	LPCHost
	Reserved
	numRanges
)

// LPC describes the host LPC interface.
type LPC struct {
	// SuperIO decoding at the host's 0x2e/0x4e.
	SuperIO IPState
	ILPC    struct {
		Start     uint64
		Length    uint64
		ReadWrite bool
	}
}

// PCI describes the VGA and BMC PCIe devices and the P2A aperture.
type PCI struct {
	VGA     IPState
	VGAMMIO IPState
	VGAXDMA IPState
	BMC     IPState
	BMCMMIO IPState
	BMCXDMA IPState
	Ranges  [numRanges]Range
}

type DebugUART int

const (
	UART1 DebugUART = iota
	UART5
)

func (u DebugUART) String() string {
	if u == UART5 {
		return "UART5"
	}
	return "UART1"
}

// UART describes the built-in debug console. UART is only meaningful if
// Debug is not Absent.
type UART struct {
	Debug IPState
	UART  DebugUART
}

type Kernel struct {
	HaveDevmem bool
}

type XDMA struct {
	Unconstrained bool
}

// Interfaces is the result of one discovery run.
type Interfaces struct {
	LPC    LPC
	PCI    PCI
	UART   UART
	Kernel Kernel
	XDMA   XDMA
}
