// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bridge

import (
	"fmt"
	"io"
)

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func permission(rw bool) string {
	if rw {
		return "Read-write"
	}
	return "Read-only"
}

// Write renders the report in the order discovery produced it.
func (ifs *Interfaces) Write(w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("SuperIO: %v\n", ifs.LPC.SuperIO)
	ew.printf("iLPC2AHB bridge: %s\n", permission(ifs.LPC.ILPC.ReadWrite))

	p := &ifs.PCI
	ew.printf("VGA PCIe device: %v\n", p.VGA)
	ew.printf("MMIO on VGA device: %v\n", p.VGAMMIO)
	ew.printf("X-DMA on VGA device: %v\n", p.VGAXDMA)
	ew.printf("BMC PCIe device: %v\n", p.BMC)
	ew.printf("MMIO on BMC device: %v\n", p.BMCMMIO)
	ew.printf("X-DMA on BMC device: %v\n", p.BMCXDMA)
	if p.VGAMMIO == Enabled || p.BMCMMIO == Enabled {
		ew.printf("P2A write filter state:\n")
		for _, r := range p.Ranges {
			ew.printf("\t0x%08x-0x%08x (%s): %s\n", r.Start, r.Start+r.Length-1,
				r.Name, permission(r.ReadWrite))
		}
	}

	if p.VGAXDMA == Enabled || p.BMCXDMA == Enabled {
		ew.printf("X-DMA is unconstrained: %s\n", yesNo(ifs.XDMA.Unconstrained))
	}

	if ifs.UART.Debug == Absent {
		ew.printf("Debug UART: %v\n", ifs.UART.Debug)
	} else {
		ew.printf("Debug UART: %v (%v)\n", ifs.UART.Debug, ifs.UART.UART)
	}
	ew.printf("Kernel /dev/mem access: %s\n", yesNo(ifs.Kernel.HaveDevmem))
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
