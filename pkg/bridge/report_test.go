// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bridge

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReport(t *testing.T) {
	ifs := &Interfaces{
		LPC: LPC{SuperIO: Enabled},
		PCI: PCI{
			VGA: Enabled, VGAMMIO: Enabled, VGAXDMA: Disabled,
			BMC: Disabled, BMCMMIO: Disabled, BMCXDMA: Enabled,
		},
		UART:   UART{Debug: Enabled, UART: UART5},
		Kernel: Kernel{HaveDevmem: true},
		XDMA:   XDMA{Unconstrained: true},
	}
	ifs.LPC.ILPC.Length = 1 << 32
	for i, w := range pciWindows[ast2500] {
		ifs.PCI.Ranges[i] = Range{w.name, w.start, w.length, i != DRAM}
	}

	var b bytes.Buffer
	if err := ifs.Write(&b); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := `SuperIO: Enabled
iLPC2AHB bridge: Read-only
VGA PCIe device: Enabled
MMIO on VGA device: Enabled
X-DMA on VGA device: Disabled
BMC PCIe device: Disabled
MMIO on BMC device: Disabled
X-DMA on BMC device: Enabled
P2A write filter state:
	0x00000000-0x0fffffff (Firmware): Read-write
	0x10000000-0x1fffffff (SoC IO): Read-write
	0x20000000-0x2fffffff (BMC Flash): Read-write
	0x30000000-0x3fffffff (Host Flash): Read-write
	0x80000000-0xffffffff (DRAM): Read-only
	0x60000000-0x7fffffff (LPC Host): Read-write
	0x40000000-0x5fffffff (Reserved): Read-write
X-DMA is unconstrained: Yes
Debug UART: Enabled (UART5)
Kernel /dev/mem access: Yes
`
	if diff := cmp.Diff(want, b.String()); diff != "" {
		t.Errorf("Unexpected report (-want +got):\n%s", diff)
	}
}

func TestReportOmitsDisabledApertures(t *testing.T) {
	ifs := &Interfaces{UART: UART{Debug: Absent}}
	var b bytes.Buffer
	if err := ifs.Write(&b); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := `SuperIO: Unknown
iLPC2AHB bridge: Read-only
VGA PCIe device: Unknown
MMIO on VGA device: Unknown
X-DMA on VGA device: Unknown
BMC PCIe device: Unknown
MMIO on BMC device: Unknown
X-DMA on BMC device: Unknown
Debug UART: Absent
Kernel /dev/mem access: No
`
	if diff := cmp.Diff(want, b.String()); diff != "" {
		t.Errorf("Unexpected report (-want +got):\n%s", diff)
	}
}

type brokenWriter struct{ n int }

var errBroken = errors.New("broken pipe")

func (w *brokenWriter) Write(p []byte) (int, error) {
	w.n++
	return 0, errBroken
}

func TestReportWriteError(t *testing.T) {
	w := &brokenWriter{}
	if err := (&Interfaces{}).Write(w); !errors.Is(err, errBroken) {
		t.Fatalf("Expected write error, got %v", err)
	}
	if w.n != 1 {
		t.Errorf("Expected writing to stop after the first error, wrote %d times", w.n)
	}
}
