// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sdmc inspects the SDRAM memory controller, which decides which
// parts of DRAM the bus masters behind the PCIe bridges may reach.
package sdmc

import (
	"errors"
	"fmt"

	"github.com/u-root/ahbtool/pkg/ahb"
	"github.com/u-root/ahbtool/pkg/soc"
)

const (
	// MCR08: Graphics Memory Protection Register
	mcrGMP = 0x08
	// XDMA requests are restricted to the VGA memory region
	gmpXDMAConstrained = 1 << 16
)

var match = []soc.DeviceID{
	{Compatible: "aspeed,ast2400-sdram-controller"},
	{Compatible: "aspeed,ast2500-sdram-controller"},
}

// SDMC is the memory controller of one SoC.
type SDMC struct {
	soc   soc.Lookup
	iomem soc.Region
}

// Get resolves the memory controller of s. A SoC without one reports
// ahb.ErrNotPresent.
func Get(s soc.Lookup) (*SDMC, error) {
	n, err := s.MatchNode(match)
	if errors.Is(err, ahb.ErrNotFound) {
		return nil, fmt.Errorf("no DMA engine: %w", ahb.ErrNotPresent)
	}
	if err != nil {
		return nil, err
	}
	r, err := s.Memory(n)
	if err != nil {
		return nil, err
	}
	return &SDMC{soc: s, iomem: r}, nil
}

// ConstrainsXDMA reports whether XDMA is currently kept out of everything
// but the VGA memory.
func (c *SDMC) ConstrainsXDMA() (bool, error) {
	v, err := c.soc.RegionReadWord(c.iomem, mcrGMP)
	if err != nil {
		return false, err
	}
	return v&gmpXDMAConstrained != 0, nil
}
