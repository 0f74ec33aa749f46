// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bridge discovers which of the AHB bridges of an AST2400/AST2500
// are exposed and whether they allow writes.
//
// Discovery reads SCU, LPC and SDMC control registers over an already
// attached bus, so it can be run through any bridge that still works,
// including the one being assessed.
package bridge

import (
	"errors"
	"fmt"

	"github.com/u-root/ahbtool/pkg/ahb"
	"github.com/u-root/ahbtool/pkg/metric"
	"github.com/u-root/ahbtool/pkg/sdmc"
	"github.com/u-root/ahbtool/pkg/soc"
	"go.uber.org/zap"
)

// SCU
const (
	scuMisc             = 0x02c
	scuMiscG4P2ADRAMRO  = 1 << 25
	scuMiscG4P2ASPIRO   = 1 << 24
	scuMiscG4P2ASoCRO   = 1 << 23
	scuMiscG4P2AFMCRO   = 1 << 22
	scuMiscG5P2ADRAMRO  = 1 << 25
	scuMiscG5P2ALPCHRO  = 1 << 24
	scuMiscG5P2ASoCRO   = 1 << 23
	scuMiscG5P2AFlashRO = 1 << 22
	scuMiscUARTDbg      = 1 << 10

	scuHWStrap           = 0x070
	scuHWStrapUARTDbgSel = 1 << 29
	scuHWStrapSIODec     = 1 << 20

	scuPCIeConfig        = 0x180
	scuPCIeConfigBMCXDMA = 1 << 14
	scuPCIeConfigBMCMMIO = 1 << 9
	scuPCIeConfigBMC     = 1 << 8
	scuPCIeConfigVGAXDMA = 1 << 6
	scuPCIeConfigVGAMMIO = 1 << 1
	scuPCIeConfigVGA     = 1 << 0
)

// LPC
const (
	lpcHICRB       = 0x100
	lpcHICRBILPCRO = 1 << 6
)

// revision selects the probe implementations for one silicon generation.
type revision int

const (
	ast2400 revision = iota + 1
	ast2500
)

func (r revision) String() string {
	switch r {
	case ast2400:
		return "ast2400"
	case ast2500:
		return "ast2500"
	}
	return "unknown"
}

var socMatch = []soc.DeviceID{
	{Compatible: "aspeed,ast2400", Data: ast2400},
	{Compatible: "aspeed,ast2500", Data: ast2500},
}

var (
	scuMatch = []soc.DeviceID{
		{Compatible: "aspeed,ast2400-scu"},
		{Compatible: "aspeed,ast2500-scu"},
	}
	lpcMatch = []soc.DeviceID{
		{Compatible: "aspeed,ast2400-lpc-v2"},
		{Compatible: "aspeed,ast2500-lpc-v2"},
	}
)

// window is a P2A region and the SCU02C bit that makes it read-only.
type window struct {
	name   string
	start  uint64
	length uint64
	ro     uint32
}

var pciWindows = map[revision][numRanges]window{
	ast2400: {
		Firmware:  {"Firmware", 0x00000000, 0x18000000, scuMiscG4P2AFMCRO},
		SoCIO:     {"SoC IO", 0x18000000, 0x08000000, scuMiscG4P2ASoCRO},
		BMCFlash:  {"BMC Flash", 0x20000000, 0x10000000, scuMiscG4P2AFMCRO},
		HostFlash: {"Host Flash", 0x30000000, 0x10000000, scuMiscG4P2ASPIRO},
		DRAM:      {"DRAM", 0x40000000, 0x20000000, scuMiscG4P2ADRAMRO},
		LPCHost:   {"LPC Host", 0x60000000, 0x20000000, scuMiscG4P2ASoCRO},
		Reserved:  {"Reserved", 0x80000000, 0x80000000, scuMiscG4P2ASoCRO},
	},
	ast2500: {
		Firmware:  {"Firmware", 0x00000000, 0x10000000, scuMiscG5P2AFlashRO},
		SoCIO:     {"SoC IO", 0x10000000, 0x10000000, scuMiscG5P2ASoCRO},
		BMCFlash:  {"BMC Flash", 0x20000000, 0x10000000, scuMiscG5P2AFlashRO},
		HostFlash: {"Host Flash", 0x30000000, 0x10000000, scuMiscG5P2AFlashRO},
		Reserved:  {"Reserved", 0x40000000, 0x20000000, scuMiscG5P2ASoCRO},
		LPCHost:   {"LPC Host", 0x60000000, 0x20000000, scuMiscG5P2ALPCHRO},
		DRAM:      {"DRAM", 0x80000000, 0x80000000, scuMiscG5P2ADRAMRO},
	},
}

type probe struct {
	name string
	run  func(l soc.Lookup) error
}

// probes returns the probes of r in the order discovery runs them, each
// filling its part of ifs.
func (r revision) probes(ifs *Interfaces) []probe {
	return []probe{
		{"lpc", func(l soc.Lookup) error { return lpcStatus(l, &ifs.LPC) }},
		{"pci", func(l soc.Lookup) error { return r.pciStatus(l, &ifs.PCI) }},
		{"debug", func(l soc.Lookup) error { return r.debugStatus(l, &ifs.UART) }},
		{"kernel", func(l soc.Lookup) error { return kernelStatus(l, &ifs.Kernel) }},
		{"xdma", func(l soc.Lookup) error { return xdmaStatus(l, &ifs.XDMA) }},
	}
}

func (r revision) scu() []soc.DeviceID {
	return []soc.DeviceID{{Compatible: "aspeed," + r.String() + "-scu"}}
}

func lookup(l soc.Lookup, ids []soc.DeviceID) (soc.Region, error) {
	n, err := l.MatchNode(ids)
	if err != nil {
		return soc.Region{}, err
	}
	return l.Memory(n)
}

func lpcStatus(l soc.Lookup, c *LPC) error {
	scu, err := lookup(l, scuMatch)
	if err != nil {
		return err
	}
	lpc, err := lookup(l, lpcMatch)
	if err != nil {
		return err
	}

	v, err := l.RegionReadWord(scu, scuHWStrap)
	if err != nil {
		return err
	}
	c.SuperIO = enabledIf(v&scuHWStrapSIODec == 0)
	c.ILPC.Start = 0
	c.ILPC.Length = 1 << 32

	v, err = l.RegionReadWord(lpc, lpcHICRB)
	if err != nil {
		return err
	}
	c.ILPC.ReadWrite = v&lpcHICRBILPCRO == 0
	return nil
}

func (r revision) pciStatus(l soc.Lookup, c *PCI) error {
	windows, ok := pciWindows[r]
	if !ok {
		return fmt.Errorf("pci windows for %v: %w", r, ahb.ErrUnsupported)
	}
	scu, err := lookup(l, r.scu())
	if err != nil {
		return err
	}

	v, err := l.RegionReadWord(scu, scuPCIeConfig)
	if err != nil {
		return err
	}
	c.VGA = enabledIf(v&scuPCIeConfigVGA != 0)
	c.VGAMMIO = enabledIf(v&scuPCIeConfigVGAMMIO != 0)
	c.VGAXDMA = enabledIf(v&scuPCIeConfigVGAXDMA != 0)
	c.BMC = enabledIf(v&scuPCIeConfigBMC != 0)
	c.BMCMMIO = enabledIf(v&scuPCIeConfigBMCMMIO != 0)
	c.BMCXDMA = enabledIf(v&scuPCIeConfigBMCXDMA != 0)

	v, err = l.RegionReadWord(scu, scuMisc)
	if err != nil {
		return err
	}
	for i, w := range windows {
		c.Ranges[i] = Range{
			Name:      w.name,
			Start:     w.start,
			Length:    w.length,
			ReadWrite: v&w.ro == 0,
		}
	}
	return nil
}

func (r revision) debugStatus(l soc.Lookup, c *UART) error {
	if r == ast2400 {
		c.Debug = Absent
		return nil
	}
	scu, err := lookup(l, r.scu())
	if err != nil {
		return err
	}

	v, err := l.RegionReadWord(scu, scuMisc)
	if err != nil {
		return err
	}
	c.Debug = enabledIf(v&scuMiscUARTDbg == 0)

	v, err = l.RegionReadWord(scu, scuHWStrap)
	if err != nil {
		return err
	}
	c.UART = UART1
	if v&scuHWStrapUARTDbgSel != 0 {
		c.UART = UART5
	}
	return nil
}

func kernelStatus(l soc.Lookup, c *Kernel) error {
	c.HaveDevmem = l.Bus().Type() == ahb.Devmem
	return nil
}

func xdmaStatus(l soc.Lookup, c *XDMA) error {
	m, err := sdmc.Get(l)
	if err != nil {
		return err
	}
	constrained, err := m.ConstrainsXDMA()
	if err != nil {
		return err
	}
	c.Unconstrained = !constrained
	return nil
}

// attach is replaced in tests to observe the lifetime of the lookup.
var attach = func(bus ahb.AHB, opts ...soc.Option) (soc.Lookup, error) {
	return soc.Probe(bus, opts...)
}

type options struct {
	log     *zap.Logger
	socOpts []soc.Option
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithSoCOptions passes opts on to the device lookup.
func WithSoCOptions(opts ...soc.Option) Option {
	return func(o *options) {
		o.socOpts = append(o.socOpts, opts...)
	}
}

// Discover identifies the SoC behind bus and runs its probes in order.
// The first probe to fail ends the run; the returned Interfaces are then
// incomplete and must not be relied on.
func Discover(bus ahb.AHB, opts ...Option) (*Interfaces, error) {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	ifs, err := discover(bus, &o)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metric.DiscoveryRuns.WithLabelValues(result).Inc()
	return ifs, err
}

func discover(bus ahb.AHB, o *options) (*Interfaces, error) {
	l, err := attach(bus, o.socOpts...)
	if err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}
	defer func() {
		if err := l.Close(); err != nil {
			o.log.Warn("Failed to release SoC", zap.Error(err))
		}
	}()

	n, err := l.MatchNode(socMatch)
	if errors.Is(err, ahb.ErrNotFound) {
		return nil, fmt.Errorf("%v: %w", l.Root().Compatible, ahb.ErrUnsupported)
	}
	if err != nil {
		return nil, err
	}
	d, err := l.MatchData(socMatch, n)
	if err != nil {
		return nil, err
	}
	r, ok := d.(revision)
	if !ok {
		return nil, fmt.Errorf("%s: %w", n.Name, ahb.ErrUnsupported)
	}

	o.log.Info("Performing interface discovery",
		zap.Stringer("via", bus.Type()), zap.Stringer("soc", r))

	ifs := &Interfaces{}
	for _, p := range r.probes(ifs) {
		o.log.Debug("Probing", zap.String("probe", p.name))
		if err := p.run(l); err != nil {
			return ifs, fmt.Errorf("%s: %w", p.name, err)
		}
	}
	return ifs, nil
}
