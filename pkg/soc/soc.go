// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package soc resolves the devices of an Aspeed SoC to their register
// windows on the AHB and reads those registers over whichever bridge the
// caller attached with.
package soc

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/u-root/ahbtool/pkg/ahb"
	"go.uber.org/zap"
)

// DeviceID matches a device by compatible string. Data is handed back by
// MatchData for the entry that matched.
type DeviceID struct {
	Compatible string
	Data       interface{}
}

// Lookup is the register-mapped device lookup consumed by discovery.
type Lookup interface {
	Root() *Node
	MatchNode(ids []DeviceID) (*Node, error)
	MatchData(ids []DeviceID, n *Node) (interface{}, error)
	Memory(n *Node) (Region, error)
	RegionReadWord(r Region, off uint32) (uint32, error)
	Bus() ahb.AHB
	Close() error
}

var _ Lookup = (*SoC)(nil)

// SoC is an attachment to the device tree of the chip behind a bus.
type SoC struct {
	bus   ahb.AHB
	model string
	root  *Node
	log   *zap.Logger
}

type options struct {
	fs     afero.Fs
	dtb    string
	logger *zap.Logger
}

type Option func(*options)

// WithDeviceTree describes the SoC from a flattened device tree blob on fs
// instead of identifying the silicon revision.
func WithDeviceTree(fs afero.Fs, path string) Option {
	return func(o *options) {
		o.fs = fs
		o.dtb = path
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Probe attaches to the SoC behind bus.
func Probe(bus ahb.AHB, opts ...Option) (*SoC, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	s := &SoC{bus: bus, log: o.logger}

	if o.dtb != "" {
		root, err := loadDeviceTree(o.fs, o.dtb)
		if err != nil {
			return nil, err
		}
		s.root = root
		if len(root.Compatible) > 0 {
			s.model = root.Compatible[0]
		}
		s.log.Debug("Loaded device tree", zap.String("path", o.dtb), zap.String("model", s.model))
		return s, nil
	}

	rev, err := bus.ReadWord(SCURevision)
	if err != nil {
		return nil, fmt.Errorf("read silicon revision: %w", err)
	}
	gen, err := GenerationOf(rev)
	if err != nil {
		return nil, err
	}
	s.model, _ = ModelName(rev)
	s.root = builtinTree(gen)
	s.log.Debug("Identified SoC", zap.String("model", s.model), zap.Uint32("revision", rev))
	return s, nil
}

func (s *SoC) Bus() ahb.AHB {
	return s.bus
}

func (s *SoC) Model() string {
	return s.model
}

func (s *SoC) Root() *Node {
	return s.root
}

// MatchNode returns the first device compatible with an entry of ids,
// trying the entries in order.
func (s *SoC) MatchNode(ids []DeviceID) (*Node, error) {
	if s.root == nil {
		return nil, fmt.Errorf("soc detached: %w", ahb.ErrNotPresent)
	}
	for _, id := range ids {
		var found *Node
		s.root.Walk(func(n *Node) {
			if found == nil && n.IsCompatible(id.Compatible) {
				found = n
			}
		})
		if found != nil {
			return found, nil
		}
	}
	return nil, fmt.Errorf("%v: %w", compatibles(ids), ahb.ErrNotFound)
}

// MatchData returns the Data of the entry of ids that n is compatible with.
func (s *SoC) MatchData(ids []DeviceID, n *Node) (interface{}, error) {
	for _, id := range ids {
		if n.IsCompatible(id.Compatible) {
			if id.Data == nil {
				break
			}
			return id.Data, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", n.Name, ahb.ErrNoPayload)
}

// Memory returns the first register window of n.
func (s *SoC) Memory(n *Node) (Region, error) {
	if len(n.Reg) == 0 {
		return Region{}, fmt.Errorf("%s has no registers: %w", n.Name, ahb.ErrNotFound)
	}
	return n.Reg[0], nil
}

func (s *SoC) ReadWord(addr uint32) (uint32, error) {
	return s.bus.ReadWord(addr)
}

// RegionReadWord reads the register at off into r.
func (s *SoC) RegionReadWord(r Region, off uint32) (uint32, error) {
	if uint64(off)+4 > r.Length || r.Start+uint64(off) > 0xfffffffc {
		return 0, fmt.Errorf("offset %#x outside of %v: %w", off, r, ahb.ErrIO)
	}
	return s.bus.ReadWord(uint32(r.Start) + off)
}

// Close releases the attachment. The bus stays open, it belongs to the caller.
func (s *SoC) Close() error {
	s.root = nil
	return nil
}

func compatibles(ids []DeviceID) []string {
	c := make([]string, len(ids))
	for i, id := range ids {
		c[i] = id.Compatible
	}
	return c
}
