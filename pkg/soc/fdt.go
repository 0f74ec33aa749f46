// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package soc

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/platinasystems/fdt"
	"github.com/spf13/afero"
)

const fdtMagic = 0xd00dfeed

// loadDeviceTree reads a flattened device tree blob, e.g. the BMC's own
// /sys/firmware/fdt, and converts the nodes discovery cares about.
func loadDeviceTree(fs afero.Fs, path string) (*Node, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read device tree: %v", err)
	}
	return parseDeviceTree(b)
}

func parseDeviceTree(b []byte) (root *Node, err error) {
	if len(b) < 40 || binary.BigEndian.Uint32(b) != fdtMagic {
		return nil, fmt.Errorf("not a flattened device tree")
	}
	// The parser trusts the offsets in the blob.
	defer func() {
		if r := recover(); r != nil {
			root = nil
			err = fmt.Errorf("malformed device tree: %v", r)
		}
	}()
	t := &fdt.Tree{Debug: false, IsLittleEndian: false}
	if err := t.Parse(b); err != nil {
		return nil, fmt.Errorf("parse device tree: %v", err)
	}
	if t.RootNode == nil {
		return nil, fmt.Errorf("device tree has no root node")
	}
	return convert(t, t.RootNode, 2, 1), nil
}

func cells(t *fdt.Tree, n *fdt.Node, name string, def int) int {
	if v, ok := n.Properties[name]; ok && len(v) >= 4 {
		return int(t.PropUint32(v))
	}
	return def
}

// convert translates n, whose reg property is encoded with the address and
// size cell counts of its parent.
func convert(t *fdt.Tree, n *fdt.Node, addrCells, sizeCells int) *Node {
	out := &Node{Name: n.Name}
	if v, ok := n.Properties["compatible"]; ok {
		for _, c := range t.PropStringSlice(v) {
			if c != "" {
				out.Compatible = append(out.Compatible, c)
			}
		}
	}
	if v, ok := n.Properties["reg"]; ok && addrCells > 0 {
		words := t.PropUint32Slice(v)
		stride := addrCells + sizeCells
		for i := 0; i+stride <= len(words); i += stride {
			out.Reg = append(out.Reg, Region{
				Start:  join(words[i : i+addrCells]),
				Length: join(words[i+addrCells : i+stride]),
			})
		}
	}

	ac := cells(t, n, "#address-cells", 2)
	sc := cells(t, n, "#size-cells", 1)
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out.Children = append(out.Children, convert(t, n.Children[name], ac, sc))
	}
	return out
}

func join(w []uint32) uint64 {
	var v uint64
	for _, x := range w {
		v = v<<32 | uint64(x)
	}
	return v
}
