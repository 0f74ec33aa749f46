// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package soc

import (
	"fmt"
)

// Region is a window of the AHB address space.
type Region struct {
	Start  uint64
	Length uint64
}

func (r Region) String() string {
	return fmt.Sprintf("[0x%08x - 0x%08x]", r.Start, r.Start+r.Length-1)
}

// Node is a device of the SoC.
type Node struct {
	Name       string
	Compatible []string
	Reg        []Region
	Children   []*Node
}

func (n *Node) IsCompatible(c string) bool {
	for _, nc := range n.Compatible {
		if nc == c {
			return true
		}
	}
	return false
}

// Walk calls f on n and all of its descendants, parents first.
func (n *Node) Walk(f func(*Node)) {
	f(n)
	for _, c := range n.Children {
		c.Walk(f)
	}
}

func device(name string, start, length uint64, compatible ...string) *Node {
	return &Node{
		Name:       fmt.Sprintf("%s@%x", name, start),
		Compatible: compatible,
		Reg:        []Region{{Start: start, Length: length}},
	}
}

// builtinTree describes the devices of a generation that discovery and the
// DMA engine lookup rely on.
func builtinTree(g Generation) *Node {
	chip := g.String()
	apb := &Node{
		Name:       "apb",
		Compatible: []string{"simple-bus"},
		Children: []*Node{
			device("sdram", 0x1e6e0000, 0x174, "aspeed,"+chip+"-sdram-controller"),
			device("syscon", uint64(SCUBase), 0x1a8, "aspeed,"+chip+"-scu", "syscon", "simple-mfd"),
			device("xdma", 0x1e6e7000, 0x100, "aspeed,"+chip+"-xdma"),
			device("lpc", 0x1e789000, 0x1000, "aspeed,"+chip+"-lpc-v2", "simple-mfd", "syscon"),
		},
	}
	ahbNode := &Node{
		Name:       "ahb",
		Compatible: []string{"simple-bus"},
		Children: []*Node{
			device("fmc", 0x1e620000, 0xc4, "aspeed,"+chip+"-fmc"),
			device("spi", 0x1e630000, 0xc4, "aspeed,"+chip+"-spi"),
			apb,
		},
	}
	return &Node{
		Name:       "/",
		Compatible: []string{"aspeed," + chip},
		Children:   []*Node{ahbNode},
	}
}
