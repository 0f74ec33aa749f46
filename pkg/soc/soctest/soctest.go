// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package soctest builds flattened device tree blobs for tests.
package soctest

import (
	"bytes"
	"encoding/binary"
)

const (
	fdtMagic     = 0xd00dfeed
	fdtBeginNode = 0x1
	fdtEndNode   = 0x2
	fdtProp      = 0x3
	fdtEnd       = 0x9

	headerSize = 40
	rsvmapSize = 16
)

// Prop is a device tree property.
type Prop struct {
	Name  string
	Value []byte
}

// Node is a device tree node to encode.
type Node struct {
	Name     string
	Props    []Prop
	Children []Node
}

// String encodes a string list property.
func String(name string, values ...string) Prop {
	var b bytes.Buffer
	for _, v := range values {
		b.WriteString(v)
		b.WriteByte(0)
	}
	return Prop{Name: name, Value: b.Bytes()}
}

// Cells encodes a property of 32-bit cells.
func Cells(name string, values ...uint32) Prop {
	b := make([]byte, 4*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint32(b[4*i:], v)
	}
	return Prop{Name: name, Value: b}
}

type encoder struct {
	st      bytes.Buffer
	strs    bytes.Buffer
	offsets map[string]int
}

func (e *encoder) cell(v uint32) {
	binary.Write(&e.st, binary.BigEndian, v)
}

func (e *encoder) pad() {
	for e.st.Len()%4 != 0 {
		e.st.WriteByte(0)
	}
}

func (e *encoder) str(s string) int {
	if off, ok := e.offsets[s]; ok {
		return off
	}
	off := e.strs.Len()
	e.strs.WriteString(s)
	e.strs.WriteByte(0)
	e.offsets[s] = off
	return off
}

func (e *encoder) node(n Node) {
	e.cell(fdtBeginNode)
	e.st.WriteString(n.Name)
	e.st.WriteByte(0)
	e.pad()
	for _, p := range n.Props {
		e.cell(fdtProp)
		e.cell(uint32(len(p.Value)))
		e.cell(uint32(e.str(p.Name)))
		e.st.Write(p.Value)
		e.pad()
	}
	for _, c := range n.Children {
		e.node(c)
	}
	e.cell(fdtEndNode)
}

// Blob encodes root as a version 17 flattened device tree.
func Blob(root Node) []byte {
	e := &encoder{offsets: make(map[string]int)}
	root.Name = ""
	e.node(root)
	e.cell(fdtEnd)

	offStruct := headerSize + rsvmapSize
	offStrings := offStruct + e.st.Len()
	total := offStrings + e.strs.Len()

	var out bytes.Buffer
	for _, v := range []uint32{
		fdtMagic,
		uint32(total),
		uint32(offStruct),
		uint32(offStrings),
		headerSize,
		17,
		16,
		0,
		uint32(e.strs.Len()),
		uint32(e.st.Len()),
	} {
		binary.Write(&out, binary.BigEndian, v)
	}
	out.Write(make([]byte, rsvmapSize))
	out.Write(e.st.Bytes())
	out.Write(e.strs.Bytes())
	return out.Bytes()
}

// Aspeed returns a minimal tree for chip, e.g. "ast2500", with the SCU, LPC
// and SDRAM controller at their usual addresses.
func Aspeed(chip string) Node {
	return Node{
		Props: []Prop{
			String("compatible", "aspeed,"+chip+"-evb", "aspeed,"+chip),
			Cells("#address-cells", 1),
			Cells("#size-cells", 1),
		},
		Children: []Node{{
			Name: "ahb",
			Props: []Prop{
				String("compatible", "simple-bus"),
				Cells("#address-cells", 1),
				Cells("#size-cells", 1),
			},
			Children: []Node{
				{Name: "sdram@1e6e0000", Props: []Prop{
					String("compatible", "aspeed,"+chip+"-sdram-controller"),
					Cells("reg", 0x1e6e0000, 0x174),
				}},
				{Name: "syscon@1e6e2000", Props: []Prop{
					String("compatible", "aspeed,"+chip+"-scu", "syscon", "simple-mfd"),
					Cells("reg", 0x1e6e2000, 0x1a8),
				}},
				{Name: "lpc@1e789000", Props: []Prop{
					String("compatible", "aspeed,"+chip+"-lpc-v2", "simple-mfd", "syscon"),
					Cells("reg", 0x1e789000, 0x1000),
				}},
			},
		}},
	}
}
