// Copyright 2018-2019 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package soc

import (
	"fmt"

	"github.com/u-root/ahbtool/pkg/ahb"
)

const (
	SCUBase uint32 = 0x1e6e2000
	// SCU7C: Silicon Revision ID Register
	SCURevision uint32 = SCUBase + 0x7c
)

// Generation is the silicon family a revision belongs to.
type Generation int

const (
	GenerationUnknown Generation = iota
	AST2400
	AST2500
)

func (g Generation) String() string {
	switch g {
	case AST2400:
		return "ast2400"
	case AST2500:
		return "ast2500"
	}
	return "unknown"
}

var names = map[uint32]string{
	0x00000102: "AST2200-A0/A1",
	0x00000200: "AST1100-A0 or AST2050-A0",
	0x00000201: "AST1100-A1 or AST2050-A1",
	0x00000202: "AST1100-A2/3 or AST2050-A2/3 or AST2150-A0/1",
	0x00000300: "AST2100-A0",
	0x00000301: "AST2100-A1",
	0x00000302: "AST2100-A2/3",
	0x01000003: "AST2300-A0",
	0x01010003: "AST1300-A1",
	0x01010203: "AST1050-A1",
	0x01010303: "AST2300-A1",
	0x02000303: "AST2400-A0",
	0x02010103: "AST1400-A1",
	0x02010303: "AST1250-A1 or AST2400-A1",
	0x04000303: "AST2500-A0",
	0x04000103: "AST2510-A0",
	0x04000203: "AST2520-A0",
	0x04000403: "AST2530-A0",
	0x04010303: "AST2500-A1",
	0x04010103: "AST2510-A1",
	0x04010203: "AST2520-A1",
	0x04010403: "AST2530-A1",
	0x04030303: "AST2500-A2",
	0x04030103: "AST2510-A2",
	0x04030203: "AST2520-A2",
	0x04030403: "AST2530-A2",
}

// ModelName decodes an SCU7C silicon revision.
func ModelName(rev uint32) (string, error) {
	if name, ok := names[rev]; ok {
		return name, nil
	}
	return "", fmt.Errorf("unknown revision %#08x: %w", rev, ahb.ErrUnsupported)
}

// GenerationOf maps a known silicon revision onto its family. Only the
// families with a device tree below are supported.
func GenerationOf(rev uint32) (Generation, error) {
	if _, err := ModelName(rev); err != nil {
		return GenerationUnknown, err
	}
	switch rev >> 24 {
	case 0x02:
		return AST2400, nil
	case 0x04:
		return AST2500, nil
	}
	return GenerationUnknown, fmt.Errorf("revision %#08x: %w", rev, ahb.ErrUnsupported)
}
