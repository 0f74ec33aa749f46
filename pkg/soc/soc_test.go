// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package soc

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/u-root/ahbtool/pkg/ahb"
	"github.com/u-root/ahbtool/pkg/ahb/ahbtest"
	"github.com/u-root/ahbtool/pkg/soc/soctest"
)

func TestModelName(t *testing.T) {
	name, err := ModelName(0x04030303)
	if err != nil {
		t.Fatalf("ModelName: %v", err)
	}
	if name != "AST2500-A2" {
		t.Errorf("Expected AST2500-A2, got %q", name)
	}
	if _, err := ModelName(0xdeadbeef); !errors.Is(err, ahb.ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported for unknown revision, got %v", err)
	}
}

func TestGenerationOf(t *testing.T) {
	for _, tc := range []struct {
		rev  uint32
		want Generation
		err  bool
	}{
		{0x02000303, AST2400, false},
		{0x02010303, AST2400, false},
		{0x04000303, AST2500, false},
		{0x04030403, AST2500, false},
		{0x01010303, GenerationUnknown, true},
		{0x05000303, GenerationUnknown, true},
	} {
		g, err := GenerationOf(tc.rev)
		if (err != nil) != tc.err {
			t.Errorf("GenerationOf(%#08x): unexpected error state %v", tc.rev, err)
		}
		if g != tc.want {
			t.Errorf("GenerationOf(%#08x) = %v, want %v", tc.rev, g, tc.want)
		}
	}
}

func probe(t *testing.T, rev uint32) (*SoC, *ahbtest.Bus) {
	bus := ahbtest.New(ahb.ILPC)
	bus.Words[SCURevision] = rev
	s, err := Probe(bus)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	return s, bus
}

func TestProbeBuiltin(t *testing.T) {
	s, bus := probe(t, 0x02010303)
	defer s.Close()
	if s.Model() != "AST1250-A1 or AST2400-A1" {
		t.Errorf("Unexpected model %q", s.Model())
	}
	if diff := cmp.Diff([]uint32{SCURevision}, bus.WordReads); diff != "" {
		t.Errorf("Unexpected bus reads (-want +got):\n%s", diff)
	}
	n, err := s.MatchNode([]DeviceID{{Compatible: "aspeed,ast2500-scu"}, {Compatible: "aspeed,ast2400-scu"}})
	if err != nil {
		t.Fatalf("MatchNode: %v", err)
	}
	r, err := s.Memory(n)
	if err != nil {
		t.Fatalf("Memory: %v", err)
	}
	if want := (Region{Start: uint64(SCUBase), Length: 0x1a8}); r != want {
		t.Errorf("Expected SCU at %v, got %v", want, r)
	}
	if rev := uint64(SCURevision); rev < r.Start || rev >= r.Start+r.Length {
		t.Errorf("Revision register %#x outside of SCU %v", rev, r)
	}
}

func TestRegionString(t *testing.T) {
	for _, tc := range []struct {
		r    Region
		want string
	}{
		{Region{Start: 0, Length: 0x10000000}, "[0x00000000 - 0x0fffffff]"},
		{Region{Start: 0x1e6e2000, Length: 0x1a8}, "[0x1e6e2000 - 0x1e6e21a7]"},
		{Region{Start: 0x80000000, Length: 0x80000000}, "[0x80000000 - 0xffffffff]"},
	} {
		if got := tc.r.String(); got != tc.want {
			t.Errorf("Region%+v.String() = %q, want %q", tc.r, got, tc.want)
		}
	}
}

func TestProbeUnknownRevision(t *testing.T) {
	bus := ahbtest.New(ahb.ILPC)
	bus.Words[SCURevision] = 0x07000003
	if _, err := Probe(bus); !errors.Is(err, ahb.ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported, got %v", err)
	}
}

func TestProbeReadFailure(t *testing.T) {
	bus := ahbtest.New(ahb.ILPC)
	bus.Fail[SCURevision] = ahb.ErrIO
	if _, err := Probe(bus); !errors.Is(err, ahb.ErrIO) {
		t.Errorf("Expected ErrIO, got %v", err)
	}
}

func TestMatchNotFound(t *testing.T) {
	s, _ := probe(t, 0x04030303)
	if _, err := s.MatchNode([]DeviceID{{Compatible: "aspeed,ast2600-scu"}}); !errors.Is(err, ahb.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	s.Close()
	if _, err := s.MatchNode([]DeviceID{{Compatible: "aspeed,ast2500-scu"}}); err == nil {
		t.Errorf("Expected lookup on a released SoC to fail")
	}
}

func TestMatchData(t *testing.T) {
	s, _ := probe(t, 0x04030303)
	ids := []DeviceID{
		{Compatible: "aspeed,ast2400", Data: 1},
		{Compatible: "aspeed,ast2500", Data: 2},
		{Compatible: "aspeed,ast2600"},
	}
	n, err := s.MatchNode(ids)
	if err != nil {
		t.Fatalf("MatchNode: %v", err)
	}
	d, err := s.MatchData(ids, n)
	if err != nil {
		t.Fatalf("MatchData: %v", err)
	}
	if d.(int) != 2 {
		t.Errorf("Expected data 2, got %v", d)
	}
	if _, err := s.MatchData(ids[2:], &Node{Compatible: []string{"aspeed,ast2600"}}); !errors.Is(err, ahb.ErrNoPayload) {
		t.Errorf("Expected ErrNoPayload, got %v", err)
	}
}

func TestRegionReadWord(t *testing.T) {
	s, bus := probe(t, 0x04030303)
	bus.Words[0x1e6e2070] = 0xf100d216
	v, err := s.RegionReadWord(Region{Start: 0x1e6e2000, Length: 0x1a8}, 0x70)
	if err != nil {
		t.Fatalf("RegionReadWord: %v", err)
	}
	if v != 0xf100d216 {
		t.Errorf("Expected 0xf100d216, got %#08x", v)
	}
	if _, err := s.RegionReadWord(Region{Start: 0x1e6e2000, Length: 0x1a8}, 0x1a8); err == nil {
		t.Errorf("Expected read past the region to fail")
	}
}

func TestProbeDeviceTree(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/sys/firmware/fdt", soctest.Blob(soctest.Aspeed("ast2400")), 0400); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	bus := ahbtest.New(ahb.Devmem)
	s, err := Probe(bus, WithDeviceTree(fs, "/sys/firmware/fdt"))
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if len(bus.WordReads) != 0 {
		t.Errorf("Expected no bus access with a device tree, got %v", bus.WordReads)
	}
	if !s.Root().IsCompatible("aspeed,ast2400") {
		t.Errorf("Root not compatible with aspeed,ast2400: %v", s.Root().Compatible)
	}
	n, err := s.MatchNode([]DeviceID{{Compatible: "aspeed,ast2400-lpc-v2"}})
	if err != nil {
		t.Fatalf("MatchNode: %v", err)
	}
	want := Node{
		Name:       "lpc@1e789000",
		Compatible: []string{"aspeed,ast2400-lpc-v2", "simple-mfd", "syscon"},
		Reg:        []Region{{Start: 0x1e789000, Length: 0x1000}},
	}
	if diff := cmp.Diff(want, *n); diff != "" {
		t.Errorf("Unexpected LPC node (-want +got):\n%s", diff)
	}
}

func TestProbeDeviceTreeErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	bus := ahbtest.New(ahb.Devmem)
	if _, err := Probe(bus, WithDeviceTree(fs, "/missing.dtb")); err == nil {
		t.Errorf("Expected missing device tree to fail")
	}
	afero.WriteFile(fs, "/garbage.dtb", []byte("not a device tree at all, really not one"), 0400)
	if _, err := Probe(bus, WithDeviceTree(fs, "/garbage.dtb")); err == nil {
		t.Errorf("Expected garbage device tree to fail")
	}
	blob := soctest.Blob(soctest.Aspeed("ast2500"))
	afero.WriteFile(fs, "/truncated.dtb", blob[:len(blob)/2], 0400)
	if _, err := Probe(bus, WithDeviceTree(fs, "/truncated.dtb")); err == nil {
		t.Errorf("Expected truncated device tree to fail")
	}
}
