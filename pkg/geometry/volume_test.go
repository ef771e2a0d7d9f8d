package geometry

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestTree(t *testing.T) *Tree {
	t.Helper()
	tree, err := NewTree(DefaultWorld().Solid(), "G4_AIR")
	if err != nil {
		t.Fatalf("new tree: %v", err)
	}
	return tree
}

func TestSolidValidate(t *testing.T) {
	tests := []struct {
		name  string
		solid Solid
		valid bool
	}{
		{"box", Box{1, 2, 3}, true},
		{"flat box", Box{1, 0, 3}, false},
		{"tube", Tube{1, 2, 3}, true},
		{"full cylinder", Tube{0, 2, 3}, true},
		{"inverted tube", Tube{2, 1, 3}, false},
		{"negative rmin", Tube{-1, 1, 3}, false},
		{"zero length tube", Tube{1, 2, 0}, false},
	}

	for _, tt := range tests {
		err := tt.solid.Validate()
		if tt.valid && err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if !tt.valid && !errors.Is(err, ErrDegenerate) {
			t.Errorf("%s: expected ErrDegenerate, got %v", tt.name, err)
		}
	}
}

func TestPlaceCoaxialTubes(t *testing.T) {
	tree := newTestTree(t)
	world := tree.World()

	pipe := NewLogicalVolume("pipe_lv", DefaultPipe().Solid(), "G4_Be")
	if _, err := world.Place(pipe, "pipe_pv", Vector{}, PipeCopyNumber); err != nil {
		t.Fatalf("place pipe: %v", err)
	}

	layer := NewLogicalVolume("layer_lv", ShellTube(2*Centimeter, 50*Centimeter, 300*Micrometer), "G4_Si")
	if _, err := world.Place(layer, "layer_pv", Vector{}, tree.NextCopyNumber()); err != nil {
		t.Fatalf("place layer: %v", err)
	}

	clash := NewLogicalVolume("layer_lv", ShellTube(1.6*Centimeter, 50*Centimeter, 300*Micrometer), "G4_Si")
	_, err := world.Place(clash, "layer_pv", Vector{}, tree.NextCopyNumber())
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected overlap with the pipe, got %v", err)
	}
	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("expected BuildError, got %T", err)
	}
}

func TestPlaceOutsideMother(t *testing.T) {
	tree := newTestTree(t)
	big := NewLogicalVolume("big_lv", Box{HalfX: 2 * Meter, HalfY: 1, HalfZ: 1}, "G4_Pb")
	_, err := tree.World().Place(big, "big_pv", Vector{}, tree.NextCopyNumber())
	if !errors.Is(err, ErrOutsideMother) {
		t.Fatalf("expected ErrOutsideMother, got %v", err)
	}
}

func TestPlaceBoxInsideTubeHole(t *testing.T) {
	tree := newTestTree(t)
	world := tree.World()

	barrel := NewLogicalVolume("barrel_lv", Tube{RMin: 100, RMax: 200, HalfZ: 500}, "G4_PbWO4")
	if _, err := world.Place(barrel, "barrel_pv", Vector{}, tree.NextCopyNumber()); err != nil {
		t.Fatalf("place barrel: %v", err)
	}

	inside := NewLogicalVolume("block_lv", Box{HalfX: 10, HalfY: 10, HalfZ: 10}, "G4_Fe")
	if _, err := world.Place(inside, "block_pv", Vector{}, tree.NextCopyNumber()); err != nil {
		t.Fatalf("box in the hole should fit: %v", err)
	}

	crossing := NewLogicalVolume("block_lv", Box{HalfX: 10, HalfY: 10, HalfZ: 10}, "G4_Fe")
	_, err := world.Place(crossing, "block_pv", Vector{X: 150}, tree.NextCopyNumber())
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected overlap with the barrel, got %v", err)
	}
}

func TestCopyNumbers(t *testing.T) {
	tree := newTestTree(t)
	world := tree.World()

	if n := tree.NextCopyNumber(); n != 0 {
		t.Fatalf("expected first copy number 0, got %d", n)
	}

	box := NewLogicalVolume("box_lv", Box{1, 1, 1}, "G4_AIR")
	if _, err := world.Place(box, "box_pv", Vector{X: 100}, 5); err != nil {
		t.Fatalf("place: %v", err)
	}
	if n := tree.NextCopyNumber(); n != 6 {
		t.Errorf("counter should continue after explicit copy number, got %d", n)
	}

	other := NewLogicalVolume("box_lv", Box{1, 1, 1}, "G4_AIR")
	_, err := world.Place(other, "box_pv", Vector{X: -100}, 5)
	if !errors.Is(err, ErrDuplicateCopyNo) {
		t.Errorf("expected ErrDuplicateCopyNo, got %v", err)
	}
}

func TestPVIDMapRoundTrip(t *testing.T) {
	tree := newTestTree(t)
	world := tree.World()
	for _, r := range []float64{20, 40} {
		layer := NewLogicalVolume("layer_lv", ShellTube(r, 500, 0.3), "G4_Si")
		if _, err := world.Place(layer, "layer_pv", Vector{}, tree.NextCopyNumber()); err != nil {
			t.Fatalf("place: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := WritePVIDMap(&buf, tree.PVIDMap()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.String() != "-1 world_pv\n0 layer_pv\n1 layer_pv\n" {
		t.Errorf("unexpected map:\n%s", buf.String())
	}

	entries, err := ReadPVIDMap(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(tree.PVIDMap(), entries); diff != "" {
		t.Errorf("PVID map mismatch (-want +got):\n%s", diff)
	}
	if got := len(tree.LogicalVolumes("layer_lv")); got != 2 {
		t.Errorf("expected 2 layer logical volumes, got %d", got)
	}
}

func TestWalk(t *testing.T) {
	tree := newTestTree(t)
	mother := NewLogicalVolume("mother_lv", Box{100, 100, 100}, "G4_AIR")
	if _, err := tree.World().Place(mother, "mother_pv", Vector{}, tree.NextCopyNumber()); err != nil {
		t.Fatalf("place mother: %v", err)
	}
	child := NewLogicalVolume("child_lv", Box{10, 10, 10}, "G4_Si")
	if _, err := mother.Place(child, "child_pv", Vector{Z: 50}, tree.NextCopyNumber()); err != nil {
		t.Fatalf("place child: %v", err)
	}

	var visited []string
	var depths []int
	tree.Walk(func(pv *PhysicalVolume, depth int) {
		visited = append(visited, pv.Name)
		depths = append(depths, depth)
	})
	if diff := cmp.Diff([]string{"world_pv", "mother_pv", "child_pv"}, visited); diff != "" {
		t.Errorf("walk order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 1, 2}, depths); diff != "" {
		t.Errorf("walk depths (-want +got):\n%s", diff)
	}
}
