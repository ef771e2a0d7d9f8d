package geometry

import (
	"fmt"
)

const (
	WorldCopyNumber = -1
	PipeCopyNumber  = -2
)

const tolerance = 1e-9

type LogicalVolume struct {
	Name     string
	Solid    Solid
	Material string

	daughters []*PhysicalVolume
	tree      *Tree
}

func NewLogicalVolume(name string, solid Solid, material string) *LogicalVolume {
	return &LogicalVolume{Name: name, Solid: solid, Material: material}
}

func (lv *LogicalVolume) Daughters() []*PhysicalVolume {
	return lv.daughters
}

// Tree returns the tree the volume has been placed into, nil if unplaced.
func (lv *LogicalVolume) Tree() *Tree {
	return lv.tree
}

type PhysicalVolume struct {
	Name        string
	CopyNumber  int
	Logical     *LogicalVolume
	Mother      *LogicalVolume
	Translation Vector
}

// Tree is the realized volume hierarchy. Physical volumes are kept in
// placement order, which is also the order of the PVID map.
type Tree struct {
	world    *PhysicalVolume
	store    []*PhysicalVolume
	logicals []*LogicalVolume
	used     map[int]string
	next     int
}

// NewTree creates a tree holding only the world volume.
func NewTree(world Solid, material string) (*Tree, error) {
	if err := world.Validate(); err != nil {
		return nil, &BuildError{Volume: "world_pv", Err: err}
	}
	t := &Tree{used: make(map[int]string)}
	lv := NewLogicalVolume("world_lv", world, material)
	lv.tree = t
	t.world = &PhysicalVolume{
		Name:       "world_pv",
		CopyNumber: WorldCopyNumber,
		Logical:    lv,
	}
	t.store = append(t.store, t.world)
	t.logicals = append(t.logicals, lv)
	t.used[WorldCopyNumber] = t.world.Name
	return t, nil
}

func (t *Tree) World() *LogicalVolume {
	return t.world.Logical
}

func (t *Tree) WorldPhysical() *PhysicalVolume {
	return t.world
}

// PhysicalVolumes returns every placement in placement order, world first.
func (t *Tree) PhysicalVolumes() []*PhysicalVolume {
	return t.store
}

// LogicalVolumes returns every logical volume carrying name.
func (t *Tree) LogicalVolumes(name string) []*LogicalVolume {
	var found []*LogicalVolume
	for _, lv := range t.logicals {
		if lv.Name == name {
			found = append(found, lv)
		}
	}
	return found
}

// NextCopyNumber hands out the next unused copy number from the counter
// shared by every placement in the tree.
func (t *Tree) NextCopyNumber() int {
	for {
		n := t.next
		t.next++
		if _, taken := t.used[n]; !taken {
			return n
		}
	}
}

// Walk visits the placements depth first, starting at the world.
func (t *Tree) Walk(fn func(pv *PhysicalVolume, depth int)) {
	var visit func(pv *PhysicalVolume, depth int)
	visit = func(pv *PhysicalVolume, depth int) {
		fn(pv, depth)
		for _, d := range pv.Logical.daughters {
			visit(d, depth+1)
		}
	}
	visit(t.world, 0)
}

// Place puts daughter inside lv at translation. The daughter solid must be
// valid, fit inside lv and not overlap lv's existing daughters.
func (lv *LogicalVolume) Place(daughter *LogicalVolume, name string, translation Vector, copyNumber int) (*PhysicalVolume, error) {
	if lv.tree == nil {
		return nil, &BuildError{Volume: name, Reason: fmt.Sprintf("mother %q is not part of a tree", lv.Name), Err: ErrOutsideMother}
	}
	t := lv.tree
	if daughter.tree != nil && daughter.tree != t {
		return nil, &BuildError{Volume: name, Reason: "logical volume belongs to another tree", Err: ErrOutsideMother}
	}
	if err := daughter.Solid.Validate(); err != nil {
		return nil, &BuildError{Volume: name, Err: err}
	}
	if owner, taken := t.used[copyNumber]; taken {
		return nil, &BuildError{Volume: name, Reason: fmt.Sprintf("copy number %d held by %q", copyNumber, owner), Err: ErrDuplicateCopyNo}
	}
	if !contains(lv.Solid, daughter.Solid, translation) {
		return nil, &BuildError{Volume: name, Reason: fmt.Sprintf("%v at %v inside %q %v", daughter.Solid, translation, lv.Name, lv.Solid), Err: ErrOutsideMother}
	}
	for _, sibling := range lv.daughters {
		if overlaps(sibling.Logical.Solid, sibling.Translation, daughter.Solid, translation) {
			return nil, &BuildError{Volume: name, Reason: fmt.Sprintf("collides with %q (copy %d)", sibling.Name, sibling.CopyNumber), Err: ErrOverlap}
		}
	}

	pv := &PhysicalVolume{
		Name:        name,
		CopyNumber:  copyNumber,
		Logical:     daughter,
		Mother:      lv,
		Translation: translation,
	}
	if daughter.tree == nil {
		daughter.tree = t
		t.logicals = append(t.logicals, daughter)
	}
	lv.daughters = append(lv.daughters, pv)
	t.store = append(t.store, pv)
	t.used[copyNumber] = name
	if copyNumber >= t.next {
		t.next = copyNumber + 1
	}
	return pv, nil
}

func contains(mother Solid, daughter Solid, t Vector) bool {
	de := daughter.Extent().Translate(t)
	switch m := mother.(type) {
	case Tube:
		if de.Min.Z < -m.HalfZ-tolerance || de.Max.Z > m.HalfZ+tolerance {
			return false
		}
		rmin, rmax := radialRange(daughter, t, Vector{})
		return rmax <= m.RMax+tolerance && rmin >= m.RMin-tolerance
	default:
		me := mother.Extent()
		return de.Min.X >= me.Min.X-tolerance && de.Max.X <= me.Max.X+tolerance &&
			de.Min.Y >= me.Min.Y-tolerance && de.Max.Y <= me.Max.Y+tolerance &&
			de.Min.Z >= me.Min.Z-tolerance && de.Max.Z <= me.Max.Z+tolerance
	}
}

func overlaps(a Solid, ta Vector, b Solid, tb Vector) bool {
	ea := a.Extent().Translate(ta)
	eb := b.Extent().Translate(tb)
	if !intervalsOverlap(ea.Min.Z, ea.Max.Z, eb.Min.Z, eb.Max.Z) {
		return false
	}
	tubeA, aIsTube := a.(Tube)
	tubeB, bIsTube := b.(Tube)
	switch {
	case aIsTube && bIsTube:
		return tubeHits(tubeA, ta, b, tb) && tubeHits(tubeB, tb, a, ta)
	case aIsTube:
		return tubeHits(tubeA, ta, b, tb)
	case bIsTube:
		return tubeHits(tubeB, tb, a, ta)
	default:
		return intervalsOverlap(ea.Min.X, ea.Max.X, eb.Min.X, eb.Max.X) &&
			intervalsOverlap(ea.Min.Y, ea.Max.Y, eb.Min.Y, eb.Max.Y)
	}
}

// tubeHits reports whether other reaches into the radial band of tube.
func tubeHits(tube Tube, tt Vector, other Solid, to Vector) bool {
	rmin, rmax := radialRange(other, to, tt)
	return intervalsOverlap(tube.RMin, tube.RMax, rmin, rmax)
}

func intervalsOverlap(aMin float64, aMax float64, bMin float64, bMax float64) bool {
	return aMin < bMax-tolerance && bMin < aMax-tolerance
}
