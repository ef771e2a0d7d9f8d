package toymc

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/next-exp/g4me_go/pkg/engine"
	"github.com/next-exp/g4me_go/pkg/geometry"
	"github.com/next-exp/g4me_go/pkg/logging"
)

const module = "toymc"

// speedOfLight in mm/ns.
const speedOfLight = 299.792458

// Mean energy loss of a minimum ionizing particle, MeV/mm.
var stoppingPower = map[string]float64{
	"G4_AIR":   2.05e-4,
	"G4_Be":    0.295,
	"G4_Si":    0.388,
	"G4_Fe":    1.143,
	"G4_PbWO4": 1.02,
}

const defaultStoppingPower = 0.2

func dEdx(material string) float64 {
	if v, ok := stoppingPower[material]; ok {
		return v
	}
	return defaultStoppingPower
}

// interval is a range of path lengths along a ray.
type interval struct {
	enter, exit float64
}

func (i interval) intersect(o interval) interval {
	return interval{math.Max(i.enter, o.enter), math.Min(i.exit, o.exit)}
}

func (i interval) empty() bool {
	return i.exit <= i.enter
}

type placed struct {
	pv          *geometry.PhysicalVolume
	translation geometry.Vector
}

type crossing struct {
	volume placed
	path   interval
}

// Transport shoots a Gun through a built geometry.
type Transport struct {
	tree      *geometry.Tree
	callbacks engine.Callbacks
	logger    logging.Logger
	volumes   []placed
	world     geometry.Box
}

func New(tree *geometry.Tree, callbacks engine.Callbacks, logger logging.Logger) (*Transport, error) {
	if logger == nil {
		logger = logging.Discard
	}
	world, ok := tree.World().Solid.(geometry.Box)
	if !ok {
		return nil, fmt.Errorf("world solid must be a box, got %s", tree.World().Solid)
	}
	t := &Transport{tree: tree, callbacks: callbacks, logger: logger, world: world}
	var collect func(lv *geometry.LogicalVolume, offset geometry.Vector)
	collect = func(lv *geometry.LogicalVolume, offset geometry.Vector) {
		for _, d := range lv.Daughters() {
			p := placed{pv: d, translation: offset.Add(d.Translation)}
			t.volumes = append(t.volumes, p)
			collect(d.Logical, p.translation)
		}
	}
	collect(tree.World(), geometry.Vector{})
	return t, nil
}

// Run simulates events events of run runID. When ctx is cancelled Run
// returns ctx.Err() with the run still open.
func (t *Transport) Run(ctx context.Context, runID int, events int, gun Gun) error {
	if err := gun.Validate(); err != nil {
		return err
	}
	if err := t.callbacks.BeginOfRun(runID); err != nil {
		return err
	}
	for evt := 0; evt < events; evt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.callbacks.BeginOfEvent(evt); err != nil {
			return err
		}
		t.event(gun)
		if err := t.callbacks.EndOfEvent(); err != nil {
			return err
		}
	}
	t.logger.Info(fmt.Sprintf("Run %d: %d events simulated", runID, events), module)
	return t.callbacks.EndOfRun()
}

func (t *Transport) event(gun Gun) {
	primaries := gun.Primaries()
	for _, p := range primaries {
		t.callbacks.NotifyPrimary(p)
	}
	for _, p := range primaries {
		track := &engine.Track{
			ID:          p.Index + 1,
			ParentID:    0,
			PDG:         p.PDG,
			GlobalTime:  p.Time,
			Position:    p.Vertex,
			TotalEnergy: p.Energy,
			Momentum:    p.Momentum,
		}
		track.SetPrimaryIndex(p.Index)
		t.callbacks.NotifyTrackCreated(track)
		t.propagate(track)
	}
}

// propagate moves track through every volume on its line of flight, one
// step per crossing, and then out of the world.
func (t *Transport) propagate(track *engine.Track) {
	pmag := track.Momentum.Norm()
	if pmag == 0 {
		t.callbacks.NotifyTrackStatus(track.ID, engine.StatusStopped)
		return
	}
	origin := track.Position
	t0 := track.GlobalTime
	dir := track.Momentum.Scale(1 / pmag)
	velocity := speedOfLight * pmag / track.TotalEnergy

	var crossings []crossing
	for _, v := range t.volumes {
		for _, path := range segments(v.pv.Logical.Solid, origin.Sub(v.translation), dir) {
			crossings = append(crossings, crossing{volume: v, path: path})
		}
	}
	sort.SliceStable(crossings, func(i, j int) bool {
		return crossings[i].path.enter < crossings[j].path.enter
	})

	for _, c := range crossings {
		pv := c.volume.pv
		touchable := engine.Touchable{VolumeName: pv.Name, CopyNumber: pv.CopyNumber}
		pre := engine.StepPoint{
			Position:   origin.Add(dir.Scale(c.path.enter)),
			GlobalTime: t0 + c.path.enter/velocity,
			Touchable:  touchable,
		}
		track.Position = origin.Add(dir.Scale(c.path.exit))
		track.GlobalTime = t0 + c.path.exit/velocity
		track.TrackLength = c.path.exit
		t.callbacks.NotifyStep(&engine.Step{
			Track:        track,
			PreStepPoint: pre,
			PostStepPoint: engine.StepPoint{
				Position:   track.Position,
				GlobalTime: track.GlobalTime,
				Touchable:  touchable,
			},
			EnergyDeposit: dEdx(pv.Logical.Material) * (c.path.exit - c.path.enter),
		})
	}

	out := boxPath(t.world, origin, dir)
	if !out.empty() && out.exit > 0 {
		track.Position = origin.Add(dir.Scale(out.exit))
		track.GlobalTime = t0 + out.exit/velocity
		track.TrackLength = out.exit
	}
	t.callbacks.NotifyTrackStatus(track.ID, engine.StatusLeftWorld)
}

// segments returns the forward path intervals of the ray p + s*u inside
// solid, p being in the solid's frame.
func segments(solid geometry.Solid, p geometry.Vector, u geometry.Vector) []interval {
	forward := interval{0, math.Inf(1)}
	var paths []interval
	switch s := solid.(type) {
	case geometry.Tube:
		z := slab(p.Z, u.Z, s.HalfZ)
		outer, ok := radial(p, u, s.RMax)
		if !ok {
			return nil
		}
		pieces := []interval{outer}
		if inner, ok := radial(p, u, s.RMin); ok && s.RMin > 0 {
			pieces = []interval{{outer.enter, inner.enter}, {inner.exit, outer.exit}}
		}
		for _, piece := range pieces {
			paths = append(paths, piece.intersect(z).intersect(forward))
		}
	case geometry.Box:
		paths = append(paths, boxPath(s, p, u).intersect(forward))
	}
	var out []interval
	for _, path := range paths {
		if !path.empty() {
			out = append(out, path)
		}
	}
	return out
}

func boxPath(b geometry.Box, p geometry.Vector, u geometry.Vector) interval {
	return slab(p.X, u.X, b.HalfX).intersect(slab(p.Y, u.Y, b.HalfY)).intersect(slab(p.Z, u.Z, b.HalfZ))
}

// slab is the interval where |p + s*u| <= half along one axis.
func slab(p float64, u float64, half float64) interval {
	if u == 0 {
		if math.Abs(p) <= half {
			return interval{math.Inf(-1), math.Inf(1)}
		}
		return interval{}
	}
	s1, s2 := (-half-p)/u, (half-p)/u
	if s1 > s2 {
		s1, s2 = s2, s1
	}
	return interval{s1, s2}
}

// radial is the interval where the distance to the z axis is at most r.
func radial(p geometry.Vector, u geometry.Vector, r float64) (interval, bool) {
	a := u.X*u.X + u.Y*u.Y
	c := p.X*p.X + p.Y*p.Y - r*r
	if a == 0 {
		if c <= 0 {
			return interval{math.Inf(-1), math.Inf(1)}, true
		}
		return interval{}, false
	}
	b := 2 * (p.X*u.X + p.Y*u.Y)
	disc := b*b - 4*a*c
	if disc < 0 {
		return interval{}, false
	}
	sq := math.Sqrt(disc)
	return interval{(-b - sq) / (2 * a), (-b + sq) / (2 * a)}, true
}
