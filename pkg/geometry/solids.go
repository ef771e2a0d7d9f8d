package geometry

import (
	"fmt"
	"math"
)

type Vector struct {
	X, Y, Z float64
}

func (v Vector) Add(o Vector) Vector {
	return Vector{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vector) Scale(f float64) Vector {
	return Vector{v.X * f, v.Y * f, v.Z * f}
}

func (v Vector) Sub(o Vector) Vector {
	return Vector{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vector) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Extent is an axis-aligned bounding box.
type Extent struct {
	Min, Max Vector
}

func (e Extent) Translate(t Vector) Extent {
	return Extent{Min: e.Min.Add(t), Max: e.Max.Add(t)}
}

type Solid interface {
	Validate() error
	// Extent is the bounding box in the solid's local frame.
	Extent() Extent
	String() string
}

type Box struct {
	HalfX, HalfY, HalfZ float64
}

func (b Box) Validate() error {
	if !(b.HalfX > 0 && b.HalfY > 0 && b.HalfZ > 0) {
		return fmt.Errorf("%w: box half-extents must be positive, got %v", ErrDegenerate, b)
	}
	return nil
}

func (b Box) Extent() Extent {
	return Extent{
		Min: Vector{-b.HalfX, -b.HalfY, -b.HalfZ},
		Max: Vector{b.HalfX, b.HalfY, b.HalfZ},
	}
}

func (b Box) String() string {
	return fmt.Sprintf("box(%g, %g, %g mm)", b.HalfX, b.HalfY, b.HalfZ)
}

// Tube is a full-azimuth cylindrical shell along z.
type Tube struct {
	RMin, RMax, HalfZ float64
}

func (t Tube) Validate() error {
	if t.RMin < 0 || !(t.RMax > t.RMin) || !(t.HalfZ > 0) {
		return fmt.Errorf("%w: tube needs 0 <= rmin < rmax and positive half-length, got %v", ErrDegenerate, t)
	}
	return nil
}

func (t Tube) Extent() Extent {
	return Extent{
		Min: Vector{-t.RMax, -t.RMax, -t.HalfZ},
		Max: Vector{t.RMax, t.RMax, t.HalfZ},
	}
}

func (t Tube) String() string {
	return fmt.Sprintf("tube(%g-%g mm, %g mm)", t.RMin, t.RMax, t.HalfZ)
}

// ShellTube builds the tube of a layer centred on radius with the given
// thickness, the way pipe and tracker layers are described.
func ShellTube(radius float64, halfLength float64, thickness float64) Tube {
	return Tube{
		RMin:  radius - 0.5*thickness,
		RMax:  radius + 0.5*thickness,
		HalfZ: halfLength,
	}
}

// radialRange returns the minimum and maximum distance from the z axis
// through axis of a solid placed at t. Holes of non-coaxial tubes are
// ignored, which only makes the range wider.
func radialRange(s Solid, t Vector, axis Vector) (float64, float64) {
	dx := t.X - axis.X
	dy := t.Y - axis.Y
	switch v := s.(type) {
	case Tube:
		d := math.Hypot(dx, dy)
		if d < tolerance {
			return v.RMin, v.RMax
		}
		return math.Max(0, d-v.RMax), d + v.RMax
	default:
		e := s.Extent().Translate(Vector{dx, dy, 0})
		nx := clampToZero(e.Min.X, e.Max.X)
		ny := clampToZero(e.Min.Y, e.Max.Y)
		fx := math.Max(math.Abs(e.Min.X), math.Abs(e.Max.X))
		fy := math.Max(math.Abs(e.Min.Y), math.Abs(e.Max.Y))
		return math.Hypot(nx, ny), math.Hypot(fx, fy)
	}
}

// clampToZero is the distance from 0 to the interval [lo, hi].
func clampToZero(lo float64, hi float64) float64 {
	switch {
	case lo > 0:
		return lo
	case hi < 0:
		return -hi
	default:
		return 0
	}
}
