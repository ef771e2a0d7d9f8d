package geometry

// Cylinder describes a tube placement requested by configuration.
type Cylinder struct {
	Name      string
	RMin      float64
	RMax      float64
	HalfZ     float64
	Position  Vector
	Material  string
	Sensitive bool
}

func (c Cylinder) Solid() Tube {
	return Tube{RMin: c.RMin, RMax: c.RMax, HalfZ: c.HalfZ}
}

// BoxDescriptor describes a box placement requested by configuration.
type BoxDescriptor struct {
	Name      string
	HalfX     float64
	HalfY     float64
	HalfZ     float64
	Position  Vector
	Material  string
	Sensitive bool
}

func (b BoxDescriptor) Solid() Box {
	return Box{HalfX: b.HalfX, HalfY: b.HalfY, HalfZ: b.HalfZ}
}

// WorldSpec holds the half-extents of the world box.
type WorldSpec struct {
	HalfX, HalfY, HalfZ float64
}

func (w WorldSpec) Solid() Box {
	return Box{HalfX: w.HalfX, HalfY: w.HalfY, HalfZ: w.HalfZ}
}

// PipeSpec describes the beam pipe. Length is used as the tube half-length.
type PipeSpec struct {
	Radius    float64
	Length    float64
	Thickness float64
}

func (p PipeSpec) Solid() Tube {
	return ShellTube(p.Radius, p.Length, p.Thickness)
}

// TrackerLayerSpec describes one cylindrical silicon layer. Length is used as
// the tube half-length.
type TrackerLayerSpec struct {
	Radius    float64
	Length    float64
	Thickness float64
}

func (l TrackerLayerSpec) Solid() Tube {
	return ShellTube(l.Radius, l.Length, l.Thickness)
}

func DefaultWorld() WorldSpec {
	return WorldSpec{HalfX: 1.5 * Meter, HalfY: 1.5 * Meter, HalfZ: 3 * Meter}
}

func DefaultPipe() PipeSpec {
	return PipeSpec{Radius: 1.6 * Centimeter, Length: 100 * Centimeter, Thickness: 500 * Micrometer}
}
