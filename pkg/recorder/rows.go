package recorder

// HitRow is one energy-deposit step. Lengths in cm, time in ns, energy in
// GeV.
type HitRow struct {
	TrkID  int32   `cbor:"trkid"`
	TrkLen float32 `cbor:"trklen"`
	Edep   float32 `cbor:"edep"`
	X      float32 `cbor:"x"`
	Y      float32 `cbor:"y"`
	Z      float32 `cbor:"z"`
	T      float32 `cbor:"t"`
	LyrID  int32   `cbor:"lyrid"`
}

// TrackRow is one track, stored at row trackID-1. Parent and Particle are
// row indices, -1 when absent.
type TrackRow struct {
	Proc     int8    `cbor:"proc"`
	SProc    int8    `cbor:"sproc"`
	Status   int32   `cbor:"status"`
	Parent   int32   `cbor:"parent"`
	Particle int32   `cbor:"particle"`
	PDG      int32   `cbor:"pdg"`
	Vt       float64 `cbor:"vt"`
	Vx       float64 `cbor:"vx"`
	Vy       float64 `cbor:"vy"`
	Vz       float64 `cbor:"vz"`
	E        float64 `cbor:"e"`
	Px       float64 `cbor:"px"`
	Py       float64 `cbor:"py"`
	Pz       float64 `cbor:"pz"`
}

// ParticleRow is one generator particle.
type ParticleRow struct {
	Parent int32   `cbor:"parent"`
	PDG    int32   `cbor:"pdg"`
	Vt     float64 `cbor:"vt"`
	Vx     float64 `cbor:"vx"`
	Vy     float64 `cbor:"vy"`
	Vz     float64 `cbor:"vz"`
	E      float64 `cbor:"e"`
	Px     float64 `cbor:"px"`
	Py     float64 `cbor:"py"`
	Pz     float64 `cbor:"pz"`
}

var (
	trackPad    = TrackRow{Proc: -1, SProc: -1, Parent: -1, Particle: -1}
	particlePad = ParticleRow{Parent: -1}
)

// EventTables is what one FlushEvent hands to the sink: one row per table.
// Particles is nil when particle recording is disabled.
type EventTables struct {
	Event     int32         `cbor:"evt"`
	Hits      []HitRow      `cbor:"hits"`
	Tracks    []TrackRow    `cbor:"tracks"`
	Particles []ParticleRow `cbor:"particles"`
}
