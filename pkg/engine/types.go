// Package engine describes what the transport engine hands to user code:
// tracks, steps, touchables and the sensitive-detector callbacks. Quantities
// are in internal units (mm, ns, MeV).
package engine

import "github.com/next-exp/g4me_go/pkg/geometry"

// Process identifies the physics process that created a track.
type Process struct {
	Name    string
	Type    int
	SubType int
}

type Track struct {
	ID       int
	ParentID int
	// Creator is nil for primaries.
	Creator     *Process
	PDG         int
	GlobalTime  float64
	Position    geometry.Vector
	TotalEnergy float64
	Momentum    geometry.Vector
	TrackLength float64

	// primary is the generator particle index plus one, so a zero Track
	// comes from no generator particle.
	primary int
}

// NoPrimary is the PrimaryIndex of a track that does not come from a
// generator particle.
const NoPrimary = -1

// PrimaryIndex returns the index of the generator particle this track
// originates from, NoPrimary if none.
func (t *Track) PrimaryIndex() int {
	return t.primary - 1
}

// SetPrimaryIndex links the track to generator particle index. A negative
// index clears the link.
func (t *Track) SetPrimaryIndex(index int) {
	if index < 0 {
		t.primary = 0
		return
	}
	t.primary = index + 1
}

// Touchable identifies the placement a step point sits in.
type Touchable struct {
	VolumeName string
	CopyNumber int
}

type StepPoint struct {
	Position   geometry.Vector
	GlobalTime float64
	Touchable  Touchable
}

type Step struct {
	Track         *Track
	PreStepPoint  StepPoint
	PostStepPoint StepPoint
	EnergyDeposit float64
}

// TrackStatus flags are OR-ed into the status column of the tracks table.
type TrackStatus int32

const (
	StatusNone         TrackStatus = 0
	StatusLeftWorld    TrackStatus = 1 << 0
	StatusStopped      TrackStatus = 1 << 1
	StatusDecayed      TrackStatus = 1 << 2
	StatusInteracted   TrackStatus = 1 << 3
	StatusSensitiveHit TrackStatus = 1 << 4
	StatusKilled       TrackStatus = 1 << 5
)
