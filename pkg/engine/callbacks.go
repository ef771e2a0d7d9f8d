package engine

import "github.com/next-exp/g4me_go/pkg/geometry"

// Primary is a generator-level particle handed to the engine at the start
// of an event.
type Primary struct {
	Index       int
	PDG         int
	ParentIndex int
	Momentum    geometry.Vector
	Energy      float64
	Vertex      geometry.Vector
	Time        float64
}

// Callbacks is the set of user hooks the engine invokes, serially, during a
// run.
type Callbacks interface {
	BeginOfRun(runID int) error
	EndOfRun() error
	BeginOfEvent(eventID int) error
	EndOfEvent() error
	NotifyPrimary(p Primary)
	NotifyTrackCreated(track *Track)
	NotifyStep(step *Step)
	NotifyTrackStatus(trackID int, flag TrackStatus)
}
