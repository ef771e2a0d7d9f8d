package engine

import (
	"fmt"
	"sort"
)

// SensitiveDetector receives the steps taken inside the volumes it is
// attached to.
type SensitiveDetector interface {
	Name() string
	ProcessHits(step *Step) bool
}

// SensitiveRegistrar is the engine side of sensitive-detector attachment.
// volumeName names logical volumes; recursive also covers their daughters.
type SensitiveRegistrar interface {
	SetSensitiveDetector(volumeName string, sd SensitiveDetector, recursive bool) error
}

type attachment struct {
	detector  SensitiveDetector
	recursive bool
}

// SensitiveRouter is an in-memory registrar that dispatches steps to the
// detector attached to the step's volume.
type SensitiveRouter struct {
	byVolume map[string]attachment
}

func NewSensitiveRouter() *SensitiveRouter {
	return &SensitiveRouter{byVolume: make(map[string]attachment)}
}

func (r *SensitiveRouter) SetSensitiveDetector(volumeName string, sd SensitiveDetector, recursive bool) error {
	if sd == nil {
		return fmt.Errorf("nil sensitive detector for volume %q", volumeName)
	}
	if prev, ok := r.byVolume[volumeName]; ok && prev.detector != sd {
		return fmt.Errorf("volume %q already attached to %q", volumeName, prev.detector.Name())
	}
	r.byVolume[volumeName] = attachment{detector: sd, recursive: recursive}
	return nil
}

// Lookup returns the detector attached to volumeName, nil if none.
func (r *SensitiveRouter) Lookup(volumeName string) SensitiveDetector {
	a, ok := r.byVolume[volumeName]
	if !ok {
		return nil
	}
	return a.detector
}

// Recursive reports whether volumeName was attached including daughters.
func (r *SensitiveRouter) Recursive(volumeName string) bool {
	return r.byVolume[volumeName].recursive
}

// Dispatch hands step to the detector attached to logicalName, if any.
func (r *SensitiveRouter) Dispatch(logicalName string, step *Step) bool {
	sd := r.Lookup(logicalName)
	if sd == nil {
		return false
	}
	return sd.ProcessHits(step)
}

// Volumes lists the attached volume names, sorted.
func (r *SensitiveRouter) Volumes() []string {
	names := make([]string, 0, len(r.byVolume))
	for name := range r.byVolume {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
