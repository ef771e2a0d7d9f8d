package detector

import (
	"github.com/next-exp/g4me_go/pkg/engine"
)

// HitRecorder receives every step processed by a sensitive detector.
type HitRecorder interface {
	RecordHit(step *engine.Step)
}

// SensitiveDetector forwards steps in its volumes to a HitRecorder. The
// layer id of the hit is read from the step's touchable.
type SensitiveDetector struct {
	name string
	hits HitRecorder
}

func NewSensitiveDetector(name string, hits HitRecorder) *SensitiveDetector {
	return &SensitiveDetector{name: name, hits: hits}
}

func (sd *SensitiveDetector) Name() string {
	return sd.name
}

func (sd *SensitiveDetector) ProcessHits(step *engine.Step) bool {
	if sd.hits == nil || step == nil || step.Track == nil {
		return false
	}
	sd.hits.RecordHit(step)
	return true
}

// SensitivePair ties a logical volume name to the detector handling it.
type SensitivePair struct {
	VolumeName string
	Detector   engine.SensitiveDetector
	Recursive  bool
}
