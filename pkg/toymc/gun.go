// Package toymc is a minimal transport: primaries from a particle gun fly
// in straight lines from their vertex and deposit energy in every tube they
// cross. It drives the same callbacks as a full engine and is meant for
// smoke runs of the geometry and recording chain.
package toymc

import (
	"errors"
	"fmt"
	"math"

	"github.com/next-exp/g4me_go/pkg/engine"
	"github.com/next-exp/g4me_go/pkg/geometry"
)

var ErrInvalidGun = errors.New("invalid particle gun")

// masses in MeV, by PDG code.
var masses = map[int]float64{
	11:   0.51099895,
	13:   105.6583755,
	22:   0,
	211:  139.57039,
	321:  493.677,
	2212: 938.27208816,
}

func mass(pdg int) float64 {
	if pdg < 0 {
		pdg = -pdg
	}
	return masses[pdg]
}

// Particle is one primary shot per event. Energy is the total energy, in
// internal units.
type Particle struct {
	PDG       int             `yaml:"pdg"`
	Energy    float64         `yaml:"energy"`
	Direction geometry.Vector `yaml:"direction"`
}

type Gun struct {
	Vertex    geometry.Vector `yaml:"vertex"`
	Time      float64         `yaml:"time"`
	Particles []Particle      `yaml:"particles"`
}

func (g Gun) Validate() error {
	if len(g.Particles) == 0 {
		return fmt.Errorf("%w: no particles", ErrInvalidGun)
	}
	for i, p := range g.Particles {
		if p.Direction.Norm() == 0 {
			return fmt.Errorf("%w: particle %d has no direction", ErrInvalidGun, i)
		}
		if p.Energy <= mass(p.PDG) {
			return fmt.Errorf("%w: particle %d energy %g MeV below its mass", ErrInvalidGun, i, p.Energy)
		}
	}
	return nil
}

// Primaries returns the generator particles of one event.
func (g Gun) Primaries() []engine.Primary {
	primaries := make([]engine.Primary, len(g.Particles))
	for i, p := range g.Particles {
		m := mass(p.PDG)
		pmag := math.Sqrt(p.Energy*p.Energy - m*m)
		primaries[i] = engine.Primary{
			Index:       i,
			PDG:         p.PDG,
			ParentIndex: -1,
			Momentum:    p.Direction.Scale(pmag / p.Direction.Norm()),
			Energy:      p.Energy,
			Vertex:      g.Vertex,
			Time:        g.Time,
		}
	}
	return primaries
}
