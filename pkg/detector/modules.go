package detector

import (
	"fmt"

	"github.com/next-exp/g4me_go/pkg/geometry"
)

// ABSO is the muon absorber: passive and sensitive cylinders and boxes.
type ABSO struct {
	*descriptorModule
}

func NewABSO(env ModuleEnv) Module {
	return &ABSO{descriptorModule: newDescriptorModule("ABSO", "G4_Fe", false, env)}
}

// TOFRICH holds the time-of-flight and RICH barrel layers.
type TOFRICH struct {
	*descriptorModule
}

func NewTOFRICH(env ModuleEnv) Module {
	m := &TOFRICH{descriptorModule: newDescriptorModule("TOFRICH", "G4_Si", false, env)}
	m.commands["addLayer"] = m.addLayer
	return m
}

// addLayer: radius halfLength thickness unit
func (m *TOFRICH) addLayer(value string) error {
	p, err := splitParams(value, 4, 4)
	if err != nil {
		return err
	}
	l, err := parseLengths(p[3], p[0], p[1], p[2])
	if err != nil {
		return err
	}
	tube := geometry.ShellTube(l[0], l[1], l[2])
	return m.appendCylinder(&geometry.Cylinder{
		Name:      fmt.Sprintf("tof_layer%d", len(m.placements)),
		RMin:      tube.RMin,
		RMax:      tube.RMax,
		HalfZ:     tube.HalfZ,
		Sensitive: true,
	})
}

// FCT is the forward conversion tracker: silicon disks along the beam axis.
// Its sensitive volumes are attached including their daughters.
type FCT struct {
	*descriptorModule
}

func NewFCT(env ModuleEnv) Module {
	m := &FCT{descriptorModule: newDescriptorModule("FCT", "G4_Si", true, env)}
	m.commands["addDisk"] = m.addDisk
	return m
}

// addDisk: z rmin rmax thickness unit
func (m *FCT) addDisk(value string) error {
	p, err := splitParams(value, 5, 5)
	if err != nil {
		return err
	}
	l, err := parseLengths(p[4], p[0], p[1], p[2], p[3])
	if err != nil {
		return err
	}
	return m.appendCylinder(&geometry.Cylinder{
		Name:      fmt.Sprintf("fct_disk%d", len(m.placements)),
		RMin:      l[1],
		RMax:      l[2],
		HalfZ:     0.5 * l[3],
		Position:  geometry.Vector{Z: l[0]},
		Sensitive: true,
	})
}

// EMCAL is the electromagnetic calorimeter barrel.
type EMCAL struct {
	*descriptorModule
}

func NewEMCAL(env ModuleEnv) Module {
	m := &EMCAL{descriptorModule: newDescriptorModule("EMCAL", "G4_PbWO4", false, env)}
	m.commands["addBarrel"] = m.addBarrel
	return m
}

// addBarrel: radius halfLength depth unit
func (m *EMCAL) addBarrel(value string) error {
	p, err := splitParams(value, 4, 4)
	if err != nil {
		return err
	}
	l, err := parseLengths(p[3], p[0], p[1], p[2])
	if err != nil {
		return err
	}
	return m.appendCylinder(&geometry.Cylinder{
		Name:      fmt.Sprintf("emcal_barrel%d", len(m.placements)),
		RMin:      l[0],
		RMax:      l[0] + l[2],
		HalfZ:     l[1],
		Sensitive: true,
	})
}
