package detector

import (
	"fmt"

	"github.com/next-exp/g4me_go/pkg/geometry"
	"github.com/next-exp/g4me_go/pkg/logging"
)

// placement is one configured descriptor; exactly one of the fields is set.
type placement struct {
	cylinder *geometry.Cylinder
	box      *geometry.BoxDescriptor
}

// descriptorModule realizes cylinders and boxes in configuration order. The
// concrete kinds embed it and add their own commands.
type descriptorModule struct {
	kind       string
	recursive  bool
	material   string
	placements []placement
	commands   map[string]func(value string) error

	hits       HitRecorder
	logger     logging.Logger
	names      *VolumeNames
	sd         *SensitiveDetector
	sensitives []SensitivePair
	built      bool
}

func newDescriptorModule(kind string, material string, recursive bool, env ModuleEnv) *descriptorModule {
	logger := env.Logger
	if logger == nil {
		logger = logging.Discard
	}
	names := env.Names
	if names == nil {
		names = NewVolumeNames()
	}
	m := &descriptorModule{
		kind:      kind,
		recursive: recursive,
		material:  material,
		hits:      env.Hits,
		logger:    logger,
		names:     names,
	}
	m.commands = map[string]func(string) error{
		"addCylinder": m.addCylinder,
		"addBox":      m.addBox,
	}
	return m
}

func (m *descriptorModule) Kind() string {
	return m.kind
}

func (m *descriptorModule) Configure(command string, value string) error {
	if m.built {
		return ErrFrozen
	}
	handler, ok := m.commands[command]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownKey, namespace(m.kind), command)
	}
	return handler(value)
}

// addCylinder: rmin rmax halfLength x y z unit material sensitive [name]
func (m *descriptorModule) addCylinder(value string) error {
	p, err := splitParams(value, 9, 10)
	if err != nil {
		return err
	}
	l, err := parseLengths(p[6], p[0], p[1], p[2], p[3], p[4], p[5])
	if err != nil {
		return err
	}
	sensitive, err := parseBool(p[8])
	if err != nil {
		return err
	}
	c := &geometry.Cylinder{
		Name:      m.descriptorName(p, 9, "cyl"),
		RMin:      l[0],
		RMax:      l[1],
		HalfZ:     l[2],
		Position:  geometry.Vector{X: l[3], Y: l[4], Z: l[5]},
		Material:  p[7],
		Sensitive: sensitive,
	}
	return m.appendCylinder(c)
}

// addBox: halfX halfY halfZ x y z unit material sensitive [name]
func (m *descriptorModule) addBox(value string) error {
	p, err := splitParams(value, 9, 10)
	if err != nil {
		return err
	}
	l, err := parseLengths(p[6], p[0], p[1], p[2], p[3], p[4], p[5])
	if err != nil {
		return err
	}
	sensitive, err := parseBool(p[8])
	if err != nil {
		return err
	}
	b := &geometry.BoxDescriptor{
		Name:      m.descriptorName(p, 9, "box"),
		HalfX:     l[0],
		HalfY:     l[1],
		HalfZ:     l[2],
		Position:  geometry.Vector{X: l[3], Y: l[4], Z: l[5]},
		Material:  p[7],
		Sensitive: sensitive,
	}
	if err := b.Solid().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	if err := m.names.Claim(b.Name, m.kind); err != nil {
		return err
	}
	m.placements = append(m.placements, placement{box: b})
	return nil
}

func (m *descriptorModule) appendCylinder(c *geometry.Cylinder) error {
	if err := c.Solid().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	if err := m.names.Claim(c.Name, m.kind); err != nil {
		return err
	}
	if c.Material == "" {
		c.Material = m.material
	}
	m.placements = append(m.placements, placement{cylinder: c})
	return nil
}

// descriptorName returns the optional name parameter at index i, or a
// generated one unique within the module.
func (m *descriptorModule) descriptorName(p []string, i int, shape string) string {
	if len(p) > i {
		return p[i]
	}
	return fmt.Sprintf("%s_%s%d", namespace(m.kind), shape, len(m.placements))
}

func (m *descriptorModule) Build(parent *geometry.LogicalVolume) error {
	if m.built {
		return &geometry.BuildError{Volume: namespace(m.kind), Err: ErrAlreadyBuilt}
	}
	m.built = true
	tree := parent.Tree()
	if tree == nil {
		return &geometry.BuildError{Volume: namespace(m.kind), Reason: "parent volume is not placed", Err: geometry.ErrOutsideMother}
	}

	m.logger.Info(fmt.Sprintf(" --- constructing %s: %d volumes", m.kind, len(m.placements)), "detector")
	for _, pl := range m.placements {
		var (
			name      string
			solid     geometry.Solid
			material  string
			position  geometry.Vector
			sensitive bool
		)
		switch {
		case pl.cylinder != nil:
			c := pl.cylinder
			name, solid, material, position, sensitive = c.Name, c.Solid(), c.Material, c.Position, c.Sensitive
		case pl.box != nil:
			b := pl.box
			name, solid, material, position, sensitive = b.Name, b.Solid(), b.Material, b.Position, b.Sensitive
		}

		lv := geometry.NewLogicalVolume(name+"_lv", solid, material)
		if _, err := parent.Place(lv, name+"_pv", position, tree.NextCopyNumber()); err != nil {
			return err
		}
		if sensitive {
			m.registerSensitive(lv.Name)
		}
	}
	return nil
}

func (m *descriptorModule) registerSensitive(volumeName string) {
	if m.sd == nil {
		m.sd = NewSensitiveDetector(namespace(m.kind)+"_sd", m.hits)
	}
	m.sensitives = append(m.sensitives, SensitivePair{
		VolumeName: volumeName,
		Detector:   m.sd,
		Recursive:  m.recursive,
	})
}

func (m *descriptorModule) SensitiveDetectors() []SensitivePair {
	if !m.built {
		return nil
	}
	return m.sensitives
}
