package detector

import (
	"fmt"
	"strings"

	"github.com/next-exp/g4me_go/pkg/engine"
	"github.com/next-exp/g4me_go/pkg/geometry"
	"github.com/next-exp/g4me_go/pkg/logging"
)

const DefaultPVIDMapFile = "PVIDMapFile.dat"

const (
	trackerLogicalName  = "layer_lv"
	trackerPhysicalName = "layer_pv"
	trackerSDName       = "tracker_sd"
)

// Assembly collects the description of the whole setup (world, beam pipe,
// tracker layers, enabled modules) and realizes it exactly once.
type Assembly struct {
	World         geometry.WorldSpec
	Pipe          geometry.PipeSpec
	TrackerLayers []geometry.TrackerLayerSpec
	PVIDMapFile   string

	registry  *Registry
	env       ModuleEnv
	modules   []Module
	byKind    map[string]Module
	logger    logging.Logger
	verbosity int

	buildCalled bool
	tree        *geometry.Tree
	trackerSD   *SensitiveDetector
	attached    bool
}

func NewAssembly(hits HitRecorder, logger logging.Logger) *Assembly {
	return NewAssemblyWithRegistry(NewRegistry(), hits, logger)
}

func NewAssemblyWithRegistry(registry *Registry, hits HitRecorder, logger logging.Logger) *Assembly {
	if logger == nil {
		logger = logging.Discard
	}
	return &Assembly{
		World:       geometry.DefaultWorld(),
		Pipe:        geometry.DefaultPipe(),
		PVIDMapFile: DefaultPVIDMapFile,
		registry:    registry,
		env:         ModuleEnv{Hits: hits, Logger: logger, Names: NewVolumeNames()},
		byKind:      make(map[string]Module),
		logger:      logger,
	}
}

func (a *Assembly) SetVerbosity(v int) {
	a.verbosity = v
}

// Modules returns the enabled modules in enable order.
func (a *Assembly) Modules() []Module {
	return a.modules
}

func (a *Assembly) Module(kind string) Module {
	return a.byKind[kind]
}

func (a *Assembly) Registry() *Registry {
	return a.registry
}

// Tree returns the built geometry, nil before Build.
func (a *Assembly) Tree() *geometry.Tree {
	return a.tree
}

// Configure applies one configuration command. Every rejection is a
// *ConfigError.
func (a *Assembly) Configure(key string, value string) error {
	key = NormalizeKey(key)
	value = strings.TrimSpace(value)
	if a.buildCalled {
		return configError(key, value, ErrFrozen)
	}

	var err error
	switch key {
	case "detector.enable":
		err = a.enable(value)
	case "world.dimensions":
		err = a.setWorld(value)
	case "pipe.radius":
		err = setPositiveLength(value, &a.Pipe.Radius)
	case "pipe.length":
		err = setPositiveLength(value, &a.Pipe.Length)
	case "pipe.thickness":
		err = setPositiveLength(value, &a.Pipe.Thickness)
	case "tracker.addLayer":
		err = a.addTrackerLayer(value)
	case "geometryio.pvidMapFile":
		if value == "" {
			err = fmt.Errorf("%w: empty path", ErrInvalidValue)
		} else {
			a.PVIDMapFile = value
		}
	default:
		err = a.configureModule(key, value)
	}
	if err != nil {
		return configError(key, value, err)
	}
	if a.verbosity > 1 {
		a.logger.Info(fmt.Sprintf("%s %s", key, value), "detector")
	}
	return nil
}

func (a *Assembly) enable(kind string) error {
	if _, ok := a.byKind[kind]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateModule, kind)
	}
	m, err := a.registry.New(kind, a.env)
	if err != nil {
		return err
	}
	a.modules = append(a.modules, m)
	a.byKind[kind] = m
	return nil
}

// world.dimensions: x y z unit
func (a *Assembly) setWorld(value string) error {
	p, err := splitParams(value, 4, 4)
	if err != nil {
		return err
	}
	var dims [3]float64
	for i := range dims {
		dims[i], err = parsePositiveLength(p[i], p[3])
		if err != nil {
			return err
		}
	}
	a.World = geometry.WorldSpec{HalfX: dims[0], HalfY: dims[1], HalfZ: dims[2]}
	return nil
}

func setPositiveLength(value string, target *float64) error {
	p, err := splitParams(value, 2, 2)
	if err != nil {
		return err
	}
	v, err := parsePositiveLength(p[0], p[1])
	if err != nil {
		return err
	}
	*target = v
	return nil
}

// tracker.addLayer: radius unit length unit thickness unit
func (a *Assembly) addTrackerLayer(value string) error {
	p, err := splitParams(value, 6, 6)
	if err != nil {
		return err
	}
	var l [3]float64
	for i := range l {
		l[i], err = parsePositiveLength(p[2*i], p[2*i+1])
		if err != nil {
			return err
		}
	}
	layer := geometry.TrackerLayerSpec{Radius: l[0], Length: l[1], Thickness: l[2]}
	if err := layer.Solid().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	a.TrackerLayers = append(a.TrackerLayers, layer)
	return nil
}

func (a *Assembly) configureModule(key string, value string) error {
	ns, command, ok := strings.Cut(key, ".")
	if !ok {
		return ErrUnknownKey
	}
	kind := strings.ToUpper(ns)
	if !a.registry.Has(kind) {
		return ErrUnknownKey
	}
	m, enabled := a.byKind[kind]
	if !enabled {
		return fmt.Errorf("%w: %s", ErrModuleNotEnabled, kind)
	}
	return m.Configure(command, value)
}

// Build realizes the geometry: world, beam pipe, tracker layers, then every
// enabled module in enable order. The PVID map is written once the whole
// tree exists. Build may only be called once, successful or not.
func (a *Assembly) Build() (*geometry.Tree, error) {
	if a.buildCalled {
		return nil, &geometry.BuildError{Volume: "world_pv", Err: ErrAlreadyBuilt}
	}
	a.buildCalled = true

	tree, err := geometry.NewTree(a.World.Solid(), "G4_AIR")
	if err != nil {
		return nil, err
	}
	world := tree.World()

	a.describePipe()
	pipe := geometry.NewLogicalVolume("pipe_lv", a.Pipe.Solid(), "G4_Be")
	if _, err := world.Place(pipe, "pipe_pv", geometry.Vector{}, geometry.PipeCopyNumber); err != nil {
		return nil, err
	}

	a.describeTracker()
	for _, layer := range a.TrackerLayers {
		lv := geometry.NewLogicalVolume(trackerLogicalName, layer.Solid(), "G4_Si")
		if _, err := world.Place(lv, trackerPhysicalName, geometry.Vector{}, tree.NextCopyNumber()); err != nil {
			return nil, err
		}
	}

	for _, m := range a.modules {
		if err := m.Build(world); err != nil {
			return nil, err
		}
	}

	a.tree = tree
	if a.PVIDMapFile != "" {
		if err := geometry.WritePVIDMapFile(a.PVIDMapFile, tree.PVIDMap()); err != nil {
			return nil, err
		}
		if a.verbosity > 0 {
			a.logger.Info(fmt.Sprintf("PVID map written to %s", a.PVIDMapFile), "detector")
		}
	}
	return tree, nil
}

// AttachSensitives registers the tracker detector (when layers exist) and
// every module's sensitive volumes with the engine. It runs once, after
// Build.
func (a *Assembly) AttachSensitives(registrar engine.SensitiveRegistrar) error {
	if a.tree == nil {
		return &geometry.BuildError{Volume: "world_pv", Err: ErrNotBuilt}
	}
	if a.attached {
		return &geometry.BuildError{Volume: "world_pv", Err: ErrAlreadyAttached}
	}
	a.attached = true

	if len(a.TrackerLayers) > 0 {
		a.trackerSD = NewSensitiveDetector(trackerSDName, a.env.Hits)
		if err := registrar.SetSensitiveDetector(trackerLogicalName, a.trackerSD, true); err != nil {
			return fmt.Errorf("attaching tracker: %w", err)
		}
	}

	for _, m := range a.modules {
		for _, sd := range m.SensitiveDetectors() {
			if err := registrar.SetSensitiveDetector(sd.VolumeName, sd.Detector, sd.Recursive); err != nil {
				return fmt.Errorf("attaching %s: %w", m.Kind(), err)
			}
		}
	}
	return nil
}

func (a *Assembly) describePipe() {
	a.logger.Info(fmt.Sprintf(" --- constructing beam pipe: radius = %g cm, length = %g cm, thickness = %g um",
		a.Pipe.Radius/geometry.Centimeter, a.Pipe.Length/geometry.Centimeter, a.Pipe.Thickness/geometry.Micrometer), "detector")
}

func (a *Assembly) describeTracker() {
	radius := make([]string, len(a.TrackerLayers))
	length := make([]string, len(a.TrackerLayers))
	thickness := make([]string, len(a.TrackerLayers))
	for i, l := range a.TrackerLayers {
		radius[i] = fmt.Sprintf("%g", l.Radius/geometry.Centimeter)
		length[i] = fmt.Sprintf("%g", l.Length/geometry.Centimeter)
		thickness[i] = fmt.Sprintf("%g", l.Thickness/geometry.Micrometer)
	}
	a.logger.Info(fmt.Sprintf(" --- constructing silicon tracker: nlayers = %d", len(a.TrackerLayers)), "detector")
	if len(a.TrackerLayers) > 0 {
		a.logger.Info(fmt.Sprintf("     radius = %s cm, length = %s cm, thickness = %s um",
			strings.Join(radius, " "), strings.Join(length, " "), strings.Join(thickness, " ")), "detector")
	}
}
