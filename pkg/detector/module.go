package detector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/next-exp/g4me_go/pkg/geometry"
	"github.com/next-exp/g4me_go/pkg/logging"
)

// Module is a pluggable sub-detector. Configure receives commands of the
// module's own namespace with the namespace stripped ("addCylinder", not
// "abso.addCylinder"). SensitiveDetectors is only meaningful after Build.
type Module interface {
	Kind() string
	Configure(command string, value string) error
	Build(parent *geometry.LogicalVolume) error
	SensitiveDetectors() []SensitivePair
}

// ModuleEnv is what a module receives when it is enabled.
type ModuleEnv struct {
	Hits   HitRecorder
	Logger logging.Logger
	Names  *VolumeNames
}

// VolumeNames tracks descriptor names across all the modules of one
// assembly. The names of the fixed volumes are always taken.
type VolumeNames struct {
	owners map[string]string
}

func NewVolumeNames() *VolumeNames {
	return &VolumeNames{owners: map[string]string{
		"world": "world",
		"pipe":  "pipe",
		"layer": "tracker",
	}}
}

// Claim assigns name to owner. A name can be claimed only once.
func (n *VolumeNames) Claim(name string, owner string) error {
	if name == "" {
		return fmt.Errorf("%w: empty volume name", ErrInvalidValue)
	}
	if prev, ok := n.owners[name]; ok {
		return fmt.Errorf("%w: volume name %q already used by %s", ErrInvalidValue, name, prev)
	}
	n.owners[name] = owner
	return nil
}

type Factory func(env ModuleEnv) Module

// Registry maps module kind tokens to their factories.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("TOFRICH", NewTOFRICH)
	r.Register("FCT", NewFCT)
	r.Register("ABSO", NewABSO)
	r.Register("EMCAL", NewEMCAL)
	return r
}

func (r *Registry) Register(kind string, f Factory) {
	r.factories[kind] = f
}

func (r *Registry) Has(kind string) bool {
	_, ok := r.factories[kind]
	return ok
}

func (r *Registry) New(kind string, env ModuleEnv) (Module, error) {
	f, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s (known: %s)", ErrUnknownModule, kind, strings.Join(r.Kinds(), " "))
	}
	return f(env), nil
}

// Kinds lists the registered kinds, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// namespace is the configuration prefix of a module kind.
func namespace(kind string) string {
	return strings.ToLower(kind)
}
