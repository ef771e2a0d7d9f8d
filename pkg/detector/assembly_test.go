package detector

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/next-exp/g4me_go/pkg/engine"
	"github.com/next-exp/g4me_go/pkg/geometry"
)

type recordedHits struct {
	steps []*engine.Step
}

func (r *recordedHits) RecordHit(step *engine.Step) {
	r.steps = append(r.steps, step)
}

func newTestAssembly(t *testing.T) *Assembly {
	t.Helper()
	a := NewAssembly(&recordedHits{}, nil)
	a.PVIDMapFile = filepath.Join(t.TempDir(), "PVIDMapFile.dat")
	return a
}

func configure(t *testing.T, a *Assembly, commands [][2]string) {
	t.Helper()
	for _, c := range commands {
		if err := a.Configure(c[0], c[1]); err != nil {
			t.Fatalf("configure %s %s: %v", c[0], c[1], err)
		}
	}
}

func almostEqual(a float64, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBuildTrackerLayers(t *testing.T) {
	a := newTestAssembly(t)
	configure(t, a, [][2]string{
		{"tracker.addLayer", "2 cm 50 cm 300 um"},
		{"tracker.addLayer", "4 cm 50 cm 300 um"},
	})

	tree, err := a.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	var layers []*geometry.PhysicalVolume
	for _, pv := range tree.PhysicalVolumes() {
		if pv.Name == "layer_pv" {
			layers = append(layers, pv)
		}
	}
	if len(layers) != 2 {
		t.Fatalf("expected 2 tracker layers, got %d", len(layers))
	}
	for i, radius := range []float64{20, 40} {
		if layers[i].CopyNumber != i {
			t.Errorf("layer %d: expected copy number %d, got %d", i, i, layers[i].CopyNumber)
		}
		tube := layers[i].Logical.Solid.(geometry.Tube)
		if !almostEqual(0.5*(tube.RMin+tube.RMax), radius) {
			t.Errorf("layer %d: expected radius %g mm, got %g", i, radius, 0.5*(tube.RMin+tube.RMax))
		}
		if !almostEqual(tube.RMax-tube.RMin, 0.3) {
			t.Errorf("layer %d: expected thickness 0.3 mm, got %g", i, tube.RMax-tube.RMin)
		}
	}

	router := engine.NewSensitiveRouter()
	if err := a.AttachSensitives(router); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if router.Lookup("layer_lv") == nil {
		t.Error("tracker sensitive detector not attached")
	}
	if !router.Recursive("layer_lv") {
		t.Error("tracker should be attached recursively")
	}
}

func TestBuildPipeOnly(t *testing.T) {
	a := newTestAssembly(t)
	configure(t, a, [][2]string{
		{"pipe.radius", "1.6 cm"},
		{"pipe.length", "100 cm"},
		{"pipe.thickness", "500 um"},
	})

	tree, err := a.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	pvs := tree.PhysicalVolumes()
	if len(pvs) != 2 {
		t.Fatalf("expected world and pipe, got %d volumes", len(pvs))
	}
	if pvs[0].Name != "world_pv" || pvs[0].CopyNumber != geometry.WorldCopyNumber {
		t.Errorf("unexpected world %+v", pvs[0])
	}
	if pvs[1].Name != "pipe_pv" || pvs[1].CopyNumber != geometry.PipeCopyNumber {
		t.Errorf("unexpected pipe %+v", pvs[1])
	}
	pipe := pvs[1].Logical.Solid.(geometry.Tube)
	if !almostEqual(pipe.RMin, 15.75) || !almostEqual(pipe.RMax, 16.25) || !almostEqual(pipe.HalfZ, 1000) {
		t.Errorf("unexpected pipe solid %v", pipe)
	}

	router := engine.NewSensitiveRouter()
	if err := a.AttachSensitives(router); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if len(router.Volumes()) != 0 {
		t.Errorf("expected no sensitive volumes, got %v", router.Volumes())
	}
}

func TestBuildReproducible(t *testing.T) {
	commands := [][2]string{
		{"detector.enable", "ABSO"},
		{"world.dimensions", "2 2 4 m"},
		{"tracker.addLayer", "2 cm 50 cm 300 um"},
		{"abso.addCylinder", "50 60 100 0 0 0 cm G4_Fe true"},
		{"abso.addBox", "10 10 10 0 0 150 cm G4_Fe false"},
		{"tracker.addLayer", "4 cm 50 cm 300 um"},
	}

	var maps [2][]byte
	for i := range maps {
		a := newTestAssembly(t)
		configure(t, a, commands)
		if _, err := a.Build(); err != nil {
			t.Fatalf("build %d: %v", i, err)
		}
		data, err := os.ReadFile(a.PVIDMapFile)
		if err != nil {
			t.Fatalf("read PVID map: %v", err)
		}
		maps[i] = data
	}
	if diff := cmp.Diff(string(maps[0]), string(maps[1])); diff != "" {
		t.Errorf("PVID maps differ (-first +second):\n%s", diff)
	}

	want := "-1 world_pv\n-2 pipe_pv\n0 layer_pv\n1 layer_pv\n2 abso_cyl0_pv\n3 abso_box1_pv\n"
	if string(maps[0]) != want {
		t.Errorf("unexpected PVID map:\n%s", maps[0])
	}
}

func TestModuleSensitives(t *testing.T) {
	a := newTestAssembly(t)
	configure(t, a, [][2]string{
		{"detector.enable", "FCT"},
		{"detector.enable", "EMCAL"},
		{"fct.addDisk", "80 5 40 0.03 cm"},
		{"/detector/FCT/addDisk", "90 5 40 0.03 cm"},
		{"emcal.addBarrel", "100 200 20 cm"},
	})

	if a.Module("FCT").SensitiveDetectors() != nil {
		t.Error("sensitive detectors must be empty before Build")
	}
	if _, err := a.Build(); err != nil {
		t.Fatalf("build: %v", err)
	}

	fct := a.Module("FCT").SensitiveDetectors()
	if len(fct) != 2 {
		t.Fatalf("expected 2 FCT sensitive volumes, got %d", len(fct))
	}
	for _, sd := range fct {
		if !sd.Recursive {
			t.Errorf("FCT volume %s should be recursive", sd.VolumeName)
		}
	}
	emcal := a.Module("EMCAL").SensitiveDetectors()
	if len(emcal) != 1 || emcal[0].VolumeName != "emcal_barrel0_lv" {
		t.Fatalf("unexpected EMCAL sensitives %+v", emcal)
	}

	router := engine.NewSensitiveRouter()
	if err := a.AttachSensitives(router); err != nil {
		t.Fatalf("attach: %v", err)
	}
	want := []string{"emcal_barrel0_lv", "fct_disk0_lv", "fct_disk1_lv"}
	if diff := cmp.Diff(want, router.Volumes()); diff != "" {
		t.Errorf("attached volumes (-want +got):\n%s", diff)
	}

	hits := a.env.Hits.(*recordedHits)
	step := &engine.Step{Track: &engine.Track{ID: 1}}
	router.Dispatch("fct_disk1_lv", step)
	if len(hits.steps) != 1 {
		t.Errorf("expected step forwarded to the hit recorder, got %d", len(hits.steps))
	}
}

func TestNoTrackerDetectorWithoutLayers(t *testing.T) {
	a := newTestAssembly(t)
	configure(t, a, [][2]string{
		{"detector.enable", "ABSO"},
		{"abso.addCylinder", "50 60 100 0 0 0 cm G4_Fe false absorber"},
	})
	if _, err := a.Build(); err != nil {
		t.Fatalf("build: %v", err)
	}

	router := engine.NewSensitiveRouter()
	if err := a.AttachSensitives(router); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if volumes := router.Volumes(); len(volumes) != 0 {
		t.Errorf("expected no sensitive volumes, got %v", volumes)
	}
	if a.trackerSD != nil {
		t.Error("tracker sensitive detector created without layers")
	}
}

func TestConfigErrors(t *testing.T) {
	tests := []struct {
		name     string
		setup    [][2]string
		key      string
		value    string
		expected error
	}{
		{"unknown key", nil, "detector.colour", "red", ErrUnknownKey},
		{"unknown module", nil, "detector.enable", "RICH2", ErrUnknownModule},
		{"duplicate enable", [][2]string{{"detector.enable", "ABSO"}}, "detector.enable", "ABSO", ErrDuplicateModule},
		{"module not enabled", nil, "abso.addBox", "1 1 1 0 0 0 m G4_Fe true", ErrModuleNotEnabled},
		{"unknown module command", [][2]string{{"detector.enable", "ABSO"}}, "abso.addDisk", "1 2 3 4 cm", ErrUnknownKey},
		{"bad unit", nil, "pipe.radius", "1.6 parsec", ErrInvalidValue},
		{"missing unit", nil, "pipe.radius", "1.6", ErrInvalidValue},
		{"negative length", nil, "pipe.length", "-1 cm", ErrInvalidValue},
		{"world params", nil, "world.dimensions", "1 1 m", ErrInvalidValue},
		{"thick layer", nil, "tracker.addLayer", "1 cm 50 cm 3 cm", ErrInvalidValue},
		{"bad flag", [][2]string{{"detector.enable", "ABSO"}}, "abso.addCylinder", "1 2 3 0 0 0 cm G4_Fe maybe", ErrInvalidValue},
		{"empty path", nil, "geometryio.pvidMapFile", "", ErrInvalidValue},
		{"tracker name", [][2]string{{"detector.enable", "ABSO"}}, "abso.addCylinder", "50 60 100 0 0 0 cm G4_Fe false layer", ErrInvalidValue},
		{"pipe name", [][2]string{{"detector.enable", "ABSO"}}, "abso.addBox", "1 1 1 0 0 200 cm G4_Fe false pipe", ErrInvalidValue},
		{"name used by another module", [][2]string{
			{"detector.enable", "ABSO"},
			{"detector.enable", "TOFRICH"},
			{"abso.addCylinder", "50 60 100 0 0 0 cm G4_Fe false shell"},
		}, "tofrich.addCylinder", "70 80 100 0 0 0 cm G4_Si true shell", ErrInvalidValue},
		{"name used twice", [][2]string{
			{"detector.enable", "ABSO"},
			{"abso.addBox", "1 1 1 0 0 200 cm G4_Fe false plug"},
		}, "abso.addBox", "1 1 1 0 0 -200 cm G4_Fe false plug", ErrInvalidValue},
	}

	for _, tt := range tests {
		a := newTestAssembly(t)
		configure(t, a, tt.setup)
		err := a.Configure(tt.key, tt.value)
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("%s: expected ConfigError, got %v", tt.name, err)
			continue
		}
		if !errors.Is(err, tt.expected) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.expected, err)
		}
	}
}

func TestBuildOnce(t *testing.T) {
	a := newTestAssembly(t)
	if err := a.AttachSensitives(engine.NewSensitiveRouter()); !errors.Is(err, ErrNotBuilt) {
		t.Errorf("expected ErrNotBuilt, got %v", err)
	}
	if _, err := a.Build(); err != nil {
		t.Fatalf("build: %v", err)
	}

	_, err := a.Build()
	var buildErr *geometry.BuildError
	if !errors.As(err, &buildErr) || !errors.Is(err, ErrAlreadyBuilt) {
		t.Errorf("expected BuildError wrapping ErrAlreadyBuilt, got %v", err)
	}
	if err := a.Configure("pipe.radius", "2 cm"); !errors.Is(err, ErrFrozen) {
		t.Errorf("expected ErrFrozen, got %v", err)
	}

	router := engine.NewSensitiveRouter()
	if err := a.AttachSensitives(router); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := a.AttachSensitives(router); !errors.Is(err, ErrAlreadyAttached) {
		t.Errorf("expected ErrAlreadyAttached, got %v", err)
	}
}

func TestBuildOverlap(t *testing.T) {
	a := newTestAssembly(t)
	configure(t, a, [][2]string{
		{"tracker.addLayer", "1.6 cm 50 cm 300 um"},
	})
	_, err := a.Build()
	if !errors.Is(err, geometry.ErrOverlap) {
		t.Fatalf("expected overlap with the pipe, got %v", err)
	}
	if _, err := a.Build(); !errors.Is(err, ErrAlreadyBuilt) {
		t.Errorf("a failed Build still consumes the single build, got %v", err)
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := map[string]string{
		"/detector/enable":                 "detector.enable",
		"/detector/pipe/radius":            "pipe.radius",
		"/detector/tracker/addLayer":       "tracker.addLayer",
		"/detector/geometryio/PVIDMapFile": "geometryio.pvidMapFile",
		"/io/prefix":                       "io.prefix",
		"pipe.length":                      "pipe.length",
	}
	for in, want := range tests {
		if got := NormalizeKey(in); got != want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRegistryKinds(t *testing.T) {
	r := NewRegistry()
	if diff := cmp.Diff([]string{"ABSO", "EMCAL", "FCT", "TOFRICH"}, r.Kinds()); diff != "" {
		t.Errorf("kinds (-want +got):\n%s", diff)
	}
	if _, err := r.New("MUON", ModuleEnv{}); !errors.Is(err, ErrUnknownModule) {
		t.Errorf("expected ErrUnknownModule, got %v", err)
	}
}
