// Package run binds the engine's run and event boundaries to the detector
// assembly and to one recorder per run.
package run

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/next-exp/g4me_go/pkg/detector"
	"github.com/next-exp/g4me_go/pkg/engine"
	"github.com/next-exp/g4me_go/pkg/geometry"
	"github.com/next-exp/g4me_go/pkg/logging"
	"github.com/next-exp/g4me_go/pkg/recorder"
)

const module = "run"

// Catalog keeps track of the geometries built and the runs recorded with
// them.
type Catalog interface {
	RecordGeometry(ctx context.Context, pvidMapFile string, entries []geometry.PVIDEntry) (string, error)
	StartRun(ctx context.Context, runNumber int, geometryID string, file string, format string) (string, error)
	FinishRun(ctx context.Context, runID string, events int) error
}

// Manager implements engine.Callbacks. It owns the detector assembly, routes
// the steps of sensitive volumes to their detectors and records every run
// into its own file.
type Manager struct {
	Assembly *detector.Assembly

	options   recorder.Options
	opener    recorder.SinkOpener
	logger    logging.Logger
	verbosity int

	router    *engine.SensitiveRouter
	sensitive map[string]string

	recorder *recorder.Recorder
	runID    int
	eventID  int

	ctx        context.Context
	catalog    Catalog
	geometryID string
	catalogRun string
}

var _ engine.Callbacks = (*Manager)(nil)

func NewManager(opts recorder.Options, logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Discard
	}
	m := &Manager{
		options:   opts,
		logger:    logger,
		router:    engine.NewSensitiveRouter(),
		sensitive: make(map[string]string),
		runID:     -1,
		eventID:   -1,
		ctx:       context.Background(),
	}
	m.Assembly = detector.NewAssembly(m, logger)
	return m
}

func (m *Manager) SetVerbosity(v int) {
	m.verbosity = v
	m.Assembly.SetVerbosity(v)
}

// SetSinkOpener overrides how the recorders of later runs open their sinks.
func (m *Manager) SetSinkOpener(opener recorder.SinkOpener) {
	m.opener = opener
}

// SetCatalog enables bookkeeping of geometries and runs. ctx is used for
// every catalog call.
func (m *Manager) SetCatalog(ctx context.Context, catalog Catalog) {
	m.ctx = ctx
	m.catalog = catalog
}

func (m *Manager) Options() recorder.Options {
	return m.options
}

// Recorder returns the recorder of the current or last run.
func (m *Manager) Recorder() *recorder.Recorder {
	return m.recorder
}

func (m *Manager) Router() *engine.SensitiveRouter {
	return m.router
}

func (m *Manager) running() bool {
	return m.recorder != nil && m.recorder.State() != recorder.StateClosed
}

// Configure applies one command. io.* keys set the options of the next run,
// everything else goes to the detector assembly.
func (m *Manager) Configure(key string, value string) error {
	key = detector.NormalizeKey(key)
	if !strings.HasPrefix(key, "io.") {
		return m.Assembly.Configure(key, value)
	}
	if m.running() {
		return &detector.ConfigError{Key: key, Value: value, Err: fmt.Errorf("%w: run %d is open", recorder.ErrRecorderState, m.runID)}
	}
	if err := m.options.Configure(key, value); err != nil {
		return &detector.ConfigError{Key: key, Value: value, Err: err}
	}
	return nil
}

// Build realizes the geometry and, with a catalog, records its PVID map.
func (m *Manager) Build() (*geometry.Tree, error) {
	tree, err := m.Assembly.Build()
	if err != nil {
		return nil, err
	}
	if m.catalog != nil {
		id, err := m.catalog.RecordGeometry(m.ctx, m.Assembly.PVIDMapFile, tree.PVIDMap())
		if err != nil {
			return nil, fmt.Errorf("recording geometry: %w", err)
		}
		m.geometryID = id
	}
	return tree, nil
}

// AttachSensitives registers the assembly's detectors with the router and
// resolves which placed volume each detector covers.
func (m *Manager) AttachSensitives() error {
	if err := m.Assembly.AttachSensitives(m.router); err != nil {
		return err
	}
	tree := m.Assembly.Tree()

	placement := make(map[*geometry.LogicalVolume]*geometry.PhysicalVolume)
	for _, pv := range tree.PhysicalVolumes() {
		placement[pv.Logical] = pv
	}
	for _, pv := range tree.PhysicalVolumes() {
		if m.router.Lookup(pv.Logical.Name) != nil {
			m.sensitive[pv.Name] = pv.Logical.Name
			continue
		}
		for mother := pv.Mother; mother != nil; {
			if m.router.Lookup(mother.Name) != nil && m.router.Recursive(mother.Name) {
				m.sensitive[pv.Name] = mother.Name
				break
			}
			up, ok := placement[mother]
			if !ok {
				break
			}
			mother = up.Mother
		}
	}
	if m.verbosity > 0 {
		m.logger.Info(fmt.Sprintf("Sensitive volumes: %s", strings.Join(m.router.Volumes(), ", ")), module)
	}
	return nil
}

// BeginOfRun opens a new recorder for runID.
func (m *Manager) BeginOfRun(runID int) error {
	if m.running() {
		return fmt.Errorf("%w: run %d still open", recorder.ErrRecorderState, m.runID)
	}
	rec := recorder.New(m.options, m.logger)
	if m.opener != nil {
		rec.SetSinkOpener(m.opener)
	}
	if err := rec.Open(runID); err != nil {
		return err
	}
	m.recorder = rec
	m.runID = runID
	m.eventID = -1

	if m.catalog != nil {
		id, err := m.catalog.StartRun(m.ctx, runID, m.geometryID, rec.Filename(), string(m.options.Format))
		if err != nil {
			m.logger.Error(fmt.Sprintf("Run %d: catalog: %v", runID, err))
		}
		m.catalogRun = id
	}
	return nil
}

func (m *Manager) EndOfRun() error {
	if m.recorder == nil {
		return fmt.Errorf("%w: no run open", recorder.ErrRecorderState)
	}
	if err := m.recorder.Close(); err != nil {
		return err
	}
	m.finishCatalogRun()
	return nil
}

// Abort ends the current run without flushing the event being filled.
func (m *Manager) Abort() error {
	if !m.running() {
		return nil
	}
	err := m.recorder.Abort()
	m.finishCatalogRun()
	return err
}

func (m *Manager) finishCatalogRun() {
	if m.catalog == nil || m.catalogRun == "" {
		return
	}
	if err := m.catalog.FinishRun(m.ctx, m.catalogRun, m.recorder.Events()); err != nil {
		m.logger.Error(fmt.Sprintf("Run %d: catalog: %v", m.runID, err))
	}
	m.catalogRun = ""
}

func (m *Manager) BeginOfEvent(eventID int) error {
	if !m.running() {
		return fmt.Errorf("%w: event %d outside a run", recorder.ErrRecorderState, eventID)
	}
	m.eventID = eventID
	if m.verbosity > 1 {
		m.logger.Info(fmt.Sprintf("Run %d: begin of event %d", m.runID, eventID), module)
	}
	return nil
}

func (m *Manager) EndOfEvent() error {
	if !m.running() {
		return fmt.Errorf("%w: event %d outside a run", recorder.ErrRecorderState, m.eventID)
	}
	return m.recorder.FlushEvent()
}

func (m *Manager) NotifyPrimary(p engine.Primary) {
	m.report(m.current().AddParticle(p.Index, p.PDG, p.ParentIndex, p.Momentum, p.Energy, p.Vertex, p.Time))
}

func (m *Manager) NotifyTrackCreated(track *engine.Track) {
	m.report(m.current().AddTrack(track))
}

func (m *Manager) NotifyTrackStatus(trackID int, flag engine.TrackStatus) {
	m.report(m.current().AddStatus(trackID, flag))
}

// NotifyStep hands a step taken in a sensitive volume to its detector.
func (m *Manager) NotifyStep(step *engine.Step) {
	if step == nil {
		return
	}
	logical, ok := m.sensitive[step.PreStepPoint.Touchable.VolumeName]
	if !ok {
		return
	}
	m.router.Dispatch(logical, step)
}

// RecordHit is called by the sensitive detectors.
func (m *Manager) RecordHit(step *engine.Step) {
	m.report(m.current().AddHit(step))
}

// current returns the recorder of the open run. Outside a run it returns a
// closed recorder so that Add* fail with ErrRecorderState.
func (m *Manager) current() *recorder.Recorder {
	if m.recorder == nil {
		m.recorder = recorder.New(m.options, m.logger)
		m.recorder.Abort()
	}
	return m.recorder
}

// report logs errors from engine callbacks, which have no way to return them.
// Table overflows are already logged by the recorder.
func (m *Manager) report(err error) {
	if err == nil || errors.Is(err, recorder.ErrTableFull) {
		return
	}
	m.logger.Error(fmt.Sprintf("Run %d, event %d: %v", m.runID, m.eventID, err))
}
