package recorder

import (
	"errors"
	"fmt"

	"github.com/next-exp/g4me_go/pkg/engine"
	"github.com/next-exp/g4me_go/pkg/geometry"
	"github.com/next-exp/g4me_go/pkg/logging"
)

const module = "recorder"

type State int

const (
	StateIdle State = iota
	StateOpen
	StateFilling
	StateFlushed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpen:
		return "open"
	case StateFilling:
		return "filling"
	case StateFlushed:
		return "flushed"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Recorder buffers the tracks, hits and particles of one event and hands
// them to the run's sink at FlushEvent. One Recorder serves exactly one run.
type Recorder struct {
	opts   Options
	logger logging.Logger
	opener SinkOpener

	state    State
	runID    int
	filename string
	sink     Sink

	hits      *Table[HitRow]
	tracks    *Table[TrackRow]
	particles *Table[ParticleRow]

	events   int
	warnings int
	dropped  int
}

func New(opts Options, logger logging.Logger) *Recorder {
	if logger == nil {
		logger = logging.Discard
	}
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Format == "" {
		opts.Format = FormatHDF5
	}
	return &Recorder{
		opts:   opts,
		logger: logger,
		opener: OpenSink,
		state:  StateIdle,
		runID:  -1,
	}
}

// SetSinkOpener replaces the function used by Open to create the sink.
func (r *Recorder) SetSinkOpener(opener SinkOpener) {
	r.opener = opener
}

func (r *Recorder) Options() Options {
	return r.opts
}

func (r *Recorder) State() State {
	return r.state
}

func (r *Recorder) RunID() int {
	return r.runID
}

func (r *Recorder) Filename() string {
	return r.filename
}

// Events is the number of events flushed so far.
func (r *Recorder) Events() int {
	return r.events
}

// Warnings is the number of consistency warnings raised so far.
func (r *Recorder) Warnings() int {
	return r.warnings
}

// Dropped is the number of rows rejected because a table was full.
func (r *Recorder) Dropped() int {
	return r.dropped
}

// Tracks returns the track rows of the event being filled.
func (r *Recorder) Tracks() []TrackRow {
	if r.tracks == nil {
		return nil
	}
	return r.tracks.Rows()
}

func (r *Recorder) Hits() []HitRow {
	if r.hits == nil {
		return nil
	}
	return r.hits.Rows()
}

func (r *Recorder) Particles() []ParticleRow {
	if r.particles == nil {
		return nil
	}
	return r.particles.Rows()
}

func (r *Recorder) stateError(op string) error {
	return fmt.Errorf("%w: %s while %s", ErrRecorderState, op, r.state)
}

func (r *Recorder) recording() bool {
	return r.state == StateOpen || r.state == StateFilling || r.state == StateFlushed
}

// Open creates the sink of run runID and zeroes every table.
func (r *Recorder) Open(runID int) error {
	if r.state != StateIdle {
		return r.stateError("open")
	}
	filename := Filename(r.opts.Prefix, runID, r.opts.Format)
	sink, err := r.opener(filename, runID, r.opts)
	if err != nil {
		return err
	}
	r.sink = sink
	r.runID = runID
	r.filename = filename
	r.hits = NewTable("Hits", r.opts.Capacity, HitRow{})
	r.tracks = NewTable("Tracks", r.opts.Capacity, trackPad)
	if r.opts.SaveParticles {
		r.particles = NewTable("Particles", r.opts.Capacity, particlePad)
	}
	r.events = 0
	r.state = StateOpen
	r.logger.Info(fmt.Sprintf("Run %d: recording to %s", runID, filename), module)
	return nil
}

func (r *Recorder) warn(w *ConsistencyWarning) {
	r.warnings++
	r.logger.Warn(w.Error(), module)
}

func (r *Recorder) drop(err error) error {
	r.dropped++
	r.logger.Error(err.Error())
	return err
}

// AddTrack stores track at row ID-1. A row other than the next one raises a
// consistency warning; the row is still placed by id.
func (r *Recorder) AddTrack(track *engine.Track) error {
	if !r.recording() {
		return r.stateError("add track")
	}
	if track == nil {
		return errors.New("add track: nil track")
	}
	r.state = StateFilling

	index := rowIndex(track.ID)
	if index < 0 {
		r.warn(&ConsistencyWarning{Table: r.tracks.Name(), Event: int32(r.events),
			Expected: r.tracks.Len(), Got: index, Reason: "track id must be positive, row dropped"})
		return nil
	}
	if index != r.tracks.Len() {
		w := &ConsistencyWarning{Table: r.tracks.Name(), Event: int32(r.events), Expected: r.tracks.Len(), Got: index}
		if index < r.tracks.Len() {
			w.Reason = "overwriting an existing row"
		}
		r.warn(w)
	}

	row := TrackRow{
		Proc:     -1,
		SProc:    -1,
		Parent:   int32(rowIndex(track.ParentID)),
		Particle: int32(track.PrimaryIndex()),
		PDG:      int32(track.PDG),
		Vt:       track.GlobalTime / geometry.Nanosecond,
		Vx:       track.Position.X / geometry.Centimeter,
		Vy:       track.Position.Y / geometry.Centimeter,
		Vz:       track.Position.Z / geometry.Centimeter,
		E:        track.TotalEnergy / geometry.GeV,
		Px:       track.Momentum.X / geometry.GeV,
		Py:       track.Momentum.Y / geometry.GeV,
		Pz:       track.Momentum.Z / geometry.GeV,
	}
	if track.Creator != nil {
		row.Proc = int8(track.Creator.Type)
		row.SProc = int8(track.Creator.SubType)
	}
	if err := r.tracks.Put(index, row); err != nil {
		return r.drop(err)
	}
	return nil
}

// AddStatus ORs flag into the status of track trackID.
func (r *Recorder) AddStatus(trackID int, flag engine.TrackStatus) error {
	if !r.recording() {
		return r.stateError("add status")
	}
	r.state = StateFilling
	row := r.tracks.At(rowIndex(trackID))
	if row == nil {
		r.warn(&ConsistencyWarning{Table: r.tracks.Name(), Event: int32(r.events),
			Expected: r.tracks.Len(), Got: rowIndex(trackID), Reason: "status for a track that was never added"})
		return nil
	}
	row.Status |= int32(flag)
	return nil
}

// AddHit appends one row for step. The position, time and length are the
// track's after the step; the layer id is the copy number of the volume the
// step started in.
func (r *Recorder) AddHit(step *engine.Step) error {
	if !r.recording() {
		return r.stateError("add hit")
	}
	if step == nil || step.Track == nil {
		return errors.New("add hit: step without track")
	}
	r.state = StateFilling
	track := step.Track
	row := HitRow{
		TrkID:  int32(rowIndex(track.ID)),
		TrkLen: float32(track.TrackLength / geometry.Centimeter),
		Edep:   float32(step.EnergyDeposit / geometry.GeV),
		X:      float32(track.Position.X / geometry.Centimeter),
		Y:      float32(track.Position.Y / geometry.Centimeter),
		Z:      float32(track.Position.Z / geometry.Centimeter),
		T:      float32(track.GlobalTime / geometry.Nanosecond),
		LyrID:  int32(step.PreStepPoint.Touchable.CopyNumber),
	}
	if err := r.hits.Append(row); err != nil {
		return r.drop(err)
	}
	return nil
}

// AddParticle stores a generator particle at row index. It does nothing when
// particle recording is disabled. Inputs are in internal units.
func (r *Recorder) AddParticle(index int, pdg int, parentIndex int, momentum geometry.Vector, energy float64, vertex geometry.Vector, time float64) error {
	if !r.recording() {
		return r.stateError("add particle")
	}
	if !r.opts.SaveParticles {
		return nil
	}
	r.state = StateFilling
	if index < 0 {
		r.warn(&ConsistencyWarning{Table: r.particles.Name(), Event: int32(r.events),
			Expected: r.particles.Len(), Got: index, Reason: "negative particle index, row dropped"})
		return nil
	}
	if index != r.particles.Len() {
		w := &ConsistencyWarning{Table: r.particles.Name(), Event: int32(r.events), Expected: r.particles.Len(), Got: index}
		if index < r.particles.Len() {
			w.Reason = "overwriting an existing row"
		}
		r.warn(w)
	}
	row := ParticleRow{
		Parent: int32(parentIndex),
		PDG:    int32(pdg),
		Vt:     time / geometry.Nanosecond,
		Vx:     vertex.X / geometry.Centimeter,
		Vy:     vertex.Y / geometry.Centimeter,
		Vz:     vertex.Z / geometry.Centimeter,
		E:      energy / geometry.GeV,
		Px:     momentum.X / geometry.GeV,
		Py:     momentum.Y / geometry.GeV,
		Pz:     momentum.Z / geometry.GeV,
	}
	if err := r.particles.Put(index, row); err != nil {
		return r.drop(err)
	}
	return nil
}

func (r *Recorder) resetTables() {
	r.hits.Reset()
	r.tracks.Reset()
	if r.particles != nil {
		r.particles.Reset()
	}
}

// FlushEvent writes the current event, one entry per table, and resets the
// row counts. On a write error the event is discarded and the error returned.
func (r *Recorder) FlushEvent() error {
	if !r.recording() {
		return r.stateError("flush event")
	}
	tables := &EventTables{
		Event:  int32(r.events),
		Hits:   r.hits.Rows(),
		Tracks: r.tracks.Rows(),
	}
	if r.particles != nil {
		tables.Particles = r.particles.Rows()
	}
	err := r.sink.WriteEvent(tables)
	r.resetTables()
	r.state = StateFlushed
	if err != nil {
		return err
	}
	r.events++
	return nil
}

// Close finalizes the sink. An event still being filled is discarded.
func (r *Recorder) Close() error {
	if !r.recording() {
		return r.stateError("close")
	}
	if r.state == StateFilling {
		r.logger.Warn(fmt.Sprintf("Run %d: discarding unflushed event %d", r.runID, r.events), module)
		r.resetTables()
	}
	r.state = StateClosed
	if err := r.sink.Close(); err != nil {
		return err
	}
	r.logger.Info(fmt.Sprintf("Run %d: %d events written to %s", r.runID, r.events, r.filename), module)
	return nil
}

// Abort discards the event being filled and closes the sink. It is a no-op
// on a recorder that was never opened or is already closed.
func (r *Recorder) Abort() error {
	if !r.recording() {
		if r.state == StateIdle {
			r.state = StateClosed
		}
		return nil
	}
	if r.state == StateFilling {
		r.resetTables()
	}
	r.state = StateClosed
	r.logger.Warn(fmt.Sprintf("Run %d aborted after %d events", r.runID, r.events), module)
	return r.sink.Close()
}
