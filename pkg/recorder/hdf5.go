package recorder

import (
	"errors"
	"fmt"

	hdf5 "github.com/jmbenlloch/go-hdf5"
)

type hitHDF5 struct {
	evt    int32
	trkid  int32
	trklen float32
	edep   float32
	x      float32
	y      float32
	z      float32
	t      float32
	lyrid  int32
}

type trackHDF5 struct {
	evt      int32
	proc     int8
	sproc    int8
	status   int32
	parent   int32
	particle int32
	pdg      int32
	vt       float64
	vx       float64
	vy       float64
	vz       float64
	e        float64
	px       float64
	py       float64
	pz       float64
}

type particleHDF5 struct {
	evt    int32
	parent int32
	pdg    int32
	vt     float64
	vx     float64
	vy     float64
	vz     float64
	e      float64
	px     float64
	py     float64
	pz     float64
}

type eventHDF5 struct {
	evt        int32
	nhits      int32
	ntracks    int32
	nparticles int32
}

type runInfoHDF5 struct {
	run_number     int32
	save_particles int32
}

func createGroup(file *hdf5.File, groupName string) (*hdf5.Group, error) {
	g, err := file.CreateGroup(groupName)
	if err != nil {
		return nil, &ErrCreateGroup{GroupName: groupName, Err: err}
	}
	return g, nil
}

// createTable creates an extendible, chunked, deflated table of datatype.
func createTable(group *hdf5.Group, name string, datatype interface{}, compression int) (*hdf5.Dataset, error) {
	dims := []uint{0}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDims := []uint{uint(unlimitedDims)}
	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer fileSpace.Close()

	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer plist.Close()

	chunks := []uint{32768}
	if err := plist.SetChunk(chunks); err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	if compression > 0 {
		if err := plist.SetDeflate(compression); err != nil {
			return nil, &ErrCreateTable{TableName: name, Err: err}
		}
	}

	dtype, err := hdf5.NewDatatypeFromValue(datatype)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}

	dset, err := group.CreateDatasetWith(name, dtype, fileSpace, plist)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	return dset, nil
}

// writeArrayToTable appends data after the first offset rows of dataset.
func writeArrayToTable[T any](dataset *hdf5.Dataset, data *[]T, offset uint) error {
	length := uint(len(*data))
	if length == 0 {
		return nil
	}
	dims := []uint{length}
	dataspace, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return err
	}
	defer dataspace.Close()

	if err := dataset.Resize([]uint{offset + length}); err != nil {
		return err
	}
	filespace := dataset.Space()
	defer filespace.Close()

	start := []uint{offset}
	count := []uint{length}
	if err := filespace.SelectHyperslab(start, nil, count, nil); err != nil {
		return err
	}
	return dataset.WriteSubset(data, dataspace, filespace)
}

// readTable loads every row of a table.
func readTable[T any](group *hdf5.Group, name string) ([]T, error) {
	dset, err := group.OpenDataset(name)
	if err != nil {
		return nil, fmt.Errorf("error opening table %q: %w", name, err)
	}
	defer dset.Close()

	space := dset.Space()
	n := space.SimpleExtentNPoints()
	space.Close()

	rows := make([]T, n)
	if n == 0 {
		return rows, nil
	}
	if err := dset.Read(&rows); err != nil {
		return nil, fmt.Errorf("error reading table %q: %w", name, err)
	}
	return rows, nil
}

// hdf5Sink lays a run out as one group per table; every row carries the
// event number and Run/events holds the per-event row counts.
type hdf5Sink struct {
	File           *hdf5.File
	Filename       string
	RunGroup       *hdf5.Group
	HitsGroup      *hdf5.Group
	TracksGroup    *hdf5.Group
	ParticlesGroup *hdf5.Group
	RunInfoTable   *hdf5.Dataset
	EventTable     *hdf5.Dataset
	HitsTable      *hdf5.Dataset
	TracksTable    *hdf5.Dataset
	ParticlesTable *hdf5.Dataset

	nEvents    uint
	nHits      uint
	nTracks    uint
	nParticles uint
}

// openHDF5Sink creates the file and its tables. On any failure the file and
// everything created in it so far are closed again.
func openHDF5Sink(filename string, runID int, opts Options) (*hdf5Sink, error) {
	f, err := hdf5.CreateFile(filename, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	s := &hdf5Sink{File: f, Filename: filename}
	if err := s.createLayout(runID, opts); err != nil {
		if closeErr := s.Close(); closeErr != nil {
			return nil, errors.Join(err, closeErr)
		}
		return nil, err
	}
	return s, nil
}

func (s *hdf5Sink) createLayout(runID int, opts Options) error {
	var err error
	if s.RunGroup, err = createGroup(s.File, "Run"); err != nil {
		return err
	}
	if s.HitsGroup, err = createGroup(s.File, "Hits"); err != nil {
		return err
	}
	if s.TracksGroup, err = createGroup(s.File, "Tracks"); err != nil {
		return err
	}
	if s.RunInfoTable, err = createTable(s.RunGroup, "runInfo", runInfoHDF5{}, opts.Compression); err != nil {
		return err
	}
	if s.EventTable, err = createTable(s.RunGroup, "events", eventHDF5{}, opts.Compression); err != nil {
		return err
	}
	if s.HitsTable, err = createTable(s.HitsGroup, "hits", hitHDF5{}, opts.Compression); err != nil {
		return err
	}
	if s.TracksTable, err = createTable(s.TracksGroup, "tracks", trackHDF5{}, opts.Compression); err != nil {
		return err
	}
	if opts.SaveParticles {
		if s.ParticlesGroup, err = createGroup(s.File, "Particles"); err != nil {
			return err
		}
		if s.ParticlesTable, err = createTable(s.ParticlesGroup, "particles", particleHDF5{}, opts.Compression); err != nil {
			return err
		}
	}

	saveParticles := int32(0)
	if opts.SaveParticles {
		saveParticles = 1
	}
	info := []runInfoHDF5{{run_number: int32(runID), save_particles: saveParticles}}
	if err := writeArrayToTable(s.RunInfoTable, &info, 0); err != nil {
		return &ErrWriteTable{TableName: "runInfo", Err: err}
	}
	return nil
}

func (s *hdf5Sink) WriteEvent(tables *EventTables) error {
	evt := tables.Event

	// The arrays MUST be allocated at creation, HDF5 writes from the backing
	// memory of the slice.
	hits := make([]hitHDF5, len(tables.Hits))
	for i, h := range tables.Hits {
		hits[i] = hitHDF5{evt: evt, trkid: h.TrkID, trklen: h.TrkLen, edep: h.Edep,
			x: h.X, y: h.Y, z: h.Z, t: h.T, lyrid: h.LyrID}
	}
	if err := writeArrayToTable(s.HitsTable, &hits, s.nHits); err != nil {
		return &ErrWriteTable{TableName: "Hits", Event: evt, Err: err}
	}
	s.nHits += uint(len(hits))

	tracks := make([]trackHDF5, len(tables.Tracks))
	for i, t := range tables.Tracks {
		tracks[i] = trackHDF5{evt: evt, proc: t.Proc, sproc: t.SProc, status: t.Status,
			parent: t.Parent, particle: t.Particle, pdg: t.PDG,
			vt: t.Vt, vx: t.Vx, vy: t.Vy, vz: t.Vz, e: t.E, px: t.Px, py: t.Py, pz: t.Pz}
	}
	if err := writeArrayToTable(s.TracksTable, &tracks, s.nTracks); err != nil {
		return &ErrWriteTable{TableName: "Tracks", Event: evt, Err: err}
	}
	s.nTracks += uint(len(tracks))

	nParticles := 0
	if s.ParticlesTable != nil {
		particles := make([]particleHDF5, len(tables.Particles))
		for i, p := range tables.Particles {
			particles[i] = particleHDF5{evt: evt, parent: p.Parent, pdg: p.PDG,
				vt: p.Vt, vx: p.Vx, vy: p.Vy, vz: p.Vz, e: p.E, px: p.Px, py: p.Py, pz: p.Pz}
		}
		if err := writeArrayToTable(s.ParticlesTable, &particles, s.nParticles); err != nil {
			return &ErrWriteTable{TableName: "Particles", Event: evt, Err: err}
		}
		s.nParticles += uint(len(particles))
		nParticles = len(particles)
	}

	entry := []eventHDF5{{evt: evt, nhits: int32(len(hits)), ntracks: int32(len(tracks)), nparticles: int32(nParticles)}}
	if err := writeArrayToTable(s.EventTable, &entry, s.nEvents); err != nil {
		return &ErrWriteTable{TableName: "events", Event: evt, Err: err}
	}
	s.nEvents++
	return nil
}

func (s *hdf5Sink) Close() error {
	var errs []error

	datasets := []struct {
		name string
		dset *hdf5.Dataset
	}{
		{"run info table", s.RunInfoTable},
		{"event table", s.EventTable},
		{"hits table", s.HitsTable},
		{"tracks table", s.TracksTable},
		{"particles table", s.ParticlesTable},
	}
	for _, d := range datasets {
		if d.dset == nil {
			continue
		}
		if err := d.dset.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s: %w", d.name, err))
		}
	}

	groups := []struct {
		name  string
		group *hdf5.Group
	}{
		{"run group", s.RunGroup},
		{"hits group", s.HitsGroup},
		{"tracks group", s.TracksGroup},
		{"particles group", s.ParticlesGroup},
	}
	for _, g := range groups {
		if g.group == nil {
			continue
		}
		if err := g.group.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s: %w", g.name, err))
		}
	}

	if err := s.File.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing file: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ReadHDF5File loads a recording written by the HDF5 sink.
func ReadHDF5File(filename string) (RunHeader, []EventTables, error) {
	var header RunHeader
	f, err := hdf5.OpenFile(filename, hdf5.F_ACC_RDONLY)
	if err != nil {
		return header, nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	defer f.Close()

	runGroup, err := f.OpenGroup("Run")
	if err != nil {
		return header, nil, fmt.Errorf("error opening group %q: %w", "Run", err)
	}
	defer runGroup.Close()

	info, err := readTable[runInfoHDF5](runGroup, "runInfo")
	if err != nil {
		return header, nil, err
	}
	if len(info) > 0 {
		header.RunID = info[0].run_number
		header.SaveParticles = info[0].save_particles != 0
	}
	counts, err := readTable[eventHDF5](runGroup, "events")
	if err != nil {
		return header, nil, err
	}

	hitsGroup, err := f.OpenGroup("Hits")
	if err != nil {
		return header, nil, fmt.Errorf("error opening group %q: %w", "Hits", err)
	}
	defer hitsGroup.Close()
	hits, err := readTable[hitHDF5](hitsGroup, "hits")
	if err != nil {
		return header, nil, err
	}

	tracksGroup, err := f.OpenGroup("Tracks")
	if err != nil {
		return header, nil, fmt.Errorf("error opening group %q: %w", "Tracks", err)
	}
	defer tracksGroup.Close()
	tracks, err := readTable[trackHDF5](tracksGroup, "tracks")
	if err != nil {
		return header, nil, err
	}

	var particles []particleHDF5
	if header.SaveParticles {
		particlesGroup, err := f.OpenGroup("Particles")
		if err != nil {
			return header, nil, fmt.Errorf("error opening group %q: %w", "Particles", err)
		}
		defer particlesGroup.Close()
		particles, err = readTable[particleHDF5](particlesGroup, "particles")
		if err != nil {
			return header, nil, err
		}
	}

	events := make([]EventTables, len(counts))
	var ih, it, ip int
	for i, c := range counts {
		ev := EventTables{Event: c.evt}
		if ih+int(c.nhits) > len(hits) || it+int(c.ntracks) > len(tracks) || ip+int(c.nparticles) > len(particles) {
			return header, nil, fmt.Errorf("event %d: row counts exceed table sizes", c.evt)
		}
		ev.Hits = make([]HitRow, c.nhits)
		for j := range ev.Hits {
			h := hits[ih+j]
			ev.Hits[j] = HitRow{TrkID: h.trkid, TrkLen: h.trklen, Edep: h.edep, X: h.x, Y: h.y, Z: h.z, T: h.t, LyrID: h.lyrid}
		}
		ih += int(c.nhits)
		ev.Tracks = make([]TrackRow, c.ntracks)
		for j := range ev.Tracks {
			t := tracks[it+j]
			ev.Tracks[j] = TrackRow{Proc: t.proc, SProc: t.sproc, Status: t.status, Parent: t.parent,
				Particle: t.particle, PDG: t.pdg, Vt: t.vt, Vx: t.vx, Vy: t.vy, Vz: t.vz,
				E: t.e, Px: t.px, Py: t.py, Pz: t.pz}
		}
		it += int(c.ntracks)
		if header.SaveParticles {
			ev.Particles = make([]ParticleRow, c.nparticles)
			for j := range ev.Particles {
				p := particles[ip+j]
				ev.Particles[j] = ParticleRow{Parent: p.parent, PDG: p.pdg, Vt: p.vt, Vx: p.vx, Vy: p.vy,
					Vz: p.vz, E: p.e, Px: p.px, Py: p.py, Pz: p.pz}
			}
			ip += int(c.nparticles)
		}
		events[i] = ev
	}
	return header, events, nil
}
