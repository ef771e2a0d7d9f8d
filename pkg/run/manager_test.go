package run_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/next-exp/g4me_go/pkg/detector"
	"github.com/next-exp/g4me_go/pkg/engine"
	"github.com/next-exp/g4me_go/pkg/geometry"
	"github.com/next-exp/g4me_go/pkg/recorder"
	"github.com/next-exp/g4me_go/pkg/run"
)

type memSink struct {
	events []recorder.EventTables
	closed bool
}

func (s *memSink) WriteEvent(tables *recorder.EventTables) error {
	s.events = append(s.events, recorder.EventTables{
		Event:     tables.Event,
		Hits:      append([]recorder.HitRow(nil), tables.Hits...),
		Tracks:    append([]recorder.TrackRow(nil), tables.Tracks...),
		Particles: append([]recorder.ParticleRow(nil), tables.Particles...),
	})
	return nil
}

func (s *memSink) Close() error {
	s.closed = true
	return nil
}

type fakeCatalog struct {
	geometries map[string][]geometry.PVIDEntry
	started    []int
	finished   map[string]int
}

func (c *fakeCatalog) RecordGeometry(_ context.Context, _ string, entries []geometry.PVIDEntry) (string, error) {
	c.geometries["geo-1"] = entries
	return "geo-1", nil
}

func (c *fakeCatalog) StartRun(_ context.Context, runNumber int, geometryID string, _ string, _ string) (string, error) {
	Expect(geometryID).To(Equal("geo-1"))
	c.started = append(c.started, runNumber)
	return "run-" + string(rune('a'+runNumber)), nil
}

func (c *fakeCatalog) FinishRun(_ context.Context, runID string, events int) error {
	c.finished[runID] = events
	return nil
}

func stepIn(trk *engine.Track, volume string, copyNumber int) *engine.Step {
	touchable := engine.Touchable{VolumeName: volume, CopyNumber: copyNumber}
	return &engine.Step{
		Track:         trk,
		PreStepPoint:  engine.StepPoint{Touchable: touchable},
		PostStepPoint: engine.StepPoint{Touchable: touchable},
		EnergyDeposit: 80 * geometry.KeV,
	}
}

var _ = Describe("Manager", func() {
	var (
		manager *run.Manager
		sinks   map[int]*memSink
		dir     string
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "g4me-run")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)

		sinks = make(map[int]*memSink)
		manager = run.NewManager(recorder.DefaultOptions(), nil)
		manager.SetSinkOpener(func(_ string, runID int, _ recorder.Options) (recorder.Sink, error) {
			sinks[runID] = &memSink{}
			return sinks[runID], nil
		})
		Expect(manager.Configure("geometryio.pvidMapFile", filepath.Join(dir, "PVIDMapFile.dat"))).To(Succeed())
	})

	Describe("Configure", func() {
		It("sends io keys to the recorder options", func() {
			Expect(manager.Configure("/io/prefix", "tracker")).To(Succeed())
			Expect(manager.Configure("io.saveParticles", "true")).To(Succeed())
			Expect(manager.Options().Prefix).To(Equal("tracker"))
			Expect(manager.Options().SaveParticles).To(BeTrue())
		})

		It("sends everything else to the assembly", func() {
			Expect(manager.Configure("/detector/tracker/addLayer", "2 cm 50 cm 300 um")).To(Succeed())
			Expect(manager.Assembly.TrackerLayers).To(HaveLen(1))
		})

		It("reports bad io values as configuration errors", func() {
			err := manager.Configure("io.capacity", "-3")
			var cerr *detector.ConfigError
			Expect(errors.As(err, &cerr)).To(BeTrue())
			Expect(cerr.Key).To(Equal("io.capacity"))
			Expect(err).To(MatchError(recorder.ErrInvalidOption))
		})
	})

	Context("with a two layer tracker", func() {
		BeforeEach(func() {
			Expect(manager.Configure("tracker.addLayer", "2 cm 50 cm 300 um")).To(Succeed())
			Expect(manager.Configure("tracker.addLayer", "4 cm 50 cm 300 um")).To(Succeed())
			_, err := manager.Build()
			Expect(err).NotTo(HaveOccurred())
			Expect(manager.AttachSensitives()).To(Succeed())
		})

		It("records tracks and the hits of sensitive volumes", func() {
			Expect(manager.BeginOfRun(0)).To(Succeed())
			for evt := 0; evt < 2; evt++ {
				Expect(manager.BeginOfEvent(evt)).To(Succeed())
				trk := &engine.Track{ID: 1, PDG: 13}
				trk.SetPrimaryIndex(0)
				manager.NotifyTrackCreated(trk)
				manager.NotifyStep(stepIn(trk, "pipe_pv", geometry.PipeCopyNumber))
				manager.NotifyStep(stepIn(trk, "layer_pv", 0))
				manager.NotifyStep(stepIn(trk, "layer_pv", 1))
				manager.NotifyTrackStatus(1, engine.StatusLeftWorld)
				Expect(manager.EndOfEvent()).To(Succeed())
			}
			Expect(manager.EndOfRun()).To(Succeed())

			sink := sinks[0]
			Expect(sink.closed).To(BeTrue())
			Expect(sink.events).To(HaveLen(2))
			for _, ev := range sink.events {
				Expect(ev.Tracks).To(HaveLen(1))
				Expect(ev.Tracks[0].Status).To(Equal(int32(engine.StatusLeftWorld)))
				Expect(ev.Hits).To(HaveLen(2))
				Expect(ev.Hits[0].LyrID).To(Equal(int32(0)))
				Expect(ev.Hits[1].LyrID).To(Equal(int32(1)))
			}
			Expect(manager.Recorder().Warnings()).To(BeZero())
		})

		It("uses a fresh recorder for every run", func() {
			Expect(manager.BeginOfRun(1)).To(Succeed())
			first := manager.Recorder()
			Expect(first.Filename()).To(Equal("g4me.001.h5"))
			Expect(manager.BeginOfRun(2)).To(MatchError(recorder.ErrRecorderState))
			Expect(manager.EndOfRun()).To(Succeed())

			Expect(manager.Configure("io.format", "cbor")).To(Succeed())
			Expect(manager.BeginOfRun(2)).To(Succeed())
			Expect(manager.Recorder()).NotTo(BeIdenticalTo(first))
			Expect(manager.Recorder().Filename()).To(Equal("g4me.002.cbor"))
			Expect(manager.EndOfRun()).To(Succeed())
		})

		It("rejects io changes while a run is open", func() {
			Expect(manager.BeginOfRun(0)).To(Succeed())
			Expect(manager.Configure("io.prefix", "late")).To(MatchError(recorder.ErrRecorderState))
			Expect(manager.EndOfRun()).To(Succeed())
		})

		It("discards the unflushed event on abort", func() {
			Expect(manager.BeginOfRun(0)).To(Succeed())
			Expect(manager.BeginOfEvent(0)).To(Succeed())
			manager.NotifyTrackCreated(&engine.Track{ID: 1})
			Expect(manager.EndOfEvent()).To(Succeed())

			Expect(manager.BeginOfEvent(1)).To(Succeed())
			manager.NotifyTrackCreated(&engine.Track{ID: 1})
			Expect(manager.Abort()).To(Succeed())

			Expect(sinks[0].events).To(HaveLen(1))
			Expect(sinks[0].closed).To(BeTrue())
			Expect(manager.BeginOfEvent(2)).To(MatchError(recorder.ErrRecorderState))
		})

		It("ignores callbacks outside a run", func() {
			manager.NotifyTrackCreated(&engine.Track{ID: 1})
			Expect(manager.EndOfEvent()).To(MatchError(recorder.ErrRecorderState))
			Expect(manager.EndOfRun()).To(MatchError(recorder.ErrRecorderState))
		})
	})

	It("records geometries and runs in the catalog", func() {
		catalog := &fakeCatalog{geometries: map[string][]geometry.PVIDEntry{}, finished: map[string]int{}}
		manager.SetCatalog(context.Background(), catalog)

		_, err := manager.Build()
		Expect(err).NotTo(HaveOccurred())
		Expect(manager.AttachSensitives()).To(Succeed())
		Expect(catalog.geometries["geo-1"]).To(ConsistOf(
			geometry.PVIDEntry{CopyNumber: geometry.WorldCopyNumber, Name: "world_pv"},
			geometry.PVIDEntry{CopyNumber: geometry.PipeCopyNumber, Name: "pipe_pv"},
		))

		Expect(manager.BeginOfRun(0)).To(Succeed())
		Expect(manager.BeginOfEvent(0)).To(Succeed())
		Expect(manager.EndOfEvent()).To(Succeed())
		Expect(manager.EndOfRun()).To(Succeed())

		Expect(catalog.started).To(Equal([]int{0}))
		Expect(catalog.finished).To(HaveKeyWithValue("run-a", 1))
	})

	It("records generator particles when enabled", func() {
		Expect(manager.Configure("io.saveParticles", "true")).To(Succeed())
		_, err := manager.Build()
		Expect(err).NotTo(HaveOccurred())
		Expect(manager.AttachSensitives()).To(Succeed())

		Expect(manager.BeginOfRun(0)).To(Succeed())
		Expect(manager.BeginOfEvent(0)).To(Succeed())
		manager.NotifyPrimary(engine.Primary{Index: 0, PDG: 211, ParentIndex: -1, Energy: geometry.GeV})
		manager.NotifyPrimary(engine.Primary{Index: 1, PDG: -211, ParentIndex: -1, Energy: 2 * geometry.GeV})
		Expect(manager.EndOfEvent()).To(Succeed())
		Expect(manager.EndOfRun()).To(Succeed())

		particles := sinks[0].events[0].Particles
		Expect(particles).To(HaveLen(2))
		Expect(particles[1].PDG).To(Equal(int32(-211)))
		Expect(particles[1].E).To(BeNumerically("~", 2.0, 1e-12))
	})
})
