package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/next-exp/g4me_go/pkg/catalog"
	"github.com/next-exp/g4me_go/pkg/geometry"
	"github.com/next-exp/g4me_go/pkg/recorder"
	"github.com/next-exp/g4me_go/pkg/run"
	"github.com/next-exp/g4me_go/pkg/toymc"
)

func newGeometryCmd() *cobra.Command {
	var macro string
	cmd := &cobra.Command{
		Use:   "geometry",
		Short: "build the geometry of a macro and write its PVID map",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager := run.NewManager(recorder.DefaultOptions(), logger)
			manager.SetVerbosity(VerbosityLevel)
			tree, err := setup(manager, macro, true)
			if err != nil {
				return err
			}
			printTree(cmd, tree)
			return nil
		},
	}
	cmd.Flags().StringVarP(&macro, "macro", "m", "", "macro file with the configuration commands")
	cmd.MarkFlagRequired("macro")
	return cmd
}

func newRunCmd() *cobra.Command {
	var (
		macro      string
		configFile string
		events     int
		runNumber  int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "build the geometry and record a toy simulation run",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := LoadConfiguration(configFile)
			if err != nil {
				return fmt.Errorf("error reading configuration file: %w", err)
			}
			if cmd.Flags().Changed("events") {
				config.Run.Events = events
			}
			if cmd.Flags().Changed("run") {
				config.Run.RunNumber = runNumber
			}
			if !cmd.Flags().Changed("verbosity") {
				VerbosityLevel = config.Run.Verbosity
			}
			if VerbosityLevel > 0 {
				printConfiguration(config, logger)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return simulate(ctx, config, macro)
		},
	}
	cmd.Flags().StringVarP(&macro, "macro", "m", "", "macro file with the configuration commands")
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "run configuration file")
	cmd.Flags().IntVarP(&events, "events", "n", 0, "number of events")
	cmd.Flags().IntVarP(&runNumber, "run", "r", 0, "run number")
	cmd.MarkFlagRequired("macro")
	return cmd
}

func newInspectCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "summarise a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := inspectFormat(args[0], format)
			if err != nil {
				return err
			}
			header, events, err := recorder.ReadFile(args[0], f)
			if err != nil {
				return err
			}
			printSummary(cmd, header, events)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "file format (hdf5 or cbor), guessed from the extension by default")
	return cmd
}

// setup applies the macro and builds the geometry. Without writePVIDMap no
// PVID map file is written.
func setup(manager *run.Manager, macro string, writePVIDMap bool) (*geometry.Tree, error) {
	commands, err := LoadMacro(macro)
	if err != nil {
		return nil, err
	}
	for _, c := range commands {
		if err := manager.Configure(c.Key, c.Value); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", macro, c.Line, err)
		}
	}
	if !writePVIDMap {
		manager.Assembly.PVIDMapFile = ""
	}
	tree, err := manager.Build()
	if err != nil {
		return nil, err
	}
	if err := manager.AttachSensitives(); err != nil {
		return nil, err
	}
	return tree, nil
}

func openCatalog(ctx context.Context, config CatalogConfig) (*catalog.Catalog, error) {
	switch config.Driver {
	case "":
		return nil, nil
	case "mysql":
		if config.DSN == "" {
			return catalog.ConnectToDatabase(ctx, config.User, config.Passwd, config.Host, config.DBName)
		}
		return catalog.Open(ctx, "mysql", config.DSN)
	case "postgres", "pgx":
		return catalog.ConnectToPostgres(ctx, config.DSN)
	case "sqlite":
		return catalog.OpenSQLite(ctx, config.DSN)
	}
	return nil, fmt.Errorf("unknown catalog driver %q", config.Driver)
}

func simulate(ctx context.Context, config Configuration, macro string) error {
	cat, err := openCatalog(ctx, config.Catalog)
	if err != nil {
		return err
	}
	if cat != nil {
		defer cat.Close()
	}

	result := simulateRun(ctx, config, macro, config.Run.RunNumber, true, cat)
	if result.Err != nil {
		return result.Err
	}
	logResult(result)
	return nil
}

// simulateRun builds a fresh manager from macro and records one run with
// it. The PVID map is only written when writePVIDMap is set.
func simulateRun(ctx context.Context, config Configuration, macro string, runNumber int, writePVIDMap bool, cat *catalog.Catalog) runResult {
	result := runResult{RunNumber: runNumber}
	manager := run.NewManager(config.IO, logger)
	manager.SetVerbosity(VerbosityLevel)
	if cat != nil {
		manager.SetCatalog(ctx, cat)
	}

	tree, err := setup(manager, macro, writePVIDMap)
	if err != nil {
		result.Err = err
		return result
	}

	transport, err := toymc.New(tree, manager, logger)
	if err != nil {
		result.Err = err
		return result
	}
	if err := transport.Run(ctx, runNumber, config.Run.Events, config.Gun); err != nil {
		if abortErr := manager.Abort(); abortErr != nil {
			logger.Error(fmt.Sprintf("Run %d: error aborting: %v", runNumber, abortErr))
		}
		result.Err = fmt.Errorf("run %d: %w", runNumber, err)
		return result
	}
	rec := manager.Recorder()
	result.Filename = rec.Filename()
	result.Events = rec.Events()
	result.Warnings = rec.Warnings()
	result.Dropped = rec.Dropped()
	return result
}

func logResult(r runResult) {
	logger.Info(fmt.Sprintf("Run %d: %d events written to %s (%d warnings, %d rows dropped)",
		r.RunNumber, r.Events, r.Filename, r.Warnings, r.Dropped), "main")
}

func inspectFormat(filename string, format string) (recorder.Format, error) {
	if format != "" {
		return recorder.ParseFormat(format)
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".h5", ".hdf5":
		return recorder.FormatHDF5, nil
	case ".cbor":
		return recorder.FormatCBOR, nil
	}
	return "", fmt.Errorf("cannot guess the format of %s, use --format", filename)
}

func printTree(cmd *cobra.Command, tree *geometry.Tree) {
	out := cmd.OutOrStdout()
	tree.Walk(func(pv *geometry.PhysicalVolume, depth int) {
		fmt.Fprintf(out, "%s%-4d %-20s %-10s %s\n", strings.Repeat("  ", depth), pv.CopyNumber, pv.Name, pv.Logical.Material, pv.Logical.Solid)
	})
}

func printSummary(cmd *cobra.Command, header recorder.RunHeader, events []recorder.EventTables) {
	out := cmd.OutOrStdout()
	var hits, tracks, particles int
	for _, ev := range events {
		hits += len(ev.Hits)
		tracks += len(ev.Tracks)
		particles += len(ev.Particles)
		if VerbosityLevel > 0 {
			fmt.Fprintf(out, "event %d: %d tracks, %d hits, %d particles\n", ev.Event, len(ev.Tracks), len(ev.Hits), len(ev.Particles))
		}
	}
	fmt.Fprintf(out, "run %d: %d events, %d tracks, %d hits", header.RunID, len(events), tracks, hits)
	if header.SaveParticles {
		fmt.Fprintf(out, ", %d particles", particles)
	}
	fmt.Fprintln(out)
}
