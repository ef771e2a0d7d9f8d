package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"github.com/spf13/cobra"

	"github.com/next-exp/g4me_go/pkg/catalog"
	"github.com/next-exp/g4me_go/pkg/recorder"
	"github.com/next-exp/g4me_go/pkg/run"
)

type runJob struct {
	RunNumber int
}

type runResult struct {
	RunNumber int
	Worker    int
	Filename  string
	Events    int
	Warnings  int
	Dropped   int
	Err       error
}

// runWorker records every job with its own manager, recorder and sink.
func runWorker(ctx context.Context, id int, config Configuration, macro string, cat *catalog.Catalog, jobs <-chan runJob, results chan<- runResult) {
	for job := range jobs {
		if VerbosityLevel > 0 {
			logger.Info(fmt.Sprintf("Worker %d processing run %d", id, job.RunNumber), "worker")
		}
		result := safeSimulateRun(ctx, id, config, macro, job.RunNumber, cat)
		result.Worker = id
		results <- result
	}
}

func safeSimulateRun(ctx context.Context, id int, config Configuration, macro string, runNumber int, cat *catalog.Catalog) (result runResult) {
	defer func() {
		if r := recover(); r != nil {
			result = runResult{RunNumber: runNumber, Err: fmt.Errorf("worker %d recovered from panic: %v", id, r)}
		}
	}()
	return simulateRun(ctx, config, macro, runNumber, false, cat)
}

// batchWorkers bounds the pool size. The macro may switch the output format,
// so format must be the one in effect after the macro is applied.
func batchWorkers(format recorder.Format, workers int) int {
	if workers < 1 {
		return 1
	}
	if format == recorder.FormatHDF5 && workers > 1 {
		logger.Warn("HDF5 output is written by a single worker", "worker")
		return 1
	}
	return workers
}

// runBatch records runs first..first+count-1 on workers goroutines and
// returns the results ordered by run number.
func runBatch(ctx context.Context, config Configuration, macro string, first int, count int, workers int, cat *catalog.Catalog) ([]runResult, error) {
	// The geometry and its PVID map are shared by every run; validate it once.
	if count < 1 {
		return nil, fmt.Errorf("number of runs must be positive, got %d", count)
	}
	manager := run.NewManager(config.IO, logger)
	if _, err := setup(manager, macro, true); err != nil {
		return nil, err
	}

	workers = batchWorkers(manager.Options().Format, workers)

	jobs := make(chan runJob, count)
	results := make(chan runResult, count)

	var wg sync.WaitGroup
	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runWorker(ctx, id, config, macro, cat, jobs, results)
		}(w)
	}
	for i := 0; i < count; i++ {
		jobs <- runJob{RunNumber: first + i}
	}
	close(jobs)
	wg.Wait()
	close(results)

	ordered := make([]runResult, count)
	var errs []error
	for r := range results {
		ordered[r.RunNumber-first] = r
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return ordered, errors.Join(errs...)
}

func newBatchCmd() *cobra.Command {
	var (
		macro      string
		configFile string
		runs       int
		first      int
		workers    int
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "record several independent runs in parallel",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := LoadConfiguration(configFile)
			if err != nil {
				return fmt.Errorf("error reading configuration file: %w", err)
			}
			if !cmd.Flags().Changed("first") {
				first = config.Run.RunNumber
			}
			if !cmd.Flags().Changed("verbosity") {
				VerbosityLevel = config.Run.Verbosity
			}
			if VerbosityLevel > 0 {
				printConfiguration(config, logger)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			cat, err := openCatalog(ctx, config.Catalog)
			if err != nil {
				return err
			}
			if cat != nil {
				defer cat.Close()
			}

			results, err := runBatch(ctx, config, macro, first, runs, workers, cat)
			for _, r := range results {
				if r.Err == nil {
					logResult(r)
				}
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&macro, "macro", "m", "", "macro file with the configuration commands")
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "run configuration file")
	cmd.Flags().IntVar(&runs, "runs", 1, "number of runs")
	cmd.Flags().IntVar(&first, "first", 0, "first run number")
	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "number of parallel workers")
	cmd.MarkFlagRequired("macro")
	return cmd
}
