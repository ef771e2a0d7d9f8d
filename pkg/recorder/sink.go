package recorder

import "fmt"

// Sink is the per-run persisted output. WriteEvent is called once per event
// with the full event buffers, which are reused after it returns.
type Sink interface {
	WriteEvent(tables *EventTables) error
	Close() error
}

// SinkOpener creates the sink of one run.
type SinkOpener func(filename string, runID int, opts Options) (Sink, error)

// OpenSink opens a sink of opts.Format.
func OpenSink(filename string, runID int, opts Options) (Sink, error) {
	switch opts.Format {
	case FormatHDF5:
		s, err := openHDF5Sink(filename, runID, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	case FormatCBOR:
		s, err := openCBORSink(filename, runID, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidOption, opts.Format)
}

// RunHeader describes the run a recording belongs to.
type RunHeader struct {
	RunID         int32 `cbor:"run"`
	SaveParticles bool  `cbor:"save_particles"`
}

// ReadFile loads a whole recording back, one EventTables per event.
func ReadFile(filename string, format Format) (RunHeader, []EventTables, error) {
	switch format {
	case FormatHDF5:
		return ReadHDF5File(filename)
	case FormatCBOR:
		return ReadCBORFile(filename)
	}
	return RunHeader{}, nil, fmt.Errorf("%w: unknown format %q", ErrInvalidOption, format)
}
