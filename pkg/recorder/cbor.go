package recorder

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// cborSink writes a RunHeader followed by one EventTables item per event.
type cborSink struct {
	file     *os.File
	filename string
	enc      *cbor.Encoder
}

func openCBORSink(filename string, runID int, opts Options) (*cborSink, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	s := &cborSink{file: f, filename: filename, enc: cbor.NewEncoder(f)}
	header := RunHeader{RunID: int32(runID), SaveParticles: opts.SaveParticles}
	if err := s.enc.Encode(header); err != nil {
		f.Close()
		return nil, &ErrCreateTable{TableName: "Run", Err: err}
	}
	return s, nil
}

func (s *cborSink) WriteEvent(tables *EventTables) error {
	if err := s.enc.Encode(tables); err != nil {
		return &ErrWriteTable{TableName: "Events", Event: tables.Event, Err: err}
	}
	return nil
}

func (s *cborSink) Close() error {
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("error closing file %q: %w", s.filename, err)
	}
	return nil
}

func ReadCBORFile(filename string) (RunHeader, []EventTables, error) {
	var header RunHeader
	f, err := os.Open(filename)
	if err != nil {
		return header, nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	defer f.Close()

	dec := cbor.NewDecoder(f)
	if err := dec.Decode(&header); err != nil {
		return header, nil, fmt.Errorf("error reading run header from %q: %w", filename, err)
	}

	var events []EventTables
	for {
		var ev EventTables
		err := dec.Decode(&ev)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return header, events, fmt.Errorf("error reading event %d from %q: %w", len(events), filename, err)
		}
		events = append(events, ev)
	}
	return header, events, nil
}
