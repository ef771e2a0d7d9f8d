package recorder

import (
	"errors"
	"testing"
)

func TestOptionsConfigure(t *testing.T) {
	opts := DefaultOptions()
	commands := []struct {
		key   string
		value string
	}{
		{"io.prefix", "tracker"},
		{"io.saveParticles", "true"},
		{"io.format", "CBOR"},
		{"io.capacity", "50"},
		{"io.compression", "0"},
	}
	for _, c := range commands {
		if err := opts.Configure(c.key, c.value); err != nil {
			t.Fatalf("%s %s: %v", c.key, c.value, err)
		}
	}
	want := Options{Prefix: "tracker", Format: FormatCBOR, SaveParticles: true, Capacity: 50, Compression: 0}
	if opts != want {
		t.Errorf("got %+v, want %+v", opts, want)
	}
}

func TestOptionsConfigureErrors(t *testing.T) {
	tests := []struct {
		key   string
		value string
		err   error
	}{
		{"io.unknown", "1", ErrUnknownOption},
		{"io.prefix", " ", ErrInvalidOption},
		{"io.saveParticles", "maybe", ErrInvalidOption},
		{"io.format", "root", ErrInvalidOption},
		{"io.capacity", "0", ErrInvalidOption},
		{"io.compression", "10", ErrInvalidOption},
	}
	for _, tt := range tests {
		opts := DefaultOptions()
		if err := opts.Configure(tt.key, tt.value); !errors.Is(err, tt.err) {
			t.Errorf("%s %q: expected %v, got %v", tt.key, tt.value, tt.err, err)
		}
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		prefix string
		run    int
		format Format
		want   string
	}{
		{"g4me", 0, FormatHDF5, "g4me.000.h5"},
		{"out/sim", 12, FormatCBOR, "out/sim.012.cbor"},
		{"g4me", 1234, FormatHDF5, "g4me.1234.h5"},
	}
	for _, tt := range tests {
		if got := Filename(tt.prefix, tt.run, tt.format); got != tt.want {
			t.Errorf("Filename(%q, %d, %s) = %q, want %q", tt.prefix, tt.run, tt.format, got, tt.want)
		}
	}
}
