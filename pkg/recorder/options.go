package recorder

import (
	"fmt"
	"strconv"
	"strings"
)

type Format string

const (
	FormatHDF5 Format = "hdf5"
	FormatCBOR Format = "cbor"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatHDF5:
		return FormatHDF5, nil
	case FormatCBOR:
		return FormatCBOR, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", ErrInvalidOption, s)
}

func (f Format) Extension() string {
	switch f {
	case FormatHDF5:
		return "h5"
	default:
		return string(f)
	}
}

const (
	DefaultPrefix      = "g4me"
	DefaultCapacity    = 100000
	DefaultCompression = 4
)

type Options struct {
	Prefix        string `yaml:"prefix" env:"PREFIX"`
	Format        Format `yaml:"format" env:"FORMAT"`
	SaveParticles bool   `yaml:"save_particles" env:"SAVE_PARTICLES"`
	Capacity      int    `yaml:"capacity" env:"CAPACITY"`
	Compression   int    `yaml:"compression" env:"COMPRESSION"`
}

func DefaultOptions() Options {
	return Options{
		Prefix:      DefaultPrefix,
		Format:      FormatHDF5,
		Capacity:    DefaultCapacity,
		Compression: DefaultCompression,
	}
}

// Configure applies one io.* command.
func (o *Options) Configure(key string, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "io.prefix":
		if value == "" {
			return fmt.Errorf("%w: empty prefix", ErrInvalidOption)
		}
		o.Prefix = value
	case "io.saveParticles":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %q is not a boolean", ErrInvalidOption, value)
		}
		o.SaveParticles = b
	case "io.format":
		f, err := ParseFormat(value)
		if err != nil {
			return err
		}
		o.Format = f
	case "io.capacity":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: capacity %q must be a positive integer", ErrInvalidOption, value)
		}
		o.Capacity = n
	case "io.compression":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > 9 {
			return fmt.Errorf("%w: compression %q must be between 0 and 9", ErrInvalidOption, value)
		}
		o.Compression = n
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOption, key)
	}
	return nil
}

// Filename returns "<prefix>.<runID:03d>.<ext>".
func Filename(prefix string, runID int, format Format) string {
	return fmt.Sprintf("%s.%03d.%s", prefix, runID, format.Extension())
}
