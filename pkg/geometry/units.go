package geometry

import (
	"fmt"
	"strconv"
)

const (
	Millimeter = 1.0
	Nanometer  = 1e-6 * Millimeter
	Micrometer = 1e-3 * Millimeter
	Centimeter = 10 * Millimeter
	Meter      = 1000 * Millimeter
	Kilometer  = 1000 * Meter

	Nanosecond  = 1.0
	Picosecond  = 1e-3 * Nanosecond
	Microsecond = 1e3 * Nanosecond
	Millisecond = 1e6 * Nanosecond
	Second      = 1e9 * Nanosecond

	MeV = 1.0
	EV  = 1e-6 * MeV
	KeV = 1e-3 * MeV
	GeV = 1e3 * MeV
	TeV = 1e6 * MeV
)

type UnitCategory int

const (
	Length UnitCategory = iota
	Time
	Energy
)

func (c UnitCategory) String() string {
	switch c {
	case Length:
		return "Length"
	case Time:
		return "Time"
	case Energy:
		return "Energy"
	default:
		return "Unknown"
	}
}

type unit struct {
	value    float64
	category UnitCategory
}

var unitTable = map[string]unit{
	"nm":  {Nanometer, Length},
	"um":  {Micrometer, Length},
	"mm":  {Millimeter, Length},
	"cm":  {Centimeter, Length},
	"m":   {Meter, Length},
	"km":  {Kilometer, Length},
	"ps":  {Picosecond, Time},
	"ns":  {Nanosecond, Time},
	"us":  {Microsecond, Time},
	"ms":  {Millisecond, Time},
	"s":   {Second, Time},
	"eV":  {EV, Energy},
	"keV": {KeV, Energy},
	"MeV": {MeV, Energy},
	"GeV": {GeV, Energy},
	"TeV": {TeV, Energy},
}

// UnitValue returns the internal value of one unit of the given symbol.
func UnitValue(symbol string, category UnitCategory) (float64, error) {
	u, ok := unitTable[symbol]
	if !ok {
		return 0, fmt.Errorf("unknown unit %q", symbol)
	}
	if u.category != category {
		return 0, fmt.Errorf("unit %q is not a %v unit", symbol, category)
	}
	return u.value, nil
}

// ParseDimensioned converts a number and a unit symbol into internal units.
func ParseDimensioned(value string, symbol string, category UnitCategory) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", value, err)
	}
	u, err := UnitValue(symbol, category)
	if err != nil {
		return 0, err
	}
	return v * u, nil
}
