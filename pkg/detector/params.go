package detector

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/next-exp/g4me_go/pkg/geometry"
)

// splitParams splits a command value into between min and max fields.
func splitParams(value string, min int, max int) ([]string, error) {
	fields := strings.Fields(value)
	if len(fields) < min || len(fields) > max {
		if min == max {
			return nil, fmt.Errorf("%w: expected %d parameters, got %d", ErrInvalidValue, min, len(fields))
		}
		return nil, fmt.Errorf("%w: expected %d to %d parameters, got %d", ErrInvalidValue, min, max, len(fields))
	}
	return fields, nil
}

func parseLength(value string, unit string) (float64, error) {
	v, err := geometry.ParseDimensioned(value, unit, geometry.Length)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return v, nil
}

// parsePositiveLength additionally rejects zero and negative lengths.
func parsePositiveLength(value string, unit string) (float64, error) {
	v, err := parseLength(value, unit)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("%w: length %s %s must be positive", ErrInvalidValue, value, unit)
	}
	return v, nil
}

// parseLengths converts values sharing a single unit.
func parseLengths(unit string, values ...string) ([]float64, error) {
	out := make([]float64, len(values))
	for i, v := range values {
		l, err := parseLength(v, unit)
		if err != nil {
			return nil, err
		}
		out[i] = l
	}
	return out, nil
}

func parseBool(value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, value)
	}
	return b, nil
}

// NormalizeKey maps macro-style command paths such as "/detector/pipe/radius"
// onto configuration keys such as "pipe.radius". Dotted keys pass through.
func NormalizeKey(key string) string {
	if !strings.HasPrefix(key, "/") {
		return key
	}
	k := strings.TrimPrefix(key, "/detector/")
	if k == key {
		k = strings.TrimPrefix(key, "/")
	}
	switch k {
	case "enable":
		return "detector.enable"
	case "geometryio/PVIDMapFile":
		return "geometryio.pvidMapFile"
	}
	return strings.ReplaceAll(k, "/", ".")
}
