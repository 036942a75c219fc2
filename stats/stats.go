// Package stats defines measures and measurements: the named, typed
// quantities an application records, and the individual data points
// carrying a value and a tag set. Aggregation over recorded measurements
// lives in the view package.
package stats

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/justapithecus/assay/tag"
)

// MeasureType is the numeric kind of a measure's recorded values.
type MeasureType string

// Measure numeric kinds.
const (
	// MeasureInt64 truncates recorded values to integers before folding.
	MeasureInt64 MeasureType = "int64"
	// MeasureFloat64 folds recorded values as-is.
	MeasureFloat64 MeasureType = "double"
)

// ParseMeasureType parses a measure type string from configuration.
func ParseMeasureType(s string) (MeasureType, error) {
	switch s {
	case "int64":
		return MeasureInt64, nil
	case "double", "float64":
		return MeasureFloat64, nil
	default:
		return "", fmt.Errorf("invalid measure type: %q (must be int64 or double)", s)
	}
}

// Unit is the unit of a measure's recorded values. Units are descriptive
// only; the engine never converts between them.
type Unit string

// Supported units.
const (
	UnitDimensionless Unit = "unit"
	UnitByte          Unit = "byte"
	UnitKilobyte      Unit = "kbyte"
	UnitSecond        Unit = "sec"
	UnitMillisecond   Unit = "ms"
	UnitNanosecond    Unit = "ns"
)

// ParseUnit parses a unit string from configuration.
func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case UnitDimensionless, UnitByte, UnitKilobyte, UnitSecond, UnitMillisecond, UnitNanosecond:
		return Unit(s), nil
	default:
		return "", fmt.Errorf("invalid unit: %q (must be unit, byte, kbyte, sec, ms, or ns)", s)
	}
}

// MaxNameLength is the maximum length of a measure or view name in bytes.
const MaxNameLength = 255

// ErrEmptyName is returned when a measure has no name.
var ErrEmptyName = errors.New("measure name must not be empty")

// Measure describes a quantity that can be recorded: its unique name, a
// human-readable description, a unit, and a numeric kind. Measures are
// immutable values; name uniqueness is enforced by the registry at
// registration time.
type Measure struct {
	Name        string
	Description string
	Unit        Unit
	Type        MeasureType
}

// Int64 creates an integer-kind measure. Values recorded against it are
// truncated toward zero before aggregation.
func Int64(name, description string, unit Unit) Measure {
	return Measure{Name: name, Description: description, Unit: unit, Type: MeasureInt64}
}

// Float64 creates a floating-point-kind measure.
func Float64(name, description string, unit Unit) Measure {
	return Measure{Name: name, Description: description, Unit: unit, Type: MeasureFloat64}
}

// Validate checks that the measure is well formed.
func (m Measure) Validate() error {
	if m.Name == "" {
		return ErrEmptyName
	}
	if len(m.Name) > MaxNameLength {
		return fmt.Errorf("measure name %q exceeds %d bytes", m.Name, MaxNameLength)
	}
	if !utf8.ValidString(m.Name) {
		return fmt.Errorf("measure name %q is not valid UTF-8", m.Name)
	}
	if m.Type != MeasureInt64 && m.Type != MeasureFloat64 {
		return fmt.Errorf("measure %q has invalid type %q", m.Name, m.Type)
	}
	return nil
}

// M constructs a measurement of this measure. The tag map is retained by
// reference for the duration of the synchronous record call only; the
// engine never holds onto it after folding.
func (m Measure) M(v float64, tags tag.Map) Measurement {
	return Measurement{Measure: m, Value: v, Tags: tags}
}

// Measurement is one recorded data point: a measure, a value, and the tag
// set it was recorded under. Measurements are transient; they are consumed
// synchronously by recording and never stored.
type Measurement struct {
	Measure Measure
	Value   float64
	Tags    tag.Map
}
