package config

import (
	"fmt"

	"github.com/justapithecus/assay/log"
	"github.com/justapithecus/assay/stats"
	"github.com/justapithecus/assay/view"
)

// Build materializes a registry from a parsed config: every declared
// measure is registered, then every declared view. Views may only
// reference declared measures, so a typo in a view's measure name fails
// here rather than silently dropping recordings later.
func Build(cfg *Config, logger *log.Logger) (*view.Registry, error) {
	opts := []view.Option{}
	if logger != nil {
		opts = append(opts, view.WithLogger(logger))
	}
	if cfg.Limits.MaxRowsPerView > 0 {
		opts = append(opts, view.WithMaxRowsPerView(cfg.Limits.MaxRowsPerView))
	}
	reg := view.NewRegistry(opts...)

	measures := make(map[string]stats.Measure, len(cfg.Measures))
	for _, mc := range cfg.Measures {
		m, err := buildMeasure(mc)
		if err != nil {
			return nil, err
		}
		if err := reg.RegisterMeasure(m); err != nil {
			return nil, err
		}
		measures[m.Name] = m
	}

	for _, vc := range cfg.Views {
		m, ok := measures[vc.Measure]
		if !ok {
			return nil, fmt.Errorf("view %q: %w: %q", vc.Name, view.ErrUnknownMeasure, vc.Measure)
		}
		v, err := buildView(vc, m)
		if err != nil {
			return nil, err
		}
		if err := reg.RegisterView(v); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// buildMeasure converts one measure declaration.
func buildMeasure(mc MeasureConfig) (stats.Measure, error) {
	unit, err := stats.ParseUnit(mc.Unit)
	if err != nil {
		return stats.Measure{}, fmt.Errorf("measure %q: %w", mc.Name, err)
	}
	typ, err := stats.ParseMeasureType(mc.Type)
	if err != nil {
		return stats.Measure{}, fmt.Errorf("measure %q: %w", mc.Name, err)
	}

	m := stats.Measure{
		Name:        mc.Name,
		Description: mc.Description,
		Unit:        unit,
		Type:        typ,
	}
	if err := m.Validate(); err != nil {
		return stats.Measure{}, err
	}
	return m, nil
}

// buildView converts one view declaration.
func buildView(vc ViewConfig, m stats.Measure) (*view.View, error) {
	agg, err := ParseAggregation(vc.Aggregation, vc.Buckets)
	if err != nil {
		return nil, fmt.Errorf("view %q: %w", vc.Name, err)
	}

	return &view.View{
		Name:        vc.Name,
		Description: vc.Description,
		Measure:     m,
		TagKeys:     vc.TagKeys,
		Aggregation: agg,
	}, nil
}

// ParseAggregation converts an aggregation declaration. Buckets are only
// meaningful for distribution.
func ParseAggregation(name string, buckets []float64) (view.Aggregation, error) {
	switch name {
	case "count":
		if len(buckets) > 0 {
			return view.Aggregation{}, fmt.Errorf("buckets are only valid for distribution, not %q", name)
		}
		return view.Count(), nil
	case "sum":
		if len(buckets) > 0 {
			return view.Aggregation{}, fmt.Errorf("buckets are only valid for distribution, not %q", name)
		}
		return view.Sum(), nil
	case "last_value":
		if len(buckets) > 0 {
			return view.Aggregation{}, fmt.Errorf("buckets are only valid for distribution, not %q", name)
		}
		return view.LastValue(), nil
	case "distribution":
		return view.Distribution(buckets...), nil
	default:
		return view.Aggregation{}, fmt.Errorf("invalid aggregation: %q (must be count, sum, last_value, or distribution)", name)
	}
}
