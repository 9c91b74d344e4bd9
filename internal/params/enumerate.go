package params

import (
	"fmt"
	"strconv"
	"strings"

	engerrors "github.com/lo2cin4bt/backtest-engine/internal/errors"
)

// Enumerate expands a recognised alias + config map into the cartesian
// product of resolved IndicatorParams, per spec.md §4.1. config keys are
// range-spec strings (or already-scalar values). An unrecognised alias or
// a missing required key for the alias's family fails with InvalidConfig;
// keys the family does not use are ignored.
func Enumerate(alias string, config map[string]any) ([]Params, error) {
	kind, variant, err := parseAlias(alias)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindMA:
		switch {
		case variant >= 1 && variant <= 4:
			return enumerateMASingle(alias, variant, config)
		case variant >= 5 && variant <= 8:
			return enumerateMADouble(alias, variant, config)
		case variant >= 9 && variant <= 12:
			return enumerateMAConsecutive(alias, variant, config)
		}
		return nil, invalidAlias(alias)
	case KindBOLL:
		return enumerateBoll(alias, variant, config)
	case KindHL:
		return enumerateHL(alias, variant, config)
	case KindPERC:
		switch {
		case variant >= 1 && variant <= 4:
			return enumeratePercThreshold(alias, variant, config)
		case variant == 5 || variant == 6:
			return enumeratePercBand(alias, variant, config)
		}
		return nil, invalidAlias(alias)
	case KindVALUE:
		switch {
		case variant >= 1 && variant <= 4:
			return enumerateValueThreshold(alias, variant, config)
		case variant == 5 || variant == 6:
			return enumerateValueBand(alias, variant, config)
		}
		return nil, invalidAlias(alias)
	case KindNDayCycle:
		return enumerateNDayCycle(alias, variant, config)
	}
	return nil, invalidAlias(alias)
}

func invalidAlias(alias string) error {
	return engerrors.New(engerrors.KindInvalidConfig, "params", "Enumerate",
		fmt.Sprintf("unrecognised alias %q", alias))
}

// parseAlias splits e.g. "MA3" -> (KindMA, 3), "NDayCycle2" -> (KindNDayCycle, 2).
func parseAlias(alias string) (Kind, int, error) {
	prefixes := []Kind{KindNDayCycle, KindBOLL, KindHL, KindPERC, KindVALUE, KindMA}
	for _, k := range prefixes {
		if strings.HasPrefix(alias, string(k)) {
			suffix := strings.TrimPrefix(alias, string(k))
			n, err := strconv.Atoi(suffix)
			if err != nil {
				return "", 0, engerrors.New(engerrors.KindInvalidConfig, "params", "parseAlias",
					fmt.Sprintf("alias %q has non-numeric variant suffix", alias))
			}
			return k, n, nil
		}
	}
	return "", 0, invalidAlias(alias)
}

func requireSpec(config map[string]any, key string) (string, error) {
	raw, ok := config[key]
	if !ok {
		return "", engerrors.New(engerrors.KindInvalidConfig, "params", "Enumerate",
			fmt.Sprintf("missing required config key %q", key))
	}
	return fmt.Sprint(raw), nil
}

func resolveRequired(config map[string]any, key string) ([]any, error) {
	spec, err := requireSpec(config, key)
	if err != nil {
		return nil, err
	}
	return ParseRangeSpec(spec)
}

func resolveOptional(config map[string]any, key, defaultSpec string) ([]any, error) {
	spec := defaultSpec
	if raw, ok := config[key]; ok {
		spec = fmt.Sprint(raw)
	}
	return ParseRangeSpec(spec)
}

// cartesian computes the cartesian product of named value lists, calling
// emit once per resolved combination in lexicographic (first-key-major) order.
func cartesian(lists map[string][]any, keys []string, emit func(map[string]any)) {
	combo := make(map[string]any, len(keys))
	var rec func(idx int)
	rec = func(idx int) {
		if idx == len(keys) {
			snapshot := make(map[string]any, len(combo))
			for k, v := range combo {
				snapshot[k] = v
			}
			emit(snapshot)
			return
		}
		key := keys[idx]
		for _, v := range lists[key] {
			combo[key] = v
			rec(idx + 1)
		}
	}
	rec(0)
}

func enumerateMASingle(alias string, variant int, config map[string]any) ([]Params, error) {
	periods, err := resolveRequired(config, "ma_range")
	if err != nil {
		return nil, err
	}
	types, err := resolveOptional(config, "ma_type", "SMA")
	if err != nil {
		return nil, err
	}
	var out []Params
	cartesian(map[string][]any{"period": periods, "ma_type": types}, []string{"period", "ma_type"}, func(c map[string]any) {
		out = append(out, Params{Kind: KindMA, Alias: alias, Variant: variant, Values: c})
	})
	return out, nil
}

func enumerateMADouble(alias string, variant int, config map[string]any) ([]Params, error) {
	shorts, err := resolveRequired(config, "short_range")
	if err != nil {
		return nil, err
	}
	longs, err := resolveRequired(config, "long_range")
	if err != nil {
		return nil, err
	}
	types, err := resolveOptional(config, "ma_type", "SMA")
	if err != nil {
		return nil, err
	}
	var out []Params
	cartesian(map[string][]any{"short": shorts, "long": longs, "ma_type": types},
		[]string{"short", "long", "ma_type"}, func(c map[string]any) {
			if toFloat(c["short"]) >= toFloat(c["long"]) {
				return // short must precede long; skip invalid combination
			}
			out = append(out, Params{Kind: KindMA, Alias: alias, Variant: variant, Values: c})
		})
	return out, nil
}

func enumerateMAConsecutive(alias string, variant int, config map[string]any) ([]Params, error) {
	ms, err := resolveRequired(config, "m_range")
	if err != nil {
		return nil, err
	}
	ns, err := resolveRequired(config, "n_range")
	if err != nil {
		return nil, err
	}
	types, err := resolveOptional(config, "ma_type", "SMA")
	if err != nil {
		return nil, err
	}
	var out []Params
	cartesian(map[string][]any{"m": ms, "n": ns, "ma_type": types},
		[]string{"m", "n", "ma_type"}, func(c map[string]any) {
			out = append(out, Params{Kind: KindMA, Alias: alias, Variant: variant, Values: c})
		})
	return out, nil
}

func enumerateBoll(alias string, variant int, config map[string]any) ([]Params, error) {
	periods, err := resolveRequired(config, "ma_range")
	if err != nil {
		return nil, err
	}
	mults, err := resolveRequired(config, "sd_multi")
	if err != nil {
		return nil, err
	}
	var out []Params
	cartesian(map[string][]any{"period": periods, "sd_multi": mults},
		[]string{"period", "sd_multi"}, func(c map[string]any) {
			out = append(out, Params{Kind: KindBOLL, Alias: alias, Variant: variant, Values: c})
		})
	return out, nil
}

func enumerateHL(alias string, variant int, config map[string]any) ([]Params, error) {
	ns, err := resolveRequired(config, "n_range")
	if err != nil {
		return nil, err
	}
	ms, err := resolveRequired(config, "m_range")
	if err != nil {
		return nil, err
	}
	var out []Params
	cartesian(map[string][]any{"n": ns, "m": ms}, []string{"n", "m"}, func(c map[string]any) {
		if toFloat(c["n"]) > toFloat(c["m"]) {
			return // n must not exceed m; skip invalid combination
		}
		out = append(out, Params{Kind: KindHL, Alias: alias, Variant: variant, Values: c})
	})
	if len(out) == 0 && len(ns) > 0 && len(ms) > 0 {
		return nil, engerrors.New(engerrors.KindInvalidConfig, "params", "enumerateHL",
			"no (n,m) combination satisfies n <= m")
	}
	return out, nil
}

func enumeratePercThreshold(alias string, variant int, config map[string]any) ([]Params, error) {
	windows, err := resolveRequired(config, "window_range")
	if err != nil {
		return nil, err
	}
	pcts, err := resolveRequired(config, "percentile_range")
	if err != nil {
		return nil, err
	}
	var out []Params
	cartesian(map[string][]any{"window": windows, "percentile": pcts},
		[]string{"window", "percentile"}, func(c map[string]any) {
			out = append(out, Params{Kind: KindPERC, Alias: alias, Variant: variant, Values: c})
		})
	return out, nil
}

func enumeratePercBand(alias string, variant int, config map[string]any) ([]Params, error) {
	windows, err := resolveRequired(config, "window_range")
	if err != nil {
		return nil, err
	}
	m1s, err := resolveRequired(config, "m1_range")
	if err != nil {
		return nil, err
	}
	m2s, err := resolveRequired(config, "m2_range")
	if err != nil {
		return nil, err
	}
	var out []Params
	cartesian(map[string][]any{"window": windows, "m1": m1s, "m2": m2s},
		[]string{"window", "m1", "m2"}, func(c map[string]any) {
			if toFloat(c["m1"]) >= toFloat(c["m2"]) {
				return // m1 must precede m2; skip invalid combination
			}
			out = append(out, Params{Kind: KindPERC, Alias: alias, Variant: variant, Values: c})
		})
	if len(out) == 0 && len(m1s) > 0 && len(m2s) > 0 {
		return nil, engerrors.New(engerrors.KindInvalidConfig, "params", "enumeratePercBand",
			"no (m1,m2) combination satisfies m1 < m2")
	}
	return out, nil
}

func enumerateValueThreshold(alias string, variant int, config map[string]any) ([]Params, error) {
	ns, err := resolveRequired(config, "n_range")
	if err != nil {
		return nil, err
	}
	ms, err := resolveRequired(config, "m_range")
	if err != nil {
		return nil, err
	}
	var out []Params
	cartesian(map[string][]any{"n": ns, "m": ms}, []string{"n", "m"}, func(c map[string]any) {
		out = append(out, Params{Kind: KindVALUE, Alias: alias, Variant: variant, Values: c})
	})
	return out, nil
}

func enumerateValueBand(alias string, variant int, config map[string]any) ([]Params, error) {
	m1s, err := resolveRequired(config, "m1_range")
	if err != nil {
		return nil, err
	}
	m2s, err := resolveRequired(config, "m2_range")
	if err != nil {
		return nil, err
	}
	var out []Params
	cartesian(map[string][]any{"m1": m1s, "m2": m2s}, []string{"m1", "m2"}, func(c map[string]any) {
		if toFloat(c["m1"]) >= toFloat(c["m2"]) {
			return
		}
		out = append(out, Params{Kind: KindVALUE, Alias: alias, Variant: variant, Values: c})
	})
	if len(out) == 0 && len(m1s) > 0 && len(m2s) > 0 {
		return nil, engerrors.New(engerrors.KindInvalidConfig, "params", "enumerateValueBand",
			"no (m1,m2) combination satisfies m1 < m2")
	}
	return out, nil
}

func enumerateNDayCycle(alias string, variant int, config map[string]any) ([]Params, error) {
	if variant != 1 && variant != 2 {
		return nil, invalidAlias(alias)
	}
	ns, err := resolveRequired(config, "n_range")
	if err != nil {
		return nil, err
	}
	var out []Params
	for _, n := range ns {
		out = append(out, Params{
			Kind: KindNDayCycle, Alias: alias, Variant: variant,
			Values: map[string]any{"n": n, "signal_type": variant},
		})
	}
	return out, nil
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}
