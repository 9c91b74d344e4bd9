// Package params implements the IndicatorParams container (C1) and the
// range-spec parameter enumerator (C6) from spec.md §4.1, grounded on the
// teacher's IndicatorParams_backtester.py dynamic param bag, reworked as a
// typed Go struct per the SPEC_FULL.md design notes.
package params

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	engerrors "github.com/lo2cin4bt/backtest-engine/internal/errors"
)

// Kind identifies an indicator family.
type Kind string

const (
	KindMA        Kind = "MA"
	KindBOLL      Kind = "BOLL"
	KindHL        Kind = "HL"
	KindPERC      Kind = "PERC"
	KindVALUE     Kind = "VALUE"
	KindNDayCycle Kind = "NDayCycle"
)

// MAType is the moving-average smoothing method.
type MAType string

const (
	MASimple      MAType = "SMA"
	MAExponential MAType = "EMA"
	MAWeighted    MAType = "WMA"
)

// Params is the immutable, tagged parameter record described by spec.md
// §3 as IndicatorParams: an indicator-type tag, a variant/strategy index
// (the numeric suffix of the alias, e.g. 3 for "MA3"), and a named
// parameter map. Two Params are equal iff Kind, Variant, and Values are
// equal; construction is the only mutation point.
type Params struct {
	Kind    Kind
	Alias   string // e.g. "MA3"
	Variant int    // the alias's numeric suffix: selects direction/shape
	Values  map[string]any
}

// Get returns a named parameter value, or defaultVal if absent.
func (p Params) Get(name string, defaultVal any) any {
	if v, ok := p.Values[name]; ok {
		return v
	}
	return defaultVal
}

func (p Params) GetFloat(name string, defaultVal float64) float64 {
	v := p.Get(name, defaultVal)
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return defaultVal
}

func (p Params) GetInt(name string, defaultVal int) int {
	v := p.Get(name, defaultVal)
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return defaultVal
}

func (p Params) GetString(name, defaultVal string) string {
	if s, ok := p.Values[name].(string); ok {
		return s
	}
	return defaultVal
}

// Equal reports structural equality as required by spec.md §3.
func (p Params) Equal(other Params) bool {
	return p.Hash() == other.Hash()
}

// Hash derives a stable identifier from canonical (sorted-key) JSON of the
// tag and param map, matching the teacher-adjacent original's
// get_param_hash (md5 of sorted-key JSON, truncated to 16 hex chars).
func (p Params) Hash() string {
	keys := make([]string, 0, len(p.Values))
	for k := range p.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make(map[string]any, len(p.Values)+2)
	ordered["indicator_type"] = string(p.Kind)
	ordered["variant"] = p.Variant
	for _, k := range keys {
		ordered[k] = p.Values[k]
	}
	blob, _ := json.Marshal(ordered)
	sum := md5.Sum(blob)
	return hex.EncodeToString(sum[:])[:16]
}

// ParameterSetID builds the human-readable identifier from spec.md §6:
// each indicator followed by its key parameters in parens, joined with
// "+"; the exit side (if present) is appended after "_".
func ParameterSetID(entry, exit []Params) string {
	var entryParts, exitParts []string
	for _, p := range entry {
		entryParts = append(entryParts, formatParamsID(p))
	}
	for _, p := range exit {
		exitParts = append(exitParts, formatParamsID(p))
	}
	id := strings.Join(entryParts, "+")
	if len(exitParts) > 0 {
		id += "_" + strings.Join(exitParts, "+")
	}
	return id
}

func formatParamsID(p Params) string {
	keys := make([]string, 0, len(p.Values))
	for k := range p.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := make([]string, 0, len(keys))
	for _, k := range keys {
		vals = append(vals, fmt.Sprint(p.Values[k]))
	}
	return fmt.Sprintf("%s(%s)", p.Alias, strings.Join(vals, ","))
}

// IsVariable reports whether a resolved value list counts as variable
// (more than one distinct value), per spec.md §4.1.
func IsVariable(values []any) bool {
	if len(values) < 2 {
		return false
	}
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[fmt.Sprint(v)] = struct{}{}
	}
	return len(seen) > 1
}

// ParseRangeSpec resolves a range-spec string into a concrete ordered
// value list, per spec.md §4.1's grammar:
//   - "start:end:step" -> inclusive arithmetic sequence (int or float)
//   - "v1,v2,...,vk"    -> explicit comma list, whitespace tolerated
//   - bare scalar       -> singleton list (a bare int == "n:n:1")
func ParseRangeSpec(spec string) ([]any, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, engerrors.New(engerrors.KindInvalidConfig, "params", "ParseRangeSpec", "empty range spec")
	}

	if strings.Contains(spec, ":") {
		return parseArithmeticRange(spec)
	}
	if strings.Contains(spec, ",") {
		parts := strings.Split(spec, ",")
		out := make([]any, 0, len(parts))
		for _, part := range parts {
			v, err := parseScalar(strings.TrimSpace(part))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}

	v, err := parseScalar(spec)
	if err != nil {
		return nil, err
	}
	return []any{v}, nil
}

func parseArithmeticRange(spec string) ([]any, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return nil, engerrors.New(engerrors.KindInvalidConfig, "params", "ParseRangeSpec",
			fmt.Sprintf("range spec %q must have exactly 3 colon-separated parts", spec))
	}
	start, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, engerrors.Wrap(err, engerrors.KindInvalidConfig, "params", "ParseRangeSpec")
	}
	end, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, engerrors.Wrap(err, engerrors.KindInvalidConfig, "params", "ParseRangeSpec")
	}
	step, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return nil, engerrors.Wrap(err, engerrors.KindInvalidConfig, "params", "ParseRangeSpec")
	}
	if step == 0 {
		return nil, engerrors.New(engerrors.KindInvalidConfig, "params", "ParseRangeSpec", "range step must not be 0")
	}
	if (end-start)*step < 0 {
		return nil, engerrors.New(engerrors.KindInvalidConfig, "params", "ParseRangeSpec",
			"range step direction inconsistent with start/end")
	}

	isInt := isIntLiteral(parts[0]) && isIntLiteral(parts[1]) && isIntLiteral(parts[2])

	var out []any
	const maxPoints = 100000
	if step > 0 {
		for v := start; v <= end+1e-9; v += step {
			out = append(out, quantize(v, isInt))
			if len(out) > maxPoints {
				break
			}
		}
	} else {
		for v := start; v >= end-1e-9; v += step {
			out = append(out, quantize(v, isInt))
			if len(out) > maxPoints {
				break
			}
		}
	}
	return out, nil
}

func quantize(v float64, isInt bool) any {
	if isInt {
		return int(math.Round(v))
	}
	return v
}

func isIntLiteral(s string) bool {
	s = strings.TrimSpace(s)
	_, err := strconv.Atoi(s)
	return err == nil
}

func parseScalar(s string) (any, error) {
	if i, err := strconv.Atoi(s); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	if s == "" {
		return nil, engerrors.New(engerrors.KindInvalidConfig, "params", "parseScalar", "empty scalar")
	}
	return s, nil
}
