// Package signal implements the C3 signal combiner from spec.md §4.3:
// AND-combining a strategy's entry/exit generator outputs into a single
// entry and exit sequence, with the special NDayCycle derivation rule.
// Grounded on the teacher's internal/strategy composite-signal pattern
// (strategy/composite.go), generalized from boolean buy/sell flags to
// signed {-1,0,+1} sequences.
package signal

import (
	engerrors "github.com/lo2cin4bt/backtest-engine/internal/errors"
	"github.com/lo2cin4bt/backtest-engine/internal/params"
)

// Combine ANDs a list of entry signal sequences and a list of exit
// signal sequences into a single (entry, exit) pair, per spec.md §4.3.
// exitParams must align 1:1 with the exit sequences so the NDayCycle
// special case can find its (N, variant).
func Combine(entrySignals [][]float64, exitSignals [][]float64, exitParams []params.Params) ([]float64, []float64, error) {
	if len(entrySignals) == 0 {
		return nil, nil, engerrors.New(engerrors.KindInvalidConfig, "signal", "Combine", "no entry signal sequences supplied")
	}
	n := len(entrySignals[0])
	entry := andCombine(entrySignals, n)

	if ndc, _, ok := soleNDayCycle(exitSignals, exitParams); ok {
		return entry, deriveNDayCycleExit(entry, ndc, n), nil
	}

	if len(exitSignals) == 0 {
		return entry, make([]float64, n), nil
	}
	return entry, andCombine(exitSignals, n), nil
}

// andCombine applies the §4.3 AND rule: entry[t]=+1 iff every sequence
// agrees +1 at t, -1 iff every sequence agrees -1, else 0.
func andCombine(signals [][]float64, n int) []float64 {
	out := make([]float64, n)
	for t := 0; t < n; t++ {
		allPos, allNeg := true, true
		for _, s := range signals {
			if s[t] != 1 {
				allPos = false
			}
			if s[t] != -1 {
				allNeg = false
			}
		}
		switch {
		case allPos:
			out[t] = 1
		case allNeg:
			out[t] = -1
		}
	}
	return out
}

// soleNDayCycle reports whether the exit list contains exactly one
// NDayCycle param set, returning its (N, variant) when so.
func soleNDayCycle(exitSignals [][]float64, exitParams []params.Params) (ndcParams params.Params, n int, ok bool) {
	count := 0
	idx := -1
	for i, p := range exitParams {
		if p.Kind == params.KindNDayCycle {
			count++
			idx = i
		}
	}
	if count != 1 || len(exitSignals) == 0 {
		return params.Params{}, 0, false
	}
	p := exitParams[idx]
	return p, p.GetInt("n", 0), true
}

// deriveNDayCycleExit overrides the AND rule: for every bar where the
// combined entry fires, it schedules an exit N bars later, signed by
// the NDayCycle variant (1 closes long with -1, 2 closes short with +1),
// per spec.md §4.3 and the original generate_exit_signal_from_entry.
func deriveNDayCycleExit(entry []float64, ndc params.Params, n int) []float64 {
	exitValue := -1.0
	if ndc.Variant == 2 {
		exitValue = 1.0
	}
	window := ndc.GetInt("n", 0)
	out := make([]float64, n)
	for t := 0; t < n; t++ {
		if entry[t] == 0 {
			continue
		}
		target := t + window
		if target < n {
			out[target] = exitValue
		}
	}
	return out
}
