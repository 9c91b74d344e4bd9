// Package metrics implements the C5 metrics calculator from spec.md §4.6:
// return/risk statistics and trade statistics over one trade-record
// table, plus a parallel buy-and-hold baseline. Grounded on the
// teacher's internal/backtest/metrics.go (Sharpe/Sortino/MaxDrawdown
// helpers), reworked against pkg/types.TradeRecord and cross-checked
// against the original Python's calmar ratio (see DESIGN.md).
package metrics

import "math"

// Result holds every metric named in spec.md §4.6.
type Result struct {
	TotalReturn   float64
	CAGR          float64
	Std           float64
	AnnualStd     float64
	DownsideRisk  float64
	MaxDrawdown   float64
	Sharpe        float64
	Sortino       float64
	Calmar        float64

	BAHTotalReturn  float64
	BAHCAGR         float64
	BAHMaxDrawdown  float64

	TradeCount           int
	WinRate              float64
	ProfitFactor         float64
	MaxConsecutiveLosses int
	ExposureTime         float64
}

// Row is the minimal per-bar input the calculator needs, decoupled from
// types.TradeRecord so it can be driven directly in tests.
type Row struct {
	Time           float64 // days since epoch, or any monotonic day-scaled unit
	Close          float64
	Return         float64
	EquityValue    float64 // equity*100
	PositionSize   float64
	TradeAction    int
	HasTradeReturn bool
	TradeReturn    float64
}

// Compute derives every §4.6 metric from a trade-record table, an
// annualisation factor u (bars/year), and a risk-free rate r_f.
func Compute(rows []Row, u, rf float64) Result {
	var res Result
	n := len(rows)
	if n == 0 {
		return nanResult()
	}

	equityFirst := rows[0].EquityValue
	equityLast := rows[n-1].EquityValue
	if equityFirst == 0 {
		return nanResult()
	}
	res.TotalReturn = equityLast/equityFirst - 1

	years := (rows[n-1].Time - rows[0].Time) / u
	if years < 1e-6 {
		years = 1e-6
	}
	res.CAGR = math.Pow(equityLast/equityFirst, 1/years) - 1

	returns := make([]float64, n)
	for i, r := range rows {
		returns[i] = r.Return
	}
	res.Std = sampleStd(returns)
	res.AnnualStd = res.Std * math.Sqrt(u)
	res.DownsideRisk = downsideRisk(returns, 0)
	res.MaxDrawdown = maxDrawdown(equitySeries(rows))

	meanRet := mean(returns)
	perBarRF := rf / u
	if res.Std > 0 {
		res.Sharpe = (meanRet - perBarRF) / res.Std * math.Sqrt(u)
	} else {
		res.Sharpe = math.NaN()
	}
	if res.DownsideRisk > 0 {
		res.Sortino = (meanRet - perBarRF) / res.DownsideRisk * math.Sqrt(u)
	} else {
		res.Sortino = math.NaN()
	}
	if res.MaxDrawdown != 0 {
		res.Calmar = (res.CAGR - rf) / math.Abs(res.MaxDrawdown)
	} else {
		res.Calmar = math.NaN()
	}

	bah := buyAndHold(rows)
	if bah[0] != 0 {
		res.BAHTotalReturn = bah[n-1]/bah[0] - 1
		res.BAHCAGR = math.Pow(bah[n-1]/bah[0], 1/years) - 1
	} else {
		res.BAHTotalReturn, res.BAHCAGR = math.NaN(), math.NaN()
	}
	res.BAHMaxDrawdown = maxDrawdown(bah)

	res.TradeCount, res.WinRate, res.ProfitFactor, res.MaxConsecutiveLosses, res.ExposureTime = tradeStats(rows)
	return res
}

func nanResult() Result {
	nan := math.NaN()
	return Result{
		TotalReturn: nan, CAGR: nan, Std: nan, AnnualStd: nan, DownsideRisk: nan,
		MaxDrawdown: nan, Sharpe: nan, Sortino: nan, Calmar: nan,
		BAHTotalReturn: nan, BAHCAGR: nan, BAHMaxDrawdown: nan,
		WinRate: nan, ProfitFactor: nan,
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStd computes ddof=1 sample standard deviation; NaN for n<2.
func sampleStd(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return math.NaN()
	}
	m := mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// downsideRisk computes sqrt(mean(min(r-tau,0)^2)) over all bars.
func downsideRisk(returns []float64, tau float64) float64 {
	if len(returns) == 0 {
		return math.NaN()
	}
	sum := 0.0
	count := 0
	for _, r := range returns {
		d := r - tau
		if d < 0 {
			sum += d * d
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(len(returns)))
}

func equitySeries(rows []Row) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.EquityValue
	}
	return out
}

func buyAndHold(rows []Row) []float64 {
	out := make([]float64, len(rows))
	if len(rows) == 0 {
		return out
	}
	close0 := rows[0].Close
	for i, r := range rows {
		if close0 == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = 100 * r.Close / close0
	}
	return out
}

// maxDrawdown computes min((equity-runningMax)/runningMax).
func maxDrawdown(equity []float64) float64 {
	if len(equity) == 0 {
		return math.NaN()
	}
	runningMax := equity[0]
	worst := 0.0
	for _, v := range equity {
		if v > runningMax {
			runningMax = v
		}
		if runningMax == 0 {
			continue
		}
		dd := (v - runningMax) / runningMax
		if dd < worst {
			worst = dd
		}
	}
	return worst
}

func tradeStats(rows []Row) (count int, winRate, profitFactor float64, maxConsecLosses int, exposure float64) {
	var wins, losses int
	var posSum, negSum float64
	var consec, maxConsec int
	var inPosition int

	for _, r := range rows {
		if r.TradeAction == 1 {
			count++
		}
		if r.PositionSize != 0 {
			inPosition++
		}
		if r.TradeAction == 4 && r.HasTradeReturn {
			if r.TradeReturn > 0 {
				wins++
				posSum += r.TradeReturn
				consec = 0
			} else if r.TradeReturn < 0 {
				losses++
				negSum += -r.TradeReturn
				consec++
				if consec > maxConsec {
					maxConsec = consec
				}
			}
		}
	}

	if wins+losses > 0 {
		winRate = float64(wins) / float64(wins+losses)
	} else {
		winRate = math.NaN()
	}
	if negSum > 0 {
		profitFactor = posSum / negSum
	} else {
		profitFactor = math.NaN()
	}
	if len(rows) > 0 {
		exposure = float64(inPosition) / float64(len(rows))
	}
	return count, winRate, profitFactor, maxConsec, exposure
}
