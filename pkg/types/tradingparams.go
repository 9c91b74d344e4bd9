package types

// TradingParams is the resolved (non-JSON) trading cost/timing model
// consumed by the simulator, built from a config.TradingParamsDoc.
type TradingParams struct {
	TransactionCost float64
	Slippage        float64
	TradeDelay      int
	TradePrice      string // "open" or "close"
}
