package export

import (
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/lo2cin4bt/backtest-engine/pkg/types"
)

// parquetTradeRow is the columnar schema parquet-go derives via struct
// tags, following tradeHeaders but flattened to parquet-friendly types
// (no time.Time; the bar timestamp becomes an RFC3339 string). The
// OpenTime and CloseTime columns are not written.
type parquetTradeRow struct {
	BacktestID      string  `parquet:"name=backtest_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	ParameterSetID  string  `parquet:"name=parameter_set_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Time            string  `parquet:"name=time, type=BYTE_ARRAY, convertedtype=UTF8"`
	Open            float64 `parquet:"name=open, type=DOUBLE"`
	High            float64 `parquet:"name=high, type=DOUBLE"`
	Low             float64 `parquet:"name=low, type=DOUBLE"`
	Close           float64 `parquet:"name=close, type=DOUBLE"`
	PositionType    string  `parquet:"name=position_type, type=BYTE_ARRAY, convertedtype=UTF8"`
	PositionSize    float64 `parquet:"name=position_size, type=DOUBLE"`
	Return          float64 `parquet:"name=return_, type=DOUBLE"`
	TradeAction     int32   `parquet:"name=trade_action, type=INT32"`
	TradeGroupID    string  `parquet:"name=trade_group_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	OpenPrice       float64 `parquet:"name=open_price, type=DOUBLE"`
	ClosePrice      float64 `parquet:"name=close_price, type=DOUBLE"`
	HoldingPeriod   int32   `parquet:"name=holding_period, type=INT32"`
	TradeReturn     float64 `parquet:"name=trade_return, type=DOUBLE"`
	EquityValue     float64 `parquet:"name=equity_value, type=DOUBLE"`
	TransactionCost float64 `parquet:"name=transaction_cost, type=DOUBLE"`
	SlippageCost    float64 `parquet:"name=slippage_cost, type=DOUBLE"`
	PredictorValue  float64 `parquet:"name=predictor_value, type=DOUBLE"`
	EntrySignal     float64 `parquet:"name=entry_signal, type=DOUBLE"`
	ExitSignal      float64 `parquet:"name=exit_signal, type=DOUBLE"`
}

// ParquetWriter writes BacktestResult trade tables in the columnar format
// spec.md §6 names as the WFA bundle's logical export format.
type ParquetWriter struct {
	RowGroupSize int64
	Compression  parquet.CompressionCodec
}

func NewParquetWriter() *ParquetWriter {
	return &ParquetWriter{RowGroupSize: 128 * 1024, Compression: parquet.CompressionCodec_SNAPPY}
}

// WriteTrades writes result.Records to a Parquet file at path.
func (pw *ParquetWriter) WriteTrades(result types.BacktestResult, path string) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("open parquet file %s: %w", path, err)
	}
	defer fw.Close()

	pqWriter, err := writer.NewParquetWriter(fw, new(parquetTradeRow), 4)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	pqWriter.RowGroupSize = pw.RowGroupSize
	pqWriter.CompressionType = pw.Compression

	for _, r := range result.Records {
		row := parquetTradeRow{
			BacktestID:      result.BacktestID,
			ParameterSetID:  result.ParameterSetID,
			Time:            formatTime(r.Time),
			Open:            r.Open,
			High:            r.High,
			Low:             r.Low,
			Close:           r.Close,
			PositionType:    string(r.PositionType),
			PositionSize:    r.PositionSize,
			Return:          r.Return,
			TradeAction:     int32(r.TradeAction),
			TradeGroupID:    r.TradeGroupID,
			OpenPrice:       r.OpenPrice,
			ClosePrice:      r.ClosePrice,
			HoldingPeriod:   int32(r.HoldingPeriod),
			TradeReturn:     r.TradeReturn,
			EquityValue:     r.EquityValue,
			TransactionCost: r.TransactionCost,
			SlippageCost:    r.SlippageCost,
			PredictorValue:  r.PredictorValue,
			EntrySignal:     r.EntrySignal,
			ExitSignal:      r.ExitSignal,
		}
		if err := pqWriter.Write(row); err != nil {
			return fmt.Errorf("write parquet row: %w", err)
		}
	}

	if err := pqWriter.WriteStop(); err != nil {
		return fmt.Errorf("finalize parquet file: %w", err)
	}
	return nil
}
