package ta

import (
	"github.com/markcheno/go-talib"
)

// EMA 指数移动平均线
func EMA(close []float64, period int) []float64 {
	return talib.Ema(close, period)
}

// RSI 相对强弱指标
func RSI(close []float64, period int) []float64 {
	return talib.Rsi(close, period)
}

// ATR 平均真实波幅
func ATR(high, low, close []float64, period int) []float64 {
	return talib.Atr(high, low, close, period)
}
