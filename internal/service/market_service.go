package service

import (
	"context"

	"github.com/agentfi/keeper/pkg/exchange"
	"github.com/agentfi/keeper/pkg/ta"
	"go.uber.org/zap"
)

// MarketService BNB大盘背景数据服务，
// 产出的市场环境会写入信号生成的提示词
type MarketService struct {
	logger *zap.Logger

	binanceClient *exchange.BinanceClient
}

// NewMarketService 创建市场数据服务
func NewMarketService(binanceClient *exchange.BinanceClient, logger *zap.Logger) *MarketService {
	return &MarketService{
		logger:        logger,
		binanceClient: binanceClient,
	}
}

// MarketContext BNB市场环境
type MarketContext struct {
	BNBPriceUSD float64 `json:"bnb_price_usd"`
	Change24h   float64 `json:"change_24h"` // 24小时涨跌幅（%）
	Trend       string  `json:"trend"`      // bullish / bearish / neutral
	RSI14       float64 `json:"rsi14"`
	ATRPct      float64 `json:"atr_pct"`    // ATR14占现价的百分比，波动率参考
	High24h     float64 `json:"high_24h"`
	Low24h      float64 `json:"low_24h"`
}

// CollectContext 采集BNB市场环境，失败时返回nil，提示词中省略该部分
func (s *MarketService) CollectContext(ctx context.Context) *MarketContext {
	klines, err := s.binanceClient.GetKlines(ctx, "BNBUSDT", "1h", 120)
	if err != nil {
		s.logger.Warn("failed to get BNB klines", zap.Error(err))
		return nil
	}
	if len(klines) < 50 {
		s.logger.Warn("not enough BNB klines", zap.Int("count", len(klines)))
		return nil
	}

	closes := make([]float64, len(klines))
	highs := make([]float64, len(klines))
	lows := make([]float64, len(klines))
	for i, k := range klines {
		closes[i] = k.Close
		highs[i] = k.High
		lows[i] = k.Low
	}

	price, err := s.binanceClient.GetCurrentPrice(ctx, "BNBUSDT")
	if err != nil {
		s.logger.Warn("failed to get BNB price", zap.Error(err))
		price = ta.Last(closes, 0)
	}

	ema20 := ta.EMA(closes, 20)
	ema50 := ta.EMA(closes, 50)
	rsi14 := ta.RSI(closes, 14)
	atr14 := ta.ATR(highs, lows, closes, 14)

	trend := "neutral"
	if ta.Last(ema20, 0) > ta.Last(ema50, 0) && ta.Last(rsi14, 0) > 50 {
		trend = "bullish"
	} else if ta.Last(ema20, 0) < ta.Last(ema50, 0) && ta.Last(rsi14, 0) < 50 {
		trend = "bearish"
	}

	change24h := 0.0
	if base := ta.Last(closes, 24); base > 0 {
		change24h = (price - base) / base * 100
	}

	atrPct := 0.0
	if price > 0 {
		atrPct = ta.Last(atr14, 0) / price * 100
	}

	return &MarketContext{
		BNBPriceUSD: price,
		Change24h:   change24h,
		Trend:       trend,
		RSI14:       ta.Last(rsi14, 0),
		ATRPct:      atrPct,
		High24h:     ta.Highest(highs, 24),
		Low24h:      ta.Lowest(lows, 24),
	}
}
