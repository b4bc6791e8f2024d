package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/agentfi/keeper/internal/models"
)

// ValidationResult 信号校验结果
type ValidationResult struct {
	Valid       bool    `json:"valid"`
	Reason      string  `json:"reason"`
	TradeAmount float64 `json:"trade_amount,omitempty"` // 校验通过时的实际交易金额（BNB）
}

func invalid(reason string) ValidationResult {
	return ValidationResult{Valid: false, Reason: reason}
}

// ValidateSignal 信号校验，平台风控的核心函数。纯函数，无任何I/O，
// 按固定顺序检查，第一条不通过的规则即为拒绝原因。
// 校验过程中可能将signal的代币地址/符号规范化为持仓中的记录值
func ValidateSignal(signal *TradeSignal, cfg *models.AgentConfig,
	positions []models.TrackedPosition, blacklist *Blacklist, now time.Time) ValidationResult {

	// 1. 无信号或观望
	if signal == nil {
		return invalid("本周期无交易信号")
	}
	if signal.Action == ActionHold {
		reason := signal.Reasoning
		if reason == "" {
			reason = "观望"
		}
		return invalid(reason)
	}

	// 2. 买入必须带代币地址
	if signal.Action == ActionBuy && signal.TokenAddress == "" {
		return invalid("买入信号缺少代币地址")
	}

	// 3. 卖出必须是当前持仓的代币，按地址或符号不区分大小写匹配，
	//    命中后将信号中的地址和符号规范化为持仓记录的值
	if signal.Action == ActionSell {
		matched := matchPosition(signal, positions)
		if matched == nil {
			return invalid(fmt.Sprintf("cannot sell %s: 当前未持有该代币", signal.Token))
		}
		signal.TokenAddress = matched.TokenAddress
		signal.Token = matched.Symbol
	}

	// 4. 黑名单二次检查
	if blacklist != nil && blacklist.Contains(signal.TokenAddress, signal.Token) {
		return invalid("禁止交易平台代币和WBNB")
	}

	// 5. 置信度门槛
	threshold := strategyThreshold(cfg.Strategy)
	if confidenceValue(signal.Confidence) < threshold {
		return invalid(fmt.Sprintf("置信度%s低于%s策略要求", signal.Confidence, cfg.Strategy))
	}

	// 6. 冷却时间
	if remaining := cfg.CooldownRemaining(now); remaining > 0 {
		minutes := int(math.Ceil(remaining.Minutes()))
		return invalid(fmt.Sprintf("冷却中，还需等待%d分钟", minutes))
	}

	// 7. 每日额度
	dailyRemaining := cfg.DailyRemaining()
	if dailyRemaining <= 0 {
		return invalid("Daily cap reached")
	}

	// 8. 交易金额：信号金额、单笔上限、当日剩余额度三者取最小
	tradeAmount := math.Min(signal.AmountBNB, math.Min(cfg.MaxTradeBNB, dailyRemaining))
	if tradeAmount <= 0 {
		return invalid("交易金额无效")
	}

	// 9. 风险评分门槛：超过8分只有aggressive策略可以执行
	if signal.RiskScore > 8 && cfg.Strategy != models.StrategyAggressive {
		return invalid(fmt.Sprintf("风险评分%d过高，仅aggressive策略可执行", signal.RiskScore))
	}

	// 10. 通过
	return ValidationResult{Valid: true, Reason: "ok", TradeAmount: tradeAmount}
}

// matchPosition 按地址或符号匹配持仓
func matchPosition(signal *TradeSignal, positions []models.TrackedPosition) *models.TrackedPosition {
	for i := range positions {
		pos := &positions[i]
		if signal.TokenAddress != "" && strings.EqualFold(signal.TokenAddress, pos.TokenAddress) {
			return pos
		}
		if signal.Token != "" && strings.EqualFold(signal.Token, pos.Symbol) {
			return pos
		}
	}
	return nil
}
