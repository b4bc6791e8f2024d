package service

import (
	"strings"
	"testing"
	"time"

	"github.com/agentfi/keeper/internal/config"
	"github.com/agentfi/keeper/internal/models"
)

const (
	testPlatformToken = "0x1111111111111111111111111111111111111111"
	testWBNB          = "0x2222222222222222222222222222222222222222"
	testToken         = "0x0000000000000000000000000000000000000abc"
)

func testBlacklist() *Blacklist {
	return NewBlacklist(&config.Config{
		Chain: config.ChainConf{
			PlatformToken: testPlatformToken,
			WBNBAddress:   testWBNB,
		},
	})
}

func balancedConfig() *models.AgentConfig {
	return &models.AgentConfig{
		AgentID:      1,
		Enabled:      true,
		Strategy:     models.StrategyBalanced,
		MaxTradeBNB:  0.05,
		DailyCapBNB:  0.2,
		DailySpent:   0,
		CooldownMins: 30,
		LastTradeAt:  0,
	}
}

func buySignal() *TradeSignal {
	return &TradeSignal{
		Action:       ActionBuy,
		Token:        "ABC",
		TokenAddress: testToken,
		Confidence:   ConfidenceHigh,
		AmountBNB:    0.1,
		RiskScore:    3,
	}
}

// TestValidateSignal_BuyClampedByMaxTrade 买入金额被单笔上限收敛
func TestValidateSignal_BuyClampedByMaxTrade(t *testing.T) {
	result := ValidateSignal(buySignal(), balancedConfig(), nil, testBlacklist(), time.Now())

	if !result.Valid {
		t.Fatalf("expected valid, got invalid: %s", result.Reason)
	}
	if result.TradeAmount != 0.05 {
		t.Errorf("expected trade amount 0.05, got %v", result.TradeAmount)
	}
}

// TestValidateSignal_DailyCapExhausted 每日额度耗尽
func TestValidateSignal_DailyCapExhausted(t *testing.T) {
	cfg := balancedConfig()
	cfg.DailySpent = 0.2

	result := ValidateSignal(buySignal(), cfg, nil, testBlacklist(), time.Now())

	if result.Valid {
		t.Fatal("expected invalid when daily cap exhausted")
	}
	if result.Reason != "Daily cap reached" {
		t.Errorf("expected reason 'Daily cap reached', got %q", result.Reason)
	}
}

// TestValidateSignal_SellNotHeld 卖出未持有的代币
func TestValidateSignal_SellNotHeld(t *testing.T) {
	signal := buySignal()
	signal.Action = ActionSell

	result := ValidateSignal(signal, balancedConfig(), nil, testBlacklist(), time.Now())

	if result.Valid {
		t.Fatal("expected invalid when selling a token not held")
	}
	if !strings.Contains(result.Reason, "cannot sell") {
		t.Errorf("expected reason mentioning 'cannot sell', got %q", result.Reason)
	}
}

// TestValidateSignal_SellCanonicalizesToPosition 卖出信号按符号匹配持仓并规范化地址
func TestValidateSignal_SellCanonicalizesToPosition(t *testing.T) {
	positions := []models.TrackedPosition{
		{AgentID: 1, TokenAddress: testToken, Symbol: "ABC"},
	}
	signal := &TradeSignal{
		Action:     ActionSell,
		Token:      "abc", // 模型返回的符号大小写与持仓不同
		Confidence: ConfidenceHigh,
		AmountBNB:  0.02,
		RiskScore:  3,
	}

	result := ValidateSignal(signal, balancedConfig(), positions, testBlacklist(), time.Now())

	if !result.Valid {
		t.Fatalf("expected valid, got invalid: %s", result.Reason)
	}
	if signal.TokenAddress != testToken {
		t.Errorf("expected canonicalized address %s, got %s", testToken, signal.TokenAddress)
	}
	if signal.Token != "ABC" {
		t.Errorf("expected canonicalized symbol ABC, got %s", signal.Token)
	}
}

func TestValidateSignal_NilAndHold(t *testing.T) {
	if result := ValidateSignal(nil, balancedConfig(), nil, testBlacklist(), time.Now()); result.Valid {
		t.Error("nil signal should be invalid")
	}

	hold := HoldSignal("今天行情不好")
	result := ValidateSignal(hold, balancedConfig(), nil, testBlacklist(), time.Now())
	if result.Valid {
		t.Error("hold signal should be invalid")
	}
	if result.Reason != "今天行情不好" {
		t.Errorf("expected hold reasoning as reason, got %q", result.Reason)
	}
}

func TestValidateSignal_BuyRequiresAddress(t *testing.T) {
	signal := buySignal()
	signal.TokenAddress = ""

	if result := ValidateSignal(signal, balancedConfig(), nil, testBlacklist(), time.Now()); result.Valid {
		t.Error("buy without token address should be invalid")
	}
}

func TestValidateSignal_Blacklist(t *testing.T) {
	tests := []struct {
		name    string
		address string
		symbol  string
	}{
		{"platform token by address", testPlatformToken, "XYZ"},
		{"platform token uppercase address", strings.ToUpper(testPlatformToken), "XYZ"},
		{"wbnb by address", testWBNB, "XYZ"},
		{"platform token by symbol", testToken, "AFI"},
		{"wbnb by symbol", testToken, "wbnb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signal := buySignal()
			signal.TokenAddress = tt.address
			signal.Token = tt.symbol

			if result := ValidateSignal(signal, balancedConfig(), nil, testBlacklist(), time.Now()); result.Valid {
				t.Errorf("blacklisted token %s/%s should be invalid", tt.address, tt.symbol)
			}
		})
	}
}

func TestValidateSignal_ConfidenceThreshold(t *testing.T) {
	tests := []struct {
		strategy   string
		confidence string
		wantValid  bool
	}{
		{models.StrategyConservative, ConfidenceHigh, true},
		{models.StrategyConservative, ConfidenceMedium, false},
		{models.StrategyConservative, ConfidenceLow, false},
		{models.StrategyBalanced, ConfidenceHigh, true},
		{models.StrategyBalanced, ConfidenceMedium, true},
		{models.StrategyBalanced, ConfidenceLow, false},
		{models.StrategyAggressive, ConfidenceLow, true},
	}

	for _, tt := range tests {
		t.Run(tt.strategy+"_"+tt.confidence, func(t *testing.T) {
			cfg := balancedConfig()
			cfg.Strategy = tt.strategy
			signal := buySignal()
			signal.Confidence = tt.confidence

			result := ValidateSignal(signal, cfg, nil, testBlacklist(), time.Now())
			if result.Valid != tt.wantValid {
				t.Errorf("strategy=%s confidence=%s: got valid=%v want %v (%s)",
					tt.strategy, tt.confidence, result.Valid, tt.wantValid, result.Reason)
			}
		})
	}
}

func TestValidateSignal_Cooldown(t *testing.T) {
	now := time.Now()

	// 刚交易过，冷却未结束，拒绝原因包含剩余分钟数
	cfg := balancedConfig()
	cfg.LastTradeAt = now.UnixMilli()

	result := ValidateSignal(buySignal(), cfg, nil, testBlacklist(), now)
	if result.Valid {
		t.Fatal("expected invalid during cooldown")
	}
	if !strings.Contains(result.Reason, "30") {
		t.Errorf("expected remaining minutes in reason, got %q", result.Reason)
	}

	// 冷却刚好过期
	cfg.LastTradeAt = now.Add(-30*time.Minute - time.Second).UnixMilli()
	result = ValidateSignal(buySignal(), cfg, nil, testBlacklist(), now)
	if !result.Valid {
		t.Errorf("expected valid after cooldown expired, got %q", result.Reason)
	}
}

// TestValidateSignal_TradeAmountBounds 交易金额永远不超过三个上界中的任何一个
func TestValidateSignal_TradeAmountBounds(t *testing.T) {
	tests := []struct {
		amountBNB  float64
		maxTrade   float64
		dailyCap   float64
		dailySpent float64
		want       float64
	}{
		{0.1, 0.05, 0.2, 0, 0.05},
		{0.01, 0.05, 0.2, 0, 0.01},
		{0.1, 0.5, 0.2, 0.15, 0.05},
		{1, 1, 1, 0.999, 0.001},
	}

	for _, tt := range tests {
		cfg := balancedConfig()
		cfg.MaxTradeBNB = tt.maxTrade
		cfg.DailyCapBNB = tt.dailyCap
		cfg.DailySpent = tt.dailySpent
		signal := buySignal()
		signal.AmountBNB = tt.amountBNB

		result := ValidateSignal(signal, cfg, nil, testBlacklist(), time.Now())
		if !result.Valid {
			t.Errorf("expected valid: %+v (%s)", tt, result.Reason)
			continue
		}
		diff := result.TradeAmount - tt.want
		if diff < -1e-9 || diff > 1e-9 {
			t.Errorf("amount=%v max=%v remaining=%v: got %v want %v",
				tt.amountBNB, tt.maxTrade, tt.dailyCap-tt.dailySpent, result.TradeAmount, tt.want)
		}
	}
}

func TestValidateSignal_RiskGate(t *testing.T) {
	signal := buySignal()
	signal.RiskScore = 9

	// 非aggressive策略拒绝高风险信号
	if result := ValidateSignal(signal, balancedConfig(), nil, testBlacklist(), time.Now()); result.Valid {
		t.Error("risk score 9 should be invalid for balanced strategy")
	}

	cfg := balancedConfig()
	cfg.Strategy = models.StrategyAggressive
	signal = buySignal()
	signal.RiskScore = 9
	if result := ValidateSignal(signal, cfg, nil, testBlacklist(), time.Now()); !result.Valid {
		t.Errorf("risk score 9 should be valid for aggressive strategy, got %q", result.Reason)
	}

	// 8分是任何策略都允许的边界
	signal = buySignal()
	signal.RiskScore = 8
	if result := ValidateSignal(signal, balancedConfig(), nil, testBlacklist(), time.Now()); !result.Valid {
		t.Errorf("risk score 8 should be valid for balanced strategy, got %q", result.Reason)
	}
}

func TestSellFraction(t *testing.T) {
	tests := []struct {
		tradeAmount float64
		maxTrade    float64
		maxFraction float64
		want        float64
	}{
		{0.05, 0.1, 0.5, 0.5},  // 隐含比例恰好等于上限
		{0.02, 0.1, 0.5, 0.2},  // 隐含比例更小
		{0.1, 0.1, 0.5, 0.5},   // 隐含比例1被上限压住
		{0.1, 0.1, 0, 0.5},     // 未配置上限时默认50%
		{0.1, 0.1, 1.5, 0.5},   // 非法上限回落到默认值
		{0.03, 0.1, 0.25, 0.25}, // 自定义更低的上限
	}

	for _, tt := range tests {
		got := sellFraction(tt.tradeAmount, tt.maxTrade, tt.maxFraction)
		diff := got - tt.want
		if diff < -1e-9 || diff > 1e-9 {
			t.Errorf("sellFraction(%v, %v, %v) = %v, want %v",
				tt.tradeAmount, tt.maxTrade, tt.maxFraction, got, tt.want)
		}
		if got > 0.5 && tt.maxFraction <= 0.5 {
			t.Errorf("sell fraction %v exceeds 50%% ceiling", got)
		}
	}
}
