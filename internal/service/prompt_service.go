package service

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/agentfi/keeper/internal/config"
	"github.com/agentfi/keeper/internal/models"
	"github.com/valyala/fasttemplate"
)

// PromptService 信号生成提示词构建服务
type PromptService struct {
	config *config.Config
}

//go:embed templates/system_instructions.txt
var systemInstructionsTemplate string

// NewPromptService 创建提示词服务
func NewPromptService(conf *config.Config) *PromptService {
	return &PromptService{config: conf}
}

// PromptData 提示词数据
type PromptData struct {
	Config          *models.AgentConfig
	Candidates      []CandidateToken
	Positions       []models.TrackedPosition
	VaultBalanceBNB float64
	Market          *MarketContext
}

// GeneratePrompt 生成完整的决策提示词
func (s *PromptService) GeneratePrompt(data *PromptData) string {
	if data == nil || data.Config == nil {
		return ""
	}

	var sb strings.Builder

	s.writeMarketContext(&sb, data.Market)
	s.writeCandidates(&sb, data.Candidates)
	s.writePositions(&sb, data.Positions)
	s.writeLimits(&sb, data.Config, data.VaultBalanceBNB)

	sb.WriteString("请根据以上信息做出一个交易决策，只输出一个JSON对象。\n")

	return sb.String()
}

// writeMarketContext 写入BNB市场环境
func (s *PromptService) writeMarketContext(sb *strings.Builder, market *MarketContext) {
	if market == nil {
		return
	}

	sb.WriteString("## BNB市场环境\n\n")
	sb.WriteString(fmt.Sprintf("- BNB现价：$%.2f（24小时 %+.2f%%）\n", market.BNBPriceUSD, market.Change24h))
	sb.WriteString(fmt.Sprintf("- 1小时级别趋势：%s，RSI14=%.1f\n", market.Trend, market.RSI14))
	sb.WriteString(fmt.Sprintf("- 波动率（ATR14/价格）：%.2f%%\n", market.ATRPct))
	sb.WriteString(fmt.Sprintf("- 24小时区间：$%.2f - $%.2f\n\n", market.Low24h, market.High24h))
}

// writeCandidates 写入候选代币行情
func (s *PromptService) writeCandidates(sb *strings.Builder, candidates []CandidateToken) {
	sb.WriteString("## 候选代币\n\n")

	if len(candidates) == 0 {
		sb.WriteString("本周期没有发现符合条件的候选代币。\n\n")
		return
	}

	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}

	for i, token := range candidates {
		sb.WriteString(fmt.Sprintf("%d. %s (%s) 地址=%s\n", i+1, token.Symbol, token.Name, token.Address))
		sb.WriteString(fmt.Sprintf("   价格=$%s, 1小时=%+.2f%%, 24小时=%+.2f%%, 24小时成交额=$%.0f, 流动性=$%.0f, 来源=%s\n",
			formatPrice(token.Price), token.Change1h, token.Change24h, token.Volume24h, token.Liquidity, token.Source))
	}
	sb.WriteString("\n")
}

// writePositions 写入当前持仓
func (s *PromptService) writePositions(sb *strings.Builder, positions []models.TrackedPosition) {
	sb.WriteString("## 当前持仓\n\n")

	if len(positions) == 0 {
		sb.WriteString("当前没有持仓。\n\n")
		return
	}

	for i, pos := range positions {
		holdingHours := time.Since(pos.TrackedAt).Hours()
		sb.WriteString(fmt.Sprintf("%d. %s (%s) 地址=%s, 已持有%.1f小时\n",
			i+1, pos.Symbol, pos.Name, pos.TokenAddress, holdingHours))
	}
	sb.WriteString("\n")
}

// writeLimits 写入金库余额与风险限额
func (s *PromptService) writeLimits(sb *strings.Builder, cfg *models.AgentConfig, vaultBalanceBNB float64) {
	sb.WriteString("## 金库与限额\n\n")

	sb.WriteString(fmt.Sprintf("- Agent编号：%d（等级%d）\n", cfg.AgentID, cfg.Tier))
	sb.WriteString(fmt.Sprintf("- 交易策略：%s\n", cfg.Strategy))
	sb.WriteString(fmt.Sprintf("- 金库BNB余额：%.6f\n", vaultBalanceBNB))
	sb.WriteString(fmt.Sprintf("- 单笔上限：%.4f BNB\n", cfg.MaxTradeBNB))
	sb.WriteString(fmt.Sprintf("- 当日剩余额度：%.4f BNB（每日上限%.4f，已用%.4f）\n",
		cfg.DailyRemaining(), cfg.DailyCapBNB, cfg.DailySpent))

	if remaining := cfg.CooldownRemaining(time.Now()); remaining > 0 {
		sb.WriteString(fmt.Sprintf("- 冷却中：还需等待%.0f分钟才能交易\n", remaining.Minutes()))
	}
	sb.WriteString("\n")
}

// formatPrice 小额代币价格保留更多小数位
func formatPrice(price float64) string {
	if price >= 1 {
		return fmt.Sprintf("%.4f", price)
	}
	return fmt.Sprintf("%.8f", price)
}

// GetSystemInstructions 获取系统指令
func (s *PromptService) GetSystemInstructions() string {
	tmpl := fasttemplate.New(systemInstructionsTemplate, "{{", "}}")
	return tmpl.ExecuteString(map[string]interface{}{
		"platform_token": s.config.Chain.PlatformToken,
		"wbnb_address":   s.config.Chain.WBNBAddress,
	})
}
