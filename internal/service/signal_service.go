package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agentfi/keeper/internal/config"
	"github.com/agentfi/keeper/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"
)

// 信号动作
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
	ActionHold = "hold"
)

// 信号置信度
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// TradeSignal LLM产出的交易信号，不直接持久化，只有执行结果进入日志
type TradeSignal struct {
	Action       string  `json:"action"`
	Token        string  `json:"token"`
	TokenAddress string  `json:"tokenAddress"`
	TokenName    string  `json:"tokenName"`
	Confidence   string  `json:"confidence"`
	AmountBNB    float64 `json:"amountBNB"`
	Reasoning    string  `json:"reasoning"`
	RiskScore    int     `json:"riskScore"`

	// 本次生成消耗的token数，随日志落库
	TokensUsed int64 `json:"tokensUsed,omitempty"`
}

// HoldSignal 构造观望信号，解析失败或模型选中黑名单代币时作为统一的降级形态
func HoldSignal(reason string) *TradeSignal {
	return &TradeSignal{
		Action:     ActionHold,
		Confidence: ConfidenceLow,
		Reasoning:  reason,
	}
}

// SignalService 交易信号生成服务，通过LLM对候选代币和持仓做出买卖决策
type SignalService struct {
	logger *zap.Logger

	openAIClient  *openai.Client
	model         string
	promptService *PromptService
	blacklist     *Blacklist
}

// NewSignalService 创建信号生成服务
func NewSignalService(openAIClient *openai.Client, conf *config.Config,
	promptService *PromptService, blacklist *Blacklist, logger *zap.Logger) *SignalService {
	return &SignalService{
		logger:        logger,
		openAIClient:  openAIClient,
		model:         conf.LLM.Model,
		promptService: promptService,
		blacklist:     blacklist,
	}
}

// GenerateTradeSignal 生成交易信号。
// LLM调用失败返回错误，由调用方视为本周期无信号；
// 输出解析失败或选中黑名单代币时返回hold信号，保证下游校验拿到统一形态
func (s *SignalService) GenerateTradeSignal(ctx context.Context, data *PromptData) (*TradeSignal, error) {
	prompt := s.promptService.GeneratePrompt(data)
	if prompt == "" {
		return nil, fmt.Errorf("empty prompt")
	}

	resp, err := s.openAIClient.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(s.promptService.GetSystemInstructions()),
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(1024),
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call LLM: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	content := resp.Choices[0].Message.Content
	tokensUsed := resp.Usage.TotalTokens

	signal, err := ParseTradeSignal(content)
	if err != nil {
		s.logger.Warn("failed to parse trade signal",
			zap.Uint64("agent_id", data.Config.AgentID),
			zap.String("content", content),
			zap.Error(err))
		hold := HoldSignal("信号解析失败")
		hold.TokensUsed = tokensUsed
		return hold, nil
	}
	signal.TokensUsed = tokensUsed

	// 模型选中黑名单代币时直接降级为hold，校验层还会再查一次
	if signal.Action != ActionHold && s.blacklist.Contains(signal.TokenAddress, signal.Token) {
		s.logger.Warn("LLM picked a blacklisted token",
			zap.Uint64("agent_id", data.Config.AgentID),
			zap.String("token", signal.Token),
			zap.String("address", signal.TokenAddress))
		hold := HoldSignal("模型选中了禁止交易的代币")
		hold.TokensUsed = tokensUsed
		return hold, nil
	}

	s.logger.Info("trade signal generated",
		zap.Uint64("agent_id", data.Config.AgentID),
		zap.String("action", signal.Action),
		zap.String("token", signal.Token),
		zap.String("confidence", signal.Confidence),
		zap.Float64("amount_bnb", signal.AmountBNB))

	return signal, nil
}

// ParseTradeSignal 从模型输出中提取第一个JSON对象并严格解码，
// 容忍JSON前后的自然语言内容
func ParseTradeSignal(content string) (*TradeSignal, error) {
	raw, err := extractJSONObject(content)
	if err != nil {
		return nil, err
	}

	var signal TradeSignal
	if err := json.Unmarshal([]byte(raw), &signal); err != nil {
		return nil, fmt.Errorf("invalid signal json: %w", err)
	}

	signal.Action = strings.ToLower(strings.TrimSpace(signal.Action))
	signal.Confidence = strings.ToLower(strings.TrimSpace(signal.Confidence))

	switch signal.Action {
	case ActionBuy, ActionSell, ActionHold:
	default:
		return nil, fmt.Errorf("unknown action %q", signal.Action)
	}
	switch signal.Confidence {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
	default:
		return nil, fmt.Errorf("unknown confidence %q", signal.Confidence)
	}
	if signal.RiskScore < 1 || signal.RiskScore > 10 {
		return nil, fmt.Errorf("risk score %d out of range", signal.RiskScore)
	}

	return &signal, nil
}

// extractJSONObject 提取第一个花括号配平的JSON对象，忽略字符串内的花括号
func extractJSONObject(content string) (string, error) {
	start := strings.Index(content, "{")
	if start < 0 {
		return "", fmt.Errorf("no json object in content")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return content[start : i+1], nil
				}
			}
		}
	}
	return "", fmt.Errorf("unbalanced json object in content")
}

// strategyThreshold 策略对应的最低置信度要求
func strategyThreshold(strategy string) float64 {
	switch strategy {
	case models.StrategyConservative:
		return 0.8
	case models.StrategyAggressive:
		return 0.4
	default:
		return 0.6
	}
}

// confidenceValue 置信度的数值映射
func confidenceValue(confidence string) float64 {
	switch confidence {
	case ConfidenceHigh:
		return 1.0
	case ConfidenceMedium:
		return 0.7
	default:
		return 0.4
	}
}
