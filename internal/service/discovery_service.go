package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/agentfi/keeper/internal/config"
	"github.com/agentfi/keeper/internal/models"
	"go.uber.org/zap"
)

// 策略对应的最低美元流动性要求
const (
	liquidityFloorConservative = 1_000_000
	liquidityFloorBalanced     = 100_000
	liquidityFloorAggressive   = 50_000

	// 搜索来源的候选额外要求的最低24小时成交额
	searchMinVolume24h = 10_000

	// 候选不足此数量时启用备选代币列表
	minCandidates = 5

	// 提供给信号生成的候选数量上限
	maxCandidates = 20
)

// CandidateToken 发现阶段产出的候选代币
type CandidateToken struct {
	Address     string  `json:"address"`
	Symbol      string  `json:"symbol"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Change1h    float64 `json:"change_1h"`
	Change24h   float64 `json:"change_24h"`
	Volume24h   float64 `json:"volume_24h"`
	Liquidity   float64 `json:"liquidity"`
	PairAddress string  `json:"pair_address"`
	Source      string  `json:"source"` // trending / search / fallback
}

// DiscoveryService 候选代币发现服务，对接DexScreener兼容的行情聚合接口。
// 任何一路请求失败都降级为空结果，发现为空是正常状态而非错误
type DiscoveryService struct {
	logger *zap.Logger

	conf      config.DiscoveryConf
	blacklist *Blacklist
	client    *http.Client
}

// NewDiscoveryService 创建代币发现服务
func NewDiscoveryService(conf *config.Config, blacklist *Blacklist, logger *zap.Logger) *DiscoveryService {
	timeout := time.Duration(conf.Discovery.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DiscoveryService{
		logger:    logger,
		conf:      conf.Discovery,
		blacklist: blacklist,
		client:    &http.Client{Timeout: timeout},
	}
}

// liquidityFloor 策略对应的流动性下限
func liquidityFloor(strategy string) float64 {
	switch strategy {
	case models.StrategyConservative:
		return liquidityFloorConservative
	case models.StrategyAggressive:
		return liquidityFloorAggressive
	default:
		return liquidityFloorBalanced
	}
}

// DiscoverTokens 发现符合策略流动性要求的候选代币。
// 不返回错误，失败时返回空列表，由keeper跳过本周期交易
func (s *DiscoveryService) DiscoverTokens(ctx context.Context, strategy string) []CandidateToken {
	var (
		trending []CandidateToken
		searched []CandidateToken
		wg       sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		trending = s.fetchTrending(ctx)
	}()
	go func() {
		defer wg.Done()
		searched = s.fetchSearch(ctx)
	}()
	wg.Wait()

	floor := liquidityFloor(strategy)
	merged := s.merge(trending, searched)

	candidates := make([]CandidateToken, 0, len(merged))
	for _, token := range merged {
		// 未上报流动性按0处理，同样达不到门槛
		if token.Liquidity < floor {
			continue
		}
		if token.Source == "search" && token.Volume24h < searchMinVolume24h {
			continue
		}
		candidates = append(candidates, token)
	}

	if len(candidates) < minCandidates && len(s.conf.FallbackTokens) > 0 {
		fallback := s.fetchByAddresses(ctx, s.conf.FallbackTokens, "fallback")
		seen := make(map[string]struct{}, len(candidates))
		for _, c := range candidates {
			seen[strings.ToLower(c.Address)] = struct{}{}
		}
		for _, token := range fallback {
			if _, ok := seen[strings.ToLower(token.Address)]; ok {
				continue
			}
			if token.Liquidity < floor {
				continue
			}
			candidates = append(candidates, token)
		}
	}

	candidates = s.backfillPrices(ctx, candidates)

	// 只保留价格明确为正的候选，补齐行情后流动性门槛再查一遍
	result := make([]CandidateToken, 0, len(candidates))
	for _, token := range candidates {
		if token.Price > 0 && token.Liquidity >= floor {
			result = append(result, token)
		}
	}

	s.logger.Info("token discovery finished",
		zap.String("strategy", strategy),
		zap.Int("trending", len(trending)),
		zap.Int("search", len(searched)),
		zap.Int("candidates", len(result)))

	return result
}

// merge 合并多路来源，按小写地址去重并剔除黑名单代币
func (s *DiscoveryService) merge(lists ...[]CandidateToken) []CandidateToken {
	seen := make(map[string]struct{})
	var merged []CandidateToken

	for _, list := range lists {
		for _, token := range list {
			addr := strings.ToLower(token.Address)
			if addr == "" {
				continue
			}
			if _, ok := seen[addr]; ok {
				continue
			}
			if s.blacklist.Contains(token.Address, token.Symbol) {
				continue
			}
			seen[addr] = struct{}{}
			merged = append(merged, token)
		}
	}
	return merged
}

// dexPair DexScreener交易对响应
type dexPair struct {
	ChainID     string `json:"chainId"`
	DexID       string `json:"dexId"`
	PairAddress string `json:"pairAddress"`
	BaseToken   struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	PriceUsd    string `json:"priceUsd"`
	PriceChange struct {
		H1  float64 `json:"h1"`
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	Liquidity struct {
		Usd float64 `json:"usd"`
	} `json:"liquidity"`
}

func (p *dexPair) toCandidate(source string) CandidateToken {
	price, _ := strconv.ParseFloat(p.PriceUsd, 64)
	return CandidateToken{
		Address:     p.BaseToken.Address,
		Symbol:      p.BaseToken.Symbol,
		Name:        p.BaseToken.Name,
		Price:       price,
		Change1h:    p.PriceChange.H1,
		Change24h:   p.PriceChange.H24,
		Volume24h:   p.Volume.H24,
		Liquidity:   p.Liquidity.Usd,
		PairAddress: p.PairAddress,
		Source:      source,
	}
}

// fetchTrending 获取热门代币，再通过批量价格接口补齐行情
func (s *DiscoveryService) fetchTrending(ctx context.Context) []CandidateToken {
	var boosts []struct {
		ChainID      string `json:"chainId"`
		TokenAddress string `json:"tokenAddress"`
	}
	if err := s.getJSON(ctx, s.conf.BaseURL+"/token-boosts/top/v1", &boosts); err != nil {
		s.logger.Warn("trending feed unavailable", zap.Error(err))
		return nil
	}

	addresses := make([]string, 0, len(boosts))
	for _, boost := range boosts {
		if boost.ChainID != "bsc" {
			continue
		}
		addresses = append(addresses, boost.TokenAddress)
	}
	if len(addresses) == 0 {
		return nil
	}
	return s.fetchByAddresses(ctx, addresses, "trending")
}

// fetchSearch 通过搜索接口获取BSC链上的活跃交易对
func (s *DiscoveryService) fetchSearch(ctx context.Context) []CandidateToken {
	var resp struct {
		Pairs []dexPair `json:"pairs"`
	}
	if err := s.getJSON(ctx, s.conf.BaseURL+"/latest/dex/search?q=bsc", &resp); err != nil {
		s.logger.Warn("search feed unavailable", zap.Error(err))
		return nil
	}

	tokens := make([]CandidateToken, 0, len(resp.Pairs))
	for i := range resp.Pairs {
		pair := &resp.Pairs[i]
		if pair.ChainID != "bsc" {
			continue
		}
		tokens = append(tokens, pair.toCandidate("search"))
	}
	return tokens
}

// fetchByAddresses 批量查询指定地址的行情，每次最多30个地址
func (s *DiscoveryService) fetchByAddresses(ctx context.Context, addresses []string, source string) []CandidateToken {
	var tokens []CandidateToken

	const batchSize = 30
	for start := 0; start < len(addresses); start += batchSize {
		end := start + batchSize
		if end > len(addresses) {
			end = len(addresses)
		}

		var resp struct {
			Pairs []dexPair `json:"pairs"`
		}
		url := fmt.Sprintf("%s/latest/dex/tokens/%s", s.conf.BaseURL, strings.Join(addresses[start:end], ","))
		if err := s.getJSON(ctx, url, &resp); err != nil {
			s.logger.Warn("token lookup unavailable", zap.Error(err))
			continue
		}

		// 同一代币可能出现在多个交易对，只取每个地址流动性最高的那个
		best := make(map[string]*dexPair)
		for i := range resp.Pairs {
			pair := &resp.Pairs[i]
			if pair.ChainID != "bsc" {
				continue
			}
			addr := strings.ToLower(pair.BaseToken.Address)
			if existing, ok := best[addr]; !ok || pair.Liquidity.Usd > existing.Liquidity.Usd {
				best[addr] = pair
			}
		}
		for _, pair := range best {
			tokens = append(tokens, pair.toCandidate(source))
		}
	}
	return tokens
}

// backfillPrices 对缺失价格的候选做一次批量补齐
func (s *DiscoveryService) backfillPrices(ctx context.Context, candidates []CandidateToken) []CandidateToken {
	var missing []string
	for _, token := range candidates {
		if token.Price <= 0 {
			missing = append(missing, token.Address)
		}
	}
	if len(missing) == 0 {
		return candidates
	}

	resolved := s.fetchByAddresses(ctx, missing, "backfill")
	byAddr := make(map[string]CandidateToken, len(resolved))
	for _, token := range resolved {
		byAddr[strings.ToLower(token.Address)] = token
	}

	for i := range candidates {
		if candidates[i].Price > 0 {
			continue
		}
		if filled, ok := byAddr[strings.ToLower(candidates[i].Address)]; ok {
			candidates[i].Price = filled.Price
			candidates[i].Volume24h = filled.Volume24h
			candidates[i].Liquidity = filled.Liquidity
			if candidates[i].PairAddress == "" {
				candidates[i].PairAddress = filled.PairAddress
			}
		}
	}
	return candidates
}

func (s *DiscoveryService) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
