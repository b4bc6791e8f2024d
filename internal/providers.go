package internal

import (
	"net/http"
	"net/url"
	"time"

	"github.com/agentfi/keeper/internal/config"
	"github.com/agentfi/keeper/internal/telegram"
	"github.com/agentfi/keeper/pkg/chain"
	"github.com/agentfi/keeper/pkg/exchange"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

const (
	telegramHTTPTimeout = 10 * time.Second
)

// provideChainClient 创建BSC链客户端，私钥或RPC缺失时在这里失败
func provideChainClient(conf *config.Config, logger *zap.Logger) (*chain.Client, error) {
	return chain.NewClient(
		conf.Chain.RPCURL,
		conf.Chain.ChainID,
		conf.Chain.KeeperPrivateKey,
		conf.Chain.TxWaitSeconds,
		logger,
	)
}

func provideVault(client *chain.Client, conf *config.Config) (*chain.Vault, error) {
	return chain.NewVault(client, conf.Chain.VaultAddress)
}

func provideRegistry(client *chain.Client, conf *config.Config) (*chain.Registry, error) {
	return chain.NewRegistry(client, conf.Chain.RegistryAddress)
}

func provideERC20Reader(client *chain.Client) (*chain.ERC20Reader, error) {
	return chain.NewERC20Reader(client)
}

// provideTelegram 创建Telegram通知器，未启用时返回nil
func provideTelegram(logger *zap.Logger, conf *config.Config) *telegram.Notifier {
	if !conf.Telegram.Enabled {
		return nil
	}

	httpClient := &http.Client{Timeout: telegramHTTPTimeout}

	notifier, err := telegram.NewNotifier(logger, telegram.Settings{
		Token:  conf.Telegram.Token,
		ChatID: conf.Telegram.ChatID,
		Client: httpClient,
	})
	if err != nil {
		logger.Error("failed to init telegram", zap.Error(err))
		return nil
	}

	return notifier
}

// provideBinanceClient 创建Binance现货行情客户端
func provideBinanceClient(conf *config.Config, logger *zap.Logger) *exchange.BinanceClient {
	client := exchange.NewBinanceClient(
		conf.Binance.ProxyURL,
		conf.Binance.Testnet,
	)

	logger.Info("Binance client initialized",
		zap.Bool("testnet", conf.Binance.Testnet))
	return client
}

// provideOpenAIClient 创建LLM客户端
func provideOpenAIClient(conf *config.Config, logger *zap.Logger) *openai.Client {
	var options = []option.RequestOption{
		option.WithBaseURL(conf.LLM.BaseURL),
		option.WithAPIKey(conf.LLM.APIKey),
	}
	if conf.LLM.ProxyURL != "" {
		u, err := url.Parse(conf.LLM.ProxyURL)
		if err != nil {
			logger.Fatal("failed to parse proxy URL", zap.Error(err))
		}
		httpClient := &http.Client{
			Timeout: time.Minute,
			Transport: &http.Transport{
				Proxy: http.ProxyURL(u),
			},
		}
		options = append(options, option.WithHTTPClient(httpClient))
	}

	client := openai.NewClient(options...)

	logger.Info("OpenAI client initialized",
		zap.String("model", conf.LLM.Model))
	return &client
}
