package config

type Config struct {
	Telegram  TelegramConf  `json:"telegram"`
	Chain     ChainConf     `json:"chain"`
	Binance   BinanceConf   `json:"binance"`
	Discovery DiscoveryConf `json:"discovery"`
	Keeper    KeeperConf    `json:"keeper"`
	LLM       LlmConf       `json:"llm"`
}

type TelegramConf struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  string `json:"chat_id"`
}

type ChainConf struct {
	RPCURL           string `json:"rpc_url"`            // BSC节点RPC地址
	ChainID          int64  `json:"chain_id"`           // 链ID，主网56
	KeeperPrivateKey string `json:"keeper_private_key"` // keeper签名私钥（hex）
	VaultAddress     string `json:"vault_address"`      // 金库合约地址
	RegistryAddress  string `json:"registry_address"`   // Agent NFT注册合约地址
	PlatformToken    string `json:"platform_token"`     // 平台代币（AFI）地址，禁止交易
	WBNBAddress      string `json:"wbnb_address"`       // WBNB地址，禁止交易
	TxWaitSeconds    int    `json:"tx_wait_seconds"`    // 等待交易确认的超时时间（秒），默认120
}

type BinanceConf struct {
	ProxyURL string `json:"proxy_url"` // 代理地址，例如: http://127.0.0.1:7890
	Testnet  bool   `json:"testnet"`   // 是否使用测试网
}

type DiscoveryConf struct {
	BaseURL        string   `json:"base_url"`        // 行情聚合器API基础URL（DexScreener兼容）
	TimeoutSeconds int      `json:"timeout_seconds"` // HTTP超时时间（秒），默认10
	FallbackTokens []string `json:"fallback_tokens"` // 候选不足时的固定备选代币地址
}

type KeeperConf struct {
	Enabled           bool    `json:"enabled"`             // 是否启动自动交易keeper
	IntervalSeconds   int     `json:"interval_seconds"`    // 交易周期（秒），默认120
	StartDelaySeconds int     `json:"start_delay_seconds"` // 启动后首次执行的延迟（秒），默认5
	GasReimburseCap   float64 `json:"gas_reimburse_cap"`   // 单笔gas补偿上限（BNB），默认0.005
	MaxSellFraction   float64 `json:"max_sell_fraction"`   // 单笔卖出占持仓的最大比例，默认0.5
	DustThreshold     float64 `json:"dust_threshold"`      // 持仓清除的粉尘阈值，默认0.000001
}

type LlmConf struct {
	BaseURL  string `json:"base_url"`  // LLM API基础URL
	APIKey   string `json:"api_key"`   // LLM API密钥
	Model    string `json:"model"`     // 模型名称
	ProxyURL string `json:"proxy_url"` // 代理地址，例如: http://127.0.0.1:7890
}
