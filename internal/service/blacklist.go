package service

import (
	"strings"

	"github.com/agentfi/keeper/internal/config"
)

// Blacklist 永不允许交易的代币：平台币与WBNB，
// 发现、信号生成、校验、执行各层都会检查
type Blacklist struct {
	addresses map[string]struct{}
	symbols   map[string]struct{}
}

// NewBlacklist 从配置构建黑名单
func NewBlacklist(conf *config.Config) *Blacklist {
	b := &Blacklist{
		addresses: make(map[string]struct{}),
		symbols:   make(map[string]struct{}),
	}
	for _, addr := range []string{conf.Chain.PlatformToken, conf.Chain.WBNBAddress} {
		if addr != "" {
			b.addresses[strings.ToLower(addr)] = struct{}{}
		}
	}
	for _, symbol := range []string{"AFI", "WBNB"} {
		b.symbols[symbol] = struct{}{}
	}
	return b
}

// Contains 地址或符号命中任意一项即视为黑名单
func (b *Blacklist) Contains(address, symbol string) bool {
	if address != "" {
		if _, ok := b.addresses[strings.ToLower(address)]; ok {
			return true
		}
	}
	if symbol != "" {
		if _, ok := b.symbols[strings.ToUpper(symbol)]; ok {
			return true
		}
	}
	return false
}
