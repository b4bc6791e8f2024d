//go:build wireinject
// +build wireinject

package internal

import (
	"github.com/google/wire"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/agentfi/keeper/internal/config"
	"github.com/agentfi/keeper/internal/handler"
	"github.com/agentfi/keeper/internal/service"
)

var (
	handlerSet = wire.NewSet(
		handler.NewKeeperHandler,
	)

	chainSet = wire.NewSet(
		provideChainClient,
		provideVault,
		provideRegistry,
		provideERC20Reader,
	)

	keeperSet = wire.NewSet(
		provideBinanceClient,
		provideOpenAIClient,
		service.NewBlacklist,
		service.NewStoreService,
		service.NewDiscoveryService,
		service.NewMarketService,
		service.NewPromptService,
		service.NewSignalService,
		service.NewExecutorService,
		service.NewControlService,
		service.NewKeeperLoop,
	)
)

// InitializeApp 初始化应用
func InitializeApp(logger *zap.Logger, db *gorm.DB, conf *config.Config) (*AppComponents, error) {
	wire.Build(
		handlerSet,
		chainSet,
		keeperSet,
		provideTelegram,
		wire.Struct(new(AppComponents), "*"),
	)
	return nil, nil
}
