package internal

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/agentfi/keeper/internal/config"
	"github.com/agentfi/keeper/internal/handler"
	"github.com/agentfi/keeper/internal/models"
	"github.com/agentfi/keeper/internal/service"
	"github.com/agentfi/keeper/internal/telegram"
	"github.com/agentfi/keeper/pkg/nostd"
	"github.com/agentfi/keeper/web"
	"github.com/go-orz/orz"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func Run(configPath string) error {
	app := NewKeeperApp()

	framework, err := orz.NewFramework(
		orz.WithConfig(configPath),
		orz.WithLoggerFromConfig(),
		orz.WithDatabase(),
		orz.WithHTTP(),
		orz.WithApplication(app),
	)
	if err != nil {
		return err
	}

	return framework.Run()
}

func NewKeeperApp() orz.Application {
	return &KeeperApp{}
}

var _ orz.Application = (*KeeperApp)(nil)

type AppComponents struct {
	KeeperHandler *handler.KeeperHandler

	KeeperLoop     *service.KeeperLoop
	ControlService *service.ControlService
	StoreService   *service.StoreService

	Notifier *telegram.Notifier
}

type KeeperApp struct {
	components *AppComponents
	conf       *config.Config
}

// GetComponents 获取应用组件
func (r *KeeperApp) GetComponents() *AppComponents {
	return r.components
}

func (r *KeeperApp) Configure(app *orz.App) error {
	logger := app.Logger()
	e := app.GetEcho()
	db := app.GetDatabase()

	var conf config.Config
	err := app.GetConfig().App.Unmarshal(&conf)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %v", err)
	}
	r.conf = &conf

	if err := db.AutoMigrate(
		models.AgentConfig{}, models.TrackedPosition{}, models.TradeLog{},
	); err != nil {
		logger.Fatal("database auto migrate failed", zap.Error(err))
	}

	// 初始化失败只禁用自动交易功能，进程继续提供其余服务
	components, err := InitializeApp(logger, db, &conf)
	if err != nil {
		logger.Error("keeper initialization failed, auto trading disabled", zap.Error(err))
	} else {
		r.components = components
	}

	e.HidePort = true
	e.HideBanner = true

	e.Use(middleware.Gzip())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		Skipper:      middleware.DefaultSkipper,
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
	}))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			sugar := logger.Sugar()
			sugar.Error(fmt.Sprintf("[PANIC RECOVER] %v %s\n", err, stack))
			return err
		},
	}))
	e.Use(WithErrorHandler(logger))
	customValidator := nostd.CustomValidator{Validator: validator.New()}
	if err := customValidator.TransInit(); err != nil {
		logger.Sugar().Fatal("failed to init custom validator", zap.Error(err))
	}
	e.Validator = &customValidator

	e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().RequestURI
			if strings.HasPrefix(path, "/api") {
				return true
			}
			return false
		},
		Root:       "",
		Index:      "index.html",
		HTML5:      true,
		Browse:     false,
		IgnoreBase: false,
		Filesystem: http.FS(web.Assets()),
	}))

	api := e.Group("/api")
	{
		if r.components != nil && r.components.KeeperHandler != nil {
			r.components.KeeperHandler.RegisterRoutes(api)
		}
	}

	r.Init(logger)

	return nil
}

func (r *KeeperApp) Init(logger *zap.Logger) {
	logger.Info("=================================================")
	logger.Info("AgentFi Keeper Starting...")
	logger.Info("=================================================")

	components := r.GetComponents()
	if components == nil || components.KeeperLoop == nil {
		logger.Warn("keeper loop not available, auto trading disabled")
		return
	}

	if components.Notifier != nil {
		components.Notifier.Start()
	}

	if !r.conf.Keeper.Enabled {
		logger.Info("keeper loop disabled by configuration")
		return
	}

	logger.Info("keeper loop initialized, starting...")

	go func() {
		if err := components.KeeperLoop.Start(context.Background()); err != nil {
			logger.Error("keeper loop error", zap.Error(err))
		}
	}()
}
