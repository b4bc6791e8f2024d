package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/agentfi/keeper/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// KeeperHandler 自动交易keeper的HTTP处理器
type KeeperHandler struct {
	keeperLoop     *service.KeeperLoop
	controlService *service.ControlService
	logger         *zap.Logger
	loopCtx        context.Context
	loopCancel     context.CancelFunc
}

// NewKeeperHandler 创建keeper处理器
func NewKeeperHandler(
	keeperLoop *service.KeeperLoop,
	controlService *service.ControlService,
	logger *zap.Logger,
) *KeeperHandler {
	return &KeeperHandler{
		keeperLoop:     keeperLoop,
		controlService: controlService,
		logger:         logger,
	}
}

// EnableRequest 开启自动交易的请求
type EnableRequest struct {
	AgentID       uint64  `json:"agent_id" validate:"required,gt=0"`
	OwnerAddress  string  `json:"owner_address" validate:"required,len=42"`
	Strategy      string  `json:"strategy" validate:"required,oneof=conservative balanced aggressive"`
	MaxTradeBNB   float64 `json:"max_trade_bnb" validate:"omitempty,gt=0"`
	DailyCapBNB   float64 `json:"daily_cap_bnb" validate:"omitempty,gt=0"`
	SlippageBps   int     `json:"slippage_bps" validate:"omitempty,gt=0,lte=5000"`
	CooldownMins  int     `json:"cooldown_mins" validate:"omitempty,gt=0,lte=1440"`
	StopLossPct   float64 `json:"stop_loss_pct" validate:"omitempty,gt=0,lte=100"`
	TakeProfitPct float64 `json:"take_profit_pct" validate:"omitempty,gt=0"`
}

// Enable 开启Agent的自动交易
// POST /api/keeper/enable
func (h *KeeperHandler) Enable(c echo.Context) error {
	var req EnableRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	cfg, err := h.controlService.Enable(c.Request().Context(), service.EnableParams{
		AgentID:       req.AgentID,
		OwnerAddress:  req.OwnerAddress,
		Strategy:      req.Strategy,
		MaxTradeBNB:   req.MaxTradeBNB,
		DailyCapBNB:   req.DailyCapBNB,
		SlippageBps:   req.SlippageBps,
		CooldownMins:  req.CooldownMins,
		StopLossPct:   req.StopLossPct,
		TakeProfitPct: req.TakeProfitPct,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, cfg)
}

// DisableRequest 关闭自动交易的请求
type DisableRequest struct {
	AgentID      uint64 `json:"agent_id" validate:"required,gt=0"`
	OwnerAddress string `json:"owner_address" validate:"required,len=42"`
}

// Disable 关闭Agent的自动交易
// POST /api/keeper/disable
func (h *KeeperHandler) Disable(c echo.Context) error {
	var req DisableRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.controlService.Disable(c.Request().Context(), req.AgentID, req.OwnerAddress); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "auto trade disabled",
	})
}

// GetStatus 查询Agent的自动交易状态
// GET /api/keeper/status/:agentId
func (h *KeeperHandler) GetStatus(c echo.Context) error {
	agentID, err := strconv.ParseUint(c.Param("agentId"), 10, 64)
	if err != nil || agentID == 0 {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid agent id",
		})
	}

	status, err := h.controlService.Status(c.Request().Context(), agentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, status)
}

// SimulateRequest 模拟执行的请求
type SimulateRequest struct {
	AgentID      uint64 `json:"agent_id" validate:"required,gt=0"`
	OwnerAddress string `json:"owner_address" validate:"required,len=42"`
}

// Simulate 对Agent做一次无副作用的信号生成与校验
// POST /api/keeper/simulate
func (h *KeeperHandler) Simulate(c echo.Context) error {
	var req SimulateRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.controlService.Simulate(c.Request().Context(), req.AgentID, req.OwnerAddress)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// GetLogs 查询自动交易日志
// GET /api/keeper/logs?agent_id=1&limit=50
func (h *KeeperHandler) GetLogs(c echo.Context) error {
	var agentID uint64
	if v := c.QueryParam("agent_id"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error": "invalid agent id",
			})
		}
		agentID = parsed
	}

	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	logs, err := h.controlService.Logs(c.Request().Context(), agentID, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count": len(logs),
		"logs":  logs,
	})
}

// GetLoopStatus 查询keeper循环状态
// GET /api/keeper/loop
func (h *KeeperHandler) GetLoopStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.keeperLoop.GetStatus())
}

// StartLoop 启动keeper循环
// POST /api/keeper/loop/start
func (h *KeeperHandler) StartLoop(c echo.Context) error {
	if h.keeperLoop.IsRunning() {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "keeper loop is already running",
		})
	}

	h.loopCtx, h.loopCancel = context.WithCancel(context.Background())

	go func() {
		if err := h.keeperLoop.Start(h.loopCtx); err != nil {
			h.logger.Error("keeper loop error", zap.Error(err))
		}
	}()

	h.logger.Info("keeper loop started via API")

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "keeper loop started",
	})
}

// StopLoop 停止keeper循环
// POST /api/keeper/loop/stop
func (h *KeeperHandler) StopLoop(c echo.Context) error {
	if !h.keeperLoop.IsRunning() {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "keeper loop is not running",
		})
	}

	h.keeperLoop.Stop()
	if h.loopCancel != nil {
		h.loopCancel()
	}

	h.logger.Info("keeper loop stopped via API")

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "keeper loop stopped",
	})
}

// RegisterRoutes 注册路由
func (h *KeeperHandler) RegisterRoutes(g *echo.Group) {
	keeper := g.Group("/keeper")

	// 查询接口
	keeper.GET("/status/:agentId", h.GetStatus)
	keeper.GET("/logs", h.GetLogs)
	keeper.GET("/loop", h.GetLoopStatus)

	// 控制接口
	keeper.POST("/enable", h.Enable)
	keeper.POST("/disable", h.Disable)
	keeper.POST("/simulate", h.Simulate)
	keeper.POST("/loop/start", h.StartLoop)
	keeper.POST("/loop/stop", h.StopLoop)
}
