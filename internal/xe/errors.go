package xe

import "github.com/go-orz/orz"

var (
	ErrInvalidParams    = orz.NewError(10400, "参数无效")
	ErrPermissionDenied = orz.NewError(10401, "您没有权限查看/修改/删除此数据")

	ErrAgentNotConfigured = orz.NewError(20000, "该Agent尚未配置自动交易")
	ErrNotAgentOwner      = orz.NewError(20001, "您不是该Agent的持有人")
	ErrTierTooLow         = orz.NewError(20002, "Agent等级不足，自动交易需要4级及以上")
	ErrAgentDisabled      = orz.NewError(20003, "该Agent的自动交易已关闭")
	ErrInvalidStrategy    = orz.NewError(20004, "不支持的交易策略")
	ErrChainUnavailable   = orz.NewError(20005, "链上服务暂不可用")
)
