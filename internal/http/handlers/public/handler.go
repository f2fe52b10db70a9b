package public

import "github.com/bazar-next/internal/provider"

// Handler 用户侧 API 处理器入口
// 说明：涵盖顾客、卖家、快递员三类角色的接口。
type Handler struct {
	*provider.Container
}

// New 创建处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
