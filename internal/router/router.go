package router

import (
	"fmt"
	"strings"

	"github.com/bazar-next/internal/cache"
	"github.com/bazar-next/internal/config"
	publichandlers "github.com/bazar-next/internal/http/handlers/public"
	"github.com/bazar-next/internal/http/response"
	"github.com/bazar-next/internal/logger"
	"github.com/bazar-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	handler := publichandlers.New(c)

	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "bz"
	}
	scanRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:return_scan", redisPrefix),
		WindowSeconds: cfg.Security.ScanRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.ScanRateLimit.MaxRequests,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 鉴权接口：JWT 验证身份，RBAC 按角色策略放行
		authed := apiV1.Group("")
		authed.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		authed.Use(RBACMiddleware(c.AuthzService))
		{
			// 顾客：购物车
			authed.GET("/cart", handler.GetCart)
			authed.POST("/cart", handler.UpsertCartItem)
			authed.DELETE("/cart", handler.ClearCart)
			authed.DELETE("/cart/:product_id", handler.RemoveCartItem)

			// 顾客：订单
			authed.POST("/orders", handler.CreateOrder)
			authed.GET("/orders", handler.ListOrders)
			authed.GET("/orders/:id", handler.GetOrder)
			authed.POST("/orders/:id/cancel", handler.CancelOrder)
			authed.GET("/orders/:id/qr", handler.GetOrderQR)

			// 顾客：退货
			authed.POST("/returns", handler.CreateReturn)
			authed.GET("/returns", handler.ListReturns)
			authed.GET("/returns/:id", handler.GetReturn)
			authed.POST("/returns/scan", RateLimitMiddleware(cache.Client(), scanRule, KeyByIP), handler.ScanReturnQR)

			// 卖家
			authed.GET("/seller/orders", handler.ListSellerOrders)
			authed.PATCH("/seller/orders/:id/status", handler.UpdateSellerOrderStatus)
			authed.POST("/seller/orders/:id/courier", handler.AssignCourier)
			authed.GET("/seller/returns", handler.ListSellerReturns)
			authed.GET("/seller/returns/:id", handler.GetReturn)
			authed.POST("/seller/returns/:id/approve", handler.ApproveReturn)
			authed.POST("/seller/returns/:id/reject", handler.RejectReturn)
			authed.POST("/seller/returns/:id/condition", handler.MarkReturnCondition)
			authed.PATCH("/seller/returns/:id/status", handler.UpdateReturnStatus)

			// 快递员
			authed.GET("/courier/orders", handler.ListCourierOrders)
			authed.PATCH("/courier/orders/:id/status", handler.UpdateCourierOrderStatus)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})

	return r
}
