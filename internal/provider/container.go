package provider

import (
	"time"

	"github.com/bazar-next/internal/authz"
	"github.com/bazar-next/internal/cache"
	"github.com/bazar-next/internal/config"
	"github.com/bazar-next/internal/currency"
	"github.com/bazar-next/internal/logger"
	"github.com/bazar-next/internal/models"
	"github.com/bazar-next/internal/payment/payhub"
	"github.com/bazar-next/internal/qr"
	"github.com/bazar-next/internal/queue"
	"github.com/bazar-next/internal/repository"
	"github.com/bazar-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	UserRepo         repository.UserRepository
	ProductRepo      repository.ProductRepository
	PromotionRepo    repository.PromotionRepository
	CartRepo         repository.CartRepository
	OrderRepo        repository.OrderRepository
	ReturnRepo       repository.ReturnRepository
	NotificationRepo repository.NotificationRepository

	// Collaborators
	Converter    *currency.Converter
	QRRenderer   *qr.Renderer
	PayhubClient *payhub.Client

	// Services
	AuthzService        *authz.Service
	CartService         *service.CartService
	PriceCalculator     *service.PriceCalculator
	OrderService        *service.OrderService
	ReturnsService      *service.ReturnsService
	RefundService       *service.RefundService
	NotificationService *service.NotificationService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.PromotionRepo = repository.NewPromotionRepository(db)
	c.CartRepo = repository.NewCartRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.ReturnRepo = repository.NewReturnRepository(db)
	c.NotificationRepo = repository.NewNotificationRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.Converter = currency.NewConverter(c.Config.Currency.Base, c.Config.Currency.Rates)
	c.QRRenderer = qr.NewRenderer(0)
	c.PayhubClient = payhub.NewClient(payhub.Config{
		BaseURL:    c.Config.Payhub.BaseURL,
		MerchantID: c.Config.Payhub.MerchantID,
		SecretKey:  c.Config.Payhub.SecretKey,
		Timeout:    time.Duration(c.Config.Payhub.TimeoutMS) * time.Millisecond,
	})

	c.NotificationService = service.NewNotificationService(c.NotificationRepo, c.QueueClient, service.LogNotifier{})
	c.CartService = service.NewCartService(c.CartRepo, c.ProductRepo)

	deliveryFee := parseMoney(c.Config.Delivery.FeeAmount, "delivery.fee_amount")
	c.PriceCalculator = service.NewPriceCalculator(c.PromotionRepo, c.Converter, deliveryFee, c.Config.Delivery.FeeCurrency)

	c.OrderService = service.NewOrderService(
		c.OrderRepo,
		c.ProductRepo,
		c.CartRepo,
		c.UserRepo,
		c.PriceCalculator,
		c.NotificationService,
		c.QRRenderer,
		c.Config.OrderQR.TokenLength,
		c.Config.OrderQR.ExpireHours,
	)

	c.ReturnsService = service.NewReturnsService(c.ReturnRepo, c.OrderRepo, c.NotificationService, c.QueueClient, service.ReturnsConfig{
		PeriodDays:        c.Config.Returns.PeriodDays,
		LogisticsFee:      parseMoney(c.Config.Returns.LogisticsFee, "returns.logistics_fee"),
		FreeReturnReasons: toReasonSet(c.Config.Returns.FreeReturnReasons),
		QRLength:          c.Config.Returns.QRLength,
		QRExpireHours:     c.Config.Returns.QRExpireHours,
	})

	c.RefundService = service.NewRefundService(c.ReturnRepo, c.OrderRepo, c.NotificationService, c.PayhubClient)
}

func parseMoney(value, field string) models.Money {
	money, err := models.NewMoneyFromString(value)
	if err != nil {
		logger.Errorw("provider_config_amount_invalid", "field", field, "value", value, "error", err)
		panic(err)
	}
	return money
}

func toReasonSet(reasons []string) map[string]bool {
	if len(reasons) == 0 {
		return nil
	}
	set := make(map[string]bool, len(reasons))
	for _, reason := range reasons {
		set[reason] = true
	}
	return set
}
