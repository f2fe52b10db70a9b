package main

import (
	"time"

	"github.com/bazar-next/internal/authz"
	"github.com/bazar-next/internal/config"
	"github.com/bazar-next/internal/constants"
	"github.com/bazar-next/internal/logger"
	"github.com/bazar-next/internal/models"
	"github.com/bazar-next/internal/service"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type seedUser struct {
	Email string
	Name  string
	Role  string
}

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 角色策略
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		stdLog.Fatalf("Failed to init authz: %v", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		stdLog.Fatalf("Failed to bootstrap roles: %v", err)
	}

	// 演示账号
	passwordHash, err := bcrypt.GenerateFromPassword([]byte("demo123456"), bcrypt.DefaultCost)
	if err != nil {
		stdLog.Fatalf("Failed to hash password: %v", err)
	}

	seedUsers := []seedUser{
		{Email: "alice@bazar.local", Name: "Alice", Role: constants.RoleCustomer},
		{Email: "beta-shop@bazar.local", Name: "Beta Shop", Role: constants.RoleSeller},
		{Email: "gamma-store@bazar.local", Name: "Gamma Store", Role: constants.RoleSeller},
		{Email: "dmitry-courier@bazar.local", Name: "Dmitry", Role: constants.RoleCourier},
	}

	userIDs := map[string]uint{}
	for _, su := range seedUsers {
		var existing models.User
		if err := models.DB.Where("email = ?", su.Email).First(&existing).Error; err == nil {
			stdLog.Printf("User already exists: %s", su.Email)
			userIDs[su.Email] = existing.ID
			continue
		}
		user := models.User{
			Email:        su.Email,
			PasswordHash: string(passwordHash),
			Name:         su.Name,
			Role:         su.Role,
			IsActive:     true,
		}
		if err := models.DB.Create(&user).Error; err != nil {
			stdLog.Fatalf("Failed to create user %s: %v", su.Email, err)
		}
		userIDs[su.Email] = user.ID
		if err := authzService.AssignRole(user.ID, su.Role); err != nil {
			stdLog.Fatalf("Failed to assign role for %s: %v", su.Email, err)
		}
		stdLog.Printf("Created user: %s (%s)", su.Email, su.Role)

		token, err := service.IssueUserToken(cfg.UserJWT.SecretKey, user.ID, su.Role, cfg.UserJWT.ExpireHours)
		if err == nil {
			stdLog.Printf("  demo token: %s", token)
		}
	}

	customerID := userIDs["alice@bazar.local"]

	// 收货地址
	var addressCount int64
	models.DB.Model(&models.Address{}).Where("user_id = ?", customerID).Count(&addressCount)
	if addressCount == 0 {
		address := models.Address{
			UserID:    customerID,
			Line:      "1 Market Street",
			City:      "Springfield",
			IsDefault: true,
		}
		if err := models.DB.Create(&address).Error; err != nil {
			stdLog.Fatalf("Failed to create address: %v", err)
		}
		stdLog.Printf("Created address for customer")
	}

	// 商品
	products := []models.Product{
		{
			UserID:      userIDs["beta-shop@bazar.local"],
			Title:       "Wireless Earbuds",
			Description: "Bluetooth 5.3, 24h battery",
			PriceAmount: money("49.90"),
			Quantity:    120,
			IsActive:    true,
		},
		{
			UserID:          userIDs["beta-shop@bazar.local"],
			Title:           "USB-C Charger 65W",
			Description:     "GaN fast charger",
			PriceAmount:     money("29.90"),
			OldPriceAmount:  money("39.90"),
			DiscountPercent: 25,
			Quantity:        200,
			IsActive:        true,
		},
		{
			UserID:      userIDs["gamma-store@bazar.local"],
			Title:       "Ceramic Mug Set",
			Description: "Set of 4, dishwasher safe",
			PriceAmount: money("24.00"),
			Quantity:    80,
			IsActive:    true,
		},
	}

	productIDs := make([]uint, 0, len(products))
	for i := range products {
		var existing models.Product
		if err := models.DB.Where("user_id = ? AND title = ?", products[i].UserID, products[i].Title).First(&existing).Error; err == nil {
			stdLog.Printf("Product already exists: %s", products[i].Title)
			productIDs = append(productIDs, existing.ID)
			continue
		}
		if err := models.DB.Create(&products[i]).Error; err != nil {
			stdLog.Fatalf("Failed to create product %s: %v", products[i].Title, err)
		}
		productIDs = append(productIDs, products[i].ID)
		stdLog.Printf("Created product: %s", products[i].Title)
	}

	// 促销：耳机限时 9 折
	var promoCount int64
	models.DB.Model(&models.Promotion{}).Where("product_id = ?", productIDs[0]).Count(&promoCount)
	if promoCount == 0 {
		start := time.Now().Add(-time.Hour)
		end := time.Now().Add(14 * 24 * time.Hour)
		promo := models.Promotion{
			Name:      "Earbuds Launch Deal",
			ProductID: productIDs[0],
			Type:      constants.PromotionTypePercent,
			Value:     money("10"),
			StartsAt:  &start,
			EndsAt:    &end,
			IsActive:  true,
		}
		if err := models.DB.Create(&promo).Error; err != nil {
			stdLog.Fatalf("Failed to create promotion: %v", err)
		}
		stdLog.Printf("Created promotion: %s", promo.Name)
	}

	// 购物车：两个卖家各一件，方便演示拆单
	var cartCount int64
	models.DB.Model(&models.CartItem{}).Where("user_id = ?", customerID).Count(&cartCount)
	if cartCount == 0 {
		cartItems := []models.CartItem{
			{UserID: customerID, ProductID: productIDs[0], Quantity: 1},
			{UserID: customerID, ProductID: productIDs[2], Quantity: 2},
		}
		for _, item := range cartItems {
			if err := models.DB.Create(&item).Error; err != nil {
				stdLog.Fatalf("Failed to create cart item: %v", err)
			}
		}
		stdLog.Printf("Created demo cart for customer")
	}

	stdLog.Printf("Seed finished")
}

func money(value string) models.Money {
	amount, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return models.NewMoneyFromDecimal(amount)
}
