package service

import (
	"strings"
	"time"

	"github.com/bazar-next/internal/constants"
	"github.com/bazar-next/internal/currency"
	"github.com/bazar-next/internal/models"
	"github.com/bazar-next/internal/repository"

	"github.com/shopspring/decimal"
)

// PriceCalculator 价格计算器
// 单价优先取当前生效的活动价，其次落回商品自身的折扣字段。
type PriceCalculator struct {
	promotionRepo    repository.PromotionRepository
	converter        *currency.Converter
	deliveryFee      models.Money
	deliveryCurrency string
}

// NewPriceCalculator 创建价格计算器
func NewPriceCalculator(promotionRepo repository.PromotionRepository, converter *currency.Converter, deliveryFee models.Money, deliveryCurrency string) *PriceCalculator {
	return &PriceCalculator{
		promotionRepo:    promotionRepo,
		converter:        converter,
		deliveryFee:      deliveryFee,
		deliveryCurrency: deliveryCurrency,
	}
}

// Totals 购物车总额计算结果
type Totals struct {
	Subtotal     models.Money
	DeliveryCost models.Money
	Total        models.Money
	Currency     string
	UnitPrices   map[uint]models.Money // 商品ID -> 成交单价
}

// ItemPrice 计算商品成交单价
func (c *PriceCalculator) ItemPrice(product *models.Product, promotions []models.Promotion) models.Money {
	if product == nil {
		return models.NewMoneyFromDecimal(decimal.Zero)
	}
	price := product.PriceAmount.Decimal

	best := price
	for _, p := range promotions {
		if p.ProductID != product.ID {
			continue
		}
		var candidate decimal.Decimal
		switch p.Type {
		case constants.PromotionTypePercent:
			candidate = price.Mul(decimal.NewFromInt(100).Sub(p.Value.Decimal)).Div(decimal.NewFromInt(100))
		case constants.PromotionTypeFixed:
			candidate = price.Sub(p.Value.Decimal)
		default:
			continue
		}
		if candidate.LessThan(best) {
			best = candidate
		}
	}

	// 没有活动价时落回商品折扣字段
	if best.Equal(price) && product.DiscountPercent > 0 && product.DiscountPercent < 100 {
		base := price
		if product.OldPriceAmount.Decimal.GreaterThan(decimal.Zero) {
			base = product.OldPriceAmount.Decimal
		}
		discounted := base.Mul(decimal.NewFromInt(int64(100 - product.DiscountPercent))).Div(decimal.NewFromInt(100))
		if discounted.LessThan(best) {
			best = discounted
		}
	}

	if best.LessThan(decimal.Zero) {
		best = decimal.Zero
	}
	return models.NewMoneyFromDecimal(best)
}

// CalculateTotals 计算购物车总额（商品小计 + 配送费）
// 单价与总额全部以基准币种入账，请求币种仅校验是否有可用汇率。
func (c *PriceCalculator) CalculateTotals(items []models.CartItem, requestedCurrency string) (*Totals, error) {
	baseCurrency := c.converter.BaseCurrency()
	if code := strings.TrimSpace(requestedCurrency); code != "" && !c.converter.Supports(code) {
		return nil, currency.ErrRateUnavailable
	}

	productIDs := make([]uint, 0, len(items))
	for _, item := range items {
		productIDs = append(productIDs, item.ProductID)
	}

	var promotions []models.Promotion
	if c.promotionRepo != nil {
		var err error
		promotions, err = c.promotionRepo.ListActiveByProductIDs(productIDs, time.Now())
		if err != nil {
			return nil, err
		}
	}

	subtotal := decimal.Zero
	unitPrices := make(map[uint]models.Money, len(items))
	for _, item := range items {
		if item.Product == nil {
			continue
		}
		unit := c.ItemPrice(item.Product, promotions)
		unitPrices[item.ProductID] = unit
		subtotal = subtotal.Add(unit.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	// 配送费可能以其他币种配置，统一折算到基准币种再参与总额
	deliveryCost, err := c.converter.Convert(c.deliveryFee, c.deliveryCurrency, baseCurrency)
	if err != nil {
		return nil, err
	}

	sub := models.NewMoneyFromDecimal(subtotal)
	return &Totals{
		Subtotal:     sub,
		DeliveryCost: deliveryCost,
		Total:        sub.AddMoney(deliveryCost),
		Currency:     baseCurrency,
		UnitPrices:   unitPrices,
	}, nil
}
