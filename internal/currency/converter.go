package currency

import (
	"errors"
	"strings"

	"github.com/bazar-next/internal/models"

	"github.com/shopspring/decimal"
)

// ErrRateUnavailable 币种缺少汇率配置（属于致命配置错误，不应吞掉）
var ErrRateUnavailable = errors.New("currency rate unavailable")

// Converter 汇率换算器
// 汇率表来自配置，表示 1 基准币种可兑换的目标币种数量。
type Converter struct {
	base  string
	rates map[string]decimal.Decimal
}

// NewConverter 创建汇率换算器
func NewConverter(base string, rates map[string]float64) *Converter {
	normalized := make(map[string]decimal.Decimal, len(rates)+1)
	for code, rate := range rates {
		normalized[strings.ToUpper(strings.TrimSpace(code))] = decimal.NewFromFloat(rate)
	}
	baseCode := strings.ToUpper(strings.TrimSpace(base))
	if baseCode == "" {
		baseCode = "USD"
	}
	if _, ok := normalized[baseCode]; !ok {
		normalized[baseCode] = decimal.NewFromInt(1)
	}
	return &Converter{base: baseCode, rates: normalized}
}

// BaseCurrency 返回基准币种
func (c *Converter) BaseCurrency() string {
	return c.base
}

// Supports 判断币种是否配置了可用汇率
func (c *Converter) Supports(code string) bool {
	rate, ok := c.rates[strings.ToUpper(strings.TrimSpace(code))]
	return ok && !rate.IsZero()
}

// Convert 金额换算，结果保留 2 位小数
func (c *Converter) Convert(amount models.Money, from, to string) (models.Money, error) {
	fromCode := strings.ToUpper(strings.TrimSpace(from))
	toCode := strings.ToUpper(strings.TrimSpace(to))
	if fromCode == toCode {
		return models.NewMoneyFromDecimal(amount.Decimal), nil
	}
	fromRate, ok := c.rates[fromCode]
	if !ok || fromRate.IsZero() {
		return models.Money{}, ErrRateUnavailable
	}
	toRate, ok := c.rates[toCode]
	if !ok || toRate.IsZero() {
		return models.Money{}, ErrRateUnavailable
	}
	// 先折算到基准币种再折算到目标币种
	inBase := amount.Decimal.Div(fromRate)
	return models.NewMoneyFromDecimal(inBase.Mul(toRate)), nil
}
