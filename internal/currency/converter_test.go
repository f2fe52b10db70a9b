package currency

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/bazar-next/internal/models"
)

func money(t *testing.T, s string) models.Money {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid amount %q: %v", s, err)
	}
	return models.NewMoneyFromDecimal(d)
}

func TestConvertSameCurrency(t *testing.T) {
	c := NewConverter("USD", map[string]float64{"USD": 1, "EUR": 0.9})
	got, err := c.Convert(money(t, "12.34"), "USD", "USD")
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if got.String() != "12.34" {
		t.Fatalf("expected 12.34, got %s", got.String())
	}
}

func TestConvertCrossCurrency(t *testing.T) {
	c := NewConverter("USD", map[string]float64{"EUR": 0.8, "GBP": 0.5})
	// 10 EUR -> 12.50 USD -> 6.25 GBP
	got, err := c.Convert(money(t, "10.00"), "EUR", "GBP")
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if got.String() != "6.25" {
		t.Fatalf("expected 6.25, got %s", got.String())
	}
}

func TestConvertRoundsToTwoDecimals(t *testing.T) {
	c := NewConverter("USD", map[string]float64{"EUR": 3})
	got, err := c.Convert(money(t, "10.00"), "EUR", "USD")
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if got.String() != "3.33" {
		t.Fatalf("expected 3.33, got %s", got.String())
	}
}

func TestConvertMissingRate(t *testing.T) {
	c := NewConverter("USD", map[string]float64{"EUR": 0.9})
	if _, err := c.Convert(money(t, "1.00"), "USD", "JPY"); !errors.Is(err, ErrRateUnavailable) {
		t.Fatalf("expected ErrRateUnavailable, got %v", err)
	}
	if _, err := c.Convert(money(t, "1.00"), "JPY", "USD"); !errors.Is(err, ErrRateUnavailable) {
		t.Fatalf("expected ErrRateUnavailable, got %v", err)
	}
}

func TestConvertZeroRateTreatedAsMissing(t *testing.T) {
	c := NewConverter("USD", map[string]float64{"EUR": 0})
	if _, err := c.Convert(money(t, "1.00"), "EUR", "USD"); !errors.Is(err, ErrRateUnavailable) {
		t.Fatalf("expected ErrRateUnavailable, got %v", err)
	}
}

func TestBaseCurrencyDefaultsAndRate(t *testing.T) {
	c := NewConverter("", nil)
	if c.BaseCurrency() != "USD" {
		t.Fatalf("expected default base USD, got %s", c.BaseCurrency())
	}
	got, err := c.Convert(money(t, "5.00"), "usd", "USD")
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if got.String() != "5.00" {
		t.Fatalf("expected 5.00, got %s", got.String())
	}
}
