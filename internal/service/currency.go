package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/ayo6706/payment-screening/internal/domain"
	"github.com/ayo6706/payment-screening/internal/observability"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultFallbackRate is the USD->PKR rate used when the quote source fails.
var DefaultFallbackRate = decimal.RequireFromString("278.50")

const maxRateBodyBytes = 64 << 10

// RateSource fetches a live USD->PKR quote.
type RateSource interface {
	Rate(ctx context.Context) (decimal.Decimal, error)
}

// Conversion describes a USD amount converted into PKR.
type Conversion struct {
	OriginalAmount    decimal.Decimal `json:"originalAmount"`
	OriginalCurrency  string          `json:"originalCurrency"`
	ConvertedAmount   decimal.Decimal `json:"convertedAmount"`
	ConvertedCurrency string          `json:"convertedCurrency"`
	ExchangeRate      decimal.Decimal `json:"exchangeRate"`
	Timestamp         time.Time       `json:"timestamp"`
}

// CurrencyServiceConfig configures the quote source and its failure mode.
type CurrencyServiceConfig struct {
	RateURL      string
	FallbackRate decimal.Decimal
	FailOpen     bool
	Timeout      time.Duration
}

// CurrencyService converts USD payments landing in PKR accounts.
type CurrencyService struct {
	source   RateSource
	fallback decimal.Decimal
	failOpen bool
	now      func() time.Time
}

func NewCurrencyService(cfg CurrencyServiceConfig) *CurrencyService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return newCurrencyService(&httpRateSource{
		url:    cfg.RateURL,
		client: &http.Client{Timeout: timeout},
	}, cfg.FallbackRate, cfg.FailOpen)
}

// NewCurrencyServiceWithSource builds a service over an arbitrary quote source.
func NewCurrencyServiceWithSource(source RateSource, fallback decimal.Decimal, failOpen bool) *CurrencyService {
	return newCurrencyService(source, fallback, failOpen)
}

func newCurrencyService(source RateSource, fallback decimal.Decimal, failOpen bool) *CurrencyService {
	if !fallback.IsPositive() {
		fallback = DefaultFallbackRate
	}
	return &CurrencyService{
		source:   source,
		fallback: fallback,
		failOpen: failOpen,
		now:      time.Now,
	}
}

// Rate returns the live USD->PKR rate. Any failure, including a non-positive
// quote, yields the fallback rate unless the service runs fail-closed.
func (s *CurrencyService) Rate(ctx context.Context) (decimal.Decimal, error) {
	if s.source == nil {
		return s.onRateFailure(fmt.Errorf("no rate source configured"))
	}
	rate, err := s.source.Rate(ctx)
	if err != nil {
		return s.onRateFailure(err)
	}
	if !rate.IsPositive() {
		return s.onRateFailure(fmt.Errorf("non-positive rate %s", rate))
	}
	return rate, nil
}

func (s *CurrencyService) onRateFailure(err error) (decimal.Decimal, error) {
	if !s.failOpen {
		zap.L().Error("exchange rate unavailable", zap.Error(err))
		return decimal.Zero, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}
	observability.IncrementFailOpen("fx_rate")
	zap.L().Warn("exchange rate fetch failed, using fallback rate",
		zap.Error(err),
		zap.String("fallback_rate", s.fallback.String()),
	)
	return s.fallback, nil
}

// Convert fetches the current rate and converts a USD amount into PKR.
func (s *CurrencyService) Convert(ctx context.Context, usd decimal.Decimal) (Conversion, error) {
	rate, err := s.Rate(ctx)
	if err != nil {
		return Conversion{}, err
	}
	return s.ConvertAt(usd, rate), nil
}

// ConvertAt converts with a known rate, rounding half away from zero to cents.
func (s *CurrencyService) ConvertAt(usd, rate decimal.Decimal) Conversion {
	return Conversion{
		OriginalAmount:    usd,
		OriginalCurrency:  domain.CurrencyUSD,
		ConvertedAmount:   domain.RoundCents(usd.Mul(rate)),
		ConvertedCurrency: domain.CurrencyPKR,
		ExchangeRate:      rate,
		Timestamp:         s.now().UTC(),
	}
}

// NeedsConversion is true only for USD payments into PKR accounts.
func (s *CurrencyService) NeedsConversion(paymentCurrency, accountCurrency string) bool {
	return NeedsConversion(paymentCurrency, accountCurrency)
}

func NeedsConversion(paymentCurrency, accountCurrency string) bool {
	return paymentCurrency == domain.CurrencyUSD && accountCurrency == domain.CurrencyPKR
}

// CalculateConversionRisk buckets the original USD amount of a converted
// payment. NaN and negative amounts score lowest, +Inf highest.
func CalculateConversionRisk(usd float64) int {
	switch {
	case math.IsInf(usd, 1):
		return 75
	case math.IsNaN(usd) || usd < 0:
		return 10
	case usd < 1000:
		return 10
	case usd < 5000:
		return 25
	case usd < 10000:
		return 45
	default:
		return 75
	}
}

type httpRateSource struct {
	url    string
	client *http.Client
}

type rateQuote struct {
	Rates          map[string]decimal.NullDecimal `json:"rates"`
	ConversionRate decimal.NullDecimal            `json:"conversion_rate"`
	Rate           decimal.NullDecimal            `json:"rate"`
}

func (h *httpRateSource) Rate(ctx context.Context) (decimal.Decimal, error) {
	if h.url == "" {
		return decimal.Zero, fmt.Errorf("rate url not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rate source returned %d", resp.StatusCode)
	}

	var quote rateQuote
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxRateBodyBytes)).Decode(&quote); err != nil {
		return decimal.Zero, fmt.Errorf("decode rate: %w", err)
	}

	if pkr, ok := quote.Rates[domain.CurrencyPKR]; ok && pkr.Valid {
		return pkr.Decimal, nil
	}
	if quote.ConversionRate.Valid {
		return quote.ConversionRate.Decimal, nil
	}
	if quote.Rate.Valid {
		return quote.Rate.Decimal, nil
	}
	return decimal.Zero, fmt.Errorf("rate missing from response")
}
